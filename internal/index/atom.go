// Package index generates the site-wide artifacts built from the post index:
// the Atom feed, the sitemap and the JSON search index.
package index

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/feeds"

	"git.home.luguber.info/inful/sitebuilder/internal/storage"
)

// File names of the generated artifacts, relative to the output root.
const (
	AtomFile    = "atom.xml"
	SitemapFile = "sitemap.xml"
	SearchFile  = "index.json"
)

// Feed describes the site the Atom feed is published for.
type Feed struct {
	Title string
	URL   string
	// Updated stamps the feed; it is the build time, not the newest post.
	Updated time.Time
}

// EntryID returns a stable URN for permalink.
func EntryID(permalink string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(permalink)).URN()
}

// Atom renders one entry per post.
func Atom(f Feed, posts []storage.Post) ([]byte, error) {
	feed := &feeds.Feed{
		Title:   f.Title,
		Link:    &feeds.Link{Href: f.URL},
		Id:      EntryID(f.URL),
		Updated: f.Updated,
	}
	for _, p := range posts {
		feed.Items = append(feed.Items, &feeds.Item{
			Title:       p.Title,
			Link:        &feeds.Link{Href: p.Permalink},
			Id:          EntryID(p.Permalink),
			Created:     p.Date,
			Updated:     p.Updated,
			Description: p.Summary,
		})
	}

	s, err := feed.ToAtom()
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}
