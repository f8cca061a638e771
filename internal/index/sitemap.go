package index

import (
	"bytes"
	"encoding/xml"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/storage"
)

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// Sitemap lists every post followed by the special pages.
func Sitemap(posts []storage.Post, special []string) ([]byte, error) {
	set := urlSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  make([]sitemapURL, 0, len(posts)+len(special)),
	}
	for _, p := range posts {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:     p.Permalink,
			LastMod: p.Updated.UTC().Format(time.RFC3339),
		})
	}
	for _, loc := range special {
		set.URLs = append(set.URLs, sitemapURL{Loc: loc})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
