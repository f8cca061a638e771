package templates

import (
	"encoding/json"
	"html/template"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/sitebuilder/internal/storage"
)

// Funcs returns the helpers available to every template.
func Funcs() template.FuncMap {
	titler := cases.Title(language.English)
	return template.FuncMap{
		"postsInSeries": PostsInSeries,
		"recentPosts":   RecentPosts,
		"postsTagged":   PostsTagged,
		"title":         titler.String,
		"join":          strings.Join,
		"lower":         strings.ToLower,
		"hasTag":        slices.Contains[[]string, string],
		"dateFormat": func(layout string, t time.Time) string {
			return t.Format(layout)
		},
		"safeHTML": func(s string) template.HTML {
			// #nosec G203 -- content is authored by the site owner
			return template.HTML(s)
		},
		"json": func(v any) (template.JS, error) {
			b, err := json.Marshal(v)
			if err != nil {
				return "", err
			}
			// #nosec G203 -- json.Marshal escapes HTML-significant characters
			return template.JS(b), nil
		},
	}
}

// PostsInSeries returns the posts belonging to series, oldest first.
func PostsInSeries(series string, posts []storage.Post) []storage.Post {
	var out []storage.Post
	for _, p := range posts {
		if series != "" && p.Series == series {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(a, b storage.Post) int {
		return a.Date.Compare(b.Date)
	})
	return out
}

// RecentPosts returns at most n posts from an index already ordered newest first.
func RecentPosts(n int, posts []storage.Post) []storage.Post {
	if n < 0 {
		n = 0
	}
	if n > len(posts) {
		n = len(posts)
	}
	return posts[:n]
}

// PostsTagged returns the posts carrying tag.
func PostsTagged(tag string, posts []storage.Post) []storage.Post {
	var out []storage.Post
	for _, p := range posts {
		if slices.Contains(p.Tags, tag) {
			out = append(out, p)
		}
	}
	return out
}
