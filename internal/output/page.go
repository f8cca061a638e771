package output

import (
	"context"
	"html/template"
	"log/slog"
	"path"
	"strings"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/discovery"
	derrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/markdown"
	"git.home.luguber.info/inful/sitebuilder/internal/shortcode"
	"git.home.luguber.info/inful/sitebuilder/internal/storage"
	"git.home.luguber.info/inful/sitebuilder/internal/templates"
)

// Page is a rendered markdown source. Pages are identified by Source.
type Page struct {
	Source string
	// OutPath is the slash-separated output file relative to the output root.
	OutPath   string
	Permalink string
	Special   bool
	Doc       *markdown.Document
	Date      time.Time
	Updated   time.Time

	hash  string
	fresh bool
}

// NewPage evaluates shortcodes, renders the markdown and resolves the page's
// location and dates.
func NewPage(oc *Context, e discovery.Entry) (*Page, error) {
	evaluated, err := shortcode.Evaluate(oc.Templates, string(e.Content))
	if err != nil {
		return nil, derrors.Parse(e.Path, err)
	}
	doc, err := oc.Markdown.Render([]byte(evaluated))
	if err != nil {
		return nil, derrors.Parse(e.Path, err)
	}

	fm := doc.Frontmatter
	out := PagePath(e.Rel, fm.Title, fm.Slug)
	p := &Page{
		Source:    e.Path,
		OutPath:   out,
		Permalink: Permalink(oc.Config.URL, out),
		Special:   oc.Config.IsSpecial(e.Path),
		Doc:       doc,
		hash:      e.Hash,
		fresh:     e.Fresh,
	}
	p.resolveDates(oc)
	return p, nil
}

// PagePath maps a source path relative to the content root to its output
// file. index.md becomes index.html in place; any other page becomes
// <slug>/index.html, where the slug defaults to the title with spaces
// replaced by dashes. The first directory below the root is dropped.
func PagePath(rel, title, slug string) string {
	dir := path.Dir(rel)
	if _, rest, ok := strings.Cut(dir, "/"); ok {
		dir = rest
	} else {
		dir = ""
	}

	name := path.Base(rel)
	if name == "index.md" {
		return path.Join(dir, "index.html")
	}
	if slug == "" {
		slug = strings.ReplaceAll(title, " ", "-")
	}
	if slug == "" {
		slug = strings.TrimSuffix(name, path.Ext(name))
	}
	return path.Join(dir, slug, "index.html")
}

// Permalink is baseURL followed by the directory of out, with a trailing slash.
func Permalink(baseURL, out string) string {
	dir := path.Dir(out)
	if dir == "." {
		return baseURL
	}
	return baseURL + dir + "/"
}

func (p *Page) resolveDates(oc *Context) {
	fm := p.Doc.Frontmatter
	prev, indexed := oc.post(p.Source)

	switch {
	case fm.Date != nil:
		p.Date = *fm.Date
	case indexed:
		p.Date = prev.Date
	default:
		p.Date = oc.Now
	}

	switch {
	case fm.Updated != nil:
		p.Updated = *fm.Updated
	default:
		p.Updated = oc.Now
		if oc.Dates != nil {
			if t, ok := oc.Dates.LastModified(p.Source); ok {
				p.Updated = t
			}
		}
	}
}

// Hidden reports whether the page must not be published: drafts and pages
// dated in the future are only visible in development.
func (p *Page) Hidden(development bool, now time.Time) bool {
	if development {
		return false
	}
	return p.Doc.Frontmatter.Draft || p.Date.After(now)
}

// Post returns the index row for the page.
func (p *Page) Post() storage.Post {
	fm := p.Doc.Frontmatter
	return storage.Post{
		Path:      p.Source,
		Permalink: p.Permalink,
		Title:     fm.Title,
		Tags:      fm.Tags,
		Series:    fm.SeriesName(),
		Date:      p.Date,
		Updated:   p.Updated,
		Summary:   p.Doc.Summary,
		Hash:      p.hash,
		Fresh:     p.fresh,
	}
}

// Template returns the template the page renders with.
func (p *Page) Template() string {
	if t := p.Doc.Frontmatter.Template; t != "" {
		return t
	}
	return templates.DefaultPageTemplate
}

func (p *Page) data(oc *Context) map[string]any {
	fm := p.Doc.Frontmatter
	fields := fm.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	// #nosec G203 -- markup is rendered from the site's own sources
	markup := template.HTML(p.Doc.Content)
	return map[string]any{
		"title":       fm.Title,
		"tags":        fm.Tags,
		"slug":        fm.Slug,
		"series":      fm.Series,
		"date":        p.Date,
		"updated":     p.Updated,
		"toc":         p.Doc.TOC,
		"markup":      markup,
		"body":        markup,
		"summary":     template.HTML(p.Doc.Summary), // #nosec G203
		"description": fm.Description,
		"permalink":   p.Permalink,
		"url":         oc.Config.URL,
		"development": oc.Config.Development,
		"frontmatter": fields,
		"posts":       oc.Posts(),
		"index_pages": oc.Config.SpecialPages,
	}
}

// Write renders the page template and writes the (optionally minified) HTML.
func (p *Page) Write(_ context.Context, oc *Context) error {
	name := p.Template()
	html, err := oc.Templates.Render(name, p.data(oc))
	if err != nil {
		return derrors.Render(p.Source, name, err)
	}

	out := []byte(html)
	if oc.Minifier != nil {
		if out, err = oc.Minifier.HTML(out); err != nil {
			return derrors.Render(p.Source, name, err)
		}
	}

	if err := writeFile(oc.Dir, p.OutPath, out); err != nil {
		return err
	}
	slog.Debug("Wrote page", logfields.Path(p.Source), logfields.Output(p.OutPath), logfields.Template(name))
	return nil
}

func (p *Page) Path() string { return p.Source }
func (p *Page) Hash() string { return p.hash }
func (p *Page) Fresh() bool  { return p.fresh }
