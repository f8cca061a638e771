// Package markdown turns page sources into a Document: rendered HTML, the
// decoded frontmatter, a table of contents and a truncated summary.
package markdown

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"git.home.luguber.info/inful/sitebuilder/internal/frontmatter"
)

// SummaryLength is the number of text characters after which the summary is cut.
const SummaryLength = 150

// Heading is one table of contents entry.
type Heading struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Document is a rendered markdown source.
type Document struct {
	Frontmatter *frontmatter.Frontmatter
	Content     string
	TOC         []Heading
	Summary     string
}

// Renderer converts markdown to HTML with syntax highlighting.
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer creates a renderer highlighting code blocks with the named
// chroma style.
func NewRenderer(theme string) *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
			goldmark.WithExtensions(
				extension.GFM,
				extension.Footnote,
				highlighting.NewHighlighting(
					highlighting.WithStyle(theme),
				),
			),
			goldmark.WithRendererOptions(
				html.WithUnsafe(),
			),
		),
	}
}

// Render parses frontmatter and converts the body of src.
func (r *Renderer) Render(src []byte) (*Document, error) {
	fm, body, err := frontmatter.Parse(src)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := r.md.Convert(body, &buf); err != nil {
		return nil, fmt.Errorf("convert markdown: %w", err)
	}
	content := buf.String()

	toc, err := TableOfContents(content)
	if err != nil {
		return nil, err
	}
	summary, err := Summarize(content, SummaryLength)
	if err != nil {
		return nil, err
	}

	return &Document{
		Frontmatter: fm,
		Content:     content,
		TOC:         toc,
		Summary:     summary,
	}, nil
}
