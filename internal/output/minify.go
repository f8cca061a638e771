package output

import (
	"regexp"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/svg"
	"github.com/tdewolff/minify/v2/xml"
)

// Minifier compresses rendered HTML, including inline styles and scripts,
// and the generated XML artifacts.
type Minifier struct {
	m *minify.M
}

// NewMinifier returns a minifier that keeps document and end tags.
func NewMinifier() *Minifier {
	m := minify.New()
	m.Add("text/html", &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepQuotes:       true,
	})
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)
	m.AddFuncRegexp(regexp.MustCompile(`^(application|text)/(x-)?(java|ecma)script$`), js.Minify)
	m.AddFuncRegexp(regexp.MustCompile(`[/+]xml$`), xml.Minify)
	return &Minifier{m: m}
}

// HTML minifies an HTML document.
func (m *Minifier) HTML(b []byte) ([]byte, error) {
	return m.m.Bytes("text/html", b)
}

// XML minifies an XML document such as a feed or sitemap.
func (m *Minifier) XML(b []byte) ([]byte, error) {
	return m.m.Bytes("application/xml", b)
}
