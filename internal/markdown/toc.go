package markdown

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TableOfContents lists the h2 headings of an HTML fragment in document order.
func TableOfContents(content string) ([]Heading, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse rendered html: %w", err)
	}

	var toc []Heading
	doc.Find("h2").Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("id")
		toc = append(toc, Heading{ID: id, Text: strings.TrimSpace(s.Text())})
	})
	return toc, nil
}
