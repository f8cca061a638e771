package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Summarize keeps the leading part of an HTML fragment: every element that
// starts after more than limit text characters have been seen is dropped.
func Summarize(content string, limit int) (string, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(content), body)
	if err != nil {
		return "", fmt.Errorf("parse rendered html: %w", err)
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}

	count := 0
	truncate(body, limit, &count)

	var buf bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("render summary: %w", err)
		}
	}
	return buf.String(), nil
}

func truncate(n *html.Node, limit int, count *int) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		switch c.Type {
		case html.TextNode:
			*count += len(c.Data)
		case html.ElementNode:
			if *count > limit {
				n.RemoveChild(c)
			} else {
				truncate(c, limit, count)
			}
		}
		c = next
	}
}
