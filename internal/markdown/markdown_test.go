package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_FrontmatterTOCAndBody(t *testing.T) {
	src := []byte(`---
title: "Hello"
tags: [go]
---
Intro paragraph.

## First Section

text

## Second *Section*

<div class="raw">kept</div>
`)

	doc, err := NewRenderer("monokai").Render(src)
	require.NoError(t, err)

	assert.Equal(t, "Hello", doc.Frontmatter.Title)
	assert.Equal(t, []string{"go"}, doc.Frontmatter.Tags)
	assert.Contains(t, doc.Content, `<h2 id="first-section">First Section</h2>`)
	assert.Contains(t, doc.Content, `<div class="raw">kept</div>`)
	assert.Equal(t, []Heading{
		{ID: "first-section", Text: "First Section"},
		{ID: "second-section", Text: "Second Section"},
	}, doc.TOC)
}

func TestRender_HighlightsCodeBlocks(t *testing.T) {
	src := []byte("```go\npackage main\n```\n")

	doc, err := NewRenderer("monokai").Render(src)
	require.NoError(t, err)
	assert.Contains(t, doc.Content, "<pre")
	assert.Contains(t, doc.Content, "package")
}

func TestRender_MalformedFrontmatter(t *testing.T) {
	_, err := NewRenderer("monokai").Render([]byte("---\ntitle: x\nno closing"))
	require.Error(t, err)
}

func TestTableOfContents_NoHeadings(t *testing.T) {
	toc, err := TableOfContents("<p>plain</p><h3>not listed</h3>")
	require.NoError(t, err)
	assert.Empty(t, toc)
}

func TestSummarize_ShortContentUnchanged(t *testing.T) {
	in := "<p>short</p>\n<p>also short</p>"

	out, err := Summarize(in, SummaryLength)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestSummarize_DropsElementsAfterLimit(t *testing.T) {
	long := strings.Repeat("a", 160)
	in := "<p>" + long + "</p>\n<p>second</p>\n<h2>third</h2>"

	out, err := Summarize(in, SummaryLength)
	require.NoError(t, err)
	assert.Contains(t, out, long)
	assert.NotContains(t, out, "second")
	assert.NotContains(t, out, "third")
}

func TestSummarize_TruncatesInsideNestedElements(t *testing.T) {
	long := strings.Repeat("b", 151)
	in := "<div><p>" + long + "</p><p>gone</p></div><p>gone too</p>"

	out, err := Summarize(in, SummaryLength)
	require.NoError(t, err)
	assert.Equal(t, "<div><p>"+long+"</p></div>", out)
}
