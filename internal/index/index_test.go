package index

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/storage"
)

var (
	day1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	day2 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
)

func samplePosts() []storage.Post {
	return []storage.Post{
		{Path: "blog/posts/b.md", Permalink: "http://example.com/b/", Title: "B", Date: day2, Updated: day2, Summary: "<p>b</p>"},
		{Path: "blog/posts/a.md", Permalink: "http://example.com/a/", Title: "A", Date: day1, Updated: day1, Summary: "<p>a</p>"},
	}
}

func TestAtom(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	out, err := Atom(Feed{Title: "example.com", URL: "http://example.com/", Updated: now}, samplePosts())
	require.NoError(t, err)

	s := string(out)
	assert.Contains(t, s, "<feed")
	assert.Equal(t, 2, strings.Count(s, "<entry>"))
	assert.Contains(t, s, "<updated>2024-06-01T00:00:00Z</updated>")
	assert.Contains(t, s, EntryID("http://example.com/a/"))
	assert.Contains(t, s, `href="http://example.com/b/"`)
}

func TestEntryID_Stable(t *testing.T) {
	id := EntryID("http://example.com/a/")
	assert.True(t, strings.HasPrefix(id, "urn:uuid:"))
	assert.Equal(t, id, EntryID("http://example.com/a/"))
	assert.NotEqual(t, id, EntryID("http://example.com/b/"))
}

func TestSitemap(t *testing.T) {
	out, err := Sitemap(samplePosts(), []string{"http://example.com/"})
	require.NoError(t, err)

	s := string(out)
	assert.True(t, strings.HasPrefix(s, "<?xml"))
	assert.Contains(t, s, `xmlns="http://www.sitemaps.org/schemas/sitemap/0.9"`)
	assert.Equal(t, 3, strings.Count(s, "<url>"))
	assert.Contains(t, s, "<lastmod>2024-01-02T00:00:00Z</lastmod>")
	assert.Contains(t, s, "<loc>http://example.com/</loc>")
}

func TestMerge(t *testing.T) {
	existing := []SearchItem{
		{Path: "blog/posts/a.md", Title: "Old A"},
		{Path: "blog/posts/b.md", Title: "B"},
	}
	built := []SearchItem{
		{Path: "blog/posts/a.md", Title: "New A"},
		{Path: "blog/posts/c.md", Title: "C"},
	}

	merged := Merge(existing, built)
	require.Len(t, merged, 3)
	assert.Equal(t, "New A", merged[0].Title)
	assert.Equal(t, "B", merged[1].Title)
	assert.Equal(t, "C", merged[2].Title)
}

func TestSearchIndex_ReadMissingAndRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), SearchFile)

	items, err := ReadSearchIndex(path)
	require.NoError(t, err)
	assert.Empty(t, items)

	b, err := EncodeSearchIndex(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))

	b, err = EncodeSearchIndex([]SearchItem{{Path: "p", Title: "T", Tags: []string{"go"}, Date: day1}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))

	items, err = ReadSearchIndex(path)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "T", items[0].Title)
	assert.True(t, items[0].Date.Equal(day1))
}

func TestReadSearchIndex_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), SearchFile)
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	_, err := ReadSearchIndex(path)
	require.Error(t, err)
	assert.True(t, derrors.IsCategory(err, derrors.CategoryParse))
}

func TestPlainText(t *testing.T) {
	got := PlainText("<h2 id=\"x\">Title</h2>\n<p>Fish &amp; <em>chips</em></p><script>alert(1)</script>")
	assert.Equal(t, "Title Fish & chips", got)
}
