package index

import (
	"encoding/json"
	"errors"
	"html"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	derrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
)

var strictPolicy = bluemonday.StrictPolicy()

// SearchItem is one page of the search index.
type SearchItem struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Permalink string    `json:"permalink"`
	Tags      []string  `json:"tags"`
	Date      time.Time `json:"date"`
	Summary   string    `json:"summary"`
	Body      string    `json:"body"`
}

// PlainText strips markup from rendered HTML and collapses whitespace.
func PlainText(content string) string {
	return strings.Join(strings.Fields(html.UnescapeString(strictPolicy.Sanitize(content))), " ")
}

// ReadSearchIndex loads a previously published index. A missing file is an
// empty index.
func ReadSearchIndex(path string) ([]SearchItem, error) {
	// #nosec G304 -- path is the configured output directory
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, derrors.IO("read", path, err)
	}

	var items []SearchItem
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, derrors.Parse(path, err)
	}
	return items, nil
}

// Merge replaces items of existing that share a path with one in built and
// appends the rest. Pages absent from built are kept. The result is ordered
// by path.
func Merge(existing, built []SearchItem) []SearchItem {
	byPath := make(map[string]SearchItem, len(existing)+len(built))
	for _, it := range existing {
		byPath[it.Path] = it
	}
	for _, it := range built {
		byPath[it.Path] = it
	}

	out := make([]SearchItem, 0, len(byPath))
	for _, it := range byPath {
		out = append(out, it)
	}
	slices.SortFunc(out, func(a, b SearchItem) int {
		return strings.Compare(a.Path, b.Path)
	})
	return out
}

// EncodeSearchIndex serializes items for publishing.
func EncodeSearchIndex(items []SearchItem) ([]byte, error) {
	if items == nil {
		items = []SearchItem{}
	}
	return json.Marshal(items)
}
