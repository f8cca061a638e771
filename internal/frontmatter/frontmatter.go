// Package frontmatter splits YAML frontmatter from markdown sources and
// decodes it into the fields pages understand.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the document started with a YAML
// frontmatter delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("yaml frontmatter start delimiter found but closing delimiter is missing")

// Series places a page in a named, ordered group of posts.
type Series struct {
	Name string `yaml:"name" json:"name"`
	Part int    `yaml:"part" json:"part,omitempty"`
}

// UnmarshalYAML accepts both `series: name` and `series: {name: ..., part: ...}`.
func (s *Series) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		s.Name = node.Value
		return nil
	}
	type plain Series
	return node.Decode((*plain)(s))
}

// Frontmatter holds the page metadata recognised by the build.
type Frontmatter struct {
	Title       string     `yaml:"title" json:"title"`
	Tags        []string   `yaml:"tags" json:"tags"`
	Template    string     `yaml:"template" json:"template,omitempty"`
	Series      *Series    `yaml:"series" json:"series,omitempty"`
	Slug        string     `yaml:"slug" json:"slug,omitempty"`
	Draft       bool       `yaml:"draft" json:"draft"`
	Date        *time.Time `yaml:"date" json:"date,omitempty"`
	Updated     *time.Time `yaml:"updated" json:"updated,omitempty"`
	Description string     `yaml:"description" json:"description,omitempty"`

	// Fields is every key of the frontmatter, recognised or not.
	Fields map[string]any `yaml:"-" json:"fields,omitempty"`
}

// SeriesName returns the series name or "" when the page is not in a series.
func (f *Frontmatter) SeriesName() string {
	if f.Series == nil {
		return ""
	}
	return f.Series.Name
}

// Split separates YAML frontmatter (`---` delimited) from the Markdown body.
//
// If the document does not start with a YAML frontmatter delimiter, had is false
// and body is the full input. CRLF documents are handled.
func Split(content []byte) (frontmatter []byte, body []byte, had bool, err error) {
	nl := detectNewline(content)
	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, false, nil
	}

	start := len(open)
	if bytes.HasPrefix(content[start:], open) {
		return []byte{}, content[start+len(open):], true, nil
	}

	closeSeq := []byte(nl + "---" + nl)
	idx := bytes.Index(content[start:], closeSeq)
	if idx < 0 {
		// closing delimiter at end of file without trailing newline
		tail := []byte(nl + "---")
		if bytes.HasSuffix(content, tail) {
			return content[start : len(content)-len(tail)+len(nl)], []byte{}, true, nil
		}
		return nil, nil, false, ErrMissingClosingDelimiter
	}

	end := start + idx + len(nl)
	return content[start:end], content[start+idx+len(closeSeq):], true, nil
}

// Parse splits content and decodes its frontmatter.
func Parse(content []byte) (*Frontmatter, []byte, error) {
	raw, body, _, err := Split(content)
	if err != nil {
		return nil, nil, err
	}

	fm := &Frontmatter{Fields: map[string]any{}}
	if len(bytes.TrimSpace(raw)) == 0 {
		return fm, body, nil
	}
	if err := yaml.Unmarshal(raw, fm); err != nil {
		return nil, nil, fmt.Errorf("decode frontmatter: %w", err)
	}
	if err := yaml.Unmarshal(raw, &fm.Fields); err != nil {
		return nil, nil, fmt.Errorf("decode frontmatter: %w", err)
	}
	if fm.Fields == nil {
		fm.Fields = map[string]any{}
	}
	return fm, body, nil
}

func detectNewline(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
