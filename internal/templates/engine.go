// Package templates loads the site's html/template set and renders named
// templates for pages and shortcodes.
package templates

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	derrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
)

// Dir is the directory below the content root holding templates.
const Dir = "templates"

// DefaultPageTemplate renders pages whose frontmatter names no template.
const DefaultPageTemplate = "post.html"

// Engine renders templates by name. Names are slash-separated paths relative
// to the template directory, e.g. "post.html" or "shortcodes/note.html".
type Engine struct {
	set *template.Template
}

// New returns an engine with no templates loaded.
func New() *Engine {
	return &Engine{set: template.New("").Funcs(Funcs())}
}

// Load parses every *.html file under dir. A missing dir yields an empty engine.
func Load(dir string) (*Engine, error) {
	e := New()
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir && os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".html") {
			return nil
		}

		// #nosec G304 -- path comes from walking the template directory
		src, err := os.ReadFile(path)
		if err != nil {
			return derrors.IO("read template", path, err)
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if err := e.Add(filepath.ToSlash(rel), string(src)); err != nil {
			return derrors.Parse(path, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Add parses src as the template called name.
func (e *Engine) Add(name, src string) error {
	if _, err := e.set.New(name).Parse(src); err != nil {
		return fmt.Errorf("parse template %s: %w", name, err)
	}
	return nil
}

// Has reports whether a template called name is loaded.
func (e *Engine) Has(name string) bool {
	return e.set.Lookup(name) != nil
}

// Render executes the named template with data.
func (e *Engine) Render(name string, data map[string]any) (string, error) {
	tmpl := e.set.Lookup(name)
	if tmpl == nil {
		return "", fmt.Errorf("%w: %s", derrors.ErrTemplateNotFound, name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template %s: %w", name, err)
	}
	return buf.String(), nil
}
