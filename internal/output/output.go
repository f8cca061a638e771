// Package output turns discovered entries into files in the output tree.
// Page, Asset and StaticFile are the only implementations of Output.
package output

import (
	"context"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/assets"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/discovery"
	derrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/markdown"
	"git.home.luguber.info/inful/sitebuilder/internal/storage"
	"git.home.luguber.info/inful/sitebuilder/internal/templates"
)

// Kind names an Output implementation.
type Kind string

const (
	KindPage   Kind = "page"
	KindAsset  Kind = "asset"
	KindStatic Kind = "static"
)

// Top-level directories of the content root with special meaning.
const (
	AssetsDir = "assets"
	StaticDir = "static"
)

// Output is a source entry that knows how to write its artifact.
type Output interface {
	Write(ctx context.Context, oc *Context) error
	// Path is the source path the fingerprint is stored under.
	Path() string
	Hash() string
	Fresh() bool
}

// KindOf reports which implementation o is.
func KindOf(o Output) Kind {
	switch o.(type) {
	case *Page:
		return KindPage
	case *Asset:
		return KindAsset
	default:
		return KindStatic
	}
}

// DateSource supplies the last modification time of a source file.
type DateSource interface {
	LastModified(path string) (time.Time, bool)
}

// Context is the state shared by every output of one build.
type Context struct {
	Config *config.Config
	// Dir is the directory artifacts are written into, usually a staging
	// directory that is published once the build succeeds.
	Dir       string
	Templates *templates.Engine
	Markdown  *markdown.Renderer
	Styles    assets.StyleCompiler
	Fonts     *assets.FontCache
	// Minifier is nil when minification is disabled.
	Minifier *Minifier
	Dates    DateSource
	// Now is the build time.
	Now time.Time

	posts  []storage.Post
	byPath map[string]storage.Post
}

// SetPosts replaces the post index visible to templates.
func (oc *Context) SetPosts(posts []storage.Post) {
	oc.posts = posts
	oc.byPath = make(map[string]storage.Post, len(posts))
	for _, p := range posts {
		oc.byPath[p.Path] = p
	}
}

// Posts returns the post index, newest first.
func (oc *Context) Posts() []storage.Post {
	return oc.posts
}

func (oc *Context) post(path string) (storage.Post, bool) {
	p, ok := oc.byPath[path]
	return p, ok
}

// Dispatch constructs the Output for e, or returns nil when the entry produces
// no artifact (templates and unrecognised files at the content root).
func Dispatch(oc *Context, e discovery.Entry) (Output, error) {
	first, _, _ := strings.Cut(e.Rel, "/")
	switch {
	case first == AssetsDir && first != e.Rel:
		return NewAsset(e), nil
	case first == StaticDir && first != e.Rel:
		return NewStaticFile(e), nil
	case first == templates.Dir:
		return nil, nil
	case path.Ext(e.Rel) == ".md":
		return NewPage(oc, e)
	default:
		slog.Debug("Ignoring entry", slog.String("path", e.Path))
		return nil, nil
	}
}

func writeFile(dir, rel string, data []byte) error {
	dst := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return derrors.IO("create directory", filepath.Dir(dst), err)
	}
	// #nosec G306 -- the output tree is public
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return derrors.IO("write", dst, err)
	}
	return nil
}
