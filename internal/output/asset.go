package output

import (
	"context"
	"errors"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/assets"
	"git.home.luguber.info/inful/sitebuilder/internal/discovery"
	derrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// Asset is a stylesheet, script or other file under assets/. Stylesheets are
// compiled and scripts bundled; everything else is copied.
type Asset struct {
	Source  string
	OutPath string

	content []byte
	hash    string
	fresh   bool
}

// NewAsset maps e to assets/<subpath> in the output tree, renaming .scss to .css.
func NewAsset(e discovery.Entry) *Asset {
	out := e.Rel
	if path.Ext(out) == ".scss" {
		out = strings.TrimSuffix(out, ".scss") + ".css"
	}
	return &Asset{
		Source:  e.Path,
		OutPath: out,
		content: e.Content,
		hash:    e.Hash,
		fresh:   e.Fresh,
	}
}

func (a *Asset) process(ctx context.Context, oc *Context) ([]byte, error) {
	src := filepath.FromSlash(a.Source)
	switch path.Ext(a.Source) {
	case ".scss":
		return oc.Styles.Compile(ctx, src, a.content)
	case ".js":
		return assets.BundleJS(src)
	case ".svg":
		if oc.Fonts == nil {
			return a.content, nil
		}
		return assets.EmbedFonts(ctx, a.content, oc.Fonts)
	default:
		return a.content, nil
	}
}

// Write processes the asset and writes the result.
func (a *Asset) Write(ctx context.Context, oc *Context) error {
	out, err := a.process(ctx, oc)
	if err != nil {
		var be *derrors.BuildError
		if errors.As(err, &be) {
			return err
		}
		return derrors.Render(a.Source, "", err)
	}
	if err := writeFile(oc.Dir, a.OutPath, out); err != nil {
		return err
	}
	slog.Debug("Wrote asset", logfields.Path(a.Source), logfields.Output(a.OutPath))
	return nil
}

func (a *Asset) Path() string { return a.Source }
func (a *Asset) Hash() string { return a.hash }
func (a *Asset) Fresh() bool  { return a.fresh }
