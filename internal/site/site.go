// Package site runs incremental builds: discovery, rendering, post indexing,
// artifact generation and publishing of the output tree.
package site

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"

	"git.home.luguber.info/inful/sitebuilder/internal/assets"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/gitinfo"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/markdown"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/notify"
	"git.home.luguber.info/inful/sitebuilder/internal/output"
	"git.home.luguber.info/inful/sitebuilder/internal/publish"
)

// Site builds one configured site. Builds must not overlap; the development
// loop serializes them.
type Site struct {
	cfg       *config.Config
	db        *sqlx.DB
	markdown  *markdown.Renderer
	styles    assets.StyleCompiler
	dates     output.DateSource
	minifier  *output.Minifier
	fontHTTP  *http.Client
	recorder  metrics.Recorder
	publisher notify.Publisher
	now       func() time.Time
}

// Option configures a Site.
type Option func(*Site)

// WithRecorder installs a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Site) { s.recorder = r }
}

// WithPublisher installs a build event publisher.
func WithPublisher(p notify.Publisher) Option {
	return func(s *Site) { s.publisher = p }
}

// WithStyleCompiler replaces the sass command line compiler.
func WithStyleCompiler(c assets.StyleCompiler) Option {
	return func(s *Site) { s.styles = c }
}

// WithDateSource replaces the git history lookup for updated dates.
func WithDateSource(d output.DateSource) Option {
	return func(s *Site) { s.dates = d }
}

// WithFontClient sets the HTTP client used to download fonts for SVG assets.
func WithFontClient(c *http.Client) Option {
	return func(s *Site) { s.fontHTTP = c }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Site) { s.now = now }
}

// New creates a site building cfg with state kept in db.
func New(cfg *config.Config, db *sqlx.DB, opts ...Option) *Site {
	s := &Site{
		cfg:       cfg,
		db:        db,
		markdown:  markdown.NewRenderer(cfg.Theme),
		styles:    assets.NewSassCompiler(cfg.SassBinary),
		recorder:  metrics.NoopRecorder{},
		publisher: notify.Noop{},
		now:       time.Now,
	}
	if cfg.Minify {
		s.minifier = output.NewMinifier()
	}
	if cfg.GitInfo {
		if repo, err := gitinfo.Open(cfg.Root); err == nil {
			s.dates = repo
		} else {
			slog.Debug("Git dates unavailable", logfields.Path(cfg.Root), logfields.Error(err))
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the configuration the site builds with.
func (s *Site) Config() *config.Config {
	return s.cfg
}

// feedTitle is the host of the site URL.
func (s *Site) feedTitle() string {
	u, err := url.Parse(s.cfg.URL)
	if err != nil || u.Host == "" {
		return s.cfg.URL
	}
	return u.Host
}

// Clean removes the database (with its WAL files) and the published output.
func Clean(cfg *config.Config) error {
	for _, suffix := range []string{"", "-wal", "-shm"} {
		path := cfg.Database + suffix
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	if err := publish.Clean(cfg.OutputPath); err != nil {
		return err
	}
	slog.Info("Cleaned previous build",
		slog.String("database", filepath.Clean(cfg.Database)),
		logfields.Output(cfg.OutputPath))
	return nil
}
