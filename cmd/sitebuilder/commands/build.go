package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	derrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/notify"
	"git.home.luguber.info/inful/sitebuilder/internal/preview"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
	"git.home.luguber.info/inful/sitebuilder/internal/storage"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Clean bool `help:"Delete the database and output tree before building"`
	Dev   bool `help:"Enable drafts and development defaults"`
	Watch bool `short:"w" help:"Build once, then watch, serve and live-reload"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(config.LoadOptions{Path: root.Config, Development: b.Dev})
	if err != nil {
		return err
	}
	closer, err := setupLogging(cfg, root.Verbose)
	if err != nil {
		return derrors.Wrap(err, derrors.CategoryConfig, derrors.SeverityFatal, "set up logging")
	}
	defer func() { _ = closer.Close() }()

	return RunBuild(ctx, cfg, *b)
}

// RunBuild builds cfg once and, in watch mode, keeps serving until ctx is done.
func RunBuild(ctx context.Context, cfg *config.Config, opts BuildCmd) error {
	slog.Info("Starting site build",
		logfields.Path(cfg.Root),
		logfields.Output(cfg.OutputPath),
		logfields.Development(cfg.Development))

	if opts.Clean {
		if err := site.Clean(cfg); err != nil {
			return derrors.IO("clean", cfg.OutputPath, err)
		}
	}

	db, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return derrors.Storage("open database "+cfg.Database, err)
	}
	defer func() { _ = db.Close() }()

	pub, err := notify.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		slog.Warn("Build events disabled", logfields.Error(err))
		pub = notify.Noop{}
	}
	defer func() { _ = pub.Close() }()

	siteOpts := []site.Option{site.WithPublisher(pub)}
	var (
		registry *prom.Registry
		recorder metrics.Recorder = metrics.NoopRecorder{}
	)
	if opts.Watch {
		registry = prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(registry)
		siteOpts = append(siteOpts, site.WithRecorder(recorder))
	}
	s := site.New(cfg, db, siteOpts...)

	report, err := s.Build(ctx)
	if !opts.Watch {
		if err != nil {
			return err
		}
		fmt.Printf("Built %d pages, %d assets, %d static files in %s\n",
			report.Pages, report.Assets, report.Static, report.Duration.Round(time.Millisecond))
		return nil
	}
	if err != nil {
		slog.Error("Initial build failed; watching for changes", logfields.Error(err))
	}

	return preview.Run(ctx, s, preview.Options{
		Listen:     cfg.Listen,
		Root:       cfg.Root,
		OutputPath: cfg.OutputPath,
		Schedule:   cfg.RebuildInterval(),
		Recorder:   recorder,
		Metrics:    metrics.HTTPHandler(registry),
	})
}
