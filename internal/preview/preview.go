// Package preview runs the development loop: an HTTP server over the output
// tree with live reload, a filesystem watcher and an optional rebuild schedule.
package preview

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

// Options configures Run.
type Options struct {
	Listen     string
	Root       string
	OutputPath string
	// Schedule enables periodic rebuilds when positive.
	Schedule time.Duration
	Debounce time.Duration
	Recorder metrics.Recorder
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

// Run serves the output tree and rebuilds on changes until ctx is canceled.
// The caller is expected to have run the initial build.
func Run(ctx context.Context, b Builder, opts Options) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	hub := NewLiveReloadHub()
	rebuilder := NewRebuilder(b, opts.Recorder, opts.Debounce, hub.Broadcast)

	watcher, err := NewWatcher(opts.Root, rebuilder.Debounced)
	if err != nil {
		return err
	}

	var sched *Scheduler
	if opts.Schedule > 0 {
		sched, err = NewScheduler(opts.Schedule, rebuilder.Request)
		if err != nil {
			return err
		}
		sched.Start()
	}

	srv := &http.Server{
		Addr:              opts.Listen,
		Handler:           NewHandler(opts.OutputPath, hub, opts.Metrics),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return watcher.Run(gctx) })
	g.Go(func() error { return rebuilder.Run(gctx) })
	g.Go(func() error {
		slog.Info("Preview server listening", logfields.URL("http://"+opts.Listen))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down preview server")
		hub.Shutdown()
		if sched != nil {
			if err := sched.Stop(); err != nil {
				slog.Warn("Scheduler shutdown", logfields.Error(err))
			}
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
