package site

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/assets"
	"git.home.luguber.info/inful/sitebuilder/internal/discovery"
	"git.home.luguber.info/inful/sitebuilder/internal/index"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/notify"
	"git.home.luguber.info/inful/sitebuilder/internal/output"
	"git.home.luguber.info/inful/sitebuilder/internal/publish"
	"git.home.luguber.info/inful/sitebuilder/internal/storage"
	"git.home.luguber.info/inful/sitebuilder/internal/templates"
)

// Report summarizes one build.
type Report struct {
	StartedAt time.Time
	Duration  time.Duration
	// Entries is the number of New, Changed and Special entries discovered.
	Entries int
	Pages   int
	Assets  int
	Static  int
	// Hidden counts drafts and future pages left unpublished.
	Hidden       int
	PostInserts  int
	PostUpdates  int
	IndexedPosts int
}

// buildState carries everything the stages of one build share.
type buildState struct {
	report  *Report
	journal *discovery.Journal
	fps     *storage.Fingerprints
	posts   *storage.Posts
	stage   *publish.Stage
	oc      *output.Context

	entries []discovery.Entry
	regular []*output.Page
	special []*output.Page
	files   []output.Output

	published   []*output.Page
	specialURLs []string

	// priorPosts holds each saved path's row before this build touched it;
	// nil marks a path that had no row.
	priorPosts map[string]*storage.Post
}

type stageDef struct {
	name string
	fn   func(ctx context.Context, bs *buildState) error
}

// Build runs one incremental build and publishes the result. Fingerprints
// written for entries that were not published are rolled back, both on
// failure and for hidden pages.
func (s *Site) Build(ctx context.Context) (*Report, error) {
	start := s.now()
	report := &Report{StartedAt: start}

	err := s.build(ctx, report)
	report.Duration = time.Since(start)
	s.recorder.ObserveBuildDuration(report.Duration)

	switch {
	case err == nil:
		s.recorder.IncBuildOutcome(metrics.BuildOutcomeSuccess)
		slog.Info("Build complete",
			logfields.Count(report.Entries),
			slog.Int("pages", report.Pages),
			slog.Int("assets", report.Assets),
			slog.Int("static", report.Static),
			slog.Int("posts", report.IndexedPosts),
			logfields.Duration(report.Duration))
	case errors.Is(err, context.Canceled):
		s.recorder.IncBuildOutcome(metrics.BuildOutcomeCanceled)
	default:
		s.recorder.IncBuildOutcome(metrics.BuildOutcomeFailed)
	}

	ev := notify.NewBuildCompleted(start, report.Entries, report.Pages, err)
	if perr := s.publisher.Publish(context.WithoutCancel(ctx), ev); perr != nil {
		slog.Warn("Failed to publish build event", logfields.BuildID(ev.ID), logfields.Error(perr))
	}
	return report, err
}

func (s *Site) build(ctx context.Context, report *Report) (err error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer func() {
		_ = conn.Close()
	}()

	engine, err := templates.Load(filepath.Join(s.cfg.Root, templates.Dir))
	if err != nil {
		return err
	}

	stage, err := publish.NewStage(s.cfg.OutputPath)
	if err != nil {
		return err
	}

	bs := &buildState{
		report:  report,
		journal: discovery.NewJournal(),
		fps:     storage.NewFingerprints(conn),
		posts:   storage.NewPosts(conn),
		stage:   stage,
		oc: &output.Context{
			Config:    s.cfg,
			Dir:       stage.Dir,
			Templates: engine,
			Markdown:  s.markdown,
			Styles:    s.styles,
			Fonts:     assets.NewFontCache(s.fontHTTP),
			Minifier:  s.minifier,
			Dates:     s.dates,
			Now:       report.StartedAt,
		},
	}

	defer func() {
		if err == nil {
			return
		}
		if derr := stage.Discard(); derr != nil {
			slog.Warn("Failed to remove staging directory", logfields.Error(derr))
		}
		if rerr := bs.journal.RevertAll(context.WithoutCancel(ctx), bs.fps); rerr != nil {
			slog.Error("Failed to roll back fingerprints", logfields.Error(rerr))
		}
		if rerr := bs.revertPosts(context.WithoutCancel(ctx)); rerr != nil {
			slog.Error("Failed to roll back post index", logfields.Error(rerr))
		}
	}()

	return s.runStages(ctx, bs, []stageDef{
		{"discover", s.stageDiscover},
		{"render_pages", s.stageRenderPages},
		{"index_posts", s.stageIndexPosts},
		{"render_special", s.stageRenderSpecial},
		{"write_files", s.stageWriteFiles},
		{"artifacts", s.stageArtifacts},
		{"publish", s.stagePublish},
	})
}

// runStages executes stages in order, recording timing and stopping on the first error.
func (s *Site) runStages(ctx context.Context, bs *buildState, stages []stageDef) error {
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			s.recorder.IncStageResult(st.name, metrics.ResultCanceled)
			return err
		}

		t0 := time.Now()
		err := st.fn(ctx, bs)
		dur := time.Since(t0)
		s.recorder.ObserveStageDuration(st.name, dur)

		if err != nil {
			result := metrics.ResultFatal
			if errors.Is(err, context.Canceled) {
				result = metrics.ResultCanceled
			}
			s.recorder.IncStageResult(st.name, result)
			slog.Error("Build stage failed", logfields.Stage(st.name), logfields.Duration(dur), logfields.Error(err))
			return err
		}
		s.recorder.IncStageResult(st.name, metrics.ResultSuccess)
		slog.Debug("Build stage complete", logfields.Stage(st.name), logfields.Duration(dur))
	}
	return nil
}

func (s *Site) stageDiscover(ctx context.Context, bs *buildState) error {
	existing, err := bs.posts.All(ctx)
	if err != nil {
		return err
	}
	bs.oc.SetPosts(existing)

	d := discovery.NewDiscoverer(bs.fps, s.cfg.SpecialPages, bs.journal)
	bs.entries, err = d.Discover(ctx, s.cfg.Root)
	if err != nil {
		return err
	}
	bs.report.Entries = len(bs.entries)

	for _, e := range bs.entries {
		out, err := output.Dispatch(bs.oc, e)
		if err != nil {
			return err
		}
		if out == nil {
			continue
		}
		s.recorder.IncEntries(string(output.KindOf(out)), e.Class.String())

		switch o := out.(type) {
		case *output.Page:
			if o.Special {
				bs.special = append(bs.special, o)
			} else {
				bs.regular = append(bs.regular, o)
			}
		default:
			bs.files = append(bs.files, o)
		}
	}
	return nil
}

// writePages writes every visible page and reverts the fingerprints of the
// hidden ones so they are picked up again once published.
func (s *Site) writePages(ctx context.Context, bs *buildState, pages []*output.Page) ([]*output.Page, error) {
	var written []*output.Page
	for _, p := range pages {
		if p.Hidden(s.cfg.Development, bs.oc.Now) {
			if err := bs.journal.Revert(ctx, bs.fps, p.Source); err != nil {
				return nil, err
			}
			bs.report.Hidden++
			slog.Debug("Skipping unpublished page", logfields.Path(p.Source))
			continue
		}
		if err := p.Write(ctx, bs.oc); err != nil {
			return nil, err
		}
		written = append(written, p)
		bs.report.Pages++
	}
	return written, nil
}

func (s *Site) stageRenderPages(ctx context.Context, bs *buildState) error {
	written, err := s.writePages(ctx, bs, bs.regular)
	if err != nil {
		return err
	}
	bs.published = written
	return nil
}

func (s *Site) stageIndexPosts(ctx context.Context, bs *buildState) error {
	bs.priorPosts = make(map[string]*storage.Post, len(bs.published))
	for _, p := range bs.published {
		post := p.Post()
		prior, found, err := bs.posts.Get(ctx, post.Path)
		if err != nil {
			return err
		}
		if found {
			bs.priorPosts[post.Path] = &prior
		} else {
			bs.priorPosts[post.Path] = nil
		}

		op, err := bs.posts.Save(ctx, post)
		if err != nil {
			return err
		}
		s.recorder.IncPostWrite(string(op))
		if op == storage.OpInsert {
			bs.report.PostInserts++
		} else {
			bs.report.PostUpdates++
		}
	}

	all, err := bs.posts.All(ctx)
	if err != nil {
		return err
	}
	bs.oc.SetPosts(all)
	bs.report.IndexedPosts = len(all)
	s.recorder.SetIndexedPosts(len(all))
	return nil
}

// revertPosts restores the index rows saved by a build that did not publish.
func (bs *buildState) revertPosts(ctx context.Context) error {
	var errs []error
	for path, prior := range bs.priorPosts {
		if prior == nil {
			errs = append(errs, bs.posts.Delete(ctx, path))
			continue
		}
		if _, err := bs.posts.Save(ctx, *prior); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Site) stageRenderSpecial(ctx context.Context, bs *buildState) error {
	written, err := s.writePages(ctx, bs, bs.special)
	if err != nil {
		return err
	}
	for _, p := range written {
		bs.specialURLs = append(bs.specialURLs, p.Permalink)
	}
	return nil
}

func (s *Site) stageWriteFiles(ctx context.Context, bs *buildState) error {
	for _, f := range bs.files {
		if err := f.Write(ctx, bs.oc); err != nil {
			return err
		}
		switch output.KindOf(f) {
		case output.KindAsset:
			bs.report.Assets++
		default:
			bs.report.Static++
		}
	}
	return nil
}

func (s *Site) stageArtifacts(_ context.Context, bs *buildState) error {
	posts := bs.oc.Posts()

	atom, err := index.Atom(index.Feed{Title: s.feedTitle(), URL: s.cfg.URL, Updated: bs.oc.Now}, posts)
	if err != nil {
		return fmt.Errorf("generate atom feed: %w", err)
	}
	sitemap, err := index.Sitemap(posts, bs.specialURLs)
	if err != nil {
		return fmt.Errorf("generate sitemap: %w", err)
	}
	if bs.oc.Minifier != nil {
		if atom, err = bs.oc.Minifier.XML(atom); err != nil {
			return fmt.Errorf("minify atom feed: %w", err)
		}
		if sitemap, err = bs.oc.Minifier.XML(sitemap); err != nil {
			return fmt.Errorf("minify sitemap: %w", err)
		}
	}

	existing, err := index.ReadSearchIndex(filepath.Join(s.cfg.OutputPath, index.SearchFile))
	if err != nil {
		return err
	}
	items := make([]index.SearchItem, 0, len(bs.published))
	for _, p := range bs.published {
		post := p.Post()
		items = append(items, index.SearchItem{
			Path:      post.Path,
			Title:     post.Title,
			Permalink: post.Permalink,
			Tags:      post.Tags,
			Date:      post.Date,
			Summary:   post.Summary,
			Body:      index.PlainText(p.Doc.Content),
		})
	}
	search, err := index.EncodeSearchIndex(index.Merge(existing, items))
	if err != nil {
		return fmt.Errorf("encode search index: %w", err)
	}

	for name, data := range map[string][]byte{
		index.AtomFile:    atom,
		index.SitemapFile: sitemap,
		index.SearchFile:  search,
	} {
		if err := writeArtifact(bs.stage.Dir, name, data); err != nil {
			return err
		}
	}
	return nil
}

func (s *Site) stagePublish(_ context.Context, bs *buildState) error {
	if err := bs.stage.Commit(); err != nil {
		return err
	}
	slog.Info("Published site", logfields.Output(s.cfg.OutputPath))
	return nil
}
