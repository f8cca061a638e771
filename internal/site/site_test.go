package site

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	derrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/index"
	"git.home.luguber.info/inful/sitebuilder/internal/notify"
	"git.home.luguber.info/inful/sitebuilder/internal/storage"
)

var buildTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type upperStyles struct{}

func (upperStyles) Compile(_ context.Context, _ string, src []byte) ([]byte, error) {
	return src, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.BuildCompleted
}

func (p *recordingPublisher) Publish(_ context.Context, ev notify.BuildCompleted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type fixture struct {
	cfg       *config.Config
	db        *sqlx.DB
	site      *Site
	publisher *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Defaults()
	cfg.URL = "http://example.com/"
	cfg.Root = filepath.Join(dir, "blog")
	cfg.OutputPath = filepath.Join(dir, "public")
	cfg.Database = filepath.Join(dir, "blog.db")
	cfg.GitInfo = false
	cfg.Minify = false

	db, err := storage.Open(t.Context(), cfg.Database)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{cfg: &cfg, db: db, publisher: &recordingPublisher{}}
	f.site = New(&cfg, db,
		WithStyleCompiler(upperStyles{}),
		WithPublisher(f.publisher),
		WithClock(func() time.Time { return buildTime }),
	)

	f.write(t, "templates/post.html", `<h1>{{.title}}</h1>{{.markup}}`)
	f.write(t, "templates/home.html", `<ul>{{range .posts}}<li>{{.Title}}</li>{{end}}</ul>`)
	return f
}

func (f *fixture) write(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(f.cfg.Root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func (f *fixture) read(t *testing.T, rel string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(f.cfg.OutputPath, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(b)
}

func (f *fixture) key(rel string) string {
	return filepath.ToSlash(filepath.Join(f.cfg.Root, filepath.FromSlash(rel)))
}

func (f *fixture) fingerprint(t *testing.T, rel string) (string, bool) {
	t.Helper()
	hash, found, err := storage.NewFingerprints(f.db).Lookup(t.Context(), f.key(rel))
	require.NoError(t, err)
	return hash, found
}

func TestBuild_IncrementalScenario(t *testing.T) {
	f := newFixture(t)
	f.write(t, "posts/a.md", "---\ntitle: \"Hello\"\n---\nFirst body\n")

	report, err := f.site.Build(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Pages)
	assert.Equal(t, 1, report.PostInserts)
	assert.Zero(t, report.PostUpdates)
	assert.Contains(t, f.read(t, "Hello/index.html"), "First body")

	_, found := f.fingerprint(t, "posts/a.md")
	assert.True(t, found)
	post, ok, err := storage.NewPosts(f.db).Get(t.Context(), f.key("posts/a.md"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "http://example.com/Hello/", post.Permalink)

	// Unchanged sources produce no writes.
	report, err = f.site.Build(t.Context())
	require.NoError(t, err)
	assert.Zero(t, report.Entries)
	assert.Zero(t, report.PostInserts+report.PostUpdates)

	// Editing the body updates the existing row.
	f.write(t, "posts/a.md", "---\ntitle: \"Hello\"\n---\nSecond body\n")
	report, err = f.site.Build(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Entries)
	assert.Equal(t, 1, report.PostUpdates)
	assert.Zero(t, report.PostInserts)
	assert.Contains(t, f.read(t, "Hello/index.html"), "Second body")

	require.Len(t, f.publisher.events, 3)
	assert.True(t, f.publisher.events[2].Success)
}

func TestBuild_SpecialPagesSeeSameBuildPosts(t *testing.T) {
	f := newFixture(t)
	f.write(t, "index.md", "---\ntitle: Home\ntemplate: home.html\n---\n")
	f.write(t, "posts/a.md", "---\ntitle: First\n---\n")

	_, err := f.site.Build(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "<ul><li>First</li></ul>", f.read(t, "index.html"))

	f.write(t, "posts/b.md", "---\ntitle: Second\ndate: 2024-05-01T00:00:00Z\n---\n")
	report, err := f.site.Build(t.Context())
	require.NoError(t, err)
	// index.md is unchanged but special, so it is rebuilt with the new post.
	assert.Equal(t, 2, report.Entries)
	assert.Equal(t, "<ul><li>First</li><li>Second</li></ul>", f.read(t, "index.html"))

	sitemap := f.read(t, index.SitemapFile)
	assert.Contains(t, sitemap, "<loc>http://example.com/</loc>")
	assert.Contains(t, sitemap, "<loc>http://example.com/Second/</loc>")
	assert.Contains(t, f.read(t, index.AtomFile), "First")
}

func TestBuild_SearchIndexKeepsUnchangedPages(t *testing.T) {
	f := newFixture(t)
	f.write(t, "posts/a.md", "---\ntitle: A\ntags: [go]\n---\nalpha <b>text</b>\n")
	_, err := f.site.Build(t.Context())
	require.NoError(t, err)

	f.write(t, "posts/b.md", "---\ntitle: B\n---\nbeta\n")
	_, err = f.site.Build(t.Context())
	require.NoError(t, err)

	var items []index.SearchItem
	require.NoError(t, json.Unmarshal([]byte(f.read(t, index.SearchFile)), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "A", items[0].Title)
	assert.Equal(t, []string{"go"}, items[0].Tags)
	assert.Equal(t, "alpha text", items[0].Body)
	assert.Equal(t, "B", items[1].Title)
}

func TestBuild_FailureRollsBackFingerprints(t *testing.T) {
	f := newFixture(t)
	f.write(t, "posts/a.md", "---\ntitle: A\n---\n")
	_, err := f.site.Build(t.Context())
	require.NoError(t, err)
	published := f.read(t, "A/index.html")

	f.write(t, "posts/a.md", "---\ntitle: A\n---\nchanged\n")
	f.write(t, "posts/bad.md", "---\ntitle: Bad\ntemplate: missing.html\n---\n")
	_, err = f.site.Build(t.Context())
	require.ErrorIs(t, err, derrors.ErrTemplateNotFound)

	_, found := f.fingerprint(t, "posts/bad.md")
	assert.False(t, found)
	hash, _ := f.fingerprint(t, "posts/a.md")
	assert.NotEqual(t, "", hash)
	assert.Equal(t, published, f.read(t, "A/index.html"))

	// The rolled back entries are picked up again.
	f.write(t, "posts/bad.md", "---\ntitle: Bad\n---\n")
	report, err := f.site.Build(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Pages)
	assert.Contains(t, f.read(t, "A/index.html"), "changed")

	last := f.publisher.events[len(f.publisher.events)-2]
	assert.False(t, last.Success)
	assert.NotEmpty(t, last.Error)
}

func TestBuild_FailureRollsBackPostIndex(t *testing.T) {
	f := newFixture(t)
	f.write(t, "posts/a.md", "---\ntitle: A\n---\nfirst\n")
	_, err := f.site.Build(t.Context())
	require.NoError(t, err)

	posts := storage.NewPosts(f.db)
	before, found, err := posts.Get(t.Context(), f.key("posts/a.md"))
	require.NoError(t, err)
	require.True(t, found)

	// Pages are indexed before special pages render, so this fails after index_posts.
	f.write(t, "posts/a.md", "---\ntitle: A\n---\nsecond\n")
	f.write(t, "posts/new.md", "---\ntitle: New\n---\n")
	f.write(t, "index.md", "---\ntitle: Home\ntemplate: missing.html\n---\n")
	_, err = f.site.Build(t.Context())
	require.ErrorIs(t, err, derrors.ErrTemplateNotFound)

	after, found, err := posts.Get(t.Context(), f.key("posts/a.md"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, before, after)
	_, found, err = posts.Get(t.Context(), f.key("posts/new.md"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.NotContains(t, f.read(t, index.AtomFile), "New")
}

func TestBuild_DraftsAndFuturePages(t *testing.T) {
	f := newFixture(t)
	f.write(t, "posts/draft.md", "---\ntitle: Draft\ndraft: true\n---\n")
	f.write(t, "posts/future.md", "---\ntitle: Future\ndate: 2099-01-01T00:00:00Z\n---\n")

	report, err := f.site.Build(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Hidden)
	assert.Zero(t, report.Pages)
	assert.NoFileExists(t, filepath.Join(f.cfg.OutputPath, "Draft", "index.html"))
	_, found := f.fingerprint(t, "posts/draft.md")
	assert.False(t, found)

	f.cfg.Development = true
	report, err = f.site.Build(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Pages)
	assert.FileExists(t, filepath.Join(f.cfg.OutputPath, "Draft", "index.html"))
}

func TestBuild_AssetsAndStatic(t *testing.T) {
	f := newFixture(t)
	f.write(t, "assets/css/site.scss", "a{b:c}")
	f.write(t, "static/robots.txt", "User-agent: *")

	report, err := f.site.Build(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Assets)
	assert.Equal(t, 1, report.Static)
	assert.Equal(t, "a{b:c}", f.read(t, "assets/css/site.css"))
	assert.Equal(t, "User-agent: *", f.read(t, "static/robots.txt"))
}

func TestBuild_EmptyRootStillWritesArtifacts(t *testing.T) {
	f := newFixture(t)
	_, err := f.site.Build(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "[]", f.read(t, index.SearchFile))
	assert.FileExists(t, filepath.Join(f.cfg.OutputPath, index.AtomFile))
}

func TestBuild_Canceled(t *testing.T) {
	f := newFixture(t)
	f.write(t, "posts/a.md", "---\ntitle: A\n---\n")

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := f.site.Build(ctx)
	require.ErrorIs(t, err, context.Canceled)
	_, found := f.fingerprint(t, "posts/a.md")
	assert.False(t, found)
}

func TestClean(t *testing.T) {
	f := newFixture(t)
	f.write(t, "posts/a.md", "---\ntitle: A\n---\n")
	_, err := f.site.Build(t.Context())
	require.NoError(t, err)
	require.NoError(t, f.db.Close())

	require.NoError(t, Clean(f.cfg))
	assert.NoFileExists(t, f.cfg.Database)
	assert.NoDirExists(t, f.cfg.OutputPath)
	require.NoError(t, Clean(f.cfg))
}
