package output

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/discovery"
	derrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/markdown"
	"git.home.luguber.info/inful/sitebuilder/internal/storage"
	"git.home.luguber.info/inful/sitebuilder/internal/templates"
)

var buildTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type stubStyles struct{}

func (stubStyles) Compile(_ context.Context, _ string, src []byte) ([]byte, error) {
	return append([]byte("/*css*/"), src...), nil
}

type stubDates map[string]time.Time

func (d stubDates) LastModified(path string) (time.Time, bool) {
	t, ok := d[path]
	return t, ok
}

func newContext(t *testing.T) *Context {
	t.Helper()
	cfg := config.Defaults()
	cfg.URL = "http://example.com/"

	engine := templates.New()
	require.NoError(t, engine.Add("post.html", `<h1>{{.title}}</h1>{{.markup}}<p>{{len .posts}}</p>`))
	require.NoError(t, engine.Add("shortcodes/note.html", `<aside class="{{.kind}}">{{.body}}</aside>`))

	oc := &Context{
		Config:    &cfg,
		Dir:       t.TempDir(),
		Templates: engine,
		Markdown:  markdown.NewRenderer(cfg.Theme),
		Styles:    stubStyles{},
		Now:       buildTime,
	}
	oc.SetPosts(nil)
	return oc
}

func entry(path, rel, content string, fresh bool) discovery.Entry {
	return discovery.Entry{
		Path:    path,
		Rel:     rel,
		Content: []byte(content),
		Hash:    discovery.Fingerprint([]byte(content)),
		Fresh:   fresh,
		Class:   discovery.New,
	}
}

func readOutput(t *testing.T, oc *Context, rel string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(oc.Dir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(b)
}

func TestPagePath(t *testing.T) {
	tests := []struct {
		name, rel, title, slug, want string
	}{
		{"title", "posts/a.md", "Hello", "", "Hello/index.html"},
		{"spaces", "posts/a.md", "Hello World", "", "Hello-World/index.html"},
		{"slug wins", "posts/a.md", "Hello World", "hello", "hello/index.html"},
		{"nested", "posts/2024/a.md", "Hello", "", "2024/Hello/index.html"},
		{"root index", "index.md", "Home", "", "index.html"},
		{"section index", "posts/go/index.md", "Go", "", "go/index.html"},
		{"root page", "about.md", "About", "", "About/index.html"},
		{"untitled", "posts/notes.md", "", "", "notes/index.html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PagePath(tt.rel, tt.title, tt.slug))
		})
	}
}

func TestPermalink(t *testing.T) {
	assert.Equal(t, "http://example.com/hello/", Permalink("http://example.com/", "hello/index.html"))
	assert.Equal(t, "http://example.com/2024/hello/", Permalink("http://example.com/", "2024/hello/index.html"))
	assert.Equal(t, "http://example.com/", Permalink("http://example.com/", "index.html"))
}

func TestPage_RenderAndWrite(t *testing.T) {
	oc := newContext(t)
	oc.SetPosts([]storage.Post{{Path: "blog/posts/other.md"}})
	src := "---\ntitle: Hello\ntags: [go]\n---\nSome *text*\n\n{{! note(kind=\"tip\") !}}careful{{! end !}}\n"

	out, err := Dispatch(oc, entry("blog/posts/a.md", "posts/a.md", src, true))
	require.NoError(t, err)
	page, ok := out.(*Page)
	require.True(t, ok)
	assert.Equal(t, KindPage, KindOf(page))

	assert.Equal(t, "Hello/index.html", page.OutPath)
	assert.Equal(t, "http://example.com/Hello/", page.Permalink)
	assert.False(t, page.Special)
	assert.True(t, page.Fresh())
	assert.Equal(t, "blog/posts/a.md", page.Path())

	require.NoError(t, page.Write(t.Context(), oc))
	html := readOutput(t, oc, "Hello/index.html")
	assert.Contains(t, html, "<h1>Hello</h1>")
	assert.Contains(t, html, "<em>text</em>")
	assert.Contains(t, html, `<aside class="tip">careful</aside>`)
	assert.Contains(t, html, "<p>1</p>")

	post := page.Post()
	assert.Equal(t, "Hello", post.Title)
	assert.Equal(t, []string{"go"}, post.Tags)
	assert.Equal(t, page.Hash(), post.Hash)
	assert.True(t, post.Fresh)
}

func TestPage_SpecialAndTemplateOverride(t *testing.T) {
	oc := newContext(t)
	require.NoError(t, oc.Templates.Add("home.html", `home:{{.title}}`))

	out, err := Dispatch(oc, entry("blog/index.md", "index.md", "---\ntitle: Home\ntemplate: home.html\n---\n", false))
	require.NoError(t, err)
	page := out.(*Page)
	assert.True(t, page.Special)
	assert.Equal(t, "home.html", page.Template())
	assert.Equal(t, "http://example.com/", page.Permalink)

	require.NoError(t, page.Write(t.Context(), oc))
	assert.Equal(t, "home:Home", readOutput(t, oc, "index.html"))
}

func TestPage_UnknownTemplate(t *testing.T) {
	oc := newContext(t)
	out, err := Dispatch(oc, entry("blog/posts/a.md", "posts/a.md", "---\ntitle: A\ntemplate: nope.html\n---\n", true))
	require.NoError(t, err)

	err = out.Write(t.Context(), oc)
	require.ErrorIs(t, err, derrors.ErrTemplateNotFound)
	assert.True(t, derrors.IsCategory(err, derrors.CategoryRender))
}

func TestPage_MalformedShortcode(t *testing.T) {
	oc := newContext(t)
	_, err := Dispatch(oc, entry("blog/posts/a.md", "posts/a.md", "{{! note(kind=) !}}x{{! end !}}", true))
	require.Error(t, err)
	assert.True(t, derrors.IsCategory(err, derrors.CategoryParse))
}

func TestPage_Dates(t *testing.T) {
	written := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	committed := time.Date(2023, 3, 4, 0, 0, 0, 0, time.UTC)

	t.Run("frontmatter", func(t *testing.T) {
		oc := newContext(t)
		out, err := NewPage(oc, entry("blog/posts/a.md", "posts/a.md", "---\ntitle: A\ndate: 2023-01-02T00:00:00Z\nupdated: 2023-03-04T00:00:00Z\n---\n", true))
		require.NoError(t, err)
		assert.True(t, out.Date.Equal(written))
		assert.True(t, out.Updated.Equal(committed))
	})

	t.Run("index and git", func(t *testing.T) {
		oc := newContext(t)
		oc.SetPosts([]storage.Post{{Path: "blog/posts/a.md", Date: written}})
		oc.Dates = stubDates{"blog/posts/a.md": committed}
		out, err := NewPage(oc, entry("blog/posts/a.md", "posts/a.md", "---\ntitle: A\n---\n", false))
		require.NoError(t, err)
		assert.True(t, out.Date.Equal(written))
		assert.True(t, out.Updated.Equal(committed))
	})

	t.Run("build time", func(t *testing.T) {
		oc := newContext(t)
		out, err := NewPage(oc, entry("blog/posts/a.md", "posts/a.md", "---\ntitle: A\n---\n", true))
		require.NoError(t, err)
		assert.True(t, out.Date.Equal(buildTime))
		assert.True(t, out.Updated.Equal(buildTime))
	})
}

func TestPage_Hidden(t *testing.T) {
	oc := newContext(t)

	draft, err := NewPage(oc, entry("blog/posts/d.md", "posts/d.md", "---\ntitle: D\ndraft: true\n---\n", true))
	require.NoError(t, err)
	assert.True(t, draft.Hidden(false, buildTime))
	assert.False(t, draft.Hidden(true, buildTime))

	future, err := NewPage(oc, entry("blog/posts/f.md", "posts/f.md", "---\ntitle: F\ndate: 2099-01-01T00:00:00Z\n---\n", true))
	require.NoError(t, err)
	assert.True(t, future.Hidden(false, buildTime))

	published, err := NewPage(oc, entry("blog/posts/p.md", "posts/p.md", "---\ntitle: P\n---\n", true))
	require.NoError(t, err)
	assert.False(t, published.Hidden(false, buildTime))
}

func TestAsset(t *testing.T) {
	oc := newContext(t)

	scss, err := Dispatch(oc, entry("blog/assets/css/site.scss", "assets/css/site.scss", "a{b:c}", true))
	require.NoError(t, err)
	require.Equal(t, KindAsset, KindOf(scss))
	require.NoError(t, scss.Write(t.Context(), oc))
	assert.Equal(t, "/*css*/a{b:c}", readOutput(t, oc, "assets/css/site.css"))

	png, err := Dispatch(oc, entry("blog/assets/img/logo.png", "assets/img/logo.png", "\x89PNG", false))
	require.NoError(t, err)
	require.NoError(t, png.Write(t.Context(), oc))
	assert.Equal(t, "\x89PNG", readOutput(t, oc, "assets/img/logo.png"))
	assert.False(t, png.Fresh())

	svg, err := Dispatch(oc, entry("blog/assets/d.svg", "assets/d.svg", "<svg/>", true))
	require.NoError(t, err)
	require.NoError(t, svg.Write(t.Context(), oc))
	assert.Equal(t, "<svg/>", readOutput(t, oc, "assets/d.svg"))
}

func TestStaticFile(t *testing.T) {
	oc := newContext(t)
	out, err := Dispatch(oc, entry("blog/static/fonts/a.woff2", "static/fonts/a.woff2", "font", true))
	require.NoError(t, err)
	require.Equal(t, KindStatic, KindOf(out))
	require.NoError(t, out.Write(t.Context(), oc))
	assert.Equal(t, "font", readOutput(t, oc, "static/fonts/a.woff2"))
}

func TestDispatch_Ignored(t *testing.T) {
	oc := newContext(t)
	for _, e := range []discovery.Entry{
		entry("blog/templates/post.html", "templates/post.html", "x", true),
		entry("blog/notes.txt", "notes.txt", "x", true),
	} {
		out, err := Dispatch(oc, e)
		require.NoError(t, err)
		assert.Nil(t, out)
	}
}

func TestMinifier(t *testing.T) {
	m := NewMinifier()
	out, err := m.HTML([]byte("<html>\n  <body>\n    <p>  a  </p>\n  </body>\n</html>\n"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "<p>a</p>")
	assert.NotContains(t, string(out), "\n  ")

	xml, err := m.XML([]byte("<urlset>\n  <url>\n    <loc>x</loc>\n  </url>\n</urlset>"))
	require.NoError(t, err)
	assert.Contains(t, string(xml), "<loc>x</loc>")
	assert.NotContains(t, string(xml), "\n")
}
