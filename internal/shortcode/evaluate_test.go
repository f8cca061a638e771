package shortcode

import (
	"fmt"
	"strings"
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/templates"
)

type stubRenderer struct {
	templates map[string]string
	calls     []string
}

func (s *stubRenderer) Render(name string, data map[string]any) (string, error) {
	s.calls = append(s.calls, name)
	src, ok := s.templates[name]
	if !ok {
		return "", fmt.Errorf("template %s not found", name)
	}
	tmpl, err := template.New(name).Parse(src)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

const noteTemplate = "<div class=\"blog-note\">\n<h1>{{.title}}</h1>\n{{ .body }}\n</div>"

func TestEvaluateShortcode_Arguments(t *testing.T) {
	r := &stubRenderer{templates: map[string]string{"shortcodes/note.html": noteTemplate}}
	items, err := Parse("{{! note(title=\"testing\") !}}\n        this is a note!\n        {{! end !}}")
	require.NoError(t, err)

	out, err := EvaluateShortcode(r, items[0].(Shortcode))
	require.NoError(t, err)
	assert.Equal(t, "<div class=\"blog-note\">\n<h1>testing</h1>\nthis is a note!\n        \n</div>", out)
}

func TestEvaluate_ReplacesShortcodesInOrder(t *testing.T) {
	r := &stubRenderer{templates: map[string]string{"shortcodes/note.html": noteTemplate}}
	input := "# Hello World\n\nthis is a thing\n\n**hi**\n\n{{! note(title=\"testing\") !}}\nthis is a note!\n{{! end !}}\n\n**more**"

	out, err := Evaluate(r, input)
	require.NoError(t, err)
	assert.Equal(t, "# Hello World\n\nthis is a thing\n\n**hi**\n\n<div class=\"blog-note\">\n<h1>testing</h1>\nthis is a note!\n\n</div>\n\n**more**", out)
	assert.Equal(t, []string{"shortcodes/note.html"}, r.calls)
}

func TestEvaluate_PassesTextThrough(t *testing.T) {
	r := &stubRenderer{}

	out, err := Evaluate(r, "no shortcodes here")
	require.NoError(t, err)
	assert.Equal(t, "no shortcodes here", out)
	assert.Empty(t, r.calls)
}

func TestEvaluate_UnknownTemplate(t *testing.T) {
	_, err := Evaluate(&stubRenderer{}, "{{! missing !}}x{{! end !}}")
	require.Error(t, err)
}

func TestEvaluate_ListArgument(t *testing.T) {
	r := &stubRenderer{templates: map[string]string{
		"shortcodes/tags.html": "{{range .items}}[{{.}}]{{end}}",
	}}

	out, err := Evaluate(r, "{{! tags(items=[\"a\", 2]) !}}{{! end !}}")
	require.NoError(t, err)
	assert.Equal(t, "[a][2]", out)
}

func TestEvaluate_HTMLTemplatesKeepBodyVerbatim(t *testing.T) {
	engine := templates.New()
	require.NoError(t, engine.Add("shortcodes/note.html", `<aside><h1>{{.title}}</h1>{{.body}}</aside>`))

	out, err := Evaluate(engine, "{{! note(title=\"<i>t</i>\") !}}it's `a<b` and <em>x</em>{{! end !}}")
	require.NoError(t, err)
	assert.Equal(t, "<aside><h1><i>t</i></h1>it's `a<b` and <em>x</em></aside>", out)
}
