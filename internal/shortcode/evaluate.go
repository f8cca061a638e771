package shortcode

import (
	"html/template"
	"strings"
)

// Renderer renders a named template with a key/value context.
type Renderer interface {
	Render(name string, data map[string]any) (string, error)
}

// TemplateName returns the template a shortcode is rendered with.
func TemplateName(shortcode string) string {
	return "shortcodes/" + shortcode + ".html"
}

// Evaluate parses input and replaces every shortcode with its rendered template.
func Evaluate(r Renderer, input string) (string, error) {
	items, err := Parse(input)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, item := range items {
		switch it := item.(type) {
		case Text:
			b.WriteString(string(it))
		case Shortcode:
			out, err := EvaluateShortcode(r, it)
			if err != nil {
				return "", err
			}
			b.WriteString(out)
		}
	}
	return b.String(), nil
}

// EvaluateShortcode renders one shortcode; its arguments and raw body (under
// "body") form the template context. The body and string arguments are
// handed over as trusted HTML so the template emits them verbatim.
func EvaluateShortcode(r Renderer, sc Shortcode) (string, error) {
	data := make(map[string]any, len(sc.Arguments)+1)
	for k, v := range sc.Arguments {
		if s, ok := v.(String); ok {
			// #nosec G203 -- shortcode arguments come from the site's own sources
			data[k] = template.HTML(s)
			continue
		}
		data[k] = v.Native()
	}
	// #nosec G203 -- the body is raw markdown from the site's own sources
	data["body"] = template.HTML(sc.Body)
	return r.Render(TemplateName(sc.Name), data)
}
