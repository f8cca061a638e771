package assets

import (
	"bytes"
	"context"
	"fmt"
)

// EmbedFonts inlines the remote font referenced from the <style> element of an
// SVG's <defs> as a base64 @font-face rule. Drawings without such a reference
// are returned unchanged.
func EmbedFonts(ctx context.Context, svg []byte, fonts *FontCache) ([]byte, error) {
	defs := bytes.Index(svg, []byte("<defs"))
	if defs < 0 {
		return svg, nil
	}
	defsEnd := bytes.Index(svg[defs:], []byte("</defs>"))
	if defsEnd < 0 {
		return svg, nil
	}
	block := svg[defs : defs+defsEnd]

	style := bytes.Index(block, []byte("<style"))
	if style < 0 {
		return svg, nil
	}
	styleEnd := bytes.Index(block[style:], []byte("</style>"))
	if styleEnd < 0 {
		return svg, nil
	}

	m := fontURL.FindSubmatch(block[style : style+styleEnd])
	if m == nil {
		return svg, nil
	}

	font, err := fonts.Fetch(ctx, string(m[0]))
	if err != nil {
		return nil, err
	}
	rule := fmt.Sprintf("\n@font-face {\n  font-family: %q;\n  src: url(data:font/font;base64,%s);\n}\n", m[2], font)

	at := defs + style + styleEnd
	out := make([]byte, 0, len(svg)+len(rule))
	out = append(out, svg[:at]...)
	out = append(out, rule...)
	out = append(out, svg[at:]...)
	return out, nil
}
