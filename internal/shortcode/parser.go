package shortcode

import (
	"fmt"
	"strconv"
	"strings"

	derrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
)

const (
	openMarker  = "{{!"
	closeMarker = "!}}"
	endKeyword  = "end"
)

// Parse splits input into alternating Text and Shortcode items. The last item
// is always the Text remaining after the final shortcode, possibly empty.
func Parse(input string) ([]Item, error) {
	p := &parser{src: input}
	var items []Item

	for {
		start := p.pos
		sc, err := p.shortcode()
		if err == nil {
			items = append(items, sc)
			continue
		}
		p.pos = start

		idx := strings.Index(p.src[p.pos:], openMarker)
		if idx < 0 {
			break
		}
		if idx == 0 {
			return nil, err
		}
		items = append(items, Text(p.src[p.pos:p.pos+idx]))
		p.pos += idx
	}

	return append(items, Text(p.src[p.pos:])), nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) rest() string { return p.src[p.pos:] }

func (p *parser) fail(format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", derrors.ErrMalformedShortcode, p.pos, fmt.Sprintf(format, args...))
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\r', '\n':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) consume(tok string) bool {
	if strings.HasPrefix(p.rest(), tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

func (p *parser) shortcode() (Shortcode, error) {
	p.skipSpace()
	if !p.consume(openMarker) {
		return Shortcode{}, p.fail("expected %q", openMarker)
	}
	p.skipSpace()

	name := p.ident()
	if name == "" {
		return Shortcode{}, p.fail("expected shortcode name")
	}
	p.skipSpace()

	args := map[string]Value{}
	if p.consume("(") {
		var err error
		if args, err = p.arguments(); err != nil {
			return Shortcode{}, err
		}
		p.skipSpace()
	}

	if !p.consume(closeMarker) {
		return Shortcode{}, p.fail("expected %q after %s", closeMarker, name)
	}
	p.skipSpace()

	idx := strings.Index(p.rest(), openMarker)
	if idx < 0 {
		return Shortcode{}, p.fail("shortcode %s is never closed", name)
	}
	body := p.src[p.pos : p.pos+idx]
	p.pos += idx + len(openMarker)

	p.skipSpace()
	if !p.consume(endKeyword) {
		return Shortcode{}, p.fail("expected %q closing %s", endKeyword, name)
	}
	p.skipSpace()
	if !p.consume(closeMarker) {
		return Shortcode{}, p.fail("expected %q", closeMarker)
	}

	return Shortcode{Name: name, Arguments: args, Body: body}, nil
}

// ident matches [A-Za-z_][A-Za-z0-9_]*.
func (p *parser) ident() string {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		isAlpha := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		isDigit := c >= '0' && c <= '9'
		if !isAlpha && (!isDigit || p.pos == start) {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *parser) arguments() (map[string]Value, error) {
	args := map[string]Value{}
	p.skipSpace()
	if p.consume(")") {
		return args, nil
	}

	for {
		p.skipSpace()
		name := p.ident()
		if name == "" {
			return nil, p.fail("expected argument name")
		}
		p.skipSpace()
		if !p.consume("=") {
			return nil, p.fail("expected '=' after %s", name)
		}
		p.skipSpace()
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		args[name] = v
		p.skipSpace()

		switch {
		case p.consume(","):
		case p.consume(")"):
			return args, nil
		default:
			return nil, p.fail("expected ',' or ')'")
		}
	}
}

func (p *parser) value() (Value, error) {
	switch {
	case p.consume("true"):
		return Bool(true), nil
	case p.consume("false"):
		return Bool(false), nil
	case p.consume("\""):
		end := strings.IndexByte(p.rest(), '"')
		if end < 0 {
			return nil, p.fail("unterminated string")
		}
		s := p.src[p.pos : p.pos+end]
		p.pos += end + 1
		return String(s), nil
	case p.consume("["):
		return p.list()
	default:
		return p.number()
	}
}

func (p *parser) number() (Value, error) {
	start := p.pos
	p.consume("-")
	digits := p.pos
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == digits {
		p.pos = start
		return nil, p.fail("expected value")
	}
	n, err := strconv.ParseInt(p.src[start:p.pos], 10, 32)
	if err != nil {
		return nil, p.fail("number %s out of range", p.src[start:p.pos])
	}
	return Number(n), nil
}

func (p *parser) list() (Value, error) {
	list := List{}
	p.skipSpace()
	if p.consume("]") {
		return list, nil
	}
	for {
		p.skipSpace()
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		list = append(list, v)
		p.skipSpace()

		switch {
		case p.consume(","):
		case p.consume("]"):
			return list, nil
		default:
			return nil, p.fail("expected ',' or ']'")
		}
	}
}
