// Package shortcode parses and evaluates shortcodes embedded in markdown:
//
//	{{! name(arg1=value1, arg2=value2) !}} body text {{! end !}}
//
// Bodies are taken verbatim up to the next opening marker; shortcodes do not nest.
package shortcode

// Item is either Text or Shortcode.
type Item interface {
	isItem()
}

// Text is literal source passed through unchanged.
type Text string

// Shortcode is a named template invocation.
type Shortcode struct {
	Name      string
	Arguments map[string]Value
	Body      string
}

func (Text) isItem()      {}
func (Shortcode) isItem() {}

// Value is an argument literal: Bool, Number, String or List.
type Value interface {
	// Native returns the value as plain Go data for template contexts.
	Native() any
}

type (
	Bool   bool
	Number int32
	String string
	List   []Value
)

func (b Bool) Native() any   { return bool(b) }
func (n Number) Native() any { return int(n) }
func (s String) Native() any { return string(s) }
func (l List) Native() any {
	out := make([]any, len(l))
	for i, v := range l {
		out[i] = v.Native()
	}
	return out
}
