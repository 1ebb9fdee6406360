package value

import "strings"

func (i Integer) String() string  { return i.big().String() }
func (r Rational) String() string { return r.big().RatString() }
func (a Atom) String() string     { return string(a) }
func (v Var) String() string      { return string(v) }

// String renders the text double-quoted, escaping quotes and backslashes.
func (s String) String() string {
	var b strings.Builder
	writeQuoted(&b, string(s))
	return b.String()
}

func (l List) String() string {
	var b strings.Builder
	write(&b, l)
	return b.String()
}

func (c Compound) String() string {
	var b strings.Builder
	write(&b, c)
	return b.String()
}

// Format renders v as Prolog-like source text. A nil value renders as the
// empty string.
func Format(v Value) string {
	if v == nil {
		return ""
	}
	return v.String()
}

func write(b *strings.Builder, v Value) {
	switch x := v.(type) {
	case List:
		b.WriteByte('[')
		writeItems(b, x.items)
		b.WriteByte(']')
	case Compound:
		b.WriteString(x.functor)
		b.WriteByte('(')
		writeItems(b, x.args)
		b.WriteByte(')')
	case String:
		writeQuoted(b, string(x))
	default:
		b.WriteString(Format(v))
	}
}

func writeItems(b *strings.Builder, items []Value) {
	for i, item := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		write(b, item)
	}
}

func writeQuoted(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
}
