package engine

import (
	"strconv"
	"strings"
)

// Term is the engine's in-memory representation of a piece of Prolog data.
// The set of kinds is fixed by this package.
type Term interface {
	isTerm()
}

// Float is a 64-bit floating point number.
type Float float64

// Atom is a symbolic constant.
type Atom string

// String is a double-quoted string, including strings the engine keeps as
// character lists.
type String string

// Var is a logic variable that is still unbound, identified by the name the
// engine chose to display it with.
type Var string

// List is a proper list.
type List []Term

// Compound is a structure: a functor applied to one or more arguments.
type Compound struct {
	Functor string
	Args    []Term
}

// PartialList is a list whose tail is not the empty list: either an unbound
// variable (a partial list) or any other non-list term (an improper list).
type PartialList struct {
	Items []Term
	Tail  Term
}

// Opaque is any engine value without a structural representation, such as a
// stream handle, a blob, or a constant shape the engine does not expose.
type Opaque struct {
	Kind string
	Repr string
}

func (Integer) isTerm()     {}
func (Rational) isTerm()    {}
func (Float) isTerm()       {}
func (Atom) isTerm()        {}
func (String) isTerm()      {}
func (Var) isTerm()         {}
func (List) isTerm()        {}
func (Compound) isTerm()    {}
func (PartialList) isTerm() {}
func (Opaque) isTerm()      {}

// Debug renders t in a deterministic, unambiguous debugging notation that
// names every node's kind, e.g. PartialList([Atom("a")] | Var("T")).
func Debug(t Term) string {
	var b strings.Builder
	writeDebug(&b, t)
	return b.String()
}

func writeDebug(b *strings.Builder, t Term) {
	switch v := t.(type) {
	case nil:
		b.WriteString("nil")
	case Integer:
		b.WriteString("Integer(")
		b.WriteString(v.String())
		b.WriteByte(')')
	case Rational:
		b.WriteString("Rational(")
		b.WriteString(v.String())
		b.WriteByte(')')
	case Float:
		b.WriteString("Float(")
		b.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 64))
		b.WriteByte(')')
	case Atom:
		b.WriteString("Atom(")
		b.WriteString(strconv.Quote(string(v)))
		b.WriteByte(')')
	case String:
		b.WriteString("String(")
		b.WriteString(strconv.Quote(string(v)))
		b.WriteByte(')')
	case Var:
		b.WriteString("Var(")
		b.WriteString(strconv.Quote(string(v)))
		b.WriteByte(')')
	case List:
		b.WriteString("List(")
		writeDebugItems(b, v)
		b.WriteByte(')')
	case Compound:
		b.WriteString("Compound(")
		b.WriteString(strconv.Quote(v.Functor))
		for _, arg := range v.Args {
			b.WriteString(", ")
			writeDebug(b, arg)
		}
		b.WriteByte(')')
	case PartialList:
		b.WriteString("PartialList(")
		writeDebugItems(b, v.Items)
		b.WriteString(" | ")
		writeDebug(b, v.Tail)
		b.WriteByte(')')
	case Opaque:
		b.WriteString("Opaque(")
		b.WriteString(v.Kind)
		b.WriteString(", ")
		b.WriteString(strconv.Quote(v.Repr))
		b.WriteByte(')')
	}
}

func writeDebugItems(b *strings.Builder, items []Term) {
	b.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		writeDebug(b, item)
	}
	b.WriteByte(']')
}
