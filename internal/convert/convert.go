// Package convert translates between engine terms and host values.
//
// ToValue is total: term kinds with no faithful value representation become
// a String holding the term's debug rendering, and every such downgrade is
// reported as a Fallback so callers can tell precise conversions from lossy
// ones. ToTerm is the structural inverse for the exact shapes. Numbers cross
// the boundary only as decimal text: the host formats with math/big and the
// engine re-parses with its own number parser, and the reverse on the way
// back.
package convert

import (
	"errors"
	"fmt"
	"math/big"

	"termbridge/internal/engine"
	"termbridge/internal/value"
)

// Fallback records one term that was downgraded to text.
type Fallback struct {
	// Path is the position of the term inside the converted root: each
	// element indexes a list item or compound argument. Empty means the root.
	Path []int
	// Kind names the engine term kind, e.g. "partial_list" or "opaque:stream".
	Kind string
	// Text is the debug rendering the term was replaced with.
	Text string
}

func (f Fallback) String() string {
	return fmt.Sprintf("%s at %v downgraded to %s", f.Kind, f.Path, f.Text)
}

// DefectError reports that a numeral produced by one side of the boundary
// was rejected by the other side's parser. It is raised with panic: the two
// formatters disagreeing is a programming error, not bad input.
type DefectError struct {
	Direction string
	Numeral   string
	Err       error
}

func (e *DefectError) Error() string {
	return fmt.Sprintf("numeric round-trip defect (%s): %q: %v", e.Direction, e.Numeral, e.Err)
}

func (e *DefectError) Unwrap() error { return e.Err }

// The numeral parsers on both sides, swappable in tests.
var (
	parseEngineInteger  = engine.ParseInteger
	parseEngineRational = engine.ParseRational
	parseHostInteger    = func(s string) (*big.Int, bool) { return new(big.Int).SetString(s, 10) }
	parseHostRational   = func(s string) (*big.Rat, bool) { return new(big.Rat).SetString(s) }
)

var errHostRejected = errors.New("math/big rejected numeral")

// ToValue converts an engine term to a value. The returned fallbacks list
// every subterm that could not be represented exactly, in traversal order.
func ToValue(t engine.Term) (value.Value, []Fallback) {
	c := toValueConv{}
	v := c.convert(t)
	return v, c.fallbacks
}

// ToValues converts a slice of terms, collecting fallbacks from all of them.
// Fallback paths are prefixed with the index of the term they came from.
func ToValues(ts []engine.Term) ([]value.Value, []Fallback) {
	out := make([]value.Value, len(ts))
	var fallbacks []Fallback
	for i, t := range ts {
		c := toValueConv{path: []int{i}}
		out[i] = c.convert(t)
		fallbacks = append(fallbacks, c.fallbacks...)
	}
	return out, fallbacks
}

type toValueConv struct {
	path      []int
	fallbacks []Fallback
}

func (c *toValueConv) convert(t engine.Term) value.Value {
	switch x := t.(type) {
	case engine.Integer:
		n, ok := parseHostInteger(x.String())
		if !ok {
			panic(&DefectError{Direction: "engine to host", Numeral: x.String(), Err: errHostRejected})
		}
		return value.NewInteger(n)
	case engine.Rational:
		r, ok := parseHostRational(x.String())
		if !ok {
			panic(&DefectError{Direction: "engine to host", Numeral: x.String(), Err: errHostRejected})
		}
		return value.NewRational(r)
	case engine.Float:
		return value.FloatOf(float64(x))
	case engine.Atom:
		return value.Atom(x)
	case engine.String:
		return value.String(x)
	case engine.Var:
		return value.Var(x)
	case engine.List:
		return value.NewList(c.convertAll(x)...)
	case engine.Compound:
		if len(x.Args) == 0 {
			return value.Atom(x.Functor)
		}
		return value.NewCompound(x.Functor, c.convertAll(x.Args)...)
	case engine.PartialList:
		return c.fallback("partial_list", t)
	case engine.Opaque:
		return c.fallback("opaque:"+x.Kind, t)
	default:
		return c.fallback(fmt.Sprintf("unknown:%T", t), t)
	}
}

func (c *toValueConv) convertAll(ts []engine.Term) []value.Value {
	out := make([]value.Value, len(ts))
	for i, t := range ts {
		c.path = append(c.path, i)
		out[i] = c.convert(t)
		c.path = c.path[:len(c.path)-1]
	}
	return out
}

func (c *toValueConv) fallback(kind string, t engine.Term) value.Value {
	text := engine.Debug(t)
	c.fallbacks = append(c.fallbacks, Fallback{
		Path: append([]int{}, c.path...),
		Kind: kind,
		Text: text,
	})
	return value.String(text)
}

// ToTerm converts a value to an engine term. It panics with *DefectError if
// the engine's number parser rejects a numeral formatted by math/big.
func ToTerm(v value.Value) engine.Term {
	switch x := v.(type) {
	case value.Integer:
		text := x.Int().String()
		n, err := parseEngineInteger(text)
		if err != nil {
			panic(&DefectError{Direction: "host to engine", Numeral: text, Err: err})
		}
		return n
	case value.Rational:
		rat := x.Rat()
		text := rat.Num().String() + "/" + rat.Denom().String()
		r, err := parseEngineRational(text)
		if err != nil {
			panic(&DefectError{Direction: "host to engine", Numeral: text, Err: err})
		}
		return r
	case value.Float:
		return engine.Float(x.Float64())
	case value.Atom:
		return engine.Atom(x)
	case value.String:
		return engine.String(x)
	case value.Var:
		return engine.Var(x)
	case value.List:
		return engine.List(ToTerms(x.Items()))
	case value.Compound:
		return engine.Compound{Functor: x.Functor(), Args: ToTerms(x.Args())}
	case nil:
		return nil
	}
	panic(fmt.Sprintf("convert: unhandled value kind %s", v.Kind()))
}

// ToTerms converts each value with ToTerm.
func ToTerms(vs []value.Value) []engine.Term {
	out := make([]engine.Term, len(vs))
	for i, v := range vs {
		out[i] = ToTerm(v)
	}
	return out
}
