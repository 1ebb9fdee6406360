// Package query drives one resolution process answer by answer.
//
// A Cursor wraps the engine's answer stream in a small state machine:
//
//	NotStarted -> Active -> Exhausted
//	                     -> Errored
//
// Nothing reaches the engine until the first Next. Exhausted and Errored are
// terminal: further calls return the same signal without touching the engine.
package query

import (
	"sort"
	"strings"

	"termbridge/internal/convert"
	"termbridge/internal/engine"
	"termbridge/internal/value"
)

// State is the position of a Cursor in its lifecycle.
type State int

const (
	NotStarted State = iota
	Active
	Exhausted
	Errored
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Active:
		return "active"
	case Exhausted:
		return "exhausted"
	case Errored:
		return "errored"
	}
	return "unknown"
}

// Bindings maps variable names to the values they were resolved to. A
// non-nil empty Bindings means the query succeeded without binding anything.
type Bindings map[string]value.Value

// String renders the bindings as "X = 1, Y = foo" with names sorted, or
// "true" when there are none.
func (b Bindings) String() string {
	if len(b) == 0 {
		return "true"
	}
	names := make([]string, 0, len(b))
	for name := range b {
		names = append(names, name)
	}
	sort.Strings(names)
	var sb strings.Builder
	for i, name := range names {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(name)
		sb.WriteString(" = ")
		sb.WriteString(value.Format(b[name]))
	}
	return sb.String()
}

// Solution is one successful answer.
type Solution struct {
	Bindings Bindings
	// Residual holds goals the engine left pending, converted to values.
	Residual []value.Value
	// Fallbacks lists the subterms that were downgraded to text while
	// converting this answer.
	Fallbacks []convert.Fallback
}

// Option configures a Cursor.
type Option func(*Cursor)

// WithFallbackHandler calls fn for every conversion fallback, as it happens.
func WithFallbackHandler(fn func(convert.Fallback)) Option {
	return func(c *Cursor) { c.onFallback = fn }
}

// Cursor iterates the answers of one query. It is not safe for concurrent
// use.
type Cursor struct {
	eng        engine.Engine
	source     string
	stream     engine.Stream
	state      State
	err        error
	onFallback func(convert.Fallback)
}

// NewCursor prepares source for resolution on eng. The engine is not called
// until the first Next.
func NewCursor(eng engine.Engine, source string, opts ...Option) *Cursor {
	c := &Cursor{eng: eng, source: source}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Source returns the query text.
func (c *Cursor) Source() string { return c.source }

// State reports where the cursor is in its lifecycle.
func (c *Cursor) State() State { return c.state }

// Next advances resolution by one step. It returns a solution and true, or
// false and a nil error once the query has no more solutions, or an
// *EngineError once the engine raised an exception or error term. After
// either terminal outcome every call returns it again.
func (c *Cursor) Next() (Solution, bool, error) {
	switch c.state {
	case Exhausted:
		return Solution{}, false, nil
	case Errored:
		return Solution{}, false, c.err
	case NotStarted:
		c.stream = c.eng.RunQuery(c.source)
		c.state = Active
	}

	ans, ok := c.stream.Next()
	if !ok {
		return c.exhaust()
	}
	switch a := ans.(type) {
	case engine.True:
		return Solution{Bindings: Bindings{}}, true, nil
	case engine.False:
		return c.exhaust()
	case engine.Bindings:
		return c.solution(a), true, nil
	case engine.Exception:
		return c.fail(KindException, a.Term)
	case engine.ErrorTerm:
		return c.fail(KindErrorTerm, a.Term)
	default:
		// Unknown answer kinds end the query rather than being skipped.
		return c.exhaust()
	}
}

func (c *Cursor) exhaust() (Solution, bool, error) {
	c.state = Exhausted
	c.stream = nil
	return Solution{}, false, nil
}

func (c *Cursor) fail(kind ErrorKind, term engine.Term) (Solution, bool, error) {
	v, fallbacks := convert.ToValue(term)
	c.report(fallbacks)
	c.state = Errored
	c.stream = nil
	c.err = &EngineError{Kind: kind, Query: c.source, Term: v, Text: value.Format(v)}
	return Solution{}, false, c.err
}

func (c *Cursor) solution(a engine.Bindings) Solution {
	sol := Solution{Bindings: make(Bindings, len(a.Vars))}
	names := make([]string, 0, len(a.Vars))
	for name := range a.Vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v, fallbacks := convert.ToValue(a.Vars[name])
		sol.Bindings[name] = v
		sol.Fallbacks = append(sol.Fallbacks, fallbacks...)
	}
	if len(a.Residual) > 0 {
		var fallbacks []convert.Fallback
		sol.Residual, fallbacks = convert.ToValues(a.Residual)
		sol.Fallbacks = append(sol.Fallbacks, fallbacks...)
	}
	c.report(sol.Fallbacks)
	return sol
}

func (c *Cursor) report(fallbacks []convert.Fallback) {
	if c.onFallback == nil {
		return
	}
	for _, fb := range fallbacks {
		c.onFallback(fb)
	}
}

// First returns the first answer of source. The boolean is false when the
// query has no solution; a true result with empty bindings means the query
// succeeded without binding anything.
func First(eng engine.Engine, source string, opts ...Option) (Bindings, bool, error) {
	sol, ok, err := NewCursor(eng, source, opts...).Next()
	if err != nil || !ok {
		return nil, false, err
	}
	return sol.Bindings, true, nil
}

// All collects every answer of source in the order the engine produced them.
// If the engine raises an exception or error term at any point, the answers
// gathered so far are discarded and only the error is returned. All does not
// return if the query has infinitely many solutions.
func All(eng engine.Engine, source string, opts ...Option) ([]Bindings, error) {
	c := NewCursor(eng, source, opts...)
	var out []Bindings
	for {
		sol, ok, err := c.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, sol.Bindings)
	}
}
