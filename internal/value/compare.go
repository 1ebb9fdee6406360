package value

import (
	"encoding/binary"
	"hash"
	"hash/fnv"
	"strings"
)

// Equal reports whether a and b are structurally equal. Two nil values are
// equal, at the top level or nested; a nil value equals nothing else.
func Equal(a, b Value) bool {
	return Compare(a, b) == 0
}

// Compare orders values totally: first by kind in the order
// Var < Float < Integer < Rational < Atom < String < List < Compound,
// then by payload. Lists compare by length, then elementwise. Compounds
// compare by arity, then functor, then arguments. A nil value sorts before
// every kind.
func Compare(a, b Value) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		}
		return 1
	}
	if ka, kb := a.Kind(), b.Kind(); ka != kb {
		if ka < kb {
			return -1
		}
		return 1
	}
	switch x := a.(type) {
	case Var:
		return strings.Compare(string(x), string(b.(Var)))
	case Float:
		return x.Compare(b.(Float))
	case Integer:
		return x.big().Cmp(b.(Integer).big())
	case Rational:
		return x.big().Cmp(b.(Rational).big())
	case Atom:
		return strings.Compare(string(x), string(b.(Atom)))
	case String:
		return strings.Compare(string(x), string(b.(String)))
	case List:
		y := b.(List)
		if c := compareInt(len(x.items), len(y.items)); c != 0 {
			return c
		}
		return compareAll(x.items, y.items)
	case Compound:
		y := b.(Compound)
		if c := compareInt(len(x.args), len(y.args)); c != 0 {
			return c
		}
		if c := strings.Compare(x.functor, y.functor); c != 0 {
			return c
		}
		return compareAll(x.args, y.args)
	}
	panic("value: unknown kind " + a.Kind().String())
}

func compareAll(xs, ys []Value) int {
	for i := range xs {
		if c := Compare(xs[i], ys[i]); c != 0 {
			return c
		}
	}
	return 0
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (i Integer) Equal(o Value) bool  { return Equal(i, o) }
func (r Rational) Equal(o Value) bool { return Equal(r, o) }
func (f Float) Equal(o Value) bool    { return Equal(f, o) }
func (a Atom) Equal(o Value) bool     { return Equal(a, o) }
func (s String) Equal(o Value) bool   { return Equal(s, o) }
func (v Var) Equal(o Value) bool      { return Equal(v, o) }
func (l List) Equal(o Value) bool     { return Equal(l, o) }
func (c Compound) Equal(o Value) bool { return Equal(c, o) }

// Hash returns a 64-bit hash consistent with Equal: equal values always hash
// alike. It never panics, NaN included.
func Hash(v Value) uint64 {
	h := fnv.New64a()
	writeHash(h, v)
	return h.Sum64()
}

func writeHash(h hash.Hash64, v Value) {
	var buf [8]byte
	if v == nil {
		h.Write([]byte{0xff})
		return
	}
	h.Write([]byte{byte(v.Kind())})
	switch x := v.(type) {
	case Var:
		writeHashString(h, string(x))
	case Float:
		binary.BigEndian.PutUint64(buf[:], x.bits())
		h.Write(buf[:])
	case Integer:
		writeHashString(h, x.big().String())
	case Rational:
		writeHashString(h, x.big().RatString())
	case Atom:
		writeHashString(h, string(x))
	case String:
		writeHashString(h, string(x))
	case List:
		binary.BigEndian.PutUint64(buf[:], uint64(len(x.items)))
		h.Write(buf[:])
		for _, item := range x.items {
			writeHash(h, item)
		}
	case Compound:
		writeHashString(h, x.functor)
		binary.BigEndian.PutUint64(buf[:], uint64(len(x.args)))
		h.Write(buf[:])
		for _, arg := range x.args {
			writeHash(h, arg)
		}
	}
}

// writeHashString length-prefixes s so adjacent strings cannot run together.
func writeHashString(h hash.Hash64, s string) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(len(s)))
	h.Write(buf[:])
	h.Write([]byte(s))
}
