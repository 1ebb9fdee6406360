// Package value is the host-side model of engine terms: a closed union of
// eight shapes with structural equality, a total order, a total hash and a
// Prolog-like text rendering.
//
// Every variant is immutable. Constructors copy what they are given and
// accessors hand out copies, so a Value can outlive the query that produced
// it and be shared freely.
package value

import (
	"math/big"
)

// Kind identifies one of the eight value shapes.
type Kind uint8

const (
	KindVar Kind = iota
	KindFloat
	KindInteger
	KindRational
	KindAtom
	KindString
	KindList
	KindCompound
)

var kindNames = [...]string{
	KindVar:      "var",
	KindFloat:    "float",
	KindInteger:  "integer",
	KindRational: "rational",
	KindAtom:     "atom",
	KindString:   "string",
	KindList:     "list",
	KindCompound: "compound",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Value is a term as seen by the host. The interface is sealed: the variants
// in this package are the only implementations.
type Value interface {
	// Kind reports the variant.
	Kind() Kind
	// Equal reports structural equality with other.
	Equal(other Value) bool
	// String renders the value as Prolog-like source text.
	String() string

	isValue()
}

// Integer is an arbitrary-precision integer.
type Integer struct {
	n *big.Int
}

// NewInteger returns an Integer holding a copy of n. A nil n is zero.
func NewInteger(n *big.Int) Integer {
	if n == nil {
		return Integer{}
	}
	return Integer{n: new(big.Int).Set(n)}
}

// IntegerOf returns an Integer holding n.
func IntegerOf(n int64) Integer {
	return Integer{n: big.NewInt(n)}
}

// ParseInteger reads a base-10 integer numeral.
func ParseInteger(text string) (Integer, bool) {
	n, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return Integer{}, false
	}
	return Integer{n: n}, true
}

// Int returns a copy of the integer.
func (i Integer) Int() *big.Int {
	if i.n == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(i.n)
}

func (i Integer) big() *big.Int {
	if i.n == nil {
		return zeroInt
	}
	return i.n
}

// Rational is an arbitrary-precision fraction in lowest terms.
type Rational struct {
	r *big.Rat
}

// NewRational returns a Rational holding a copy of r. A nil r is zero.
func NewRational(r *big.Rat) Rational {
	if r == nil {
		return Rational{}
	}
	return Rational{r: new(big.Rat).Set(r)}
}

// RationalOf returns num/den. It panics if den is zero.
func RationalOf(num, den int64) Rational {
	return Rational{r: big.NewRat(num, den)}
}

// ParseRational reads "N/D" or "N".
func ParseRational(text string) (Rational, bool) {
	r, ok := new(big.Rat).SetString(text)
	if !ok {
		return Rational{}, false
	}
	return Rational{r: r}, true
}

// Rat returns a copy of the fraction.
func (r Rational) Rat() *big.Rat {
	if r.r == nil {
		return new(big.Rat)
	}
	return new(big.Rat).Set(r.r)
}

func (r Rational) big() *big.Rat {
	if r.r == nil {
		return zeroRat
	}
	return r.r
}

var (
	zeroInt = new(big.Int)
	zeroRat = new(big.Rat)
)

// Atom is a symbolic constant.
type Atom string

// String is a text string. It is never equal to an Atom with the same text.
type String string

// Var is a variable left unbound in an answer.
type Var string

// List is a finite proper list.
type List struct {
	items []Value
}

// NewList returns a list of items. The slice is copied.
func NewList(items ...Value) List {
	if len(items) == 0 {
		return List{}
	}
	return List{items: append([]Value(nil), items...)}
}

// Len returns the number of elements.
func (l List) Len() int { return len(l.items) }

// At returns element i.
func (l List) At(i int) Value { return l.items[i] }

// Items returns a copy of the elements.
func (l List) Items() []Value {
	return append([]Value(nil), l.items...)
}

// Compound is a functor applied to one or more arguments.
type Compound struct {
	functor string
	args    []Value
}

// NewCompound returns functor(args...). The slice is copied. It panics when
// args is empty: a zero-arity structure is an Atom.
func NewCompound(functor string, args ...Value) Compound {
	if len(args) == 0 {
		panic("value: compound " + functor + " needs at least one argument")
	}
	return Compound{functor: functor, args: append([]Value(nil), args...)}
}

// Functor returns the name of the structure.
func (c Compound) Functor() string { return c.functor }

// Arity returns the number of arguments.
func (c Compound) Arity() int { return len(c.args) }

// Arg returns argument i, counting from zero.
func (c Compound) Arg(i int) Value { return c.args[i] }

// Args returns a copy of the arguments.
func (c Compound) Args() []Value {
	return append([]Value(nil), c.args...)
}

func (Integer) Kind() Kind  { return KindInteger }
func (Rational) Kind() Kind { return KindRational }
func (Float) Kind() Kind    { return KindFloat }
func (Atom) Kind() Kind     { return KindAtom }
func (String) Kind() Kind   { return KindString }
func (Var) Kind() Kind      { return KindVar }
func (List) Kind() Kind     { return KindList }
func (Compound) Kind() Kind { return KindCompound }

func (Integer) isValue()  {}
func (Rational) isValue() {}
func (Float) isValue()    {}
func (Atom) isValue()     {}
func (String) isValue()   {}
func (Var) isValue()      {}
func (List) isValue()     {}
func (Compound) isValue() {}
