package mangle

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/mangle/ast"

	"termbridge/internal/engine"
)

// ErrUnsupportedTerm is returned by Assert for arguments Mangle facts cannot
// hold.
var ErrUnsupportedTerm = errors.New("term cannot be stored as a mangle constant")

// fromBaseTerm maps a stored Mangle term to an engine term. Name constants
// become atoms without their leading slash. Lists map element by element,
// pairs become -(Fst, Snd) and structs become struct(Label-Value, ...).
// Bytes, maps and non-constant terms become Opaque.
func fromBaseTerm(t ast.BaseTerm) engine.Term {
	c, ok := t.(ast.Constant)
	if !ok {
		return engine.Opaque{Kind: "mangle_term", Repr: t.String()}
	}
	switch c.Type {
	case ast.NameType:
		return engine.Atom(strings.TrimPrefix(c.Symbol, "/"))
	case ast.StringType:
		return engine.String(c.Symbol)
	case ast.NumberType:
		return engine.IntegerFromInt64(c.NumValue)
	case ast.Float64Type:
		return engine.Float(math.Float64frombits(uint64(c.NumValue)))
	case ast.ListShape:
		elems, err := c.ListSeq()
		if err != nil {
			break
		}
		items := engine.List{}
		for e := range elems {
			items = append(items, fromBaseTerm(e))
		}
		return items
	case ast.PairShape:
		fst, snd, err := c.PairValue()
		if err != nil {
			break
		}
		return engine.Compound{Functor: "-", Args: []engine.Term{fromBaseTerm(fst), fromBaseTerm(snd)}}
	case ast.StructShape:
		var fields []engine.Term
		_, err := c.StructValues(func(label, val ast.Constant) error {
			fields = append(fields, engine.Compound{Functor: "-", Args: []engine.Term{fromBaseTerm(label), fromBaseTerm(val)}})
			return nil
		}, func() error { return nil })
		if err != nil {
			break
		}
		return engine.Compound{Functor: "struct", Args: fields}
	}
	return engine.Opaque{Kind: "mangle_constant", Repr: c.String()}
}

// termToAtom converts a host fact into a Mangle atom.
func termToAtom(t engine.Term) (ast.Atom, error) {
	switch f := t.(type) {
	case engine.Atom:
		return ast.NewAtom(string(f)), nil
	case engine.Compound:
		args := make([]ast.BaseTerm, len(f.Args))
		for i, arg := range f.Args {
			c, err := toConstant(arg)
			if err != nil {
				return ast.Atom{}, fmt.Errorf("%s argument %d: %w", f.Functor, i, err)
			}
			args[i] = c
		}
		return ast.NewAtom(f.Functor, args...), nil
	}
	return ast.Atom{}, fmt.Errorf("fact %s: %w", engine.Debug(t), ErrUnsupportedTerm)
}

func toConstant(t engine.Term) (ast.Constant, error) {
	switch v := t.(type) {
	case engine.Atom:
		return ast.Name("/" + string(v))
	case engine.String:
		return ast.String(string(v)), nil
	case engine.Integer:
		n, ok := v.Int64()
		if !ok {
			return ast.Constant{}, fmt.Errorf("integer %s overflows int64: %w", v, ErrUnsupportedTerm)
		}
		return ast.Number(n), nil
	case engine.Float:
		return ast.Float64(float64(v)), nil
	case engine.List:
		items := make([]ast.Constant, len(v))
		for i, e := range v {
			c, err := toConstant(e)
			if err != nil {
				return ast.Constant{}, fmt.Errorf("list element %d: %w", i, err)
			}
			items[i] = c
		}
		return ast.List(items), nil
	}
	return ast.Constant{}, fmt.Errorf("%s: %w", engine.Debug(t), ErrUnsupportedTerm)
}
