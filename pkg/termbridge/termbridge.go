// Package termbridge is the public face of the adapter: sessions over a
// logic engine, host-side values, and the errors queries can return.
//
// Everything here re-exports internal packages so programs outside this
// module can embed an engine without reaching into internal/.
package termbridge

import (
	"termbridge/internal/convert"
	"termbridge/internal/engine"
	"termbridge/internal/mangle"
	"termbridge/internal/query"
	"termbridge/internal/session"
	"termbridge/internal/value"
)

// Sessions.
type (
	Session = session.Session
	Option  = session.Option
)

// Session options.
var (
	WithLogger          = session.WithLogger
	WithFallbackHandler = session.WithFallbackHandler
)

// Query results.
type (
	Bindings = query.Bindings
	Solution = query.Solution
	Cursor   = query.Cursor
	State    = query.State
	Fallback = convert.Fallback
)

// Host values.
type (
	Value    = value.Value
	Kind     = value.Kind
	Integer  = value.Integer
	Rational = value.Rational
	Float    = value.Float
	Atom     = value.Atom
	String   = value.String
	Var      = value.Var
	List     = value.List
	Compound = value.Compound
)

// Value constructors and operations.
var (
	NewInteger    = value.NewInteger
	IntegerOf     = value.IntegerOf
	ParseInteger  = value.ParseInteger
	NewRational   = value.NewRational
	RationalOf    = value.RationalOf
	ParseRational = value.ParseRational
	FloatOf       = value.FloatOf
	NewList       = value.NewList
	NewCompound   = value.NewCompound
	Equal         = value.Equal
	Compare       = value.Compare
	Hash          = value.Hash
	Format        = value.Format
)

// Errors.
type (
	EngineError = query.EngineError
	ErrorKind   = query.ErrorKind
	IOError     = session.IOError
	LoadError   = session.LoadError
	DefectError = convert.DefectError
)

var (
	ErrException         = query.ErrException
	ErrErrorTerm         = query.ErrErrorTerm
	ErrAssertUnsupported = session.ErrAssertUnsupported
)

// Engine boundary, for hosts that bring their own engine.
type (
	Engine       = engine.Engine
	Stream       = engine.Stream
	Asserter     = engine.Asserter
	EngineConfig = mangle.Config
)

// DefaultEngineConfig returns the Mangle backend's defaults.
func DefaultEngineConfig() EngineConfig { return mangle.DefaultConfig() }

// NewSession returns a session over a fresh Mangle engine with default
// configuration.
func NewSession(opts ...Option) *Session {
	return NewSessionWithConfig(mangle.DefaultConfig(), opts...)
}

// NewSessionWithConfig returns a session over a fresh Mangle engine.
func NewSessionWithConfig(cfg EngineConfig, opts ...Option) *Session {
	return session.New(mangle.NewEngine(cfg), opts...)
}

// NewSessionWithEngine returns a session that owns eng.
func NewSessionWithEngine(eng Engine, opts ...Option) *Session {
	return session.New(eng, opts...)
}
