// Package session owns one engine instance and exposes module loading and
// query dispatch over it.
//
// A Session serialises access to its engine with a mutex, so sharing one
// between goroutines will not corrupt the engine. It does not make
// concurrent querying meaningful: cursors opened from different goroutines
// interleave their steps over the same engine state.
package session

import (
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"termbridge/internal/convert"
	"termbridge/internal/engine"
	"termbridge/internal/logging"
	"termbridge/internal/query"
	"termbridge/internal/value"
)

// Session is one owned engine plus the operations exposed over it.
type Session struct {
	mu         sync.Mutex
	id         uuid.UUID
	engine     engine.Engine
	log        *zap.Logger
	onFallback func(convert.Fallback)
}

// Option configures a Session.
type Option func(*Session)

// WithLogger replaces the session's logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithFallbackHandler calls fn for every conversion fallback produced by
// this session's queries, in addition to the warning that is logged.
func WithFallbackHandler(fn func(convert.Fallback)) Option {
	return func(s *Session) { s.onFallback = fn }
}

// New wraps eng in a session. The session takes ownership of eng; nothing
// else should drive it afterwards.
func New(eng engine.Engine, opts ...Option) *Session {
	s := &Session{
		id:     uuid.New(),
		engine: eng,
		log:    logging.Get(logging.CategorySession),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(zap.String("session", s.id.String()))
	s.log.Debug("session created", zap.String("engine", fmt.Sprintf("%T", eng)))
	return s
}

// ID returns the session's correlation id.
func (s *Session) ID() uuid.UUID { return s.id }

// LoadModuleFromText hands source to the engine under name. An engine
// rejection is reported as *LoadError.
func (s *Session) LoadModuleFromText(name, source string) error {
	s.mu.Lock()
	err := s.engine.LoadModule(name, source)
	s.mu.Unlock()
	if err != nil {
		s.log.Warn("module rejected", zap.String("module", name), zap.Error(err))
		return &LoadError{Module: name, Err: err}
	}
	s.log.Debug("module loaded", zap.String("module", name), zap.Int("bytes", len(source)))
	return nil
}

// LoadModuleFromFile reads path in full and loads it as module name. Read
// failures are reported as *IOError, engine rejections as *LoadError.
func (s *Session) LoadModuleFromFile(name, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		s.log.Warn("module unreadable", zap.String("module", name), zap.String("path", path), zap.Error(err))
		return &IOError{Path: path, Err: err}
	}
	return s.LoadModuleFromText(name, string(data))
}

// QueryFirst returns the first answer of source. The boolean is false when
// there is no solution; a true result with empty bindings means the query
// succeeded without binding anything.
func (s *Session) QueryFirst(source string) (query.Bindings, bool, error) {
	timer := logging.StartTimer(logging.CategoryQuery, "query_first")
	defer timer.Stop()
	b, ok, err := query.First(s.guarded(), source, s.queryOptions()...)
	s.logOutcome(source, err)
	return b, ok, err
}

// QueryAll returns every answer of source in engine order. An exception or
// error term anywhere discards the answers collected so far.
func (s *Session) QueryAll(source string) ([]query.Bindings, error) {
	timer := logging.StartTimer(logging.CategoryQuery, "query_all")
	defer timer.Stop()
	all, err := query.All(s.guarded(), source, s.queryOptions()...)
	s.logOutcome(source, err)
	return all, err
}

// Query opens a cursor over the answers of source. No engine work happens
// until the cursor's first Next.
func (s *Session) Query(source string) *query.Cursor {
	return query.NewCursor(s.guarded(), source, s.queryOptions()...)
}

// Assert adds facts built on the host side to the engine's database. Each
// fact must be a Compound or an Atom. It returns ErrAssertUnsupported if the
// engine cannot accept facts.
func (s *Session) Assert(facts ...value.Value) error {
	asserter, ok := s.engine.(engine.Asserter)
	if !ok {
		return ErrAssertUnsupported
	}
	terms := make([]engine.Term, len(facts))
	for i, f := range facts {
		switch f.(type) {
		case value.Compound, value.Atom:
		default:
			return fmt.Errorf("assert: fact %d (%v) is not a compound or atom", i, f)
		}
		terms[i] = convert.ToTerm(f)
	}

	s.mu.Lock()
	err := asserter.Assert(terms...)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("assert: %w", err)
	}
	s.log.Debug("facts asserted", zap.Int("count", len(terms)))
	return nil
}

func (s *Session) queryOptions() []query.Option {
	return []query.Option{query.WithFallbackHandler(s.fallback)}
}

func (s *Session) fallback(fb convert.Fallback) {
	s.log.Warn("term downgraded to text",
		zap.String("kind", fb.Kind),
		zap.Ints("path", fb.Path),
		zap.String("text", fb.Text))
	if s.onFallback != nil {
		s.onFallback(fb)
	}
}

func (s *Session) logOutcome(source string, err error) {
	if err != nil {
		s.log.Info("query failed", zap.String("query", source), zap.Error(err))
		return
	}
	s.log.Debug("query done", zap.String("query", source))
}

// guarded returns a view of the engine whose every call holds the session
// lock.
func (s *Session) guarded() engine.Engine {
	return lockedEngine{s: s}
}

type lockedEngine struct {
	s *Session
}

func (l lockedEngine) LoadModule(name, source string) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.s.engine.LoadModule(name, source)
}

func (l lockedEngine) RunQuery(source string) engine.Stream {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return lockedStream{s: l.s, inner: l.s.engine.RunQuery(source)}
}

type lockedStream struct {
	s     *Session
	inner engine.Stream
}

func (l lockedStream) Next() (engine.Answer, bool) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.inner.Next()
}
