// Package enginetest provides a scripted engine for testing code that sits on
// top of the engine boundary. It resolves nothing: every query replays the
// answers registered for its exact source text and counts what it was asked
// to do.
package enginetest

import (
	"sync"

	"termbridge/internal/engine"
)

// Engine is a scripted engine.Engine and engine.Asserter.
type Engine struct {
	mu       sync.Mutex
	scripts  map[string][]engine.Answer
	gates    map[string]chan struct{}
	modules  map[string]string
	asserted []engine.Term
	runs     int
	steps    int

	// LoadErr, when set, is returned by every LoadModule call.
	LoadErr error
	// AssertErr, when set, is returned by every Assert call.
	AssertErr error
}

// New returns an empty scripted engine. Queries without a script fail.
func New() *Engine {
	return &Engine{
		scripts: make(map[string][]engine.Answer),
		gates:   make(map[string]chan struct{}),
		modules: make(map[string]string),
	}
}

// On registers the answers query replays, in order. The stream ends after the
// last one.
func (e *Engine) On(query string, answers ...engine.Answer) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scripts[query] = answers
	return e
}

// Block makes every step of query wait until the returned release function is
// called. It models a resolution step that does not terminate on its own.
func (e *Engine) Block(query string) (release func()) {
	gate := make(chan struct{})
	e.mu.Lock()
	e.gates[query] = gate
	e.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// LoadModule records source under name.
func (e *Engine) LoadModule(name, source string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.LoadErr != nil {
		return e.LoadErr
	}
	e.modules[name] = source
	return nil
}

// Module returns the source last loaded under name.
func (e *Engine) Module(name string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	src, ok := e.modules[name]
	return src, ok
}

// Assert records facts.
func (e *Engine) Assert(facts ...engine.Term) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.AssertErr != nil {
		return e.AssertErr
	}
	e.asserted = append(e.asserted, facts...)
	return nil
}

// Asserted returns every fact passed to Assert so far.
func (e *Engine) Asserted() []engine.Term {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]engine.Term(nil), e.asserted...)
}

// RunQuery returns a stream over the answers scripted for query. The script
// is looked up lazily, on the first step.
func (e *Engine) RunQuery(query string) engine.Stream {
	e.mu.Lock()
	e.runs++
	e.mu.Unlock()
	return &stream{engine: e, query: query}
}

// Runs reports how many times RunQuery was called.
func (e *Engine) Runs() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runs
}

// Steps reports how many times Next was called across all streams.
func (e *Engine) Steps() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.steps
}

type stream struct {
	engine  *Engine
	query   string
	answers []engine.Answer
	loaded  bool
}

func (s *stream) Next() (engine.Answer, bool) {
	e := s.engine
	e.mu.Lock()
	e.steps++
	gate := e.gates[s.query]
	if !s.loaded {
		script, ok := e.scripts[s.query]
		if !ok {
			script = []engine.Answer{engine.False{}}
		}
		s.answers = script
		s.loaded = true
	}
	e.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if len(s.answers) == 0 {
		return nil, false
	}
	ans := s.answers[0]
	s.answers = s.answers[1:]
	return ans, true
}
