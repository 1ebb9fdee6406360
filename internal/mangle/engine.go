// Package mangle runs Google Mangle (Datalog) behind the termbridge engine
// boundary. Modules are Mangle source units; a query is a single atom whose
// answers are read from the store after evaluation to fixpoint.
package mangle

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
	"go.uber.org/zap"

	"termbridge/internal/engine"
	"termbridge/internal/logging"
)

// Config holds Mangle engine configuration.
type Config struct {
	// FactLimit caps the facts one evaluation may derive. Zero means no cap.
	FactLimit int
	// SlowEval is the evaluation time above which a warning is logged.
	// Zero disables the warning.
	SlowEval time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{FactLimit: 1000000, SlowEval: time.Second}
}

// Engine is an engine.Engine and engine.Asserter over Mangle. It is safe for
// concurrent use, though a session drives it from one goroutine at a time.
type Engine struct {
	config Config
	log    *zap.Logger

	mu       sync.RWMutex
	modules  map[string]parse.SourceUnit
	order    []string
	asserted []ast.Atom
	store    factstore.FactStore
	known    map[ast.PredicateSym]bool
	strata   int
}

// Stats describes the current program and store.
type Stats struct {
	Modules         []string
	TotalFacts      int
	PredicateCounts map[string]int
	Strata          int
}

// NewEngine creates an engine with no modules loaded.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		config:  cfg,
		log:     logging.Get(logging.CategoryEngine),
		modules: make(map[string]parse.SourceUnit),
		store:   factstore.NewSimpleInMemoryStore(),
		known:   make(map[ast.PredicateSym]bool),
	}
}

// LoadModule parses source as a Mangle unit and (re)evaluates the program
// with it. A module name already in use is replaced. If parsing, analysis
// or evaluation fails the engine keeps its previous program.
func (e *Engine) LoadModule(name, source string) error {
	unit, err := parse.Unit(strings.NewReader(source))
	if err != nil {
		return fmt.Errorf("failed to parse module %s: %w", name, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	prev, hadPrev := e.modules[name]
	e.modules[name] = unit
	if !hadPrev {
		e.order = append(e.order, name)
	}
	if err := e.rebuildLocked(); err != nil {
		if hadPrev {
			e.modules[name] = prev
		} else {
			delete(e.modules, name)
			e.order = e.order[:len(e.order)-1]
		}
		return fmt.Errorf("failed to load module %s: %w", name, err)
	}
	e.log.Debug("module loaded",
		zap.String("module", name),
		zap.Int("clauses", len(unit.Clauses)),
		zap.Int("decls", len(unit.Decls)))
	return nil
}

// Assert adds ground facts and re-evaluates the program. Each fact must be
// an Atom or a Compound whose arguments are atoms, strings, integers that
// fit in 64 bits, or floats.
func (e *Engine) Assert(facts ...engine.Term) error {
	atoms := make([]ast.Atom, 0, len(facts))
	for _, f := range facts {
		a, err := termToAtom(f)
		if err != nil {
			return err
		}
		atoms = append(atoms, a)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(e.asserted)
	e.asserted = append(e.asserted, atoms...)
	if err := e.rebuildLocked(); err != nil {
		e.asserted = e.asserted[:n]
		return fmt.Errorf("failed to assert facts: %w", err)
	}
	return nil
}

// rebuildLocked analyzes every module plus the asserted facts and evaluates
// them into a fresh store. State is only replaced on success.
func (e *Engine) rebuildLocked() error {
	timer := logging.StartTimer(logging.CategoryEngine, "rebuild")
	defer func() {
		if e.config.SlowEval > 0 {
			timer.StopWithThreshold(e.config.SlowEval)
		} else {
			timer.Stop()
		}
	}()

	var unit parse.SourceUnit
	for _, name := range e.order {
		m := e.modules[name]
		unit.Clauses = append(unit.Clauses, m.Clauses...)
		unit.Decls = append(unit.Decls, m.Decls...)
	}
	for _, a := range e.asserted {
		unit.Clauses = append(unit.Clauses, ast.Clause{Head: a})
	}

	programInfo, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return fmt.Errorf("analysis: %w", err)
	}

	store := factstore.NewSimpleInMemoryStore()
	limit := e.config.FactLimit
	if limit <= 0 {
		limit = math.MaxInt32
	}
	stats, err := mengine.EvalProgramWithStats(programInfo, store, mengine.WithCreatedFactLimit(limit))
	if err != nil {
		if e.config.FactLimit > 0 && strings.Contains(err.Error(), "limit") {
			e.log.Warn("derived facts exceeded limit", zap.Int("limit", e.config.FactLimit))
		}
		return fmt.Errorf("evaluation: %w", err)
	}

	known := make(map[ast.PredicateSym]bool, len(programInfo.Decls))
	for sym := range programInfo.Decls {
		known[sym] = true
	}
	for _, c := range unit.Clauses {
		known[c.Head.Predicate] = true
	}

	e.store = store
	e.known = known
	e.strata = len(stats.Strata)
	return nil
}

// RunQuery starts answering source. The query is parsed and matched on the
// stream's first Next.
func (e *Engine) RunQuery(source string) engine.Stream {
	return &stream{engine: e, source: source}
}

// Stats returns overall statistics for the program and store.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	counts := make(map[string]int)
	total := 0
	for _, sym := range e.store.ListPredicates() {
		n := 0
		_ = e.store.GetFacts(ast.NewQuery(sym), func(ast.Atom) error {
			n++
			return nil
		})
		counts[fmt.Sprintf("%s/%d", sym.Symbol, sym.Arity)] = n
		total += n
	}
	return Stats{
		Modules:         append([]string(nil), e.order...),
		TotalFacts:      total,
		PredicateCounts: counts,
		Strata:          e.strata,
	}
}

// stream defers all work to the first Next, which matches the goal against
// the store as it is at that moment and buffers the answers. The store is
// finite and GetFacts only pushes, so later calls just hand out the buffer.
type stream struct {
	engine  *Engine
	source  string
	started bool
	answers []engine.Answer
}

func (s *stream) Next() (engine.Answer, bool) {
	if !s.started {
		s.started = true
		s.answers = s.engine.answer(s.source)
	}
	if len(s.answers) == 0 {
		return nil, false
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	return a, true
}

// answer resolves source against the current store.
func (e *Engine) answer(source string) []engine.Answer {
	clean := strings.TrimSpace(source)
	clean = strings.TrimSpace(strings.TrimPrefix(clean, "?"))
	clean = strings.TrimSpace(strings.TrimSuffix(clean, "."))

	switch clean {
	case "true":
		return []engine.Answer{engine.True{}}
	case "false", "fail":
		return []engine.Answer{engine.False{}}
	}

	goal, err := parse.Atom(clean)
	if err != nil {
		return []engine.Answer{engine.Exception{Term: syntaxError(err.Error(), source)}}
	}

	e.mu.RLock()
	store, known := e.store, e.known
	e.mu.RUnlock()

	if !known[goal.Predicate] {
		return []engine.Answer{engine.Exception{Term: existenceError(goal.Predicate)}}
	}

	var answers []engine.Answer
	err = store.GetFacts(ast.NewQuery(goal.Predicate), func(fact ast.Atom) error {
		if vars, ok := match(goal, fact); ok {
			if len(vars) == 0 {
				answers = append(answers, engine.True{})
			} else {
				answers = append(answers, engine.Bindings{Vars: vars})
			}
		}
		return nil
	})
	if err != nil {
		return []engine.Answer{engine.ErrorTerm{Term: engine.Compound{
			Functor: "store_error",
			Args:    []engine.Term{engine.String(err.Error())},
		}}}
	}
	return append(answers, engine.False{})
}

// match unifies a query atom against a ground fact. Wildcards bind nothing;
// a variable that occurs twice must see equal constants.
func match(goal, fact ast.Atom) (map[string]engine.Term, bool) {
	if len(goal.Args) != len(fact.Args) {
		return nil, false
	}
	seen := make(map[string]ast.BaseTerm)
	vars := make(map[string]engine.Term)
	for i, arg := range goal.Args {
		got := fact.Args[i]
		switch q := arg.(type) {
		case ast.Variable:
			if q.Symbol == "_" {
				continue
			}
			if prev, ok := seen[q.Symbol]; ok {
				if !sameTerm(prev, got) {
					return nil, false
				}
				continue
			}
			seen[q.Symbol] = got
			vars[q.Symbol] = fromBaseTerm(got)
		default:
			if !sameTerm(arg, got) {
				return nil, false
			}
		}
	}
	return vars, true
}

func sameTerm(a, b ast.BaseTerm) bool {
	ca, okA := a.(ast.Constant)
	cb, okB := b.(ast.Constant)
	if okA && okB {
		return ca.Type == cb.Type && ca.String() == cb.String()
	}
	return a.String() == b.String()
}

func syntaxError(msg, query string) engine.Term {
	return engine.Compound{Functor: "error", Args: []engine.Term{
		engine.Compound{Functor: "syntax_error", Args: []engine.Term{engine.Atom(msg)}},
		engine.String(query),
	}}
}

func existenceError(sym ast.PredicateSym) engine.Term {
	indicator := engine.Compound{Functor: "/", Args: []engine.Term{
		engine.Atom(sym.Symbol),
		engine.IntegerFromInt64(int64(sym.Arity)),
	}}
	return engine.Compound{Functor: "error", Args: []engine.Term{
		engine.Compound{Functor: "existence_error", Args: []engine.Term{engine.Atom("procedure"), indicator}},
		indicator,
	}}
}
