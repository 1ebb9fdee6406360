package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"termbridge/internal/logging"
	"termbridge/internal/query"
	"termbridge/internal/session"
	"termbridge/internal/value"
)

// Factory builds the session for a new worker.
type Factory func() (*session.Session, error)

// PoolConfig configures a Pool.
type PoolConfig struct {
	// Size is the number of workers. Values below one mean one.
	Size int
	// LoadTimeout bounds LoadModuleFromFile, which takes no context.
	LoadTimeout time.Duration
}

// DefaultPoolConfig returns a two-worker pool with a 30 second load timeout.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{Size: 2, LoadTimeout: 30 * time.Second}
}

// Pool hands requests to a fixed number of workers. Modules and facts
// loaded through the pool are recorded and brought into every worker before
// it serves a request, including workers built to replace poisoned ones.
type Pool struct {
	config  PoolConfig
	factory Factory
	log     *zap.Logger

	// slots holds idle workers. A nil entry is a slot whose worker must be
	// built on next use.
	slots chan *Worker

	mu      sync.Mutex
	closed  bool
	nextID  int
	modules []module
	facts   [][]value.Value
	synced  map[*Worker]*applied
}

type module struct {
	name   string
	source string
}

type applied struct {
	modules map[string]string
	facts   int
}

// BatchResult is the outcome of one query in a Batch.
type BatchResult struct {
	Query     string
	Solutions []query.Bindings
	Err       error
}

// NewPool creates a pool. Workers are built lazily by factory.
func NewPool(cfg PoolConfig, factory Factory) *Pool {
	if cfg.Size < 1 {
		cfg.Size = 1
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = DefaultPoolConfig().LoadTimeout
	}
	p := &Pool{
		config:  cfg,
		factory: factory,
		log:     logging.Get(logging.CategoryWorker),
		slots:   make(chan *Worker, cfg.Size),
		synced:  make(map[*Worker]*applied),
	}
	for i := 0; i < cfg.Size; i++ {
		p.slots <- nil
	}
	return p
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int { return p.config.Size }

// acquire takes an idle worker, building one if the slot is empty, and
// brings it up to date with the recorded modules and facts.
func (p *Pool) acquire(ctx context.Context) (*Worker, error) {
	var w *Worker
	select {
	case w = <-p.slots:
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for worker: %w", ctx.Err())
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		if w != nil {
			w.Close()
		}
		p.slots <- nil
		return nil, ErrClosed
	}

	if w == nil {
		var err error
		if w, err = p.spawn(); err != nil {
			p.slots <- nil
			return nil, err
		}
	}
	if err := p.sync(ctx, w); err != nil {
		p.release(w)
		return nil, err
	}
	return w, nil
}

func (p *Pool) spawn() (*Worker, error) {
	sess, err := p.factory()
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	p.mu.Lock()
	p.nextID++
	w := New(p.nextID, sess)
	p.synced[w] = &applied{modules: make(map[string]string)}
	p.mu.Unlock()
	p.log.Debug("worker started", zap.Int("worker", w.ID()))
	return w, nil
}

func (p *Pool) sync(ctx context.Context, w *Worker) error {
	p.mu.Lock()
	state := p.synced[w]
	modules := append([]module(nil), p.modules...)
	facts := append([][]value.Value(nil), p.facts[state.facts:]...)
	p.mu.Unlock()

	for _, m := range modules {
		if state.modules[m.name] == m.source {
			continue
		}
		if err := w.LoadModuleFromText(ctx, m.name, m.source); err != nil {
			return fmt.Errorf("replay module %s on worker %d: %w", m.name, w.ID(), err)
		}
		state.modules[m.name] = m.source
	}
	for _, batch := range facts {
		if err := w.Assert(ctx, batch...); err != nil {
			return fmt.Errorf("replay facts on worker %d: %w", w.ID(), err)
		}
		state.facts++
	}
	return nil
}

// release returns w to the pool. A poisoned worker is discarded and its
// slot left empty for a replacement.
func (p *Pool) release(w *Worker) {
	p.mu.Lock()
	closed := p.closed
	if w.Poisoned() || closed {
		delete(p.synced, w)
	}
	p.mu.Unlock()

	switch {
	case closed:
		w.Close()
		p.slots <- nil
	case w.Poisoned():
		p.log.Warn("replacing poisoned worker", zap.Int("worker", w.ID()))
		w.Close()
		p.slots <- nil
	default:
		p.slots <- w
	}
}

// LoadModuleFromText loads source as module name on one worker and records
// it for the rest. Nothing is recorded if the load fails.
func (p *Pool) LoadModuleFromText(ctx context.Context, name, source string) error {
	w, err := p.acquire(ctx)
	if err != nil {
		return err
	}
	defer p.release(w)

	if err := w.LoadModuleFromText(ctx, name, source); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.synced[w].modules[name] = source
	for i := range p.modules {
		if p.modules[i].name == name {
			p.modules[i].source = source
			return nil
		}
	}
	p.modules = append(p.modules, module{name: name, source: source})
	return nil
}

// LoadModuleFromFile reads path and loads it through the pool, bounded by
// the configured load timeout.
func (p *Pool) LoadModuleFromFile(name, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &session.IOError{Path: path, Err: err}
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.config.LoadTimeout)
	defer cancel()
	return p.LoadModuleFromText(ctx, name, string(data))
}

// Assert adds facts on one worker and records them for the rest.
func (p *Pool) Assert(ctx context.Context, facts ...value.Value) error {
	w, err := p.acquire(ctx)
	if err != nil {
		return err
	}
	defer p.release(w)

	if err := w.Assert(ctx, facts...); err != nil {
		return err
	}
	p.mu.Lock()
	p.facts = append(p.facts, facts)
	p.synced[w].facts = len(p.facts)
	p.mu.Unlock()
	return nil
}

// QueryFirst runs the query on an idle worker.
func (p *Pool) QueryFirst(ctx context.Context, source string) (query.Bindings, bool, error) {
	w, err := p.acquire(ctx)
	if err != nil {
		return nil, false, err
	}
	defer p.release(w)
	return w.QueryFirst(ctx, source)
}

// QueryAll runs the query on an idle worker.
func (p *Pool) QueryAll(ctx context.Context, source string) ([]query.Bindings, error) {
	w, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.release(w)
	return w.QueryAll(ctx, source)
}

// Batch runs every query with QueryAll, at most Size at a time. Results are
// in input order and carry their own errors. The returned error is non-nil
// only when ctx ended.
func (p *Pool) Batch(ctx context.Context, queries []string) ([]BatchResult, error) {
	results := make([]BatchResult, len(queries))
	var g errgroup.Group
	g.SetLimit(p.config.Size)
	for i, q := range queries {
		g.Go(func() error {
			sols, err := p.QueryAll(ctx, q)
			results[i] = BatchResult{Query: q, Solutions: sols, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	p.log.Debug("batch done", zap.Int("queries", len(queries)), zap.Int("failed", failed))
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// Close stops idle workers and refuses new requests. Workers in use are
// stopped when they are released.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errors.New("pool already closed")
	}
	p.closed = true
	p.mu.Unlock()

	for i := 0; i < p.config.Size; i++ {
		select {
		case w := <-p.slots:
			if w != nil {
				w.Close()
			}
			p.slots <- nil
		default:
		}
	}
	p.log.Debug("pool closed")
	return nil
}
