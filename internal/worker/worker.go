// Package worker runs sessions on dedicated goroutines so callers can bound
// how long they wait for an answer.
//
// A resolution step cannot be interrupted. When a caller's context ends
// before the step does, the caller gets ErrAbandoned and the worker is
// poisoned: its goroutine is left to finish on its own and the worker takes
// no further requests. Pool replaces poisoned workers.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"termbridge/internal/logging"
	"termbridge/internal/query"
	"termbridge/internal/session"
	"termbridge/internal/value"
)

var (
	// ErrAbandoned is returned when the caller's context ended while the
	// worker was still running its request. The error also wraps ctx.Err().
	ErrAbandoned = errors.New("worker abandoned")
	// ErrPoisoned is returned for requests made to an abandoned worker.
	ErrPoisoned = errors.New("worker poisoned by an abandoned request")
	// ErrClosed is returned for requests made after Close.
	ErrClosed = errors.New("worker closed")
)

// Worker owns one session and serves it from a single goroutine.
type Worker struct {
	id   int
	sess *session.Session
	log  *zap.Logger

	reqs      chan func()
	quit      chan struct{}
	closeOnce sync.Once
	poisoned  atomic.Bool
}

// New starts a worker goroutine over sess.
func New(id int, sess *session.Session) *Worker {
	w := &Worker{
		id:   id,
		sess: sess,
		log:  logging.Get(logging.CategoryWorker).With(zap.Int("worker", id), zap.String("session", sess.ID().String())),
		reqs: make(chan func()),
		quit: make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *Worker) loop() {
	for {
		select {
		case fn := <-w.reqs:
			fn()
		case <-w.quit:
			return
		}
	}
}

// ID returns the worker's pool-local id.
func (w *Worker) ID() int { return w.id }

// Session returns the session the worker serves.
func (w *Worker) Session() *session.Session { return w.sess }

// Poisoned reports whether a request was abandoned on this worker.
func (w *Worker) Poisoned() bool { return w.poisoned.Load() }

// Close stops the worker goroutine once it is idle. A goroutine stuck in an
// abandoned step exits when that step returns.
func (w *Worker) Close() {
	w.closeOnce.Do(func() { close(w.quit) })
}

// do runs fn on the worker goroutine and waits for it or for ctx.
func (w *Worker) do(ctx context.Context, op string, fn func()) error {
	if w.poisoned.Load() {
		return ErrPoisoned
	}
	done := make(chan struct{})
	select {
	case w.reqs <- func() { defer close(done); fn() }:
	case <-w.quit:
		return ErrClosed
	case <-ctx.Done():
		return fmt.Errorf("worker %d busy: %w", w.id, ctx.Err())
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		w.poisoned.Store(true)
		w.log.Warn("request abandoned", zap.String("op", op), zap.Error(ctx.Err()))
		return fmt.Errorf("%s: %w: %w", op, ErrAbandoned, ctx.Err())
	}
}

// LoadModuleFromText loads source as module name.
func (w *Worker) LoadModuleFromText(ctx context.Context, name, source string) error {
	var err error
	if derr := w.do(ctx, "load "+name, func() { err = w.sess.LoadModuleFromText(name, source) }); derr != nil {
		return derr
	}
	return err
}

// LoadModuleFromFile reads path and loads it as module name.
func (w *Worker) LoadModuleFromFile(ctx context.Context, name, path string) error {
	var err error
	if derr := w.do(ctx, "load "+name, func() { err = w.sess.LoadModuleFromFile(name, path) }); derr != nil {
		return derr
	}
	return err
}

// QueryFirst runs session.QueryFirst on the worker.
func (w *Worker) QueryFirst(ctx context.Context, source string) (query.Bindings, bool, error) {
	var (
		b   query.Bindings
		ok  bool
		err error
	)
	if derr := w.do(ctx, "query", func() { b, ok, err = w.sess.QueryFirst(source) }); derr != nil {
		return nil, false, derr
	}
	return b, ok, err
}

// QueryAll runs session.QueryAll on the worker.
func (w *Worker) QueryAll(ctx context.Context, source string) ([]query.Bindings, error) {
	var (
		all []query.Bindings
		err error
	)
	if derr := w.do(ctx, "query", func() { all, err = w.sess.QueryAll(source) }); derr != nil {
		return nil, derr
	}
	return all, err
}

// Assert runs session.Assert on the worker.
func (w *Worker) Assert(ctx context.Context, facts ...value.Value) error {
	var err error
	if derr := w.do(ctx, "assert", func() { err = w.sess.Assert(facts...) }); derr != nil {
		return derr
	}
	return err
}
