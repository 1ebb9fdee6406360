package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"termbridge/internal/engine"
	"termbridge/internal/engine/enginetest"
	"termbridge/internal/query"
	"termbridge/internal/session"
	"termbridge/internal/value"
)

func TestWorkerRunsRequests(t *testing.T) {
	defer goleak.VerifyNone(t)

	eng := enginetest.New().On("p(X).",
		engine.Bindings{Vars: map[string]engine.Term{"X": engine.Atom("a")}},
		engine.Bindings{Vars: map[string]engine.Term{"X": engine.Atom("b")}},
	)
	w := New(1, session.New(eng))
	defer w.Close()

	ctx := context.Background()
	require.NoError(t, w.LoadModuleFromText(ctx, "m", "p(a)."))
	src, ok := eng.Module("m")
	require.True(t, ok)
	assert.Equal(t, "p(a).", src)

	b, ok, err := w.QueryFirst(ctx, "p(X).")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, value.Atom("a"), b["X"])

	all, err := w.QueryAll(ctx, "p(X).")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, w.Assert(ctx, value.Atom("ready")))
	assert.Equal(t, []engine.Term{engine.Atom("ready")}, eng.Asserted())
}

func TestWorkerPassesSessionErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	eng := enginetest.New().On("boom.", engine.Exception{Term: engine.Atom("kaboom")})
	w := New(1, session.New(eng))
	defer w.Close()

	_, err := w.QueryAll(context.Background(), "boom.")
	assert.ErrorIs(t, err, query.ErrException)
	assert.False(t, w.Poisoned(), "engine errors do not poison the worker")

	err = w.LoadModuleFromFile(context.Background(), "ghost", "/does/not/exist.pl")
	var ioErr *session.IOError
	assert.True(t, errors.As(err, &ioErr))
}

func TestWorkerAbandonsOnDeadline(t *testing.T) {
	defer goleak.VerifyNone(t)

	eng := enginetest.New().On("slow.", engine.True{})
	release := eng.Block("slow.")
	w := New(1, session.New(eng))
	defer w.Close()
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := w.QueryFirst(ctx, "slow.")
	require.ErrorIs(t, err, ErrAbandoned)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, w.Poisoned())

	_, _, err = w.QueryFirst(context.Background(), "true.")
	assert.ErrorIs(t, err, ErrPoisoned)
}

func TestWorkerClosed(t *testing.T) {
	defer goleak.VerifyNone(t)

	w := New(1, session.New(enginetest.New()))
	w.Close()
	w.Close()

	_, err := w.QueryAll(context.Background(), "p.")
	assert.ErrorIs(t, err, ErrClosed)
}

// fleet builds sessions over fresh scripted engines and remembers them.
type fleet struct {
	mu       sync.Mutex
	engines  []*enginetest.Engine
	releases []func()
	script   func(*enginetest.Engine)
	loadErr  error
}

func (f *fleet) factory() (*session.Session, error) {
	eng := enginetest.New()
	if f.script != nil {
		f.script(eng)
	}
	eng.LoadErr = f.loadErr
	f.mu.Lock()
	f.engines = append(f.engines, eng)
	f.releases = append(f.releases, eng.Block("slow."))
	f.mu.Unlock()
	return session.New(eng), nil
}

func (f *fleet) engine(i int) *enginetest.Engine {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.engines[i]
}

func (f *fleet) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.engines)
}

func (f *fleet) releaseAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.releases {
		r()
	}
}

func TestPoolReplacesPoisonedWorker(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := &fleet{script: func(e *enginetest.Engine) {
		e.On("slow.", engine.True{}).On("ok.", engine.True{})
	}}
	p := NewPool(PoolConfig{Size: 1}, f.factory)
	defer f.releaseAll()
	defer p.Close()

	ctx := context.Background()
	require.NoError(t, p.LoadModuleFromText(ctx, "m", "fact(1)."))
	require.NoError(t, p.Assert(ctx, value.NewCompound("seen", value.Atom("x"))))
	require.Equal(t, 1, f.count())

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, _, err := p.QueryFirst(short, "slow.")
	require.ErrorIs(t, err, ErrAbandoned)

	_, ok, err := p.QueryFirst(ctx, "ok.")
	require.NoError(t, err)
	assert.True(t, ok)
	require.Equal(t, 2, f.count(), "a replacement worker is built")

	replacement := f.engine(1)
	src, loaded := replacement.Module("m")
	require.True(t, loaded, "modules are replayed into the replacement")
	assert.Equal(t, "fact(1).", src)
	assert.Equal(t, []engine.Term{
		engine.Compound{Functor: "seen", Args: []engine.Term{engine.Atom("x")}},
	}, replacement.Asserted())
}

func TestPoolReplaysModulesIntoEveryWorker(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := &fleet{}
	p := NewPool(PoolConfig{Size: 2}, f.factory)
	defer f.releaseAll()
	defer p.Close()

	ctx := context.Background()
	require.NoError(t, p.LoadModuleFromText(ctx, "m", "v1"))
	require.NoError(t, p.LoadModuleFromText(ctx, "m", "v2"))

	// Whatever worker serves a query is synced to the latest version first.
	results, err := p.Batch(ctx, []string{"a.", "b.", "c.", "d."})
	require.NoError(t, err)
	require.Len(t, results, 4)

	for i := 0; i < f.count(); i++ {
		src, ok := f.engine(i).Module("m")
		require.True(t, ok)
		assert.Equal(t, "v2", src, "engine %d", i)
	}
}

func TestPoolFailedLoadIsNotRecorded(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := &fleet{loadErr: errors.New("rejected")}
	p := NewPool(PoolConfig{Size: 1}, f.factory)
	defer f.releaseAll()
	defer p.Close()

	err := p.LoadModuleFromText(context.Background(), "bad", "p(")
	var loadErr *session.LoadError
	require.True(t, errors.As(err, &loadErr))

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Empty(t, p.modules)
}

func TestPoolBatchKeepsInputOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := &fleet{script: func(e *enginetest.Engine) {
		e.On("n(1).", engine.True{}).
			On("n(X).",
				engine.Bindings{Vars: map[string]engine.Term{"X": engine.IntegerFromInt64(1)}},
				engine.Bindings{Vars: map[string]engine.Term{"X": engine.IntegerFromInt64(2)}},
			).
			On("boom.", engine.Exception{Term: engine.Atom("kaboom")})
	}}
	p := NewPool(PoolConfig{Size: 3}, f.factory)
	defer f.releaseAll()
	defer p.Close()

	queries := []string{"n(X).", "boom.", "n(1).", "none.", "n(X)."}
	results, err := p.Batch(context.Background(), queries)
	require.NoError(t, err)
	require.Len(t, results, len(queries))

	for i, r := range results {
		assert.Equal(t, queries[i], r.Query)
	}
	assert.Len(t, results[0].Solutions, 2)
	assert.ErrorIs(t, results[1].Err, query.ErrException)
	assert.Equal(t, []query.Bindings{{}}, results[2].Solutions)
	assert.NoError(t, results[3].Err)
	assert.Empty(t, results[3].Solutions)
	assert.Equal(t, results[0].Solutions, results[4].Solutions)
	assert.LessOrEqual(t, f.count(), 3)
}

func TestPoolClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := &fleet{}
	p := NewPool(PoolConfig{Size: 2}, f.factory)
	defer f.releaseAll()

	_, _, err := p.QueryFirst(context.Background(), "x.")
	require.NoError(t, err)

	require.NoError(t, p.Close())
	assert.Error(t, p.Close())

	_, _, err = p.QueryFirst(context.Background(), "x.")
	assert.ErrorIs(t, err, ErrClosed)
}
