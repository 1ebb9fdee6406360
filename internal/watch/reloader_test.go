package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"termbridge/internal/engine/enginetest"
	"termbridge/internal/session"
)

type reload struct {
	name string
	err  error
}

func startReloader(t *testing.T, loader Loader) (*Reloader, chan reload) {
	t.Helper()
	events := make(chan reload, 16)
	r, err := New(loader,
		WithDebounce(20*time.Millisecond),
		WithReloadHook(func(name string, err error) { events <- reload{name, err} }),
	)
	require.NoError(t, err)
	return r, events
}

func waitReload(t *testing.T, events <-chan reload) reload {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("no reload within 5s")
		return reload{}
	}
}

func TestReloaderPicksUpEdits(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "family.pl")
	require.NoError(t, os.WriteFile(path, []byte("parent(tom, bob)."), 0644))

	eng := enginetest.New()
	sess := session.New(eng)
	require.NoError(t, sess.LoadModuleFromFile("family", path))

	r, events := startReloader(t, sess)
	require.NoError(t, r.Add("family", path))
	require.NoError(t, r.Start(context.Background()))

	require.NoError(t, os.WriteFile(path, []byte("parent(tom, liz)."), 0644))
	ev := waitReload(t, events)
	require.NoError(t, ev.err)
	assert.Equal(t, "family", ev.name)

	require.NoError(t, r.Stop())

	src, _ := eng.Module("family")
	assert.Equal(t, "parent(tom, liz).", src)
	st := r.Stats()
	assert.GreaterOrEqual(t, st.Reloads, 1)
	assert.Equal(t, path, st.LastEventPath)
}

func TestReloaderIgnoresUnregisteredFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "m.pl")
	require.NoError(t, os.WriteFile(path, []byte("a."), 0644))

	r, events := startReloader(t, session.New(enginetest.New()))
	require.NoError(t, r.Add("m", path))
	require.NoError(t, r.Start(context.Background()))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.pl"), []byte("b."), 0644))
	select {
	case ev := <-events:
		t.Fatalf("unexpected reload of %s", ev.name)
	case <-time.After(150 * time.Millisecond):
	}
	require.NoError(t, r.Stop())
	assert.Zero(t, r.Stats().Events)
}

func TestReloaderReportsLoadErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "bad.pl")
	require.NoError(t, os.WriteFile(path, []byte("ok."), 0644))

	eng := enginetest.New()
	eng.LoadErr = errors.New("rejected")
	r, events := startReloader(t, session.New(eng))
	require.NoError(t, r.Add("bad", path))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, r.Start(ctx))

	require.NoError(t, os.WriteFile(path, []byte("p("), 0644))
	ev := waitReload(t, events)

	var loadErr *session.LoadError
	assert.True(t, errors.As(ev.err, &loadErr))
	assert.GreaterOrEqual(t, r.Stats().Errors, 1)

	cancel()
	require.NoError(t, r.Stop())
}

func TestReloaderIsSingleUse(t *testing.T) {
	defer goleak.VerifyNone(t)

	r, _ := startReloader(t, session.New(enginetest.New()))
	ctx := context.Background()
	require.NoError(t, r.Start(ctx))
	require.NoError(t, r.Start(ctx), "starting twice is harmless")
	require.NoError(t, r.Stop())

	assert.ErrorIs(t, r.Start(ctx), ErrStopped)
	assert.NoError(t, r.Stop())
}

func TestReloaderStopWithoutStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	r, _ := startReloader(t, session.New(enginetest.New()))
	require.NoError(t, r.Stop())
	assert.ErrorIs(t, r.Start(context.Background()), ErrStopped)
}
