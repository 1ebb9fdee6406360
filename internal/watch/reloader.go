// Package watch reloads modules when their source files change on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"termbridge/internal/logging"
)

// ErrStopped is returned by Start once the reloader has been stopped. A
// Reloader is single-use.
var ErrStopped = errors.New("reloader stopped")

// Loader loads a module from a file. *session.Session and *worker.Pool
// both satisfy it.
type Loader interface {
	LoadModuleFromFile(name, path string) error
}

// Stats tracks reloader activity.
type Stats struct {
	Events        int
	Reloads       int
	Errors        int
	LastEventPath string
	LastEventTime time.Time
}

// Option configures a Reloader.
type Option func(*Reloader)

// WithDebounce sets how long a file must stay quiet before it is reloaded.
func WithDebounce(d time.Duration) Option {
	return func(r *Reloader) { r.debounce = d }
}

// WithReloadHook calls fn after every reload attempt with its outcome.
func WithReloadHook(fn func(name string, err error)) Option {
	return func(r *Reloader) { r.onReload = fn }
}

// Reloader watches registered module files and reloads them through a
// Loader after they change. Reload errors are logged and counted.
type Reloader struct {
	loader   Loader
	watcher  *fsnotify.Watcher
	log      *zap.Logger
	debounce time.Duration
	onReload func(name string, err error)

	mu      sync.Mutex
	modules map[string]string // absolute path -> module name
	dirs    map[string]bool
	pending map[string]time.Time
	stats   Stats
	running bool
	stopped bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a reloader over loader. Call Add to register files and Start
// to begin watching.
func New(loader Loader, opts ...Option) (*Reloader, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	r := &Reloader{
		loader:   loader,
		watcher:  w,
		log:      logging.Get(logging.CategoryWatch),
		debounce: 200 * time.Millisecond,
		modules:  make(map[string]string),
		dirs:     make(map[string]bool),
		pending:  make(map[string]time.Time),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Add registers path as the source of module name. The containing
// directory is watched so editors that replace files are seen too.
func (r *Reloader) Add(name, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	dir := filepath.Dir(abs)

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.dirs[dir] {
		if err := r.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		r.dirs[dir] = true
	}
	r.modules[abs] = name
	r.log.Debug("watching module", zap.String("module", name), zap.String("path", abs))
	return nil
}

// Start begins watching in a background goroutine. It returns immediately.
// Starting a running reloader does nothing; starting a stopped one returns
// ErrStopped.
func (r *Reloader) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return ErrStopped
	}
	if r.running {
		return nil
	}
	r.running = true
	go r.run(ctx)
	return nil
}

// Stop ends watching, waits for the event loop to exit and releases the
// underlying watcher. Later calls do nothing.
func (r *Reloader) Stop() error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	running := r.running
	r.running = false
	r.mu.Unlock()

	if running {
		close(r.stopCh)
		<-r.doneCh
	}
	return r.watcher.Close()
}

// Stats returns a snapshot of the reloader's counters.
func (r *Reloader) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *Reloader) run(ctx context.Context) {
	defer close(r.doneCh)

	tick := r.debounce / 2
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			r.handleEvent(event)
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.log.Error("watcher error", zap.Error(err))
			r.mu.Lock()
			r.stats.Errors++
			r.mu.Unlock()
		case <-ticker.C:
			r.flush()
		}
	}
}

func (r *Reloader) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	path := filepath.Clean(event.Name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.modules[path]; !ok {
		return
	}
	r.stats.Events++
	r.stats.LastEventPath = path
	r.stats.LastEventTime = time.Now()
	r.pending[path] = time.Now()
}

// flush reloads every file that has been quiet for the debounce window.
func (r *Reloader) flush() {
	now := time.Now()
	type due struct{ name, path string }
	var ready []due

	r.mu.Lock()
	for path, at := range r.pending {
		if now.Sub(at) >= r.debounce {
			ready = append(ready, due{name: r.modules[path], path: path})
			delete(r.pending, path)
		}
	}
	r.mu.Unlock()

	for _, d := range ready {
		r.reload(d.name, d.path)
	}
}

func (r *Reloader) reload(name, path string) {
	err := r.loader.LoadModuleFromFile(name, path)

	r.mu.Lock()
	if err != nil {
		r.stats.Errors++
	} else {
		r.stats.Reloads++
	}
	r.mu.Unlock()

	switch {
	case err == nil:
		r.log.Info("module reloaded", zap.String("module", name), zap.String("path", path))
	case errors.Is(err, os.ErrNotExist):
		r.log.Debug("module file gone, keeping loaded version", zap.String("module", name), zap.String("path", path))
	default:
		r.log.Warn("module reload failed", zap.String("module", name), zap.String("path", path), zap.Error(err))
	}
	if r.onReload != nil {
		r.onReload(name, err)
	}
}
