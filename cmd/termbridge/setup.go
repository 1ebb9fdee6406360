package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"termbridge/internal/config"
	"termbridge/internal/convert"
	"termbridge/internal/mangle"
	"termbridge/internal/session"
	"termbridge/internal/transcript"
	"termbridge/internal/worker"
)

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// parseLoads turns --load name=path flags into module configs. A bare path
// is named after its file.
func parseLoads(specs []string) ([]config.ModuleConfig, error) {
	mods := make([]config.ModuleConfig, 0, len(specs))
	for _, spec := range specs {
		name, path, ok := strings.Cut(spec, "=")
		if !ok {
			path = spec
			name = moduleName(spec)
		}
		if name == "" || path == "" {
			return nil, fmt.Errorf("bad --load %q: want name=path", spec)
		}
		mods = append(mods, config.ModuleConfig{Name: name, Path: path})
	}
	return mods, nil
}

func moduleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// newPool builds the worker pool described by c and loads the configured
// modules followed by extra. Each load is bounded by the query timeout.
func newPool(c *config.Config, extra []config.ModuleConfig) (*worker.Pool, error) {
	if c.Engine.Backend != "mangle" {
		return nil, fmt.Errorf("unsupported backend %q", c.Engine.Backend)
	}
	engCfg := engineConfig(c)
	pool := worker.NewPool(worker.PoolConfig{
		Size:        c.Engine.Workers,
		LoadTimeout: timeout,
	}, func() (*session.Session, error) {
		return session.New(mangle.NewEngine(engCfg), session.WithFallbackHandler(reportFallback)), nil
	})

	for _, m := range append(append([]config.ModuleConfig(nil), c.Modules...), extra...) {
		if err := loadFile(pool, m); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return pool, nil
}

var (
	fallbackMu  sync.Mutex
	fallbackOut io.Writer = os.Stderr
)

// reportFallback warns that an answer term was printed as text rather than
// its structured value. Workers call it concurrently.
func reportFallback(fb convert.Fallback) {
	logger.Warn("term downgraded to text",
		zap.String("kind", fb.Kind),
		zap.Ints("path", fb.Path),
		zap.String("text", fb.Text))

	fallbackMu.Lock()
	defer fallbackMu.Unlock()
	fmt.Fprintln(fallbackOut, mutedStyle.Render(fmt.Sprintf("warning: %s at %v shown as text: %s", fb.Kind, fb.Path, fb.Text)))
}

func engineConfig(c *config.Config) mangle.Config {
	engCfg := mangle.DefaultConfig()
	engCfg.FactLimit = c.Engine.FactLimit
	return engCfg
}

func loadFile(pool *worker.Pool, m config.ModuleConfig) error {
	if err := pool.LoadModuleFromFile(m.Name, m.Path); err != nil {
		return err
	}
	logger.Debug("module loaded", zap.String("module", m.Name), zap.String("path", m.Path))
	return nil
}

// recorder writes query outcomes to the transcript when one is configured.
type recorder struct {
	store     *transcript.Store
	sessionID string
}

func openRecorder(path string, enabled bool, sessionID string) (*recorder, error) {
	if !enabled || path == "" {
		return &recorder{}, nil
	}
	store, err := transcript.Open(path)
	if err != nil {
		return nil, err
	}
	return &recorder{store: store, sessionID: sessionID}, nil
}

func (r *recorder) record(ctx context.Context, goal string, answers []string, err error, elapsed time.Duration) {
	if r.store == nil {
		return
	}
	e := transcript.Entry{
		SessionID: r.sessionID,
		Query:     goal,
		Answers:   answers,
		Duration:  elapsed,
	}
	if err != nil {
		e.Err = err.Error()
	}
	if _, rerr := r.store.Record(ctx, e); rerr != nil {
		logger.Warn("failed to record query", zap.Error(rerr))
	}
}

func (r *recorder) Close() error {
	if r.store == nil {
		return nil
	}
	return r.store.Close()
}
