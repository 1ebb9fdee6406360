// Package logging provides config-driven categorized logging for termbridge.
// Each category gets its own zap logger. When a log directory is configured,
// each category writes to its own file there; otherwise all categories share
// stderr. Logging is controlled by DebugMode: when it is false, Get hands out
// no-op loggers and nothing is written.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot       Category = "boot"       // Startup and config
	CategorySession    Category = "session"    // Session lifecycle, module loading
	CategoryEngine     Category = "engine"     // Engine backend operations
	CategoryQuery      Category = "query"      // Query dispatch and answers
	CategoryWorker     Category = "worker"     // Bounded execution workers
	CategoryWatch      Category = "watch"      // Module file reloads
	CategoryTranscript Category = "transcript" // Query history store
)

// Categories lists every category in declaration order.
var Categories = []Category{
	CategoryBoot,
	CategorySession,
	CategoryEngine,
	CategoryQuery,
	CategoryWorker,
	CategoryWatch,
	CategoryTranscript,
}

// Options mirrors config.LoggingConfig to avoid an import cycle.
type Options struct {
	DebugMode  bool
	Categories map[string]bool
	Level      string
	JSONFormat bool
	// Dir, when set, receives one file per category. Empty means stderr.
	Dir string
}

type entry struct {
	logger *zap.Logger
	file   *os.File
}

var (
	mu      sync.RWMutex
	opts    Options
	level   = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	loggers = make(map[Category]*entry)
)

// Configure replaces the logging configuration. Loggers handed out earlier
// keep writing where they were created; call CloseAll first to reset them.
func Configure(o Options) error {
	lvl, err := parseLevel(o.Level)
	if err != nil {
		return err
	}
	if o.DebugMode && o.Dir != "" {
		if err := os.MkdirAll(o.Dir, 0755); err != nil {
			return fmt.Errorf("failed to create logs directory: %w", err)
		}
	}

	mu.Lock()
	opts = o
	level.SetLevel(lvl)
	mu.Unlock()

	if o.DebugMode {
		boot := Get(CategoryBoot)
		boot.Info("logging configured",
			zap.String("level", lvl.String()),
			zap.Bool("json", o.JSONFormat),
			zap.String("dir", o.Dir))
	}
	return nil
}

func parseLevel(s string) (zapcore.Level, error) {
	switch s {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
}

// IsDebugMode returns whether logging is enabled at all.
func IsDebugMode() bool {
	mu.RLock()
	defer mu.RUnlock()
	return opts.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled.
// Categories absent from the filter are enabled.
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if !opts.DebugMode {
		return false
	}
	enabled, exists := opts.Categories[string(category)]
	return !exists || enabled
}

// Get returns (or creates) the logger for a category. It returns a no-op
// logger if debug mode or the category is disabled.
func Get(category Category) *zap.Logger {
	if !IsCategoryEnabled(category) {
		return zap.NewNop()
	}

	mu.RLock()
	if e, ok := loggers[category]; ok {
		mu.RUnlock()
		return e.logger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if e, ok := loggers[category]; ok {
		return e.logger
	}

	e, err := newEntry(category)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: %v\n", err)
		return zap.NewNop()
	}
	loggers[category] = e
	return e.logger
}

func newEntry(category Category) (*entry, error) {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if opts.JSONFormat {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	e := &entry{}
	sink := zapcore.Lock(os.Stderr)
	if opts.Dir != "" {
		// Date prefix for easy rotation.
		name := fmt.Sprintf("%s_%s.log", time.Now().Format("2006-01-02"), category)
		path := filepath.Join(opts.Dir, name)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("could not open log file %s: %w", path, err)
		}
		e.file = f
		sink = zapcore.AddSync(f)
	}
	e.logger = zap.New(zapcore.NewCore(enc, sink, level)).Named(string(category))
	return e, nil
}

// Sync flushes every category logger.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	for _, e := range loggers {
		_ = e.logger.Sync()
	}
}

// CloseAll flushes and closes every category logger. The next Get creates
// fresh ones.
func CloseAll() {
	mu.Lock()
	defer mu.Unlock()
	for _, e := range loggers {
		_ = e.logger.Sync()
		if e.file != nil {
			e.file.Close()
		}
	}
	loggers = make(map[Category]*entry)
}

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("operation completed", zap.String("op", t.op), zap.Duration("elapsed", elapsed))
	return elapsed
}

// StopWithThreshold logs a warning if the duration exceeds threshold.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("slow operation",
			zap.String("op", t.op),
			zap.Duration("elapsed", elapsed),
			zap.Duration("threshold", threshold))
	} else {
		Get(t.category).Debug("operation completed", zap.String("op", t.op), zap.Duration("elapsed", elapsed))
	}
	return elapsed
}
