package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all termbridge configuration.
type Config struct {
	// Engine backend and execution limits
	Engine EngineConfig `yaml:"engine"`

	// Modules loaded into every new session, in order
	Modules []ModuleConfig `yaml:"modules"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Query history
	Transcript TranscriptConfig `yaml:"transcript"`

	// Module file reloading
	Watch WatchConfig `yaml:"watch"`
}

// EngineConfig configures the engine behind each session.
type EngineConfig struct {
	Backend      string `yaml:"backend"`       // mangle
	FactLimit    int    `yaml:"fact_limit"`    // derived fact cap per evaluation, 0 = unlimited
	QueryTimeout string `yaml:"query_timeout"` // per-query deadline when run on a worker
	Workers      int    `yaml:"workers"`       // sessions in the worker pool
}

// ModuleConfig names a source file to load as a module.
type ModuleConfig struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// TranscriptConfig configures the SQLite query history.
type TranscriptConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// WatchConfig configures module reloading.
type WatchConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Debounce string `yaml:"debounce"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Backend:      "mangle",
			FactLimit:    1000000,
			QueryTimeout: "30s",
			Workers:      2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Transcript: TranscriptConfig{
			Path: ".termbridge/history.db",
		},
		Watch: WatchConfig{
			Debounce: "200ms",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		cfg.resolveModulePaths(filepath.Dir(path))
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveModulePaths makes relative module paths relative to the config file.
func (c *Config) resolveModulePaths(dir string) {
	for i, m := range c.Modules {
		if m.Path != "" && !filepath.IsAbs(m.Path) {
			c.Modules[i].Path = filepath.Join(dir, m.Path)
		}
	}
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
// Malformed numeric values are ignored.
func (c *Config) applyEnvOverrides() {
	if lvl := os.Getenv("TERMBRIDGE_LOG_LEVEL"); lvl != "" {
		c.Logging.Level = lvl
		c.Logging.DebugMode = true
	}
	if d := os.Getenv("TERMBRIDGE_QUERY_TIMEOUT"); d != "" {
		c.Engine.QueryTimeout = d
	}
	if w := os.Getenv("TERMBRIDGE_WORKERS"); w != "" {
		if n, err := strconv.Atoi(w); err == nil && n > 0 {
			c.Engine.Workers = n
		}
	}
	if path := os.Getenv("TERMBRIDGE_TRANSCRIPT"); path != "" {
		c.Transcript.Path = path
		c.Transcript.Enabled = true
	}
}

// GetQueryTimeout returns the per-query timeout as a duration.
func (c *Config) GetQueryTimeout() time.Duration {
	d, err := time.ParseDuration(c.Engine.QueryTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// GetWatchDebounce returns the reload debounce interval as a duration.
func (c *Config) GetWatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d < 0 {
		return 200 * time.Millisecond
	}
	return d
}

// ValidBackends lists all supported engine backends.
var ValidBackends = []string{"mangle"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validBackend := false
	for _, b := range ValidBackends {
		if c.Engine.Backend == b {
			validBackend = true
			break
		}
	}
	if !validBackend {
		return fmt.Errorf("invalid engine backend: %s (valid: %v)", c.Engine.Backend, ValidBackends)
	}
	if c.Engine.Workers < 1 {
		return fmt.Errorf("engine.workers must be >= 1")
	}
	if c.Engine.FactLimit < 0 {
		return fmt.Errorf("engine.fact_limit must be >= 0")
	}
	seen := make(map[string]bool, len(c.Modules))
	for _, m := range c.Modules {
		if m.Name == "" || m.Path == "" {
			return fmt.Errorf("module entries need both name and path")
		}
		if seen[m.Name] {
			return fmt.Errorf("duplicate module name: %s", m.Name)
		}
		seen[m.Name] = true
	}
	return nil
}
