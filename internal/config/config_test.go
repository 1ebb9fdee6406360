package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Engine.Backend != "mangle" {
		t.Errorf("expected Backend=mangle, got %s", cfg.Engine.Backend)
	}
	if cfg.Engine.Workers != 2 {
		t.Errorf("expected Workers=2, got %d", cfg.Engine.Workers)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "termbridge.yaml")

	cfg := DefaultConfig()
	cfg.Engine.FactLimit = 500
	cfg.Modules = []ModuleConfig{{Name: "family", Path: "/abs/family.mg"}}
	cfg.Logging.Categories = map[string]bool{"worker": false}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Engine.FactLimit != 500 {
		t.Errorf("expected FactLimit=500, got %d", loaded.Engine.FactLimit)
	}
	if len(loaded.Modules) != 1 || loaded.Modules[0].Path != "/abs/family.mg" {
		t.Errorf("unexpected modules: %+v", loaded.Modules)
	}
	if enabled, ok := loaded.Logging.Options().Categories["worker"]; !ok || enabled {
		t.Error("worker category should stay disabled")
	}
}

func TestConfig_LoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.GetQueryTimeout() != 30*time.Second {
		t.Errorf("expected default timeout, got %v", cfg.GetQueryTimeout())
	}
}

func TestConfig_LoadPartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "termbridge.yaml")
	content := `
engine:
  query_timeout: 5s
modules:
  - name: family
    path: rules/family.mg
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Engine.Backend != "mangle" {
		t.Errorf("backend default lost: %q", cfg.Engine.Backend)
	}
	if cfg.GetQueryTimeout() != 5*time.Second {
		t.Errorf("expected 5s, got %v", cfg.GetQueryTimeout())
	}
	want := filepath.Join(dir, "rules", "family.mg")
	if cfg.Modules[0].Path != want {
		t.Errorf("expected module path %s, got %s", want, cfg.Modules[0].Path)
	}
}

func TestConfig_LoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("engine: [unclosed"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Engine.Backend = "swipl" }},
		{"no workers", func(c *Config) { c.Engine.Workers = 0 }},
		{"negative fact limit", func(c *Config) { c.Engine.FactLimit = -1 }},
		{"module without path", func(c *Config) { c.Modules = []ModuleConfig{{Name: "m"}} }},
		{"duplicate module", func(c *Config) {
			c.Modules = []ModuleConfig{{Name: "m", Path: "a"}, {Name: "m", Path: "b"}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDurationGettersFallBack(t *testing.T) {
	cfg := &Config{}
	cfg.Engine.QueryTimeout = "soon"
	cfg.Watch.Debounce = "-1s"
	if cfg.GetQueryTimeout() != 30*time.Second {
		t.Errorf("expected fallback timeout, got %v", cfg.GetQueryTimeout())
	}
	if cfg.GetWatchDebounce() != 200*time.Millisecond {
		t.Errorf("expected fallback debounce, got %v", cfg.GetWatchDebounce())
	}
}

func TestLoggingOptions(t *testing.T) {
	lc := LoggingConfig{Level: "debug", Format: "json", DebugMode: true, Dir: "logs"}
	opts := lc.Options()
	if !opts.JSONFormat || !opts.DebugMode || opts.Dir != "logs" || opts.Level != "debug" {
		t.Errorf("unexpected options: %+v", opts)
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TERMBRIDGE_LOG_LEVEL",
		"TERMBRIDGE_QUERY_TIMEOUT",
		"TERMBRIDGE_WORKERS",
		"TERMBRIDGE_TRANSCRIPT",
	} {
		t.Setenv(k, "")
	}
}
