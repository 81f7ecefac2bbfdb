package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %q, want :8080", cfg.Server.Addr)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workmaster.yaml")
	content := `
log_level: debug
server:
  addr: ":9090"
journal:
  path: /tmp/journal.db
simulation:
  tick_interval: 250ms
  strict: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log_level = %q, want debug", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("log_format = %q, want default text", cfg.LogFormat)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q, want :9090", cfg.Server.Addr)
	}
	if cfg.Server.SSEInterval != time.Second {
		t.Errorf("sse_interval = %v, want default 1s", cfg.Server.SSEInterval)
	}
	if cfg.Journal.Path != "/tmp/journal.db" {
		t.Errorf("journal = %q", cfg.Journal.Path)
	}
	if cfg.Simulation.TickInterval != 250*time.Millisecond || !cfg.Simulation.Strict {
		t.Errorf("simulation = %+v", cfg.Simulation)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown field", "lgo_level: debug\n", "lgo_level"},
		{"bad format", "log_format: xml\n", "log_format"},
		{"bad interval", "simulation:\n  tick_interval: soon\n", "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"WORKMASTER_ADDR":          "127.0.0.1:7000",
		"WORKMASTER_LOG_FORMAT":    "json",
		"WORKMASTER_JOURNAL":       ":memory:",
		"WORKMASTER_TICK_INTERVAL": "10ms",
		"WORKMASTER_STRICT":        "true",
	}
	cfg := Default()
	if err := cfg.ApplyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:7000" || cfg.LogFormat != "json" || cfg.Journal.Path != ":memory:" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Simulation.TickInterval != 10*time.Millisecond || !cfg.Simulation.Strict {
		t.Errorf("simulation = %+v", cfg.Simulation)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log_level = %q, want untouched info", cfg.LogLevel)
	}

	bad := Default()
	err := bad.ApplyEnv(func(k string) string {
		if k == "WORKMASTER_STRICT" {
			return "maybe"
		}
		return ""
	})
	if err == nil {
		t.Error("expected error for invalid WORKMASTER_STRICT")
	}
}
