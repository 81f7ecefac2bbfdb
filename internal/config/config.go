package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "WORKMASTER_"

// Config holds configuration for the workmaster commands.
type Config struct {
	LogLevel   string           `yaml:"log_level"`  // debug, info, warn, error
	LogFormat  string           `yaml:"log_format"` // text, json
	Server     ServerConfig     `yaml:"server"`
	Journal    JournalConfig    `yaml:"journal"`
	Simulation SimulationConfig `yaml:"simulation"`
}

// ServerConfig holds configuration for the inspection server.
type ServerConfig struct {
	Addr        string        `yaml:"addr"`         // Listen address (default ":8080")
	SSEInterval time.Duration `yaml:"sse_interval"` // Snapshot stream poll interval
}

// JournalConfig selects where scheduler decisions are persisted.
type JournalConfig struct {
	Path string `yaml:"path"` // SQLite database path, ":memory:" for a throwaway journal, empty to disable
}

// SimulationConfig controls how scenarios are driven.
type SimulationConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"` // Zero runs ticks back to back
	Strict       bool          `yaml:"strict"`        // Panic on scheduler invariant violations
	MaxReplays   int           `yaml:"max_replays"`
}

// Default returns sensible defaults.
func Default() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "text",
		Server: ServerConfig{
			Addr:        ":8080",
			SSEInterval: time.Second,
		},
		Simulation: SimulationConfig{
			MaxReplays: 16,
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path. An empty
// path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from WORKMASTER_* variables looked up with getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	str("ADDR", &c.Server.Addr)
	str("JOURNAL", &c.Journal.Path)

	if v := getenv(EnvPrefix + "TICK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTICK_INTERVAL: %w", EnvPrefix, err)
		}
		c.Simulation.TickInterval = d
	}
	if v := getenv(EnvPrefix + "STRICT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sSTRICT: %w", EnvPrefix, err)
		}
		c.Simulation.Strict = b
	}
	return c.Validate()
}

// Validate rejects values no command can run with.
func (c Config) Validate() error {
	var problems []string
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("log_format %q: want text or json", c.LogFormat))
	}
	if c.Server.Addr == "" {
		problems = append(problems, "server.addr is required")
	}
	if c.Server.SSEInterval <= 0 {
		problems = append(problems, "server.sse_interval must be positive")
	}
	if c.Simulation.TickInterval < 0 {
		problems = append(problems, "simulation.tick_interval must not be negative")
	}
	if c.Simulation.MaxReplays <= 0 {
		problems = append(problems, "simulation.max_replays must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
