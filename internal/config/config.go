package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"hornmat/internal/logging"
	"hornmat/internal/mangle"
	"hornmat/internal/materialize"
	"hornmat/internal/store"
)

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = "hornmat.yaml"

// Config holds all hornmat configuration.
type Config struct {
	// Deductive store
	Store StoreConfig `yaml:"store"`

	// Input and output locations
	Paths PathsConfig `yaml:"paths"`

	// FIRE/REASON loop
	Materialize MaterializeConfig `yaml:"materialize"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	sc := mangle.DefaultConfig()
	return &Config{
		Store: StoreConfig{
			Threads:   sc.Threads,
			FactLimit: sc.FactLimit,
			Equality:  string(sc.Equality),
		},
		Paths: PathsConfig{
			WorkDir:      "hornmat-work",
			ExportFormat: string(store.NTriples),
		},
		Materialize: MaterializeConfig{
			MaxRounds: 0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
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
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("HORNMAT_THREADS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid HORNMAT_THREADS %q: %w", v, err)
		}
		c.Store.Threads = n
	}
	if v := os.Getenv("HORNMAT_WORK_DIR"); v != "" {
		c.Paths.WorkDir = v
	}
	if v := os.Getenv("HORNMAT_ABOX_DIR"); v != "" {
		c.Paths.ABoxDir = v
	}
	if v := os.Getenv("HORNMAT_EXPORT"); v != "" {
		c.Paths.ExportPath = v
	}
	if v := os.Getenv("HORNMAT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Store.Threads < 1 {
		return fmt.Errorf("store.threads must be at least 1, got %d", c.Store.Threads)
	}
	if c.Store.FactLimit < 0 {
		return fmt.Errorf("store.fact_limit must not be negative, got %d", c.Store.FactLimit)
	}
	if _, err := mangle.ParseEqualityMode(c.Store.Equality); err != nil {
		return fmt.Errorf("store.equality: %w", err)
	}
	if _, err := store.ParseFormat(c.Paths.ExportFormat); err != nil {
		return fmt.Errorf("paths.export_format: %w", err)
	}
	if c.Paths.WorkDir == "" {
		return fmt.Errorf("paths.work_dir must be set")
	}
	if c.Materialize.MaxRounds < 0 {
		return fmt.Errorf("materialize.max_rounds must not be negative, got %d", c.Materialize.MaxRounds)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("invalid logging.format: %s (valid: console, json)", c.Logging.Format)
	}
	return nil
}

// StoreOptions returns the Mangle store configuration.
func (c *Config) StoreOptions() mangle.Config {
	mode, _ := mangle.ParseEqualityMode(c.Store.Equality)
	return mangle.Config{
		Threads:   c.Store.Threads,
		FactLimit: c.Store.FactLimit,
		Equality:  mode,
	}
}

// DriverOptions returns the materialization options. Metrics are attached
// when a metrics file is configured.
func (c *Config) DriverOptions() materialize.Options {
	format, _ := store.ParseFormat(c.Paths.ExportFormat)
	opts := materialize.Options{
		WorkDir:      c.Paths.WorkDir,
		ABoxDir:      c.Paths.ABoxDir,
		MaxRounds:    c.Materialize.MaxRounds,
		ExportPath:   c.Paths.ExportPath,
		ExportFormat: format,
		MetricsFile:  c.Materialize.MetricsFile,
	}
	if opts.MetricsFile != "" {
		opts.Metrics = materialize.NewMetrics()
	}
	return opts
}

// LoggingOptions returns the logger configuration.
func (c *Config) LoggingOptions() logging.Config {
	return logging.Config{
		Level:      c.Logging.Level,
		Format:     c.Logging.Format,
		File:       c.Logging.File,
		DebugMode:  c.Logging.DebugMode,
		Categories: c.Logging.Categories,
	}
}
