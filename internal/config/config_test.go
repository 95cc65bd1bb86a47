package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hornmat/internal/mangle"
	"hornmat/internal/store"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, mangle.EqualityAxiomatize, cfg.StoreOptions().Equality)
	assert.Equal(t, store.NTriples, cfg.DriverOptions().ExportFormat)
	assert.Nil(t, cfg.DriverOptions().Metrics)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadAndSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultFile)
	cfg := DefaultConfig()
	cfg.Store.Threads = 8
	cfg.Store.Equality = "off"
	cfg.Paths.ABoxDir = "abox"
	cfg.Paths.ExportFormat = "sqlite"
	cfg.Materialize.MaxRounds = 50
	cfg.Materialize.MetricsFile = "metrics.prom"
	cfg.Logging.Categories = map[string]bool{"store": false}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	opts := loaded.DriverOptions()
	assert.Equal(t, store.SQLite, opts.ExportFormat)
	assert.Equal(t, 50, opts.MaxRounds)
	assert.NotNil(t, opts.Metrics)
	assert.Equal(t, mangle.EqualityOff, loaded.StoreOptions().Equality)
	assert.Equal(t, map[string]bool{"store": false}, loaded.LoggingOptions().Categories)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte("store:\n  threads: 2\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Store.Threads)
	assert.Equal(t, DefaultConfig().Paths.WorkDir, cfg.Paths.WorkDir)
	assert.Equal(t, DefaultConfig().Store.FactLimit, cfg.Store.FactLimit)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte("store: [unclosed\n"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HORNMAT_THREADS", "3")
	t.Setenv("HORNMAT_WORK_DIR", "/tmp/work")
	t.Setenv("HORNMAT_ABOX_DIR", "/data/abox")
	t.Setenv("HORNMAT_EXPORT", "/tmp/out.nt")
	t.Setenv("HORNMAT_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Store.Threads)
	assert.Equal(t, "/tmp/work", cfg.Paths.WorkDir)
	assert.Equal(t, "/data/abox", cfg.Paths.ABoxDir)
	assert.Equal(t, "/tmp/out.nt", cfg.Paths.ExportPath)
	assert.Equal(t, "debug", cfg.Logging.Level)

	t.Setenv("HORNMAT_THREADS", "many")
	_, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero threads", func(c *Config) { c.Store.Threads = 0 }},
		{"negative fact limit", func(c *Config) { c.Store.FactLimit = -1 }},
		{"equality mode", func(c *Config) { c.Store.Equality = "rewrite" }},
		{"export format", func(c *Config) { c.Paths.ExportFormat = "rdfxml" }},
		{"work dir", func(c *Config) { c.Paths.WorkDir = "" }},
		{"max rounds", func(c *Config) { c.Materialize.MaxRounds = -2 }},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
