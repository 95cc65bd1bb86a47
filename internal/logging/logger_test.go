package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(level)
	Use(zap.New(core))
	t.Cleanup(func() { Use(zap.NewNop()) })
	return logs
}

func TestCategoryLoggersAreNamed(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	Compile("compiled %d axioms", 3)
	StoreDebug("imported %s", "rules.txt")
	Get(CategoryMaterialize).Warn("round %d", 2)

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "compile", entries[0].LoggerName)
	assert.Equal(t, "compiled 3 axioms", entries[0].Message)
	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
	assert.Equal(t, "store", entries[1].LoggerName)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
}

func TestLevelFiltersDebug(t *testing.T) {
	logs := observe(t, zapcore.InfoLevel)

	MaterializeDebug("hidden")
	Materialize("shown")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "shown", logs.All()[0].Message)
}

func TestInitializeWithFileAndCategories(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "hornmat.log")
	err := Initialize(Config{
		Level:      "info",
		Format:     "json",
		File:       logFile,
		Categories: map[string]bool{"store": false},
	})
	require.NoError(t, err)
	t.Cleanup(func() { Use(zap.NewNop()) })

	assert.False(t, IsCategoryEnabled(CategoryStore))
	assert.True(t, IsCategoryEnabled(CategoryCompile), "missing categories default to enabled")

	Store("should not appear")
	Compile("visible line")
	require.NoError(t, Sync())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "visible line")
	assert.NotContains(t, string(data), "should not appear")
	assert.True(t, strings.HasPrefix(strings.TrimSpace(string(data)), "{"), "json encoding expected")
}

func TestInitializeRejectsBadLevel(t *testing.T) {
	err := Initialize(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNoopBeforeInitialize(t *testing.T) {
	Use(zap.NewNop())
	// must not panic
	Boot("nothing")
	Get(CategoryExport).Error("still nothing")
}

func TestTimer(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	timer := StartTimer(CategoryStore, "reason")
	elapsed := timer.StopWithInfo()
	assert.GreaterOrEqual(t, elapsed, time.Duration(0))
	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "reason completed in")

	StartTimer(CategoryStore, "slow").StopWithThreshold(-1)
	assert.Equal(t, zapcore.WarnLevel, logs.All()[1].Level)
}
