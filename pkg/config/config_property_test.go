package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestProperty_InvalidValuesFallBackToDefaults invalid numeric settings never survive validation
func TestProperty_InvalidValuesFallBackToDefaults(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.MaxSize = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("non-positive lock ttl falls back to default", prop.ForAll(
		func(seconds int) bool {
			cfg := &Config{Aggregator: AggregatorConfig{LockTTL: time.Duration(seconds) * time.Second}}
			validateAndApplyDefaults(cfg)
			return cfg.Aggregator.LockTTL == DefaultLockTTL
		},
		gen.IntRange(-1000, 0),
	))

	properties.Property("negative end offset falls back to default", prop.ForAll(
		func(days int) bool {
			cfg := &Config{Aggregator: AggregatorConfig{EndOffsetDays: &days}}
			validateAndApplyDefaults(cfg)
			return *cfg.Aggregator.EndOffsetDays == DefaultEndOffsetDays
		},
		gen.IntRange(-1000, -1),
	))

	properties.Property("valid end offset is kept", prop.ForAll(
		func(days int) bool {
			cfg := &Config{Aggregator: AggregatorConfig{EndOffsetDays: &days}}
			validateAndApplyDefaults(cfg)
			return *cfg.Aggregator.EndOffsetDays == days
		},
		gen.IntRange(0, 30),
	))

	properties.Property("out of range port falls back to default", prop.ForAll(
		func(port int) bool {
			cfg := &Config{Server: ServerConfig{Port: port}}
			validateAndApplyDefaults(cfg)
			return cfg.Server.Port == DefaultServerPort
		},
		gen.OneGenOf(gen.IntRange(-1000, 0), gen.IntRange(65536, 100000)),
	))

	properties.Property("non-positive schedule interval falls back to default", prop.ForAll(
		func(minutes int) bool {
			cfg := &Config{Schedule: ScheduleConfig{Interval: time.Duration(minutes) * time.Minute}}
			validateAndApplyDefaults(cfg)
			return cfg.Schedule.Interval == DefaultScheduleInterval
		},
		gen.IntRange(-1000, 0),
	))

	properties.TestingRun(t)
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, DefaultLoggerLevel, cfg.Logger.Level)
	assert.Equal(t, DefaultLoggerOutput, cfg.Logger.Output)
	assert.Equal(t, DefaultDateFormat, cfg.Shredder.DateFormat)
	require.NotNil(t, cfg.Aggregator.EndOffsetDays)
	assert.Equal(t, DefaultEndOffsetDays, *cfg.Aggregator.EndOffsetDays)
	assert.Equal(t, DefaultLockKey, cfg.Aggregator.LockKey)
	assert.Equal(t, DefaultStoreProvider, cfg.StoreProvider())
	assert.Equal(t, time.Local, cfg.Shredder.Location())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
server:
  port: 9090
  mode: debug
logger:
  level: debug
  output: both
  file:
    path: /tmp/pbsacct/test.log
shredder:
  log_dir: /var/spool/pbs/server_priv/accounting
  host: cluster1
  timezone: UTC
aggregator:
  end_offset_days: 0
  lock_ttl: 2m
schedule:
  enabled: true
  interval: 1h
providers:
  store: memory
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, "both", cfg.Logger.Output)
	assert.Equal(t, "/tmp/pbsacct/test.log", cfg.Logger.File.Path)
	assert.Equal(t, DefaultLogFileMaxSizeMB, cfg.Logger.File.MaxSizeMB)
	assert.Equal(t, "cluster1", cfg.Shredder.Host)
	assert.Equal(t, time.UTC, cfg.Shredder.Location())
	assert.Equal(t, DefaultDateFormat, cfg.Shredder.DateFormat)
	assert.Equal(t, 0, *cfg.Aggregator.EndOffsetDays)
	assert.Equal(t, 2*time.Minute, cfg.Aggregator.LockTTL)
	assert.True(t, cfg.Schedule.Enabled)
	assert.Equal(t, time.Hour, cfg.Schedule.Interval)
	assert.Equal(t, "memory", cfg.StoreProvider())
}

func TestLoad_UsesConfigPathEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "env.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0o644))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [1, 2"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestInvalidTimezoneIsCleared(t *testing.T) {
	cfg := &Config{Shredder: ShredderConfig{Timezone: "Not/AZone"}}
	validateAndApplyDefaults(cfg)
	assert.Empty(t, cfg.Shredder.Timezone)
	assert.Equal(t, time.Local, cfg.Shredder.Location())
}
