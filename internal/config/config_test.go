package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "none", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 30, cfg.Compliance.MaxRequestsPerMinute)
	assert.True(t, cfg.Compliance.RespectRobots)
	assert.NotEmpty(t, cfg.Compliance.UserAgent)
	assert.InDelta(t, 0.85, cfg.Dedup.Threshold, 0.0001)
	assert.InDelta(t, 0.02, cfg.Dedup.AmbiguityMargin, 0.0001)
	assert.Equal(t, 4, cfg.Pipeline.MaxConcurrentSources)
	assert.Equal(t, time.Second, cfg.Pipeline.UnitDelay())
	assert.Equal(t, 5*time.Second, cfg.Pipeline.SourceDelay())
	assert.Equal(t, 3, cfg.Source.MaxWaitRetries)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 5, cfg.Circuit.FailureThreshold)
	assert.Equal(t, []string{"json", "csv"}, cfg.Export.Formats)
	assert.Equal(t, "catalogue-refresh", cfg.Temporal.TaskQueue)
	assert.Equal(t, "0 17 * * 6", cfg.Temporal.Cron)
	assert.Len(t, cfg.Sources, len(DefaultSources()))
	require.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
  database_url: catalogue.db
log:
  level: debug
  format: console
dedup:
  threshold: 0.9
pipeline:
  unit_delay_ms: 250
sources:
  - name: community_qld
    type: community
    base_url: https://listings.example.org/api
    locations:
      - name: Brisbane
        state: QLD
    categories: [legal]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.InDelta(t, 0.9, cfg.Dedup.Threshold, 0.0001)
	assert.Equal(t, 250*time.Millisecond, cfg.Pipeline.UnitDelay())
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, "community", cfg.Sources[0].Type)
	require.Len(t, cfg.Sources[0].Locations, 1)
	assert.Equal(t, "QLD", cfg.Sources[0].Locations[0].State)
	// Defaults still apply for unset values
	assert.Equal(t, 30, cfg.Compliance.MaxRequestsPerMinute)
	require.NoError(t, cfg.Validate())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
compliance:
  max_requests_per_minute: 10
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("CATALOGUE_LOG_LEVEL", "warn")
	t.Setenv("CATALOGUE_COMPLIANCE_MAX_REQUESTS_PER_MINUTE", "12")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 12, cfg.Compliance.MaxRequestsPerMinute)
}

func TestLoadBadYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unterminated"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Store:      StoreConfig{Driver: "none"},
			Compliance: ComplianceConfig{MaxRequestsPerMinute: 30, UserAgent: "bot"},
			Dedup:      DedupConfig{Threshold: 0.85, AmbiguityMargin: 0.02},
			Pipeline:   PipelineConfig{MaxConcurrentSources: 2},
			Sources:    []SourceConfig{{Name: "a", BaseURL: "https://a.example"}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "threshold zero", mutate: func(c *Config) { c.Dedup.Threshold = 0 }, wantErr: "dedup.threshold"},
		{name: "threshold above one", mutate: func(c *Config) { c.Dedup.Threshold = 1.2 }, wantErr: "dedup.threshold"},
		{name: "negative margin", mutate: func(c *Config) { c.Dedup.AmbiguityMargin = -0.1 }, wantErr: "ambiguity_margin"},
		{name: "zero rate", mutate: func(c *Config) { c.Compliance.MaxRequestsPerMinute = 0 }, wantErr: "max_requests_per_minute"},
		{name: "no agent", mutate: func(c *Config) { c.Compliance.UserAgent = "" }, wantErr: "user_agent"},
		{name: "no workers", mutate: func(c *Config) { c.Pipeline.MaxConcurrentSources = 0 }, wantErr: "max_concurrent_sources"},
		{name: "postgres without url", mutate: func(c *Config) { c.Store.Driver = "postgres" }, wantErr: "database_url"},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "mysql" }, wantErr: "unknown store.driver"},
		{name: "duplicate source", mutate: func(c *Config) { c.Sources = append(c.Sources, c.Sources[0]) }, wantErr: "duplicate source"},
		{name: "source without url", mutate: func(c *Config) { c.Sources[0].BaseURL = "" }, wantErr: "no base_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnabledSources(t *testing.T) {
	c := &Config{Sources: []SourceConfig{{Name: "a"}, {Name: "b", Disabled: true}, {Name: "c"}}}
	got := c.EnabledSources()
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Name)
	assert.Equal(t, "c", got[1].Name)
}

func TestDefaultSources(t *testing.T) {
	srcs := DefaultSources()
	names := make(map[string]bool)
	for _, s := range srcs {
		assert.NotEmpty(t, s.BaseURL, s.Name)
		names[s.Name] = true
	}
	assert.True(t, names["askizzy"])
	assert.True(t, names["data_gov_au"])
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
}

func TestInitLoggerBadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "loud", Format: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}
