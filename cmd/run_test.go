package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/catalogue-cli/internal/config"
	"github.com/sells-group/catalogue-cli/internal/model"
)

func sinkNames(t *testing.T, c *config.Config, dryRun bool) []string {
	t.Helper()
	sinks, closeFn, err := buildSinks(context.Background(), c, dryRun)
	require.NoError(t, err)
	t.Cleanup(closeFn)
	names := make([]string, len(sinks))
	for i, s := range sinks {
		names[i] = s.Name()
	}
	return names
}

func TestBuildSinks(t *testing.T) {
	dir := t.TempDir()
	c := &config.Config{
		Store:   config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(dir, "catalogue.db")},
		Export:  config.ExportConfig{Dir: filepath.Join(dir, "out"), Formats: []string{"csv"}},
		Metrics: config.MetricsConfig{Textfile: filepath.Join(dir, "catalogue.prom")},
	}

	assert.Equal(t, []string{"sqlite", "export", "metrics"}, sinkNames(t, c, false))
	assert.Empty(t, sinkNames(t, c, true))

	c.Store.Driver = "none"
	c.Metrics.Textfile = ""
	assert.Equal(t, []string{"export"}, sinkNames(t, c, false))
}

func TestBuildSinks_BadExportFormat(t *testing.T) {
	c := &config.Config{Export: config.ExportConfig{Dir: t.TempDir(), Formats: []string{"xml"}}}
	_, _, err := buildSinks(context.Background(), c, false)
	assert.Error(t, err)
}

func TestFormatRunSummary(t *testing.T) {
	start := time.Date(2026, 10, 3, 17, 0, 0, 0, time.UTC)
	stats := model.NewRunStatistics("run-42")
	stats.Phase = model.PhaseDone
	stats.SourcesRun = 3
	stats.SourcesFailed = 1
	stats.CandidatesFound = 40
	stats.ValidCandidates = 35
	stats.Rejected = 5
	stats.EntitiesCreated = 30
	stats.DuplicatesMerged = 5
	stats.StartedAt = start
	stats.FinishedAt = start.Add(2 * time.Minute)
	stats.Sources["data_qld"] = model.SourceSummary{Units: 5, UnitsFailed: 5}
	stats.Sources["askizzy"] = model.SourceSummary{Units: 12, Candidates: 40}
	stats.ErrorsBySource["data_qld"] = 5

	var buf bytes.Buffer
	formatRunSummary(&buf, &model.Batch{RunID: "run-42", Stats: stats})

	out := buf.String()
	assert.Contains(t, out, "run-42")
	assert.Contains(t, out, "3 run, 1 failed")
	assert.Contains(t, out, "30 created, 5 merged, 0 flagged")
	assert.Contains(t, out, "2m0s")
	assert.Contains(t, out, "SOURCE")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("askizzy")), bytes.Index(buf.Bytes(), []byte("data_qld")))
	assert.NotContains(t, out, "cancelled")
}

func TestFormatRunSummary_Cancelled(t *testing.T) {
	stats := model.NewRunStatistics("run-43")
	stats.Phase = model.PhaseDone
	stats.Cancelled = true

	var buf bytes.Buffer
	formatRunSummary(&buf, &model.Batch{RunID: "run-43", Stats: stats})
	assert.Contains(t, buf.String(), "done (cancelled, sinks skipped)")
}
