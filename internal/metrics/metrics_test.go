package metrics

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/catalogue-cli/internal/model"
)

func testBatch() *model.Batch {
	start := time.Date(2026, 10, 1, 3, 0, 0, 0, time.UTC)
	stats := model.NewRunStatistics("run-1")
	stats.Phase = model.PhaseDone
	stats.StartedAt = start
	stats.FinishedAt = start.Add(90 * time.Second)
	stats.DuplicatesMerged = 4
	stats.Rejected = 2
	stats.FlaggedForReview = 1
	stats.ErrorsByKind["validation_rejected"] = 2
	stats.ErrorsByKind["transport_error"] = 1
	stats.Sources["ckan"] = model.SourceSummary{Units: 3, UnitsFailed: 1, Candidates: 17}
	stats.QualityHistogram[5] = 3
	stats.QualityHistogram[9] = 1
	return &model.Batch{
		RunID:    "run-1",
		Entities: make([]model.ServiceEntity, 4),
		Stats:    stats,
	}
}

func TestMetrics_Observe(t *testing.T) {
	m := New("")
	m.Observe(testBatch())

	assert.Equal(t, 4.0, testutil.ToFloat64(m.Entities))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Merged))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Rejected))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Flagged))
	assert.Equal(t, 17.0, testutil.ToFloat64(m.SourceCandidates.WithLabelValues("ckan")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceUnitsFailed.WithLabelValues("ckan")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Errors.WithLabelValues("validation_rejected")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Quality.WithLabelValues("0.6")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Quality.WithLabelValues("1.0")))
	assert.Equal(t, 90.0, testutil.ToFloat64(m.Duration))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LastRunSuccess))
}

func TestMetrics_ObserveResetsLabels(t *testing.T) {
	m := New("")
	m.Observe(testBatch())

	next := testBatch()
	next.Stats.Phase = model.PhaseFailed
	next.Stats.Sources = map[string]model.SourceSummary{"askizzy": {Candidates: 2}}
	m.Observe(next)

	assert.Equal(t, 1, testutil.CollectAndCount(m.SourceCandidates))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LastRunSuccess))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogue.prom")
	m := New(path)
	assert.Equal(t, "metrics", m.Name())

	require.NoError(t, m.Write(context.Background(), testBatch()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `catalogue_source_candidates{source="ckan"} 17`)
	assert.Contains(t, text, "catalogue_entities 4")
	assert.Contains(t, text, `catalogue_errors{kind="transport_error"} 1`)
}

func TestMetrics_WriteWithoutPath(t *testing.T) {
	m := New("")
	require.NoError(t, m.Write(context.Background(), testBatch()))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Entities))
}
