// Package metrics records per-run pipeline metrics in a private prometheus
// registry and writes them as a node-exporter textfile.
package metrics

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/catalogue-cli/internal/model"
)

// Metrics holds the gauges describing the last finished run.
type Metrics struct {
	reg  *prometheus.Registry
	path string

	// Candidates and units by source
	SourceCandidates  *prometheus.GaugeVec
	SourceUnitsFailed *prometheus.GaugeVec

	// Pipeline outcome
	Entities        prometheus.Gauge
	Merged          prometheus.Gauge
	Rejected        prometheus.Gauge
	Flagged         prometheus.Gauge
	SourcesFailed   prometheus.Gauge
	Errors          *prometheus.GaugeVec
	Quality         *prometheus.GaugeVec
	Duration        prometheus.Gauge
	LastRunFinished prometheus.Gauge
	LastRunSuccess  prometheus.Gauge
}

// New creates Metrics that write to path on every Write.
func New(path string) *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg:  reg,
		path: path,

		SourceCandidates: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "catalogue_source_candidates",
			Help: "Candidate records produced by each source in the last run",
		}, []string{"source"}),
		SourceUnitsFailed: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "catalogue_source_units_failed",
			Help: "Work units that failed for each source in the last run",
		}, []string{"source"}),

		Entities: f.NewGauge(prometheus.GaugeOpts{
			Name: "catalogue_entities",
			Help: "Service entities in the last batch",
		}),
		Merged: f.NewGauge(prometheus.GaugeOpts{
			Name: "catalogue_duplicates_merged",
			Help: "Candidates merged into an existing entity in the last run",
		}),
		Rejected: f.NewGauge(prometheus.GaugeOpts{
			Name: "catalogue_candidates_rejected",
			Help: "Candidates rejected by validation in the last run",
		}),
		Flagged: f.NewGauge(prometheus.GaugeOpts{
			Name: "catalogue_entities_flagged_for_review",
			Help: "Entities flagged for manual review in the last run",
		}),
		SourcesFailed: f.NewGauge(prometheus.GaugeOpts{
			Name: "catalogue_sources_failed",
			Help: "Sources whose every unit failed in the last run",
		}),
		Errors: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "catalogue_errors",
			Help: "Recovered errors in the last run by kind",
		}, []string{"kind"}),
		Quality: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "catalogue_quality_entities",
			Help: "Entities per overall quality bucket, labelled by bucket upper bound",
		}, []string{"le"}),
		Duration: f.NewGauge(prometheus.GaugeOpts{
			Name: "catalogue_run_duration_seconds",
			Help: "Wall time of the last run",
		}),
		LastRunFinished: f.NewGauge(prometheus.GaugeOpts{
			Name: "catalogue_last_run_finished_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
		LastRunSuccess: f.NewGauge(prometheus.GaugeOpts{
			Name: "catalogue_last_run_success",
			Help: "1 if the last run reached the done phase",
		}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Name implements the pipeline sink interface.
func (m *Metrics) Name() string { return "metrics" }

// Observe sets every gauge from a batch.
func (m *Metrics) Observe(b *model.Batch) {
	s := b.Stats

	m.SourceCandidates.Reset()
	m.SourceUnitsFailed.Reset()
	for name, sum := range s.Sources {
		m.SourceCandidates.WithLabelValues(name).Set(float64(sum.Candidates))
		m.SourceUnitsFailed.WithLabelValues(name).Set(float64(sum.UnitsFailed))
	}

	m.Entities.Set(float64(len(b.Entities)))
	m.Merged.Set(float64(s.DuplicatesMerged))
	m.Rejected.Set(float64(s.Rejected))
	m.Flagged.Set(float64(s.FlaggedForReview))
	m.SourcesFailed.Set(float64(s.SourcesFailed))

	m.Errors.Reset()
	for kind, n := range s.ErrorsByKind {
		m.Errors.WithLabelValues(kind).Set(float64(n))
	}

	for i, n := range s.QualityHistogram {
		le := strconv.FormatFloat(float64(i+1)/model.HistogramBuckets, 'f', 1, 64)
		m.Quality.WithLabelValues(le).Set(float64(n))
	}

	if !s.StartedAt.IsZero() && !s.FinishedAt.IsZero() {
		m.Duration.Set(s.FinishedAt.Sub(s.StartedAt).Seconds())
	}
	if !s.FinishedAt.IsZero() {
		m.LastRunFinished.Set(float64(s.FinishedAt.Unix()))
	}
	if s.Phase == model.PhaseDone {
		m.LastRunSuccess.Set(1)
	} else {
		m.LastRunSuccess.Set(0)
	}
}

// Write observes the batch and, when a path is configured, writes the
// textfile atomically.
func (m *Metrics) Write(_ context.Context, b *model.Batch) error {
	m.Observe(b)
	if m.path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(m.path, m.reg); err != nil {
		return eris.Wrapf(err, "metrics: write %s", m.path)
	}
	zap.L().Debug("metrics: textfile written", zap.String("component", "metrics"), zap.String("path", m.path))
	return nil
}
