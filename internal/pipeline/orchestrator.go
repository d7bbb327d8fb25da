// Package pipeline runs one ingestion batch: every selected source is
// fetched, candidates are normalized and validated, duplicates are merged,
// and the finished batch is handed to the configured sinks.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/catalogue-cli/internal/dedup"
	"github.com/sells-group/catalogue-cli/internal/model"
	"github.com/sells-group/catalogue-cli/internal/normalize"
	"github.com/sells-group/catalogue-cli/internal/resilience"
	"github.com/sells-group/catalogue-cli/internal/source"
)

// Sink receives the finished batch. Store loaders, file exporters, and the
// metrics writer all implement it.
type Sink interface {
	Name() string
	Write(ctx context.Context, b *model.Batch) error
}

// Options configures one orchestrator.
type Options struct {
	MaxConcurrentSources int
	UnitDelay            time.Duration
	SourceDelay          time.Duration
	Dedup                dedup.Options
	// Sources restricts the run to these source names. Empty runs all.
	Sources []string
}

// Orchestrator drives a run through its phases. It is safe to call Stats
// from another goroutine while Run is in progress.
type Orchestrator struct {
	reg    *source.Registry
	runner *source.Runner
	sinks  []Sink
	opts   Options

	newRunID func() string
	now      func() time.Time

	mu    sync.Mutex
	stats model.RunStatistics
}

// New creates an orchestrator over the registry's adapters.
func New(reg *source.Registry, runner *source.Runner, opts Options, sinks ...Sink) *Orchestrator {
	if opts.MaxConcurrentSources <= 0 {
		opts.MaxConcurrentSources = 4
	}
	return &Orchestrator{
		reg:      reg,
		runner:   runner,
		sinks:    sinks,
		opts:     opts,
		newRunID: uuid.NewString,
		now:      time.Now,
		stats:    model.NewRunStatistics(""),
	}
}

// runState is what one run accumulates besides statistics. candidates is
// indexed by the adapter's position in the selection.
type runState struct {
	candidates [][]model.CandidateRecord
	failures   []model.Failure
	validation model.ValidationReport
}

// unitEvent is one finished unit on its way to the collector.
type unitEvent struct {
	index  int
	source string
	result source.UnitResult
}

// Run executes one batch. A batch is always returned; the error is non-nil
// for fatal failures (a panic, a broken invariant, a sink error), in which
// case the batch is partial. Cancellation before export also returns the
// context error with a finished, partial batch marked Cancelled.
func (o *Orchestrator) Run(ctx context.Context) (*model.Batch, error) {
	runID := o.newRunID()
	log := zap.L().With(zap.String("component", "pipeline.orchestrator"), zap.String("run_id", runID))

	o.mu.Lock()
	o.stats = model.NewRunStatistics(runID)
	o.stats.StartedAt = o.now().UTC()
	o.mu.Unlock()

	batch := &model.Batch{RunID: runID}
	rs := &runState{}

	adapters, err := o.reg.Select(o.opts.Sources)
	if err != nil {
		return o.fail(batch, rs, resilience.WithKind(err, resilience.KindPipelineFatal, ""))
	}
	rs.candidates = make([][]model.CandidateRecord, len(adapters))

	o.setPhase(model.PhaseSources)
	log.Info("run started", zap.Int("sources", len(adapters)))
	if err := o.runSources(ctx, adapters, rs); err != nil {
		return o.fail(batch, rs, err)
	}
	o.closeSources(adapters)

	var valid []model.CandidateRecord
	err = o.guard(model.PhaseValidate, func() error {
		valid = o.validate(adapters, rs)
		return nil
	})
	if err != nil {
		return o.fail(batch, rs, err)
	}

	var engine *dedup.Engine
	err = o.guard(model.PhaseDedupe, func() error {
		var derr error
		engine, derr = o.dedupe(valid, rs)
		return derr
	})
	if err != nil {
		return o.fail(batch, rs, err)
	}
	batch.Entities = engine.Entities()
	batch.Dedup = engine.Report()

	if err := ctx.Err(); err != nil {
		return o.cancelled(batch, rs, err)
	}

	err = o.guard(model.PhaseExport, func() error {
		return o.export(ctx, batch, rs)
	})
	if err != nil {
		return o.fail(batch, rs, err)
	}

	o.setPhase(model.PhaseDone)
	stats := o.Stats()
	log.Info("run complete",
		zap.Int("sources_run", stats.SourcesRun),
		zap.Int("sources_failed", stats.SourcesFailed),
		zap.Int("candidates", stats.CandidatesFound),
		zap.Int("valid", stats.ValidCandidates),
		zap.Int("entities", len(batch.Entities)),
		zap.Int("merged", stats.DuplicatesMerged),
		zap.Int("flagged", stats.FlaggedForReview),
		zap.Int("errors", stats.Errors),
		zap.Duration("elapsed", stats.FinishedAt.Sub(stats.StartedAt)),
	)
	return batch, nil
}

// Stats returns a snapshot of the current run's statistics.
func (o *Orchestrator) Stats() model.RunStatistics {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats.Clone()
}

func (o *Orchestrator) setPhase(p model.Phase) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stats.Phase = p
	if p == model.PhaseDone || p == model.PhaseFailed {
		o.stats.FinishedAt = o.now().UTC()
	}
}

// guard runs one phase and converts a panic into a fatal error.
func (o *Orchestrator) guard(phase model.Phase, fn func() error) (err error) {
	o.setPhase(phase)
	defer func() {
		if r := recover(); r != nil {
			err = resilience.NewKind(resilience.KindPipelineFatal, "", fmt.Sprintf("pipeline: panic in %s phase: %v", phase, r))
		}
	}()
	return fn()
}

func (o *Orchestrator) fail(batch *model.Batch, rs *runState, err error) (*model.Batch, error) {
	o.setPhase(model.PhaseFailed)
	o.fill(batch, rs)
	zap.L().Error("run failed",
		zap.String("component", "pipeline.orchestrator"),
		zap.String("run_id", batch.RunID),
		zap.Error(err),
	)
	return batch, err
}

// cancelled finishes a run stopped before export. Sinks are skipped so a
// partial catalogue never replaces a complete one.
func (o *Orchestrator) cancelled(batch *model.Batch, rs *runState, err error) (*model.Batch, error) {
	o.mu.Lock()
	o.stats.Cancelled = true
	o.mu.Unlock()
	o.setPhase(model.PhaseDone)
	o.fill(batch, rs)
	zap.L().Warn("run cancelled before export",
		zap.String("component", "pipeline.orchestrator"),
		zap.String("run_id", batch.RunID),
		zap.Int("entities", len(batch.Entities)),
	)
	return batch, err
}

// fill copies run state, statistics, and compliance state into the batch.
func (o *Orchestrator) fill(batch *model.Batch, rs *runState) {
	batch.Validation = rs.validation
	batch.Failures = rs.failures
	batch.Stats = o.Stats()
	if o.runner != nil {
		batch.Compliance = complianceSummary(o.runner)
	}
}

func complianceSummary(r *source.Runner) model.ComplianceSummary {
	rep := r.Gate().Report()
	sum := model.ComplianceSummary{
		CachedDomains:  rep.CachedDomains,
		BlockedDomains: rep.BlockedDomains,
	}
	if states := r.Breakers(); len(states) > 0 {
		sum.Breakers = make(map[string]string, len(states))
		for d, s := range states {
			sum.Breakers[d] = s.String()
		}
	}
	return sum
}

// runSources runs adapters concurrently, one worker per adapter, and funnels
// unit results through a single collector.
func (o *Orchestrator) runSources(ctx context.Context, adapters []source.Adapter, rs *runState) error {
	events := make(chan unitEvent)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			o.collect(ev, rs)
		}
	}()

	starts := pacer(o.opts.SourceDelay)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.MaxConcurrentSources)
	for i, a := range adapters {
		g.Go(func() error {
			return o.runSource(gctx, i, a, starts, events)
		})
	}
	err := g.Wait()
	close(events)
	<-done
	return err
}

// runSource runs one adapter's units in order. Cancellation is honored
// between units; a unit already started runs to completion.
func (o *Orchestrator) runSource(ctx context.Context, index int, a source.Adapter, starts *rate.Limiter, events chan<- unitEvent) (err error) {
	log := zap.L().With(zap.String("component", "pipeline.orchestrator"), zap.String("source", a.Name()))
	defer func() {
		if r := recover(); r != nil {
			err = resilience.NewKind(resilience.KindPipelineFatal, a.Name(), fmt.Sprintf("pipeline: panic in source %s: %v", a.Name(), r))
		}
	}()

	if werr := starts.Wait(ctx); werr != nil {
		log.Info("source not started", zap.Error(werr))
		return nil
	}
	o.mu.Lock()
	o.stats.SourcesRun++
	o.mu.Unlock()

	units := a.Units()
	log.Info("source started", zap.Int("units", len(units)))
	t := o.runner.Transport(a.Name())
	pace := pacer(o.opts.UnitDelay)
	for _, u := range units {
		if werr := pace.Wait(ctx); werr != nil {
			log.Info("source stopped between units", zap.String("next_unit", u.String()), zap.Error(werr))
			return nil
		}
		res := o.runner.RunUnit(context.WithoutCancel(ctx), a, t, u)
		events <- unitEvent{index: index, source: a.Name(), result: res}
	}
	log.Info("source finished")
	return nil
}

// pacer returns a limiter that lets the first caller through at once and
// spaces later callers by d.
func pacer(d time.Duration) *rate.Limiter {
	if d <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

func (o *Orchestrator) collect(ev unitEvent, rs *runState) {
	res := ev.result
	rs.candidates[ev.index] = append(rs.candidates[ev.index], res.Candidates...)

	o.mu.Lock()
	sum := o.stats.Sources[ev.source]
	sum.Units++
	sum.Candidates += len(res.Candidates)
	sum.FilteredOut += res.Filtered
	if res.Err != nil {
		sum.UnitsFailed++
	}
	o.stats.Sources[ev.source] = sum
	o.stats.CandidatesFound += len(res.Candidates)
	o.stats.FilteredOut += res.Filtered
	o.mu.Unlock()

	unit := res.Unit.String()
	if res.Err != nil {
		o.recordError(rs, ev.source, unit, res.Err)
	}
	for _, err := range res.MapErrors {
		o.recordError(rs, ev.source, unit, err)
	}
}

// closeSources counts sources whose every unit failed.
func (o *Orchestrator) closeSources(adapters []source.Adapter) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, a := range adapters {
		sum, ok := o.stats.Sources[a.Name()]
		if ok && sum.Units > 0 && sum.UnitsFailed == sum.Units {
			o.stats.SourcesFailed++
			zap.L().Warn("source failed",
				zap.String("component", "pipeline.orchestrator"),
				zap.String("source", a.Name()),
				zap.Int("units", sum.Units),
			)
		}
	}
}

// recordError counts a recovered error by kind and source.
func (o *Orchestrator) recordError(rs *runState, src, unit string, err error) {
	kind := resilience.KindOf(err)
	o.mu.Lock()
	o.stats.Errors++
	o.stats.ErrorsByKind[string(kind)]++
	if src != "" {
		o.stats.ErrorsBySource[src]++
	}
	o.mu.Unlock()
	rs.failures = append(rs.failures, model.Failure{
		Source:  src,
		Unit:    unit,
		Kind:    string(kind),
		Message: err.Error(),
	})
}

// validate normalizes candidates in (source order, arrival order).
func (o *Orchestrator) validate(adapters []source.Adapter, rs *runState) []model.CandidateRecord {
	var valid []model.CandidateRecord
	for i, a := range adapters {
		for _, c := range rs.candidates[i] {
			res := normalize.Normalize(c)
			rs.validation.Warnings = append(rs.validation.Warnings, res.Warnings...)
			if res.Rejection != nil {
				rs.validation.Rejections = append(rs.validation.Rejections, *res.Rejection)
				o.mu.Lock()
				o.stats.Rejected++
				o.mu.Unlock()
				o.recordError(rs, a.Name(), "", resilience.NewKind(resilience.KindValidationRejected, a.Name(),
					"candidate "+c.SourceID+" rejected: "+rejectionReason(res.Rejection)))
				continue
			}
			valid = append(valid, res.Record)

			state := res.Record.Location.State
			if state == "" {
				state = model.UnknownState
			}
			o.mu.Lock()
			o.stats.ValidCandidates++
			sum := o.stats.Sources[a.Name()]
			if sum.ByState == nil {
				sum.ByState = make(map[string]int)
			}
			sum.ByState[state]++
			o.stats.Sources[a.Name()] = sum
			o.mu.Unlock()
		}
	}
	return valid
}

// dedupe feeds valid candidates to a fresh engine from this goroutine only.
func (o *Orchestrator) dedupe(valid []model.CandidateRecord, rs *runState) (*dedup.Engine, error) {
	engine := dedup.NewEngine(o.opts.Dedup)
	for _, c := range valid {
		res, err := engine.Ingest(c)
		if err != nil {
			return nil, err
		}
		src := c.Provenance.SourceName
		o.mu.Lock()
		switch res.Outcome {
		case dedup.Created:
			o.stats.EntitiesCreated++
		case dedup.Merged:
			o.stats.DuplicatesMerged++
		case dedup.Ambiguous:
			o.stats.EntitiesCreated++
			o.stats.FlaggedForReview++
		}
		o.mu.Unlock()
		if res.Outcome == dedup.Ambiguous {
			o.recordError(rs, src, "", resilience.NewKind(resilience.KindMergeAmbiguous, src,
				fmt.Sprintf("candidate %s flagged for review as entity %s", c.SourceID, res.EntityID)))
		}
	}

	entities := engine.Entities()
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, e := range entities {
		if e.Record.Name == "" {
			return nil, resilience.NewKind(resilience.KindPipelineFatal, "", fmt.Sprintf("pipeline: entity %s has no name", e.ID))
		}
		o.stats.QualityHistogram[model.HistogramBucket(e.Record.Quality.Overall)]++
	}
	return engine, nil
}

// export finalizes the batch and hands it to every sink in order. A sink
// error is fatal; later sinks are not called.
func (o *Orchestrator) export(ctx context.Context, batch *model.Batch, rs *runState) error {
	o.fill(batch, rs)
	batch.Stats.Phase = model.PhaseDone
	batch.Stats.FinishedAt = o.now().UTC()

	for _, s := range o.sinks {
		start := time.Now()
		if err := s.Write(ctx, batch); err != nil {
			return resilience.WithKind(eris.Wrapf(err, "pipeline: sink %s", s.Name()), resilience.KindPipelineFatal, "")
		}
		zap.L().Info("batch written",
			zap.String("component", "pipeline.orchestrator"),
			zap.String("sink", s.Name()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	return nil
}

func rejectionReason(r *model.Rejection) string {
	if len(r.Errors) == 0 {
		return "invalid"
	}
	return r.Errors[0].Field + " " + r.Errors[0].Message
}
