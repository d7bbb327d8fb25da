package source

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sells-group/catalogue-cli/internal/compliance"
	"github.com/sells-group/catalogue-cli/internal/fetcher"
	"github.com/sells-group/catalogue-cli/internal/model"
	"github.com/sells-group/catalogue-cli/internal/resilience"
)

// UnitResult is the outcome of one unit. Err is set when the unit failed or
// was cut short; Candidates may still hold what was fetched before that.
type UnitResult struct {
	Unit       Unit
	Fetched    int
	Filtered   int
	Candidates []model.CandidateRecord
	// MapErrors are payloads the adapter could not map.
	MapErrors []error
	Err       error
}

// Runner executes units for every source of a run against shared gate state.
type Runner struct {
	gate     *compliance.Gate
	fetcher  fetcher.Fetcher
	breakers *resilience.DomainBreakers
	opts     TransportOptions
}

// NewRunner creates a runner. When a domain's breaker opens, the domain is
// blocked in gate for the rest of the run.
func NewRunner(gate *compliance.Gate, f fetcher.Fetcher, circuit resilience.CircuitBreakerConfig, opts TransportOptions) *Runner {
	breakers := resilience.NewDomainBreakers(circuit, func(domain string) {
		gate.Block(domain, "repeated transport failures")
	})
	return &Runner{gate: gate, fetcher: f, breakers: breakers, opts: opts}
}

// Transport returns a new gated transport for one source.
func (r *Runner) Transport(source string) *GatedTransport {
	return NewGatedTransport(source, r.gate, r.fetcher, r.breakers, r.opts)
}

// RunUnit fetches one unit, drops irrelevant payloads, and maps the rest.
func (r *Runner) RunUnit(ctx context.Context, a Adapter, t Transport, u Unit) UnitResult {
	log := zap.L().With(
		zap.String("component", "source.runner"),
		zap.String("source", a.Name()),
		zap.String("unit", u.String()),
	)

	payloads, err := a.FetchUnit(ctx, t, u)
	res := UnitResult{Unit: u, Fetched: len(payloads)}
	if err != nil {
		res.Err = classify(err, a.Name())
		log.Warn("unit failed",
			zap.String("kind", string(resilience.KindOf(res.Err))),
			zap.Int("partial_payloads", len(payloads)),
			zap.Error(err),
		)
	}

	for _, p := range payloads {
		if v := Relevance(p, a.YouthScoped()); v != Keep {
			res.Filtered++
			continue
		}
		rec, err := a.Map(p)
		if err != nil {
			res.MapErrors = append(res.MapErrors, resilience.WithKind(err, resilience.KindValidationRejected, a.Name()))
			continue
		}
		res.Candidates = append(res.Candidates, rec)
	}

	log.Debug("unit complete",
		zap.Int("fetched", res.Fetched),
		zap.Int("filtered", res.Filtered),
		zap.Int("candidates", len(res.Candidates)),
	)
	return res
}

// classify tags adapter errors that carry no kind as transport errors, so a
// bad payload or an unreachable resource never reads as fatal.
func classify(err error, source string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var ke *resilience.KindError
	if errors.As(err, &ke) {
		return err
	}
	return resilience.WithKind(err, resilience.KindTransport, source)
}

// Breakers exposes the per-domain breaker states for the run report.
func (r *Runner) Breakers() map[string]resilience.CircuitState {
	return r.breakers.States()
}

// Gate returns the compliance gate shared by every transport of the run.
func (r *Runner) Gate() *compliance.Gate {
	return r.gate
}
