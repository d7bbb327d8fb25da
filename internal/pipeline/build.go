package pipeline

import (
	"time"

	"github.com/sells-group/catalogue-cli/internal/compliance"
	"github.com/sells-group/catalogue-cli/internal/config"
	"github.com/sells-group/catalogue-cli/internal/dedup"
	"github.com/sells-group/catalogue-cli/internal/fetcher"
	"github.com/sells-group/catalogue-cli/internal/resilience"
	"github.com/sells-group/catalogue-cli/internal/source"
)

// OptionsFromConfig maps configuration onto orchestrator options.
func OptionsFromConfig(cfg *config.Config, sources []string) Options {
	return Options{
		MaxConcurrentSources: cfg.Pipeline.MaxConcurrentSources,
		UnitDelay:            cfg.Pipeline.UnitDelay(),
		SourceDelay:          cfg.Pipeline.SourceDelay(),
		Dedup: dedup.Options{
			Threshold:       cfg.Dedup.Threshold,
			AmbiguityMargin: cfg.Dedup.AmbiguityMargin,
		},
		Sources: sources,
	}
}

// TransportOptionsFromConfig maps configuration onto per-source transport options.
func TransportOptionsFromConfig(cfg *config.Config) source.TransportOptions {
	return source.TransportOptions{
		Policy: compliance.Policy{
			MaxRequestsPerMinute: cfg.Compliance.MaxRequestsPerMinute,
			RespectRobots:        cfg.Compliance.RespectRobots,
			UserAgent:            cfg.Compliance.UserAgent,
		},
		MaxWaitRetries: cfg.Source.MaxWaitRetries,
		Retry: resilience.FromRetryConfig(
			cfg.Retry.MaxAttempts,
			cfg.Retry.InitialBackoffMs,
			cfg.Retry.MaxBackoffMs,
			cfg.Retry.Multiplier,
			cfg.Retry.JitterFraction,
		),
	}
}

// Build assembles an orchestrator with fresh run-scoped state: its own
// fetcher, compliance gate, breakers, and adapter registry. Build once per
// run; a second Run on the same orchestrator would share gate state.
func Build(cfg *config.Config, sources []string, sinks ...Sink) (*Orchestrator, error) {
	reg, err := source.NewRegistry(cfg.EnabledSources(), cfg.Source)
	if err != nil {
		return nil, err
	}

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent: cfg.Compliance.UserAgent,
		Timeout:   time.Duration(cfg.Source.RequestTimeoutSecs) * time.Second,
	})
	gate := compliance.NewGate(f, cfg.Compliance.BlockedDomains)
	gate.SetRobotsTimeout(time.Duration(cfg.Compliance.RobotsTimeoutSecs) * time.Second)
	runner := source.NewRunner(
		gate,
		f,
		resilience.FromCircuitConfig(cfg.Circuit.FailureThreshold, cfg.Circuit.ResetTimeoutSecs),
		TransportOptionsFromConfig(cfg),
	)
	return New(reg, runner, OptionsFromConfig(cfg, sources), sinks...), nil
}
