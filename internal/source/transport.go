package source

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/catalogue-cli/internal/compliance"
	"github.com/sells-group/catalogue-cli/internal/fetcher"
	"github.com/sells-group/catalogue-cli/internal/resilience"
)

// TransportOptions configures a GatedTransport.
type TransportOptions struct {
	Policy compliance.Policy
	// MaxWaitRetries bounds how many Wait decisions are slept through for
	// one call before it fails as rate limited.
	MaxWaitRetries int
	Retry          resilience.RetryConfig
}

// GatedTransport is the Transport handed to adapters. Each attempt asks the
// gate first; transient failures are retried with backoff, and repeated
// failures against a domain open its breaker and block it in the gate.
type GatedTransport struct {
	source   string
	gate     *compliance.Gate
	fetcher  fetcher.Fetcher
	breakers *resilience.DomainBreakers
	opts     TransportOptions

	mu     sync.Mutex
	denied map[string]string

	sleep func(ctx context.Context, d time.Duration) error
}

// NewGatedTransport creates the transport one source uses for a run.
func NewGatedTransport(source string, gate *compliance.Gate, f fetcher.Fetcher, breakers *resilience.DomainBreakers, opts TransportOptions) *GatedTransport {
	if opts.MaxWaitRetries < 0 {
		opts.MaxWaitRetries = 0
	}
	return &GatedTransport{
		source:   source,
		gate:     gate,
		fetcher:  f,
		breakers: breakers,
		opts:     opts,
		denied:   make(map[string]string),
		sleep:    resilience.Sleep,
	}
}

// Get fetches rawURL once the gate allows it.
func (t *GatedTransport) Get(ctx context.Context, rawURL string) (*fetcher.Response, error) {
	if reason, ok := t.deniedReason(rawURL); ok {
		return nil, resilience.WithKind(eris.Errorf("compliance: %s denied earlier in run: %s", rawURL, reason), resilience.KindComplianceDenied, t.source)
	}

	retry := t.opts.Retry
	retry.ShouldRetry = func(err error) bool {
		var ke *resilience.KindError
		if errors.As(err, &ke) {
			return false
		}
		return resilience.IsTransient(err)
	}
	retry.OnRetry = resilience.RetryLogger(t.source, rawURL)

	resp, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*fetcher.Response, error) {
		return t.attempt(ctx, rawURL)
	})
	if err == nil {
		return resp, nil
	}
	var ke *resilience.KindError
	if errors.As(err, &ke) || ctx.Err() != nil {
		return nil, err
	}
	return nil, resilience.WithKind(err, resilience.KindTransport, t.source)
}

// GetWithFallback implements Transport.
func (t *GatedTransport) GetWithFallback(ctx context.Context, primary, fallback string) (*fetcher.Response, bool, error) {
	resp, err := t.Get(ctx, primary)
	if err == nil || fallback == "" || !fetcher.IsDefinitiveClientError(err) {
		return resp, false, err
	}
	zap.L().Info("primary endpoint missing, trying fallback",
		zap.String("source", t.source),
		zap.String("primary", primary),
		zap.String("fallback", fallback),
		zap.Int("status", fetcher.StatusCode(err)),
	)
	resp, err = t.Get(ctx, fallback)
	return resp, true, err
}

// attempt waits out the gate, then issues one GET through the domain breaker.
func (t *GatedTransport) attempt(ctx context.Context, rawURL string) (*fetcher.Response, error) {
	for waits := 0; ; waits++ {
		d := t.gate.Check(ctx, rawURL, t.opts.Policy)
		switch d.Outcome {
		case compliance.Allow:
			return t.fetch(ctx, rawURL)
		case compliance.Deny:
			t.remember(rawURL, d.Reason)
			zap.L().Warn("request denied by compliance gate",
				zap.String("source", t.source),
				zap.String("url", rawURL),
				zap.String("reason", d.Reason),
			)
			return nil, resilience.WithKind(eris.Errorf("compliance: %s: %s", rawURL, d.Reason), resilience.KindComplianceDenied, t.source)
		case compliance.Wait:
			if waits >= t.opts.MaxWaitRetries {
				return nil, resilience.WithKind(eris.Errorf("compliance: %s: still rate limited after %d waits", rawURL, waits), resilience.KindRateLimited, t.source)
			}
			zap.L().Debug("rate window full, waiting",
				zap.String("source", t.source),
				zap.String("url", rawURL),
				zap.Duration("wait", d.Wait),
			)
			if err := t.sleep(ctx, d.Wait); err != nil {
				return nil, err
			}
		}
	}
}

func (t *GatedTransport) fetch(ctx context.Context, rawURL string) (*fetcher.Response, error) {
	if t.breakers == nil {
		return t.fetcher.Get(ctx, rawURL)
	}
	cb := t.breakers.Get(hostOf(rawURL))
	return resilience.ExecuteVal(ctx, cb, func(ctx context.Context) (*fetcher.Response, error) {
		return t.fetcher.Get(ctx, rawURL)
	})
}

func (t *GatedTransport) remember(rawURL, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.denied[rawURL] = reason
}

func (t *GatedTransport) deniedReason(rawURL string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.denied[rawURL]
	return r, ok
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
