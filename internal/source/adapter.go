// Package source turns external directories into Candidate Records: one
// Adapter per source type, a Runner that drives units through the
// compliance gate, and a relevance filter for the youth target population.
package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/catalogue-cli/internal/config"
	"github.com/sells-group/catalogue-cli/internal/fetcher"
	"github.com/sells-group/catalogue-cli/internal/model"
)

// Unit is one (location × category) piece of work for a source.
type Unit struct {
	Source   string
	Location config.LocationConfig
	// Category is a directory category or a portal search term.
	Category string
}

// String is the unit label used in logs and failure reports.
func (u Unit) String() string {
	loc := u.Location.Name
	if loc == "" {
		loc = u.Location.State
	}
	if loc == "" {
		loc = "all"
	}
	return fmt.Sprintf("%s/%s", strings.ToLower(loc), u.Category)
}

// Transport is the only way an adapter reaches the network. Every call is
// checked by the compliance gate before it is issued.
type Transport interface {
	Get(ctx context.Context, url string) (*fetcher.Response, error)
	// GetWithFallback tries fallback only when primary fails with a
	// definitive client error (403 or 404). It reports which was used.
	GetWithFallback(ctx context.Context, primary, fallback string) (*fetcher.Response, bool, error)
}

// Adapter maps one external source into Candidate Records.
type Adapter interface {
	// Name returns the configured source name.
	Name() string

	// Units enumerates the work for one run in a stable order.
	Units() []Unit

	// FetchUnit performs the network calls for u and returns unmapped payloads.
	// Partial results are returned together with the error that stopped them.
	FetchUnit(ctx context.Context, t Transport, u Unit) ([]RawPayload, error)

	// Map converts a payload into a Candidate Record. It is pure.
	Map(p RawPayload) (model.CandidateRecord, error)

	// YouthScoped reports whether every listing is already youth-targeted, so
	// payloads without youth terms are still kept.
	YouthScoped() bool
}

// New builds the adapter for a configured source.
func New(cfg config.SourceConfig, run config.SourceRunConfig) (Adapter, error) {
	switch cfg.Type {
	case "ckan":
		return NewCKAN(cfg, run), nil
	case "askizzy":
		return NewAskIzzy(cfg, run), nil
	case "community":
		return NewCommunity(cfg), nil
	default:
		return nil, eris.Errorf("source: unknown type %q for source %q", cfg.Type, cfg.Name)
	}
}

// NewRegistry builds a registry from the enabled configured sources.
func NewRegistry(cfgs []config.SourceConfig, run config.SourceRunConfig) (*Registry, error) {
	reg := NewEmptyRegistry()
	for _, c := range cfgs {
		if c.Disabled {
			continue
		}
		a, err := New(c, run)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(a); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// ageRange parses optional integer bounds.
func ageRange(minText, maxText string) model.AgeRange {
	var out model.AgeRange
	if n, err := strconv.Atoi(strings.TrimSpace(minText)); err == nil {
		out.Min = model.IntPtr(n)
	}
	if n, err := strconv.Atoi(strings.TrimSpace(maxText)); err == nil {
		out.Max = model.IntPtr(n)
	}
	return out
}

// firstOf returns the first non-empty value among keys.
func firstOf(row map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(row[k]); v != "" {
			return v
		}
	}
	return ""
}

func locations(cfg config.SourceConfig) []config.LocationConfig {
	if len(cfg.Locations) > 0 {
		return cfg.Locations
	}
	return []config.LocationConfig{{State: cfg.State}}
}
