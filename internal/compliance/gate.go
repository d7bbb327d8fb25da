// Package compliance decides whether an outbound request may be made now:
// per-domain blocklist, per-minute request windows, and robots.txt directives.
package compliance

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/catalogue-cli/internal/fetcher"
)

// Outcome is the verdict of a compliance check.
type Outcome int

const (
	Allow Outcome = iota
	Deny
	Wait
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	case Wait:
		return "wait"
	default:
		return "unknown"
	}
}

// Decision is the result of Check. Wait is set only for the Wait outcome.
type Decision struct {
	Outcome Outcome
	Reason  string
	Wait    time.Duration
}

// Policy is the per-source compliance configuration.
type Policy struct {
	MaxRequestsPerMinute int
	RespectRobots        bool
	UserAgent            string
}

// DefaultPolicy returns the policy used when a source sets none.
func DefaultPolicy() Policy {
	return Policy{MaxRequestsPerMinute: 30, RespectRobots: true, UserAgent: "Youth-Service-Catalogue-Bot/1.0"}
}

// bucketRetention is how many past minute windows are kept per domain.
const bucketRetention = 5

// Gate holds the compliance state for one run. It is safe for concurrent use.
type Gate struct {
	fetcher fetcher.Fetcher

	mu      sync.Mutex
	robots  map[string]*Robots
	windows map[string]map[int64]int
	blocked map[string]string

	inflight      singleflight.Group
	nowFunc       func() time.Time
	robotsTimeout time.Duration
}

// NewGate creates a gate that fetches robots.txt with f and starts with the
// given domains blocked.
func NewGate(f fetcher.Fetcher, blocked []string) *Gate {
	g := &Gate{
		fetcher: f,
		robots:  make(map[string]*Robots),
		windows: make(map[string]map[int64]int),
		blocked: make(map[string]string),
		nowFunc: time.Now,
	}
	for _, d := range blocked {
		g.blocked[normalizeDomain(d)] = "configured"
	}
	return g
}

func normalizeDomain(d string) string {
	d = strings.ToLower(strings.TrimSpace(d))
	if u, err := url.Parse(d); err == nil && u.Host != "" {
		d = u.Host
	}
	return d
}

// Check evaluates the blocklist, then the rate window, then robots.txt,
// stopping at the first non-Allow verdict. An allowed check consumes one slot
// in the domain's current minute.
func (g *Gate) Check(ctx context.Context, rawURL string, p Policy) Decision {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return Decision{Outcome: Deny, Reason: "invalid url"}
	}
	domain := strings.ToLower(u.Host)
	log := zap.L().With(zap.String("component", "compliance.gate"), zap.String("domain", domain))

	if reason, ok := g.isBlocked(domain); ok {
		return Decision{Outcome: Deny, Reason: "domain blocked: " + reason}
	}

	if wait, ok := g.takeSlot(domain, p.MaxRequestsPerMinute); !ok {
		log.Debug("rate window full", zap.Duration("wait", wait))
		return Decision{Outcome: Wait, Reason: "rate limit", Wait: wait}
	}

	if !p.RespectRobots {
		return Decision{Outcome: Allow}
	}

	rules, err := g.robotsFor(ctx, u)
	if err != nil {
		log.Warn("robots.txt unavailable, denying", zap.Error(err))
		return Decision{Outcome: Deny, Reason: "robots.txt unavailable"}
	}

	path := u.EscapedPath()
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	if !rules.Allowed(p.UserAgent, path) {
		return Decision{Outcome: Deny, Reason: "disallowed by robots.txt"}
	}
	return Decision{Outcome: Allow}
}

func (g *Gate) isBlocked(domain string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	reason, ok := g.blocked[domain]
	return reason, ok
}

// takeSlot consumes a request slot in the current minute or reports how long
// until the next minute starts.
func (g *Gate) takeSlot(domain string, limit int) (time.Duration, bool) {
	if limit <= 0 {
		limit = DefaultPolicy().MaxRequestsPerMinute
	}
	now := g.nowFunc()
	minute := now.Unix() / 60

	g.mu.Lock()
	defer g.mu.Unlock()

	buckets, ok := g.windows[domain]
	if !ok {
		buckets = make(map[int64]int)
		g.windows[domain] = buckets
	}
	for m := range buckets {
		if m < minute-bucketRetention {
			delete(buckets, m)
		}
	}

	if buckets[minute] >= limit {
		next := time.Unix((minute+1)*60, 0)
		return next.Sub(now), false
	}
	buckets[minute]++
	return 0, true
}

// robotsFor returns the cached directives for u's domain, fetching them once.
// Only successful fetches and "no file" answers are cached.
func (g *Gate) robotsFor(ctx context.Context, u *url.URL) (*Robots, error) {
	domain := strings.ToLower(u.Host)

	g.mu.Lock()
	r, ok := g.robots[domain]
	g.mu.Unlock()
	if ok {
		return r, nil
	}

	v, err, _ := g.inflight.Do(domain, func() (any, error) {
		g.mu.Lock()
		cached, ok := g.robots[domain]
		g.mu.Unlock()
		if ok {
			return cached, nil
		}
		robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"
		rules, err := g.fetchRobots(ctx, robotsURL)
		if err != nil {
			return nil, err
		}
		g.mu.Lock()
		g.robots[domain] = rules
		g.mu.Unlock()
		return rules, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Robots), nil
}

// SetRobotsTimeout bounds each robots.txt fetch. Zero leaves it to the fetcher.
func (g *Gate) SetRobotsTimeout(d time.Duration) {
	g.robotsTimeout = d
}

func (g *Gate) fetchRobots(ctx context.Context, robotsURL string) (*Robots, error) {
	if g.robotsTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.robotsTimeout)
		defer cancel()
	}
	resp, err := g.fetcher.Get(ctx, robotsURL)
	if err == nil {
		return ParseRobots(string(resp.Body)), nil
	}
	code := fetcher.StatusCode(err)
	if code >= 400 && code < 500 && code != http.StatusTooManyRequests {
		return AllowAll, nil
	}
	return nil, eris.Wrapf(err, "compliance: fetch %s", robotsURL)
}

// Block denies every later request to domain for the rest of the run.
func (g *Gate) Block(domain, reason string) {
	domain = normalizeDomain(domain)
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.blocked[domain]; ok {
		return
	}
	g.blocked[domain] = reason
	zap.L().Warn("domain blocked",
		zap.String("component", "compliance.gate"),
		zap.String("domain", domain),
		zap.String("reason", reason),
	)
}

// Report is a snapshot of gate state.
type Report struct {
	CachedDomains  []string          `json:"cached_domains"`
	BlockedDomains map[string]string `json:"blocked_domains"`
	CurrentWindow  map[string]int    `json:"current_window"`
}

// Report returns a snapshot of cached robots domains, blocked domains, and
// the request count of each domain's current minute.
func (g *Gate) Report() Report {
	minute := g.nowFunc().Unix() / 60

	g.mu.Lock()
	defer g.mu.Unlock()

	rep := Report{
		CachedDomains:  make([]string, 0, len(g.robots)),
		BlockedDomains: make(map[string]string, len(g.blocked)),
		CurrentWindow:  make(map[string]int, len(g.windows)),
	}
	for d := range g.robots {
		rep.CachedDomains = append(rep.CachedDomains, d)
	}
	sort.Strings(rep.CachedDomains)
	for d, r := range g.blocked {
		rep.BlockedDomains[d] = r
	}
	for d, b := range g.windows {
		if n := b[minute]; n > 0 {
			rep.CurrentWindow[d] = n
		}
	}
	return rep
}
