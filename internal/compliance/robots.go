package compliance

import (
	"bufio"
	"strings"
)

type robotsRule struct {
	allow   bool
	pattern string
}

type robotsGroup struct {
	agents []string
	rules  []robotsRule
}

// Robots holds the parsed directives of one robots.txt file. The zero value
// allows everything.
type Robots struct {
	groups []robotsGroup
}

// AllowAll is the directive set used when a domain has no robots.txt.
var AllowAll = &Robots{}

// ParseRobots parses User-agent, Allow, and Disallow lines. Other fields are ignored.
func ParseRobots(body string) *Robots {
	r := &Robots{}
	var cur *robotsGroup
	inRules := false

	sc := bufio.NewScanner(strings.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)

		switch key {
		case "user-agent":
			if cur == nil || inRules {
				r.groups = append(r.groups, robotsGroup{})
				cur = &r.groups[len(r.groups)-1]
				inRules = false
			}
			cur.agents = append(cur.agents, strings.ToLower(val))
		case "allow", "disallow":
			if cur == nil {
				continue
			}
			inRules = true
			if val == "" {
				// An empty Disallow allows everything; an empty Allow means nothing.
				continue
			}
			cur.rules = append(cur.rules, robotsRule{allow: key == "allow", pattern: val})
		}
	}
	return r
}

// productToken reduces a User-Agent header to its lowercased product name.
func productToken(userAgent string) string {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	if i := strings.IndexAny(ua, "/ ("); i >= 0 {
		ua = ua[:i]
	}
	return ua
}

// rulesFor returns the rules that apply to userAgent: those of every group
// naming the agent, or failing that every "*" group.
func (r *Robots) rulesFor(userAgent string) []robotsRule {
	token := productToken(userAgent)
	var specific, wildcard []robotsRule
	matched := false
	for _, g := range r.groups {
		isWild, isNamed := false, false
		for _, a := range g.agents {
			if a == "*" {
				isWild = true
			} else if a != "" && token != "" && strings.HasPrefix(token, a) {
				isNamed = true
			}
		}
		switch {
		case isNamed:
			matched = true
			specific = append(specific, g.rules...)
		case isWild:
			wildcard = append(wildcard, g.rules...)
		}
	}
	if matched {
		return specific
	}
	return wildcard
}

// Allowed reports whether userAgent may fetch path. The longest matching rule
// wins; on a tie Allow wins. No matching rule means allowed.
func (r *Robots) Allowed(userAgent, path string) bool {
	if path == "" {
		path = "/"
	}
	if path == "/robots.txt" {
		return true
	}
	bestLen := -1
	allowed := true
	for _, rule := range r.rulesFor(userAgent) {
		if !matchPattern(rule.pattern, path) {
			continue
		}
		n := len(rule.pattern)
		if n > bestLen || (n == bestLen && rule.allow) {
			bestLen = n
			allowed = rule.allow
		}
	}
	return allowed
}

// matchPattern matches a robots path pattern supporting '*' and a trailing '$'.
func matchPattern(pattern, path string) bool {
	anchored := strings.HasSuffix(pattern, "$")
	pattern = strings.TrimSuffix(pattern, "$")

	parts := strings.Split(pattern, "*")
	if !strings.HasPrefix(path, parts[0]) {
		return false
	}
	if len(parts) == 1 {
		return !anchored || path == parts[0]
	}

	pos := len(parts[0])
	for _, part := range parts[1 : len(parts)-1] {
		idx := strings.Index(path[pos:], part)
		if idx < 0 {
			return false
		}
		pos += idx + len(part)
	}
	last := parts[len(parts)-1]
	if anchored {
		return len(path)-len(last) >= pos && strings.HasSuffix(path, last)
	}
	return strings.Contains(path[pos:], last)
}
