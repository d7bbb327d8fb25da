package normalize

import (
	"html"
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/catalogue-cli/internal/model"
)

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

// Text strips HTML tags, decodes entities, and collapses whitespace.
func Text(raw string) string {
	if raw == "" {
		return ""
	}
	s := htmlTagRe.ReplaceAllString(raw, " ")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

// Email lowercases and trims an address. The second value is false when the
// result is not a bare address.
func Email(raw string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "mailto:")))
	if s == "" {
		return "", true
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || !strings.Contains(s[strings.LastIndex(s, "@"):], ".") {
		return s, false
	}
	return s, true
}

// URL adds a missing https scheme and strips a trailing slash from the path.
func URL(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", true
	}
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" || !strings.Contains(u.Host, ".") || strings.ContainsAny(u.Host, " ") {
		return strings.TrimSpace(raw), false
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	} else {
		u.Path = ""
	}
	return u.String(), true
}

var abnWeights = [11]int{10, 1, 3, 5, 7, 9, 11, 13, 15, 17, 19}

// ABN returns the 11 digits of an Australian Business Number when its
// checksum is valid.
func ABN(raw string) (string, bool) {
	if strings.TrimSpace(raw) == "" {
		return "", true
	}
	d := digitsOnly(raw)
	if len(d) != 11 {
		return "", false
	}
	sum := 0
	for i, w := range abnWeights {
		n := int(d[i] - '0')
		if i == 0 {
			n--
		}
		sum += n * w
	}
	if sum%89 != 0 {
		return "", false
	}
	return d, true
}

var (
	ageRangeRe   = regexp.MustCompile(`(\d{1,3})\s*(?:-|–|to)\s*(\d{1,3})`)
	ageUnderRe   = regexp.MustCompile(`(?:under|below|younger than)\s+(\d{1,3})`)
	ageOverRe    = regexp.MustCompile(`(\d{1,3})\s*(?:\+|and over|and above|or older|years and over)`)
	ageOverPreRe = regexp.MustCompile(`(?:over|above|older than)\s+(\d{1,3})`)
	ageSingleRe  = regexp.MustCompile(`\b(\d{1,3})\s*(?:years?|yrs?)\s*(?:old|only)?\b`)
)

// AgeRange parses "10-17 years", "ages 12 to 25", "under 18", "12+", and
// "over 16" style text. Unrecognized text returns a zero range.
func AgeRange(text string) model.AgeRange {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return model.AgeRange{}
	}
	atoi := func(v string) int {
		n, _ := strconv.Atoi(v)
		return n
	}
	if m := ageRangeRe.FindStringSubmatch(s); m != nil {
		return model.AgeRange{Min: model.IntPtr(atoi(m[1])), Max: model.IntPtr(atoi(m[2]))}
	}
	if m := ageUnderRe.FindStringSubmatch(s); m != nil {
		return model.AgeRange{Max: model.IntPtr(atoi(m[1]) - 1)}
	}
	if m := ageOverRe.FindStringSubmatch(s); m != nil {
		return model.AgeRange{Min: model.IntPtr(atoi(m[1]))}
	}
	if m := ageOverPreRe.FindStringSubmatch(s); m != nil {
		return model.AgeRange{Min: model.IntPtr(atoi(m[1]) + 1)}
	}
	if m := ageSingleRe.FindStringSubmatch(s); m != nil {
		n := atoi(m[1])
		return model.AgeRange{Min: model.IntPtr(n), Max: model.IntPtr(n)}
	}
	return model.AgeRange{}
}

// Keywords lowercases, trims, and de-duplicates keywords.
func Keywords(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, k := range raw {
		if k = strings.ToLower(Text(k)); k != "" {
			out = append(out, k)
		}
	}
	return model.SortedSet(out...)
}
