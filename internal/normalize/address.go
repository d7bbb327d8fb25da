package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// States is the fixed state/territory enumeration.
var States = []string{"ACT", "NSW", "NT", "QLD", "SA", "TAS", "VIC", "WA"}

var stateAliases = map[string]string{
	"act":                          "ACT",
	"australian capital territory": "ACT",
	"nsw":                          "NSW",
	"new south wales":              "NSW",
	"n.s.w.":                       "NSW",
	"nt":                           "NT",
	"northern territory":           "NT",
	"qld":                          "QLD",
	"queensland":                   "QLD",
	"queenland":                    "QLD",
	"sa":                           "SA",
	"south australia":              "SA",
	"tas":                          "TAS",
	"tasmania":                     "TAS",
	"vic":                          "VIC",
	"victoria":                     "VIC",
	"wa":                           "WA",
	"western australia":            "WA",
}

// State maps a state or territory name to its code. Unknown input returns false.
func State(raw string) (string, bool) {
	s := strings.ToLower(strings.Join(strings.Fields(raw), " "))
	if s == "" {
		return "", true
	}
	code, ok := stateAliases[s]
	return code, ok
}

var (
	postcodeRe      = regexp.MustCompile(`\b(\d{4})[\s,.]*(?:australia)?[\s.]*$`)
	stateInTextRe   = regexp.MustCompile(`(?i)\b(QLD|Queensland|NSW|New South Wales|VIC|Victoria|SA|South Australia|WA|Western Australia|TAS|Tasmania|NT|Northern Territory|ACT)\b`)
	streetNumberRe  = regexp.MustCompile(`\d`)
	doubleCommaRe   = regexp.MustCompile(`,\s*,`)
	trailingPunctRe = regexp.MustCompile(`[\s,]+$`)
	countryRe       = regexp.MustCompile(`(?i),\s*australia[\s.]*$`)
)

// Postcode returns a 4-digit postcode. Three-digit NT and ACT codes are
// left-padded. Anything else returns false.
func Postcode(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", true
	}
	d := digitsOnly(raw)
	if len(d) != len(strings.ReplaceAll(raw, " ", "")) {
		return "", false
	}
	switch len(d) {
	case 3:
		return "0" + d, true
	case 4:
		return d, true
	default:
		return "", false
	}
}

// Address is a free-text address split into parts.
type Address struct {
	Street   string
	Suburb   string
	State    string
	Postcode string
}

// ParseAddress splits "12 Main St, South Brisbane QLD 4101" style text. The
// last comma-separated part is taken as the suburb when there are several.
func ParseAddress(text string) Address {
	var a Address
	text = strings.TrimSpace(text)
	if text == "" {
		return a
	}
	if m := postcodeRe.FindStringSubmatch(strings.ToLower(text)); m != nil {
		a.Postcode = m[1]
	}
	if m := stateInTextRe.FindAllString(text, -1); len(m) > 0 {
		a.State, _ = State(m[len(m)-1])
	}

	rest := countryRe.ReplaceAllString(text, "")
	if a.Postcode != "" {
		if i := strings.LastIndex(rest, a.Postcode); i >= 0 {
			rest = rest[:i] + rest[i+len(a.Postcode):]
		}
	}
	if a.State != "" {
		if loc := stateInTextRe.FindAllStringIndex(rest, -1); len(loc) > 0 {
			last := loc[len(loc)-1]
			rest = rest[:last[0]] + rest[last[1]:]
		}
	}
	rest = doubleCommaRe.ReplaceAllString(rest, ",")
	rest = trailingPunctRe.ReplaceAllString(rest, "")

	var parts []string
	for _, p := range strings.Split(rest, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	switch {
	case len(parts) >= 2:
		a.Suburb = parts[len(parts)-1]
		a.Street = strings.Join(parts[:len(parts)-1], ", ")
	case len(parts) == 1 && streetNumberRe.MatchString(parts[0]):
		a.Street = parts[0]
	case len(parts) == 1:
		a.Suburb = parts[0]
	}
	return a
}

var titleCaser = cases.Title(language.English)

// PlaceName title-cases suburb and city names that arrive in a single case.
func PlaceName(raw string) string {
	s := Text(raw)
	if s == "" {
		return ""
	}
	if s == strings.ToUpper(s) || s == strings.ToLower(s) {
		return titleCaser.String(strings.ToLower(s))
	}
	return s
}
