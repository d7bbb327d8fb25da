package source

import (
	"github.com/sells-group/catalogue-cli/internal/normalize"
)

// ExclusionTerms mark listings aimed at older people. They win over any
// youth term in the same text.
var ExclusionTerms = []string{
	"aged care", "retirement", "retirement village", "nursing home", "senior", "seniors",
	"elderly", "over 55", "over 60", "over 65", "over 55s", "over 60s", "dementia",
	"palliative", "adults only", "18+", "adult only",
}

// inclusionTerms extend the youth vocabulary with the family and school
// settings youth services are listed under.
var inclusionTerms = append(append([]string{}, normalize.YouthTerms...),
	"young", "child", "children", "student", "students", "school", "family", "families", "kids",
)

// Verdict is the relevance filter's decision for one payload.
type Verdict int

const (
	Keep Verdict = iota
	Excluded
	NotRelevant
)

func (v Verdict) String() string {
	switch v {
	case Keep:
		return "keep"
	case Excluded:
		return "excluded"
	case NotRelevant:
		return "not_relevant"
	default:
		return "unknown"
	}
}

// Relevance decides whether a payload concerns the youth population.
// Exclusion terms discard it outright. Otherwise it is kept when its text
// names a youth term, its age range overlaps the youth band, or the source is
// youth-scoped.
func Relevance(p RawPayload, youthScoped bool) Verdict {
	text := p.Text()
	if normalize.MatchesAny(text, ExclusionTerms) {
		return Excluded
	}
	if normalize.MatchesAny(text, inclusionTerms) {
		return Keep
	}
	if ages := p.Ages(); !ages.IsZero() && ages.Overlaps(normalize.YouthMinAge, normalize.YouthMaxAge) {
		return Keep
	}
	if youthScoped {
		return Keep
	}
	return NotRelevant
}
