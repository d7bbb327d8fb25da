package normalize

import (
	"strings"

	"github.com/sells-group/catalogue-cli/internal/model"
)

// Youth target band used by the classifiers and the relevance filter.
const (
	YouthMinAge = 10
	YouthMaxAge = 25
)

var (
	YouthTerms      = []string{"youth", "young people", "young person", "adolescent", "adolescents", "teen", "teens", "teenager", "teenagers", "juvenile", "young adults"}
	indigenousTerms = []string{"aboriginal", "torres strait", "indigenous", "first nations", "atsi"}
	disabilityTerms = []string{"ndis", "disability", "disabilities"}
	culturalTerms   = []string{"multicultural", "cald", "refugee", "refugees", "migrant", "migrants", "culturally and linguistically diverse"}
	governmentFunds = []string{"government", "department", "council", "commonwealth", "state", "federal", "ndis", "grant"}
)

// Classify sets the targeting flags from structured fields first and falls
// back to whole-word matching on the description only. Flags that are already
// set stay set.
func Classify(r *model.CandidateRecord) {
	desc := tokens(r.Description)
	kw := tokens(strings.Join(r.Keywords, " "))

	if !r.YouthSpecific {
		r.YouthSpecific = youthByAge(r.AgeRange) ||
			containsAny(kw, YouthTerms) ||
			containsAny(desc, YouthTerms)
	}
	if !r.IndigenousSpecific {
		r.IndigenousSpecific = containsAny(kw, indigenousTerms) || containsAny(desc, indigenousTerms)
	}
	if !r.DisabilitySpecific {
		r.DisabilitySpecific = model.Contains(r.Categories, model.CategoryDisabilitySupport) ||
			containsAny(desc, disabilityTerms)
	}
	if !r.CulturallySpecific {
		r.CulturallySpecific = r.IndigenousSpecific ||
			model.Contains(r.Categories, model.CategoryCulturalSupport) ||
			containsAny(desc, culturalTerms)
	}
	if !r.Funding.GovernmentFunded {
		r.Funding.GovernmentFunded = r.Organization.Type == model.OrgGovernment ||
			containsAny(tokens(strings.Join(r.Funding.Sources, " ")), governmentFunds)
	}
}

// youthByAge reports whether a bounded age range sits within the youth band.
func youthByAge(a model.AgeRange) bool {
	if a.Max == nil {
		return false
	}
	return *a.Max <= YouthMaxAge && a.Overlaps(YouthMinAge, YouthMaxAge)
}
