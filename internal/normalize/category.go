package normalize

import (
	"strings"

	"github.com/sells-group/catalogue-cli/internal/model"
)

// categoryTerms maps free-text labels to the taxonomy. Longer phrases are
// listed before the single words they contain.
var categoryTerms = []struct {
	term     string
	category model.Category
}{
	{"crisis accommodation", model.CategoryHousing},
	{"court support", model.CategoryCourtSupport},
	{"legal aid", model.CategoryLegalAid},
	{"legal assistance", model.CategoryLegalAid},
	{"legal", model.CategoryLegalAid},
	{"lawyer", model.CategoryLegalAid},
	{"court", model.CategoryCourtSupport},
	{"bail support", model.CategoryCourtSupport},
	{"mental health", model.CategoryMentalHealth},
	{"counselling", model.CategoryMentalHealth},
	{"counseling", model.CategoryMentalHealth},
	{"psychology", model.CategoryMentalHealth},
	{"therapy", model.CategoryMentalHealth},
	{"wellbeing", model.CategoryMentalHealth},
	{"well being", model.CategoryMentalHealth},
	{"housing", model.CategoryHousing},
	{"accommodation", model.CategoryHousing},
	{"homeless", model.CategoryHousing},
	{"homelessness", model.CategoryHousing},
	{"shelter", model.CategoryHousing},
	{"education", model.CategoryEducationTraining},
	{"training", model.CategoryEducationTraining},
	{"school", model.CategoryEducationTraining},
	{"learning", model.CategoryEducationTraining},
	{"vocational", model.CategoryEducationTraining},
	{"employment", model.CategoryEmployment},
	{"jobs", model.CategoryEmployment},
	{"job", model.CategoryEmployment},
	{"work", model.CategoryEmployment},
	{"drug", model.CategorySubstanceAbuse},
	{"drugs", model.CategorySubstanceAbuse},
	{"alcohol", model.CategorySubstanceAbuse},
	{"substance", model.CategorySubstanceAbuse},
	{"addiction", model.CategorySubstanceAbuse},
	{"aod", model.CategorySubstanceAbuse},
	{"family", model.CategoryFamilySupport},
	{"families", model.CategoryFamilySupport},
	{"parent", model.CategoryFamilySupport},
	{"parenting", model.CategoryFamilySupport},
	{"carer", model.CategoryFamilySupport},
	{"crisis", model.CategoryCrisisSupport},
	{"emergency", model.CategoryCrisisSupport},
	{"domestic violence", model.CategoryCrisisSupport},
	{"health", model.CategoryHealth},
	{"medical", model.CategoryHealth},
	{"gp", model.CategoryHealth},
	{"sexual health", model.CategoryHealth},
	{"indigenous", model.CategoryCulturalSupport},
	{"aboriginal", model.CategoryCulturalSupport},
	{"torres strait", model.CategoryCulturalSupport},
	{"first nations", model.CategoryCulturalSupport},
	{"cultural", model.CategoryCulturalSupport},
	{"multicultural", model.CategoryCulturalSupport},
	{"disability", model.CategoryDisabilitySupport},
	{"ndis", model.CategoryDisabilitySupport},
	{"case management", model.CategoryCaseManagement},
	{"casework", model.CategoryCaseManagement},
	{"diversion", model.CategoryDiversion},
	{"youth justice", model.CategoryDiversion},
	{"advocacy", model.CategoryAdvocacy},
	{"rights", model.CategoryAdvocacy},
	{"recreation", model.CategoryRecreation},
	{"sport", model.CategoryRecreation},
	{"sports", model.CategoryRecreation},
	{"community", model.CategoryCommunityService},
	{"support services", model.CategoryCommunityService},
}

// Category maps one free-text label to the taxonomy. Taxonomy names are
// accepted directly; otherwise the first table term found in the label wins.
func Category(label string) (model.Category, bool) {
	if c, err := model.ParseCategory(strings.ReplaceAll(strings.TrimSpace(label), " ", "_")); err == nil {
		return c, true
	}
	tok := tokens(label)
	for _, ct := range categoryTerms {
		if strings.Contains(tok, tokens(ct.term)) {
			return ct.category, true
		}
	}
	return "", false
}

// Categories maps labels to a sorted category set, dropping unknown labels.
func Categories(labels []model.Category) []model.Category {
	out := make([]model.Category, 0, len(labels))
	for _, l := range labels {
		if c, ok := Category(string(l)); ok {
			out = append(out, c)
		}
	}
	return model.SortedSet(out...)
}
