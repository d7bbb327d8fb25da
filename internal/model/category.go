package model

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// Category is a closed service taxonomy shared by all sources.
type Category string

const (
	CategoryLegalAid          Category = "legal_aid"
	CategoryCourtSupport      Category = "court_support"
	CategoryMentalHealth      Category = "mental_health"
	CategoryHousing           Category = "housing"
	CategoryEducationTraining Category = "education_training"
	CategoryEmployment        Category = "employment"
	CategorySubstanceAbuse    Category = "substance_abuse"
	CategoryFamilySupport     Category = "family_support"
	CategoryCrisisSupport     Category = "crisis_support"
	CategoryHealth            Category = "health"
	CategoryCulturalSupport   Category = "cultural_support"
	CategoryDisabilitySupport Category = "disability_support"
	CategoryCaseManagement    Category = "case_management"
	CategoryDiversion         Category = "diversion"
	CategoryAdvocacy          Category = "advocacy"
	CategoryRecreation        Category = "recreation"
	CategoryCommunityService  Category = "community_service"
)

var allCategories = []Category{
	CategoryLegalAid,
	CategoryCourtSupport,
	CategoryMentalHealth,
	CategoryHousing,
	CategoryEducationTraining,
	CategoryEmployment,
	CategorySubstanceAbuse,
	CategoryFamilySupport,
	CategoryCrisisSupport,
	CategoryHealth,
	CategoryCulturalSupport,
	CategoryDisabilitySupport,
	CategoryCaseManagement,
	CategoryDiversion,
	CategoryAdvocacy,
	CategoryRecreation,
	CategoryCommunityService,
}

// AllCategories returns every category in taxonomy order.
func AllCategories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

func (c Category) String() string { return string(c) }

// ParseCategory converts a taxonomy name to a Category.
func ParseCategory(s string) (Category, error) {
	want := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, c := range allCategories {
		if c == want {
			return c, nil
		}
	}
	return "", eris.Errorf("model: unknown category %q", s)
}

// SortedSet returns a sorted copy of vals with duplicates and empty values removed.
func SortedSet[T ~string](vals ...T) []T {
	if len(vals) == 0 {
		return nil
	}
	seen := make(map[T]struct{}, len(vals))
	out := make([]T, 0, len(vals))
	for _, v := range vals {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Union merges two sets into a new sorted set.
func Union[T ~string](a, b []T) []T {
	all := make([]T, 0, len(a)+len(b))
	all = append(all, a...)
	all = append(all, b...)
	return SortedSet(all...)
}

// Contains reports whether set holds v.
func Contains[T ~string](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
