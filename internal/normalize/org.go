package normalize

import (
	"regexp"
	"strings"

	"github.com/sells-group/catalogue-cli/internal/model"
)

var (
	governmentTerms = []string{"department", "dept", "government", "council", "ministry", "commonwealth", "state of", "queensland health", "nsw health", "agency", "authority"}
	faithTerms      = []string{"church", "catholic", "anglican", "uniting", "mission", "salvation army", "baptist", "lutheran", "presbyterian", "christian", "islamic", "jewish", "st vincent de paul", "diocese", "parish"}
	privateTerms    = []string{"pty ltd", "pty. ltd", "pty limited", "proprietary"}
	communityTerms  = []string{"community organisation", "community organization", "community group", "community"}
)

// OrgType infers the organization taxonomy from a free-text type and the
// organization name. An exact taxonomy value in typeText is used as is.
// Otherwise government, faith-based, and private terms are tried in that
// order; community only matches on typeText. The default is non-profit.
func OrgType(typeText, name string) model.OrgType {
	t := strings.ToLower(strings.TrimSpace(typeText))
	exact := model.OrgType(strings.NewReplacer("-", "_", " ", "_").Replace(t))
	switch exact {
	case model.OrgGovernment, model.OrgFaithBased, model.OrgNonProfit, model.OrgCommunity, model.OrgPrivate:
		return exact
	}

	both := tokens(t + " " + strings.ToLower(name))
	switch {
	case containsAny(both, governmentTerms):
		return model.OrgGovernment
	case containsAny(both, faithTerms):
		return model.OrgFaithBased
	case containsAny(both, privateTerms):
		return model.OrgPrivate
	case containsAny(tokens(t), communityTerms):
		return model.OrgCommunity
	default:
		return model.OrgNonProfit
	}
}

var legalSuffixRe = regexp.MustCompile(`(?i)[\s,]+(pty\.?\s+ltd\.?|pty\.?\s+limited|inc\.?|incorporated|ltd\.?|limited|co\.?|company|corp\.?|corporation|assoc\.?|association|org\.?|organisation|organization)\s*$`)

// StripLegalSuffixes removes trailing legal-entity words ("Inc", "Pty Ltd",
// "Association") so that organization names can be compared.
func StripLegalSuffixes(name string) string {
	s := strings.TrimSpace(name)
	for {
		next := legalSuffixRe.ReplaceAllString(s, "")
		if next == s || next == "" {
			return s
		}
		s = next
	}
}

// tokens lowercases s and replaces punctuation with spaces, padding the result
// with one space on each side so whole-word lookups can use " term ".
func tokens(s string) string {
	var b strings.Builder
	b.WriteByte(' ')
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		isWord := r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '+' || r > 127
		if isWord {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if r == '.' {
			continue
		}
		if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	if !lastSpace {
		b.WriteByte(' ')
	}
	return b.String()
}

// containsAny reports whether any term occurs as whole words in tokenized text.
func containsAny(tokenized string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(tokenized, tokens(term)) {
			return true
		}
	}
	return false
}

// MatchesAny reports whether any term occurs as whole words in free text.
func MatchesAny(text string, terms []string) bool {
	return containsAny(tokens(text), terms)
}
