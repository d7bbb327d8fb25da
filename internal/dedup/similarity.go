package dedup

import (
	"crypto/sha1" //nolint:gosec // content key, not a security boundary
	"encoding/hex"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/catalogue-cli/internal/model"
	"github.com/sells-group/catalogue-cli/internal/normalize"
)

// Fold lowercases s, strips diacritics, turns punctuation into spaces, and
// collapses whitespace.
func Fold(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}
	var b strings.Builder
	b.Grow(len(s))
	space := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if r == '\'' || r == '’' || r == '.' {
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

var streetTypes = map[string]string{
	"st":   "street",
	"str":  "street",
	"rd":   "road",
	"ave":  "avenue",
	"av":   "avenue",
	"dr":   "drive",
	"hwy":  "highway",
	"pde":  "parade",
	"tce":  "terrace",
	"cres": "crescent",
	"cr":   "crescent",
	"ct":   "court",
	"pl":   "place",
	"blvd": "boulevard",
	"ln":   "lane",
	"cct":  "circuit",
	"esp":  "esplanade",
	"sq":   "square",
	"lvl":  "level",
	"nth":  "north",
	"sth":  "south",
}

// FoldAddress folds an address and expands street-type abbreviations.
func FoldAddress(s string) string {
	words := strings.Fields(Fold(s))
	for i, w := range words {
		if full, ok := streetTypes[w]; ok {
			words[i] = full
		}
	}
	return strings.Join(words, " ")
}

// FoldOrg folds an organization name with legal suffixes removed.
func FoldOrg(s string) string {
	return Fold(normalize.StripLegalSuffixes(s))
}

// CoarseKey is the exact-match bucket key: a hash of the folded name,
// address, suburb, and organization name, skipping empty parts.
func CoarseKey(r model.CandidateRecord) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{Fold(r.Name), FoldAddress(r.Location.Address), Fold(r.Location.Suburb), FoldOrg(r.Organization.Name)} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	sum := sha1.Sum([]byte(strings.Join(parts, "|"))) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// StringSimilarity is 1 - levenshtein(a,b)/max(len(a),len(b)) over runes.
func StringSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	return float64(longest-d) / float64(longest)
}

// Similarity is the mean of the field similarities present on both records:
// name, address, postcode (exact), and organization name. Records with no
// comparable field score 0.
func Similarity(a, b model.CandidateRecord) float64 {
	var sum float64
	n := 0
	add := func(x, y string, score func(string, string) float64) {
		if x == "" || y == "" {
			return
		}
		sum += score(x, y)
		n++
	}

	add(Fold(a.Name), Fold(b.Name), StringSimilarity)
	add(FoldAddress(a.Location.Address), FoldAddress(b.Location.Address), StringSimilarity)
	add(a.Location.Postcode, b.Location.Postcode, func(x, y string) float64 {
		if x == y {
			return 1
		}
		return 0
	})
	add(FoldOrg(a.Organization.Name), FoldOrg(b.Organization.Name), StringSimilarity)

	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
