package normalize

import (
	"strings"
)

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Phone formats an Australian phone number canonically:
//
//	mobile      0412 345 678
//	landline    (07) 3356 1002
//	1300/1800   1300 651 251
//	13          13 11 14
//
// The second return value is false when the input cannot be recognized; the
// trimmed input is returned unchanged in that case.
func Phone(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", true
	}
	d := digitsOnly(raw)
	if strings.HasPrefix(d, "61") && len(d) == 11 {
		d = "0" + d[2:]
	}

	switch {
	case len(d) == 10 && (strings.HasPrefix(d, "1300") || strings.HasPrefix(d, "1800")):
		return d[:4] + " " + d[4:7] + " " + d[7:], true
	case len(d) == 6 && strings.HasPrefix(d, "13"):
		return d[:2] + " " + d[2:4] + " " + d[4:], true
	case len(d) == 10 && strings.HasPrefix(d, "04"):
		return d[:4] + " " + d[4:7] + " " + d[7:], true
	case len(d) == 10 && d[0] == '0' && strings.ContainsRune("2378", rune(d[1])):
		return "(" + d[:2] + ") " + d[2:6] + " " + d[6:], true
	default:
		return raw, false
	}
}
