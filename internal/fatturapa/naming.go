package fatturapa

import "strings"

// BaseName derives the deterministic artifact base name from the invoice
// business key. Every character of the number outside [A-Za-z0-9] becomes an
// underscore and every non-digit of the date is dropped, so the same key
// always maps to the same name. This is the foundation of the idempotent
// artifact-write guarantee.
//
// An empty or all-punctuation number degenerates to underscore-only segments;
// that is a known data-quality edge, accepted rather than rejected.
func BaseName(number, date string) string {
	var num strings.Builder
	for _, r := range number {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			num.WriteRune(r)
		} else {
			num.WriteByte('_')
		}
	}
	var d strings.Builder
	for _, r := range date {
		if r >= '0' && r <= '9' {
			d.WriteRune(r)
		}
	}
	return num.String() + "_" + d.String()
}
