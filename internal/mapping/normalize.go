package mapping

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var croatianFold = strings.NewReplacer(
	"č", "c", "Č", "C",
	"ć", "c", "Ć", "C",
	"đ", "dj", "Đ", "Dj",
	"š", "s", "Š", "S",
	"ž", "z", "Ž", "Z",
)

// RemoveDiacritics folds Croatian letters to ASCII (đ becomes dj) and strips
// any remaining combining marks
func RemoveDiacritics(s string) string {
	s = croatianFold.Replace(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeHeader reduces a column header to a comparable token: diacritics
// folded, lowercased, and every run of non-alphanumerics collapsed to a single
// underscore.
//
//	"Rok trajanja (DD.MM.)" -> "rok_trajanja_dd_mm"
func NormalizeHeader(header string) string {
	s := strings.ToLower(RemoveDiacritics(strings.TrimSpace(header)))
	var b strings.Builder
	pendingSep := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}
