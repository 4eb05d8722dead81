// Package normalize strips diacritics from scraped text and builds the
// filesystem-safe slugs used in snapshot file names.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// replacements covers letters that do not decompose into base + combining mark.
var replacements = strings.NewReplacer(
	"ß", "ss",
	"Æ", "AE", "æ", "ae",
	"Ø", "O", "ø", "o",
	"Œ", "OE", "œ", "oe",
	"Ł", "L", "ł", "l",
	"Đ", "D", "đ", "d",
	"Þ", "TH", "þ", "th",
)

// StripDiacritics removes accents while preserving case: "São Paulo" -> "Sao Paulo".
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return replacements.Replace(out)
}

// Slug lower-cases s and strips diacritics. Letters, digits and '-' are
// kept; every other run of characters becomes a single underscore, so the
// result never contains a path separator or a leading dot.
func Slug(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(StripDiacritics(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

// Key is the comparison form used when matching free text against UI labels.
func Key(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(StripDiacritics(s)), " "))
}
