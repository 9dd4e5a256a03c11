package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// turkishFold maps the Turkish letters that generic diacritic stripping
// does not reliably fold to their closest Latin equivalent. Dotless ı in
// particular has no combining mark to strip, and İ lowercases to "i̇"
// under the default case tables.
var turkishFold = strings.NewReplacer(
	"ş", "s", "Ş", "s",
	"ı", "i", "İ", "i",
	"ğ", "g", "Ğ", "g",
	"ç", "c", "Ç", "c",
	"ö", "o", "Ö", "o",
	"ü", "u", "Ü", "u",
)

// stripMarks decomposes to NFD and removes combining marks, then
// recomposes. Covers the general accented-Latin cases the explicit
// Turkish map does not.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldName canonicalizes a Turkish place name into an ASCII-folded,
// lowercase comparison key. Used for grouping and composite join keys
// only, never for display. Folding is idempotent: folding an already
// folded key is a no-op.
func FoldName(value string) string {
	if value == "" {
		return ""
	}
	s := turkishFold.Replace(value)
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// compositeSep joins folded components. Folding only ever produces
// letters, digits, and spaces, so the separator cannot occur inside a
// component and ("a::b", "c") can never collide with ("a", "b::c").
const compositeSep = "::"

// CompositeKey builds the city::district::name fallback join key from
// folded components.
func CompositeKey(city, district, name string) string {
	return FoldName(city) + compositeSep + FoldName(district) + compositeSep + FoldName(name)
}
