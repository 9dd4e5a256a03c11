// Package normalize canonicalizes raw scalar values into comparable join
// keys. Identifier keys and place names take different paths: NormalizeKey
// handles ids that arrive as floats or padded strings, FoldName handles
// Turkish place-name spelling variance.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// reZeroFraction matches a decimal suffix whose fractional part is entirely
// zeros ("192001.0", "1920.00"). "1920.50" does not match.
var reZeroFraction = regexp.MustCompile(`\.0+$`)

// NormalizeKey canonicalizes an identifier value for equality comparison.
// Numeric identifiers frequently arrive as floats from upstream exports
// ("192001.0"); the all-zero fractional suffix is stripped so both sides of
// a join agree. Non-breaking spaces and whitespace runs collapse to single
// ASCII spaces. nil yields "". No letter folding happens here.
func NormalizeKey(value interface{}) string {
	var s string
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		s = v
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		s = strconv.Itoa(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	default:
		s = fmt.Sprintf("%v", v)
	}

	s = strings.TrimSpace(s)
	s = reZeroFraction.ReplaceAllString(s, "")
	// strings.Fields splits on all Unicode whitespace including U+00A0,
	// collapsing runs and trimming in one pass.
	s = strings.Join(strings.Fields(s), " ")
	return s
}
