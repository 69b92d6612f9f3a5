package normalize

import (
	"regexp"
	"strings"

	"github.com/openlistings/listings-refinery/internal/core/services/streettype"
)

var (
	// End-of-string anchored only: a mid-string number may be a legitimate
	// street component
	trailingPostcodeRegexp = regexp.MustCompile(`(?i)[\s,]+(?:(?:nsw|qld|vic|sa|wa|tas|nt|act)[\s,]+)?\d{4,5}\s*$`)
	trailingStateRegexp    = regexp.MustCompile(`(?i)[\s,]+(?:nsw|qld|vic|sa|wa|tas|nt|act)\.?\s*$`)

	workUnitRegexp   = regexp.MustCompile(`(?i)\bwork\s*unit\b`)
	slashSpaceRegexp = regexp.MustCompile(`\s*/\s*`)
	rangeHyphenRegex = regexp.MustCompile(`(\d)\s*-\s*(\d)`)

	// Parenthesized asides without digits; "(22)" in "Lot 4 (22) Ridge Rd"
	// is a street number and must survive sanitization
	wordParenRegexp = regexp.MustCompile(`\([^)0-9]*\)`)
)

// Address normalizes a raw free-text address into "<numbers> <Street Name
// <Type>>" form. The street-type token is the only reliable right boundary
// in the corpus, so everything after the last recognized street type is
// discarded. This truncation is deliberately lossy.
func (n *FieldNormalizer) Address(raw string) string {
	if isNoValue(raw) {
		return ""
	}

	s := trailingPostcodeRegexp.ReplaceAllString(raw, "")
	s = trailingStateRegexp.ReplaceAllString(s, "")

	s = stripParens(s)
	s = workUnitRegexp.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, ",", " ")
	s = slashSpaceRegexp.ReplaceAllString(s, "/")
	s = rangeHyphenRegex.ReplaceAllString(s, "$1-$2")

	s = collapseWhitespace(s)
	if s == "" || isPurelyNumeric(s) {
		// A bare number is not a usable street name
		return ""
	}

	s = TruncateAtStreetType(s, n.streets)
	s = TitleCase(collapseWhitespace(s))
	return strings.Trim(s, " ,.-")
}

// SanitizeForParse applies the address cleaning steps without the
// street-type truncation and without dropping commas, which the
// decomposition parser still needs as delimiters.
func SanitizeForParse(raw string) string {
	if isNoValue(raw) {
		return ""
	}

	s := trailingPostcodeRegexp.ReplaceAllString(raw, "")
	s = trailingStateRegexp.ReplaceAllString(s, "")
	s = wordParenRegexp.ReplaceAllString(s, " ")
	s = workUnitRegexp.ReplaceAllString(s, " ")
	s = slashSpaceRegexp.ReplaceAllString(s, "/")
	s = rangeHyphenRegex.ReplaceAllString(s, "$1-$2")
	s = collapseWhitespace(s)
	if s == "" || isPurelyNumeric(s) {
		return ""
	}
	return TitleCase(s)
}

// TruncateAtStreetType keeps everything up to and including the last
// recognized street-type token and expands that token to its canonical
// form. Input without a recognized token is returned unchanged.
func TruncateAtStreetType(s string, dict *streettype.Dictionary) string {
	words := strings.Fields(s)
	for i := len(words) - 1; i >= 0; i-- {
		if canonical, ok := dict.Canonical(words[i]); ok {
			words[i] = canonical
			return strings.Join(words[:i+1], " ")
		}
	}
	return s
}
