package normalize

import (
	"html"
	"regexp"
	"strings"
)

// buildDescAddressRegexp compiles the pattern used to spot a street address
// embedded in free description text: an optional unit/lot prefix, a street
// number (possibly a range or unit/number pair), one to four capitalized
// words, then a recognized street-type token. Abbreviations terminate too,
// matching the truncation rule; the address normalizer expands them after.
func buildDescAddressRegexp(tokens []string) *regexp.Regexp {
	quoted := make([]string, 0, len(tokens))
	for _, t := range tokens {
		quoted = append(quoted, regexp.QuoteMeta(t))
	}
	pattern := `(?:(?:Lot|Unit|Shop|Flat|Villa)\s+)?` +
		`\d+[A-Za-z]?(?:-\d+[A-Za-z]?)?(?:/\d+[A-Za-z]?)?\s+` +
		`(?:[A-Z][A-Za-z']*\s+){1,4}` +
		`(?i:` + strings.Join(quoted, "|") + `)\b`
	return regexp.MustCompile(pattern)
}

// AddressFromDescription recovers a street address from the long description
// when the address field itself normalized to empty. The description is
// stripped of HTML and entity-decoded first; any match is fed back through
// the address normalizer. No match returns empty; the caller logs and moves
// on, this is never fatal.
func (n *FieldNormalizer) AddressFromDescription(description string) string {
	if isNoValue(description) {
		return ""
	}

	s := breakTagRegexp.ReplaceAllString(description, " ")
	s = stripTags(s)
	s = html.UnescapeString(s)
	s = collapseWhitespace(s)

	if n.descAddrRegexp == nil {
		return ""
	}
	match := n.descAddrRegexp.FindString(s)
	if match == "" {
		return ""
	}
	return n.Address(match)
}
