package normalize

import (
	"regexp"
	"strings"

	"github.com/openlistings/listings-refinery/internal/pkg/config"
)

// stateQualifiers are the trailing tokens stripped from suburb values:
// state abbreviations plus the disambiguators the legacy export appends.
var stateQualifiers = []string{
	"nsw", "qld", "vic", "sa", "wa", "tas", "nt", "act",
	"australia", "region", "district", "surrounds",
}

var trailingQualifierRegexp = func() *regexp.Regexp {
	return regexp.MustCompile(`(?i)[\s,]+(` + strings.Join(stateQualifiers, "|") + `)\.?\s*$`)
}()

var suburbDropRegexp = regexp.MustCompile(`[0-9'.]`)

// Suburb normalizes a raw town/suburb value. Local cleaning always runs;
// when a gazetteer is present the cleaned value is resolved against it, an
// exact lowercase match beating the whitespace-insensitive fuzzy match. On a
// gazetteer miss the configured policy decides between returning the cleaned
// value and discarding it.
func (n *FieldNormalizer) Suburb(raw string) string {
	if isNoValue(raw) {
		return ""
	}

	s := stripParens(raw)

	// Trailing state/region qualifiers, repeatedly: "St Kilda VIC Australia"
	for {
		trimmed := trailingQualifierRegexp.ReplaceAllString(s, "")
		if trimmed == s {
			break
		}
		s = trimmed
	}

	// Keep only the first segment of compound values
	for _, sep := range []string{",", "/", "-"} {
		if idx := strings.Index(s, sep); idx >= 0 {
			s = s[:idx]
		}
	}

	s = suburbDropRegexp.ReplaceAllString(s, "")
	s = TitleCase(collapseWhitespace(s))
	if s == "" {
		return ""
	}

	if n.gaz == nil {
		return s
	}

	if canonical, ok := n.gaz.Lookup(s); ok {
		return canonical
	}

	if n.missPolicy == config.MissDiscard {
		return ""
	}
	return s
}
