// Package normalize contains the per-field normalizers of the listings
// pipeline. Each normalizer is a pure transformation over a raw string; the
// only shared state is the immutable gazetteer and street-type dictionary
// injected at construction.
package normalize

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"github.com/openlistings/listings-refinery/internal/core/services/gazetteer"
	"github.com/openlistings/listings-refinery/internal/core/services/streettype"
	"github.com/openlistings/listings-refinery/internal/pkg/config"
)

// FieldNormalizer holds the reference data shared by every field-level
// normalization. Safe for concurrent use: all fields are read-only after
// construction.
type FieldNormalizer struct {
	gaz            *gazetteer.Gazetteer
	streets        *streettype.Dictionary
	missPolicy     config.GazetteerMissPolicy
	descAddrRegexp *regexp.Regexp
	logger         *slog.Logger
}

// NewFieldNormalizer creates a FieldNormalizer. The gazetteer may be nil, in
// which case suburb normalization stops after local cleaning.
func NewFieldNormalizer(gaz *gazetteer.Gazetteer, streets *streettype.Dictionary, missPolicy config.GazetteerMissPolicy, logger *slog.Logger) *FieldNormalizer {
	if logger == nil {
		logger = slog.Default()
	}
	if streets == nil {
		streets = streettype.New()
	}
	return &FieldNormalizer{
		gaz:            gaz,
		streets:        streets,
		missPolicy:     missPolicy,
		descAddrRegexp: buildDescAddressRegexp(streets.Tokens()),
		logger:         logger,
	}
}

// Streets exposes the street-type dictionary for collaborators (address
// parser, description fallback)
func (n *FieldNormalizer) Streets() *streettype.Dictionary {
	return n.streets
}

var (
	parenRegexp      = regexp.MustCompile(`\([^)]*\)`)
	whitespaceRegexp = regexp.MustCompile(`\s+`)
)

// isNoValue reports whether a raw field should be treated as absent
func isNoValue(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "unknown")
}

// stripParens removes parenthesized asides
func stripParens(s string) string {
	return parenRegexp.ReplaceAllString(s, " ")
}

// collapseWhitespace squeezes runs of whitespace into single spaces and trims
func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRegexp.ReplaceAllString(s, " "))
}

// TitleCase capitalizes the first letter of every word, including the letter
// following a hyphen or apostrophe, so "o'dwyer-smith" becomes
// "O'Dwyer-Smith". Everything else is lowercased.
func TitleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	capNext := true
	for _, r := range s {
		switch {
		case capNext && unicode.IsLetter(r):
			b.WriteRune(unicode.ToUpper(r))
			capNext = false
		case unicode.IsLetter(r):
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
			capNext = r == ' ' || r == '-' || r == '\'' || r == '/'
		}
	}
	return b.String()
}

// isPurelyNumeric reports whether s contains digits (and separators) only
func isPurelyNumeric(s string) bool {
	hasDigit := false
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case r == ' ' || r == '-' || r == '/' || r == '.' || r == ',':
		default:
			return false
		}
	}
	return hasDigit
}
