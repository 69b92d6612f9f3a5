// Package addressparse decomposes a sanitized address string into lot,
// unit, street-number and street-name components.
//
// The grammar is an ordered list of mutually exclusive pattern rules tried
// in sequence; the first match wins. Unparseable input never errors: the
// whole cleaned string is kept as the street name. The street name is
// truncated at the last recognized street-type token; text after it is
// discarded, a deliberate simplification for this data source.
package addressparse

import (
	"regexp"
	"strings"

	"github.com/openlistings/listings-refinery/internal/core/services/normalize"
	"github.com/openlistings/listings-refinery/internal/core/services/streettype"
)

// Parsed is the structured decomposition of one address
type Parsed struct {
	LotNumber    string
	UnitNumber   string
	StreetNumber string
	StreetName   string
}

// rule pairs a pattern with its component extractor. Keeping the cascade as
// explicit data preserves the precedence contract and makes each rule
// testable in isolation.
type rule struct {
	name    string
	re      *regexp.Regexp
	extract func(m []string) Parsed
}

var rules = []rule{
	{
		name: "lot",
		re:   regexp.MustCompile(`^(?i:lot)\s+(\d+[A-Za-z]?)(?:\s*\((\d+[A-Za-z]?(?:-\d+[A-Za-z]?)?)\))?(?:[,\s]+(\d+[A-Za-z]?(?:-\d+[A-Za-z]?)?))?[,\s]*(.*)$`),
		extract: func(m []string) Parsed {
			number := m[2]
			if number == "" {
				number = m[3]
			}
			return Parsed{LotNumber: m[1], StreetNumber: number, StreetName: m[4]}
		},
	},
	{
		name: "unit_comma_number",
		re:   regexp.MustCompile(`^(?i:shop|unit|units|flat|villa)\s+([\dA-Za-z/]+)\s*,\s*(\d+[A-Za-z]?(?:-\d+[A-Za-z]?)?)\s+(.+)$`),
		extract: func(m []string) Parsed {
			return Parsed{UnitNumber: m[1], StreetNumber: m[2], StreetName: m[3]}
		},
	},
	{
		name: "unit_no_number",
		re:   regexp.MustCompile(`^(?i:shop|unit|units|flat|villa)\s+([\dA-Za-z/]+)\s+(\D.*)$`),
		extract: func(m []string) Parsed {
			return Parsed{UnitNumber: m[1], StreetName: m[2]}
		},
	},
	{
		name: "stuck_prefix",
		re:   regexp.MustCompile(`^(?i:u|shop|unit|flat|villa)(\d+[A-Za-z]?)\s+(\d+[A-Za-z]?(?:-\d+[A-Za-z]?)?)\s+(.+)$`),
		extract: func(m []string) Parsed {
			return Parsed{UnitNumber: m[1], StreetNumber: m[2], StreetName: m[3]}
		},
	},
	{
		name: "letter_unit_slash",
		re:   regexp.MustCompile(`^(\d+[A-Za-z])/(\d+(?:-\d+)?[A-Za-z]?)\s+(.+)$`),
		extract: func(m []string) Parsed {
			return Parsed{UnitNumber: m[1], StreetNumber: m[2], StreetName: m[3]}
		},
	},
	{
		name: "unit_slash",
		re:   regexp.MustCompile(`^(\d+)/(\d+[A-Za-z]?)\s+(.+)$`),
		extract: func(m []string) Parsed {
			return Parsed{UnitNumber: m[1], StreetNumber: m[2], StreetName: m[3]}
		},
	},
	{
		name: "number_range",
		re:   regexp.MustCompile(`^(\d+[A-Za-z]?-\d+[A-Za-z]?)\s+(\D.*)$`),
		extract: func(m []string) Parsed {
			return Parsed{StreetNumber: m[1], StreetName: m[2]}
		},
	},
	{
		name: "letter_unit_range",
		re:   regexp.MustCompile(`^(\d+[A-Za-z])\s+(\d+-\d+)\s+(.+)$`),
		extract: func(m []string) Parsed {
			return Parsed{UnitNumber: m[1], StreetNumber: m[2], StreetName: m[3]}
		},
	},
	{
		name: "unit_range_slash",
		re:   regexp.MustCompile(`^(\d+-\d+)/(\d+[A-Za-z]?)\s+(.+)$`),
		extract: func(m []string) Parsed {
			return Parsed{UnitNumber: m[1], StreetNumber: m[2], StreetName: m[3]}
		},
	},
	{
		name: "bare_number",
		re:   regexp.MustCompile(`^(\d+[A-Za-z]?)\s+(\D.*)$`),
		extract: func(m []string) Parsed {
			return Parsed{StreetNumber: m[1], StreetName: m[2]}
		},
	},
}

// Parser decomposes addresses using the fixed rule cascade
type Parser struct {
	streets *streettype.Dictionary
}

// New creates a Parser backed by the given street-type dictionary
func New(streets *streettype.Dictionary) *Parser {
	if streets == nil {
		streets = streettype.New()
	}
	return &Parser{streets: streets}
}

// Parse sanitizes raw input and runs the rule cascade over it. Exactly one
// rule fires per non-empty input, or none fires and the cleaned string
// becomes the street name with all other components empty.
func (p *Parser) Parse(raw string) Parsed {
	s := normalize.SanitizeForParse(raw)
	if s == "" {
		return Parsed{}
	}

	for _, r := range rules {
		if m := r.re.FindStringSubmatch(s); m != nil {
			return p.finish(r.extract(m))
		}
	}
	return p.finish(Parsed{StreetName: s})
}

// finish applies the shared street-name post-processing: truncate at the
// street-type terminator, expand the abbreviation, re-title-case.
func (p *Parser) finish(parsed Parsed) Parsed {
	name := strings.Trim(parsed.StreetName, " ,.-")
	if name != "" {
		name = normalize.TruncateAtStreetType(name, p.streets)
		name = normalize.TitleCase(name)
	}
	parsed.StreetName = name
	return parsed
}
