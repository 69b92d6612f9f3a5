package streettype

import "strings"

// Dictionary is an immutable mapping from lowercase street-type
// abbreviations (with or without trailing period) to their canonical word.
// It doubles as the terminator set when extracting a street name from a
// larger text blob.
type Dictionary struct {
	canonical map[string]string
}

// defaultEntries covers the abbreviations seen in Australian listing
// exports. Canonical forms map to themselves so full words also terminate.
var defaultEntries = map[string]string{
	"st":    "Street",
	"rd":    "Road",
	"ave":   "Avenue",
	"av":    "Avenue",
	"dr":    "Drive",
	"drv":   "Drive",
	"cres":  "Crescent",
	"crs":   "Crescent",
	"ct":    "Court",
	"crt":   "Court",
	"pl":    "Place",
	"tce":   "Terrace",
	"hwy":   "Highway",
	"pde":   "Parade",
	"blvd":  "Boulevard",
	"bvd":   "Boulevard",
	"cl":    "Close",
	"esp":   "Esplanade",
	"gr":    "Grove",
	"gve":   "Grove",
	"ln":    "Lane",
	"cct":   "Circuit",
	"cir":   "Circle",
	"gdns":  "Gardens",
	"prom":  "Promenade",
	"qy":    "Quay",
	"bch":   "Beach",
	"pkwy":  "Parkway",
	"fwy":   "Freeway",
	"entr":  "Entrance",
	"wtrwy": "Waterway",
}

// New builds a Dictionary from the built-in abbreviation table
func New() *Dictionary {
	return NewFromEntries(defaultEntries)
}

// NewFromEntries builds a Dictionary from an abbreviation table. Each
// canonical word is also registered as its own key, and every key is
// duplicated with a trailing period.
func NewFromEntries(entries map[string]string) *Dictionary {
	canonical := make(map[string]string, len(entries)*3)
	for abbrev, full := range entries {
		abbrev = strings.ToLower(abbrev)
		canonical[abbrev] = full
		canonical[abbrev+"."] = full
		canonical[strings.ToLower(full)] = full
	}
	return &Dictionary{canonical: canonical}
}

// Canonical returns the canonical street-type word for a token, matching
// case-insensitively with or without a trailing period.
func (d *Dictionary) Canonical(token string) (string, bool) {
	full, ok := d.canonical[strings.ToLower(token)]
	return full, ok
}

// IsStreetType reports whether the token is a recognized street-type word
// or abbreviation.
func (d *Dictionary) IsStreetType(token string) bool {
	_, ok := d.Canonical(token)
	return ok
}

// Tokens returns every recognized street-type token, abbreviations and
// canonical words alike, without the trailing-period variants. Used to
// build the street-name extraction pattern for description fallback.
func (d *Dictionary) Tokens() []string {
	tokens := make([]string, 0, len(d.canonical))
	for k := range d.canonical {
		if !strings.HasSuffix(k, ".") {
			tokens = append(tokens, k)
		}
	}
	return tokens
}
