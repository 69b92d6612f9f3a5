package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openlistings/listings-refinery/internal/core/services/gazetteer"
	"github.com/openlistings/listings-refinery/internal/core/services/streettype"
	"github.com/openlistings/listings-refinery/internal/pkg/config"
)

func testNormalizer(t *testing.T, policy config.GazetteerMissPolicy, names []string) *FieldNormalizer {
	t.Helper()
	var gaz *gazetteer.Gazetteer
	if names != nil {
		gaz = gazetteer.New(names)
	}
	return NewFieldNormalizer(gaz, streettype.New(), policy, nil)
}

func TestSuburb_LocalCleaning(t *testing.T) {
	n := testNormalizer(t, config.MissKeepCleaned, nil)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", ""},
		{"unknown sentinel", "Unknown", ""},
		{"simple lowercase", "sydney", "Sydney"},
		{"trailing state", "Newtown NSW", "Newtown"},
		{"stacked qualifiers", "St Kilda VIC Australia", "St Kilda"},
		{"region qualifier", "Ballarat region", "Ballarat"},
		{"digits dropped", "Surfers Paradise 4217", "Surfers Paradise"},
		{"parenthetical aside", "Richmond (inner east)", "Richmond"},
		{"compound keeps first segment", "Bondi / Tamarama", "Bondi"},
		{"comma compound", "Fitzroy, Collingwood", "Fitzroy"},
		{"whitespace collapsed", "  Port   Melbourne  ", "Port Melbourne"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Suburb(tt.raw))
		})
	}
}

func TestSuburb_Idempotent(t *testing.T) {
	n := testNormalizer(t, config.MissKeepCleaned, []string{"St Kilda", "Port Melbourne"})

	for _, raw := range []string{"st kilda VIC", "PORT MELBOURNE", "Coburg 3058"} {
		once := n.Suburb(raw)
		assert.Equal(t, once, n.Suburb(once), "normalizing twice must equal normalizing once for %q", raw)
	}
}

func TestSuburb_GazetteerPrecedence(t *testing.T) {
	n := testNormalizer(t, config.MissKeepCleaned, []string{"McKinnon", "St Kilda"})

	// Exact lowercase match returns the gazetteer's display form
	assert.Equal(t, "St Kilda", n.Suburb("ST KILDA"))

	// Whitespace-insensitive fuzzy match fires when exact misses
	assert.Equal(t, "McKinnon", n.Suburb("Mc Kinnon"))
}

func TestSuburb_MissPolicy(t *testing.T) {
	gazNames := []string{"Geelong"}

	keep := testNormalizer(t, config.MissKeepCleaned, gazNames)
	assert.Equal(t, "Atlantis", keep.Suburb("atlantis"))

	discard := testNormalizer(t, config.MissDiscard, gazNames)
	assert.Equal(t, "", discard.Suburb("atlantis"))
	assert.Equal(t, "Geelong", discard.Suburb("geelong"))
}

func TestAddress(t *testing.T) {
	n := testNormalizer(t, config.MissKeepCleaned, nil)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", ""},
		{"unknown sentinel", "unknown", ""},
		{"trailing state and postcode", "23 Smith St, Newtown NSW 2042", "23 Smith Street"},
		{"postcode only", "7 High Rd 3550", "7 High Road"},
		{"range hyphen tightened", "13 - 15 Norman St", "13-15 Norman Street"},
		{"abbreviation expanded", "4 Wattle Cres", "4 Wattle Crescent"},
		{"text after street type dropped", "10 Beach Rd cnr Main", "10 Beach Road"},
		{"no street type kept whole", "5 The Promontory", "5 The Promontory"},
		{"purely numeric dropped", "42", ""},
		{"work unit artifact removed", "Work Unit 3 9 Mill Ln", "3 9 Mill Lane"},
		{"slash spacing tightened", "3 / 36 Mitchell St", "3/36 Mitchell Street"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Address(tt.raw))
		})
	}
}

func TestSanitizeForParse_KeepsCommas(t *testing.T) {
	// Trailing state+postcode fall off, commas and the locality stay
	got := SanitizeForParse("Unit 5, 20 Smith Rd, Hobart TAS 7000")
	assert.Equal(t, "Unit 5, 20 Smith Rd, Hobart", got)
}

func TestTruncateAtStreetType(t *testing.T) {
	dict := streettype.New()

	assert.Equal(t, "12 Acacia Street", TruncateAtStreetType("12 Acacia St near school", dict))
	// Last recognized token wins
	assert.Equal(t, "1 Street Grove", TruncateAtStreetType("1 Street Gve", dict))
	assert.Equal(t, "no terminator here", TruncateAtStreetType("no terminator here", dict))
}

func TestTitleCase(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"o'dwyer-smith lane", "O'Dwyer-Smith Lane"},
		{"NORTH SHORE", "North Shore"},
		{"mc donald", "Mc Donald"},
		{"3/36 mitchell st", "3/36 Mitchell St"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TitleCase(tt.raw))
	}
}

func TestAddressFromDescription(t *testing.T) {
	n := testNormalizer(t, config.MissKeepCleaned, nil)

	got := n.AddressFromDescription("Inspect this weekend at 14 Acacia Street before it goes to auction.")
	assert.Equal(t, "14 Acacia Street", got)

	got = n.AddressFromDescription("<p>Rare offering: Lot 6 Panorama Drive with bay views.</p>")
	assert.Equal(t, "Lot 6 Panorama Drive", got)

	// Abbreviated street types are recovered and expanded
	got = n.AddressFromDescription("Open for inspection at 12 Smith St today.")
	assert.Equal(t, "12 Smith Street", got)

	assert.Equal(t, "", n.AddressFromDescription("A charming home close to everything."))
}
