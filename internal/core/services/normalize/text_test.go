package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openlistings/listings-refinery/internal/pkg/config"
)

func TestContact(t *testing.T) {
	n := testNormalizer(t, config.MissKeepCleaned, nil)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", ""},
		{"plain text untouched", "Jane Citizen 0400 000 000", "Jane Citizen 0400 000 000"},
		{
			"breaks become crlf",
			"Jane Citizen<br/>Ph: 0400 000 000<br/>jane@example.com",
			"Jane Citizen\r\nPh: 0400 000 000\r\njane@example.com",
		},
		{
			"blank runs collapse",
			"Jane Citizen<br/><br/><br/>Ph: 0400 000 000",
			"Jane Citizen\r\nPh: 0400 000 000",
		},
		{
			"tags stripped entities decoded",
			"<b>Smith &amp; Co</b><br>Main Office",
			"Smith & Co\r\nMain Office",
		},
		{
			"crlf input survives markup stripping",
			"Jane Citizen\r\n<em>Principal</em><br>0400 000 000",
			"Jane Citizen\r\nPrincipal\r\n0400 000 000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Contact(tt.raw))
		})
	}
}

func TestDescription(t *testing.T) {
	n := testNormalizer(t, config.MissKeepCleaned, nil)

	t.Run("shouty words sentence cased", func(t *testing.T) {
		got := n.Description("GREAT family home near the CBD")
		assert.Equal(t, "Great family home near the CBD", got)
	})

	t.Run("acronyms survive", func(t *testing.T) {
		got := n.Description("Walk to the NSW border, POA")
		assert.Equal(t, "Walk to the NSW border, POA", got)
	})

	t.Run("sentence gap becomes blank line", func(t *testing.T) {
		got := n.Description("First impression counts. Second to none!")
		assert.Equal(t, "First impression counts.\n\nSecond to none!", got)
	})

	t.Run("typographic characters folded", func(t *testing.T) {
		got := n.Description("It’s a “bargain” – really…")
		assert.Equal(t, `It's a "bargain" - really...`, got)
	})

	t.Run("non ascii dropped", func(t *testing.T) {
		got := n.Description("Café living")
		assert.Equal(t, "Cafe living", got)
	})

	t.Run("markup stripped", func(t *testing.T) {
		got := n.Description("<p>Sunny rooms</p><p>Quiet street</p>")
		assert.Equal(t, "Sunny rooms\nQuiet street", got)
	})
}

func TestFeatures(t *testing.T) {
	n := testNormalizer(t, config.MissKeepCleaned, nil)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", ""},
		{"pipe delimited", "Pool||Garage||Air Con", "Pool, Garage, Air Con"},
		{"blank entries dropped", "Pool|||| ||Shed", "Pool, Shed"},
		{"tags and entities", "<li>Built-in robes</li>||Deck &amp; pergola", "Built-in robes, Deck & pergola"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Features(tt.raw))
		})
	}
}
