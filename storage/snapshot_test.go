package storage

import (
	"testing"

	"github.com/poiesic/cardseek/core"
	"github.com/stretchr/testify/assert"
)

func testSnapshot() *Snapshot {
	cards := []core.Card{
		{Name: "Lightning Bolt", Text: "Deal 3 damage.", Type: "Instant", ManaCost: "{R}", FullText: "Deal 3 damage. Instant {R}"},
		{Name: "Shock", Text: "Deal 2 damage.", Type: "Instant", ManaCost: "{R}", FullText: "Deal 2 damage. Instant {R}"},
	}
	return &Snapshot{
		Manifest: core.Manifest{
			Granularity: core.GranularityRecord,
			Dimension:   2,
			CardCount:   2,
			UnitCount:   2,
			Checksum:    core.Checksum(cards),
		},
		Cards: cards,
		Units: []core.Unit{
			{Row: 0, CardRow: 0, Text: cards[0].FullText},
			{Row: 1, CardRow: 1, Text: cards[1].FullText},
		},
		Vectors: [][]float32{{1, 0}, {0.9, 0.1}},
	}
}

func TestSnapshot_Verify(t *testing.T) {
	assert.NoError(t, testSnapshot().Verify())

	tests := []struct {
		name   string
		mutate func(s *Snapshot)
	}{
		{"unknown granularity", func(s *Snapshot) { s.Manifest.Granularity = 0 }},
		{"zero dimension", func(s *Snapshot) { s.Manifest.Dimension = 0 }},
		{"card count", func(s *Snapshot) { s.Manifest.CardCount = 3 }},
		{"unit count", func(s *Snapshot) { s.Manifest.UnitCount = 1 }},
		{"missing vector", func(s *Snapshot) { s.Vectors = s.Vectors[:1] }},
		{"short vector", func(s *Snapshot) { s.Vectors[1] = []float32{1} }},
		{"unit row", func(s *Snapshot) { s.Units[1].Row = 5 }},
		{"dangling card row", func(s *Snapshot) { s.Units[1].CardRow = 2 }},
		{"record unit points elsewhere", func(s *Snapshot) { s.Units[1].CardRow = 0 }},
		{"reordered cards", func(s *Snapshot) { s.Cards[0], s.Cards[1] = s.Cards[1], s.Cards[0] }},
		{"edited card", func(s *Snapshot) { s.Cards[1].FullText = "changed" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSnapshot()
			tt.mutate(s)
			assert.ErrorIs(t, s.Verify(), ErrSchemaMismatch)
		})
	}
}

func TestSnapshot_VerifyParagraph(t *testing.T) {
	s := testSnapshot()
	s.Manifest.Granularity = core.GranularityParagraph
	s.Manifest.UnitCount = 3
	s.Units = []core.Unit{
		{Row: 0, CardRow: 0, Text: "a"},
		{Row: 1, CardRow: 0, Text: "b"},
		{Row: 2, CardRow: 1, Text: "c"},
	}
	s.Vectors = [][]float32{{1, 0}, {0, 1}, {1, 1}}

	assert.NoError(t, s.Verify())
}
