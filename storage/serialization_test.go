package storage

import (
	"testing"
	"time"

	"github.com/poiesic/cardseek/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalCard(t *testing.T) {
	tests := []struct {
		name string
		card core.Card
	}{
		{
			name: "creature",
			card: core.Card{
				Id:        core.CardID("Llanowar Elves"),
				Name:      "Llanowar Elves",
				Text:      "{T}: Add {G}.",
				Type:      "Creature — Elf Druid",
				ManaCost:  "{G}",
				Colors:    "G",
				Power:     "1",
				Toughness: "1",
				Rarity:    "common",
				FullText:  "{T}: Add {G}. Creature — Elf Druid {G}",
			},
		},
		{
			name: "land with empty fields",
			card: core.Card{
				Id:       core.CardID("Island"),
				Name:     "Island",
				Type:     "Basic Land — Island",
				FullText: " Basic Land — Island ",
			},
		},
		{
			name: "multi paragraph text",
			card: core.Card{
				Id:       core.CardID("Fire // Ice"),
				Name:     "Fire // Ice",
				Text:     "Fire deals 2 damage divided as you choose.\nIce: Tap target permanent.",
				FullText: "Fire deals 2 damage divided as you choose.\nIce: Tap target permanent.  ",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalCard(&tt.card)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalCard(data)
			require.NoError(t, err)
			assert.Equal(t, tt.card, *decoded)
		})
	}
}

func TestUnmarshalCard_Invalid(t *testing.T) {
	valid := MarshalCard(&core.Card{Id: 7, Name: "Shock"})

	tests := []struct {
		name string
		data []byte
	}{
		{"empty data", []byte{}},
		{"invalid data", []byte{0xFF, 0xFF, 0xFF}},
		{"partial data", []byte{1, 2, 3}},
		{"truncated", valid[:len(valid)-1]},
		{"trailing bytes", append(append([]byte{}, valid...), 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalCard(tt.data)
			assert.ErrorIs(t, err, ErrSerializationFailed)
		})
	}
}

func TestMarshalUnmarshalUnit(t *testing.T) {
	unit := core.Unit{Row: 1234, CardRow: 56, Text: "Draw a card. Instant {1}{U}"}

	decoded, err := UnmarshalUnit(MarshalUnit(&unit))
	require.NoError(t, err)
	assert.Equal(t, unit, *decoded)

	_, err = UnmarshalUnit([]byte{2})
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestMarshalUnmarshalVector(t *testing.T) {
	t.Run("values", func(t *testing.T) {
		v := []float32{0.1, -0.2, 3.5, 0}
		decoded, err := UnmarshalVector(MarshalVector(v))
		require.NoError(t, err)
		assert.Equal(t, v, decoded)
	})

	t.Run("typical embedding size", func(t *testing.T) {
		v := make([]float32, 768)
		for i := range v {
			v[i] = float32(i) / 768
		}
		decoded, err := UnmarshalVector(MarshalVector(v))
		require.NoError(t, err)
		assert.Equal(t, v, decoded)
	})

	t.Run("empty", func(t *testing.T) {
		decoded, err := UnmarshalVector(MarshalVector(nil))
		require.NoError(t, err)
		assert.Empty(t, decoded)
	})

	t.Run("truncated", func(t *testing.T) {
		data := MarshalVector([]float32{1, 2, 3})
		_, err := UnmarshalVector(data[:len(data)-2])
		assert.ErrorIs(t, err, ErrTruncatedData)
		assert.ErrorIs(t, err, ErrSerializationFailed)
	})
}

func TestMarshalUnmarshalManifest(t *testing.T) {
	manifest := core.Manifest{
		Granularity: core.GranularityParagraph,
		Dimension:   768,
		Model:       "nomic-embed-text",
		Normalized:  true,
		CardCount:   31000,
		UnitCount:   52000,
		Checksum:    core.ID(18446744073709551615),
		BuiltAt:     time.Date(2025, 3, 1, 12, 30, 0, 123000, time.UTC),
	}

	decoded, err := UnmarshalManifest(MarshalManifest(&manifest))
	require.NoError(t, err)
	assert.Equal(t, manifest.Granularity, decoded.Granularity)
	assert.Equal(t, manifest.Dimension, decoded.Dimension)
	assert.Equal(t, manifest.Model, decoded.Model)
	assert.Equal(t, manifest.Normalized, decoded.Normalized)
	assert.Equal(t, manifest.CardCount, decoded.CardCount)
	assert.Equal(t, manifest.UnitCount, decoded.UnitCount)
	assert.Equal(t, manifest.Checksum, decoded.Checksum)
	assert.True(t, manifest.BuiltAt.Equal(decoded.BuiltAt))
}

func TestUnmarshalManifest_Invalid(t *testing.T) {
	t.Run("unknown version", func(t *testing.T) {
		data := MarshalManifest(&core.Manifest{Granularity: core.GranularityRecord, Dimension: 3})
		data[0] = 0x7e // some other version
		_, err := UnmarshalManifest(data)
		assert.ErrorIs(t, err, ErrSchemaMismatch)
	})

	t.Run("empty data", func(t *testing.T) {
		_, err := UnmarshalManifest(nil)
		assert.ErrorIs(t, err, ErrSerializationFailed)
	})
}
