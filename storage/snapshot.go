package storage

import (
	"fmt"

	"github.com/poiesic/cardseek/core"
)

// Snapshot is everything needed to answer queries over a corpus.
type Snapshot struct {
	Manifest core.Manifest
	Cards    []core.Card
	Units    []core.Unit
	Vectors  [][]float32 // Vectors[i] belongs to Units[i]
}

// Verify checks that the parts of the snapshot agree with each other and
// with the manifest. Every failure wraps ErrSchemaMismatch.
func (s *Snapshot) Verify() error {
	m := &s.Manifest

	switch m.Granularity {
	case core.GranularityRecord, core.GranularityParagraph:
	default:
		return fmt.Errorf("%w: unknown granularity %d", ErrSchemaMismatch, int(m.Granularity))
	}
	if m.Dimension <= 0 {
		return fmt.Errorf("%w: dimension %d", ErrSchemaMismatch, m.Dimension)
	}
	if m.CardCount != len(s.Cards) {
		return fmt.Errorf("%w: manifest has %d cards, found %d", ErrSchemaMismatch, m.CardCount, len(s.Cards))
	}
	if m.UnitCount != len(s.Units) {
		return fmt.Errorf("%w: manifest has %d units, found %d", ErrSchemaMismatch, m.UnitCount, len(s.Units))
	}
	if len(s.Vectors) != len(s.Units) {
		return fmt.Errorf("%w: %d vectors for %d units", ErrSchemaMismatch, len(s.Vectors), len(s.Units))
	}
	if m.Granularity == core.GranularityRecord && len(s.Units) != len(s.Cards) {
		return fmt.Errorf("%w: record granularity needs one unit per card", ErrSchemaMismatch)
	}

	for i, u := range s.Units {
		if u.Row != i {
			return fmt.Errorf("%w: unit %d has row %d", ErrSchemaMismatch, i, u.Row)
		}
		if u.CardRow < 0 || u.CardRow >= len(s.Cards) {
			return fmt.Errorf("%w: unit %d points at card %d", ErrSchemaMismatch, i, u.CardRow)
		}
		if m.Granularity == core.GranularityRecord && u.CardRow != i {
			return fmt.Errorf("%w: unit %d points at card %d", ErrSchemaMismatch, i, u.CardRow)
		}
	}

	for i, v := range s.Vectors {
		if len(v) != m.Dimension {
			return fmt.Errorf("%w: vector %d has %d values, manifest says %d", ErrSchemaMismatch, i, len(v), m.Dimension)
		}
	}

	if sum := core.Checksum(s.Cards); sum != m.Checksum {
		return fmt.Errorf("%w: card checksum %x does not match manifest %x", ErrSchemaMismatch, uint64(sum), uint64(m.Checksum))
	}

	return nil
}
