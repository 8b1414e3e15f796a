package core

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// CardID returns the content ID for a card name. Names are compared
// case-insensitively everywhere, so the ID is too.
func CardID(name string) ID {
	return IDFromContent(strings.ToLower(name))
}

// Card is one unique card of the corpus. Every string field is present,
// absent source values are stored as "".
type Card struct {
	Id        ID
	Name      string
	Text      string // Rules text, lines separated by "\n"
	Type      string // Type line
	ManaCost  string
	Colors    string // Comma separated color codes
	Power     string
	Toughness string
	Rarity    string
	FullText  string // Text + " " + Type + " " + ManaCost, the embedding input
}

// ComposeFullText builds the searchable text of a card.
// The field order is fixed.
func ComposeFullText(text, typeLine, manaCost string) string {
	return text + " " + typeLine + " " + manaCost
}

// Granularity selects what one row of the vector index represents.
type Granularity int

const (
	// GranularityRecord indexes one unit per card.
	GranularityRecord Granularity = iota + 1
	// GranularityParagraph indexes one unit per non-empty rules text paragraph.
	GranularityParagraph
)

func (g Granularity) String() string {
	switch g {
	case GranularityRecord:
		return "record"
	case GranularityParagraph:
		return "paragraph"
	default:
		return fmt.Sprintf("granularity(%d)", int(g))
	}
}

// ParseGranularity converts a granularity name into a Granularity.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "record", "card", "":
		return GranularityRecord, nil
	case "paragraph", "para":
		return GranularityParagraph, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidGranularity, s)
	}
}

// Unit is a single row of the vector index.
type Unit struct {
	Row     int    // Position in the vector index
	CardRow int    // Position of the originating card
	Text    string // Text passed to the embedding model
}

// Neighbor is a nearest-neighbor hit: an index row and its squared L2 distance.
type Neighbor struct {
	Row      int
	Distance float32
}

// Manifest describes a persisted corpus snapshot.
type Manifest struct {
	Granularity Granularity
	Dimension   int
	Model       string
	Normalized  bool // Vectors were L2-normalized at build time
	CardCount   int
	UnitCount   int
	Checksum    ID
	BuiltAt     time.Time
}

// Checksum fingerprints the ordered card table. Any reordering or edit of
// the table changes the result, which is how a corpus that no longer lines up
// with its vectors is detected.
func Checksum(cards []Card) ID {
	h, _ := blake2b.New(8, nil)
	var row [8]byte
	for i := range cards {
		binary.LittleEndian.PutUint64(row[:], uint64(i))
		h.Write(row[:])
		h.Write([]byte(cards[i].Name))
		h.Write([]byte{0})
		h.Write([]byte(cards[i].FullText))
		h.Write([]byte{0})
	}
	return ID(binary.LittleEndian.Uint64(h.Sum(nil)))
}
