// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package corpus

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/cardseek/core"
	"github.com/valyala/fastjson"
)

// RawCard is one printing as it appears in the source document. Absent and
// null string fields are "".
type RawCard struct {
	Set       string
	Name      string
	Text      string
	Type      string
	ManaCost  string
	Colors    []string
	Power     string
	Toughness string
	Rarity    string
}

// Option configures Load.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used by Load.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Parse reads an AllPrintings document and returns every printing in
// document order.
func Parse(r io.Reader) ([]RawCard, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseBytes(data)
}

// ParseBytes is Parse over an in-memory document.
func ParseBytes(data []byte) ([]RawCard, error) {
	var p fastjson.Parser
	root, err := p.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	dataValue := root.Get("data")
	if dataValue == nil || dataValue.Type() == fastjson.TypeNull {
		return nil, ErrMissingData
	}
	sets, err := dataValue.Object()
	if err != nil {
		return nil, fmt.Errorf("%w: data is not an object", ErrMalformed)
	}

	var (
		raw      []RawCard
		visitErr error
	)
	sets.Visit(func(code []byte, set *fastjson.Value) {
		if visitErr != nil {
			return
		}
		if set.Type() != fastjson.TypeObject {
			visitErr = fmt.Errorf("%w: set %s is not an object", ErrMalformed, code)
			return
		}
		cards := set.Get("cards")
		if cards == nil || cards.Type() != fastjson.TypeArray {
			visitErr = fmt.Errorf("%w: set %s has no cards array", ErrMalformed, code)
			return
		}
		for _, card := range cards.GetArray() {
			if card.Type() != fastjson.TypeObject {
				visitErr = fmt.Errorf("%w: set %s has a card that is not an object", ErrMalformed, code)
				return
			}
			raw = append(raw, RawCard{
				Set:       string(code),
				Name:      stringField(card, "name"),
				Text:      stringField(card, "text"),
				Type:      stringField(card, "type"),
				ManaCost:  stringField(card, "manaCost"),
				Colors:    listField(card, "colors"),
				Power:     stringField(card, "power"),
				Toughness: stringField(card, "toughness"),
				Rarity:    stringField(card, "rarity"),
			})
		}
	})
	if visitErr != nil {
		return nil, visitErr
	}

	return raw, nil
}

// stringField returns the field as text. Missing and null fields are "",
// non-string scalars keep their JSON spelling.
func stringField(v *fastjson.Value, key string) string {
	field := v.Get(key)
	if field == nil {
		return ""
	}
	switch field.Type() {
	case fastjson.TypeNull:
		return ""
	case fastjson.TypeString:
		return string(field.GetStringBytes())
	default:
		return field.String()
	}
}

func listField(v *fastjson.Value, key string) []string {
	items := v.GetArray(key)
	if len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item.Type() == fastjson.TypeString {
			out = append(out, string(item.GetStringBytes()))
		}
	}
	return out
}

// Build deduplicates printings by exact name, keeping the first, and returns
// the card table. Printings without a name are dropped.
func Build(raw []RawCard) []core.Card {
	seen := make(map[string]struct{}, len(raw)/4)
	cards := make([]core.Card, 0, len(raw)/4)

	for i := range raw {
		r := &raw[i]
		if r.Name == "" {
			continue
		}
		if _, dup := seen[r.Name]; dup {
			continue
		}
		seen[r.Name] = struct{}{}

		cards = append(cards, core.Card{
			Id:        core.CardID(r.Name),
			Name:      r.Name,
			Text:      r.Text,
			Type:      r.Type,
			ManaCost:  r.ManaCost,
			Colors:    strings.Join(r.Colors, ","),
			Power:     r.Power,
			Toughness: r.Toughness,
			Rarity:    r.Rarity,
			FullText:  core.ComposeFullText(r.Text, r.Type, r.ManaCost),
		})
	}

	return cards
}

// Load reads the AllPrintings file at path and builds the card table.
func Load(ctx context.Context, path string, opts ...Option) ([]core.Card, error) {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	logger := o.logger.With("component", "corpus")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading card source: %w", err)
	}

	raw, err := ParseBytes(data)
	if err != nil {
		return nil, err
	}

	cards := Build(raw)
	if len(cards) == 0 {
		return nil, ErrEmptyCorpus
	}

	logger.Info("corpus loaded", "path", path, "printings", len(raw), "cards", len(cards))
	return cards, nil
}

// Units returns the index units of cards for the given granularity.
//
// Record granularity yields one unit per card with the card's full text.
// Paragraph granularity yields one unit per non-empty rules text line, each
// suffixed with the card's type line and mana cost.
func Units(cards []core.Card, granularity core.Granularity) []core.Unit {
	if granularity == core.GranularityParagraph {
		return paragraphUnits(cards)
	}

	units := make([]core.Unit, len(cards))
	for i := range cards {
		units[i] = core.Unit{Row: i, CardRow: i, Text: cards[i].FullText}
	}
	return units
}

func paragraphUnits(cards []core.Card) []core.Unit {
	units := make([]core.Unit, 0, len(cards)*2)
	for i := range cards {
		for _, para := range Paragraphs(cards[i].Text) {
			units = append(units, core.Unit{
				Row:     len(units),
				CardRow: i,
				Text:    core.ComposeFullText(para, cards[i].Type, cards[i].ManaCost),
			})
		}
	}
	return units
}

// Paragraphs splits rules text on newlines, trims each line and drops the
// empty ones.
func Paragraphs(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
