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


package storage

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/cardseek/core"
)

// manifestVersion is bumped whenever an encoding in this file changes.
const manifestVersion = 1

// cardStrings lists the string fields of a card in encoding order.
func cardStrings(c *core.Card) []*string {
	return []*string{&c.Name, &c.Text, &c.Type, &c.ManaCost, &c.Colors, &c.Power, &c.Toughness, &c.Rarity, &c.FullText}
}

// MarshalCard serializes a Card to bytes.
func MarshalCard(card *core.Card) []byte {
	fields := cardStrings(card)
	size := varint.Uint64.Size(uint64(card.Id))
	for _, f := range fields {
		size += ord.String.Size(*f)
	}

	buf := make([]byte, size)
	n := varint.Uint64.Marshal(uint64(card.Id), buf)
	for _, f := range fields {
		n += ord.String.Marshal(*f, buf[n:])
	}
	return buf
}

// UnmarshalCard deserializes a Card from bytes.
func UnmarshalCard(data []byte) (*core.Card, error) {
	var card core.Card
	id, n, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: card id: %w", ErrSerializationFailed, err)
	}
	card.Id = core.ID(id)

	for _, f := range cardStrings(&card) {
		s, m, err := ord.String.Unmarshal(data[n:])
		if err != nil {
			return nil, fmt.Errorf("%w: card field: %w", ErrSerializationFailed, err)
		}
		*f = s
		n += m
	}

	if n != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes after card", ErrSerializationFailed, len(data)-n)
	}
	return &card, nil
}

// MarshalUnit serializes a Unit to bytes.
func MarshalUnit(unit *core.Unit) []byte {
	buf := make([]byte, varint.Int.Size(unit.Row)+varint.Int.Size(unit.CardRow)+ord.String.Size(unit.Text))
	n := varint.Int.Marshal(unit.Row, buf)
	n += varint.Int.Marshal(unit.CardRow, buf[n:])
	ord.String.Marshal(unit.Text, buf[n:])
	return buf
}

// UnmarshalUnit deserializes a Unit from bytes.
func UnmarshalUnit(data []byte) (*core.Unit, error) {
	var (
		unit core.Unit
		n, m int
		err  error
	)
	if unit.Row, m, err = varint.Int.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("%w: unit row: %w", ErrSerializationFailed, err)
	}
	n += m
	if unit.CardRow, m, err = varint.Int.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: unit card row: %w", ErrSerializationFailed, err)
	}
	n += m
	if unit.Text, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: unit text: %w", ErrSerializationFailed, err)
	}
	n += m

	if n != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes after unit", ErrSerializationFailed, len(data)-n)
	}
	return &unit, nil
}

// MarshalVector serializes a vector as its length followed by fixed width floats.
func MarshalVector(v []float32) []byte {
	size := varint.Int.Size(len(v))
	for _, x := range v {
		size += raw.Float32.Size(x)
	}

	buf := make([]byte, size)
	n := varint.Int.Marshal(len(v), buf)
	for _, x := range v {
		n += raw.Float32.Marshal(x, buf[n:])
	}
	return buf
}

// UnmarshalVector deserializes a vector from bytes.
func UnmarshalVector(data []byte) ([]float32, error) {
	length, n, err := varint.Int.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: vector length: %w", ErrSerializationFailed, err)
	}
	if length < 0 || length*4 != len(data)-n {
		return nil, fmt.Errorf("%w: %w: vector of %d values in %d bytes", ErrSerializationFailed, ErrTruncatedData, length, len(data)-n)
	}

	v := make([]float32, length)
	for i := range v {
		x, m, err := raw.Float32.Unmarshal(data[n:])
		if err != nil {
			return nil, fmt.Errorf("%w: vector value %d: %w", ErrSerializationFailed, i, err)
		}
		v[i] = x
		n += m
	}
	return v, nil
}

// MarshalManifest serializes a Manifest to bytes.
func MarshalManifest(m *core.Manifest) []byte {
	ints := []int{manifestVersion, int(m.Granularity), m.Dimension, m.CardCount, m.UnitCount}
	builtAt := m.BuiltAt.UnixMicro()

	size := ord.String.Size(m.Model) + ord.Bool.Size(m.Normalized) +
		varint.Uint64.Size(uint64(m.Checksum)) + varint.Int64.Size(builtAt)
	for _, x := range ints {
		size += varint.Int.Size(x)
	}

	buf := make([]byte, size)
	n := 0
	for _, x := range ints {
		n += varint.Int.Marshal(x, buf[n:])
	}
	n += ord.String.Marshal(m.Model, buf[n:])
	n += ord.Bool.Marshal(m.Normalized, buf[n:])
	n += varint.Uint64.Marshal(uint64(m.Checksum), buf[n:])
	varint.Int64.Marshal(builtAt, buf[n:])
	return buf
}

// UnmarshalManifest deserializes a Manifest from bytes. A manifest written by
// an incompatible version returns ErrSchemaMismatch.
func UnmarshalManifest(data []byte) (*core.Manifest, error) {
	var (
		ints [5]int
		n, m int
		err  error
	)
	for i := range ints {
		if ints[i], m, err = varint.Int.Unmarshal(data[n:]); err != nil {
			return nil, fmt.Errorf("%w: manifest header: %w", ErrSerializationFailed, err)
		}
		n += m
		if i == 0 && ints[0] != manifestVersion {
			return nil, fmt.Errorf("%w: manifest version %d, want %d", ErrSchemaMismatch, ints[0], manifestVersion)
		}
	}

	manifest := core.Manifest{
		Granularity: core.Granularity(ints[1]),
		Dimension:   ints[2],
		CardCount:   ints[3],
		UnitCount:   ints[4],
	}

	if manifest.Model, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: manifest model: %w", ErrSerializationFailed, err)
	}
	n += m
	if manifest.Normalized, m, err = ord.Bool.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: manifest normalized flag: %w", ErrSerializationFailed, err)
	}
	n += m
	checksum, m, err := varint.Uint64.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: manifest checksum: %w", ErrSerializationFailed, err)
	}
	manifest.Checksum = core.ID(checksum)
	n += m
	builtAt, m, err := varint.Int64.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: manifest build time: %w", ErrSerializationFailed, err)
	}
	manifest.BuiltAt = time.UnixMicro(builtAt).UTC()
	n += m

	if n != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes after manifest", ErrSerializationFailed, len(data)-n)
	}
	return &manifest, nil
}
