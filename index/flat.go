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


// Package index provides the exhaustive nearest-neighbor index used for
// candidate retrieval.
package index

import (
	"errors"
	"fmt"
	"sort"

	"github.com/poiesic/cardseek/core"
)

var (
	// ErrDimensionMismatch is returned when a vector does not match the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrInvalidDimension is returned for a non-positive index dimension.
	ErrInvalidDimension = errors.New("index dimension must be positive")
	// ErrRowOutOfRange is returned by Vector for an unknown row.
	ErrRowOutOfRange = errors.New("index row out of range")
)

// Flat stores vectors row-major in insertion order and answers queries by
// scanning all of them. Distances are squared Euclidean, lower is closer.
//
// A Flat is not safe for concurrent Add calls, but any number of goroutines
// may Search once building is finished.
type Flat struct {
	dim  int
	data []float32
}

// NewFlat creates an empty index for vectors of length dim.
func NewFlat(dim int) (*Flat, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDimension, dim)
	}
	return &Flat{dim: dim}, nil
}

// Add appends vectors as new rows. Either all vectors are added or none.
func (f *Flat) Add(vectors ...[]float32) error {
	for i, v := range vectors {
		if len(v) != f.dim {
			return fmt.Errorf("%w: vector %d has %d values, index has %d", ErrDimensionMismatch, i, len(v), f.dim)
		}
	}
	for _, v := range vectors {
		f.data = append(f.data, v...)
	}
	return nil
}

// Len returns the number of rows.
func (f *Flat) Len() int {
	return len(f.data) / f.dim
}

// Dimension returns the vector length.
func (f *Flat) Dimension() int {
	return f.dim
}

// Vector returns a copy of the vector stored at row.
func (f *Flat) Vector(row int) ([]float32, error) {
	if row < 0 || row >= f.Len() {
		return nil, fmt.Errorf("%w: %d", ErrRowOutOfRange, row)
	}
	out := make([]float32, f.dim)
	copy(out, f.data[row*f.dim:(row+1)*f.dim])
	return out, nil
}

// Search returns the n rows closest to q, ordered by ascending distance.
// Equal distances are ordered by row. n larger than the index returns every
// row; n <= 0 or an empty index returns no rows.
func (f *Flat) Search(q []float32, n int) ([]core.Neighbor, error) {
	if len(q) != f.dim {
		return nil, fmt.Errorf("%w: query has %d values, index has %d", ErrDimensionMismatch, len(q), f.dim)
	}
	rows := f.Len()
	if n <= 0 || rows == 0 {
		return []core.Neighbor{}, nil
	}

	all := make([]core.Neighbor, rows)
	for r := 0; r < rows; r++ {
		all[r] = core.Neighbor{Row: r, Distance: SquaredL2(q, f.data[r*f.dim:(r+1)*f.dim])}
	}

	// rows are already ascending, so a stable sort keeps ties in row order
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Distance < all[j].Distance
	})

	if n < len(all) {
		all = all[:n]
	}
	return all, nil
}

// SquaredL2 returns the squared Euclidean distance between equal length vectors.
func SquaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// Similarity maps a distance onto (0, 1], 1 meaning identical.
func Similarity(distance float32) float32 {
	return 1 / (1 + distance)
}
