// Package vector provides an exact inner-product index over dense
// float32 vectors, with a checksummed binary on-disk format.
package vector

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch indicates a vector does not match the index dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Match is a scored position within the index.
type Match struct {
	Slot  int
	Score float32
}

// Index is a flat exact inner-product index. Vectors occupy contiguous
// slots [0, Count()) in append order. The index is not safe for
// concurrent mutation; callers serialize writes.
type Index struct {
	dim  int
	data []float32
}

// New creates an empty index for vectors of the given dimension.
func New(dim int) *Index {
	return &Index{dim: dim}
}

// Dim returns the vector dimension.
func (x *Index) Dim() int { return x.dim }

// Count returns the number of stored vectors.
func (x *Index) Count() int {
	if x.dim == 0 {
		return 0
	}
	return len(x.data) / x.dim
}

// Add appends vectors to the index in order. The first vector lands at
// slot Count() prior to the call.
func (x *Index) Add(vecs ...[]float32) error {
	for _, v := range vecs {
		if len(v) != x.dim {
			return fmt.Errorf("%w: got %d, index dimension %d", ErrDimensionMismatch, len(v), x.dim)
		}
	}
	for _, v := range vecs {
		x.data = append(x.data, v...)
	}
	return nil
}

// Search scores every stored vector against the query by inner product
// and returns all matches. Exact scan; no approximation, no cutoff.
func (x *Index) Search(query []float32) ([]Match, error) {
	if len(query) != x.dim {
		return nil, fmt.Errorf("%w: query has %d, index dimension %d", ErrDimensionMismatch, len(query), x.dim)
	}

	n := x.Count()
	matches := make([]Match, n)
	for slot := 0; slot < n; slot++ {
		row := x.data[slot*x.dim : (slot+1)*x.dim]
		var dot float64
		for i, q := range query {
			dot += float64(q) * float64(row[i])
		}
		matches[slot] = Match{Slot: slot, Score: float32(dot)}
	}
	return matches, nil
}

// At returns a copy of the vector stored at the given slot.
func (x *Index) At(slot int) []float32 {
	out := make([]float32, x.dim)
	copy(out, x.data[slot*x.dim:(slot+1)*x.dim])
	return out
}

// Clone returns a deep copy of the index.
func (x *Index) Clone() *Index {
	data := make([]float32, len(x.data))
	copy(data, x.data)
	return &Index{dim: x.dim, data: data}
}
