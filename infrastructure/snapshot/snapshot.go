// Package snapshot persists complete index generations as a pair of
// files shared between the updater (sole writer) and the search service
// (sole reader).
package snapshot

import (
	"fmt"
	"time"

	"github.com/fireclub/semsearch/domain/product"
	"github.com/fireclub/semsearch/infrastructure/vector"
)

// Snapshot is one complete index generation: the product tables, the
// bidirectional id↔slot mapping and the vector index itself.
type Snapshot struct {
	Products  map[int64]product.Product
	Corpus    map[int64]string
	IDToSlot  map[int64]int
	SlotToID  map[int]int64
	NextSlot  int
	Timestamp time.Time
	Index     *vector.Index
}

// Empty returns a snapshot with no products and a fresh index of the
// given dimension.
func Empty(dim int) *Snapshot {
	return &Snapshot{
		Products: map[int64]product.Product{},
		Corpus:   map[int64]string{},
		IDToSlot: map[int64]int{},
		SlotToID: map[int]int64{},
		Index:    vector.New(dim),
	}
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{
		Products:  make(map[int64]product.Product, len(s.Products)),
		Corpus:    make(map[int64]string, len(s.Corpus)),
		IDToSlot:  make(map[int64]int, len(s.IDToSlot)),
		SlotToID:  make(map[int]int64, len(s.SlotToID)),
		NextSlot:  s.NextSlot,
		Timestamp: s.Timestamp,
		Index:     s.Index.Clone(),
	}
	for k, v := range s.Products {
		out.Products[k] = v
	}
	for k, v := range s.Corpus {
		out.Corpus[k] = v
	}
	for k, v := range s.IDToSlot {
		out.IDToSlot[k] = v
	}
	for k, v := range s.SlotToID {
		out.SlotToID[k] = v
	}
	return out
}

// Validate checks the cross-map cardinality invariant and the
// bidirectional slot mapping. A violation means the file pair was torn
// or the writer had a bug; either way the snapshot must not be served.
func (s *Snapshot) Validate() error {
	n := len(s.Products)
	if len(s.Corpus) != n || len(s.IDToSlot) != n || len(s.SlotToID) != n {
		return fmt.Errorf("table cardinality mismatch: products=%d corpus=%d id_to_slot=%d slot_to_id=%d",
			n, len(s.Corpus), len(s.IDToSlot), len(s.SlotToID))
	}
	if s.Index == nil || s.Index.Count() != n {
		count := -1
		if s.Index != nil {
			count = s.Index.Count()
		}
		return fmt.Errorf("vector count mismatch: products=%d vectors=%d", n, count)
	}
	if s.NextSlot != n {
		return fmt.Errorf("next slot %d does not match product count %d", s.NextSlot, n)
	}
	for id, slot := range s.IDToSlot {
		if slot < 0 || slot >= s.NextSlot {
			return fmt.Errorf("slot %d for product %d out of range [0,%d)", slot, id, s.NextSlot)
		}
		if back, ok := s.SlotToID[slot]; !ok || back != id {
			return fmt.Errorf("slot mapping broken for product %d (slot %d maps back to %d)", id, slot, back)
		}
	}
	return nil
}
