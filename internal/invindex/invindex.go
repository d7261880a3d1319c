// Package invindex implements the inverted index of spec §3:
// predicate_id → bitmap of combination_ids whose combinations contain that
// predicate. The matching runtime walks one bitmap per true predicate and
// increments a counter for every combination_id it yields, so the bitmap
// representation must support fast iteration and membership — spec §3
// calls for "a compressed roaring-style bitmap", realized here with
// github.com/RoaringBitmap/roaring/v2 exactly as AKJUS-bsc-erigon pulls it
// in for its own large-cardinality id sets.
package invindex

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/heliosrules/helios/internal/predicate"
)

// CombinationID is a dense combination identifier assigned by the builder.
type CombinationID int32

// Index is predicate_id → roaring.Bitmap of combination_ids. It is built
// incrementally during EXPAND_AND_INTERN, compacted by Freeze during
// INDEX_AND_FREEZE, and is read-only once the owning EngineModel is frozen.
type Index struct {
	byPredicate []*roaring.Bitmap
}

// NewBuilder returns an empty Index sized for predicateCount predicates.
func NewBuilder(predicateCount int) *Index {
	return &Index{byPredicate: make([]*roaring.Bitmap, predicateCount)}
}

// Add registers that combination c contains predicate p. Called once per
// (predicate, combination) pair during combination registration (spec
// §4.4 "Interning").
func (idx *Index) Add(p predicate.ID, c CombinationID) {
	bm := idx.byPredicate[p]
	if bm == nil {
		bm = roaring.New()
		idx.byPredicate[p] = bm
	}
	bm.Add(uint32(c))
}

// Grow extends the index to hold n predicates, used when the builder
// interns a predicate after the index was sized for an earlier estimate.
func (idx *Index) Grow(n int) {
	if n <= len(idx.byPredicate) {
		return
	}
	grown := make([]*roaring.Bitmap, n)
	copy(grown, idx.byPredicate)
	idx.byPredicate = grown
}

// Freeze runs RunOptimize over every bitmap, compacting run-length spans —
// the "compressed" half of the roaring-style bitmap spec §3 calls for —
// and returns the Index unchanged for chaining.
func (idx *Index) Freeze() *Index {
	for _, bm := range idx.byPredicate {
		if bm != nil {
			bm.RunOptimize()
		}
	}
	return idx
}

// Bitmap returns the combination-id bitmap for predicate p, or nil if no
// combination references it.
func (idx *Index) Bitmap(p predicate.ID) *roaring.Bitmap {
	if int(p) < 0 || int(p) >= len(idx.byPredicate) {
		return nil
	}
	return idx.byPredicate[p]
}

// Each iterates the combination ids in predicate p's bitmap, calling fn for
// each. Iteration stops early if fn returns false.
func (idx *Index) Each(p predicate.ID, fn func(CombinationID) bool) {
	bm := idx.Bitmap(p)
	if bm == nil {
		return
	}
	it := bm.Iterator()
	for it.HasNext() {
		if !fn(CombinationID(it.Next())) {
			return
		}
	}
}

// Len returns the number of predicate slots in the index.
func (idx *Index) Len() int {
	return len(idx.byPredicate)
}
