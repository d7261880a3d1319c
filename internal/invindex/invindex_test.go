package invindex

import (
	"testing"

	"github.com/heliosrules/helios/internal/predicate"
)

func TestAddAndEach(t *testing.T) {
	idx := NewBuilder(3)
	idx.Add(0, 10)
	idx.Add(0, 11)
	idx.Add(1, 11)
	idx.Freeze()

	var got []CombinationID
	idx.Each(0, func(c CombinationID) bool {
		got = append(got, c)
		return true
	})
	if len(got) != 2 || got[0] != 10 || got[1] != 11 {
		t.Fatalf("Each(0) = %v, want [10 11]", got)
	}

	var stopped []CombinationID
	idx.Each(0, func(c CombinationID) bool {
		stopped = append(stopped, c)
		return false
	})
	if len(stopped) != 1 {
		t.Fatalf("Each with early stop visited %d entries, want 1", len(stopped))
	}
}

func TestBitmapMissingPredicateReturnsNil(t *testing.T) {
	idx := NewBuilder(2)
	if bm := idx.Bitmap(predicate.ID(1)); bm != nil {
		t.Fatalf("Bitmap(unregistered) = %v, want nil", bm)
	}
	if bm := idx.Bitmap(predicate.ID(99)); bm != nil {
		t.Fatalf("Bitmap(out-of-range) = %v, want nil", bm)
	}
}

func TestGrow(t *testing.T) {
	idx := NewBuilder(1)
	idx.Grow(5)
	if idx.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", idx.Len())
	}
	idx.Grow(2) // no-op, already larger
	if idx.Len() != 5 {
		t.Fatalf("Len() after shrink-attempt = %d, want 5", idx.Len())
	}
}
