// Package predicate implements the immutable Predicate value object: a
// (field_id, operator, encoded value, optional compiled pattern, weight,
// selectivity) tuple, plus the interning key used to deduplicate predicates
// and combinations across rules.
package predicate

import (
	"encoding/binary"
	"regexp"

	"github.com/cespare/xxhash/v2"

	"github.com/heliosrules/helios/internal/valuetype"
)

// ID is a dense predicate identifier assigned by the interning builder.
type ID int32

// Predicate is the interned, immutable semantic tuple of spec §3. Two
// Predicates with structurally equal (FieldID, Op, Value, Pattern) are the
// same predicate and receive the same ID during interning — this is what
// allows deduplication across rules.
//
// A Predicate is created during compilation, interned once, and never
// mutated afterward.
type Predicate struct {
	// FieldID is the dictionary id of the canonicalized field name.
	FieldID int32
	// Op is the operator this predicate evaluates.
	Op Operator
	// Value is the operand: an encoded dictionary id for case-insensitive
	// string operators (stored in Value.Int), or the raw numeric/string
	// Value for numeric/REGEX operators. For BETWEEN, Value is a two
	// element KindList of numeric bounds [min, max].
	Value valuetype.Value
	// Pattern is the compiled regex handle for Op == Regex. Nil otherwise.
	// Compiled once during validation so no runtime parsing occurs (spec §9).
	Pattern *regexp.Regexp

	// Weight is (1 - selectivity) * cost(operator), the ascending
	// evaluation-order key (spec §4.3). Set from the selectivity profile
	// when the expander builds the predicate, before interning.
	Weight float64
	// Selectivity is the heuristic probability-like estimate that this
	// predicate evaluates true, in [0,1].
	Selectivity float64
}

// Key returns a 64-bit structural hash of the predicate's identity fields
// (FieldID, Op, Value, and the regex source for Op == Regex). It is used as
// the intern-map key during predicate deduplication (spec §4.4); two
// predicates with the same Key are Equal, modulo the (astronomically
// unlikely) chance of a hash collision, which callers handle by falling
// back to Equal on a bucket hit.
func (p Predicate) Key() uint64 {
	h := xxhash.New()

	var hdr [12]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(p.FieldID))
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(p.Op))
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(p.Value.Kind))
	_, _ = h.Write(hdr[:])

	writeValue(h, p.Value)

	if p.Op == Regex {
		_, _ = h.Write([]byte{0xFF})
		_, _ = h.Write([]byte(p.Value.Str))
	}

	return h.Sum64()
}

func writeValue(h *xxhash.Digest, v valuetype.Value) {
	switch v.Kind {
	case valuetype.KindNull:
	case valuetype.KindInt:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(v.Int))
		_, _ = h.Write(b[:])
	case valuetype.KindFloat:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(int64(v.Flt*1e9)))
		_, _ = h.Write(b[:])
	case valuetype.KindString:
		_, _ = h.Write([]byte(v.Str))
	case valuetype.KindBool:
		if v.Bool {
			_, _ = h.Write([]byte{1})
		} else {
			_, _ = h.Write([]byte{0})
		}
	case valuetype.KindList:
		for _, e := range v.List {
			writeValue(h, e)
			_, _ = h.Write([]byte{0x1E})
		}
	}
}

// Equal reports structural equality of the identity fields used for
// interning: FieldID, Op, Value, and (for REGEX) the pattern source.
// Weight and Selectivity are derived metadata, not identity, and are
// excluded from the comparison.
func (p Predicate) Equal(o Predicate) bool {
	if p.FieldID != o.FieldID || p.Op != o.Op {
		return false
	}
	if p.Op == Regex {
		return p.Value.Str == o.Value.Str
	}
	return p.Value.Equal(o.Value)
}
