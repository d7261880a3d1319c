package evaluator

import (
	"github.com/heliosrules/helios/internal/model"
	"github.com/heliosrules/helios/internal/predicate"
	"github.com/heliosrules/helios/internal/valuetype"
)

// equalityIndex is the EqualityEvaluator of spec §4.6 for EQUAL_TO: a
// per-field map from the dictionary-encoded operand value to the
// predicate ids requiring that value, plus a one-shot fast path for
// fields with exactly one EQUAL_TO predicate (the common case: most rule
// sets pin a field to a single value far more often than they compare it
// against several distinct values across different rules).
type equalityIndex struct {
	// fast holds the sole EQUAL_TO predicate id for a field with exactly
	// one such predicate. Checked before falling back to byValue.
	fast map[int32]predicate.ID
	// byValue holds the general case: fieldID -> encoded value -> the one
	// predicate id requiring that value. Predicate interning guarantees at
	// most one EQUAL_TO predicate id per (field, value) pair (spec §4.4),
	// so the bucket is a single id, never a list: looking it up and
	// marking it is O(1), not a scan of every distinct value on the field.
	byValue map[int32]map[int64]predicate.ID
	// counts holds the total number of EQUAL_TO predicates registered for
	// a field with more than one such predicate, precomputed once so
	// predicates_evaluated bookkeeping is O(1) instead of requiring a walk
	// over every bucket on every call.
	counts map[int32]int
}

func buildEqualityIndex(m *model.EngineModel) *equalityIndex {
	idx := &equalityIndex{
		fast:    make(map[int32]predicate.ID),
		byValue: make(map[int32]map[int64]predicate.ID),
		counts:  make(map[int32]int),
	}

	byField := make(map[int32][]predicate.ID)
	for _, id := range m.SortedPredicateIDs() {
		p := m.Predicate(id)
		if p.Op == predicate.EqualTo {
			byField[p.FieldID] = append(byField[p.FieldID], id)
		}
	}

	for fieldID, ids := range byField {
		if len(ids) == 1 {
			idx.fast[fieldID] = ids[0]
			continue
		}
		byValue := make(map[int64]predicate.ID, len(ids))
		for _, id := range ids {
			byValue[m.Predicate(id).Value.Int] = id
		}
		idx.byValue[fieldID] = byValue
		idx.counts[fieldID] = len(ids)
	}
	return idx
}

func (idx *equalityIndex) evaluate(m *model.EngineModel, ctx *Context, fieldID int32, v valuetype.Value) {
	encoded, ok := encodedValue(m, v)

	if id, ok2 := idx.fast[fieldID]; ok2 {
		if !ctx.Eligible(id) {
			return
		}
		ctx.RecordEvaluated()
		fastPathHits.Inc()
		if ok && m.Predicate(id).Value.Int == encoded {
			ctx.MarkTrue(id)
			evaluationsTotal.WithLabelValues("equality", "true").Inc()
		} else {
			evaluationsTotal.WithLabelValues("equality", "false").Inc()
		}
		return
	}

	byValue, ok2 := idx.byValue[fieldID]
	if !ok2 {
		return
	}

	// Every predicate for this field other than the one requiring the
	// event's actual value is necessarily false, and predicate interning
	// guarantees at most one predicate id per (field, value) pair, so the
	// matching id (if any) is a direct O(1) lookup rather than a scan of
	// every bucket (spec §4.6 EQUAL_TO lookup contract).
	trueID, matched := byValue[encoded]
	matched = matched && ok

	if ctx.eligibility == nil {
		total := idx.counts[fieldID]
		ctx.RecordEvaluatedN(total)
		if matched {
			ctx.MarkTrue(trueID)
			evaluationsTotal.WithLabelValues("equality", "true").Inc()
			evaluationsTotal.WithLabelValues("equality", "false").Add(float64(total - 1))
		} else {
			evaluationsTotal.WithLabelValues("equality", "false").Add(float64(total))
		}
		return
	}

	// An eligibility filter restricts evaluation to an explicit predicate
	// subset (spec §4.5, used by explain against a single rule): the bulk
	// accounting above would miscount predicates outside that subset, so
	// fall back to checking each one.
	if matched && ctx.Eligible(trueID) {
		ctx.RecordEvaluated()
		ctx.MarkTrue(trueID)
		evaluationsTotal.WithLabelValues("equality", "true").Inc()
	}
	for value, id := range byValue {
		if matched && value == encoded {
			continue
		}
		if !ctx.Eligible(id) {
			continue
		}
		ctx.RecordEvaluated()
		evaluationsTotal.WithLabelValues("equality", "false").Inc()
	}
}

// encodedValue resolves an event value to the dictionary-encoded int64
// used by EQUAL_TO/NOT_EQUAL_TO/IS_NONE_OF predicates. Numeric and boolean
// event values have no dictionary encoding and are never equal to a
// string-keyed predicate; only KindString participates.
func encodedValue(m *model.EngineModel, v valuetype.Value) (int64, bool) {
	if v.Kind != valuetype.KindString {
		return 0, false
	}
	id, ok := m.Values.Lookup(v.Str)
	if !ok {
		return 0, false
	}
	return int64(id), true
}
