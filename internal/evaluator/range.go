package evaluator

import (
	"github.com/heliosrules/helios/internal/model"
	"github.com/heliosrules/helios/internal/predicate"
	"github.com/heliosrules/helios/internal/valuetype"
)

// rangeIndex is the RangeEvaluator of spec §4.6: GREATER_THAN(_OR_EQUAL),
// LESS_THAN(_OR_EQUAL), and BETWEEN (inclusive on both ends). Integer event
// values compared against a floating-point operand (or vice versa) are
// widened to float64 before comparison, matching valuetype.Value.AsFloat.
type rangeIndex struct {
	byField map[int32][]predicate.ID
}

func buildRangeIndex(m *model.EngineModel) *rangeIndex {
	byField := make(map[int32][]predicate.ID)
	for _, id := range m.SortedPredicateIDs() {
		p := m.Predicate(id)
		if p.Op.IsNumeric() {
			byField[p.FieldID] = append(byField[p.FieldID], id)
		}
	}
	return &rangeIndex{byField: byField}
}

func (idx *rangeIndex) evaluate(m *model.EngineModel, ctx *Context, fieldID int32, v valuetype.Value) {
	ids, ok := idx.byField[fieldID]
	if !ok || !v.IsNumeric() {
		return
	}
	ev := v.AsFloat()
	markAndCount(ctx, m, ids, "range", func(p predicate.Predicate) bool {
		switch p.Op {
		case predicate.GreaterThan:
			return ev > p.Value.AsFloat()
		case predicate.GreaterThanOrEqual:
			return ev >= p.Value.AsFloat()
		case predicate.LessThan:
			return ev < p.Value.AsFloat()
		case predicate.LessThanOrEqual:
			return ev <= p.Value.AsFloat()
		case predicate.Between:
			lo, hi := p.Value.List[0].AsFloat(), p.Value.List[1].AsFloat()
			return ev >= lo && ev <= hi
		default:
			return false
		}
	})
}
