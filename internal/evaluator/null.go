package evaluator

import (
	"sort"

	"github.com/heliosrules/helios/internal/model"
	"github.com/heliosrules/helios/internal/predicate"
	"github.com/heliosrules/helios/internal/valuetype"
)

// nullIndex is the NullEvaluator of spec §4.6: IS_NULL and IS_NOT_NULL,
// where a field absent from the event is treated identically to a field
// present with an explicit null value (spec §4.1 "field absence as
// null"). Because absence can only be observed by the caller diffing the
// event's attribute set against the fields this evaluator cares about,
// nullIndex also exposes the field list via fields().
type nullIndex struct {
	byField   map[int32][]predicate.ID
	fieldsAsc []int32
}

func buildNullIndex(m *model.EngineModel) *nullIndex {
	byField := make(map[int32][]predicate.ID)
	for _, id := range m.SortedPredicateIDs() {
		p := m.Predicate(id)
		if p.Op == predicate.IsNull || p.Op == predicate.IsNotNull {
			byField[p.FieldID] = append(byField[p.FieldID], id)
		}
	}
	fieldsAsc := make([]int32, 0, len(byField))
	for f := range byField {
		fieldsAsc = append(fieldsAsc, f)
	}
	sort.Slice(fieldsAsc, func(i, j int) bool { return fieldsAsc[i] < fieldsAsc[j] })
	return &nullIndex{byField: byField, fieldsAsc: fieldsAsc}
}

func (idx *nullIndex) fields() []int32 {
	return idx.fieldsAsc
}

func (idx *nullIndex) evaluatePresent(m *model.EngineModel, ctx *Context, fieldID int32, v valuetype.Value) {
	ids, ok := idx.byField[fieldID]
	if !ok {
		return
	}
	idx.evaluate(m, ctx, ids, !v.IsNull())
}

func (idx *nullIndex) evaluateAbsent(m *model.EngineModel, ctx *Context, fieldID int32) {
	ids, ok := idx.byField[fieldID]
	if !ok {
		return
	}
	idx.evaluate(m, ctx, ids, false)
}

func (idx *nullIndex) evaluate(m *model.EngineModel, ctx *Context, ids []predicate.ID, present bool) {
	markAndCount(ctx, m, ids, "null", func(p predicate.Predicate) bool {
		if p.Op == predicate.IsNull {
			return !present
		}
		return present
	})
}
