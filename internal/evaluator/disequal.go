package evaluator

import (
	"github.com/heliosrules/helios/internal/model"
	"github.com/heliosrules/helios/internal/predicate"
	"github.com/heliosrules/helios/internal/valuetype"
)

// disequalIndex evaluates NOT_EQUAL_TO and IS_NONE_OF together: both are
// "event value is absent from a small encoded set" checks (NOT_EQUAL_TO's
// set always has one member). spec §9 open question 3 resolves IS_NONE_OF
// on a dictionary-unknown event value the same way NOT_EQUAL_TO already
// handles it — not-a-member is true, no special case needed — so the two
// operators share this evaluator. Predicate ids are kept ascending by
// Weight, the same early-evaluation order every other evaluator uses.
type disequalIndex struct {
	byField map[int32][]predicate.ID
}

func buildDisequalIndex(m *model.EngineModel) *disequalIndex {
	idx := &disequalIndex{byField: make(map[int32][]predicate.ID)}
	byField := make(map[int32][]predicate.ID)
	for _, id := range m.SortedPredicateIDs() {
		p := m.Predicate(id)
		if p.Op == predicate.NotEqualTo || p.Op == predicate.IsNoneOf {
			byField[p.FieldID] = append(byField[p.FieldID], id)
		}
	}
	idx.byField = byField
	return idx
}

func (idx *disequalIndex) evaluate(m *model.EngineModel, ctx *Context, fieldID int32, v valuetype.Value) {
	ids, ok := idx.byField[fieldID]
	if !ok {
		return
	}
	encoded, known := encodedValue(m, v)
	for _, id := range ids {
		if !ctx.Eligible(id) {
			continue
		}
		ctx.RecordEvaluated()
		p := m.Predicate(id)
		var member bool
		if known {
			member = memberOf(p, encoded)
		}
		if !member {
			ctx.MarkTrue(id)
			evaluationsTotal.WithLabelValues("disequality", "true").Inc()
		} else {
			evaluationsTotal.WithLabelValues("disequality", "false").Inc()
		}
	}
}

func memberOf(p predicate.Predicate, encoded int64) bool {
	if p.Op == predicate.NotEqualTo {
		return p.Value.Int == encoded
	}
	for _, e := range p.Value.List {
		if e.Int == encoded {
			return true
		}
	}
	return false
}
