package evaluator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/heliosrules/helios/internal/model"
	"github.com/heliosrules/helios/internal/predicate"
	"github.com/heliosrules/helios/internal/valuetype"
)

var evaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "helios",
	Subsystem: "evaluator",
	Name:      "evaluations_total",
	Help:      "Predicates examined, labeled by evaluator family and outcome.",
}, []string{"family", "outcome"})

var fastPathHits = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "helios",
	Subsystem: "evaluator",
	Name:      "equality_fast_path_hits_total",
	Help:      "EQUAL_TO evaluations served by the single-predicate fast path.",
})

// Evaluators bundles the four operator-specialized evaluators of spec §4.6,
// each built once per EngineModel by grouping its weight-sorted predicate
// ids (model.EngineModel.SortedPredicateIDs) by field and operator family.
// The bundle
// itself holds no per-call state; all per-call state lives in Context.
type Evaluators struct {
	equality *equalityIndex
	disequal *disequalIndex
	ranges   *rangeIndex
	strings  *stringIndex
	nulls    *nullIndex
}

// Build constructs the Evaluators bundle for m. It is called once per
// compiled model, typically right after model.Build (spec §4.7 READY).
func Build(m *model.EngineModel) *Evaluators {
	return &Evaluators{
		equality: buildEqualityIndex(m),
		disequal: buildDisequalIndex(m),
		ranges:   buildRangeIndex(m),
		strings:  buildStringIndex(m),
		nulls:    buildNullIndex(m),
	}
}

// EvaluatePresent dispatches every operator family against an attribute
// that is present in the event with value v (spec §4.5 step 1, per
// attribute). It is the matching engine's single entry point for a present
// attribute.
func (e *Evaluators) EvaluatePresent(m *model.EngineModel, ctx *Context, fieldID int32, v valuetype.Value) {
	e.equality.evaluate(m, ctx, fieldID, v)
	e.disequal.evaluate(m, ctx, fieldID, v)
	e.ranges.evaluate(m, ctx, fieldID, v)
	e.strings.evaluate(m, ctx, fieldID, v)
	e.nulls.evaluatePresent(m, ctx, fieldID, v)
}

// EvaluateAbsent dispatches the null family for a field that carries
// IS_NULL/IS_NOT_NULL predicates but was never mentioned in the event's
// attribute set (spec §4.1 "field absence as null").
func (e *Evaluators) EvaluateAbsent(m *model.EngineModel, ctx *Context, fieldID int32) {
	e.nulls.evaluateAbsent(m, ctx, fieldID)
}

// NullFields returns every field_id carrying at least one IS_NULL or
// IS_NOT_NULL predicate, so the matching engine can evaluate absence for
// fields the event never mentions.
func (e *Evaluators) NullFields() []int32 {
	return e.nulls.fields()
}

func markAndCount(ctx *Context, m *model.EngineModel, ids []predicate.ID, family string, ok func(predicate.Predicate) bool) {
	for _, id := range ids {
		if !ctx.Eligible(id) {
			continue
		}
		ctx.RecordEvaluated()
		p := m.Predicate(id)
		if ok(p) {
			ctx.MarkTrue(id)
			evaluationsTotal.WithLabelValues(family, "true").Inc()
		} else {
			evaluationsTotal.WithLabelValues(family, "false").Inc()
		}
	}
}
