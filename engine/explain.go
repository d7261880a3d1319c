package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/heliosrules/helios/internal/evaluator"
	"github.com/heliosrules/helios/internal/matching"
	"github.com/heliosrules/helios/internal/model"
)

// ConditionTrace is one entry of ExplainResult.PerCondition (spec §6
// `explain`'s `per_condition` shape).
type ConditionTrace struct {
	Field     string `json:"field"`
	Operator  string `json:"operator"`
	Expected  string `json:"expected"`
	Actual    string `json:"actual"`
	Evaluated bool   `json:"evaluated"`
	Passed    bool   `json:"passed"`
	Reason    string `json:"reason"`
}

// ExplainResult is the wire shape of spec §6's
// `explain(model, rule_code, event) → { matched, per_condition, timings }`.
type ExplainResult struct {
	Matched      bool             `json:"matched"`
	PerCondition []ConditionTrace `json:"per_condition"`
	TimingsNs    map[string]int64 `json:"timings_ns"`
}

// Explain implements spec §6's `explain`: it reports, for one rule_code,
// whether it matched the event and the per-predicate detail of the
// combination that best explains the outcome — the first fully-satisfied
// combination if the rule matched, otherwise the combination with the
// highest true-predicate count (the "closest" one), so a caller debugging
// a non-match sees which conditions actually failed. Eligibility is not
// applied here: every predicate in the rule is evaluated (Evaluated is
// always true in the returned trace).
func (e *Engine) Explain(ctx context.Context, ruleCode string, we WireEvent) (ExplainResult, error) {
	start := time.Now()
	combos := e.m.RuleCombinations(ruleCode)
	if len(combos) == 0 {
		if _, ok := e.m.RuleMeta(ruleCode); !ok {
			return ExplainResult{}, fmt.Errorf("%w: rule_code=%s", ErrRuleNotFound, ruleCode)
		}
		// Rule exists but produced zero combinations (blocked or disabled,
		// spec §4.1/§9 open question 1): it can never match.
		return ExplainResult{Matched: false, TimingsNs: map[string]int64{"total_ns": time.Since(start).Nanoseconds()}}, nil
	}

	event, err := EncodeEvent(we)
	if err != nil {
		return ExplainResult{}, err
	}

	ec := e.acquire()
	defer e.release(ec)

	dispatchStart := time.Now()
	attrs := e.match.Dispatch(ec, event, nil)
	dispatchNs := time.Since(dispatchStart).Nanoseconds()

	chosen, matched := chooseCombination(e.m, ec, combos)

	traces := e.match.PredicateTraces(ec, e.m.CombinationPredicateIDs(chosen), attrs, matching.TraceFull)
	perCondition := make([]ConditionTrace, len(traces))
	for i, t := range traces {
		perCondition[i] = ConditionTrace{
			Field:     t.Field,
			Operator:  t.Operator,
			Expected:  t.Expected,
			Actual:    t.Actual,
			Evaluated: true,
			Passed:    t.Passed,
			Reason:    conditionReason(t.Passed),
		}
	}

	return ExplainResult{
		Matched:      matched,
		PerCondition: perCondition,
		TimingsNs: map[string]int64{
			"dispatch_ns": dispatchNs,
			"total_ns":    time.Since(start).Nanoseconds(),
		},
	}, nil
}

// chooseCombination picks which of a rule's combinations best explains the
// event: the first one that fully matched, or else the one with the
// highest true-predicate count.
func chooseCombination(m *model.EngineModel, ec *evaluator.Context, combos []model.CombinationID) (model.CombinationID, bool) {
	best := combos[0]
	bestCount := int32(-1)
	for _, c := range combos {
		tc := ec.TrueCount(c)
		if tc == int32(m.CombinationPredicateCount(c)) {
			return c, true
		}
		if tc > bestCount {
			best, bestCount = c, tc
		}
	}
	return best, false
}

func conditionReason(passed bool) string {
	if passed {
		return "predicate evaluated true"
	}
	return "predicate evaluated false"
}
