// Package evaluator implements the operator-specialized evaluators of spec
// §4.6: EqualityEvaluator (EQUAL_TO/NOT_EQUAL_TO/IS_NONE_OF), RangeEvaluator
// (GT/GTE/LT/LTE/BETWEEN), StringEvaluator (CONTAINS/STARTS_WITH/ENDS_WITH/
// REGEX), and NullEvaluator (IS_NULL/IS_NOT_NULL). Each is built once per
// EngineModel (the teacher's "build once, serve many readers" shape, see
// services/trace/index/symbol_index.go) and evaluated many times
// concurrently across disjoint per-call Contexts.
package evaluator

import (
	"github.com/heliosrules/helios/internal/invindex"
	"github.com/heliosrules/helios/internal/model"
	"github.com/heliosrules/helios/internal/predicate"
)

// Context is the per-evaluation scratch state of spec §3
// "EvaluationContext": the true-predicate-driven combination counters,
// the evaluated-predicate count, and (optionally) the trace capture and
// eligibility filter. A Context is never shared across goroutines (spec
// §5); callers allocate or pool one per `match` call.
//
// The counter array uses a generation tag (spec §5 "a generation-tag
// technique may be used to avoid O(M) clears") so Reset is O(1) rather
// than O(M): a slot's count is only meaningful when its recorded
// generation equals the Context's current generation.
type Context struct {
	index *invindex.Index

	generation uint32
	counterGen []uint32
	trueCounts []int32
	// touched records every combination_id whose counter was bumped this
	// call, in first-touch order, so the matching engine can check
	// completeness without scanning all M combinations.
	touched []invindex.CombinationID

	evaluatedPredicates int
	truePredicateIDs    []predicate.ID

	// eligibility, if non-nil, restricts evaluation to this set of
	// predicate ids (spec §4.5 "Optional eligibility filter"). A nil
	// eligibility means every predicate is eligible.
	eligibility map[predicate.ID]struct{}
}

// NewContext allocates a Context sized for m.
func NewContext(m *model.EngineModel) *Context {
	c := &Context{}
	c.Reset(m)
	return c
}

// Reset retargets c at m, ready for a new `match` call. It resizes the
// counter arrays only if m has more combinations than the Context was
// previously sized for (pooled Contexts grow but never shrink), and bumps
// the generation so every prior count reads as zero without a full clear.
func (c *Context) Reset(m *model.EngineModel) {
	c.index = m.Index()
	n := m.CombinationCount()
	if len(c.trueCounts) < n {
		grownCounts := make([]int32, n)
		copy(grownCounts, c.trueCounts)
		c.trueCounts = grownCounts

		grownGen := make([]uint32, n)
		copy(grownGen, c.counterGen)
		c.counterGen = grownGen
	}
	c.generation++
	c.evaluatedPredicates = 0
	c.truePredicateIDs = c.truePredicateIDs[:0]
	c.touched = c.touched[:0]
	c.eligibility = nil
}

// SetEligibility installs an optional eligibility filter (spec §4.5): only
// predicate ids in eligible are evaluated this call. Pass nil to clear it.
func (c *Context) SetEligibility(eligible map[predicate.ID]struct{}) {
	c.eligibility = eligible
}

// Eligible reports whether p may be evaluated this call.
func (c *Context) Eligible(p predicate.ID) bool {
	if c.eligibility == nil {
		return true
	}
	_, ok := c.eligibility[p]
	return ok
}

// RecordEvaluated increments the predicates-evaluated counter (spec §6
// MatchResult's `predicates_evaluated`), regardless of the predicate's
// outcome.
func (c *Context) RecordEvaluated() {
	c.evaluatedPredicates++
}

// RecordEvaluatedN increments the predicates-evaluated counter by n in one
// step, for evaluators (e.g. the EQUAL_TO fast bucket lookup) that can
// account for a whole group of predicates without visiting each one.
func (c *Context) RecordEvaluatedN(n int) {
	c.evaluatedPredicates += n
}

// MarkTrue records that predicate p evaluated true on the current event:
// it adds p to the true-predicate list and, via the inverted index,
// increments true_counts for every combination_id that contains p (spec
// §4.5 counting algorithm step 3).
func (c *Context) MarkTrue(p predicate.ID) {
	c.truePredicateIDs = append(c.truePredicateIDs, p)
	c.index.Each(p, func(comb invindex.CombinationID) bool {
		c.bump(comb)
		return true
	})
}

func (c *Context) bump(comb invindex.CombinationID) {
	i := int(comb)
	if c.counterGen[i] != c.generation {
		c.counterGen[i] = c.generation
		c.trueCounts[i] = 0
		c.touched = append(c.touched, comb)
	}
	c.trueCounts[i]++
}

// TouchedCombinations returns every combination_id whose true_counts were
// incremented this call, in first-touch order. The returned slice is only
// valid until the next Reset.
func (c *Context) TouchedCombinations() []invindex.CombinationID {
	return c.touched
}

// TrueCount returns true_counts[comb] for the current generation (spec §3
// "Per-combination true-predicate counter array").
func (c *Context) TrueCount(comb invindex.CombinationID) int32 {
	i := int(comb)
	if c.counterGen[i] != c.generation {
		return 0
	}
	return c.trueCounts[i]
}

// EvaluatedPredicates returns the number of predicates examined this call.
func (c *Context) EvaluatedPredicates() int {
	return c.evaluatedPredicates
}

// TruePredicateIDs returns every predicate id that evaluated true this
// call, in evaluation order. Used by STANDARD/FULL trace levels. The
// returned slice is only valid until the next Reset.
func (c *Context) TruePredicateIDs() []predicate.ID {
	return c.truePredicateIDs
}
