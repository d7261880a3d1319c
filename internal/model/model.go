// Package model implements the frozen EngineModel of spec §3 and the
// EngineModel Builder compiler stage of spec §4.4: it interns predicates and
// combinations, builds the inverted index, and bundles everything the
// matching runtime needs behind one immutable, concurrently-shareable
// value. Ownership follows spec §5: exactly one supervisor publishes a
// *EngineModel; many evaluators hold shared references; it is replaced
// atomically on recompile, never mutated in place.
package model

import (
	"github.com/heliosrules/helios/internal/dictionary"
	"github.com/heliosrules/helios/internal/invindex"
	"github.com/heliosrules/helios/internal/predicate"
)

// CombinationID is re-exported from internal/invindex so callers outside
// the compiler never need to import it directly.
type CombinationID = invindex.CombinationID

// CombinationOwner is the representative (rule_code, priority) pair a
// combination_id reverse-maps to, per spec §4.4 "Logical mapping" and spec
// §9's open question on tie-breaking: when the same combination is
// produced by multiple rules, RuleCode is the one with the maximum
// priority, ties broken by ascending rule_code. It is exposed for
// diagnostics through EngineModel.CombinationOwner; explain() and stats()
// do not read it, and the matching runtime's own match-completeness
// check uses the forward RuleCode -> []CombinationID map instead, since a
// shared combination genuinely belongs to every owning rule (spec §8
// property 4).
type CombinationOwner struct {
	RuleCode string
	Priority int
}

// RuleMeta is the per-logical-rule metadata the frozen model retains for
// result reporting: priority and description (spec §6 MatchResult wire
// shape), independent of how many combinations the rule expanded into.
type RuleMeta struct {
	Priority    int
	Description string
	Tags        []string
	Labels      map[string]any
}

// Stats is the wire shape of spec §6's `model.stats()`.
type Stats struct {
	BuildID                  string
	UniqueCombinations       int
	TotalExpandedCombinations int
	TotalPredicates          int
	CompilationTimeNs        int64
	DeduplicationRate        float64
	LogicalRules             int
	DroppedRuleCodes         []string // rules that produced zero combinations (spec §9 open question 1)
	Warnings                 int
}

// EngineModel is the immutable, publishable artifact of compilation (spec
// §3 "EngineModel (frozen)"). Every slice/map below is populated once by
// Build and never mutated afterward; concurrent readers need no
// synchronization.
type EngineModel struct {
	Fields *dictionary.Dictionary
	Values *dictionary.Dictionary

	// predicates is the dense predicate registry, indexed by predicate.ID.
	predicates []predicate.Predicate

	// perField maps a field_id to every predicate_id defined on that
	// field, in interning order (spec §3 "Per-field predicate list").
	perField map[int32][]predicate.ID

	// combinationPredicates[c] is the ascending-sorted predicate id set of
	// combination c (spec §3 "Combination").
	combinationPredicates [][]predicate.ID
	// predicateCounts[c] == len(combinationPredicates[c]), kept as a
	// parallel array per spec §3 invariant (iii) for O(1) lookup on the
	// match path without a slice-length indirection.
	predicateCounts []int

	index *invindex.Index

	// ruleCombinations is the forward logical-rule map, rule_code -> its
	// combination ids (spec §3 "Logical rule mapping").
	ruleCombinations map[string][]CombinationID
	// combinationRules is the full reverse map, combination_id -> every
	// rule_code that owns it (spec §8 property 4: "a rule matches if any of
	// its combinations match" requires the matching runtime to walk every
	// owner of a matched combination, not just the priority-representative
	// one combinationOwner records).
	combinationRules map[CombinationID][]string
	// combinationOwner is the reverse map described on CombinationOwner.
	combinationOwner map[CombinationID]CombinationOwner
	ruleMeta         map[string]RuleMeta
	// ruleCodesSorted is every logical rule_code present in the model,
	// ascending, used for deterministic iteration (stats, explain listing).
	ruleCodesSorted []string

	// sortedPredicates is every predicate id ascending by Weight (spec §3
	// "Sorted predicates").
	sortedPredicates []predicate.ID
	// fieldMinWeight[fieldID] is the minimum Weight among that field's
	// predicates, precomputed for pruning (spec §3).
	fieldMinWeight map[int32]float64

	stats Stats
}

// Predicate returns the interned Predicate for id. Callers never construct
// predicate.ID values themselves; they come from PerFieldPredicates,
// CombinationPredicateIDs, or SortedPredicateIDs.
func (m *EngineModel) Predicate(id predicate.ID) predicate.Predicate {
	return m.predicates[id]
}

// PredicateCount returns the number of interned predicates, i.e. P in
// spec §8 property 2's `predicate_id ∈ [0, P)`.
func (m *EngineModel) PredicateCount() int {
	return len(m.predicates)
}

// PerFieldPredicates returns every predicate_id defined on fieldID. The
// returned slice must not be mutated by the caller.
func (m *EngineModel) PerFieldPredicates(fieldID int32) []predicate.ID {
	return m.perField[fieldID]
}

// CombinationPredicateIDs returns combination c's ascending-sorted
// predicate id set. The returned slice must not be mutated by the caller.
func (m *EngineModel) CombinationPredicateIDs(c CombinationID) []predicate.ID {
	return m.combinationPredicates[c]
}

// CombinationPredicateCount returns predicate_counts[c] (spec §3 invariant
// (iii)).
func (m *EngineModel) CombinationPredicateCount(c CombinationID) int {
	return m.predicateCounts[c]
}

// CombinationCount returns M, the number of distinct combinations
// registered (spec §8 property 2's `combination_id ∈ [0, M)`).
func (m *EngineModel) CombinationCount() int {
	return len(m.combinationPredicates)
}

// Index returns the frozen inverted index.
func (m *EngineModel) Index() *invindex.Index {
	return m.index
}

// RuleCombinations returns ruleCode's combination ids, or nil if ruleCode
// is unknown or produced zero combinations.
func (m *EngineModel) RuleCombinations(ruleCode string) []CombinationID {
	return m.ruleCombinations[ruleCode]
}

// CombinationOwner returns the representative (rule_code, priority) for
// combination c.
func (m *EngineModel) CombinationOwner(c CombinationID) (CombinationOwner, bool) {
	o, ok := m.combinationOwner[c]
	return o, ok
}

// CombinationRuleCodes returns every rule_code that owns combination c. The
// returned slice must not be mutated by the caller.
func (m *EngineModel) CombinationRuleCodes(c CombinationID) []string {
	return m.combinationRules[c]
}

// RuleMeta returns the priority/description/tags/labels for ruleCode.
func (m *EngineModel) RuleMeta(ruleCode string) (RuleMeta, bool) {
	rm, ok := m.ruleMeta[ruleCode]
	return rm, ok
}

// RuleCodes returns every logical rule_code known to the model, ascending.
// The returned slice must not be mutated by the caller.
func (m *EngineModel) RuleCodes() []string {
	return m.ruleCodesSorted
}

// SortedPredicateIDs returns every predicate id ascending by Weight (spec
// §3 "Sorted predicates", spec §4.3).
func (m *EngineModel) SortedPredicateIDs() []predicate.ID {
	return m.sortedPredicates
}

// FieldMinWeight returns the minimum predicate Weight registered on
// fieldID, used by weight-driven pruning strategies. The second return is
// false if fieldID has no predicates.
func (m *EngineModel) FieldMinWeight(fieldID int32) (float64, bool) {
	w, ok := m.fieldMinWeight[fieldID]
	return w, ok
}

// Stats implements spec §6's `model.stats()`.
func (m *EngineModel) Stats() Stats {
	return m.stats
}
