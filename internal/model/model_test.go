package model

import (
	"context"
	"strings"
	"testing"

	"github.com/heliosrules/helios/internal/ruledef"
)

func parse(t *testing.T, src string) []ruledef.RuleDefinition {
	t.Helper()
	rules, err := ruledef.ParseSource(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseSource: %v", err)
	}
	return rules
}

// TestBuildDeduplicatesSharedCombination is spec §8 scenario B: two rules
// whose IS_ANY_OF lists overlap on one value collapse to 3 unique
// combinations, not 4.
func TestBuildDeduplicatesSharedCombination(t *testing.T) {
	src := `[
		{"rule_code": "R1", "conditions": [
			{"field": "country", "operator": "IS_ANY_OF", "value": ["US", "CA"]},
			{"field": "tier", "operator": "EQUAL_TO", "value": "GOLD"}
		]},
		{"rule_code": "R2", "conditions": [
			{"field": "country", "operator": "IS_ANY_OF", "value": ["CA", "MX"]},
			{"field": "tier", "operator": "EQUAL_TO", "value": "GOLD"}
		]}
	]`

	m, _, err := Build(context.Background(), parse(t, src))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	stats := m.Stats()
	if stats.UniqueCombinations != 3 {
		t.Fatalf("UniqueCombinations = %d, want 3", stats.UniqueCombinations)
	}
	if stats.TotalExpandedCombinations != 4 {
		t.Fatalf("TotalExpandedCombinations = %d, want 4", stats.TotalExpandedCombinations)
	}

	r1 := m.RuleCombinations("R1")
	r2 := m.RuleCombinations("R2")
	if len(r1) != 2 || len(r2) != 2 {
		t.Fatalf("expected 2 combinations per rule, got R1=%d R2=%d", len(r1), len(r2))
	}

	shared := false
	for _, a := range r1 {
		for _, b := range r2 {
			if a == b {
				shared = true
			}
		}
	}
	if !shared {
		t.Fatal("expected R1 and R2 to share exactly one combination_id (CA∧GOLD)")
	}
}

// TestBuildDensePredicateAndCombinationIDs is spec §8 property 2.
func TestBuildDensePredicateAndCombinationIDs(t *testing.T) {
	src := `[{"rule_code": "R1", "conditions": [
		{"field": "country", "operator": "EQUAL_TO", "value": "US"},
		{"field": "amount", "operator": "GREATER_THAN", "value": 1000}
	]}]`
	m, _, err := Build(context.Background(), parse(t, src))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if m.PredicateCount() != 2 {
		t.Fatalf("PredicateCount() = %d, want 2", m.PredicateCount())
	}
	if m.CombinationCount() != 1 {
		t.Fatalf("CombinationCount() = %d, want 1", m.CombinationCount())
	}
}

// TestBuildDropsContradictoryRule is spec §8 scenario C.
func TestBuildDropsContradictoryRule(t *testing.T) {
	src := `[{"rule_code": "R1", "conditions": [
		{"field": "x", "operator": "GREATER_THAN", "value": 100},
		{"field": "x", "operator": "LESS_THAN", "value": 50}
	]}]`
	m, warnings, err := Build(context.Background(), parse(t, src))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(m.RuleCombinations("R1")) != 0 {
		t.Fatal("contradictory rule should contribute zero combinations")
	}
	if len(warnings) == 0 {
		t.Fatal("expected a contradiction warning")
	}
}

func TestBuildAggregatesErrorsOnInvalidRule(t *testing.T) {
	src := `[{"rule_code": "", "conditions": []}]`
	_, _, err := Build(context.Background(), parse(t, src))
	if err == nil {
		t.Fatal("expected an error for missing rule_code")
	}
}

// TestBuildPerFieldAndWeightOrdering exercises the per-field predicate
// list and ascending-weight ordering spec §3 requires of the frozen model.
func TestBuildPerFieldAndWeightOrdering(t *testing.T) {
	src := `[{"rule_code": "R1", "conditions": [
		{"field": "country", "operator": "EQUAL_TO", "value": "US"},
		{"field": "bio", "operator": "REGEX", "value": "^a.*z$"}
	]}]`
	m, _, err := Build(context.Background(), parse(t, src))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	sorted := m.SortedPredicateIDs()
	if len(sorted) != 2 {
		t.Fatalf("len(SortedPredicateIDs()) = %d, want 2", len(sorted))
	}
	first := m.Predicate(sorted[0])
	last := m.Predicate(sorted[len(sorted)-1])
	if first.Weight > last.Weight {
		t.Fatalf("predicates not ascending by weight: %v then %v", first.Weight, last.Weight)
	}

	countryID, ok := m.Fields.Lookup("COUNTRY")
	if !ok {
		t.Fatal("expected COUNTRY field to be registered")
	}
	if len(m.PerFieldPredicates(countryID)) != 1 {
		t.Fatalf("expected exactly one predicate for COUNTRY field")
	}
}
