package factorizer

import (
	"testing"

	"github.com/heliosrules/helios/internal/predicate"
	"github.com/heliosrules/helios/internal/validator"
	"github.com/heliosrules/helios/internal/valuetype"
)

func anyOfCond(field string, values ...string) validator.CanonicalCondition {
	vs := make([]valuetype.Value, len(values))
	for i, v := range values {
		vs[i] = valuetype.NewString(v)
	}
	return validator.CanonicalCondition{Field: field, Operator: predicate.IsAnyOf, Value: valuetype.NewList(vs)}
}

func eqCond(field, value string) validator.CanonicalCondition {
	return validator.CanonicalCondition{Field: field, Operator: predicate.EqualTo, Value: valuetype.NewString(value)}
}

// TestFactorizeScenarioB mirrors spec §8 Scenario B: R1 = country IS_ANY_OF
// [US,CA] AND tier EQUAL_TO GOLD; R2 = country IS_ANY_OF [CA,MX] AND tier
// EQUAL_TO GOLD. Both share a signature and should merge into one Unit
// whose country union is [US,CA,MX] with CA owned by both rule codes.
func TestFactorizeScenarioB(t *testing.T) {
	rules := []validator.CanonicalRule{
		{RuleCode: "R1", Enabled: true, Conditions: []validator.CanonicalCondition{anyOfCond("COUNTRY", "US", "CA"), eqCond("TIER", "GOLD")}},
		{RuleCode: "R2", Enabled: true, Conditions: []validator.CanonicalCondition{anyOfCond("COUNTRY", "CA", "MX"), eqCond("TIER", "GOLD")}},
	}

	units := Factorize(rules)
	if len(units) != 1 {
		t.Fatalf("len(units) = %d, want 1 (rules should merge)", len(units))
	}
	u := units[0]
	if u.MergeCount != 2 {
		t.Fatalf("MergeCount = %d, want 2", u.MergeCount)
	}
	if len(u.AnyOf) != 1 || u.AnyOf[0].Field != "COUNTRY" {
		t.Fatalf("unexpected AnyOf: %+v", u.AnyOf)
	}
	if len(u.AnyOf[0].Values) != 3 {
		t.Fatalf("expected union of 3 distinct country values, got %d", len(u.AnyOf[0].Values))
	}

	ownersByValue := make(map[string][]string)
	for i, v := range u.AnyOf[0].Values {
		ownersByValue[v.Str] = u.AnyOf[0].Owners[i]
	}
	if len(ownersByValue["CA"]) != 2 {
		t.Fatalf("CA should be owned by both rules, got owners %v", ownersByValue["CA"])
	}
	if len(ownersByValue["US"]) != 1 || ownersByValue["US"][0] != "R1" {
		t.Fatalf("US should be owned only by R1, got %v", ownersByValue["US"])
	}
	if len(ownersByValue["MX"]) != 1 || ownersByValue["MX"][0] != "R2" {
		t.Fatalf("MX should be owned only by R2, got %v", ownersByValue["MX"])
	}
}

func TestFactorizeDoesNotMergeDifferentSignatures(t *testing.T) {
	rules := []validator.CanonicalRule{
		{RuleCode: "R1", Enabled: true, Conditions: []validator.CanonicalCondition{anyOfCond("COUNTRY", "US", "CA"), eqCond("TIER", "GOLD")}},
		{RuleCode: "R2", Enabled: true, Conditions: []validator.CanonicalCondition{anyOfCond("COUNTRY", "CA", "MX"), eqCond("TIER", "SILVER")}},
	}

	units := Factorize(rules)
	if len(units) != 2 {
		t.Fatalf("len(units) = %d, want 2 (different tier values must not merge)", len(units))
	}
}

func TestFactorizeKeepsBlockedAndDisabledSolo(t *testing.T) {
	rules := []validator.CanonicalRule{
		{RuleCode: "R1", Enabled: true, Blocked: true, Conditions: []validator.CanonicalCondition{anyOfCond("COUNTRY", "US")}},
		{RuleCode: "R2", Enabled: false, Conditions: []validator.CanonicalCondition{anyOfCond("COUNTRY", "US")}},
	}

	units := Factorize(rules)
	if len(units) != 2 {
		t.Fatalf("len(units) = %d, want 2 (blocked/disabled rules must never merge)", len(units))
	}
	for _, u := range units {
		if u.MergeCount != 1 {
			t.Fatalf("blocked/disabled unit should have MergeCount 1, got %d", u.MergeCount)
		}
	}
}

func TestFactorizePreservesRuleCodesPrioritiesDescriptions(t *testing.T) {
	rules := []validator.CanonicalRule{
		{RuleCode: "R1", Enabled: true, Priority: 10, Description: "first", Conditions: []validator.CanonicalCondition{anyOfCond("COUNTRY", "US", "CA"), eqCond("TIER", "GOLD")}},
		{RuleCode: "R2", Enabled: true, Priority: 20, Description: "second", Conditions: []validator.CanonicalCondition{anyOfCond("COUNTRY", "CA", "MX"), eqCond("TIER", "GOLD")}},
	}

	units := Factorize(rules)
	u := units[0]
	if u.RuleMeta["R1"].Priority != 10 || u.RuleMeta["R1"].Description != "first" {
		t.Fatalf("R1 metadata not preserved: %+v", u.RuleMeta["R1"])
	}
	if u.RuleMeta["R2"].Priority != 20 || u.RuleMeta["R2"].Description != "second" {
		t.Fatalf("R2 metadata not preserved: %+v", u.RuleMeta["R2"])
	}
}
