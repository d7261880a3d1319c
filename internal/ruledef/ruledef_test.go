package ruledef

import (
	"strings"
	"testing"
)

func TestParseSourceJSONArray(t *testing.T) {
	src := `[
		{"rule_code": "R1", "priority": 50, "conditions": [
			{"field": "country", "operator": "EQUAL_TO", "value": "US"},
			{"field": "amount", "operator": "GREATER_THAN", "value": 1000}
		]}
	]`

	rules, err := ParseSource(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseSource: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("len(rules) = %d, want 1", len(rules))
	}
	r := rules[0]
	if r.RuleCode != "R1" || r.Priority != 50 || !r.Enabled {
		t.Fatalf("unexpected rule: %+v", r)
	}
	if len(r.Conditions) != 2 {
		t.Fatalf("len(conditions) = %d, want 2", len(r.Conditions))
	}
	if r.Conditions[1].Value.Int != 1000 {
		t.Fatalf("conditions[1].Value = %+v, want Int 1000", r.Conditions[1].Value)
	}
}

func TestParseSourceJSONL(t *testing.T) {
	src := "{\"rule_code\": \"A\", \"conditions\": []}\n{\"rule_code\": \"B\", \"conditions\": []}\n"
	rules, err := ParseSource(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseSource: %v", err)
	}
	if len(rules) != 2 || rules[0].RuleCode != "A" || rules[1].RuleCode != "B" {
		t.Fatalf("unexpected rules: %+v", rules)
	}
}

func TestParseSourceEmptyConditionsAccepted(t *testing.T) {
	src := `[{"rule_code": "R1", "conditions": []}]`
	rules, err := ParseSource(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseSource: %v", err)
	}
	if len(rules[0].Conditions) != 0 || rules[0].ConditionsWereNull {
		t.Fatalf("empty conditions should parse as empty, non-null list: %+v", rules[0])
	}
}

func TestParseSourceNullConditionsFlagged(t *testing.T) {
	src := `[{"rule_code": "R1", "conditions": null}]`
	rules, err := ParseSource(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseSource: %v", err)
	}
	if !rules[0].ConditionsWereNull {
		t.Fatal("explicit null conditions should set ConditionsWereNull")
	}
}

func TestParseSourceDefaultPriorityAndEnabled(t *testing.T) {
	src := `[{"rule_code": "R1", "conditions": []}]`
	rules, err := ParseSource(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseSource: %v", err)
	}
	if rules[0].Priority != DefaultPriority || !rules[0].Enabled {
		t.Fatalf("expected default priority %d and enabled=true, got %+v", DefaultPriority, rules[0])
	}
}
