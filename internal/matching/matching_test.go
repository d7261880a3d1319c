package matching

import (
	"context"
	"strings"
	"testing"

	"github.com/heliosrules/helios/internal/evaluator"
	"github.com/heliosrules/helios/internal/model"
	"github.com/heliosrules/helios/internal/ruledef"
	"github.com/heliosrules/helios/internal/valuetype"
)

func buildEngine(t *testing.T, src string) *Engine {
	t.Helper()
	rules, err := ruledef.ParseSource(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseSource: %v", err)
	}
	m, _, err := model.Build(context.Background(), rules)
	if err != nil {
		t.Fatalf("model.Build: %v", err)
	}
	return New(m)
}

func ruleCodes(matched []MatchedRule) []string {
	out := make([]string, len(matched))
	for i, r := range matched {
		out[i] = r.RuleCode
	}
	return out
}

// TestScenarioA is spec §8 scenario A.
func TestScenarioA(t *testing.T) {
	e := buildEngine(t, `[{"rule_code": "R1", "priority": 50, "conditions": [
		{"field": "country", "operator": "EQUAL_TO", "value": "US"},
		{"field": "amount", "operator": "GREATER_THAN", "value": 1000}
	]}]`)
	ec := evaluator.NewContext(e.Model())

	event := Event{Attributes: map[string]valuetype.Value{
		"country": valuetype.NewString("us"),
		"amount":  valuetype.NewInt(1500),
	}}
	result := e.Match(context.Background(), ec, event, Options{})
	if got := ruleCodes(result.MatchedRules); len(got) != 1 || got[0] != "R1" {
		t.Fatalf("matched = %v, want [R1]", got)
	}
	if result.PredicatesEvaluated < 2 {
		t.Fatalf("predicates_evaluated = %d, want >= 2", result.PredicatesEvaluated)
	}
}

// TestScenarioB is spec §8 scenario B.
func TestScenarioB(t *testing.T) {
	e := buildEngine(t, `[
		{"rule_code": "R1", "conditions": [
			{"field": "country", "operator": "IS_ANY_OF", "value": ["US", "CA"]},
			{"field": "tier", "operator": "EQUAL_TO", "value": "GOLD"}
		]},
		{"rule_code": "R2", "conditions": [
			{"field": "country", "operator": "IS_ANY_OF", "value": ["CA", "MX"]},
			{"field": "tier", "operator": "EQUAL_TO", "value": "GOLD"}
		]}
	]`)
	ec := evaluator.NewContext(e.Model())
	event := Event{Attributes: map[string]valuetype.Value{
		"country": valuetype.NewString("CA"),
		"tier":    valuetype.NewString("GOLD"),
	}}
	result := e.Match(context.Background(), ec, event, Options{})
	got := ruleCodes(result.MatchedRules)
	if len(got) != 2 || got[0] != "R1" || got[1] != "R2" {
		t.Fatalf("matched = %v, want [R1 R2]", got)
	}
}

// TestScenarioD is spec §8 scenario D.
func TestScenarioD(t *testing.T) {
	e := buildEngine(t, `[{"rule_code": "R1", "conditions": [
		{"field": "age", "operator": "BETWEEN", "value": [18, 65]}
	]}]`)
	ec := evaluator.NewContext(e.Model())

	cases := []struct {
		age   int64
		match bool
	}{
		{18, true}, {65, true}, {17, false}, {66, false},
	}
	for _, c := range cases {
		event := Event{Attributes: map[string]valuetype.Value{"age": valuetype.NewInt(c.age)}}
		result := e.Match(context.Background(), ec, event, Options{})
		matched := len(result.MatchedRules) == 1
		if matched != c.match {
			t.Fatalf("age=%d: matched=%v, want %v", c.age, matched, c.match)
		}
	}
}

// TestScenarioE is spec §8 scenario E.
func TestScenarioE(t *testing.T) {
	e := buildEngine(t, `[
		{"rule_code": "R1", "priority": 10, "conditions": [{"field": "x", "operator": "EQUAL_TO", "value": "V"}]},
		{"rule_code": "R2", "priority": 100, "conditions": [{"field": "x", "operator": "EQUAL_TO", "value": "V"}]}
	]`)
	ec := evaluator.NewContext(e.Model())
	event := Event{Attributes: map[string]valuetype.Value{"x": valuetype.NewString("V")}}

	all := e.Match(context.Background(), ec, event, Options{Strategy: AllMatches})
	if got := ruleCodes(all.MatchedRules); len(got) != 2 || got[0] != "R2" || got[1] != "R1" {
		t.Fatalf("ALL_MATCHES = %v, want [R2 R1]", got)
	}

	first := e.Match(context.Background(), ec, event, Options{Strategy: FirstMatch})
	if got := ruleCodes(first.MatchedRules); len(got) != 1 || got[0] != "R2" {
		t.Fatalf("FIRST_MATCH = %v, want [R2]", got)
	}
}

// TestScenarioF is spec §8 scenario F.
func TestScenarioF(t *testing.T) {
	e := buildEngine(t, `[{"rule_code": "R1", "conditions": [
		{"field": "status", "operator": "IS_NULL"}
	]}]`)
	ec := evaluator.NewContext(e.Model())

	absent := e.Match(context.Background(), ec, Event{Attributes: map[string]valuetype.Value{}}, Options{})
	if len(absent.MatchedRules) != 1 {
		t.Fatal("expected absent status to match IS_NULL")
	}

	present := e.Match(context.Background(), ec, Event{Attributes: map[string]valuetype.Value{"status": valuetype.NewString("A")}}, Options{})
	if len(present.MatchedRules) != 0 {
		t.Fatal("expected present status to fail IS_NULL")
	}
}

// TestDeterminism is spec §8 property 5.
func TestDeterminism(t *testing.T) {
	e := buildEngine(t, `[{"rule_code": "R1", "conditions": [
		{"field": "country", "operator": "EQUAL_TO", "value": "US"}
	]}]`)
	ec := evaluator.NewContext(e.Model())
	event := Event{Attributes: map[string]valuetype.Value{"country": valuetype.NewString("US")}}

	first := e.Match(context.Background(), ec, event, Options{})
	second := e.Match(context.Background(), ec, event, Options{})
	if len(first.MatchedRules) != len(second.MatchedRules) || first.PredicatesEvaluated != second.PredicatesEvaluated {
		t.Fatalf("repeated Match diverged: %+v vs %+v", first, second)
	}
}

func TestTraceFullCapturesExpectedAndActual(t *testing.T) {
	e := buildEngine(t, `[{"rule_code": "R1", "conditions": [
		{"field": "country", "operator": "EQUAL_TO", "value": "US"}
	]}]`)
	ec := evaluator.NewContext(e.Model())
	event := Event{Attributes: map[string]valuetype.Value{"country": valuetype.NewString("us")}}

	result := e.Match(context.Background(), ec, event, Options{TraceLevel: TraceFull})
	if result.Trace == nil || len(result.Trace.Predicates) != 1 {
		t.Fatalf("expected one predicate trace entry, got %+v", result.Trace)
	}
	pt := result.Trace.Predicates[0]
	if pt.Expected != "US" || pt.Actual != "us" || !pt.Passed {
		t.Fatalf("unexpected predicate trace: %+v", pt)
	}
}
