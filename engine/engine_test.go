package engine

import (
	"context"
	"strings"
	"testing"
)

const sampleSource = `[
	{"rule_code": "R1", "priority": 50, "conditions": [
		{"field": "country", "operator": "EQUAL_TO", "value": "US"},
		{"field": "amount", "operator": "GREATER_THAN", "value": 1000}
	]},
	{"rule_code": "R2", "priority": 10, "conditions": [
		{"field": "status", "operator": "IS_NULL"}
	]}
]`

func buildEngine(t *testing.T, source string) *Engine {
	t.Helper()
	m, _, err := Compile(context.Background(), strings.NewReader(source), CompileOptions{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return New(m)
}

func TestCompileProducesStats(t *testing.T) {
	m, warnings, err := Compile(context.Background(), strings.NewReader(sampleSource), CompileOptions{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	stats := m.Stats()
	if stats.LogicalRules != 2 {
		t.Fatalf("LogicalRules = %d, want 2", stats.LogicalRules)
	}
}

func TestCompileInvalidRuleFails(t *testing.T) {
	_, _, err := Compile(context.Background(), strings.NewReader(`[{"rule_code": ""}]`), CompileOptions{})
	if err == nil {
		t.Fatal("expected error for empty rule_code")
	}
}

func TestMatchAgainstCompiledModel(t *testing.T) {
	e := buildEngine(t, sampleSource)

	result, err := e.Match(context.Background(), WireEvent{
		Attributes: map[string]any{"country": "us", "amount": float64(1500)},
	}, MatchOptions{})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(result.MatchedRules) != 1 || result.MatchedRules[0].RuleCode != "R1" {
		t.Fatalf("matched = %+v, want [R1]", result.MatchedRules)
	}
	if result.EvaluationID == "" {
		t.Fatal("expected a non-empty EvaluationID")
	}
}

func TestMatchMalformedAttributeIsEvaluationError(t *testing.T) {
	e := buildEngine(t, sampleSource)

	_, err := e.Match(context.Background(), WireEvent{
		Attributes: map[string]any{"country": map[string]any{"nested": true}},
	}, MatchOptions{})
	if err == nil {
		t.Fatal("expected an EvaluationError for an unrepresentable attribute")
	}
}

func TestMatchTraceFull(t *testing.T) {
	e := buildEngine(t, sampleSource)

	result, err := e.Match(context.Background(), WireEvent{
		Attributes: map[string]any{"country": "US", "amount": float64(2000)},
	}, MatchOptions{TraceLevel: TraceFull})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if result.Trace == nil || len(result.Trace.Predicates) == 0 {
		t.Fatal("expected a populated trace")
	}
}

func TestExplainMatchedRule(t *testing.T) {
	e := buildEngine(t, sampleSource)

	result, err := e.Explain(context.Background(), "R1", WireEvent{
		Attributes: map[string]any{"country": "us", "amount": float64(1500)},
	})
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if !result.Matched {
		t.Fatal("expected R1 to match")
	}
	if len(result.PerCondition) != 2 {
		t.Fatalf("per_condition = %v, want 2 entries", result.PerCondition)
	}
	for _, c := range result.PerCondition {
		if !c.Passed {
			t.Fatalf("condition %+v expected Passed=true", c)
		}
	}
}

func TestExplainUnmatchedRuleReportsFailingCondition(t *testing.T) {
	e := buildEngine(t, sampleSource)

	result, err := e.Explain(context.Background(), "R1", WireEvent{
		Attributes: map[string]any{"country": "us", "amount": float64(5)},
	})
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if result.Matched {
		t.Fatal("expected R1 not to match")
	}
	var sawFailure bool
	for _, c := range result.PerCondition {
		if !c.Passed {
			sawFailure = true
		}
	}
	if !sawFailure {
		t.Fatal("expected at least one failing condition in the explain trace")
	}
}

func TestExplainUnknownRule(t *testing.T) {
	e := buildEngine(t, sampleSource)

	_, err := e.Explain(context.Background(), "NOPE", WireEvent{})
	if err == nil {
		t.Fatal("expected ErrRuleNotFound")
	}
}

func TestBatchMatchIsolatesPerEventErrors(t *testing.T) {
	e := buildEngine(t, sampleSource)

	events := []WireEvent{
		{EventID: "ok", Attributes: map[string]any{"country": "US", "amount": float64(2000)}},
		{EventID: "bad", Attributes: map[string]any{"country": map[string]any{"x": 1}}},
	}
	results := e.BatchMatch(context.Background(), events, BatchOptions{})
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].Err != "" || results[0].Result == nil {
		t.Fatalf("event 0 = %+v, want a successful result", results[0])
	}
	if results[1].Err == "" || results[1].Result != nil {
		t.Fatalf("event 1 = %+v, want an isolated error", results[1])
	}
}

func TestHandleSwapIsVisibleToLoad(t *testing.T) {
	m1, _, err := Compile(context.Background(), strings.NewReader(sampleSource), CompileOptions{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	h := NewHandle(m1)
	if h.Load() != m1 {
		t.Fatal("Load did not return the loaded model")
	}

	m2, _, err := Compile(context.Background(), strings.NewReader(sampleSource), CompileOptions{Strategy: FactorizeDisabled})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	prev := h.Swap(m2)
	if prev != m1 {
		t.Fatal("Swap did not return the previous model")
	}
	if h.Load() != m2 {
		t.Fatal("Load did not return the newly swapped model")
	}
}
