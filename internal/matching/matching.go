// Package matching implements the MatchingEngine of spec §4.5: the
// counting algorithm that dispatches an event's attributes to the
// operator-specialized evaluators, drives per-combination true-predicate
// counters via the inverted index, and aggregates matching combinations by
// logical rule code. Compilation (internal/model, internal/evaluator) and
// the public compile/match/explain surface (package engine) are kept
// separate; this package owns only the per-event evaluation loop.
package matching

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/heliosrules/helios/internal/evaluator"
	"github.com/heliosrules/helios/internal/model"
	"github.com/heliosrules/helios/internal/predicate"
	"github.com/heliosrules/helios/internal/validator"
	"github.com/heliosrules/helios/internal/valuetype"
)

var matchTracer = otel.Tracer("helios.internal.matching")

// Event is spec §3's `(event_id, timestamp, attributes)` tuple. Attributes
// are consumed read-only.
type Event struct {
	EventID    string
	Timestamp  time.Time
	Attributes map[string]valuetype.Value
}

// TraceLevel is the closed enumeration of spec §6.
type TraceLevel int

const (
	TraceNone TraceLevel = iota
	TraceBasic
	TraceStandard
	TraceFull
)

// Strategy is the closed selection-strategy enumeration of spec §4.5.
type Strategy int

const (
	AllMatches Strategy = iota
	FirstMatch
)

// Options configures one match call: the optional eligibility filter, trace
// verbosity, and selection strategy (spec §4.5).
type Options struct {
	Eligibility map[predicate.ID]struct{}
	TraceLevel  TraceLevel
	Strategy    Strategy
}

// MatchedRule is one entry of MatchResult.MatchedRules (spec §6).
type MatchedRule struct {
	RuleCode    string
	Priority    int
	Description string
}

// PredicateTrace is one predicate's recorded outcome, populated at
// TraceStandard (Passed only) and TraceFull (+ Expected/Actual).
type PredicateTrace struct {
	Field    string
	Operator string
	Expected string
	Actual   string
	Passed   bool
}

// Trace is the optional per-evaluation capture of spec §6's trace levels.
// A NONE-level call returns a nil Trace; Traces never alter match results.
type Trace struct {
	Level          TraceLevel
	StageTimingsNs map[string]int64
	Predicates     []PredicateTrace
}

// MatchResult is the wire shape of spec §6's `MatchResult`.
type MatchResult struct {
	MatchedRules        []MatchedRule
	EvaluationTimeNs    int64
	PredicatesEvaluated int
	RulesEvaluated      int
	Trace               *Trace
}

// Engine runs the counting algorithm against one EngineModel and its paired
// Evaluators bundle. It holds no mutable state of its own beyond the
// EvaluationContext passed in by the caller; concurrent Match calls on
// disjoint Contexts are safe (spec §5).
type Engine struct {
	model *model.EngineModel
	evals *evaluator.Evaluators
}

// New builds an Engine for m, constructing the operator-evaluator bundle
// once (spec §4.6 "build once, evaluate many").
func New(m *model.EngineModel) *Engine {
	return &Engine{model: m, evals: evaluator.Build(m)}
}

// Model returns the EngineModel this Engine evaluates against.
func (e *Engine) Model() *model.EngineModel {
	return e.model
}

// Match runs spec §4.5's counting algorithm for one event and returns its
// MatchResult. ec is a pooled or freshly allocated *evaluator.Context,
// reset against e.model internally; the caller owns its lifecycle and must
// not share it across goroutines (spec §5).
func (e *Engine) Match(ctx context.Context, ec *evaluator.Context, event Event, opts Options) MatchResult {
	_, span := matchTracer.Start(ctx, "matching.Match")
	defer span.End()
	start := time.Now()

	var trace *Trace
	if opts.TraceLevel != TraceNone {
		trace = &Trace{Level: opts.TraceLevel, StageTimingsNs: make(map[string]int64)}
	}

	dispatchStart := time.Now()
	canonicalAttrs := e.Dispatch(ec, event, opts.Eligibility)
	if trace != nil {
		trace.StageTimingsNs["dispatch"] = time.Since(dispatchStart).Nanoseconds()
	}

	if trace != nil && trace.Level >= TraceStandard {
		trace.Predicates = e.PredicateTraces(ec, e.model.SortedPredicateIDs(), canonicalAttrs, trace.Level)
	}

	collectStart := time.Now()
	matched := e.Collect(ec)
	if trace != nil {
		trace.StageTimingsNs["collect"] = time.Since(collectStart).Nanoseconds()
	}

	matched = applyStrategy(matched, opts.Strategy)

	result := MatchResult{
		MatchedRules:        matched,
		EvaluationTimeNs:    time.Since(start).Nanoseconds(),
		PredicatesEvaluated: ec.EvaluatedPredicates(),
		RulesEvaluated:      len(e.model.RuleCodes()),
		Trace:               trace,
	}

	span.SetAttributes(
		attribute.Int("matched_rules", len(matched)),
		attribute.Int("predicates_evaluated", result.PredicatesEvaluated),
	)
	return result
}

// Dispatch resets ec against e.model and runs the dispatch half of the
// counting algorithm (spec §4.5 steps 1-3): every event attribute is
// encoded and routed to the operator evaluators, then every null-carrying
// field the event never mentioned is evaluated as absent. It returns the
// event's attributes keyed by canonical field name, for callers (Match's
// trace rendering, engine.Explain) that need to report actual values
// without recomputing canonicalization.
func (e *Engine) Dispatch(ec *evaluator.Context, event Event, eligibility map[predicate.ID]struct{}) map[string]valuetype.Value {
	ec.Reset(e.model)
	ec.SetEligibility(eligibility)

	seenFields := make(map[int32]bool, len(event.Attributes))
	canonicalAttrs := make(map[string]valuetype.Value, len(event.Attributes))
	for rawField, v := range event.Attributes {
		canonical := validator.CanonicalizeField(rawField)
		canonicalAttrs[canonical] = v
		fieldID, ok := e.model.Fields.Lookup(canonical)
		if !ok {
			continue
		}
		seenFields[fieldID] = true
		e.evals.EvaluatePresent(e.model, ec, fieldID, v)
	}
	for _, fieldID := range e.evals.NullFields() {
		if !seenFields[fieldID] {
			e.evals.EvaluateAbsent(e.model, ec, fieldID)
		}
	}
	return canonicalAttrs
}

// Collect aggregates ec's touched combinations into the ALL_MATCHES result
// set (spec §4.5 steps 4-5). Callers that need FIRST_MATCH apply
// applyStrategy themselves or call Match directly.
func (e *Engine) Collect(ec *evaluator.Context) []MatchedRule {
	return e.collectMatches(ec)
}

// PredicateTraces renders a trace listing restricted to ids, in the order
// given. engine.Explain uses this to report only the predicates belonging
// to one rule's combination; Match uses it (with every predicate id) for
// its own TraceStandard/TraceFull output.
func (e *Engine) PredicateTraces(ec *evaluator.Context, ids []predicate.ID, attrs map[string]valuetype.Value, level TraceLevel) []PredicateTrace {
	return predicateTraces(e.model, ec, ids, attrs, level)
}

// collectMatches walks every combination the Context touched this call
// (spec §4.5 step 4), and for each fully satisfied combination, credits
// every owning rule_code (spec §8 property 4). A rule appears at most once
// even if several of its combinations matched.
func (e *Engine) collectMatches(ec *evaluator.Context) []MatchedRule {
	credited := make(map[string]bool)
	var out []MatchedRule
	for _, c := range ec.TouchedCombinations() {
		if ec.TrueCount(c) != int32(e.model.CombinationPredicateCount(c)) {
			continue
		}
		for _, ruleCode := range e.model.CombinationRuleCodes(c) {
			if credited[ruleCode] {
				continue
			}
			credited[ruleCode] = true
			meta, _ := e.model.RuleMeta(ruleCode)
			out = append(out, MatchedRule{RuleCode: ruleCode, Priority: meta.Priority, Description: meta.Description})
		}
	}
	sortMatches(out)
	return out
}

// sortMatches orders results by descending priority, ties by ascending
// rule_code (spec §4.5 step 5, §8 property 7).
func sortMatches(rules []MatchedRule) {
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].RuleCode < rules[j].RuleCode
	})
}

// applyStrategy reduces the full ALL_MATCHES result set per opts.Strategy.
// ALL_MATCHES is already in the ordering applyStrategy's caller needs;
// FIRST_MATCH keeps only the highest-priority entry (ties already broken
// ascending by rule_code in sortMatches).
func applyStrategy(matched []MatchedRule, strategy Strategy) []MatchedRule {
	if strategy == FirstMatch && len(matched) > 1 {
		return matched[:1]
	}
	return matched
}

// predicateTraces renders a TraceStandard/TraceFull predicate-outcome
// listing for ids, in the order given. TraceFull additionally renders each
// predicate's expected operand and the event's actual attribute value.
func predicateTraces(m *model.EngineModel, ec *evaluator.Context, ids []predicate.ID, attrs map[string]valuetype.Value, level TraceLevel) []PredicateTrace {
	truePreds := make(map[predicate.ID]bool, len(ec.TruePredicateIDs()))
	for _, id := range ec.TruePredicateIDs() {
		truePreds[id] = true
	}

	out := make([]PredicateTrace, 0, len(ids))
	for _, id := range ids {
		p := m.Predicate(id)
		field := m.Fields.Decode(p.FieldID)
		pt := PredicateTrace{
			Field:    field,
			Operator: p.Op.String(),
			Passed:   truePreds[id],
		}
		if level >= TraceFull {
			pt.Expected = expectedOperand(m, p)
			if v, ok := attrs[field]; ok {
				pt.Actual = v.String()
			}
		}
		out = append(out, pt)
	}
	return out
}

// expectedOperand renders a predicate's operand for FULL trace output,
// decoding dictionary-encoded equality operands back to their source
// strings.
func expectedOperand(m *model.EngineModel, p predicate.Predicate) string {
	switch p.Op {
	case predicate.EqualTo, predicate.NotEqualTo:
		if p.Value.Int >= 0 {
			return m.Values.Decode(int32(p.Value.Int))
		}
		return p.Value.String()
	case predicate.IsNoneOf:
		decoded := make([]string, 0, len(p.Value.List))
		for _, e := range p.Value.List {
			if e.Int >= 0 {
				decoded = append(decoded, m.Values.Decode(int32(e.Int)))
			}
		}
		return valuetype.NewList(stringsToValues(decoded)).String()
	default:
		return p.Value.String()
	}
}

func stringsToValues(ss []string) []valuetype.Value {
	out := make([]valuetype.Value, len(ss))
	for i, s := range ss {
		out[i] = valuetype.NewString(s)
	}
	return out
}
