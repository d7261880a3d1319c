package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/heliosrules/helios/internal/matching"
	"github.com/heliosrules/helios/internal/predicate"
	"github.com/heliosrules/helios/internal/valuetype"
)

// WireEvent is spec §3's Event, in the JSON shape external collaborators
// post to the engine API: attribute values are plain JSON scalars or
// lists, encoded into valuetype.Value by EncodeEvent.
type WireEvent struct {
	EventID    string         `json:"event_id"`
	Timestamp  time.Time      `json:"timestamp"`
	Attributes map[string]any `json:"attributes"`
}

// EncodeEvent converts a WireEvent into the matching.Event the runtime
// evaluates, encoding every attribute with valuetype.FromJSON. An
// attribute whose JSON value has no valuetype representation (a nested
// object, or an array mixing incompatible element types) yields
// ErrEvaluationError for the whole event, isolated to that one event
// (spec §7).
func EncodeEvent(we WireEvent) (matching.Event, error) {
	attrs := make(map[string]valuetype.Value, len(we.Attributes))
	for field, raw := range we.Attributes {
		v, err := valuetype.FromJSON(raw)
		if err != nil {
			return matching.Event{}, fmt.Errorf("%w: attribute=%s: %v", ErrEvaluationError, field, err)
		}
		attrs[field] = v
	}
	return matching.Event{EventID: we.EventID, Timestamp: we.Timestamp, Attributes: attrs}, nil
}

// TraceLevel is the JSON-wire spelling of spec §6's closed trace-level
// enumeration.
type TraceLevel string

const (
	TraceNone     TraceLevel = "NONE"
	TraceBasic    TraceLevel = "BASIC"
	TraceStandard TraceLevel = "STANDARD"
	TraceFull     TraceLevel = "FULL"
)

func (t TraceLevel) toMatching() matching.TraceLevel {
	switch t {
	case TraceBasic:
		return matching.TraceBasic
	case TraceStandard:
		return matching.TraceStandard
	case TraceFull:
		return matching.TraceFull
	default:
		return matching.TraceNone
	}
}

// Strategy is the JSON-wire spelling of spec §4.5's selection strategy.
type Strategy string

const (
	AllMatches Strategy = "ALL_MATCHES"
	FirstMatch Strategy = "FIRST_MATCH"
)

func (s Strategy) toMatching() matching.Strategy {
	if s == FirstMatch {
		return matching.FirstMatch
	}
	return matching.AllMatches
}

// MatchOptions is the wire shape of spec §4.5's match options: an optional
// eligibility filter (predicate ids, e.g. from a family/subset selection
// upstream of the engine), a trace level, and a selection strategy.
type MatchOptions struct {
	Eligibility []int32    `json:"eligibility,omitempty"`
	TraceLevel  TraceLevel `json:"trace_level,omitempty"`
	Strategy    Strategy   `json:"strategy,omitempty"`
}

func (o MatchOptions) toMatching() matching.Options {
	opts := matching.Options{
		TraceLevel: o.TraceLevel.toMatching(),
		Strategy:   o.Strategy.toMatching(),
	}
	if o.Eligibility != nil {
		elig := make(map[predicate.ID]struct{}, len(o.Eligibility))
		for _, id := range o.Eligibility {
			elig[predicate.ID(id)] = struct{}{}
		}
		opts.Eligibility = elig
	}
	return opts
}

// MatchedRule is the wire shape of one entry of MatchResult.MatchedRules.
type MatchedRule struct {
	RuleCode    string `json:"rule_code"`
	Priority    int    `json:"priority"`
	Description string `json:"description,omitempty"`
}

// PredicateTrace is the wire shape of one predicate's recorded outcome.
type PredicateTrace struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
	Passed   bool   `json:"passed"`
}

// Trace is the wire shape of spec §6's optional trace capture.
type Trace struct {
	Level          TraceLevel       `json:"level"`
	StageTimingsNs map[string]int64 `json:"stage_timings_ns,omitempty"`
	Predicates     []PredicateTrace `json:"predicates,omitempty"`
}

// MatchResult is the wire shape of spec §6's `MatchResult`. EvaluationID is
// an engine-level addition: a per-call correlation id (mirroring the
// teacher's request-id-per-call pattern) that ties a MatchResult back to
// its trace and log lines, useful once TraceLevel is NONE and the
// predicate-level detail isn't otherwise recoverable.
type MatchResult struct {
	EvaluationID        string        `json:"evaluation_id"`
	MatchedRules        []MatchedRule `json:"matched_rules"`
	EvaluationTimeNs    int64         `json:"evaluation_time_ns"`
	PredicatesEvaluated int           `json:"predicates_evaluated"`
	RulesEvaluated      int           `json:"rules_evaluated"`
	Trace               *Trace        `json:"trace,omitempty"`
}

func toWireResult(mr matching.MatchResult) MatchResult {
	out := MatchResult{
		EvaluationID:        uuid.NewString(),
		MatchedRules:        make([]MatchedRule, len(mr.MatchedRules)),
		EvaluationTimeNs:    mr.EvaluationTimeNs,
		PredicatesEvaluated: mr.PredicatesEvaluated,
		RulesEvaluated:      mr.RulesEvaluated,
	}
	for i, r := range mr.MatchedRules {
		out.MatchedRules[i] = MatchedRule{RuleCode: r.RuleCode, Priority: r.Priority, Description: r.Description}
	}
	if mr.Trace != nil {
		t := &Trace{StageTimingsNs: mr.Trace.StageTimingsNs}
		switch mr.Trace.Level {
		case matching.TraceBasic:
			t.Level = TraceBasic
		case matching.TraceStandard:
			t.Level = TraceStandard
		case matching.TraceFull:
			t.Level = TraceFull
		default:
			t.Level = TraceNone
		}
		t.Predicates = make([]PredicateTrace, len(mr.Trace.Predicates))
		for i, pt := range mr.Trace.Predicates {
			t.Predicates[i] = PredicateTrace{
				Field: pt.Field, Operator: pt.Operator,
				Expected: pt.Expected, Actual: pt.Actual, Passed: pt.Passed,
			}
		}
		out.Trace = t
	}
	return out
}
