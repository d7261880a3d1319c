// Package engine is Helios's public compile/match/explain surface (spec
// §6 "Engine API"): it wires internal/ruledef, internal/model, and
// internal/matching behind the four operations external collaborators
// consume, plus the batch-evaluation and model-reload helpers of
// SPEC_FULL §4.8/§4.9.
package engine

import "errors"

// Sentinel errors surfaced by this package, matching the error kinds of
// spec §7 not already owned by internal/validator (ErrInvalidRule,
// ErrUnsupportedOperator, ErrDuplicateRuleCode, ErrRegexSyntax) or
// internal/model (which has no sentinel of its own — a ModelBuildError is,
// per spec §7, "an internal consistency failure that should be
// unreachable"; internal/model's only error path wraps validator's
// sentinels).
var (
	// ErrEvaluationError is returned when an event attribute cannot be
	// encoded into a valuetype.Value — a JSON type the value type cannot
	// represent, e.g. a nested object or an array of objects (spec §7
	// "malformed event at runtime"). It is isolated per event: Match
	// returns it directly, BatchMatch records it on that event's
	// EventResult without aborting the rest of the batch.
	ErrEvaluationError = errors.New("engine: malformed event attribute")

	// ErrModelRequired is returned when a Handle's Load returns nil,
	// meaning no model has ever been published to it.
	ErrModelRequired = errors.New("engine: no model loaded")

	// ErrRuleNotFound is returned by Explain when rule_code names no rule
	// in the model.
	ErrRuleNotFound = errors.New("engine: rule_code not found")
)
