// Package validator implements the Validator/Canonicalizer of spec §4.1: it
// turns parsed rule definitions into canonicalized rule definitions or a
// compilation failure, and performs the two-tier contradiction detection
// of spec §4.1.
package validator

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/heliosrules/helios/internal/predicate"
	"github.com/heliosrules/helios/internal/ruledef"
	"github.com/heliosrules/helios/internal/valuetype"
)

// CanonicalCondition is a condition after field-name canonicalization,
// operator resolution, and (for case-insensitive operators) value
// uppercasing. It has not yet been dictionary-encoded; that happens in a
// later compiler stage (spec §4.7 ENCODE_DICTS).
type CanonicalCondition struct {
	Field    string
	Operator predicate.Operator
	Value    valuetype.Value
	Pattern  *regexp.Regexp // non-nil only for Operator == predicate.Regex
}

// CanonicalRule is a RuleDefinition after validation and canonicalization.
// Blocked rules are retained (so logging/diagnostics can reference them)
// but must be excluded from combination generation (spec §4.1 blocking
// tier, §4.4).
type CanonicalRule struct {
	RuleCode    string
	Description string
	Priority    int
	Enabled     bool
	Conditions  []CanonicalCondition
	Tags        []string
	Labels      map[string]any

	// Blocked is true if this rule was found to be unsatisfiable
	// (blocking-tier contradiction). Blocked rules contribute zero
	// combinations but do not fail compilation.
	Blocked bool
	// BlockReason is a human-readable explanation, set iff Blocked.
	BlockReason string
}

// Warning describes a non-fatal finding surfaced during validation:
// warning-tier contradictions (kept, logged) and blocking-tier
// contradictions (dropped, logged).
type Warning struct {
	RuleCode string
	Message  string
	// Blocking is true if this warning caused the rule to be excluded from
	// combination generation.
	Blocking bool
}

// Result is the output of Validate: the canonicalized rule set plus any
// non-fatal warnings accumulated along the way.
type Result struct {
	Rules    []CanonicalRule
	Warnings []Warning
}

// Validate canonicalizes and validates rawRules, returning a Result or an
// aggregated error describing every structural/semantic failure found.
// Contradictions never cause an error: warning-tier contradictions are
// logged and the rule is kept; blocking-tier contradictions are logged and
// the rule is marked Blocked (spec §4.1, §4.4 "Failure semantics").
func Validate(rawRules []ruledef.RuleDefinition) (Result, error) {
	var errs []error
	seenCodes := make(map[string]int, len(rawRules))
	result := Result{Rules: make([]CanonicalRule, 0, len(rawRules))}

	for i, raw := range rawRules {
		if raw.RuleCode == "" {
			errs = append(errs, fmt.Errorf("%w: rule=%d: rule_code is missing or empty", ErrInvalidRule, i))
			continue
		}
		if prev, dup := seenCodes[raw.RuleCode]; dup {
			errs = append(errs, fmt.Errorf("%w: rule_code=%s: also defined at rule=%d", ErrDuplicateRuleCode, raw.RuleCode, prev))
			continue
		}
		seenCodes[raw.RuleCode] = i

		if raw.ConditionsWereNull {
			errs = append(errs, fmt.Errorf("%w: rule_code=%s: conditions list is null", ErrInvalidRule, raw.RuleCode))
			continue
		}

		cr := CanonicalRule{
			RuleCode:    raw.RuleCode,
			Description: raw.Description,
			Priority:    raw.Priority,
			Enabled:     raw.Enabled,
			Tags:        raw.Tags,
			Labels:      raw.Labels,
		}

		ruleFailed := false
		for condIdx, rawCond := range raw.Conditions {
			cond, err := canonicalizeCondition(raw.RuleCode, condIdx, rawCond)
			if err != nil {
				errs = append(errs, err)
				ruleFailed = true
				continue
			}
			cr.Conditions = append(cr.Conditions, cond)
		}
		if ruleFailed {
			continue
		}

		detectContradictions(&cr, &result.Warnings)
		result.Rules = append(result.Rules, cr)
	}

	if len(errs) > 0 {
		return Result{}, aggregate(errs)
	}
	return result, nil
}

func canonicalizeCondition(ruleCode string, condIdx int, raw ruledef.Condition) (CanonicalCondition, error) {
	if raw.Field == "" {
		return CanonicalCondition{}, fmt.Errorf("%w: rule_code=%s condition=%d: field is missing", ErrInvalidRule, ruleCode, condIdx)
	}
	if raw.Operator == "" {
		return CanonicalCondition{}, fmt.Errorf("%w: rule_code=%s condition=%d: operator is missing", ErrInvalidRule, ruleCode, condIdx)
	}
	op, ok := predicate.ParseOperator(raw.Operator)
	if !ok {
		return CanonicalCondition{}, fmt.Errorf("%w: rule_code=%s condition=%d: operator %q", ErrUnsupportedOperator, ruleCode, condIdx, raw.Operator)
	}

	cond := CanonicalCondition{Field: CanonicalizeField(raw.Field), Operator: op}

	if op.RequiresValue() && (!raw.HasValue || raw.Value.IsNull()) {
		return CanonicalCondition{}, fmt.Errorf("%w: rule_code=%s condition=%d: operator %s requires a value", ErrInvalidRule, ruleCode, condIdx, op)
	}
	if !op.RequiresValue() {
		return cond, nil
	}

	value := raw.Value

	if op.IsListOperator() {
		if value.Kind != valuetype.KindList || len(value.List) == 0 {
			return CanonicalCondition{}, fmt.Errorf("%w: rule_code=%s condition=%d: operator %s requires a non-empty list value", ErrInvalidRule, ruleCode, condIdx, op)
		}
		if op == predicate.Between && len(value.List) != 2 {
			return CanonicalCondition{}, fmt.Errorf("%w: rule_code=%s condition=%d: BETWEEN requires exactly 2 values, got %d", ErrInvalidRule, ruleCode, condIdx, len(value.List))
		}
	}

	if op.IsNumeric() {
		members := value.List
		if !op.IsListOperator() {
			members = []valuetype.Value{value}
		}
		for _, m := range members {
			if !m.IsNumeric() {
				return CanonicalCondition{}, fmt.Errorf("%w: rule_code=%s condition=%d: operator %s requires numeric value(s), got %v", ErrInvalidRule, ruleCode, condIdx, op, m)
			}
		}
		// BETWEEN min > max is a blocking-tier contradiction, not a
		// structural error: detectContradictions blocks the rule instead of
		// failing compilation (spec §4.1).
	}

	if op == predicate.Regex {
		pattern, err := regexp.Compile(value.Str)
		if err != nil {
			return CanonicalCondition{}, fmt.Errorf("%w: rule_code=%s condition=%d: %v", ErrRegexSyntax, ruleCode, condIdx, err)
		}
		cond.Pattern = pattern
		cond.Value = value // preserved verbatim, not uppercased
		return cond, nil
	}

	cond.Value = canonicalizeValue(op, value)
	return cond, nil
}

// canonicalizeValue uppercases string operands for operators whose
// semantics are case-insensitive equality/containment (spec §4.1). Numeric
// and boolean operands, and REGEX pattern strings, pass through unchanged.
func canonicalizeValue(op predicate.Operator, v valuetype.Value) valuetype.Value {
	if !op.IsCaseInsensitiveEquality() {
		return v
	}
	switch v.Kind {
	case valuetype.KindString:
		return valuetype.NewString(strings.ToUpper(v.Str))
	case valuetype.KindList:
		out := make([]valuetype.Value, len(v.List))
		for i, e := range v.List {
			if e.Kind == valuetype.KindString {
				out[i] = valuetype.NewString(strings.ToUpper(e.Str))
			} else {
				out[i] = e
			}
		}
		return valuetype.NewList(out)
	default:
		return v
	}
}

func aggregate(errs []error) error {
	format := "validator: %d rule(s) failed validation:"
	args := []any{len(errs)}
	for _, e := range errs {
		format += "\n  - %w"
		args = append(args, e)
	}
	slog.Warn("rule compilation aborted", "error_count", len(errs))
	return fmt.Errorf(format, args...)
}
