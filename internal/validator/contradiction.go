package validator

import (
	"fmt"
	"log/slog"

	"github.com/heliosrules/helios/internal/predicate"
	"github.com/heliosrules/helios/internal/valuetype"
)

// fieldBounds tracks the numeric range constraints seen so far for one
// field within one rule, per spec §4.1: maxGT/maxGTE are the tightest lower
// bounds seen (from GREATER_THAN / GREATER_THAN_OR_EQUAL / BETWEEN min),
// minLT/minLTE are the tightest upper bounds (from LESS_THAN /
// LESS_THAN_OR_EQUAL / BETWEEN max).
type fieldBounds struct {
	haveGT, haveGTE bool
	maxGT, maxGTE   float64
	haveLT, haveLTE bool
	minLT, minLTE   float64
}

func (b *fieldBounds) observeLower(strict bool, v float64) {
	if strict {
		if !b.haveGT || v > b.maxGT {
			b.maxGT, b.haveGT = v, true
		}
		return
	}
	if !b.haveGTE || v > b.maxGTE {
		b.maxGTE, b.haveGTE = v, true
	}
}

func (b *fieldBounds) observeUpper(strict bool, v float64) {
	if strict {
		if !b.haveLT || v < b.minLT {
			b.minLT, b.haveLT = v, true
		}
		return
	}
	if !b.haveLTE || v < b.minLTE {
		b.minLTE, b.haveLTE = v, true
	}
}

// empty reports whether the accumulated bounds make the field's numeric
// range provably empty, with correct strictness: a rule is contradictory
// if any observed lower bound is > any observed upper bound when both are
// inclusive, or >= it when either side is strict.
func (b *fieldBounds) empty() bool {
	check := func(haveLower bool, lower float64, lowerStrict bool, haveUpper bool, upper float64, upperStrict bool) bool {
		if !haveLower || !haveUpper {
			return false
		}
		if lowerStrict || upperStrict {
			return lower >= upper
		}
		return lower > upper
	}

	return check(b.haveGT, b.maxGT, true, b.haveLT, b.minLT, true) ||
		check(b.haveGT, b.maxGT, true, b.haveLTE, b.minLTE, false) ||
		check(b.haveGTE, b.maxGTE, false, b.haveLT, b.minLT, true) ||
		check(b.haveGTE, b.maxGTE, false, b.haveLTE, b.minLTE, false)
}

// detectContradictions finds both tiers of spec §4.1 contradictions within
// a single canonicalized rule's conditions, appending Warnings and setting
// cr.Blocked/cr.BlockReason for blocking-tier findings.
func detectContradictions(cr *CanonicalRule, warnings *[]Warning) {
	equalValues := make(map[string]map[string]struct{}) // field -> set of distinct EQUAL_TO values seen
	anyOfSets := make(map[string][][]string)             // field -> list of IS_ANY_OF sorted-string sets seen
	bounds := make(map[string]*fieldBounds)

	betweenMin := func(v valuetype.Value) float64 { return v.List[0].AsFloat() }
	betweenMax := func(v valuetype.Value) float64 { return v.List[1].AsFloat() }

	for _, cond := range cr.Conditions {
		switch cond.Operator {
		case predicate.EqualTo:
			set := equalValues[cond.Field]
			if set == nil {
				set = make(map[string]struct{})
				equalValues[cond.Field] = set
			}
			set[cond.Value.String()] = struct{}{}

		case predicate.IsAnyOf:
			anyOfSets[cond.Field] = append(anyOfSets[cond.Field], cond.Value.SortedStrings())

		case predicate.GreaterThan:
			b := fieldBoundsFor(bounds, cond.Field)
			b.observeLower(true, cond.Value.AsFloat())
		case predicate.GreaterThanOrEqual:
			b := fieldBoundsFor(bounds, cond.Field)
			b.observeLower(false, cond.Value.AsFloat())
		case predicate.LessThan:
			b := fieldBoundsFor(bounds, cond.Field)
			b.observeUpper(true, cond.Value.AsFloat())
		case predicate.LessThanOrEqual:
			b := fieldBoundsFor(bounds, cond.Field)
			b.observeUpper(false, cond.Value.AsFloat())
		case predicate.Between:
			b := fieldBoundsFor(bounds, cond.Field)
			lo, hi := betweenMin(cond.Value), betweenMax(cond.Value)
			if lo > hi {
				block(cr, warnings, fmt.Sprintf("field %s: BETWEEN min %v > max %v", cond.Field, lo, hi))
				return
			}
			b.observeLower(false, lo)
			b.observeUpper(false, hi)
		}
	}

	blockingFound := false

	for field, set := range equalValues {
		if len(set) > 1 {
			warn(cr, warnings, fmt.Sprintf("field %s: multiple distinct EQUAL_TO values", field), false)
		}
	}

	for field, sets := range anyOfSets {
		if len(sets) < 2 {
			continue
		}
		if intersectAll(sets) {
			continue
		}
		warn(cr, warnings, fmt.Sprintf("field %s: multiple IS_ANY_OF sets with empty intersection", field), true)
		blockingFound = true
	}

	for field, b := range bounds {
		if b.empty() {
			warn(cr, warnings, fmt.Sprintf("field %s: numeric range is provably empty", field), true)
			blockingFound = true
		}
	}

	if blockingFound && !cr.Blocked {
		cr.Blocked = true
		cr.BlockReason = "contradictory conditions"
	}
}

func fieldBoundsFor(m map[string]*fieldBounds, field string) *fieldBounds {
	b, ok := m[field]
	if !ok {
		b = &fieldBounds{}
		m[field] = b
	}
	return b
}

// intersectAll reports whether every pair of sorted-string sets shares at
// least one member. With only two IS_ANY_OF sets on a field this is a
// simple pairwise intersection test; spec §4.1 only requires pairwise
// non-empty intersection among the sets observed on one field.
func intersectAll(sets [][]string) bool {
	for i := 0; i < len(sets); i++ {
		for j := i + 1; j < len(sets); j++ {
			if !hasIntersection(sets[i], sets[j]) {
				return false
			}
		}
	}
	return true
}

func hasIntersection(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}

func warn(cr *CanonicalRule, warnings *[]Warning, message string, blocking bool) {
	*warnings = append(*warnings, Warning{RuleCode: cr.RuleCode, Message: message, Blocking: blocking})
	slog.Warn("contradiction detected", "rule_code", cr.RuleCode, "message", message, "blocking", blocking)
}

func block(cr *CanonicalRule, warnings *[]Warning, message string) {
	cr.Blocked = true
	cr.BlockReason = message
	warn(cr, warnings, message, true)
}
