// Package factorizer implements the IS_ANY_OF Factorizer of spec §4.2: it
// rewrites a validated rule set so that rules sharing the same
// non-IS_ANY_OF conditions and the same set of IS_ANY_OF fields are merged
// into one expansion Unit carrying the union of each field's values, with
// per-value provenance back to the original rule codes.
//
// This lets the Combination Expander (internal/expander) enumerate the
// union of IS_ANY_OF values once per group instead of once per rule,
// reducing peak transient work during expansion on large rule sets — final
// combination counts are unaffected, since the builder's structural
// interning (spec §4.4) would deduplicate the same combinations regardless.
// Match semantics, rule codes, priorities, and descriptions are preserved
// exactly (spec §4.2, testable property 6).
package factorizer

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/heliosrules/helios/internal/predicate"
	"github.com/heliosrules/helios/internal/validator"
	"github.com/heliosrules/helios/internal/valuetype"
)

// RuleMeta carries the per-rule metadata an expansion Unit must keep
// distinct even when multiple rules share a Unit's statics and IS_ANY_OF
// fields.
type RuleMeta struct {
	Priority    int
	Description string
	Tags        []string
	Labels      map[string]any
}

// AnyOfField is one IS_ANY_OF field of a Unit: the union of distinct values
// contributed by the Unit's member rules, and, in parallel, which rule
// codes "own" (originally listed) each value.
type AnyOfField struct {
	Field  string
	Values []valuetype.Value
	Owners [][]string // Owners[i] = rule codes whose own IS_ANY_OF list contained Values[i]
}

// Unit is one expansion unit: a set of static (non-IS_ANY_OF) conditions
// shared by every member rule, plus zero or more AnyOfFields whose cartesian
// product the expander enumerates once on the group's behalf. A Unit with
// exactly one member and no sharing opportunity is structurally identical
// to the original rule — factorization is purely additive/optional, never
// required for correctness (spec §9).
type Unit struct {
	Statics    []validator.CanonicalCondition
	AnyOf      []AnyOfField
	RuleCodes  []string // every rule code covered by this unit, in input order
	RuleMeta   map[string]RuleMeta
	Blocked    bool // true iff this unit's sole rule was blocked by contradiction detection
	Disabled   bool // true iff this unit's sole rule has Enabled == false
	MergeCount int  // number of original rules merged into this unit (1 = no merge occurred)
}

// FactorizeDisabled skips the grouping pass entirely: every rule becomes
// its own solo Unit, structurally identical to the original rule set (spec
// §9 "factorization is purely additive/optional, never required for
// correctness"). Compilers that want to measure or diagnose the
// deduplication contributed by factorization separately from the
// builder's own structural interning call this instead of Factorize.
func FactorizeDisabled(canonRules []validator.CanonicalRule) []Unit {
	units := make([]Unit, 0, len(canonRules))
	for _, rule := range canonRules {
		units = append(units, soloUnit(rule))
	}
	return units
}

// Factorize rewrites canonRules into expansion Units. Blocked and disabled
// rules are never merged — each becomes its own single-rule Unit, so the
// expander can skip them exactly as it would an unmerged rule.
func Factorize(canonRules []validator.CanonicalRule) []Unit {
	var units []Unit
	groups := make(map[string][]validator.CanonicalRule)
	var groupOrder []string

	for _, rule := range canonRules {
		if rule.Blocked || !rule.Enabled {
			units = append(units, soloUnit(rule))
			continue
		}

		key := signature(rule)
		if _, ok := groups[key]; !ok {
			groupOrder = append(groupOrder, key)
		}
		groups[key] = append(groups[key], rule)
	}

	for _, key := range groupOrder {
		members := groups[key]
		if len(members) == 1 {
			units = append(units, soloUnit(members[0]))
			continue
		}
		units = append(units, mergeUnit(members))
	}

	return units
}

// soloUnit wraps a single rule (blocked, disabled, or simply alone in its
// signature bucket) as a degenerate one-member Unit.
func soloUnit(rule validator.CanonicalRule) Unit {
	u := Unit{
		RuleCodes:  []string{rule.RuleCode},
		RuleMeta:   map[string]RuleMeta{rule.RuleCode: metaOf(rule)},
		Blocked:    rule.Blocked,
		Disabled:   !rule.Enabled,
		MergeCount: 1,
	}
	for _, cond := range rule.Conditions {
		if cond.Operator == predicate.IsAnyOf {
			u.AnyOf = append(u.AnyOf, AnyOfField{
				Field:  cond.Field,
				Values: cond.Value.List,
				Owners: ownersOfAll(cond.Value.List, rule.RuleCode),
			})
			continue
		}
		u.Statics = append(u.Statics, cond)
	}
	return u
}

func ownersOfAll(values []valuetype.Value, ruleCode string) [][]string {
	owners := make([][]string, len(values))
	for i := range values {
		owners[i] = []string{ruleCode}
	}
	return owners
}

func metaOf(rule validator.CanonicalRule) RuleMeta {
	return RuleMeta{Priority: rule.Priority, Description: rule.Description, Tags: rule.Tags, Labels: rule.Labels}
}

// signature computes the grouping key: the sorted, serialized non-IS_ANY_OF
// conditions plus the sorted set of IS_ANY_OF field names. Two rules with
// the same signature are candidates for merging into one Unit.
func signature(rule validator.CanonicalRule) string {
	var statics []string
	var anyOfFields []string

	for _, cond := range rule.Conditions {
		if cond.Operator == predicate.IsAnyOf {
			anyOfFields = append(anyOfFields, cond.Field)
			continue
		}
		statics = append(statics, fmt.Sprintf("%s|%s|%s", cond.Field, cond.Operator, cond.Value.String()))
	}
	sort.Strings(statics)
	sort.Strings(anyOfFields)

	return strings.Join(statics, "\x1f") + "\x1e" + strings.Join(anyOfFields, "\x1f")
}

// mergeUnit merges 2+ rules known to share a signature into one Unit,
// unioning each IS_ANY_OF field's values across members and recording, per
// value, which member rule codes originally listed it.
func mergeUnit(members []validator.CanonicalRule) Unit {
	u := Unit{
		RuleMeta:   make(map[string]RuleMeta, len(members)),
		MergeCount: len(members),
	}

	// Statics are identical across all members by construction (same
	// signature); take them from the first member.
	for _, cond := range members[0].Conditions {
		if cond.Operator != predicate.IsAnyOf {
			u.Statics = append(u.Statics, cond)
		}
	}

	fieldOrder := []string{}
	fieldIndex := make(map[string]int)
	valueIndex := make(map[string]map[string]int) // field -> valueKey -> index into that field's Values slice

	for _, member := range members {
		u.RuleCodes = append(u.RuleCodes, member.RuleCode)
		u.RuleMeta[member.RuleCode] = metaOf(member)

		for _, cond := range member.Conditions {
			if cond.Operator != predicate.IsAnyOf {
				continue
			}
			fi, ok := fieldIndex[cond.Field]
			if !ok {
				fi = len(fieldOrder)
				fieldIndex[cond.Field] = fi
				fieldOrder = append(fieldOrder, cond.Field)
				u.AnyOf = append(u.AnyOf, AnyOfField{Field: cond.Field})
				valueIndex[cond.Field] = make(map[string]int)
			}

			for _, v := range cond.Value.List {
				key := v.String()
				vi, ok := valueIndex[cond.Field][key]
				if !ok {
					vi = len(u.AnyOf[fi].Values)
					valueIndex[cond.Field][key] = vi
					u.AnyOf[fi].Values = append(u.AnyOf[fi].Values, v)
					u.AnyOf[fi].Owners = append(u.AnyOf[fi].Owners, nil)
				}
				u.AnyOf[fi].Owners[vi] = append(u.AnyOf[fi].Owners[vi], member.RuleCode)
			}
		}
	}

	slog.Debug("factorizer merged rules into shared IS_ANY_OF unit",
		"rule_codes", u.RuleCodes, "fields", fieldOrder, "merge_count", u.MergeCount)

	return u
}
