// Package expander implements the Combination Expander of spec §4.4: for
// each factorized Unit with no blocking contradiction, it realizes IS_ANY_OF
// as a set of EQUAL_TO predicates and produces the Cartesian product of
// those with the Unit's static predicates, one Branch per conjunctive
// disjunction. Predicate interning and combination_id assignment remain the
// EngineModel Builder's job (internal/model); the expander only produces
// raw, weighted predicate sets and their owning rule codes.
package expander

import (
	"log/slog"
	"sort"

	"github.com/heliosrules/helios/internal/encoding"
	"github.com/heliosrules/helios/internal/factorizer"
	"github.com/heliosrules/helios/internal/predicate"
	"github.com/heliosrules/helios/internal/selectivity"
	"github.com/heliosrules/helios/internal/validator"
	"github.com/heliosrules/helios/internal/valuetype"
)

// Branch is one conjunctive branch produced by expansion: a set of raw
// (not yet interned) predicates, and the rule codes it is owned by. A
// Branch produced from an unmerged Unit is owned by exactly one rule code;
// a Branch produced from a merged Unit is owned by every rule that
// originally listed every IS_ANY_OF value the branch selects (spec §4.2).
type Branch struct {
	Predicates []predicate.Predicate
	RuleCodes  []string
}

// Expand produces every Branch across units. Blocked and disabled units
// contribute zero branches (spec §4.4 "for each enabled rule with no
// blocking contradiction").
func Expand(units []factorizer.Unit, dicts *encoding.Dictionaries, profile *selectivity.Profile) []Branch {
	var branches []Branch
	dropped := 0

	for _, u := range units {
		if u.Blocked || u.Disabled {
			continue
		}

		statics := buildStatics(u.Statics, dicts, profile)

		if len(u.AnyOf) == 0 {
			branches = append(branches, Branch{Predicates: statics, RuleCodes: append([]string(nil), u.RuleCodes...)})
			continue
		}

		unitBranches, unitDropped := expandAnyOf(u, statics, dicts, profile)
		branches = append(branches, unitBranches...)
		dropped += unitDropped
	}

	if dropped > 0 {
		slog.Debug("expander dropped spurious cross-field combinations", "count", dropped)
	}
	return branches
}

func buildStatics(conds []validator.CanonicalCondition, dicts *encoding.Dictionaries, profile *selectivity.Profile) []predicate.Predicate {
	preds := make([]predicate.Predicate, 0, len(conds))
	for _, cond := range conds {
		p := buildPredicate(cond.Field, cond.Operator, cond.Value, dicts, profile)
		p.Pattern = cond.Pattern
		preds = append(preds, p)
	}
	return preds
}

func buildPredicate(field string, op predicate.Operator, value valuetype.Value, dicts *encoding.Dictionaries, profile *selectivity.Profile) predicate.Predicate {
	fieldID, _ := dicts.Fields.Lookup(field)

	listLen := 0
	if value.Kind == valuetype.KindList {
		listLen = len(value.List)
	}

	return predicate.Predicate{
		FieldID:     fieldID,
		Op:          op,
		Value:       dicts.EncodeValue(op, value),
		Selectivity: profile.Selectivity(field, op, listLen),
		Weight:      profile.Weight(field, op, listLen),
	}
}

// expandAnyOf enumerates the Cartesian product of u.AnyOf's unioned value
// sets. A generated combination is only a real Branch if some rule code
// owns every value selected across all AnyOf fields — the intersection of
// each chosen value's Owners (spec §4.2); combinations with no surviving
// owner are artifacts of the union and are dropped, not emitted.
func expandAnyOf(u factorizer.Unit, statics []predicate.Predicate, dicts *encoding.Dictionaries, profile *selectivity.Profile) ([]Branch, int) {
	fields := u.AnyOf
	indices := make([]int, len(fields))
	dropped := 0
	var branches []Branch

	for {
		owners := ownersOf(fields, indices, u.RuleCodes)
		if len(owners) == 0 {
			dropped++
		} else {
			preds := make([]predicate.Predicate, len(statics), len(statics)+len(fields))
			copy(preds, statics)
			for fi, af := range fields {
				v := af.Values[indices[fi]]
				preds = append(preds, buildPredicate(af.Field, predicate.EqualTo, v, dicts, profile))
			}
			branches = append(branches, Branch{Predicates: preds, RuleCodes: owners})
		}

		if !advance(indices, fields) {
			break
		}
	}

	return branches, dropped
}

// ownersOf intersects the chosen value's Owners across every AnyOf field,
// returning the sorted, deduplicated rule codes that own the full
// combination.
func ownersOf(fields []factorizer.AnyOfField, indices []int, unitCodes []string) []string {
	var current map[string]struct{}
	for fi, af := range fields {
		ownersForValue := af.Owners[indices[fi]]
		if current == nil {
			current = make(map[string]struct{}, len(ownersForValue))
			for _, o := range ownersForValue {
				current[o] = struct{}{}
			}
			continue
		}
		next := make(map[string]struct{})
		set := make(map[string]struct{}, len(ownersForValue))
		for _, o := range ownersForValue {
			set[o] = struct{}{}
		}
		for o := range current {
			if _, ok := set[o]; ok {
				next[o] = struct{}{}
			}
		}
		current = next
		if len(current) == 0 {
			return nil
		}
	}

	out := make([]string, 0, len(current))
	for o := range current {
		out = append(out, o)
	}
	sort.Strings(out)
	return out
}

// advance increments indices as a mixed-radix odometer over each field's
// value count, returning false once every combination has been visited.
func advance(indices []int, fields []factorizer.AnyOfField) bool {
	for i := len(indices) - 1; i >= 0; i-- {
		indices[i]++
		if indices[i] < len(fields[i].Values) {
			return true
		}
		indices[i] = 0
	}
	return false
}
