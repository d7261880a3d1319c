// Package selectivity implements the SelectivityProfile compiler stage of
// spec §4.3: a heuristic estimator combining per-field incidence with a
// fixed per-operator factor table into selectivity(field, operator, value)
// and cost(operator), from which the builder derives each predicate's
// evaluation weight. The operator factor/cost table itself is data, loaded
// from embedded YAML (see table.go) the way the teacher's config package
// loads its pre-filter rules.
package selectivity

import (
	"context"
	"log/slog"

	"github.com/heliosrules/helios/internal/predicate"
	"github.com/heliosrules/helios/internal/validator"
)

// Profile is a built SelectivityProfile: an operator cost/factor Table plus
// per-field incidence counts over a compiled rule set, exposing
// selectivity(field_id, operator, value) and cost(operator) per spec §4.3's
// contract.
type Profile struct {
	table      *Table
	totalRules int
	fieldCount map[string]int
}

// Build counts per-field incidence over canonRules (one count per rule that
// mentions a field at least once, regardless of how many conditions on that
// field the rule carries) against the given operator Table.
func Build(canonRules []validator.CanonicalRule, table *Table) *Profile {
	p := &Profile{table: table, fieldCount: make(map[string]int)}

	for _, rule := range canonRules {
		seen := make(map[string]struct{}, len(rule.Conditions))
		for _, cond := range rule.Conditions {
			if _, ok := seen[cond.Field]; ok {
				continue
			}
			seen[cond.Field] = struct{}{}
			p.fieldCount[cond.Field]++
		}
		p.totalRules++
	}

	slog.Debug("selectivity profile built", "total_rules", p.totalRules, "distinct_fields", len(p.fieldCount))
	return p
}

// BuildDefault is Build against the process-wide default operator Table,
// loading it on first use.
func BuildDefault(ctx context.Context, canonRules []validator.CanonicalRule) (*Profile, error) {
	table, err := GetDefaultTable(ctx)
	if err != nil {
		return nil, err
	}
	return Build(canonRules, table), nil
}

// fieldBase is the per-field incidence-based base selectivity,
// min(1, fc/total_rules), per spec §4.3. A field never seen during Build
// (e.g. encountered only at match time) has base selectivity 1 — the
// engine has no evidence it is rare, so it is treated as non-discriminating.
func (p *Profile) fieldBase(field string) float64 {
	if p.totalRules == 0 {
		return 1.0
	}
	fc := p.fieldCount[field]
	if fc == 0 {
		return 1.0
	}
	base := float64(fc) / float64(p.totalRules)
	if base > 1.0 {
		base = 1.0
	}
	return base
}

// Selectivity implements selectivity(field_id, operator, value) → [0,1]:
// the field's incidence-based base selectivity scaled by the operator's
// fixed factor. For IS_ANY_OF/IS_NONE_OF, listLength scales the per-member
// factor (clamped at 1.0) before multiplying by the field base; listLength
// is ignored for every other operator.
func (p *Profile) Selectivity(field string, op predicate.Operator, listLength int) float64 {
	factor := p.table.factor(op.String())
	if op == predicate.IsAnyOf || op == predicate.IsNoneOf {
		factor *= float64(listLength)
		if factor > 1.0 {
			factor = 1.0
		}
	}

	s := p.fieldBase(field) * factor
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// Cost implements cost(operator) → float ≥ 1.
func (p *Profile) Cost(op predicate.Operator) float64 {
	return p.table.cost(op.String())
}

// Weight computes (1 − selectivity) × cost, the ordering key of spec §4.3:
// lower weight evaluates earlier.
func (p *Profile) Weight(field string, op predicate.Operator, listLength int) float64 {
	s := p.Selectivity(field, op, listLength)
	return (1 - s) * p.Cost(op)
}
