package evaluator

import (
	"strings"

	"github.com/heliosrules/helios/internal/dictionary"
	"github.com/heliosrules/helios/internal/model"
	"github.com/heliosrules/helios/internal/predicate"
	"github.com/heliosrules/helios/internal/valuetype"
)

// stringIndex is the StringEvaluator of spec §4.6: CONTAINS, STARTS_WITH,
// ENDS_WITH and REGEX. CONTAINS/STARTS_WITH/ENDS_WITH operands were
// uppercased at compile time (validator.canonicalizeValue); the event
// string is uppercased once per field per call and reused across every
// predicate on that field. REGEX patterns are preserved verbatim (spec
// §4.1), so REGEX matches against the event string's original casing —
// a pattern author who wants case-insensitivity uses the `(?i)` flag.
type stringIndex struct {
	byField map[int32][]predicate.ID
}

func buildStringIndex(m *model.EngineModel) *stringIndex {
	byField := make(map[int32][]predicate.ID)
	for _, id := range m.SortedPredicateIDs() {
		p := m.Predicate(id)
		if p.Op.IsStringOperator() {
			byField[p.FieldID] = append(byField[p.FieldID], id)
		}
	}
	return &stringIndex{byField: byField}
}

func (idx *stringIndex) evaluate(m *model.EngineModel, ctx *Context, fieldID int32, v valuetype.Value) {
	ids, ok := idx.byField[fieldID]
	if !ok || v.Kind != valuetype.KindString {
		return
	}
	upper := dictionary.Canonicalize(v.Str)
	raw := v.Str
	markAndCount(ctx, m, ids, "string", func(p predicate.Predicate) bool {
		switch p.Op {
		case predicate.Contains:
			return strings.Contains(upper, p.Value.Str)
		case predicate.StartsWith:
			return strings.HasPrefix(upper, p.Value.Str)
		case predicate.EndsWith:
			return strings.HasSuffix(upper, p.Value.Str)
		case predicate.Regex:
			return p.Pattern != nil && p.Pattern.MatchString(raw)
		default:
			return false
		}
	})
}
