// Package encoding implements the ENCODE_DICTS compiler stage of spec §4.7:
// it walks a factorized rule set once and builds the two dictionaries the
// rest of compilation shares — field names and equality-comparable string
// values — assigning each a dense, build-stable int32 id (spec §3
// "Dictionary").
package encoding

import (
	"log/slog"

	"github.com/heliosrules/helios/internal/dictionary"
	"github.com/heliosrules/helios/internal/factorizer"
	"github.com/heliosrules/helios/internal/predicate"
	"github.com/heliosrules/helios/internal/valuetype"
)

// Dictionaries bundles the field and value dictionaries shared by every
// later compiler stage and by the frozen EngineModel (spec §3 "the two
// dictionaries").
type Dictionaries struct {
	Fields *dictionary.Dictionary
	Values *dictionary.Dictionary
}

// isDictionaryEncoded reports whether op's string operands are equality
// comparisons and therefore eligible for value-dictionary encoding.
// CONTAINS/STARTS_WITH/ENDS_WITH/REGEX match substrings or patterns against
// arbitrary event text and cannot be reduced to a fixed token id.
func isDictionaryEncoded(op predicate.Operator) bool {
	switch op {
	case predicate.EqualTo, predicate.NotEqualTo, predicate.IsAnyOf, predicate.IsNoneOf:
		return true
	default:
		return false
	}
}

// Encode builds the field and value dictionaries by registering every field
// name and every dictionary-eligible string value referenced across units.
// Values are already uppercase-canonicalized by the validator (spec §4.1);
// Encode does not re-canonicalize.
func Encode(units []factorizer.Unit) *Dictionaries {
	d := &Dictionaries{
		Fields: dictionary.New(),
		Values: dictionary.New(),
	}

	registerValue := func(op predicate.Operator, v valuetype.Value) {
		if !isDictionaryEncoded(op) {
			return
		}
		if v.Kind == valuetype.KindList {
			for _, e := range v.List {
				if e.Kind == valuetype.KindString {
					d.Values.Encode(e.Str)
				}
			}
			return
		}
		if v.Kind == valuetype.KindString {
			d.Values.Encode(v.Str)
		}
	}

	for _, u := range units {
		for _, cond := range u.Statics {
			d.Fields.Encode(cond.Field)
			registerValue(cond.Operator, cond.Value)
		}
		for _, af := range u.AnyOf {
			d.Fields.Encode(af.Field)
			for _, v := range af.Values {
				if v.Kind == valuetype.KindString {
					d.Values.Encode(v.Str)
				}
			}
		}
	}

	slog.Debug("dictionaries encoded", "fields", d.Fields.Len(), "values", d.Values.Len())
	return d
}

// EncodeValue rewrites a canonicalized condition value into the form a
// Predicate stores: dictionary ids (as KindInt/KindList-of-KindInt) for
// equality-comparable string operands, unchanged otherwise. Strings not
// found in the value dictionary encode to dictionary.UnknownID, which
// correctly never equals any event-encoded id (spec §4.5 step 1).
func (d *Dictionaries) EncodeValue(op predicate.Operator, v valuetype.Value) valuetype.Value {
	if !isDictionaryEncoded(op) {
		return v
	}
	if v.Kind == valuetype.KindList {
		out := make([]valuetype.Value, len(v.List))
		for i, e := range v.List {
			out[i] = d.encodeScalar(e)
		}
		return valuetype.NewList(out)
	}
	return d.encodeScalar(v)
}

func (d *Dictionaries) encodeScalar(v valuetype.Value) valuetype.Value {
	if v.Kind != valuetype.KindString {
		return v
	}
	id, _ := d.Values.Lookup(v.Str)
	return valuetype.NewInt(int64(id))
}
