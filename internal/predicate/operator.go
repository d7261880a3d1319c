package predicate

import "fmt"

// Operator is the closed set of condition/predicate operators (spec §3).
type Operator int

const (
	// EqualTo matches an attribute equal to a single value.
	EqualTo Operator = iota
	// NotEqualTo matches an attribute not equal to a single value.
	NotEqualTo
	// IsAnyOf matches an attribute equal to any member of a value list.
	IsAnyOf
	// IsNoneOf matches an attribute equal to no member of a value list.
	IsNoneOf
	// GreaterThan matches a numeric attribute strictly greater than a value.
	GreaterThan
	// GreaterThanOrEqual matches a numeric attribute greater than or equal to a value.
	GreaterThanOrEqual
	// LessThan matches a numeric attribute strictly less than a value.
	LessThan
	// LessThanOrEqual matches a numeric attribute less than or equal to a value.
	LessThanOrEqual
	// Between matches a numeric attribute inclusively within [min, max].
	Between
	// Contains matches a string attribute containing a substring.
	Contains
	// StartsWith matches a string attribute with a given prefix.
	StartsWith
	// EndsWith matches a string attribute with a given suffix.
	EndsWith
	// Regex matches a string attribute against a compiled pattern.
	Regex
	// IsNull matches an attribute that is null or absent from the event.
	IsNull
	// IsNotNull matches an attribute that is present and non-null.
	IsNotNull
)

// operatorNames is the closed, canonical wire-format name for each
// Operator, matching spec §6's rule-source JSON.
var operatorNames = [...]string{
	EqualTo:            "EQUAL_TO",
	NotEqualTo:         "NOT_EQUAL_TO",
	IsAnyOf:            "IS_ANY_OF",
	IsNoneOf:           "IS_NONE_OF",
	GreaterThan:        "GREATER_THAN",
	GreaterThanOrEqual: "GREATER_THAN_OR_EQUAL",
	LessThan:           "LESS_THAN",
	LessThanOrEqual:    "LESS_THAN_OR_EQUAL",
	Between:            "BETWEEN",
	Contains:           "CONTAINS",
	StartsWith:         "STARTS_WITH",
	EndsWith:           "ENDS_WITH",
	Regex:              "REGEX",
	IsNull:             "IS_NULL",
	IsNotNull:          "IS_NOT_NULL",
}

var operatorsByName = func() map[string]Operator {
	m := make(map[string]Operator, len(operatorNames))
	for op, name := range operatorNames {
		m[name] = Operator(op)
	}
	return m
}()

// String implements fmt.Stringer, returning the wire-format operator name.
func (o Operator) String() string {
	if int(o) < 0 || int(o) >= len(operatorNames) {
		return fmt.Sprintf("UNKNOWN_OPERATOR(%d)", int(o))
	}
	return operatorNames[o]
}

// ParseOperator resolves the wire-format operator name into an Operator. It
// returns (0, false) for anything outside the closed set, which the
// validator turns into an UnsupportedOperator error.
func ParseOperator(name string) (Operator, bool) {
	op, ok := operatorsByName[name]
	return op, ok
}

// RequiresValue reports whether operator op requires a non-null condition
// value. Only IS_NULL and IS_NOT_NULL do not (spec §4.1).
func (o Operator) RequiresValue() bool {
	return o != IsNull && o != IsNotNull
}

// IsListOperator reports whether op takes a list-typed value
// (IS_ANY_OF/IS_NONE_OF/BETWEEN).
func (o Operator) IsListOperator() bool {
	return o == IsAnyOf || o == IsNoneOf || o == Between
}

// IsNumeric reports whether op is a numeric comparison operator.
func (o Operator) IsNumeric() bool {
	switch o {
	case GreaterThan, GreaterThanOrEqual, LessThan, LessThanOrEqual, Between:
		return true
	default:
		return false
	}
}

// IsStringOperator reports whether op is a string-matching operator
// (CONTAINS/STARTS_WITH/ENDS_WITH/REGEX). The first three are
// case-insensitive; REGEX matches its verbatim pattern case-sensitively.
func (o Operator) IsStringOperator() bool {
	switch o {
	case Contains, StartsWith, EndsWith, Regex:
		return true
	default:
		return false
	}
}

// IsCaseInsensitiveEquality reports whether op participates in the
// case-insensitive uppercasing canonicalization of spec §4.1: the equality,
// list-membership and substring operators. REGEX patterns are preserved
// verbatim, and numeric and null operators have no string operand.
func (o Operator) IsCaseInsensitiveEquality() bool {
	switch o {
	case EqualTo, NotEqualTo, IsAnyOf, IsNoneOf, Contains, StartsWith, EndsWith:
		return true
	default:
		return false
	}
}
