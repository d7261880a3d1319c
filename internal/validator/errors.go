package validator

import "errors"

// Sentinel errors surfaced by Validate, matching the error kinds of spec §7.
// Validate wraps these with fmt.Errorf("%w: rule_code=... condition=...: ...")
// so callers can both errors.Is against the sentinel and read a precise
// message including the offending rule_code and condition index.
var (
	// ErrInvalidRule is returned for structural/semantic validation failures:
	// missing/empty/duplicate rule_code, null field/operator, a null value
	// where one is required, a malformed IS_ANY_OF/IS_NONE_OF/BETWEEN value,
	// or a non-numeric value for a numeric operator.
	ErrInvalidRule = errors.New("validator: invalid rule")

	// ErrUnsupportedOperator is returned when a condition's operator string
	// is not in the closed operator set.
	ErrUnsupportedOperator = errors.New("validator: unsupported operator")

	// ErrDuplicateRuleCode is returned when two rules in the same input
	// share a rule_code.
	ErrDuplicateRuleCode = errors.New("validator: duplicate rule_code")

	// ErrRegexSyntax is returned when a REGEX condition's pattern fails to
	// compile.
	ErrRegexSyntax = errors.New("validator: invalid regex syntax")
)
