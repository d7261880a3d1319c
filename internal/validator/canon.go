package validator

import "strings"

// CanonicalizeField uppercases a field name and replaces "-" with "_", per
// spec §4.1.
func CanonicalizeField(name string) string {
	return strings.ReplaceAll(strings.ToUpper(name), "-", "_")
}
