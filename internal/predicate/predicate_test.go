package predicate

import (
	"testing"

	"github.com/heliosrules/helios/internal/valuetype"
)

func TestPredicateEqualAndKey(t *testing.T) {
	p1 := Predicate{FieldID: 3, Op: EqualTo, Value: valuetype.NewInt(7)}
	p2 := Predicate{FieldID: 3, Op: EqualTo, Value: valuetype.NewInt(7), Weight: 99, Selectivity: 0.5}
	p3 := Predicate{FieldID: 3, Op: EqualTo, Value: valuetype.NewInt(8)}
	p4 := Predicate{FieldID: 3, Op: NotEqualTo, Value: valuetype.NewInt(7)}

	if !p1.Equal(p2) {
		t.Error("predicates differing only in Weight/Selectivity should be Equal")
	}
	if p1.Key() != p2.Key() {
		t.Error("predicates differing only in Weight/Selectivity should share a Key")
	}
	if p1.Equal(p3) {
		t.Error("predicates with different values should not be Equal")
	}
	if p1.Key() == p3.Key() {
		t.Error("predicates with different values should (almost certainly) not share a Key")
	}
	if p1.Equal(p4) {
		t.Error("predicates with different operators should not be Equal")
	}
}

func TestOperatorParseRoundTrip(t *testing.T) {
	for op := EqualTo; op <= IsNotNull; op++ {
		name := op.String()
		parsed, ok := ParseOperator(name)
		if !ok {
			t.Fatalf("ParseOperator(%q) not found", name)
		}
		if parsed != op {
			t.Fatalf("ParseOperator(%q) = %v, want %v", name, parsed, op)
		}
	}

	if _, ok := ParseOperator("NOT_A_REAL_OPERATOR"); ok {
		t.Fatal("ParseOperator should reject unknown operator names")
	}
}

func TestOperatorRequiresValue(t *testing.T) {
	if IsNull.RequiresValue() || IsNotNull.RequiresValue() {
		t.Fatal("IS_NULL/IS_NOT_NULL must not require a value")
	}
	if !EqualTo.RequiresValue() {
		t.Fatal("EQUAL_TO must require a value")
	}
}
