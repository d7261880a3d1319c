package dictionary

import "testing"

func TestEncodeDenseInsertionOrder(t *testing.T) {
	d := New()

	tests := []struct {
		name    string
		input   string
		wantID  int32
		wantNew bool
	}{
		{name: "first value", input: "US", wantID: 0},
		{name: "second value", input: "CA", wantID: 1},
		{name: "repeat of first", input: "US", wantID: 0},
		{name: "case-insensitive repeat", input: "us", wantID: 0},
		{name: "third value", input: "MX", wantID: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Encode(tt.input)
			if got != tt.wantID {
				t.Fatalf("Encode(%q) = %d, want %d", tt.input, got, tt.wantID)
			}
		})
	}

	if got := d.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	d := New()
	id := d.Encode("gold")
	if got := d.Decode(id); got != "GOLD" {
		t.Fatalf("Decode(%d) = %q, want %q", id, got, "GOLD")
	}
}

func TestLookupUnknown(t *testing.T) {
	d := New()
	d.Encode("US")

	if id, ok := d.Lookup("CA"); ok || id != UnknownID {
		t.Fatalf("Lookup(unseen) = (%d, %v), want (%d, false)", id, ok, UnknownID)
	}

	id, ok := d.Lookup("us")
	if !ok || id != 0 {
		t.Fatalf("Lookup(known, case-insensitive) = (%d, %v), want (0, true)", id, ok)
	}
}

func TestDecodeOutOfRangePanics(t *testing.T) {
	d := New()
	d.Encode("US")

	defer func() {
		if recover() == nil {
			t.Fatal("Decode(out-of-range) did not panic")
		}
	}()
	d.Decode(5)
}
