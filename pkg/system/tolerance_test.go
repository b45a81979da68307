package system

import (
	"math/big"
	"testing"
)

func TestTolerance(t *testing.T) {
	tol := Tolerance{
		Default:    1e-6,
		Match:      1e-9,
		Quantities: map[string]float64{"Length": 1e-3},
	}

	tests := []struct {
		quantity string
		a, b     float64
		equal    bool
		compare  int
	}{
		{"Mass", 1, 1 + 1e-7, true, 0},
		{"Mass", 1, 1 + 1e-5, false, -1},
		{"Length", 1, 1 + 1e-4, true, 0},
		{"Length", 2, 1, false, 1},
	}
	for _, tt := range tests {
		if got := tol.Equal(tt.quantity, tt.a, tt.b); got != tt.equal {
			t.Errorf("Equal(%s, %v, %v) = %v", tt.quantity, tt.a, tt.b, got)
		}
		if got := tol.Compare(tt.quantity, tt.a, tt.b); got != tt.compare {
			t.Errorf("Compare(%s, %v, %v) = %d", tt.quantity, tt.a, tt.b, got)
		}
	}

	if tol.For("Length") != 1e-3 || tol.For("Time") != 1e-6 {
		t.Error("For() mismatch")
	}
}

func TestMatchRat(t *testing.T) {
	got := DefaultTolerances().MatchRat()
	f, _ := got.Float64()
	if f != 1e-9 {
		t.Errorf("MatchRat = %v", f)
	}
	if (Tolerance{Match: -1}).MatchRat().Cmp(got) != 0 {
		t.Error("non-positive match must fall back to the default")
	}
	if (Tolerance{Match: 0.5}).MatchRat().Cmp(big.NewRat(1, 2)) != 0 {
		t.Error("MatchRat must be exact for representable values")
	}
}

func TestTable(t *testing.T) {
	c := loadCollection(t)
	table := NewTable(c)

	if table.Len() != len(c.Units) {
		t.Fatalf("Len = %d", table.Len())
	}
	id := table.ID("MilliM")
	if id == NoUnit || table.Key(id) != "MilliM" {
		t.Fatalf("ID/Key mismatch for MilliM: %d", id)
	}
	if table.Conversion(id).String() != "(0.001, 0)" {
		t.Errorf("Conversion = %s", table.Conversion(id))
	}
	if table.Distance(id) != 0.999 {
		t.Errorf("Distance = %v", table.Distance(id))
	}
	if table.ID("nope") != NoUnit || table.Key(NoUnit) != "" {
		t.Error("unknown keys must map to NoUnit")
	}
	if table.ConversionOf("nope").IsDefined() || table.ConversionOf("SMOOT").IsDefined() {
		t.Error("unknown and unparseable units have invalid conversions")
	}

	// IDs follow key order and are stable across tables.
	again := NewTable(c)
	for i := 0; i < table.Len(); i++ {
		if table.Key(UnitID(i)) != again.Key(UnitID(i)) {
			t.Fatalf("unstable id %d", i)
		}
		if i > 0 && table.Key(UnitID(i-1)) >= table.Key(UnitID(i)) {
			t.Fatalf("keys not sorted at %d", i)
		}
	}
}
