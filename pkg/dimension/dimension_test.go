package dimension

import (
	"encoding/json"
	"testing"
)

var velocity = Vector{}.With(Length, 1).With(Time, -1)

func TestExponentOf(t *testing.T) {
	tests := []struct {
		name     string
		expected int
	}{
		{"Length", 1},
		{"Time", -1},
		{"Mass", 0},
		{"Dimensionless", 0},
		{"Bogus", 0},
	}
	for _, tt := range tests {
		if got := velocity.ExponentOf(tt.name); got != tt.expected {
			t.Errorf("ExponentOf(%q) = %d, want %d", tt.name, got, tt.expected)
		}
	}
}

func TestScale(t *testing.T) {
	got := velocity.Scale(-2)
	want := Vector{}.With(Length, -2).With(Time, 2)
	if got != want {
		t.Errorf("Scale(-2) = %s, want %s", got, want)
	}
	if velocity.Exponent(Length) != 1 {
		t.Error("Scale must not modify the receiver")
	}
	if velocity.Scale(0) != (Vector{}) {
		t.Error("Scale(0) must be the zero vector")
	}
}

func TestMulDiv(t *testing.T) {
	timeV := Vector{}.With(Time, 1)
	length := Vector{}.With(Length, 1)

	if got := velocity.Mul(timeV); got != length {
		t.Errorf("velocity*time = %s, want %s", got, length)
	}
	if got := length.Div(timeV); got != velocity {
		t.Errorf("length/time = %s, want %s", got, velocity)
	}
}

func TestIsDimensionless(t *testing.T) {
	if velocity.IsDimensionless() {
		t.Error("velocity is not dimensionless")
	}
	ratio := Vector{}.With(Dimensionless, 1)
	if !ratio.IsDimensionless() {
		t.Error("dimensionless marker must be ignored")
	}
}

func TestKeyRoundTrip(t *testing.T) {
	tests := []struct {
		key      string
		expected Vector
	}{
		{"A0E0L1I0M0H0T-1D0", velocity},
		{"A0E0L0I0M0H0T0D1", Vector{}.With(Dimensionless, 1)},
		{"A0E0L2I0M1H0T-2D0", Vector{}.With(Length, 2).With(Mass, 1).With(Time, -2)},
		{"A1E-1L0I0M0H12T0D0", Vector{}.With(AmountOfSubstance, 1).With(ElectricCurrent, -1).With(ThermodynamicTemperature, 12)},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := ParseKey(tt.key)
			if err != nil {
				t.Fatalf("ParseKey: %v", err)
			}
			if got != tt.expected {
				t.Errorf("ParseKey = %v, want %v", got, tt.expected)
			}
			if got.Key() != tt.key {
				t.Errorf("Key() = %q, want %q", got.Key(), tt.key)
			}
		})
	}
}

func TestParseKeyOptionalDimensionless(t *testing.T) {
	got, err := ParseKey("A0E0L1I0M0H0T0")
	if err != nil {
		t.Fatalf("ParseKey: %v", err)
	}
	if got != (Vector{}).With(Length, 1) {
		t.Errorf("got %v", got)
	}
}

func TestParseKeyErrors(t *testing.T) {
	for _, key := range []string{
		"",
		"L1",
		"A0E0L0dot5I0M0H0T0D0",
		"A0E0L1I0M0H0T0D0X",
		"A0E0LxI0M0H0T0D0",
	} {
		if _, err := ParseKey(key); err == nil {
			t.Errorf("ParseKey(%q) expected error", key)
		}
	}
}

func TestHasNoDimensionsKey(t *testing.T) {
	if !HasNoDimensionsKey("A0E0L0I0M0H0T0D1") {
		t.Error("expected dimensionless key")
	}
	if HasNoDimensionsKey("A0E0L1I0M0H0T0D0") {
		t.Error("length is not dimensionless")
	}
}

func TestJSON(t *testing.T) {
	data, err := json.Marshal(velocity)
	if err != nil {
		t.Fatal(err)
	}
	expected := `{"AmountOfSubstance":0,"ElectricCurrent":0,"Length":1,"LuminousIntensity":0,"Mass":0,"ThermodynamicTemperature":0,"Time":-1,"Dimensionless":0}`
	if string(data) != expected {
		t.Errorf("Marshal = %s", data)
	}

	var v Vector
	if err := json.Unmarshal([]byte(`{"length":2,"Time":-1,"Extra":7}`), &v); err != nil {
		t.Fatal(err)
	}
	if v != (Vector{}).With(Length, 2).With(Time, -1) {
		t.Errorf("Unmarshal = %v", v)
	}

	if err := json.Unmarshal([]byte(`[1,2]`), &v); err == nil {
		t.Error("expected error for array input")
	}
}

func TestParseBase(t *testing.T) {
	for _, b := range Bases {
		got, ok := ParseBase(b.String())
		if !ok || got != b {
			t.Errorf("ParseBase(%q) = %v, %v", b.String(), got, ok)
		}
	}
	if _, ok := ParseBase("Length "); ok {
		t.Error("names must match exactly")
	}
	if len(SIBases) != 7 || len(Bases) != 8 {
		t.Errorf("unexpected base counts %d/%d", len(SIBases), len(Bases))
	}
}
