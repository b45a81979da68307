package dimension

import "testing"

func TestSuperscript(t *testing.T) {
	tests := []struct {
		input    int
		expected string
	}{
		{-12, "⁻¹²"},
		{0, "⁰"},
		{1, "¹"},
		{3, "³"},
		{1234567890, "¹²³⁴⁵⁶⁷⁸⁹⁰"},
	}
	for _, tt := range tests {
		if got := Superscript(tt.input); got != tt.expected {
			t.Errorf("Superscript(%d) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestToSuperscriptPassesOtherRunes(t *testing.T) {
	if got := ToSuperscript("x-2y"); got != "x⁻²y" {
		t.Errorf("got %q", got)
	}
}

func TestLabel(t *testing.T) {
	symbols := map[Base]string{Length: "mm", Time: "s", Mass: "kg"}
	symbol := func(b Base) string { return symbols[b] }

	tests := []struct {
		name     string
		input    Vector
		expected string
	}{
		{"velocity", Vector{}.With(Length, 1).With(Time, -1), "mm¹·s⁻¹"},
		{"force", Vector{}.With(Mass, 1).With(Length, 1).With(Time, -2), "mm¹·kg¹·s⁻²"},
		{"ignores dimensionless marker", Vector{}.With(Dimensionless, 1), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.input.Label(symbol); got != tt.expected {
				t.Errorf("Label() = %q, want %q", got, tt.expected)
			}
		})
	}
}
