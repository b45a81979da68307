package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
)

func TestQuantityError_String(t *testing.T) {
	tests := []struct {
		name     string
		err      *QuantityError
		expected string
	}{
		{
			name:     "message only",
			err:      &QuantityError{Message: "something went wrong"},
			expected: "something went wrong",
		},
		{
			name:     "with file",
			err:      &QuantityError{Message: "quantity Speed has no units", File: "isq.json"},
			expected: "isq.json: quantity Speed has no units",
		},
		{
			name: "with hints",
			err: &QuantityError{
				Message: "unknown quantity: Lenght",
				Hints:   []string{"Did you mean `Length`?"},
			},
			expected: "unknown quantity: Lenght\n  Did you mean `Length`?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestQuantityError_PrettyString(t *testing.T) {
	err := New("CATALOG-0005", map[string]any{"Quantity": "Velocity"}).WithFile("isq.json")
	got := err.PrettyString()
	for _, want := range []string{"Catalog error [CATALOG-0005]", "in: isq.json", "quantity Velocity has no units"} {
		if !strings.Contains(got, want) {
			t.Errorf("PrettyString() = %q, missing %q", got, want)
		}
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		data    map[string]any
		class   ErrorClass
		message string
		hints   int
	}{
		{
			name:    "catalog template",
			code:    "CATALOG-0003",
			data:    map[string]any{"Quantity": "Velocity", "Dimension": "A0E0L1I0M0H0T-1D0"},
			class:   ClassCatalog,
			message: "quantity Velocity references unknown dimension A0E0L1I0M0H0T-1D0",
		},
		{
			name:    "system template with hint",
			code:    "SYSTEM-0004",
			data:    map[string]any{"From": "DegreeCelsius", "To": "Kelvin", "Quantity": "Temperature"},
			class:   ClassSystem,
			message: "no valid conversion between DegreeCelsius and Kelvin for Temperature",
			hints:   1,
		},
		{
			name:    "unknown code falls back to message",
			code:    "NOPE-0001",
			data:    map[string]any{"Message": "custom"},
			class:   ClassCatalog,
			message: "custom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.data)
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
			if err.Class != tt.class {
				t.Errorf("Class = %q, want %q", err.Class, tt.class)
			}
			if err.Message != tt.message {
				t.Errorf("Message = %q, want %q", err.Message, tt.message)
			}
			if len(err.Hints) != tt.hints {
				t.Errorf("Hints = %v, want %d", err.Hints, tt.hints)
			}
		})
	}
}

func TestCatalogTemplatesParse(t *testing.T) {
	for code, def := range ErrorCatalog {
		if !strings.Contains(code, "-") {
			t.Errorf("code %q has no class prefix", code)
		}
		if def.Template == "" {
			t.Errorf("%s: empty template", code)
		}
		if got := renderTemplate(def.Template, map[string]any{}); got == "" {
			t.Errorf("%s: template renders empty", code)
		}
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := NewUnknownQuantity("Lenght", []string{"Length", "Time"})
	wrapped := fmt.Errorf("resolve: %w", err)

	if !stderrors.Is(wrapped, ErrUnknownQuantity) {
		t.Error("expected errors.Is to match by code through wrapping")
	}
	if stderrors.Is(wrapped, ErrUnknownUnit) {
		t.Error("different codes must not match")
	}
	if stderrors.Is(NewSimple(ClassCatalog, "x"), NewSimple(ClassCatalog, "x")) {
		t.Error("uncoded errors only match by identity")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	err := Wrap("IO-0001", fs.ErrNotExist, map[string]any{"Path": "missing.json"})
	if !stderrors.Is(err, fs.ErrNotExist) {
		t.Error("expected cause to be reachable")
	}
	if !stderrors.Is(err, ErrRead) {
		t.Error("expected code match")
	}
	if !strings.Contains(err.Message, "missing.json") || !strings.Contains(err.Message, fs.ErrNotExist.Error()) {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestErrorf(t *testing.T) {
	err := Errorf(ClassIO, "open %s: %w", "x.json", fs.ErrPermission)
	if !stderrors.Is(err, fs.ErrPermission) {
		t.Error("expected %w cause")
	}
	if err.Message != "open x.json: "+fs.ErrPermission.Error() {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestToJSON(t *testing.T) {
	err := New("NUM-0001", map[string]any{"Literal": "abc"})
	data, jerr := err.ToJSON()
	if jerr != nil {
		t.Fatal(jerr)
	}
	var decoded map[string]any
	if jerr := json.Unmarshal(data, &decoded); jerr != nil {
		t.Fatal(jerr)
	}
	if decoded["code"] != "NUM-0001" || decoded["class"] != "numeric" {
		t.Errorf("decoded = %v", decoded)
	}
}

func TestFindClosestMatch(t *testing.T) {
	candidates := []string{"Length", "Mass", "Time", "ThermodynamicTemperature", "Millimetre", "Metre"}
	tests := []struct {
		input    string
		expected string
	}{
		{"Lenght", "Length"},
		{"mass", "Mass"},
		{"Tme", "Time"},
		{"Milimetre", "Millimetre"},
		{"ThermodynamicTemprature", "ThermodynamicTemperature"},
		{"Volume", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := FindClosestMatch(tt.input, candidates); got != tt.expected {
				t.Errorf("FindClosestMatch(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFindTopMatches(t *testing.T) {
	got := FindTopMatches("Metre", []string{"Metre", "Meter", "Metres", "Litre", "Second"}, 2)
	if len(got) != 2 {
		t.Fatalf("got %v", got)
	}
	for _, g := range got {
		if g == "Metre" {
			t.Error("exact match must be excluded")
		}
	}
	if FindTopMatches("x", nil, 3) != nil {
		t.Error("expected nil for no candidates")
	}
}

func TestNewUnknownBase(t *testing.T) {
	err := NewUnknownBase("Lenth", []string{"Length", "Time"})
	if !strings.Contains(err.Error(), "Length, Time") {
		t.Errorf("missing base list: %q", err.Error())
	}
	if !strings.Contains(err.Error(), "Did you mean `Length`?") {
		t.Errorf("missing suggestion: %q", err.Error())
	}
}
