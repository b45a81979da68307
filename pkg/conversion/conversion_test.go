package conversion

import (
	"math/big"
	"testing"
)

func rat(s string) *big.Rat {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		panic("bad rat " + s)
	}
	return r
}

func expectConversion(t *testing.T, got Conversion, multiplier, offset string) {
	t.Helper()
	if !got.IsDefined() {
		t.Fatalf("expected (%s, %s), got invalid", multiplier, offset)
	}
	want := New(rat(multiplier), rat(offset))
	if !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got)
	}
}

var samples = []Conversion{
	Identity(),
	MustParse("0.001", "0"),
	MustParse("0.3048", "0"),
	MustParse("1", "273.15"),
	MustParse("0.5555555555555556", "255.3722222222222"),
	New(big.NewRat(5, 9), big.NewRat(45967, 180)),
	MustParse("1/3", "-2"),
}

func TestIdentityTransform(t *testing.T) {
	for _, x := range samples {
		if got := Identity().TransformTo(x).TransformTo(Identity()); !got.Equal(Identity().TransformTo(x)) {
			t.Errorf("identity round trip changed %s into %s", x, got)
		}
		if got := x.TransformTo(Identity()); !got.Equal(x) {
			t.Errorf("x.TransformTo(identity) = %s, want %s", got, x)
		}
	}
}

func TestTransformToUnitIsInverse(t *testing.T) {
	for _, x := range samples {
		if got := Identity().TransformTo(x); !got.Equal(x.Pow(-1)) {
			t.Errorf("identity.TransformTo(%s) = %s, want %s", x, got, x.Pow(-1))
		}
	}
}

func TestInverseRoundTrip(t *testing.T) {
	for _, x := range samples {
		if got := x.Pow(-1).Pow(-1); !got.Equal(x) {
			t.Errorf("Pow(-1).Pow(-1) of %s = %s", x, got)
		}
	}
}

func TestTransformAssociativity(t *testing.T) {
	kilometre := MustParse("1000", "0")
	foot := MustParse("0.3048", "0")
	inch := MustParse("0.0254", "0")

	direct := kilometre.TransformTo(inch)
	viaFoot := kilometre.TransformTo(foot)
	footToInch := foot.TransformTo(inch)

	// Compose km->ft then ft->in: (x*m1 + b1)*m2 + b2.
	composedM := new(big.Rat).Mul(viaFoot.Multiplier(), footToInch.Multiplier())
	composedB := new(big.Rat).Mul(viaFoot.Offset(), footToInch.Multiplier())
	composedB.Add(composedB, footToInch.Offset())
	composed := New(composedM, composedB)

	if !composed.Equal(direct) {
		t.Errorf("km->ft->in = %s, km->in = %s", composed, direct)
	}
	expectConversion(t, direct, "5000000/127", "0")

	celsius := MustParse("1", "273.15")
	fahrenheit := New(big.NewRat(5, 9), big.NewRat(45967, 180))
	kelvin := Identity()

	cToF := celsius.TransformTo(fahrenheit)
	fToK := fahrenheit.TransformTo(kelvin)
	m := new(big.Rat).Mul(cToF.Multiplier(), fToK.Multiplier())
	b := new(big.Rat).Mul(cToF.Offset(), fToK.Multiplier())
	b.Add(b, fToK.Offset())
	if got := New(m, b); !got.Equal(celsius.TransformTo(kelvin)) {
		t.Errorf("C->F->K = %s, C->K = %s", got, celsius.TransformTo(kelvin))
	}
}

func TestTransformToCelsiusFahrenheit(t *testing.T) {
	celsius := MustParse("1", "273.15")
	fahrenheit := New(big.NewRat(5, 9), big.NewRat(45967, 180))

	c := celsius.TransformTo(fahrenheit)
	got, ok := c.Apply(big.NewRat(100, 1))
	if !ok {
		t.Fatal("apply failed")
	}
	if got.Cmp(big.NewRat(212, 1)) != 0 {
		t.Errorf("100C = %s F, want 212", got.RatString())
	}
}

func TestTransformToInvalidTarget(t *testing.T) {
	tests := []struct {
		name   string
		source Conversion
		target Conversion
	}{
		{"undefined target", Identity(), Invalid},
		{"zero multiplier target", Identity(), FromInts(0, 3)},
		{"undefined source", Invalid, Identity()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.source.TransformTo(tt.target); got.IsDefined() {
				t.Errorf("expected invalid, got %s", got)
			}
		})
	}
}

func TestPow(t *testing.T) {
	tests := []struct {
		name       string
		input      Conversion
		exponent   int
		multiplier string
		offset     string
		invalid    bool
	}{
		{"zero exponent is identity", MustParse("1", "273.15"), 0, "1", "0", false},
		{"one is unchanged", MustParse("1", "273.15"), 1, "1", "273.15", false},
		{"minus one inverts", MustParse("2", "4"), -1, "1/2", "-2", false},
		{"square linear", FromInts(2, 0), 2, "4", "0", false},
		{"cube linear", MustParse("0.1", "0"), 3, "0.001", "0", false},
		{"negative square linear", FromInts(2, 0), -2, "1/4", "0", false},
		{"negative cube millimetre", MustParse("0.001", "0"), -3, "1000000000", "0", false},
		{"square affine", MustParse("1", "273.15"), 2, "", "", true},
		{"negative square affine", MustParse("2", "1"), -2, "", "", true},
		{"square zero multiplier", FromInts(0, 3), 2, "0", "9", false},
		{"inverse zero multiplier", FromInts(0, 3), -1, "", "", true},
		{"undefined", Invalid, 2, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.input.Pow(tt.exponent)
			if tt.invalid {
				if got.IsDefined() {
					t.Errorf("expected invalid, got %s", got)
				}
				return
			}
			expectConversion(t, got, tt.multiplier, tt.offset)
		})
	}
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name       string
		left       Conversion
		right      Conversion
		multiplier string
		offset     string
		invalid    bool
	}{
		{"identity with linear", Identity(), MustParse("0.001", "0"), "0.001", "0", false},
		{"linear with linear", MustParse("0.001", "0"), MustParse("1/60", "0"), "1/60000", "0", false},
		{"identity with affine drops offset", Identity(), MustParse("1", "273.15"), "1", "0", false},
		{"affine with linear", MustParse("1", "273.15"), FromInts(2, 0), "2", "0", false},
		{"zero multiplier with affine", FromInts(0, 2), MustParse("3", "5"), "0", "10", false},
		{"affine with affine", MustParse("1", "273.15"), MustParse("2", "1"), "", "", true},
		{"undefined other", Identity(), Invalid, "", "", true},
		{"undefined receiver", Invalid, Identity(), "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.left.Merge(tt.right)
			if tt.invalid {
				if got.IsDefined() {
					t.Errorf("expected invalid, got %s", got)
				}
				return
			}
			expectConversion(t, got, tt.multiplier, tt.offset)
		})
	}
}

func TestValidity(t *testing.T) {
	if Invalid.IsValid() || Invalid.IsDefined() {
		t.Error("Invalid must be neither defined nor valid")
	}
	if FromInts(0, 0).IsValid() {
		t.Error("zero multiplier must not be valid")
	}
	if !FromInts(0, 0).IsDefined() {
		t.Error("zero multiplier is still defined")
	}
	if !Identity().IsIdentity() {
		t.Error("Identity must be identity")
	}
	if Identity().Multiplier() == nil || Invalid.Multiplier() != nil {
		t.Error("Multiplier accessor mismatch")
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	c := FromInts(2, 3)
	m := c.Multiplier()
	m.SetInt64(100)
	if c.Multiplier().Cmp(big.NewRat(2, 1)) != 0 {
		t.Error("mutating the returned multiplier changed the conversion")
	}
}

func TestNear(t *testing.T) {
	tol := big.NewRat(1, 1_000_000_000)
	a := MustParse("0.001", "0")
	b := MustParse("0.0010000000001", "0")
	c := MustParse("0.0011", "0")

	if !a.Near(b, tol) {
		t.Error("expected a near b")
	}
	if a.Near(c, tol) {
		t.Error("expected a not near c")
	}
	if a.Near(Invalid, tol) {
		t.Error("invalid is never near")
	}
}

func TestApply(t *testing.T) {
	c := MustParse("0.001", "0")
	got, ok := c.Apply(big.NewRat(5000, 1))
	if !ok || got.Cmp(big.NewRat(5, 1)) != 0 {
		t.Errorf("Apply = %v, %v", got, ok)
	}
	if _, ok := Invalid.Apply(big.NewRat(1, 1)); ok {
		t.Error("Apply on invalid must fail")
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		input    Conversion
		expected string
	}{
		{Identity(), "(1, 0)"},
		{MustParse("0.3048", "0"), "(0.3048, 0)"},
		{MustParse("1", "-273.15"), "(1, -273.15)"},
		{MustParse("1/3", "0"), "(1/3, 0)"},
		{Invalid, "invalid"},
	}
	for _, tt := range tests {
		if got := tt.input.String(); got != tt.expected {
			t.Errorf("String() = %q, want %q", got, tt.expected)
		}
	}
}
