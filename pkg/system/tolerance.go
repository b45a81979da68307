package system

import (
	"math"
	"math/big"
)

// Default tolerances.
const (
	DefaultTolerance      = 1e-6
	DefaultMatchTolerance = 1e-9
)

// Tolerance holds the absolute tolerances used when comparing quantity
// values and when matching a unit against a system conversion. It is a
// plain value passed to the code that needs it.
type Tolerance struct {
	Default    float64            `yaml:"default" json:"default"`
	Match      float64            `yaml:"match" json:"match"`
	Quantities map[string]float64 `yaml:"quantities,omitempty" json:"quantities,omitempty"`
}

// DefaultTolerances returns the default tolerances with no per-quantity
// entries.
func DefaultTolerances() Tolerance {
	return Tolerance{Default: DefaultTolerance, Match: DefaultMatchTolerance}
}

// For returns the tolerance for a quantity, falling back to Default.
func (t Tolerance) For(quantity string) float64 {
	if v, ok := t.Quantities[quantity]; ok {
		return v
	}
	return t.Default
}

// Equal reports whether a and b are within the quantity's tolerance.
func (t Tolerance) Equal(quantity string, a, b float64) bool {
	return math.Abs(a-b) <= t.For(quantity)
}

// Compare orders a and b, treating values within tolerance as equal.
func (t Tolerance) Compare(quantity string, a, b float64) int {
	switch {
	case t.Equal(quantity, a, b):
		return 0
	case a < b:
		return -1
	default:
		return 1
	}
}

// MatchRat returns Match as an exact rational.
func (t Tolerance) MatchRat() *big.Rat {
	m := t.Match
	if m <= 0 || math.IsNaN(m) || math.IsInf(m, 0) {
		m = DefaultMatchTolerance
	}
	r := new(big.Rat)
	r.SetFloat64(m)
	return r
}
