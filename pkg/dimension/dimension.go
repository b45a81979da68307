// Package dimension models the physical dimension of a quantity as integer
// powers of the seven SI base dimensions plus a dimensionless marker.
package dimension

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Base identifies one component of a Vector.
type Base int

const (
	AmountOfSubstance Base = iota
	ElectricCurrent
	Length
	LuminousIntensity
	Mass
	ThermodynamicTemperature
	Time
	Dimensionless

	numBases
)

var baseNames = [numBases]string{
	"AmountOfSubstance",
	"ElectricCurrent",
	"Length",
	"LuminousIntensity",
	"Mass",
	"ThermodynamicTemperature",
	"Time",
	"Dimensionless",
}

// QUDT dimension vector letters, in Base order.
var baseLetters = [numBases]byte{'A', 'E', 'L', 'I', 'M', 'H', 'T', 'D'}

// SIBases lists the seven SI base dimensions in their fixed iteration
// order. Dimensionless is not an SI base.
var SIBases = []Base{
	AmountOfSubstance,
	ElectricCurrent,
	Length,
	LuminousIntensity,
	Mass,
	ThermodynamicTemperature,
	Time,
}

// Bases lists every component, including Dimensionless.
var Bases = append(append([]Base(nil), SIBases...), Dimensionless)

func (b Base) String() string {
	if b < 0 || b >= numBases {
		return fmt.Sprintf("Base(%d)", int(b))
	}
	return baseNames[b]
}

// Letter returns the single-letter QUDT code for b.
func (b Base) Letter() byte {
	if b < 0 || b >= numBases {
		return '?'
	}
	return baseLetters[b]
}

// ParseBase looks a base up by its symbolic name ("Length", "Time", ...).
func ParseBase(name string) (Base, bool) {
	for i, n := range baseNames {
		if n == name {
			return Base(i), true
		}
	}
	return 0, false
}

// BaseNames returns the symbolic names of all eight components.
func BaseNames() []string {
	return append([]string(nil), baseNames[:]...)
}

// Vector holds one exponent per Base. Vectors are compared with ==.
type Vector [numBases]int

// Exponent returns the exponent of b.
func (v Vector) Exponent(b Base) int {
	if b < 0 || b >= numBases {
		return 0
	}
	return v[b]
}

// ExponentOf returns the exponent for a symbolic base name. Unknown names
// have exponent zero.
func (v Vector) ExponentOf(name string) int {
	b, ok := ParseBase(name)
	if !ok {
		return 0
	}
	return v[b]
}

// With returns a copy of v with the exponent of b set to e.
func (v Vector) With(b Base, e int) Vector {
	if b >= 0 && b < numBases {
		v[b] = e
	}
	return v
}

// Scale multiplies every component by k.
func (v Vector) Scale(k int) Vector {
	for i := range v {
		v[i] *= k
	}
	return v
}

// Mul returns the dimension of a product: exponents add.
func (v Vector) Mul(other Vector) Vector {
	for i := range v {
		v[i] += other[i]
	}
	return v
}

// Div returns the dimension of a quotient: exponents subtract.
func (v Vector) Div(other Vector) Vector {
	for i := range v {
		v[i] -= other[i]
	}
	return v
}

// IsDimensionless reports whether all seven SI exponents are zero. The
// Dimensionless marker itself is ignored.
func (v Vector) IsDimensionless() bool {
	for _, b := range SIBases {
		if v[b] != 0 {
			return false
		}
	}
	return true
}

// Key renders v in QUDT form, e.g. "A0E0L1I0M0H0T-1D0".
func (v Vector) Key() string {
	var sb strings.Builder
	for i, e := range v {
		sb.WriteByte(baseLetters[i])
		sb.WriteString(strconv.Itoa(e))
	}
	return sb.String()
}

func (v Vector) String() string {
	return v.Key()
}

// ParseKey parses a QUDT dimension key. Letters must appear in canonical
// order; the "D" component may be omitted. Fractional exponents such as
// "L0dot5" are rejected.
func ParseKey(key string) (Vector, error) {
	var v Vector
	s := key
	for i, letter := range baseLetters {
		if s == "" && Base(i) == Dimensionless {
			break
		}
		if s == "" || s[0] != letter {
			return Vector{}, fmt.Errorf("dimension key %q: expected %q at offset %d", key, letter, len(key)-len(s))
		}
		s = s[1:]

		end := 0
		if end < len(s) && (s[end] == '-' || s[end] == '+') {
			end++
		}
		for end < len(s) && s[end] >= '0' && s[end] <= '9' {
			end++
		}
		n, err := strconv.Atoi(s[:end])
		if err != nil {
			return Vector{}, fmt.Errorf("dimension key %q: bad exponent for %c", key, letter)
		}
		v[i] = n
		s = s[end:]
	}
	if s != "" {
		return Vector{}, fmt.Errorf("dimension key %q: trailing %q", key, s)
	}
	return v, nil
}

// HasNoDimensionsKey reports whether a raw dimension key has all seven SI
// exponents at zero, without parsing it.
func HasNoDimensionsKey(key string) bool {
	return strings.Contains(key, "A0E0L0I0M0H0T0")
}

// MarshalJSON writes the vector as an object with one field per base.
func (v Vector) MarshalJSON() ([]byte, error) {
	// Field order follows Base so the output is stable.
	var sb strings.Builder
	sb.WriteByte('{')
	for i, e := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Quote(baseNames[i]))
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(e))
	}
	sb.WriteByte('}')
	return []byte(sb.String()), nil
}

// UnmarshalJSON accepts an object keyed by base name. Names are matched
// case-insensitively and unknown fields are ignored; missing fields are zero.
func (v *Vector) UnmarshalJSON(data []byte) error {
	var fields map[string]int
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("dimension: %w", err)
	}
	var out Vector
	for name, e := range fields {
		for i, n := range baseNames {
			if strings.EqualFold(n, name) {
				out[i] = e
			}
		}
	}
	*v = out
	return nil
}
