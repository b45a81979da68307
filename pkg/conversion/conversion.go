// Package conversion implements exact affine unit transforms.
//
// A Conversion maps a value expressed in some unit onto the reference unit
// of its dimension: reference = multiplier*value + offset. Both terms are
// arbitrary-precision rationals so that composing, inverting and raising
// transforms never loses precision.
//
// Conversions are immutable values. Operations that have no mathematically
// valid result return Invalid rather than an error; callers test IsDefined
// or IsValid before using the result.
package conversion

import (
	"fmt"
	"math/big"
)

// Conversion is the affine transform x -> Multiplier*x + Offset.
// The zero value is Invalid.
type Conversion struct {
	multiplier *big.Rat
	offset     *big.Rat
}

// Invalid is the "no result" sentinel.
var Invalid = Conversion{}

var (
	ratZero = new(big.Rat)
	ratOne  = big.NewRat(1, 1)
)

// Identity returns the unit transform (1, 0).
func Identity() Conversion {
	return Conversion{multiplier: big.NewRat(1, 1), offset: new(big.Rat)}
}

// New builds a conversion from a multiplier and an offset. The arguments are
// copied. A nil argument yields Invalid.
func New(multiplier, offset *big.Rat) Conversion {
	if multiplier == nil || offset == nil {
		return Invalid
	}
	return Conversion{
		multiplier: new(big.Rat).Set(multiplier),
		offset:     new(big.Rat).Set(offset),
	}
}

// FromInts builds m/1 + b/1. Handy for tables and tests.
func FromInts(multiplier, offset int64) Conversion {
	return Conversion{multiplier: big.NewRat(multiplier, 1), offset: big.NewRat(offset, 1)}
}

// IsDefined reports whether c carries a transform at all.
func (c Conversion) IsDefined() bool {
	return c.multiplier != nil && c.offset != nil
}

// IsValid reports whether c is defined and has a non-zero multiplier.
// big.Rat values are always finite, so the infinity checks of the
// ingestion format collapse into parse failures (see Parse).
func (c Conversion) IsValid() bool {
	return c.IsDefined() && c.multiplier.Sign() != 0
}

// IsIdentity reports whether c is exactly (1, 0).
func (c Conversion) IsIdentity() bool {
	return c.IsDefined() && c.multiplier.Cmp(ratOne) == 0 && c.offset.Sign() == 0
}

// IsLinear reports whether c has a zero offset.
func (c Conversion) IsLinear() bool {
	return c.IsDefined() && c.offset.Sign() == 0
}

// Multiplier returns a copy of the multiplier, or nil when undefined.
func (c Conversion) Multiplier() *big.Rat {
	if !c.IsDefined() {
		return nil
	}
	return new(big.Rat).Set(c.multiplier)
}

// Offset returns a copy of the offset, or nil when undefined.
func (c Conversion) Offset() *big.Rat {
	if !c.IsDefined() {
		return nil
	}
	return new(big.Rat).Set(c.offset)
}

// TransformTo returns the direct map from c's unit to target's unit, given
// that both map onto the same reference:
//
//	multiplier = c.m / t.m
//	offset     = (c.b - t.b) / t.m
func (c Conversion) TransformTo(target Conversion) Conversion {
	if !c.IsDefined() || !target.IsValid() {
		return Invalid
	}

	m := new(big.Rat).Quo(c.multiplier, target.multiplier)
	b := new(big.Rat).Sub(c.offset, target.offset)
	b.Quo(b, target.multiplier)
	return Conversion{multiplier: m, offset: b}
}

// Pow raises c to an integer exponent.
//
// Exponents 0, 1 and -1 are always defined for a valid transform. Larger
// magnitudes are only defined for homogeneous transforms (zero offset) or
// a zero multiplier; an affine map with both terms non-zero has no
// meaningful power and yields Invalid.
func (c Conversion) Pow(exponent int) Conversion {
	if !c.IsDefined() {
		return Invalid
	}

	switch exponent {
	case 0:
		return Identity()
	case 1:
		return c
	case -1:
		return c.inverse()
	}

	if c.multiplier.Sign() != 0 && c.offset.Sign() != 0 {
		return Invalid
	}

	base := c
	n := exponent
	if exponent < 0 {
		base = c.inverse()
		if !base.IsDefined() {
			return Invalid
		}
		n = -exponent
	}

	return Conversion{
		multiplier: ratPow(base.multiplier, n),
		offset:     ratPow(base.offset, n),
	}
}

func (c Conversion) inverse() Conversion {
	if c.multiplier.Sign() == 0 {
		return Invalid
	}
	m := new(big.Rat).Inv(c.multiplier)
	b := new(big.Rat).Neg(c.offset)
	b.Quo(b, c.multiplier)
	return Conversion{multiplier: m, offset: b}
}

// ratPow computes r^n for n >= 1 by repeated multiplication.
func ratPow(r *big.Rat, n int) *big.Rat {
	result := new(big.Rat).Set(r)
	for i := 1; i < n; i++ {
		result.Mul(result, r)
	}
	return result
}

// Merge combines two conversions that act on different base dimensions into
// one composite transform. The result is the pairwise product of the
// multipliers and of the offsets.
//
// Two transforms that are both non-trivially affine (non-zero multiplier
// and non-zero offset) cannot be merged and yield Invalid.
func (c Conversion) Merge(other Conversion) Conversion {
	if !c.IsDefined() || !other.IsDefined() {
		return Invalid
	}
	if c.isAffine() && other.isAffine() {
		return Invalid
	}

	return Conversion{
		multiplier: new(big.Rat).Mul(c.multiplier, other.multiplier),
		offset:     new(big.Rat).Mul(c.offset, other.offset),
	}
}

func (c Conversion) isAffine() bool {
	return c.multiplier.Sign() != 0 && c.offset.Sign() != 0
}

// Apply evaluates the transform at x. ok is false when c is undefined.
func (c Conversion) Apply(x *big.Rat) (result *big.Rat, ok bool) {
	if !c.IsDefined() || x == nil {
		return nil, false
	}
	result = new(big.Rat).Mul(c.multiplier, x)
	result.Add(result, c.offset)
	return result, true
}

// Equal reports exact rational equality. Two Invalid values are equal.
func (c Conversion) Equal(other Conversion) bool {
	if !c.IsDefined() || !other.IsDefined() {
		return c.IsDefined() == other.IsDefined()
	}
	return c.multiplier.Cmp(other.multiplier) == 0 && c.offset.Cmp(other.offset) == 0
}

// Near reports whether both terms of c and other differ by at most
// tolerance (absolute). Undefined conversions are never near anything.
func (c Conversion) Near(other Conversion, tolerance *big.Rat) bool {
	if !c.IsDefined() || !other.IsDefined() {
		return false
	}
	if tolerance == nil {
		tolerance = ratZero
	}
	return absDiff(c.multiplier, other.multiplier).Cmp(tolerance) <= 0 &&
		absDiff(c.offset, other.offset).Cmp(tolerance) <= 0
}

func absDiff(a, b *big.Rat) *big.Rat {
	d := new(big.Rat).Sub(a, b)
	return d.Abs(d)
}

// Float64 returns the nearest float64 values of both terms.
func (c Conversion) Float64() (multiplier, offset float64, ok bool) {
	if !c.IsDefined() {
		return 0, 0, false
	}
	multiplier, _ = c.multiplier.Float64()
	offset, _ = c.offset.Float64()
	return multiplier, offset, true
}

// String renders "(multiplier, offset)" using exact decimal notation where
// possible, or "invalid".
func (c Conversion) String() string {
	if !c.IsDefined() {
		return "invalid"
	}
	return fmt.Sprintf("(%s, %s)", FormatRat(c.multiplier), FormatRat(c.offset))
}
