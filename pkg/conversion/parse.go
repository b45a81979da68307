package conversion

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseRat parses a decimal literal ("0.3048", "1e-3", "-273.15") or a
// fraction ("1/3") as an exact rational.
func ParseRat(s string) (*big.Rat, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty numeric literal")
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("invalid numeric literal %q", s)
	}
	return r, nil
}

// Parse builds a conversion from stored multiplier and offset strings.
// An empty multiplier means 1 and an empty offset means 0, matching the
// ontology's defaults for units without explicit conversion data.
func Parse(multiplier, offset string) (Conversion, error) {
	m := big.NewRat(1, 1)
	if strings.TrimSpace(multiplier) != "" {
		r, err := ParseRat(multiplier)
		if err != nil {
			return Invalid, fmt.Errorf("multiplier: %w", err)
		}
		m = r
	}

	b := new(big.Rat)
	if strings.TrimSpace(offset) != "" {
		r, err := ParseRat(offset)
		if err != nil {
			return Invalid, fmt.Errorf("offset: %w", err)
		}
		b = r
	}

	return Conversion{multiplier: m, offset: b}, nil
}

// MustParse is Parse for literals known to be well formed. It panics on
// error.
func MustParse(multiplier, offset string) Conversion {
	c, err := Parse(multiplier, offset)
	if err != nil {
		panic(err)
	}
	return c
}

// FormatRat renders r exactly: an integer, a terminating decimal, or n/d
// when the decimal expansion does not terminate.
func FormatRat(r *big.Rat) string {
	if r == nil {
		return ""
	}
	if r.IsInt() {
		return r.Num().String()
	}
	digits, ok := terminatingDigits(r.Denom())
	if !ok {
		return r.String()
	}
	return r.FloatString(digits)
}

// terminatingDigits returns the number of decimal places needed to write
// 1/d exactly, or ok=false when d has a prime factor other than 2 or 5.
func terminatingDigits(d *big.Int) (int, bool) {
	n := new(big.Int).Set(d)
	two, five := big.NewInt(2), big.NewInt(5)
	mod := new(big.Int)

	twos, fives := 0, 0
	for {
		q, m := new(big.Int).QuoRem(n, two, mod)
		if m.Sign() != 0 {
			break
		}
		n = q
		twos++
	}
	for {
		q, m := new(big.Int).QuoRem(n, five, mod)
		if m.Sign() != 0 {
			break
		}
		n = q
		fives++
	}
	if n.Cmp(big.NewInt(1)) != 0 {
		return 0, false
	}
	return max(twos, fives), true
}
