package conversion

import (
	"math/big"
	"strings"
)

// Expression renders c as arithmetic over variable:
//
//	variable                      multiplier 1, offset 0
//	m * variable                  offset 0
//	m * variable + b              otherwise
//
// Rationals that do not terminate in decimal are written as (n/d).
// ok is false when c is not valid; no expression exists for it.
func Expression(c Conversion, variable string) (expr string, ok bool) {
	if !c.IsValid() {
		return "", false
	}

	var sb strings.Builder
	if c.multiplier.Cmp(ratOne) == 0 {
		sb.WriteString(variable)
	} else {
		sb.WriteString(literal(c.multiplier))
		sb.WriteString(" * ")
		sb.WriteString(variable)
	}

	switch c.offset.Sign() {
	case 0:
	case -1:
		sb.WriteString(" - ")
		sb.WriteString(literal(new(big.Rat).Abs(c.offset)))
	default:
		sb.WriteString(" + ")
		sb.WriteString(literal(c.offset))
	}
	return sb.String(), true
}

func literal(r *big.Rat) string {
	s := FormatRat(r)
	if strings.Contains(s, "/") {
		return "(" + s + ")"
	}
	return s
}
