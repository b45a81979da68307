package dimension

import (
	"strconv"
	"strings"
)

var superscripts = map[rune]rune{
	'0': '⁰',
	'1': '¹',
	'2': '²',
	'3': '³',
	'4': '⁴',
	'5': '⁵',
	'6': '⁶',
	'7': '⁷',
	'8': '⁸',
	'9': '⁹',
	'-': '⁻',
}

// Superscript renders n with Unicode superscript digits: -12 -> "⁻¹²".
func Superscript(n int) string {
	return ToSuperscript(strconv.Itoa(n))
}

// ToSuperscript maps ASCII digits and '-' to superscript code points and
// leaves every other rune unchanged.
func ToSuperscript(s string) string {
	return strings.Map(func(r rune) rune {
		if sup, ok := superscripts[r]; ok {
			return sup
		}
		return r
	}, s)
}

// Label renders the SI part of v as "symbol^exp" terms joined by a middle
// dot, in fixed base order, skipping zero exponents. symbol supplies the
// unit symbol for each base. An exponent of 1 is still written ("m¹").
func (v Vector) Label(symbol func(Base) string) string {
	var terms []string
	for _, b := range SIBases {
		e := v[b]
		if e == 0 {
			continue
		}
		terms = append(terms, symbol(b)+Superscript(e))
	}
	return strings.Join(terms, "·")
}
