package catalog

import (
	"math"
	"math/big"
	"strings"

	"golang.org/x/text/language"

	"github.com/sambeau/quantities/pkg/conversion"
)

// Conversion returns the unit's transform to its reference unit, or
// conversion.Invalid when the stored literals do not parse.
func (u *Unit) Conversion() conversion.Conversion {
	c, err := conversion.Parse(string(u.Multiplier), string(u.Offset))
	if err != nil {
		return conversion.Invalid
	}
	return c
}

// DistanceToDefault is |multiplier - 1| + |offset|: how far the unit is from
// being the reference unit itself. Empty literals contribute nothing.
// Unparseable literals give +Inf so that the unit is never picked as
// canonical.
func (u *Unit) DistanceToDefault() float64 {
	total := new(big.Rat)

	if s := strings.TrimSpace(string(u.Multiplier)); s != "" {
		m, err := conversion.ParseRat(s)
		if err != nil {
			return math.Inf(1)
		}
		m.Sub(m, big.NewRat(1, 1))
		total.Add(total, m.Abs(m))
	}

	if s := strings.TrimSpace(string(u.Offset)); s != "" {
		b, err := conversion.ParseRat(s)
		if err != nil {
			return math.Inf(1)
		}
		total.Add(total, b.Abs(b))
	}

	f, _ := total.Float64()
	return f
}

// MemberName returns an identifier-safe name for the unit. When another
// unit in all shares the display name, the key is appended to keep the
// name unique.
func (u *Unit) MemberName(all map[string]*Unit) string {
	count := 0
	for _, other := range all {
		if other.Name == u.Name {
			count++
		}
	}
	return memberName(u, count)
}

func memberName(u *Unit, sameName int) string {
	name := u.Name
	if sameName != 1 {
		name = name + "_" + u.Key
	}
	return safeIdentifier.Replace(name)
}

var safeIdentifier = strings.NewReplacer(
	"(", "_",
	"-", "_",
	")", "_",
	",", "",
	".", "",
	"°", "",
)

// Label returns the unit's label for tag: the exact tag first, then its base
// language, then the display name.
func (u *Unit) Label(tag language.Tag) string {
	if len(u.Labels) == 0 || tag == language.Und {
		return u.Name
	}

	want := tag.String()
	for key, label := range u.Labels {
		if strings.EqualFold(key, want) {
			return label
		}
	}

	base, _ := tag.Base()
	for key, label := range u.Labels {
		if strings.EqualFold(key, base.String()) {
			return label
		}
	}

	return u.Name
}

// Text returns the symbol when symbol is true, otherwise the localized label.
// Units without a symbol fall back to the label.
func (u *Unit) Text(symbol bool, tag language.Tag) string {
	if symbol && u.Symbol != "" {
		return u.Symbol
	}
	return u.Label(tag)
}
