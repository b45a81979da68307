package system

import (
	"github.com/sambeau/quantities/pkg/catalog"
	"github.com/sambeau/quantities/pkg/dimension"
)

// Source says how a display unit was chosen.
type Source string

const (
	SourceOverride  Source = "override"  // supplied by the caller
	SourceCanonical Source = "canonical" // dimensionless quantity, canonical unit
	SourceMatched   Source = "matched"   // unit matching the system conversion
	SourceFallback  Source = "fallback"  // no unit matched; dimension label
)

// NoneLabel is the label of a quantity that has neither a matching unit nor
// a non-zero SI exponent.
const NoneLabel = "None"

// Display is the unit a quantity is shown in under a system.
type Display struct {
	Quantity string        `json:"quantity"`
	Unit     *catalog.Unit `json:"-"`
	Label    string        `json:"label"`
	Source   Source        `json:"source"`
}

// Matches returns the units of the quantity whose conversion equals the
// system conversion within the match tolerance, most canonical first.
func (s *System) Matches(quantity string) ([]*catalog.Unit, error) {
	q, err := s.collection.Quantity(quantity)
	if err != nil {
		return nil, err
	}
	units, err := s.collection.QuantityUnits(q)
	if err != nil {
		return nil, err
	}
	v, err := s.collection.Vector(q)
	if err != nil {
		return nil, err
	}
	return s.matches(units, v), nil
}

func (s *System) matches(units []*catalog.Unit, v dimension.Vector) []*catalog.Unit {
	sys := s.Conversion(v)
	if !sys.IsDefined() {
		return nil
	}
	tolerance := s.tolerance.MatchRat()

	var matched []*catalog.Unit
	for _, u := range units {
		if s.table.ConversionOf(u.Key).Near(sys, tolerance) {
			matched = append(matched, u)
		}
	}
	catalog.SortCanonical(matched)
	return matched
}

// DisplayUnit picks the unit a quantity is displayed in:
//
//  1. a quantity without units gets the fallback label;
//  2. a non-empty override wins outright;
//  3. a dimensionless quantity uses its canonical unit;
//  4. otherwise the most canonical unit matching the system conversion;
//  5. failing that, the fallback label built from the system's base units.
func (s *System) DisplayUnit(quantity, override string) (Display, error) {
	q, err := s.collection.Quantity(quantity)
	if err != nil {
		return Display{}, err
	}
	units, err := s.collection.QuantityUnits(q)
	if err != nil {
		return Display{}, err
	}
	v, err := s.collection.Vector(q)
	if err != nil {
		return Display{}, err
	}

	d := Display{Quantity: q.Name}
	if len(units) == 0 {
		d.Label, d.Source = s.Label(v), SourceFallback
		return d, nil
	}

	if override != "" {
		d.Label, d.Source = override, SourceOverride
		if u, err := s.applicableUnit(q, override); err == nil {
			d.Unit = u
		}
		return d, nil
	}

	if q.IsNoDimensions() {
		if u, ok := catalog.Canonical(units); ok {
			d.Unit, d.Label, d.Source = u, s.collection.MemberName(u), SourceCanonical
			return d, nil
		}
	}

	for _, u := range s.matches(units, v) {
		if s.table.ConversionOf(u.Key).IsValid() {
			d.Unit, d.Label, d.Source = u, s.collection.MemberName(u), SourceMatched
			return d, nil
		}
	}

	d.Label, d.Source = s.Label(v), SourceFallback
	return d, nil
}

// Label builds the dimension label of v from the system's base unit
// symbols, e.g. "mm¹·s⁻¹". Bases without a unit use their QUDT letter.
// A vector with no SI exponents is labelled NoneLabel.
func (s *System) Label(v dimension.Vector) string {
	label := v.Label(func(b dimension.Base) string {
		u, ok := s.units[b]
		if !ok {
			return string(b.Letter())
		}
		if u.Symbol != "" {
			return u.Symbol
		}
		return s.collection.MemberName(u)
	})
	if label == "" {
		return NoneLabel
	}
	return label
}
