// Package system resolves quantities against a unit system: a choice of
// unit for each base dimension.
//
// The system conversion of a quantity maps a value expressed in the
// system's composite unit (for velocity under {Length: Millimetre,
// Time: Second}, millimetres per second) onto the quantity's reference
// unit. It is built by raising each chosen base unit's conversion to the
// quantity's exponent for that base and merging the results.
package system

import (
	"maps"
	"math/big"
	"slices"
	"sort"

	"github.com/sambeau/quantities/pkg/catalog"
	"github.com/sambeau/quantities/pkg/conversion"
	"github.com/sambeau/quantities/pkg/dimension"
	qerrors "github.com/sambeau/quantities/pkg/errors"
)

// System is a resolved unit system over one collection. It is read-only
// after New and safe for concurrent use.
type System struct {
	collection *catalog.Collection
	table      *Table
	tolerance  Tolerance

	mapping map[string]string // as configured
	keys    []dimension.Base  // configured bases, in base order
	units   map[dimension.Base]*catalog.Unit
}

// Option configures a System.
type Option func(*System)

// WithTolerance sets the tolerances used by the system.
func WithTolerance(t Tolerance) Option {
	return func(s *System) { s.tolerance = t }
}

// WithTable reuses a table built for the same collection.
func WithTable(t *Table) Option {
	return func(s *System) { s.table = t }
}

// New resolves mapping (base dimension name -> unit member name or key)
// against c. Each configured base must name a basic quantity and the unit
// must be applicable to it. Bases left out of the mapping use the basic
// quantity's canonical unit for display, but do not take part in system
// conversions.
func New(c *catalog.Collection, mapping map[string]string, opts ...Option) (*System, error) {
	s := &System{
		collection: c,
		tolerance:  DefaultTolerances(),
		mapping:    maps.Clone(mapping),
		units:      make(map[dimension.Base]*catalog.Unit),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.table == nil {
		s.table = NewTable(c)
	}
	if s.mapping == nil {
		s.mapping = map[string]string{}
	}

	for _, key := range slices.Sorted(maps.Keys(s.mapping)) {
		unitName := s.mapping[key]
		base, ok := dimension.ParseBase(key)
		if !ok {
			return nil, qerrors.NewUnknownBase(key, dimension.BaseNames())
		}
		q, ok := c.Quantities[key]
		if !ok || !q.IsBasic {
			return nil, qerrors.New("SYSTEM-0003", map[string]any{"Name": key})
		}
		u, err := s.applicableUnit(q, unitName)
		if err != nil {
			return nil, err
		}
		s.units[base] = u
		s.keys = append(s.keys, base)
	}
	sort.Slice(s.keys, func(i, j int) bool { return s.keys[i] < s.keys[j] })

	for _, base := range dimension.Bases {
		if _, ok := s.units[base]; ok {
			continue
		}
		q, ok := c.Quantities[base.String()]
		if !ok {
			continue
		}
		if u, err := c.CanonicalUnit(q.Name); err == nil {
			s.units[base] = u
		}
	}
	return s, nil
}

// applicableUnit finds name among q's units, by member name or key.
func (s *System) applicableUnit(q *catalog.Quantity, name string) (*catalog.Unit, error) {
	units, err := s.collection.QuantityUnits(q)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(units))
	for _, u := range units {
		member := s.collection.MemberName(u)
		if member == name || u.Key == name {
			return u, nil
		}
		names = append(names, member)
	}
	return nil, qerrors.NewNotApplicable(name, q.Name, names)
}

// Collection returns the collection the system was built over.
func (s *System) Collection() *catalog.Collection { return s.collection }

// Table returns the system's unit table.
func (s *System) Table() *Table { return s.table }

// Tolerance returns the system's tolerances.
func (s *System) Tolerance() Tolerance { return s.tolerance }

// Keys returns the configured base dimension names in base order.
func (s *System) Keys() []string {
	keys := make([]string, len(s.keys))
	for i, b := range s.keys {
		keys[i] = b.String()
	}
	return keys
}

// Mapping returns a copy of the configured mapping.
func (s *System) Mapping() map[string]string {
	return maps.Clone(s.mapping)
}

// Unit returns the unit used for a base dimension: the configured one, or
// the basic quantity's canonical unit.
func (s *System) Unit(b dimension.Base) (*catalog.Unit, bool) {
	u, ok := s.units[b]
	return u, ok
}

// Conversion composes the system conversion for a dimension vector. The
// result is conversion.Invalid when an affine base unit would have to be
// raised to a power other than 0, 1 or -1, or merged with another affine
// unit.
func (s *System) Conversion(v dimension.Vector) conversion.Conversion {
	result := conversion.Identity()
	for _, b := range s.keys {
		c := s.table.ConversionOf(s.units[b].Key)
		result = result.Merge(c.Pow(v.Exponent(b)))
		if !result.IsDefined() {
			return conversion.Invalid
		}
	}
	return result
}

// QuantityConversion returns the system conversion for a named quantity.
func (s *System) QuantityConversion(quantity string) (conversion.Conversion, error) {
	q, err := s.collection.Quantity(quantity)
	if err != nil {
		return conversion.Invalid, err
	}
	v, err := s.collection.Vector(q)
	if err != nil {
		return conversion.Invalid, err
	}
	return s.Conversion(v), nil
}

// UnitToSystem returns the transform from unit to the system unit of the
// quantity.
func (s *System) UnitToSystem(quantity, unit string) (conversion.Conversion, error) {
	sys, u, err := s.quantityUnit(quantity, unit)
	if err != nil {
		return conversion.Invalid, err
	}
	return s.table.ConversionOf(u.Key).TransformTo(sys), nil
}

// SystemToUnit returns the transform from the system unit of the quantity to
// unit.
func (s *System) SystemToUnit(quantity, unit string) (conversion.Conversion, error) {
	sys, u, err := s.quantityUnit(quantity, unit)
	if err != nil {
		return conversion.Invalid, err
	}
	return sys.TransformTo(s.table.ConversionOf(u.Key)), nil
}

func (s *System) quantityUnit(quantity, unit string) (conversion.Conversion, *catalog.Unit, error) {
	q, err := s.collection.Quantity(quantity)
	if err != nil {
		return conversion.Invalid, nil, err
	}
	u, err := s.applicableUnit(q, unit)
	if err != nil {
		return conversion.Invalid, nil, err
	}
	v, err := s.collection.Vector(q)
	if err != nil {
		return conversion.Invalid, nil, err
	}
	return s.Conversion(v), u, nil
}

// UnitExpression holds the generated arithmetic between one unit and the
// system unit. OK is false when no valid transform exists; the expressions
// are then empty and the unit pair must not be offered.
type UnitExpression struct {
	Unit       string `json:"unit"`
	Key        string `json:"key"`
	ToSystem   string `json:"toSystem,omitempty"`
	FromSystem string `json:"fromSystem,omitempty"`
	OK         bool   `json:"ok"`
}

// Expressions renders, for each unit of the quantity in declaration order,
// the unit->system expression over "value" and the system->unit
// expression over "Value".
func (s *System) Expressions(quantity string) ([]UnitExpression, error) {
	q, err := s.collection.Quantity(quantity)
	if err != nil {
		return nil, err
	}
	v, err := s.collection.Vector(q)
	if err != nil {
		return nil, err
	}
	units, err := s.collection.QuantityUnits(q)
	if err != nil {
		return nil, err
	}

	sys := s.Conversion(v)
	out := make([]UnitExpression, 0, len(units))
	for _, u := range units {
		c := s.table.ConversionOf(u.Key)
		e := UnitExpression{Unit: s.collection.MemberName(u), Key: u.Key}

		to, okTo := conversion.Expression(c.TransformTo(sys), "value")
		from, okFrom := conversion.Expression(sys.TransformTo(c), "Value")
		if okTo && okFrom {
			e.ToSystem, e.FromSystem, e.OK = to, from, true
		}
		out = append(out, e)
	}
	return out, nil
}

// Convert converts value of quantity from one applicable unit to another,
// passing through the system unit. Both units may be given by member name
// or key.
func (s *System) Convert(quantity string, value *big.Rat, from, to string) (*big.Rat, error) {
	toSystem, err := s.UnitToSystem(quantity, from)
	if err != nil {
		return nil, err
	}
	fromSystem, err := s.SystemToUnit(quantity, to)
	if err != nil {
		return nil, err
	}

	inSystem, ok := toSystem.Apply(value)
	if ok {
		var result *big.Rat
		if result, ok = fromSystem.Apply(inSystem); ok {
			return result, nil
		}
	}
	return nil, qerrors.New("SYSTEM-0004", map[string]any{
		"From":     from,
		"To":       to,
		"Quantity": quantity,
	})
}
