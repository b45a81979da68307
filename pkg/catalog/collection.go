package catalog

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/sambeau/quantities/pkg/dimension"
	qerrors "github.com/sambeau/quantities/pkg/errors"
)

// Collection is the complete set of quantities, units and dimensions. Units
// are shared by key across quantities; dimension vectors are shared by key
// across quantities with the same dimension.
type Collection struct {
	Quantities map[string]*Quantity         `json:"quantities"`
	Units      map[string]*Unit             `json:"units"`
	Dimensions map[string]*dimension.Vector `json:"dimensions"`

	once        sync.Once
	memberNames map[string]string // unit key -> member name
	byMember    map[string]string // member name -> unit key
}

// NewCollection builds a collection from already-decoded records. Nil maps
// are replaced with empty ones.
func NewCollection(quantities map[string]*Quantity, units map[string]*Unit, dimensions map[string]*dimension.Vector) *Collection {
	if quantities == nil {
		quantities = map[string]*Quantity{}
	}
	if units == nil {
		units = map[string]*Unit{}
	}
	if dimensions == nil {
		dimensions = map[string]*dimension.Vector{}
	}
	return &Collection{Quantities: quantities, Units: units, Dimensions: dimensions}
}

func (c *Collection) index() {
	c.once.Do(func() {
		counts := make(map[string]int, len(c.Units))
		for _, u := range c.Units {
			counts[u.Name]++
		}
		c.memberNames = make(map[string]string, len(c.Units))
		c.byMember = make(map[string]string, len(c.Units))
		for key, u := range c.Units {
			name := memberName(u, counts[u.Name])
			c.memberNames[key] = name
			c.byMember[name] = key
		}
	})
}

// Quantity returns the named quantity.
func (c *Collection) Quantity(name string) (*Quantity, error) {
	if q, ok := c.Quantities[name]; ok {
		return q, nil
	}
	return nil, qerrors.NewUnknownQuantity(name, c.QuantityNames())
}

// Unit returns a unit by key or by member name.
func (c *Collection) Unit(name string) (*Unit, error) {
	if u, ok := c.Units[name]; ok {
		return u, nil
	}
	c.index()
	if key, ok := c.byMember[name]; ok {
		return c.Units[key], nil
	}
	return nil, qerrors.NewUnknownUnit(name, c.MemberNames())
}

// MemberName returns the identifier-safe name of u within this collection.
func (c *Collection) MemberName(u *Unit) string {
	c.index()
	if name, ok := c.memberNames[u.Key]; ok {
		return name
	}
	return u.MemberName(c.Units)
}

// Vector returns the dimension vector of q.
func (c *Collection) Vector(q *Quantity) (dimension.Vector, error) {
	v, ok := c.Dimensions[q.Dimension]
	if !ok || v == nil {
		return dimension.Vector{}, qerrors.New("CATALOG-0003", map[string]any{
			"Quantity":  q.Name,
			"Dimension": q.Dimension,
		})
	}
	return *v, nil
}

// QuantityUnits resolves q's unit keys in declaration order.
func (c *Collection) QuantityUnits(q *Quantity) ([]*Unit, error) {
	units := make([]*Unit, 0, len(q.Units))
	for _, key := range q.Units {
		u, ok := c.Units[key]
		if !ok {
			return nil, qerrors.New("CATALOG-0004", map[string]any{
				"Quantity": q.Name,
				"Unit":     key,
			})
		}
		units = append(units, u)
	}
	return units, nil
}

// QuantityNames returns all quantity names, sorted.
func (c *Collection) QuantityNames() []string {
	names := make([]string, 0, len(c.Quantities))
	for name := range c.Quantities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MemberNames returns all unit member names, sorted.
func (c *Collection) MemberNames() []string {
	c.index()
	names := make([]string, 0, len(c.byMember))
	for name := range c.byMember {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Basic returns the basic quantities sorted by name.
func (c *Collection) Basic() []*Quantity {
	var basic []*Quantity
	for _, name := range c.QuantityNames() {
		if q := c.Quantities[name]; q.IsBasic {
			basic = append(basic, q)
		}
	}
	return basic
}

// Filter returns a collection holding the basic quantities plus the named
// ones. With no names every quantity is kept. Units and dimensions are shared
// with c, not copied.
func (c *Collection) Filter(names []string) *Collection {
	if len(names) == 0 {
		return c
	}
	kept := make(map[string]*Quantity, len(names))
	for name, q := range c.Quantities {
		if q.IsBasic || slices.Contains(names, name) {
			kept[name] = q
		}
	}
	return NewCollection(kept, c.Units, c.Dimensions)
}

// QuantitiesFor returns the quantities whose dimension equals v, sorted by
// name. Dimension-default quantities come first.
func (c *Collection) QuantitiesFor(v dimension.Vector) []*Quantity {
	var found []*Quantity
	for _, name := range c.QuantityNames() {
		q := c.Quantities[name]
		qv, ok := c.Dimensions[q.Dimension]
		if ok && qv != nil && *qv == v {
			found = append(found, q)
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].IsDimensionDefault && !found[j].IsDimensionDefault
	})
	return found
}

// SharedQuantity returns the first quantity, by name, that lists both units.
// Units may be given by key or member name.
func (c *Collection) SharedQuantity(from, to string) (*Quantity, error) {
	fu, err := c.Unit(from)
	if err != nil {
		return nil, err
	}
	tu, err := c.Unit(to)
	if err != nil {
		return nil, err
	}
	for _, name := range c.QuantityNames() {
		q := c.Quantities[name]
		if slices.Contains(q.Units, fu.Key) && slices.Contains(q.Units, tu.Key) {
			return q, nil
		}
	}
	return nil, fmt.Errorf("no quantity has both %s and %s; name one", from, to)
}
