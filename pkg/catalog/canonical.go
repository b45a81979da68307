package catalog

import (
	"math"
	"sort"
)

// SortCanonical orders units from most to least canonical: ascending
// DistanceToDefault, then descending ApplicableSystem. The sort is stable so
// declaration order breaks remaining ties. units is sorted in place.
func SortCanonical(units []*Unit) {
	distances := make(map[*Unit]float64, len(units))
	for _, u := range units {
		distances[u] = u.DistanceToDefault()
	}
	sort.SliceStable(units, func(i, j int) bool {
		di, dj := distances[units[i]], distances[units[j]]
		if di != dj {
			return di < dj
		}
		return units[i].ApplicableSystem > units[j].ApplicableSystem
	})
}

// Canonical returns the most canonical unit among units. Units whose
// literals do not parse are never chosen; ok is false when none remain.
func Canonical(units []*Unit) (*Unit, bool) {
	sorted := make([]*Unit, 0, len(units))
	for _, u := range units {
		if !math.IsInf(u.DistanceToDefault(), 1) {
			sorted = append(sorted, u)
		}
	}
	if len(sorted) == 0 {
		return nil, false
	}
	SortCanonical(sorted)
	return sorted[0], true
}

// CanonicalUnit returns the canonical unit of the named quantity.
func (c *Collection) CanonicalUnit(quantity string) (*Unit, error) {
	q, err := c.Quantity(quantity)
	if err != nil {
		return nil, err
	}
	units, err := c.QuantityUnits(q)
	if err != nil {
		return nil, err
	}
	u, ok := Canonical(units)
	if !ok {
		return nil, errNoCanonical(q)
	}
	return u, nil
}

// BaseDefaults maps each basic quantity name to the member name of its
// canonical unit: the unit system used when nothing is configured.
// Basic quantities without a usable unit are left out.
func (c *Collection) BaseDefaults() map[string]string {
	defaults := make(map[string]string)
	for _, q := range c.Basic() {
		u, err := c.CanonicalUnit(q.Name)
		if err != nil {
			continue
		}
		defaults[q.Name] = c.MemberName(u)
	}
	return defaults
}
