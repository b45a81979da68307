package system

import (
	"sort"

	"github.com/sambeau/quantities/pkg/catalog"
	"github.com/sambeau/quantities/pkg/conversion"
)

// UnitID is a dense index into a Table.
type UnitID int32

// NoUnit is returned for keys the table does not know.
const NoUnit UnitID = -1

// Table maps every unit of a collection to its parsed conversion, indexed
// by a small integer so that hot paths never re-parse literals or compare
// strings. IDs follow sorted key order and are stable for a collection.
type Table struct {
	ids         map[string]UnitID
	keys        []string
	conversions []conversion.Conversion
	distances   []float64
}

// NewTable parses every unit of c once.
func NewTable(c *catalog.Collection) *Table {
	keys := make([]string, 0, len(c.Units))
	for key := range c.Units {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	t := &Table{
		ids:         make(map[string]UnitID, len(keys)),
		keys:        keys,
		conversions: make([]conversion.Conversion, len(keys)),
		distances:   make([]float64, len(keys)),
	}
	for i, key := range keys {
		u := c.Units[key]
		t.ids[key] = UnitID(i)
		t.conversions[i] = u.Conversion()
		t.distances[i] = u.DistanceToDefault()
	}
	return t
}

// Len returns the number of units.
func (t *Table) Len() int { return len(t.keys) }

// ID returns the ID for a unit key, or NoUnit.
func (t *Table) ID(key string) UnitID {
	if id, ok := t.ids[key]; ok {
		return id
	}
	return NoUnit
}

// Key returns the unit key for id.
func (t *Table) Key(id UnitID) string {
	if id < 0 || int(id) >= len(t.keys) {
		return ""
	}
	return t.keys[id]
}

// Conversion returns the parsed conversion for id, or conversion.Invalid.
func (t *Table) Conversion(id UnitID) conversion.Conversion {
	if id < 0 || int(id) >= len(t.conversions) {
		return conversion.Invalid
	}
	return t.conversions[id]
}

// Distance returns the unit's distance to default for id.
func (t *Table) Distance(id UnitID) float64 {
	if id < 0 || int(id) >= len(t.distances) {
		return 0
	}
	return t.distances[id]
}

// ConversionOf is Conversion by key.
func (t *Table) ConversionOf(key string) conversion.Conversion {
	return t.Conversion(t.ID(key))
}
