package catalog

import (
	"errors"
	"fmt"
	"math"

	"github.com/sambeau/quantities/pkg/dimension"
	qerrors "github.com/sambeau/quantities/pkg/errors"
)

// Validate checks the contract every loaded catalog must meet: each
// quantity's dimension and units exist, and a quantity whose dimension key
// is dimensionless really has zero SI exponents. All violations are
// returned together, in quantity name order.
func (c *Collection) Validate() error {
	var errs []error
	for _, name := range c.QuantityNames() {
		q := c.Quantities[name]

		v, ok := c.Dimensions[q.Dimension]
		if !ok || v == nil {
			errs = append(errs, qerrors.New("CATALOG-0003", map[string]any{
				"Quantity":  q.Name,
				"Dimension": q.Dimension,
			}))
		} else if q.IsNoDimensions() && !v.IsDimensionless() {
			errs = append(errs, qerrors.New("CATALOG-0006", map[string]any{
				"Quantity":  q.Name,
				"Dimension": q.Dimension,
			}))
		}

		for _, key := range q.Units {
			if _, ok := c.Units[key]; !ok {
				errs = append(errs, qerrors.New("CATALOG-0004", map[string]any{
					"Quantity": q.Name,
					"Unit":     key,
				}))
			}
		}
	}
	return errors.Join(errs...)
}

// Warnings lists problems that do not stop resolution: quantities without
// units, units whose literals do not parse, and SI bases with no basic
// quantity.
func (c *Collection) Warnings() []string {
	var warnings []string
	for _, name := range c.QuantityNames() {
		q := c.Quantities[name]
		if len(q.Units) == 0 {
			warnings = append(warnings, qerrors.New("CATALOG-0005", map[string]any{"Quantity": q.Name}).Error())
		}
	}

	for _, name := range c.MemberNames() {
		u, _ := c.Unit(name)
		if math.IsInf(u.DistanceToDefault(), 1) {
			warnings = append(warnings, fmt.Sprintf("unit %s has unparseable conversion (%q, %q)", u.Key, u.Multiplier, u.Offset))
		}
	}

	for _, b := range dimension.SIBases {
		if q, ok := c.Quantities[b.String()]; !ok || !q.IsBasic {
			warnings = append(warnings, qerrors.New("CATALOG-0008", map[string]any{"Base": b.String()}).Error())
		}
	}
	return warnings
}

func errNoCanonical(q *Quantity) error {
	return qerrors.New("SYSTEM-0005", map[string]any{"Quantity": q.Name})
}
