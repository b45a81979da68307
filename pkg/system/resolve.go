package system

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/sambeau/quantities/pkg/catalog"
	"github.com/sambeau/quantities/pkg/conversion"
)

// Resolution is everything a consumer needs about one quantity under one
// system.
type Resolution struct {
	Quantity    string                `json:"quantity"`
	Dimension   string                `json:"dimension"`
	Conversion  conversion.Conversion `json:"-"`
	Supported   bool                  `json:"supported"`
	Multiplier  string                `json:"multiplier,omitempty"`
	Offset      string                `json:"offset,omitempty"`
	Display     Display               `json:"display"`
	Units       []UnitExpression      `json:"units"`
	Equivalents []string              `json:"equivalents,omitempty"`
}

// Resolve computes the resolution of one quantity. override, when not
// empty, is the caller's display unit.
func (s *System) Resolve(quantity, override string) (Resolution, error) {
	q, err := s.collection.Quantity(quantity)
	if err != nil {
		return Resolution{}, err
	}
	v, err := s.collection.Vector(q)
	if err != nil {
		return Resolution{}, err
	}

	r := Resolution{
		Quantity:   q.Name,
		Dimension:  q.Dimension,
		Conversion: s.Conversion(v),
	}
	if r.Conversion.IsValid() {
		r.Supported = true
		r.Multiplier = conversion.FormatRat(r.Conversion.Multiplier())
		r.Offset = conversion.FormatRat(r.Conversion.Offset())
	}

	if r.Display, err = s.DisplayUnit(q.Name, override); err != nil {
		return Resolution{}, err
	}
	if r.Units, err = s.Expressions(q.Name); err != nil {
		return Resolution{}, err
	}
	r.Equivalents = s.collection.Equivalences()[q.Name]
	return r, nil
}

// ResolveQuantities resolves the named quantities, or every quantity in name
// order when names is empty. overrides maps quantity name to display unit.
func (s *System) ResolveQuantities(names []string, overrides map[string]string) ([]Resolution, error) {
	if len(names) == 0 {
		names = s.collection.QuantityNames()
	}
	out := make([]Resolution, 0, len(names))
	for _, name := range names {
		r, err := s.Resolve(name, overrides[name])
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Request describes one unit system to resolve.
type Request struct {
	Name       string
	Mapping    map[string]string
	Overrides  map[string]string
	Quantities []string
}

// Report is the outcome of one Request.
type Report struct {
	Name        string
	System      *System
	Resolutions []Resolution
}

// ResolveAll resolves several unit systems over the same collection in
// parallel. The collection and the unit table are shared read-only. Reports
// come back in request order; the first failure cancels the rest.
func ResolveAll(ctx context.Context, c *catalog.Collection, tolerance Tolerance, requests []Request) ([]Report, error) {
	table := NewTable(c)
	reports := make([]Report, len(requests))

	g, ctx := errgroup.WithContext(ctx)
	for i, req := range requests {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sys, err := New(c, req.Mapping, WithTable(table), WithTolerance(tolerance))
			if err != nil {
				return fmt.Errorf("system %q: %w", req.Name, err)
			}
			resolutions, err := sys.ResolveQuantities(req.Quantities, req.Overrides)
			if err != nil {
				return fmt.Errorf("system %q: %w", req.Name, err)
			}
			reports[i] = Report{Name: req.Name, System: sys, Resolutions: resolutions}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
