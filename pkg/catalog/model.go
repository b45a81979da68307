// Package catalog holds the quantity and unit records that the resolver works
// over, and loads them from JSON catalogs.
//
// A Collection is built once and then treated as read-only. Every accessor
// is safe for concurrent use after Load returns.
package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/sambeau/quantities/pkg/dimension"
)

// Link is a named reference to external documentation.
type Link struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// FactorUnit is one factor of a composite unit: a dimension raised to an
// exponent. QUDT uses fractional exponents for a handful of units.
type FactorUnit struct {
	Exponent  float64 `json:"exponent"`
	Dimension string  `json:"dimension"`
}

// Literal is a numeric literal kept as text so that it can be parsed as an
// exact rational. JSON strings and JSON numbers are both accepted.
type Literal string

func (l *Literal) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = Literal(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("numeric literal: %w", err)
	}
	*l = Literal(n.String())
	return nil
}

func (l Literal) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(l))), nil
}

// Unit is a measurement unit and its transform to the reference unit of its
// dimension.
type Unit struct {
	Key              string            `json:"key"`
	Name             string            `json:"name"`
	Description      string            `json:"description,omitempty"`
	Links            []Link            `json:"links,omitempty"`
	Symbol           string            `json:"symbol"`
	Labels           map[string]string `json:"labels,omitempty"`
	Multiplier       Literal           `json:"multiplier"`
	Offset           Literal           `json:"offset"`
	FactorUnits      []FactorUnit      `json:"factorUnits,omitempty"`
	ApplicableSystem int               `json:"applicableSystem"`
}

// Quantity is a named physical quantity and the units it may be expressed in.
type Quantity struct {
	Name               string   `json:"name"`
	Description        string   `json:"description,omitempty"`
	Links              []Link   `json:"links,omitempty"`
	IsBasic            bool     `json:"isBasic"`
	Dimension          string   `json:"dimension"`
	IsDimensionDefault bool     `json:"isDimensionDefault"`
	Units              []string `json:"units"`
	Numerator          string   `json:"numerator,omitempty"`
	Denominator        string   `json:"denominator,omitempty"`
	ExactMatch         []string `json:"exactMatch,omitempty"`
}

// UnitName is the name of the quantity's unit enumeration, e.g. "LengthUnit".
func (q *Quantity) UnitName() string {
	return q.Name + "Unit"
}

// IsNoDimensions reports whether the quantity's dimension key has all seven
// SI exponents at zero.
func (q *Quantity) IsNoDimensions() bool {
	return dimension.HasNoDimensionsKey(q.Dimension)
}

// IsRatio reports whether the quantity is declared as a ratio of two others.
func (q *Quantity) IsRatio() bool {
	return q.Numerator != "" && q.Denominator != ""
}
