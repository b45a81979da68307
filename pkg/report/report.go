// Package report renders a unit catalog, as seen through one unit system, as
// Markdown or HTML.
package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"golang.org/x/text/language"

	"github.com/sambeau/quantities/pkg/catalog"
	"github.com/sambeau/quantities/pkg/dimension"
	"github.com/sambeau/quantities/pkg/system"
)

// Options select what goes into a report.
type Options struct {
	Title      string            // Top-level heading (default: "Quantities")
	Quantities []string          // Quantities to describe; empty means all
	Overrides  map[string]string // Quantity -> display unit override
	Locale     language.Tag      // Language of unit labels
}

// Markdown writes the report for sys as GitHub-flavored Markdown.
func Markdown(w io.Writer, sys *system.System, opts Options) error {
	resolutions, err := sys.ResolveQuantities(opts.Quantities, opts.Overrides)
	if err != nil {
		return err
	}
	c := sys.Collection()

	title := opts.Title
	if title == "" {
		title = "Quantities"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	writeSystem(&b, sys)

	for _, r := range resolutions {
		q := c.Quantities[r.Quantity]
		fmt.Fprintf(&b, "## %s\n\n", r.Quantity)
		if q.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", q.Description)
		}

		fmt.Fprintf(&b, "- Dimension: `%s`", r.Dimension)
		if v, err := c.Vector(q); err == nil && !v.IsDimensionless() {
			fmt.Fprintf(&b, " (%s)", v.Label(func(base dimension.Base) string {
				return string(base.Letter())
			}))
		}
		b.WriteString("\n")
		if q.IsBasic {
			b.WriteString("- Basic quantity\n")
		}
		if q.IsRatio() {
			fmt.Fprintf(&b, "- Ratio of %s to %s\n", q.Numerator, q.Denominator)
		}
		if r.Supported {
			fmt.Fprintf(&b, "- System conversion: `%s`\n", r.Conversion)
		} else {
			b.WriteString("- System conversion: not supported\n")
		}
		fmt.Fprintf(&b, "- Display unit: %s (%s)\n", r.Display.Label, r.Display.Source)
		if len(r.Equivalents) > 0 {
			fmt.Fprintf(&b, "- Equivalent to: %s\n", strings.Join(r.Equivalents, ", "))
		}
		for _, l := range q.Links {
			fmt.Fprintf(&b, "- [%s](%s)\n", l.Name, l.URL)
		}
		b.WriteString("\n")

		writeUnits(&b, c, r, opts.Locale)
	}

	_, err = io.WriteString(w, b.String())
	return err
}

func writeSystem(b *strings.Builder, sys *system.System) {
	keys := sys.Keys()
	if len(keys) == 0 {
		b.WriteString("Unit system: canonical units.\n\n")
		return
	}
	mapping := sys.Mapping()
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + " → " + mapping[k]
	}
	fmt.Fprintf(b, "Unit system: %s.\n\n", strings.Join(parts, ", "))
}

func writeUnits(b *strings.Builder, c *catalog.Collection, r system.Resolution, tag language.Tag) {
	if len(r.Units) == 0 {
		return
	}
	b.WriteString("| Unit | Symbol | Label | To system | From system |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, e := range r.Units {
		u := c.Units[e.Key]
		to, from := "n/a", "n/a"
		if e.OK {
			to, from = "`"+e.ToSystem+"`", "`"+e.FromSystem+"`"
		}
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s |\n",
			cell(e.Unit), cell(u.Symbol), cell(u.Label(tag)), to, from)
	}
	b.WriteString("\n")
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// HTML writes the report for sys rendered from its Markdown with goldmark.
func HTML(w io.Writer, sys *system.System, opts Options) error {
	var src bytes.Buffer
	if err := Markdown(&src, sys, opts); err != nil {
		return err
	}

	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
	if err := md.Convert(src.Bytes(), w); err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}
	return nil
}
