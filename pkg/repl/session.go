package repl

import (
	"fmt"
	"io"
	"slices"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/sambeau/quantities/pkg/catalog"
	"github.com/sambeau/quantities/pkg/conversion"
	"github.com/sambeau/quantities/pkg/dimension"
	qerrors "github.com/sambeau/quantities/pkg/errors"
	"github.com/sambeau/quantities/pkg/system"
)

// Session is the state of one interactive shell: a catalog, the current
// unit system and the language used for labels and numbers.
type Session struct {
	collection *catalog.Collection
	system     *system.System
	tolerance  system.Tolerance
	overrides  map[string]string
	tag        language.Tag
	printer    *message.Printer
}

// NewSession starts a session over sys. overrides maps quantity names to
// display units.
func NewSession(sys *system.System, tag language.Tag, overrides map[string]string) *Session {
	return &Session{
		collection: sys.Collection(),
		system:     sys,
		tolerance:  sys.Tolerance(),
		overrides:  overrides,
		tag:        tag,
		printer:    message.NewPrinter(tag),
	}
}

// System returns the current unit system.
func (s *Session) System() *system.System {
	return s.system
}

// Eval runs one command line and writes its output to out. quit is true for
// exit and quit.
func (s *Session) Eval(out io.Writer, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "exit", "quit":
		return true, nil
	case "help", "?":
		printHelp(out)
		return false, nil
	case "convert":
		return false, s.convert(out, args)
	case "system":
		return false, s.setSystem(out, args)
	case "quantity", "q":
		return false, s.quantity(out, args)
	case "units":
		return false, s.units(out, args)
	case "dim":
		return false, s.dim(out, strings.Join(args, ""))
	}

	hint := ""
	if match := qerrors.FindClosestMatch(cmd, commands); match != "" {
		hint = fmt.Sprintf(" (did you mean %q?)", match)
	}
	return false, fmt.Errorf("unknown command %q%s; type help", cmd, hint)
}

var commands = []string{"convert", "system", "quantity", "units", "dim", "help", "exit", "quit"}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  convert VALUE FROM TO [QUANTITY]   Convert exactly between two units")
	fmt.Fprintln(out, "  system                             Show the unit system")
	fmt.Fprintln(out, "  system Base=Unit ...               Change base units (Length=Foot)")
	fmt.Fprintln(out, "  system reset                       Use canonical units")
	fmt.Fprintln(out, "  quantity NAME                      Show conversion and display unit")
	fmt.Fprintln(out, "  units NAME                         List units with conversion expressions")
	fmt.Fprintln(out, "  dim EXPR                           Find quantities for Length/Time, Length^2 ...")
	fmt.Fprintln(out, "  help                               Show this help")
	fmt.Fprintln(out, "  exit, quit                         Leave the shell")
}

func (s *Session) convert(out io.Writer, args []string) error {
	if len(args) < 3 || len(args) > 4 {
		return fmt.Errorf("usage: convert VALUE FROM TO [QUANTITY]")
	}
	value, err := conversion.ParseRat(args[0])
	if err != nil {
		return qerrors.NewBadLiteral(args[0], err)
	}
	from, to := args[1], args[2]

	quantity := ""
	if len(args) == 4 {
		quantity = args[3]
	} else {
		q, err := s.collection.SharedQuantity(from, to)
		if err != nil {
			return err
		}
		quantity = q.Name
	}

	result, err := s.system.Convert(quantity, value, from, to)
	if err != nil {
		return err
	}
	fromUnit, _ := s.collection.Unit(from)
	toUnit, _ := s.collection.Unit(to)
	fmt.Fprintf(out, "%s %s = %s %s", conversion.FormatRat(value), fromUnit.Text(true, s.tag),
		conversion.FormatRat(result), toUnit.Text(true, s.tag))
	if !result.IsInt() {
		f, _ := result.Float64()
		fmt.Fprintf(out, " (≈ %s)", s.printer.Sprint(number.Decimal(f, number.MaxFractionDigits(6))))
	}
	fmt.Fprintln(out)
	return nil
}

func (s *Session) setSystem(out io.Writer, args []string) error {
	if len(args) == 1 && args[0] == "reset" {
		sys, err := system.New(s.collection, nil, system.WithTolerance(s.tolerance), system.WithTable(s.system.Table()))
		if err != nil {
			return err
		}
		s.system = sys
	} else if len(args) > 0 {
		mapping := s.system.Mapping()
		for _, arg := range args {
			base, unit, ok := strings.Cut(arg, "=")
			if !ok || base == "" || unit == "" {
				return fmt.Errorf("expected Base=Unit, got %q", arg)
			}
			mapping[base] = unit
		}
		sys, err := system.New(s.collection, mapping, system.WithTolerance(s.tolerance), system.WithTable(s.system.Table()))
		if err != nil {
			return err
		}
		s.system = sys
	}

	mapping := s.system.Mapping()
	for _, b := range dimension.Bases {
		u, ok := s.system.Unit(b)
		if !ok {
			continue
		}
		marker := " "
		if _, configured := mapping[b.String()]; configured {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %-26s %s (%s)\n", marker, b.String(), s.collection.MemberName(u), u.Text(true, s.tag))
	}
	return nil
}

func (s *Session) quantity(out io.Writer, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: quantity NAME")
	}
	r, err := s.system.Resolve(args[0], s.overrides[args[0]])
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\n", r.Quantity)
	fmt.Fprintf(out, "  dimension:  %s\n", r.Dimension)
	if r.Supported {
		fmt.Fprintf(out, "  conversion: %s\n", r.Conversion)
	} else {
		fmt.Fprintf(out, "  conversion: not supported\n")
	}
	fmt.Fprintf(out, "  display:    %s (%s)\n", r.Display.Label, r.Display.Source)
	if len(r.Equivalents) > 0 {
		fmt.Fprintf(out, "  same as:    %s\n", strings.Join(r.Equivalents, ", "))
	}
	return nil
}

func (s *Session) units(out io.Writer, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: units NAME")
	}
	exprs, err := s.system.Expressions(args[0])
	if err != nil {
		return err
	}
	for _, e := range exprs {
		label := s.collection.Units[e.Key].Label(s.tag)
		if !e.OK {
			fmt.Fprintf(out, "  %-24s %-20s (no conversion)\n", e.Unit, label)
			continue
		}
		fmt.Fprintf(out, "  %-24s %-20s %s\n", e.Unit, label, e.ToSystem)
	}
	return nil
}

// dim evaluates a product of quantities such as Length/Time^2 or
// Mass*Length^2/Time^2 and lists the quantities with that dimension.
func (s *Session) dim(out io.Writer, expr string) error {
	if expr == "" {
		return fmt.Errorf("usage: dim EXPR")
	}
	v, err := s.parseDimension(expr)
	if err != nil {
		return err
	}

	names := make([]string, 0)
	for _, q := range s.collection.QuantitiesFor(v) {
		names = append(names, q.Name)
	}
	fmt.Fprintf(out, "%s  %s\n", v.Key(), s.system.Label(v))
	if len(names) == 0 {
		fmt.Fprintln(out, "  no quantity has this dimension")
		return nil
	}
	fmt.Fprintf(out, "  %s\n", strings.Join(names, ", "))
	return nil
}

func (s *Session) parseDimension(expr string) (dimension.Vector, error) {
	var (
		result dimension.Vector
		op     = byte('*')
		start  = 0
	)
	for i := 0; i <= len(expr); i++ {
		if i < len(expr) && expr[i] != '*' && expr[i] != '/' {
			continue
		}
		factor, err := s.factor(expr[start:i])
		if err != nil {
			return result, err
		}
		if op == '*' {
			result = result.Mul(factor)
		} else {
			result = result.Div(factor)
		}
		if i < len(expr) {
			op = expr[i]
		}
		start = i + 1
	}
	return result, nil
}

func (s *Session) factor(term string) (dimension.Vector, error) {
	name, exp, hasExp := strings.Cut(term, "^")
	n := 1
	if hasExp {
		var err error
		if n, err = strconv.Atoi(exp); err != nil {
			return dimension.Vector{}, fmt.Errorf("bad exponent %q", exp)
		}
	}
	q, err := s.collection.Quantity(name)
	if err != nil {
		return dimension.Vector{}, err
	}
	v, err := s.collection.Vector(q)
	if err != nil {
		return dimension.Vector{}, err
	}
	return v.Scale(n), nil
}

// completions lists the words offered by tab completion.
func (s *Session) completions() []string {
	words := slices.Clone(commands)
	words = append(words, s.collection.QuantityNames()...)
	words = append(words, s.collection.MemberNames()...)
	for _, b := range dimension.SIBases {
		words = append(words, b.String()+"=")
	}
	sort.Strings(words)
	return slices.Compact(words)
}
