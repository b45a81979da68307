// Package errors provides structured error types for the quantities tools.
//
// This package defines QuantityError, a single error type for catalog
// contract violations, unit system configuration problems and the I/O and
// storage failures around them. Errors are built from a catalog of codes
// with templated messages and hints so that the CLI, the REPL and JSON
// output all render them the same way.
//
// Invalid conversions are not errors; they are conversion.Invalid values.
package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/agnivade/levenshtein"
)

// ErrorClass categorizes errors for filtering and templating.
type ErrorClass string

const (
	ClassCatalog  ErrorClass = "catalog"  // Malformed or inconsistent catalog data
	ClassSystem   ErrorClass = "system"   // Unit system configuration
	ClassNumeric  ErrorClass = "numeric"  // Numeric literals
	ClassIO       ErrorClass = "io"       // File operations
	ClassDatabase ErrorClass = "database" // Store operations
	ClassConfig   ErrorClass = "config"   // Configuration
)

// QuantityError represents any error raised outside the pure algebra.
type QuantityError struct {
	Class   ErrorClass     `json:"class"`           // Error category
	Code    string         `json:"code"`            // Error code (e.g., "CATALOG-0001")
	Message string         `json:"message"`         // Human-readable message
	Hints   []string       `json:"hints,omitempty"` // Suggestions for fixing
	File    string         `json:"file,omitempty"`  // Catalog or config path (if known)
	Data    map[string]any `json:"data,omitempty"`  // Template variables
	Cause   error          `json:"-"`               // Underlying error, if any
}

// Error implements the error interface.
func (e *QuantityError) Error() string {
	return e.String()
}

// String returns a formatted string representation of the error.
func (e *QuantityError) String() string {
	var sb strings.Builder

	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteString(": ")
	}

	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// PrettyString returns a multi-line formatted string for display.
func (e *QuantityError) PrettyString() string {
	var sb strings.Builder

	switch e.Class {
	case ClassCatalog:
		sb.WriteString("Catalog error")
	case ClassSystem:
		sb.WriteString("Unit system error")
	case ClassConfig:
		sb.WriteString("Configuration error")
	default:
		sb.WriteString("Error")
	}
	if e.Code != "" {
		sb.WriteString(" [")
		sb.WriteString(e.Code)
		sb.WriteString("]")
	}

	if e.File != "" {
		sb.WriteString(":\n  in: ")
		sb.WriteString(e.File)
		sb.WriteString("\n  ")
	} else {
		sb.WriteString(":\n  ")
	}

	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *QuantityError) Unwrap() error {
	return e.Cause
}

// Is matches another *QuantityError by code, so sentinel values such as
// ErrUnknownQuantity can be compared with errors.Is.
func (e *QuantityError) Is(target error) bool {
	var other *QuantityError
	if !stderrors.As(target, &other) {
		return false
	}
	return other.Code != "" && other.Code == e.Code
}

// ToJSON returns the error as JSON bytes.
func (e *QuantityError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// WithFile returns a copy of the error with the file path set.
func (e *QuantityError) WithFile(file string) *QuantityError {
	copy := *e
	copy.File = file
	return &copy
}

// WithCause returns a copy of the error wrapping cause.
func (e *QuantityError) WithCause(cause error) *QuantityError {
	copy := *e
	copy.Cause = cause
	return &copy
}

// ErrorDef defines an error in the catalog.
type ErrorDef struct {
	Class    ErrorClass // Error category
	Template string     // Message template with {{.placeholders}}
	Hints    []string   // Hint templates (may use {{.placeholders}})
}

// ErrorCatalog maps error codes to their definitions.
var ErrorCatalog = map[string]ErrorDef{
	// ========================================
	// Catalog errors (CATALOG-0xxx)
	// ========================================
	"CATALOG-0001": {
		Class:    ClassCatalog,
		Template: "unknown quantity: {{.Name}}",
		// Hint "Did you mean `X`?" added dynamically by fuzzy matching
	},
	"CATALOG-0002": {
		Class:    ClassCatalog,
		Template: "unknown unit: {{.Name}}",
	},
	"CATALOG-0003": {
		Class:    ClassCatalog,
		Template: "quantity {{.Quantity}} references unknown dimension {{.Dimension}}",
	},
	"CATALOG-0004": {
		Class:    ClassCatalog,
		Template: "quantity {{.Quantity}} references unknown unit {{.Unit}}",
	},
	"CATALOG-0005": {
		Class:    ClassCatalog,
		Template: "quantity {{.Quantity}} has no units",
	},
	"CATALOG-0006": {
		Class:    ClassCatalog,
		Template: "quantity {{.Quantity}} is dimensionless by key but dimension {{.Dimension}} has non-zero SI exponents",
	},
	"CATALOG-0007": {
		Class:    ClassCatalog,
		Template: "failed to decode catalog: {{.GoError}}",
		Hints:    []string{"catalogs are JSON objects with quantities, units and dimensions"},
	},
	"CATALOG-0008": {
		Class:    ClassCatalog,
		Template: "no basic quantity for base dimension {{.Base}}",
	},

	// ========================================
	// Unit system errors (SYSTEM-0xxx)
	// ========================================
	"SYSTEM-0001": {
		Class:    ClassSystem,
		Template: "unknown base dimension: {{.Name}}",
		Hints:    []string{"base dimensions are {{.Bases}}"},
	},
	"SYSTEM-0002": {
		Class:    ClassSystem,
		Template: "unit {{.Unit}} is not applicable to {{.Quantity}}",
	},
	"SYSTEM-0003": {
		Class:    ClassSystem,
		Template: "no basic quantity named {{.Name}}",
	},
	"SYSTEM-0004": {
		Class:    ClassSystem,
		Template: "no valid conversion between {{.From}} and {{.To}} for {{.Quantity}}",
		Hints:    []string{"affine units (such as temperature scales) cannot be raised to powers or combined"},
	},
	"SYSTEM-0005": {
		Class:    ClassSystem,
		Template: "quantity {{.Quantity}} has no unit with a usable conversion",
	},

	// ========================================
	// Numeric errors (NUM-0xxx)
	// ========================================
	"NUM-0001": {
		Class:    ClassNumeric,
		Template: "invalid numeric literal '{{.Literal}}'",
		Hints:    []string{"use a decimal such as 0.3048, an exponent such as 1e-3, or a fraction such as 1/3"},
	},

	// ========================================
	// I/O errors (IO-0xxx)
	// ========================================
	"IO-0001": {
		Class:    ClassIO,
		Template: "failed to read '{{.Path}}': {{.GoError}}",
	},
	"IO-0002": {
		Class:    ClassIO,
		Template: "failed to watch '{{.Path}}': {{.GoError}}",
	},
	"IO-0003": {
		Class:    ClassIO,
		Template: "unsupported compression for '{{.Path}}'",
		Hints:    []string{"supported extensions are .json, .json.gz and .json.zst"},
	},

	// ========================================
	// Database errors (DB-0xxx)
	// ========================================
	"DB-0001": {
		Class:    ClassDatabase,
		Template: "{{.Driver}} {{.Operation}} failed: {{.GoError}}",
	},
	"DB-0002": {
		Class:    ClassDatabase,
		Template: "failed to open {{.Driver}} database: {{.GoError}}",
	},
	"DB-0003": {
		Class:    ClassDatabase,
		Template: "unsupported database driver: {{.Driver}}",
		Hints:    []string{"supported drivers are sqlite, postgres and mysql"},
	},

	// ========================================
	// Configuration errors (CONFIG-0xxx)
	// ========================================
	"CONFIG-0001": {
		Class:    ClassConfig,
		Template: "configuration errors:{{range .Problems}}\n  - {{.}}{{end}}",
	},
	"CONFIG-0002": {
		Class:    ClassConfig,
		Template: "config file not found: {{.Path}}",
		Hints:    []string{"pass --config, set QUANTITIES_CONFIG, or create ./quantities.yaml"},
	},
}

// Sentinels for errors.Is comparisons. Only the code is significant.
var (
	ErrUnknownQuantity   = &QuantityError{Class: ClassCatalog, Code: "CATALOG-0001"}
	ErrUnknownUnit       = &QuantityError{Class: ClassCatalog, Code: "CATALOG-0002"}
	ErrMissingDimension  = &QuantityError{Class: ClassCatalog, Code: "CATALOG-0003"}
	ErrMissingUnit       = &QuantityError{Class: ClassCatalog, Code: "CATALOG-0004"}
	ErrNoUnits           = &QuantityError{Class: ClassCatalog, Code: "CATALOG-0005"}
	ErrDimensionless     = &QuantityError{Class: ClassCatalog, Code: "CATALOG-0006"}
	ErrDecode            = &QuantityError{Class: ClassCatalog, Code: "CATALOG-0007"}
	ErrMissingBasic      = &QuantityError{Class: ClassCatalog, Code: "CATALOG-0008"}
	ErrUnknownBase       = &QuantityError{Class: ClassSystem, Code: "SYSTEM-0001"}
	ErrNotApplicable     = &QuantityError{Class: ClassSystem, Code: "SYSTEM-0002"}
	ErrNoBasicQuantity   = &QuantityError{Class: ClassSystem, Code: "SYSTEM-0003"}
	ErrUnsupported       = &QuantityError{Class: ClassSystem, Code: "SYSTEM-0004"}
	ErrNoCanonicalUnit   = &QuantityError{Class: ClassSystem, Code: "SYSTEM-0005"}
	ErrBadLiteral        = &QuantityError{Class: ClassNumeric, Code: "NUM-0001"}
	ErrRead              = &QuantityError{Class: ClassIO, Code: "IO-0001"}
	ErrWatch             = &QuantityError{Class: ClassIO, Code: "IO-0002"}
	ErrCompression       = &QuantityError{Class: ClassIO, Code: "IO-0003"}
	ErrDatabase          = &QuantityError{Class: ClassDatabase, Code: "DB-0001"}
	ErrOpenDatabase      = &QuantityError{Class: ClassDatabase, Code: "DB-0002"}
	ErrUnsupportedDriver = &QuantityError{Class: ClassDatabase, Code: "DB-0003"}
	ErrInvalidConfig     = &QuantityError{Class: ClassConfig, Code: "CONFIG-0001"}
	ErrConfigNotFound    = &QuantityError{Class: ClassConfig, Code: "CONFIG-0002"}
)

// New creates a QuantityError from the catalog.
// If the code is not found, it returns a generic error with the code as message.
func New(code string, data map[string]any) *QuantityError {
	def, ok := ErrorCatalog[code]
	if !ok {
		msg := code
		if data != nil {
			if m, ok := data["Message"].(string); ok {
				msg = m
			}
		}
		return &QuantityError{
			Class:   ClassCatalog,
			Code:    code,
			Message: msg,
			Data:    data,
		}
	}

	msg := renderTemplate(def.Template, data)

	var hints []string
	for _, hintTmpl := range def.Hints {
		rendered := renderTemplate(hintTmpl, data)
		if rendered != "" {
			hints = append(hints, rendered)
		}
	}

	return &QuantityError{
		Class:   def.Class,
		Code:    code,
		Message: msg,
		Hints:   hints,
		Data:    data,
	}
}

// Wrap creates a QuantityError from the catalog around cause. The cause's
// message is available to templates as {{.GoError}}.
func Wrap(code string, cause error, data map[string]any) *QuantityError {
	if data == nil {
		data = map[string]any{}
	}
	if cause != nil {
		data["GoError"] = cause.Error()
	}
	err := New(code, data)
	err.Cause = cause
	return err
}

// NewSimple creates a simple error without using the catalog.
func NewSimple(class ErrorClass, message string) *QuantityError {
	return &QuantityError{
		Class:   class,
		Message: message,
	}
}

// renderTemplate renders a Go template with the given data.
func renderTemplate(tmplStr string, data map[string]any) string {
	if data == nil {
		return tmplStr
	}

	tmpl, err := template.New("").Parse(tmplStr)
	if err != nil {
		return tmplStr
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmplStr
	}

	return buf.String()
}

// ============================================================================
// Fuzzy Matching - "Did you mean?" suggestions
// ============================================================================

// FuzzyMatch is a candidate with its edit distance from the input.
type FuzzyMatch struct {
	Value    string
	Distance int
}

// threshold returns the maximum edit distance accepted for an input.
// Short words (1-3): max 1 edit
// Medium words (4-6): max 2 edits
// Longer words (7+): max 3 edits
func threshold(input string) int {
	switch n := len(input); {
	case n >= 7:
		return 3
	case n >= 4:
		return 2
	default:
		return 1
	}
}

// FindClosestMatch returns the candidate closest to input, compared
// case-insensitively, or "" when nothing is within the threshold.
func FindClosestMatch(input string, candidates []string) string {
	if len(input) == 0 || len(candidates) == 0 {
		return ""
	}

	inputLower := strings.ToLower(input)

	var bestMatch string
	bestDistance := -1
	for _, candidate := range candidates {
		dist := levenshtein.ComputeDistance(inputLower, strings.ToLower(candidate))
		if bestDistance == -1 || dist < bestDistance {
			bestDistance = dist
			bestMatch = candidate
		}
	}

	if bestDistance <= threshold(input) {
		return bestMatch
	}
	return ""
}

// FindTopMatches returns up to n candidates within the threshold, closest
// first. Exact matches are excluded.
func FindTopMatches(input string, candidates []string, n int) []string {
	if len(input) == 0 || len(candidates) == 0 || n <= 0 {
		return nil
	}

	inputLower := strings.ToLower(input)

	var matches []FuzzyMatch
	for _, candidate := range candidates {
		dist := levenshtein.ComputeDistance(inputLower, strings.ToLower(candidate))
		if dist > 0 {
			matches = append(matches, FuzzyMatch{Value: candidate, Distance: dist})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	limit := threshold(input)
	var result []string
	for i := 0; i < len(matches) && len(result) < n; i++ {
		if matches[i].Distance <= limit {
			result = append(result, matches[i].Value)
		}
	}
	return result
}

// withSuggestion appends a "Did you mean" hint when a close candidate exists.
func withSuggestion(err *QuantityError, name string, candidates []string) *QuantityError {
	if suggestion := FindClosestMatch(name, candidates); suggestion != "" {
		err.Hints = append(err.Hints, "Did you mean `"+suggestion+"`?")
	}
	return err
}

// NewUnknownQuantity creates an unknown quantity error with optional fuzzy matching.
func NewUnknownQuantity(name string, available []string) *QuantityError {
	return withSuggestion(New("CATALOG-0001", map[string]any{"Name": name}), name, available)
}

// NewUnknownUnit creates an unknown unit error with optional fuzzy matching.
func NewUnknownUnit(name string, available []string) *QuantityError {
	return withSuggestion(New("CATALOG-0002", map[string]any{"Name": name}), name, available)
}

// NewUnknownBase creates an unknown base dimension error.
func NewUnknownBase(name string, bases []string) *QuantityError {
	err := New("SYSTEM-0001", map[string]any{
		"Name":  name,
		"Bases": strings.Join(bases, ", "),
	})
	return withSuggestion(err, name, bases)
}

// NewNotApplicable creates an error for a unit that does not belong to a
// quantity, suggesting the closest applicable unit.
func NewNotApplicable(unit, quantity string, applicable []string) *QuantityError {
	err := New("SYSTEM-0002", map[string]any{"Unit": unit, "Quantity": quantity})
	return withSuggestion(err, unit, applicable)
}

// NewBadLiteral creates a numeric literal error.
func NewBadLiteral(literal string, cause error) *QuantityError {
	err := New("NUM-0001", map[string]any{"Literal": literal})
	err.Cause = cause
	return err
}

// Errorf creates an uncatalogued error of the given class. %w verbs are
// honoured: the wrapped error becomes the cause.
func Errorf(class ErrorClass, format string, args ...any) *QuantityError {
	wrapped := fmt.Errorf(format, args...)
	return &QuantityError{
		Class:   class,
		Message: wrapped.Error(),
		Cause:   stderrors.Unwrap(wrapped),
	}
}
