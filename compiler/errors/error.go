// Package errors defines the structured error model shared by every stage of
// the aspect compiler. A compile run collects errors instead of stopping at
// the first one; a schema set either compiles in full or fails with the
// collected list.
package errors

import (
	"fmt"
	"strings"
)

// Severity represents the severity level of a diagnostic
type Severity int

const (
	Info Severity = iota
	Warning
	Error
	Fatal
)

// String returns the string representation of the severity
func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Kind classifies a compile error by the contract it violates
type Kind int

const (
	// SchemaParse covers malformed definition text (lexer and parser)
	SchemaParse Kind = iota
	// SchemaGraph covers unresolved type references, illegal structural
	// cycles, and duplicate aspect/field names
	SchemaGraph
	// Annotation covers malformed annotation values, ambiguous precedence,
	// and Relationship annotations on non-urn fields
	Annotation
	// CompileConflict covers declarations that merge into incompatible
	// descriptor output
	CompileConflict
)

// String returns the string representation of the error kind
func (k Kind) String() string {
	switch k {
	case SchemaParse:
		return "SchemaParseError"
	case SchemaGraph:
		return "SchemaGraphError"
	case Annotation:
		return "AnnotationError"
	case CompileConflict:
		return "CompileConflictError"
	default:
		return "UnknownError"
	}
}

// SourceLocation represents a location in source text
type SourceLocation struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// CompileError is one diagnostic produced by a compiler stage
type CompileError struct {
	Phase    string         `json:"phase"` // "lexer", "parser", "registry", "annotations", "mapping", "graph"
	Code     string         `json:"code"`  // "E101", "E201", ...
	Kind     Kind           `json:"-"`
	Message  string         `json:"message"`
	Location SourceLocation `json:"location"`
	Severity Severity       `json:"-"`
}

// Error implements the error interface
func (e CompileError) Error() string {
	if e.Location.File == "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s: %s",
		e.Location.File,
		e.Location.Line,
		e.Location.Column,
		e.Code,
		e.Kind,
		e.Message)
}

// New creates a new CompileError at Error severity
func New(phase, code string, kind Kind, message string, location SourceLocation) CompileError {
	return CompileError{
		Phase:    phase,
		Code:     code,
		Kind:     kind,
		Message:  message,
		Location: location,
		Severity: Error,
	}
}

// NewWarning creates a new CompileError at Warning severity
func NewWarning(phase, code string, kind Kind, message string, location SourceLocation) CompileError {
	e := New(phase, code, kind, message, location)
	e.Severity = Warning
	return e
}

// IsError returns true if the diagnostic is at Error or Fatal severity
func (e CompileError) IsError() bool {
	return e.Severity == Error || e.Severity == Fatal
}

// IsWarning returns true if the diagnostic is at Warning severity
func (e CompileError) IsWarning() bool {
	return e.Severity == Warning
}

// List aggregates the diagnostics of one compile run
type List struct {
	Diagnostics []CompileError
}

// Add appends a diagnostic
func (l *List) Add(e CompileError) {
	l.Diagnostics = append(l.Diagnostics, e)
}

// Merge appends all diagnostics from another list
func (l *List) Merge(other *List) {
	l.Diagnostics = append(l.Diagnostics, other.Diagnostics...)
}

// HasErrors reports whether any diagnostic is at Error severity or above
func (l *List) HasErrors() bool {
	for _, e := range l.Diagnostics {
		if e.IsError() {
			return true
		}
	}
	return false
}

// Errors returns only the diagnostics at Error severity or above
func (l *List) Errors() []CompileError {
	var out []CompileError
	for _, e := range l.Diagnostics {
		if e.IsError() {
			out = append(out, e)
		}
	}
	return out
}

// Warnings returns only the Warning-severity diagnostics
func (l *List) Warnings() []CompileError {
	var out []CompileError
	for _, e := range l.Diagnostics {
		if e.IsWarning() {
			out = append(out, e)
		}
	}
	return out
}

// Error implements the error interface over the whole list
func (l *List) Error() string {
	errs := l.Errors()
	if len(errs) == 0 {
		return "no errors"
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("compile failed with %d error(s):\n%s", len(errs), strings.Join(msgs, "\n"))
}
