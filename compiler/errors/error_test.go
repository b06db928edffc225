package errors

import (
	"strings"
	"testing"
)

func TestCompileErrorString(t *testing.T) {
	e := New("registry", CodeUnknownTypeRef, SchemaGraph, "unknown type 'AuditStamp'", SourceLocation{
		File:   "domain.adl",
		Line:   12,
		Column: 14,
	})

	got := e.Error()
	for _, want := range []string{"domain.adl:12:14", "E201", "SchemaGraphError", "unknown type 'AuditStamp'"} {
		if !strings.Contains(got, want) {
			t.Errorf("error string missing %q: %s", want, got)
		}
	}
}

func TestListSeparatesErrorsAndWarnings(t *testing.T) {
	var l List
	l.Add(New("annotations", CodeRelationshipNonUrn, Annotation, "not a urn", SourceLocation{}))
	l.Add(NewWarning("annotations", CodeUnknownAnnotationKey, Annotation, "unknown key", SourceLocation{}))

	if !l.HasErrors() {
		t.Error("expected HasErrors to be true")
	}
	if len(l.Errors()) != 1 {
		t.Errorf("expected 1 error, got %d", len(l.Errors()))
	}
	if len(l.Warnings()) != 1 {
		t.Errorf("expected 1 warning, got %d", len(l.Warnings()))
	}
}

func TestWarningsOnlyListHasNoErrors(t *testing.T) {
	var l List
	l.Add(NewWarning("annotations", CodeUnknownAnnotation, Annotation, "unknown annotation @Indexed", SourceLocation{}))

	if l.HasErrors() {
		t.Error("warnings alone should not count as errors")
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		SchemaParse:     "SchemaParseError",
		SchemaGraph:     "SchemaGraphError",
		Annotation:      "AnnotationError",
		CompileConflict: "CompileConflictError",
	}
	for kind, want := range cases {
		if kind.String() != want {
			t.Errorf("expected %s, got %s", want, kind.String())
		}
	}
}

func TestDescribeKnownCodes(t *testing.T) {
	if Describe(CodeStructuralCycle) == "" {
		t.Error("expected a description for E204")
	}
	if Describe("E999") != "" {
		t.Error("expected empty description for unknown code")
	}
}
