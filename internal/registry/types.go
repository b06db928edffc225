// Package registry implements the schema registry: it loads parsed aspect
// definition files into a resolved, flattened schema graph and validates the
// structural rules (known type references, unique names, bounded embedding
// depth, entity bindings).
package registry

import (
	"sort"

	"github.com/lodestar-catalog/lodestar/compiler/parser"
)

// Kind discriminates the resolved type representations
type Kind int

const (
	KindPrimitive Kind = iota
	KindEnum
	KindUrn
	KindRecord
	KindArray
	KindMap
	KindUnion
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindEnum:
		return "enum"
	case KindUrn:
		return "urn"
	case KindRecord:
		return "record"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	case KindUnion:
		return "union"
	default:
		return "unknown"
	}
}

// Type is a fully resolved type. Record references point into the registry's
// type arena, so recursive domain types are representable without copying.
type Type struct {
	Kind      Kind
	Primitive parser.PrimitiveKind // KindPrimitive
	Enum      *EnumType            // KindEnum
	Record    *RecordType          // KindRecord
	Element   *Type                // KindArray element / KindMap value
	Members   []*Type              // KindUnion
}

// String renders the type for error messages
func (t *Type) String() string {
	switch t.Kind {
	case KindPrimitive:
		return t.Primitive.String()
	case KindEnum:
		return t.Enum.Name
	case KindUrn:
		return "urn"
	case KindRecord:
		return t.Record.Name
	case KindArray:
		return "array[" + t.Element.String() + "]"
	case KindMap:
		return "map[string," + t.Element.String() + "]"
	case KindUnion:
		s := "union["
		for i, m := range t.Members {
			if i > 0 {
				s += ", "
			}
			s += m.String()
		}
		return s + "]"
	default:
		return "unknown"
	}
}

// IsUrn reports whether the type is urn, or an array/map of urn, or a union
// whose members are all urn-valued. These are the only legal carriers of a
// Relationship annotation.
func (t *Type) IsUrn() bool {
	switch t.Kind {
	case KindUrn:
		return true
	case KindArray, KindMap:
		return t.Element.IsUrn()
	case KindUnion:
		for _, m := range t.Members {
			if !m.IsUrn() {
				return false
			}
		}
		return len(t.Members) > 0
	default:
		return false
	}
}

// EnumType is a resolved enum definition
type EnumType struct {
	Name    string // qualified
	Doc     string
	Symbols []string
}

// HasSymbol reports whether the enum declares the given symbol
func (e *EnumType) HasSymbol(sym string) bool {
	for _, s := range e.Symbols {
		if s == sym {
			return true
		}
	}
	return false
}

// Field is one resolved field of a record
type Field struct {
	Name        string
	Doc         string
	Optional    bool
	Type        *Type
	Annotations []*parser.AnnotationDecl
	Loc         parser.SourceLocation

	// FromInclude names the record this field was flattened out of, or ""
	// for fields declared directly on the owning record.
	FromInclude string
}

// RecordType is a resolved record with includes already flattened
type RecordType struct {
	Name        string // qualified
	Doc         string
	Fields      []*Field
	Annotations []*parser.AnnotationDecl // record-level annotations, @Aspect included

	fieldIndex map[string]*Field
}

// Field returns the named field, or nil
func (r *RecordType) Field(name string) *Field {
	if r.fieldIndex == nil {
		return nil
	}
	return r.fieldIndex[name]
}

// AspectSchema is one named aspect slot: a record plus the entity types the
// slot is bound to.
type AspectSchema struct {
	Name        string // slot name from @Aspect
	Record      *RecordType
	EntityTypes []string // sorted
	Loc         parser.SourceLocation
}

// SchemaGraph is one immutable, fully resolved schema set
type SchemaGraph struct {
	aspects map[string]*AspectSchema
	records map[string]*RecordType
	enums   map[string]*EnumType
}

// Aspect returns the named aspect schema, or nil
func (g *SchemaGraph) Aspect(name string) *AspectSchema {
	return g.aspects[name]
}

// AspectNames returns all aspect slot names in lexical order
func (g *SchemaGraph) AspectNames() []string {
	names := make([]string, 0, len(g.aspects))
	for name := range g.aspects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Aspects returns all aspect schemas in lexical slot-name order
func (g *SchemaGraph) Aspects() []*AspectSchema {
	names := g.AspectNames()
	out := make([]*AspectSchema, len(names))
	for i, name := range names {
		out[i] = g.aspects[name]
	}
	return out
}

// Record returns a record type by qualified name, or nil
func (g *SchemaGraph) Record(qualified string) *RecordType {
	return g.records[qualified]
}

// Enum returns an enum type by qualified name, or nil
func (g *SchemaGraph) Enum(qualified string) *EnumType {
	return g.enums[qualified]
}
