// Package parser transforms token streams from the lexer into an abstract
// syntax tree for the aspect definition language.
package parser

import (
	"fmt"
	"strings"

	"github.com/lodestar-catalog/lodestar/compiler/lexer"
)

// SourceLocation identifies a position in a source file
type SourceLocation struct {
	File   string
	Line   int
	Column int
}

// TokenToLocation converts a lexer token to a SourceLocation
func TokenToLocation(tok lexer.Token) SourceLocation {
	return SourceLocation{
		File:   tok.File,
		Line:   tok.Line,
		Column: tok.Column,
	}
}

// File is the parsed form of one aspect definition source file
type File struct {
	Namespace string
	Imports   []string // fully qualified type names
	Records   []*RecordDecl
	Enums     []*EnumDecl
	Loc       SourceLocation
}

// RecordDecl declares a record type, possibly an aspect root
type RecordDecl struct {
	Name        string
	Doc         string
	Includes    []string // possibly qualified type names, flattened in order
	Annotations []*AnnotationDecl
	Fields      []*FieldDecl
	Loc         SourceLocation
}

// QualifiedName returns the record name qualified by the file namespace
func (r *RecordDecl) QualifiedName(namespace string) string {
	if namespace == "" {
		return r.Name
	}
	return namespace + "." + r.Name
}

// EnumDecl declares an enum type
type EnumDecl struct {
	Name    string
	Doc     string
	Symbols []string
	Loc     SourceLocation
}

// FieldDecl declares one field of a record
type FieldDecl struct {
	Name        string
	Doc         string
	Optional    bool
	Type        TypeNode
	Annotations []*AnnotationDecl
	Loc         SourceLocation
}

// AnnotationDecl is a single @Name = value attachment
type AnnotationDecl struct {
	Name  string
	Value Value
	Loc   SourceLocation
}

// TypeNode is the interface for type expressions
type TypeNode interface {
	typeNode()
	String() string
	Location() SourceLocation
}

// PrimitiveKind enumerates the built-in scalar types
type PrimitiveKind int

const (
	PrimString PrimitiveKind = iota
	PrimInt
	PrimLong
	PrimFloat
	PrimDouble
	PrimBoolean
	PrimBytes
	PrimTimestamp
)

// String returns the source-level name of the primitive kind
func (k PrimitiveKind) String() string {
	switch k {
	case PrimString:
		return "string"
	case PrimInt:
		return "int"
	case PrimLong:
		return "long"
	case PrimFloat:
		return "float"
	case PrimDouble:
		return "double"
	case PrimBoolean:
		return "boolean"
	case PrimBytes:
		return "bytes"
	case PrimTimestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// PrimitiveType is a built-in scalar type
type PrimitiveType struct {
	Kind PrimitiveKind
	Loc  SourceLocation
}

func (t *PrimitiveType) typeNode()                {}
func (t *PrimitiveType) String() string           { return t.Kind.String() }
func (t *PrimitiveType) Location() SourceLocation { return t.Loc }

// UrnType is the built-in entity reference type. It is a leaf: a urn value
// points at another entity, it never embeds that entity's structure.
type UrnType struct {
	Loc SourceLocation
}

func (t *UrnType) typeNode()                {}
func (t *UrnType) String() string           { return "urn" }
func (t *UrnType) Location() SourceLocation { return t.Loc }

// NamedType references a record or enum by (possibly qualified) name
type NamedType struct {
	Name string
	Loc  SourceLocation
}

func (t *NamedType) typeNode()                {}
func (t *NamedType) String() string           { return t.Name }
func (t *NamedType) Location() SourceLocation { return t.Loc }

// ArrayType is array[T]
type ArrayType struct {
	Element TypeNode
	Loc     SourceLocation
}

func (t *ArrayType) typeNode()                {}
func (t *ArrayType) String() string           { return fmt.Sprintf("array[%s]", t.Element) }
func (t *ArrayType) Location() SourceLocation { return t.Loc }

// MapType is map[string,V]; keys are always strings
type MapType struct {
	Value TypeNode
	Loc   SourceLocation
}

func (t *MapType) typeNode()                {}
func (t *MapType) String() string           { return fmt.Sprintf("map[string,%s]", t.Value) }
func (t *MapType) Location() SourceLocation { return t.Loc }

// UnionType is union[A, B, ...]
type UnionType struct {
	Members []TypeNode
	Loc     SourceLocation
}

func (t *UnionType) typeNode() {}
func (t *UnionType) String() string {
	names := make([]string, len(t.Members))
	for i, m := range t.Members {
		names[i] = m.String()
	}
	return fmt.Sprintf("union[%s]", strings.Join(names, ", "))
}
func (t *UnionType) Location() SourceLocation { return t.Loc }

// Value is the interface for annotation value literals
type Value interface {
	value()
	Location() SourceLocation
}

// StringValue is a string literal
type StringValue struct {
	Val string
	Loc SourceLocation
}

func (v *StringValue) value()                   {}
func (v *StringValue) Location() SourceLocation { return v.Loc }

// NumberValue is an int or float literal
type NumberValue struct {
	Val   float64
	IsInt bool
	Int   int64
	Loc   SourceLocation
}

func (v *NumberValue) value()                   {}
func (v *NumberValue) Location() SourceLocation { return v.Loc }

// BoolValue is true or false
type BoolValue struct {
	Val bool
	Loc SourceLocation
}

func (v *BoolValue) value()                   {}
func (v *BoolValue) Location() SourceLocation { return v.Loc }

// NullValue is an explicit null. Inside a path-qualified annotation map it
// suppresses any annotation the underlying type would contribute at that path.
type NullValue struct {
	Loc SourceLocation
}

func (v *NullValue) value()                   {}
func (v *NullValue) Location() SourceLocation { return v.Loc }

// ListValue is [ v, v, ... ]
type ListValue struct {
	Items []Value
	Loc   SourceLocation
}

func (v *ListValue) value()                   {}
func (v *ListValue) Location() SourceLocation { return v.Loc }

// ObjectValue is { "key": value, ... } with declaration order preserved
type ObjectValue struct {
	Keys    []string
	Entries map[string]Value
	Loc     SourceLocation
}

func (v *ObjectValue) value()                   {}
func (v *ObjectValue) Location() SourceLocation { return v.Loc }

// Get returns the value for a key, or nil if absent
func (v *ObjectValue) Get(key string) Value {
	if v.Entries == nil {
		return nil
	}
	return v.Entries[key]
}

// Has reports whether the object contains the key
func (v *ObjectValue) Has(key string) bool {
	_, ok := v.Entries[key]
	return ok
}
