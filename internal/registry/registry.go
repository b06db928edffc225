package registry

import (
	"fmt"
	"sort"
	"strings"

	cerrors "github.com/lodestar-catalog/lodestar/compiler/errors"
	"github.com/lodestar-catalog/lodestar/compiler/lexer"
	"github.com/lodestar-catalog/lodestar/compiler/parser"
)

// Source is one aspect definition file
type Source struct {
	Name string // file name, used in diagnostics
	Text string
}

// EntityBinding binds an entity type to its aspect slots. Bindings come from
// the entity registry file, not from the definition language.
type EntityBinding struct {
	Name      string
	KeyAspect string
	Aspects   []string
}

// recordState tracks resolution progress for one declared record
type recordState struct {
	file      *parser.File
	decl      *parser.RecordDecl
	resolved  *RecordType
	ownFields []*Field
	flattened bool
	expanding bool // include-flattening in progress, for cycle detection
}

type builder struct {
	errs    *cerrors.List
	records map[string]*recordState
	enums   map[string]*EnumType
	order   []string // qualified record names in first-seen order
}

// Load parses the sources, resolves and flattens the type graph, binds entity
// types to aspects, and returns the schema graph. On any error the graph is
// nil and the previous generation stays in effect at the caller.
func Load(sources []Source, entities []EntityBinding) (*SchemaGraph, *cerrors.List) {
	b := &builder{
		errs:    &cerrors.List{},
		records: make(map[string]*recordState),
		enums:   make(map[string]*EnumType),
	}

	files := b.parseAll(sources)
	if b.errs.HasErrors() {
		return nil, b.errs
	}

	b.collectDecls(files)
	if b.errs.HasErrors() {
		return nil, b.errs
	}

	b.resolveFields()
	b.flattenAll()
	b.detectStructuralCycles()
	if b.errs.HasErrors() {
		return nil, b.errs
	}

	graph := b.bindAspects(entities)
	if b.errs.HasErrors() {
		return nil, b.errs
	}
	return graph, b.errs
}

func (b *builder) parseAll(sources []Source) []*parser.File {
	var files []*parser.File
	for _, src := range sources {
		tokens, lexErrs := lexer.New(src.Text, src.Name).ScanTokens()
		for _, le := range lexErrs {
			b.errs.Add(cerrors.New("lexer", cerrors.CodeLexUnexpectedChar, cerrors.SchemaParse,
				le.Message, cerrors.SourceLocation{File: le.File, Line: le.Line, Column: le.Column}))
		}

		file, parseErrs := parser.New(tokens).Parse()
		for _, pe := range parseErrs {
			b.errs.Add(cerrors.New("parser", cerrors.CodeParseSyntax, cerrors.SchemaParse,
				pe.Message, toLoc(pe.Location)))
		}
		files = append(files, file)
	}
	return files
}

// collectDecls registers every record and enum by qualified name
func (b *builder) collectDecls(files []*parser.File) {
	for _, file := range files {
		for _, en := range file.Enums {
			qualified := qualify(file.Namespace, en.Name)
			if _, dup := b.enums[qualified]; dup {
				b.errs.Add(cerrors.New("registry", cerrors.CodeDuplicateAspect, cerrors.SchemaGraph,
					fmt.Sprintf("enum %q declared more than once", qualified), toLoc(en.Loc)))
				continue
			}
			b.enums[qualified] = &EnumType{Name: qualified, Doc: en.Doc, Symbols: en.Symbols}
		}

		for _, rec := range file.Records {
			qualified := qualify(file.Namespace, rec.Name)
			if _, dup := b.records[qualified]; dup {
				b.errs.Add(cerrors.New("registry", cerrors.CodeDuplicateAspect, cerrors.SchemaGraph,
					fmt.Sprintf("record %q declared more than once", qualified), toLoc(rec.Loc)))
				continue
			}
			b.records[qualified] = &recordState{
				file:     file,
				decl:     rec,
				resolved: &RecordType{Name: qualified, Doc: rec.Doc, Annotations: rec.Annotations},
			}
			b.order = append(b.order, qualified)
		}
	}
}

// resolveFields resolves each record's directly declared fields. Record
// references resolve to shells, so recursive types work without ordering.
func (b *builder) resolveFields() {
	for _, qualified := range b.order {
		st := b.records[qualified]
		for _, fd := range st.decl.Fields {
			ft := b.resolveTypeNode(st.file, fd.Type)
			if ft == nil {
				continue
			}
			st.ownFields = append(st.ownFields, &Field{
				Name:        fd.Name,
				Doc:         fd.Doc,
				Optional:    fd.Optional,
				Type:        ft,
				Annotations: fd.Annotations,
				Loc:         fd.Loc,
			})
		}
	}
}

// resolveTypeNode converts a parsed type expression into a resolved Type
func (b *builder) resolveTypeNode(file *parser.File, node parser.TypeNode) *Type {
	switch n := node.(type) {
	case *parser.PrimitiveType:
		return &Type{Kind: KindPrimitive, Primitive: n.Kind}

	case *parser.UrnType:
		return &Type{Kind: KindUrn}

	case *parser.ArrayType:
		elem := b.resolveTypeNode(file, n.Element)
		if elem == nil {
			return nil
		}
		return &Type{Kind: KindArray, Element: elem}

	case *parser.MapType:
		value := b.resolveTypeNode(file, n.Value)
		if value == nil {
			return nil
		}
		return &Type{Kind: KindMap, Element: value}

	case *parser.UnionType:
		members := make([]*Type, 0, len(n.Members))
		for _, m := range n.Members {
			mt := b.resolveTypeNode(file, m)
			if mt == nil {
				return nil
			}
			members = append(members, mt)
		}
		return &Type{Kind: KindUnion, Members: members}

	case *parser.NamedType:
		qualified := b.resolveName(file, n.Name)
		if st, ok := b.records[qualified]; ok {
			return &Type{Kind: KindRecord, Record: st.resolved}
		}
		if en, ok := b.enums[qualified]; ok {
			return &Type{Kind: KindEnum, Enum: en}
		}
		b.errs.Add(cerrors.New("registry", cerrors.CodeUnknownTypeRef, cerrors.SchemaGraph,
			fmt.Sprintf("unknown type %q", n.Name), toLoc(n.Loc)))
		return nil

	default:
		return nil
	}
}

// resolveName maps a possibly unqualified type reference to a qualified name
// using the file's imports and namespace
func (b *builder) resolveName(file *parser.File, name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	for _, imp := range file.Imports {
		if strings.HasSuffix(imp, "."+name) {
			return imp
		}
	}
	return qualify(file.Namespace, name)
}

// flattenAll flattens includes for every record, rejecting include cycles and
// duplicate field names after flattening
func (b *builder) flattenAll() {
	for _, qualified := range b.order {
		b.flatten(qualified)
	}
}

func (b *builder) flatten(qualified string) *RecordType {
	st := b.records[qualified]
	if st.flattened {
		return st.resolved
	}
	if st.expanding {
		b.errs.Add(cerrors.New("registry", cerrors.CodeStructuralCycle, cerrors.SchemaGraph,
			fmt.Sprintf("record %q includes itself", qualified), toLoc(st.decl.Loc)))
		return st.resolved
	}
	st.expanding = true
	defer func() { st.expanding = false }()

	var fields []*Field
	for _, inc := range st.decl.Includes {
		incQualified := b.resolveName(st.file, inc)
		_, ok := b.records[incQualified]
		if !ok {
			if _, isEnum := b.enums[incQualified]; isEnum {
				b.errs.Add(cerrors.New("registry", cerrors.CodeBadInclude, cerrors.SchemaGraph,
					fmt.Sprintf("includes target %q is an enum, not a record", inc), toLoc(st.decl.Loc)))
			} else {
				b.errs.Add(cerrors.New("registry", cerrors.CodeUnknownTypeRef, cerrors.SchemaGraph,
					fmt.Sprintf("unknown includes target %q", inc), toLoc(st.decl.Loc)))
			}
			continue
		}

		incResolved := b.flatten(incQualified)
		for _, f := range incResolved.Fields {
			copied := *f
			if copied.FromInclude == "" {
				copied.FromInclude = incQualified
			}
			fields = append(fields, &copied)
		}
	}

	fields = append(fields, st.ownFields...)

	index := make(map[string]*Field, len(fields))
	for _, f := range fields {
		if prev, dup := index[f.Name]; dup {
			origin := prev.FromInclude
			if origin == "" {
				origin = qualified
			}
			b.errs.Add(cerrors.New("registry", cerrors.CodeDuplicateField, cerrors.SchemaGraph,
				fmt.Sprintf("duplicate field %q in record %q (already contributed by %q)", f.Name, qualified, origin),
				toLoc(f.Loc)))
			continue
		}
		index[f.Name] = f
	}

	st.resolved.Fields = fields
	st.resolved.fieldIndex = index
	st.flattened = true
	return st.resolved
}

// detectStructuralCycles rejects records that embed themselves at unbounded
// depth. Only a required field whose type is directly a record continues a
// cycle: optional fields, array/map elements, and union members all bound the
// depth, and urn references are leaves by definition.
func (b *builder) detectStructuralCycles() {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	state := make(map[string]int, len(b.order))

	var visit func(qualified string, path []string) bool
	visit = func(qualified string, path []string) bool {
		switch state[qualified] {
		case gray:
			b.errs.Add(cerrors.New("registry", cerrors.CodeStructuralCycle, cerrors.SchemaGraph,
				fmt.Sprintf("record %q embeds itself at unbounded depth (via %s); break the cycle with an optional field or a urn reference",
					qualified, strings.Join(append(path, qualified), " -> ")),
				toLoc(b.records[qualified].decl.Loc)))
			return false
		case black:
			return true
		}

		state[qualified] = gray
		ok := true
		for _, f := range b.records[qualified].resolved.Fields {
			if f.Optional {
				continue
			}
			if f.Type != nil && f.Type.Kind == KindRecord {
				if !visit(f.Type.Record.Name, append(path, qualified)) {
					ok = false
					break
				}
			}
		}
		state[qualified] = black
		return ok
	}

	for _, qualified := range b.order {
		visit(qualified, nil)
	}
}

// bindAspects extracts @Aspect slot declarations and joins them with the
// entity bindings into the final schema graph
func (b *builder) bindAspects(entities []EntityBinding) *SchemaGraph {
	graph := &SchemaGraph{
		aspects: make(map[string]*AspectSchema),
		records: make(map[string]*RecordType),
		enums:   b.enums,
	}
	for _, qualified := range b.order {
		graph.records[qualified] = b.records[qualified].resolved
	}

	slotToRecord := make(map[string]string)
	for _, qualified := range b.order {
		st := b.records[qualified]
		declared := 0
		for _, ann := range st.decl.Annotations {
			if ann.Name != "Aspect" {
				continue
			}
			declared++
			if declared > 1 {
				b.errs.Add(cerrors.New("registry", cerrors.CodeAspectBoundTwice, cerrors.SchemaGraph,
					fmt.Sprintf("record %q declares more than one @Aspect slot", qualified), toLoc(ann.Loc)))
				continue
			}
			slot := aspectSlotName(ann)
			if slot == "" {
				b.errs.Add(cerrors.New("registry", cerrors.CodeAspectNameMissing, cerrors.SchemaGraph,
					fmt.Sprintf("@Aspect on record %q needs a string \"name\"", qualified), toLoc(ann.Loc)))
				continue
			}
			if prev, dup := slotToRecord[slot]; dup {
				b.errs.Add(cerrors.New("registry", cerrors.CodeDuplicateAspect, cerrors.SchemaGraph,
					fmt.Sprintf("aspect %q declared by both %q and %q", slot, prev, qualified), toLoc(ann.Loc)))
				continue
			}
			slotToRecord[slot] = qualified
			graph.aspects[slot] = &AspectSchema{
				Name:   slot,
				Record: st.resolved,
				Loc:    parser.SourceLocation{File: ann.Loc.File, Line: ann.Loc.Line, Column: ann.Loc.Column},
			}
		}
	}

	entityTypes := make(map[string][]string) // aspect slot -> entity types
	for _, ent := range entities {
		names := ent.Aspects
		if ent.KeyAspect != "" {
			names = append([]string{ent.KeyAspect}, names...)
		}
		for _, slot := range names {
			if graph.aspects[slot] == nil {
				b.errs.Add(cerrors.New("registry", cerrors.CodeUnknownAspectBound, cerrors.SchemaGraph,
					fmt.Sprintf("entity %q references unknown aspect %q", ent.Name, slot), cerrors.SourceLocation{}))
				continue
			}
			entityTypes[slot] = append(entityTypes[slot], ent.Name)
		}
	}

	for slot, types := range entityTypes {
		sort.Strings(types)
		graph.aspects[slot].EntityTypes = dedupe(types)
	}

	return graph
}

// aspectSlotName extracts the "name" string from an @Aspect annotation value
func aspectSlotName(ann *parser.AnnotationDecl) string {
	obj, ok := ann.Value.(*parser.ObjectValue)
	if !ok {
		return ""
	}
	name, ok := obj.Get("name").(*parser.StringValue)
	if !ok {
		return ""
	}
	return name.Val
}

func qualify(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || sorted[i-1] != s {
			out = append(out, s)
		}
	}
	return out
}

func toLoc(loc parser.SourceLocation) cerrors.SourceLocation {
	return cerrors.SourceLocation{File: loc.File, Line: loc.Line, Column: loc.Column}
}
