package annotations

import (
	"errors"
	"fmt"
	"sort"

	cerrors "github.com/lodestar-catalog/lodestar/compiler/errors"
	"github.com/lodestar-catalog/lodestar/compiler/parser"
	"github.com/lodestar-catalog/lodestar/internal/registry"
)

// Options controls resolution policy
type Options struct {
	// InheritEmbedded controls whether annotations declared inside a nested
	// record type apply when that record is embedded in an aspect. When
	// false, only annotations declared at the embedding site (path-qualified
	// overrides) take effect on embedded fields.
	InheritEmbedded bool
}

// DefaultOptions inherits embedded annotations unless explicitly suppressed
func DefaultOptions() Options {
	return Options{InheritEmbedded: true}
}

// Entry is one resolved annotation instance at a concrete field path
type Entry struct {
	Aspect       string
	Path         Path
	Type         *registry.Type
	Field        *registry.Field
	Searchable   *Searchable
	Relationship *Relationship
}

// ResolvedSet is the full resolution output, ordered by (aspect, path) so
// repeated compilations of unchanged schema produce identical descriptor
// output regardless of traversal or worker order.
type ResolvedSet struct {
	Entries []Entry
}

// ForAspect returns the entries belonging to one aspect, in path order
func (s *ResolvedSet) ForAspect(aspect string) []Entry {
	var out []Entry
	for _, e := range s.Entries {
		if e.Aspect == aspect {
			out = append(out, e)
		}
	}
	return out
}

// node is one concrete position in an aspect's structural tree
type node struct {
	path  Path
	typ   *registry.Type
	field *registry.Field // nil for container-element nodes
}

// annotationKind discriminates the two recognized field annotations
type annotationKind int

const (
	kindSearchable annotationKind = iota
	kindRelationship
)

func (k annotationKind) String() string {
	if k == kindSearchable {
		return "Searchable"
	}
	return "Relationship"
}

// directDecl is a flat annotation declared on the field at its own path
type directDecl struct {
	kind annotationKind
	obj  *parser.ObjectValue
	loc  parser.SourceLocation
}

// overrideDecl is a path-qualified override anchored at some ancestor
type overrideDecl struct {
	kind     annotationKind
	pattern  Path // absolute
	value    *parser.ObjectValue
	null     bool
	depth    int // anchor depth; deeper anchors are more specific
	literals int
	loc      parser.SourceLocation
}

type resolver struct {
	graph *registry.SchemaGraph
	opts  Options
	errs  *cerrors.List

	nodes     []node
	directs   map[string][]directDecl // concrete path -> flat decls
	overrides []overrideDecl
}

// Resolve walks every aspect of the schema graph and produces the resolved
// annotation set. Resolution is a pure function of the graph; diagnostics are
// collected rather than failing fast.
func Resolve(graph *registry.SchemaGraph, opts Options) (*ResolvedSet, *cerrors.List) {
	errs := &cerrors.List{}
	set := &ResolvedSet{}

	// Aspects iterate in name order and entries within an aspect come out
	// path-sorted, so the merged set is fully ordered.
	for _, aspect := range graph.Aspects() {
		entries, aerrs := ResolveAspect(graph, aspect, opts)
		errs.Merge(aerrs)
		set.Entries = append(set.Entries, entries...)
	}

	if errs.HasErrors() {
		return nil, errs
	}
	return set, errs
}

// ResolveAspect resolves one aspect independently. Aspects share no mutable
// state, so callers may resolve them in parallel and concatenate the results
// in aspect-name order to get the same set Resolve produces.
func ResolveAspect(graph *registry.SchemaGraph, aspect *registry.AspectSchema, opts Options) ([]Entry, *cerrors.List) {
	r := &resolver{
		graph:   graph,
		opts:    opts,
		errs:    &cerrors.List{},
		directs: make(map[string][]directDecl),
	}
	r.collectRoot(aspect.Record)
	r.walk(Path{}, &registry.Type{Kind: registry.KindRecord, Record: aspect.Record}, nil, nil)

	set := &ResolvedSet{}
	r.matchAndMerge(aspect.Name, set)

	sort.SliceStable(set.Entries, func(i, j int) bool {
		return set.Entries[i].Path.String() < set.Entries[j].Path.String()
	})
	return set.Entries, r.errs
}

// collectRoot gathers path-qualified overrides declared on the aspect record
// itself. Flat Searchable/Relationship keys at the root address no field and
// are reported as malformed.
func (r *resolver) collectRoot(rec *registry.RecordType) {
	for _, ann := range rec.Annotations {
		kind, ok := recognizedKind(ann.Name)
		if !ok {
			if ann.Name != "Aspect" {
				r.errs.Add(cerrors.NewWarning("annotations", cerrors.CodeUnknownAnnotation, cerrors.Annotation,
					fmt.Sprintf("unrecognized annotation @%s on record %q", ann.Name, rec.Name), toLoc(ann.Loc)))
			}
			continue
		}
		obj, okObj := ann.Value.(*parser.ObjectValue)
		if !okObj {
			r.errs.Add(cerrors.New("annotations", cerrors.CodeBadAnnotationValue, cerrors.Annotation,
				fmt.Sprintf("@%s on record %q must be an object", ann.Name, rec.Name), toLoc(ann.Loc)))
			continue
		}
		flat, paths, err := splitAnnotationObject(obj)
		if err != nil {
			r.errs.Add(cerrors.New("annotations", cerrors.CodeBadAnnotationValue, cerrors.Annotation,
				err.Error(), toLoc(ann.Loc)))
			continue
		}
		if flat != nil {
			r.errs.Add(cerrors.New("annotations", cerrors.CodeBadAnnotationValue, cerrors.Annotation,
				fmt.Sprintf("@%s on record %q needs path-qualified keys; it does not address a field", ann.Name, rec.Name),
				toLoc(ann.Loc)))
		}
		for _, pe := range paths {
			r.overrides = append(r.overrides, overrideDecl{
				kind:     kind,
				pattern:  pe.pattern,
				value:    pe.value,
				null:     pe.null,
				depth:    0,
				literals: pe.pattern.Literals(),
				loc:      pe.loc,
			})
		}
	}
}

// walk enumerates concrete nodes depth-first. visiting holds the records on
// the current descent path so legitimate recursive domain types terminate
// instead of expanding forever.
func (r *resolver) walk(path Path, typ *registry.Type, field *registry.Field, visiting []*registry.RecordType) {
	if len(path) > 0 {
		r.nodes = append(r.nodes, node{path: path, typ: typ, field: field})
	}

	if field != nil {
		r.collectField(path, field)
	}

	switch typ.Kind {
	case registry.KindRecord:
		for _, rec := range visiting {
			if rec == typ.Record {
				return
			}
		}
		next := append(visiting, typ.Record)
		for _, f := range typ.Record.Fields {
			r.walk(path.Child(Literal(f.Name)), f.Type, f, next)
		}

	case registry.KindArray, registry.KindMap:
		r.walk(path.Child(Wildcard), typ.Element, nil, visiting)
	}
	// Unions are not traversed: their members are alternatives without
	// stable member paths, so annotations attach to the union field itself.
}

// collectField splits a field's annotations into direct declarations at its
// own path and overrides anchored there
func (r *resolver) collectField(path Path, field *registry.Field) {
	for _, ann := range field.Annotations {
		kind, ok := recognizedKind(ann.Name)
		if !ok {
			r.errs.Add(cerrors.NewWarning("annotations", cerrors.CodeUnknownAnnotation, cerrors.Annotation,
				fmt.Sprintf("unrecognized annotation @%s on field %s", ann.Name, path), toLoc(ann.Loc)))
			continue
		}

		obj, okObj := ann.Value.(*parser.ObjectValue)
		if !okObj {
			r.errs.Add(cerrors.New("annotations", cerrors.CodeBadAnnotationValue, cerrors.Annotation,
				fmt.Sprintf("@%s on field %s must be an object", ann.Name, path), toLoc(ann.Loc)))
			continue
		}

		flat, paths, err := splitAnnotationObject(obj)
		if err != nil {
			r.errs.Add(cerrors.New("annotations", cerrors.CodeBadAnnotationValue, cerrors.Annotation,
				err.Error(), toLoc(ann.Loc)))
			continue
		}

		if flat != nil {
			r.directs[path.String()] = append(r.directs[path.String()], directDecl{
				kind: kind,
				obj:  flat,
				loc:  ann.Loc,
			})
		}
		for _, pe := range paths {
			abs := Join(path, pe.pattern)
			r.overrides = append(r.overrides, overrideDecl{
				kind:     kind,
				pattern:  abs,
				value:    pe.value,
				null:     pe.null,
				depth:    len(path),
				literals: abs.Literals(),
				loc:      pe.loc,
			})
		}
	}
}

// matchAndMerge applies precedence per concrete path and emits entries
func (r *resolver) matchAndMerge(aspect string, set *ResolvedSet) {
	// Match overrides to nodes; a pattern matching nothing is a compile
	// error, not a silent no-op.
	matched := make(map[int][]overrideDecl) // node index -> overrides
	for _, ov := range r.overrides {
		found := false
		for i := range r.nodes {
			if Matches(ov.pattern, r.nodes[i].path) {
				matched[i] = append(matched[i], ov)
				found = true
			}
		}
		if !found {
			r.errs.Add(cerrors.New("annotations", cerrors.CodePathNoMatch, cerrors.Annotation,
				fmt.Sprintf("@%s path %s matches no field in aspect %q", ov.kind, ov.pattern, aspect), toLoc(ov.loc)))
		}
	}

	for i := range r.nodes {
		n := r.nodes[i]
		entry := Entry{Aspect: aspect, Path: n.path, Type: n.typ, Field: n.field}

		for _, kind := range []annotationKind{kindSearchable, kindRelationship} {
			obj, loc, ok := r.effective(aspect, n, matched[i], kind)
			if !ok {
				continue
			}
			switch kind {
			case kindSearchable:
				s, unknown, err := parseSearchable(obj)
				if err != nil {
					code := cerrors.CodeBadAnnotationValue
					if errors.Is(err, ErrBadFieldType) {
						code = cerrors.CodeBadFieldType
					}
					r.errs.Add(cerrors.New("annotations", code, cerrors.Annotation,
						fmt.Sprintf("@Searchable at %s: %v", n.path, err), toLoc(loc)))
					continue
				}
				r.warnUnknownKeys(kind, n.path, unknown, loc)
				entry.Searchable = s
			case kindRelationship:
				rel, unknown, err := parseRelationship(obj)
				if err != nil {
					r.errs.Add(cerrors.New("annotations", cerrors.CodeBadAnnotationValue, cerrors.Annotation,
						fmt.Sprintf("@Relationship at %s: %v", n.path, err), toLoc(loc)))
					continue
				}
				r.warnUnknownKeys(kind, n.path, unknown, loc)
				if n.typ == nil || !n.typ.IsUrn() {
					r.errs.Add(cerrors.New("annotations", cerrors.CodeRelationshipNonUrn, cerrors.Annotation,
						fmt.Sprintf("@Relationship at %s requires a urn-valued field, got %s", n.path, n.typ), toLoc(loc)))
					continue
				}
				entry.Relationship = rel
			}
		}

		if entry.Searchable != nil || entry.Relationship != nil {
			set.Entries = append(set.Entries, entry)
		}
	}
}

// effective computes the winning annotation object for one kind at one node.
// Precedence: explicit null beats any override, overrides beat the field's
// own declaration, deeper/more-literal overrides beat shallower ones, and a
// tie between distinct declarations is ambiguous.
func (r *resolver) effective(aspect string, n node, overrides []overrideDecl, kind annotationKind) (*parser.ObjectValue, parser.SourceLocation, bool) {
	var best []overrideDecl
	for _, ov := range overrides {
		if ov.kind != kind {
			continue
		}
		if len(best) == 0 {
			best = append(best, ov)
			continue
		}
		cmp := compareSpecificity(ov, best[0])
		switch {
		case cmp > 0:
			best = best[:0]
			best = append(best, ov)
		case cmp == 0:
			best = append(best, ov)
		}
	}

	if len(best) > 1 {
		// Multiple declarations at equal specificity: suppression wins if
		// all agree on null, otherwise the annotation is ambiguous.
		allNull := true
		for _, ov := range best {
			if !ov.null {
				allNull = false
			}
		}
		if !allNull {
			r.errs.Add(cerrors.New("annotations", cerrors.CodeAmbiguousAnnotation, cerrors.Annotation,
				fmt.Sprintf("ambiguous @%s for %s in aspect %q: %d declarations at equal specificity",
					kind, n.path, aspect, len(best)), toLoc(best[0].loc)))
			return nil, parser.SourceLocation{}, false
		}
		return nil, parser.SourceLocation{}, false
	}

	if len(best) == 1 {
		if best[0].null {
			return nil, parser.SourceLocation{}, false
		}
		return best[0].value, best[0].loc, true
	}

	// No override: fall back to the field's own declaration, honoring the
	// embedded-inheritance policy for fields below the aspect's own level.
	var direct []directDecl
	for _, d := range r.directs[n.path.String()] {
		if d.kind == kind {
			direct = append(direct, d)
		}
	}
	if len(direct) == 0 {
		return nil, parser.SourceLocation{}, false
	}
	if len(direct) > 1 {
		// Two flat declarations on the same field are at equal specificity
		// regardless of inheritance policy.
		r.errs.Add(cerrors.New("annotations", cerrors.CodeAmbiguousAnnotation, cerrors.Annotation,
			fmt.Sprintf("ambiguous @%s for %s in aspect %q: %d declarations at equal specificity",
				kind, n.path, aspect, len(direct)), toLoc(direct[0].loc)))
		return nil, parser.SourceLocation{}, false
	}
	if len(n.path) > 1 && !r.opts.InheritEmbedded {
		return nil, parser.SourceLocation{}, false
	}
	return direct[0].obj, direct[0].loc, true
}

func compareSpecificity(a, b overrideDecl) int {
	if a.depth != b.depth {
		if a.depth > b.depth {
			return 1
		}
		return -1
	}
	if a.literals != b.literals {
		if a.literals > b.literals {
			return 1
		}
		return -1
	}
	return 0
}

func (r *resolver) warnUnknownKeys(kind annotationKind, path Path, unknown []string, loc parser.SourceLocation) {
	for _, key := range unknown {
		r.errs.Add(cerrors.NewWarning("annotations", cerrors.CodeUnknownAnnotationKey, cerrors.Annotation,
			fmt.Sprintf("unrecognized key %q in @%s at %s", key, kind, path), toLoc(loc)))
	}
}

func recognizedKind(name string) (annotationKind, bool) {
	switch name {
	case "Searchable":
		return kindSearchable, true
	case "Relationship":
		return kindRelationship, true
	default:
		return 0, false
	}
}

func toLoc(loc parser.SourceLocation) cerrors.SourceLocation {
	return cerrors.SourceLocation{File: loc.File, Line: loc.Line, Column: loc.Column}
}
