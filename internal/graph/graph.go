// Package graph compiles resolved Relationship annotations into the edge
// descriptor consumed by the graph store's edge-materialization step.
package graph

import (
	"fmt"
	"sort"

	cerrors "github.com/lodestar-catalog/lodestar/compiler/errors"
	"github.com/lodestar-catalog/lodestar/internal/annotations"
	"github.com/lodestar-catalog/lodestar/internal/registry"
)

// EdgeSource is one declaration site contributing to an edge type
type EdgeSource struct {
	Aspect string `json:"aspect"`
	Path   string `json:"path"`
}

// RelationshipEdgeType is one merged edge type. Declarations sharing a name
// merge into a single edge with the union of source and target entity types,
// so a generic edge like IsPartOf declared by unrelated aspects forms one
// navigable relation.
type RelationshipEdgeType struct {
	Name              string       `json:"name"`
	SourceEntityTypes []string     `json:"sourceEntityTypes"`
	TargetEntityTypes []string     `json:"targetEntityTypes"`
	Sources           []EdgeSource `json:"sources"`
	IsLineage         bool         `json:"isLineage"`
}

// Compile merges the Relationship entries of the resolved set into edge
// types. Source entity types come from the entity bindings of the declaring
// aspect. Output is ordered by edge name; all sets inside an edge are sorted,
// so merge order cannot affect the result.
func Compile(set *annotations.ResolvedSet, reg *registry.SchemaGraph) ([]RelationshipEdgeType, *cerrors.List) {
	errs := &cerrors.List{}
	edges := make(map[string]*RelationshipEdgeType)

	for _, entry := range set.Entries {
		rel := entry.Relationship
		if rel == nil {
			continue
		}

		aspect := reg.Aspect(entry.Aspect)
		var sources []string
		if aspect != nil {
			sources = aspect.EntityTypes
		}

		edge, ok := edges[rel.Name]
		if !ok {
			edge = &RelationshipEdgeType{Name: rel.Name, IsLineage: rel.IsLineage}
			edges[rel.Name] = edge
		} else if edge.IsLineage != rel.IsLineage {
			errs.Add(cerrors.New("graph", cerrors.CodeEdgeConflict, cerrors.CompileConflict,
				fmt.Sprintf("edge %q declared both as lineage and non-lineage", rel.Name),
				cerrors.SourceLocation{}))
			continue
		}

		edge.SourceEntityTypes = union(edge.SourceEntityTypes, sources)
		edge.TargetEntityTypes = union(edge.TargetEntityTypes, rel.EntityTypes)
		edge.Sources = append(edge.Sources, EdgeSource{Aspect: entry.Aspect, Path: entry.Path.String()})
	}

	if errs.HasErrors() {
		return nil, errs
	}

	names := make([]string, 0, len(edges))
	for name := range edges {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]RelationshipEdgeType, 0, len(edges))
	for _, name := range names {
		edge := edges[name]
		sort.Slice(edge.Sources, func(i, j int) bool {
			if edge.Sources[i].Aspect != edge.Sources[j].Aspect {
				return edge.Sources[i].Aspect < edge.Sources[j].Aspect
			}
			return edge.Sources[i].Path < edge.Sources[j].Path
		})
		out = append(out, *edge)
	}
	return out, errs
}

// union merges two sorted-or-unsorted string sets into a sorted, deduplicated
// slice
func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
