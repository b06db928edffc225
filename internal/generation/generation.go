// Package generation ties the compiler stages together: one Generation is an
// immutable, atomically-published compilation of the full schema set.
package generation

import (
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	cerrors "github.com/lodestar-catalog/lodestar/compiler/errors"
	"github.com/lodestar-catalog/lodestar/internal/annotations"
	"github.com/lodestar-catalog/lodestar/internal/graph"
	"github.com/lodestar-catalog/lodestar/internal/mapping"
	"github.com/lodestar-catalog/lodestar/internal/registry"
)

// Generation is one compiled snapshot. Readers hold a reference for the
// duration of an operation and never observe a partially-updated generation.
type Generation struct {
	ID        uuid.UUID
	CreatedAt time.Time

	Schemas  *registry.SchemaGraph
	Resolved *annotations.ResolvedSet
	Mappings []mapping.IndexMappingField
	Edges    []graph.RelationshipEdgeType
}

// Options controls a compile run
type Options struct {
	// Workers bounds parallel per-aspect annotation resolution; 0 means one
	// worker per CPU. Output is identical for any worker count.
	Workers int

	Annotations annotations.Options
}

// Compile runs the full pipeline over immutable input text. It either
// produces a complete generation or fails with the collected diagnostics; a
// failed compile has no partial output.
func Compile(sources []registry.Source, entities []registry.EntityBinding, opts Options) (*Generation, *cerrors.List) {
	reg, errs := registry.Load(sources, entities)
	if errs.HasErrors() {
		return nil, errs
	}

	resolved, rerrs := resolveParallel(reg, opts)
	errs.Merge(rerrs)
	if errs.HasErrors() {
		return nil, errs
	}

	mappings, merrs := mapping.Compile(resolved)
	errs.Merge(merrs)
	edges, gerrs := graph.Compile(resolved, reg)
	errs.Merge(gerrs)
	if errs.HasErrors() {
		return nil, errs
	}

	return &Generation{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		Schemas:   reg,
		Resolved:  resolved,
		Mappings:  mappings,
		Edges:     edges,
	}, errs
}

// resolveParallel resolves aspects across a worker pool and concatenates the
// per-aspect results in aspect-name order, so the merged set does not depend
// on scheduling.
func resolveParallel(reg *registry.SchemaGraph, opts Options) (*annotations.ResolvedSet, *cerrors.List) {
	aspects := reg.Aspects()

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(aspects) {
		workers = len(aspects)
	}
	if workers < 1 {
		workers = 1
	}

	results := make([][]annotations.Entry, len(aspects))
	diags := make([]*cerrors.List, len(aspects))

	var wg sync.WaitGroup
	jobs := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i], diags[i] = annotations.ResolveAspect(reg, aspects[i], opts.Annotations)
			}
		}()
	}
	for i := range aspects {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	errs := &cerrors.List{}
	set := &annotations.ResolvedSet{}
	for i := range aspects {
		errs.Merge(diags[i])
		set.Entries = append(set.Entries, results[i]...)
	}
	if errs.HasErrors() {
		return nil, errs
	}
	return set, errs
}
