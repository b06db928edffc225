package annotations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/lodestar-catalog/lodestar/compiler/errors"
	"github.com/lodestar-catalog/lodestar/internal/registry"
)

func loadGraph(t *testing.T, text string, bindings ...registry.EntityBinding) *registry.SchemaGraph {
	t.Helper()
	graph, errs := registry.Load(
		[]registry.Source{{Name: "test.adl", Text: text}},
		bindings,
	)
	require.False(t, errs.HasErrors(), "registry errors: %v", errs.Diagnostics)
	require.NotNil(t, graph)
	return graph
}

func resolveOK(t *testing.T, graph *registry.SchemaGraph, opts Options) *ResolvedSet {
	t.Helper()
	set, errs := Resolve(graph, opts)
	require.False(t, errs.HasErrors(), "resolve errors: %v", errs.Diagnostics)
	require.NotNil(t, set)
	return set
}

func entryAt(set *ResolvedSet, aspect, path string) *Entry {
	for i := range set.Entries {
		if set.Entries[i].Aspect == aspect && set.Entries[i].Path.String() == path {
			return &set.Entries[i]
		}
	}
	return nil
}

func hasCode(errs *cerrors.List, code string) bool {
	for _, d := range errs.Diagnostics {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestResolveDirectAnnotations(t *testing.T) {
	graph := loadGraph(t, `
namespace com.example

@Aspect = { "name": "domainProperties" }
record DomainProperties {
  @Searchable = {
    "fieldType": "WORD_GRAM",
    "enableAutocomplete": true,
    "boostScore": 10.0,
    "fieldNameAliases": [ "_entityName" ]
  }
  name: string

  optional description: string

  @Relationship = { "name": "IsPartOf", "entityTypes": [ "glossaryNode", "domain" ] }
  @Searchable = { "fieldType": "URN", "hasValuesFieldName": "hasParentDomain" }
  optional parentDomain: urn
}
`, registry.EntityBinding{Name: "domain", KeyAspect: "domainProperties", Aspects: []string{"domainProperties"}})

	set := resolveOK(t, graph, DefaultOptions())
	require.Len(t, set.Entries, 2)

	name := entryAt(set, "domainProperties", "/name")
	require.NotNil(t, name)
	require.NotNil(t, name.Searchable)
	assert.Equal(t, FieldTypeWordGram, name.Searchable.FieldType)
	assert.True(t, name.Searchable.EnableAutocomplete)
	assert.Equal(t, 10.0, name.Searchable.BoostScore)
	assert.Equal(t, []string{"_entityName"}, name.Searchable.FieldNameAliases)
	assert.Nil(t, name.Relationship)

	parent := entryAt(set, "domainProperties", "/parentDomain")
	require.NotNil(t, parent)
	require.NotNil(t, parent.Searchable)
	assert.Equal(t, FieldTypeUrn, parent.Searchable.FieldType)
	assert.Equal(t, 1.0, parent.Searchable.BoostScore, "boostScore defaults to 1.0")
	assert.Equal(t, "hasParentDomain", parent.Searchable.HasValuesFieldName)
	require.NotNil(t, parent.Relationship)
	assert.Equal(t, "IsPartOf", parent.Relationship.Name)
	assert.Equal(t, []string{"domain", "glossaryNode"}, parent.Relationship.EntityTypes, "entity types come out sorted")
}

func TestResolveEmbeddedInheritance(t *testing.T) {
	source := `
namespace com.example

record AuditStamp {
  @Searchable = { "fieldType": "DATETIME" }
  time: long
  actor: urn
}

@Aspect = { "name": "datasetProperties" }
record DatasetProperties {
  name: string
  created: AuditStamp
}
`
	binding := registry.EntityBinding{Name: "dataset", KeyAspect: "datasetProperties", Aspects: []string{"datasetProperties"}}

	set := resolveOK(t, loadGraph(t, source, binding), DefaultOptions())
	time := entryAt(set, "datasetProperties", "/created/time")
	require.NotNil(t, time, "embedded annotations apply by default")
	assert.Equal(t, FieldTypeDatetime, time.Searchable.FieldType)

	set = resolveOK(t, loadGraph(t, source, binding), Options{InheritEmbedded: false})
	assert.Nil(t, entryAt(set, "datasetProperties", "/created/time"),
		"embedded defaults are suppressed when inheritance is off")
}

func TestResolveOverrideBeatsEmbeddedDefault(t *testing.T) {
	graph := loadGraph(t, `
namespace com.example

record SchemaField {
  @Searchable = { "fieldType": "TEXT" }
  fieldPath: string
  optional description: string
}

@Aspect = { "name": "schemaMetadata" }
record SchemaMetadata {
  @Searchable = { "/*/fieldPath": { "fieldType": "KEYWORD" } }
  fields: array[SchemaField]
}
`, registry.EntityBinding{Name: "dataset", KeyAspect: "schemaMetadata", Aspects: []string{"schemaMetadata"}})

	set := resolveOK(t, graph, DefaultOptions())
	e := entryAt(set, "schemaMetadata", "/fields/*/fieldPath")
	require.NotNil(t, e)
	assert.Equal(t, FieldTypeKeyword, e.Searchable.FieldType,
		"override at the embedding site replaces the nested default")
}

func TestResolveNullSuppression(t *testing.T) {
	graph := loadGraph(t, `
namespace com.example

record SchemaField {
  @Searchable = { "fieldType": "TEXT" }
  fieldPath: string
}

@Aspect = { "name": "schemaMetadata" }
record SchemaMetadata {
  @Searchable = { "/*/fieldPath": null }
  fields: array[SchemaField]
}
`, registry.EntityBinding{Name: "dataset", KeyAspect: "schemaMetadata", Aspects: []string{"schemaMetadata"}})

	set := resolveOK(t, graph, DefaultOptions())
	assert.Nil(t, entryAt(set, "schemaMetadata", "/fields/*/fieldPath"),
		"explicit null suppresses the inherited annotation")
	assert.Empty(t, set.Entries)
}

func TestResolveRootLevelOverride(t *testing.T) {
	graph := loadGraph(t, `
namespace com.example

record SchemaField {
  fieldPath: string
}

@Searchable = { "/fields/*/fieldPath": { "fieldType": "KEYWORD" } }
@Aspect = { "name": "schemaMetadata" }
record SchemaMetadata {
  fields: array[SchemaField]
}
`, registry.EntityBinding{Name: "dataset", KeyAspect: "schemaMetadata", Aspects: []string{"schemaMetadata"}})

	set := resolveOK(t, graph, DefaultOptions())
	e := entryAt(set, "schemaMetadata", "/fields/*/fieldPath")
	require.NotNil(t, e)
	assert.Equal(t, FieldTypeKeyword, e.Searchable.FieldType)
}

func TestResolveDeeperAnchorWins(t *testing.T) {
	graph := loadGraph(t, `
namespace com.example

record SchemaField {
  fieldPath: string
}

@Searchable = { "/fields/*/fieldPath": { "fieldType": "TEXT" } }
@Aspect = { "name": "schemaMetadata" }
record SchemaMetadata {
  @Searchable = { "/*/fieldPath": { "fieldType": "KEYWORD" } }
  fields: array[SchemaField]
}
`, registry.EntityBinding{Name: "dataset", KeyAspect: "schemaMetadata", Aspects: []string{"schemaMetadata"}})

	set := resolveOK(t, graph, DefaultOptions())
	e := entryAt(set, "schemaMetadata", "/fields/*/fieldPath")
	require.NotNil(t, e)
	assert.Equal(t, FieldTypeKeyword, e.Searchable.FieldType,
		"the override anchored deeper in the tree wins")
}

func TestResolveMoreLiteralsWin(t *testing.T) {
	graph := loadGraph(t, `
namespace com.example

record SchemaField {
  fieldPath: string
}

@Searchable = {
  "/fields/*/fieldPath": { "fieldType": "KEYWORD" },
  "/*/*/fieldPath": { "fieldType": "TEXT" }
}
@Aspect = { "name": "schemaMetadata" }
record SchemaMetadata {
  fields: array[SchemaField]
}
`, registry.EntityBinding{Name: "dataset", KeyAspect: "schemaMetadata", Aspects: []string{"schemaMetadata"}})

	set := resolveOK(t, graph, DefaultOptions())
	e := entryAt(set, "schemaMetadata", "/fields/*/fieldPath")
	require.NotNil(t, e)
	assert.Equal(t, FieldTypeKeyword, e.Searchable.FieldType,
		"the pattern with more literal segments wins at equal anchor depth")
}

func TestResolveAmbiguousAtEqualSpecificity(t *testing.T) {
	graph := loadGraph(t, `
namespace com.example

record Inner {
  leaf: string
}

@Searchable = {
  "/outer/*": { "fieldType": "KEYWORD" },
  "/*/leaf": { "fieldType": "TEXT" }
}
@Aspect = { "name": "wrapper" }
record Wrapper {
  outer: Inner
}
`, registry.EntityBinding{Name: "dataset", KeyAspect: "wrapper", Aspects: []string{"wrapper"}})

	set, errs := Resolve(graph, DefaultOptions())
	assert.Nil(t, set)
	require.True(t, errs.HasErrors())
	assert.True(t, hasCode(errs, cerrors.CodeAmbiguousAnnotation))
}

func TestResolveDuplicateDirectDeclarationsAreAmbiguous(t *testing.T) {
	graph := loadGraph(t, `
namespace com.example

@Aspect = { "name": "props" }
record Props {
  @Searchable = { "fieldType": "TEXT" }
  @Searchable = { "fieldType": "KEYWORD" }
  name: string
}
`, registry.EntityBinding{Name: "dataset", KeyAspect: "props", Aspects: []string{"props"}})

	set, errs := Resolve(graph, DefaultOptions())
	assert.Nil(t, set)
	require.True(t, errs.HasErrors())
	assert.True(t, hasCode(errs, cerrors.CodeAmbiguousAnnotation))
}

func TestResolvePathMatchesNothing(t *testing.T) {
	graph := loadGraph(t, `
namespace com.example

@Searchable = { "/noSuchField": { "fieldType": "TEXT" } }
@Aspect = { "name": "props" }
record Props {
  name: string
}
`, registry.EntityBinding{Name: "dataset", KeyAspect: "props", Aspects: []string{"props"}})

	set, errs := Resolve(graph, DefaultOptions())
	assert.Nil(t, set)
	require.True(t, errs.HasErrors())
	assert.True(t, hasCode(errs, cerrors.CodePathNoMatch))
}

func TestResolveRelationshipRequiresUrn(t *testing.T) {
	graph := loadGraph(t, `
namespace com.example

@Aspect = { "name": "props" }
record Props {
  @Relationship = { "name": "OwnedBy", "entityTypes": [ "corpuser" ] }
  ownerName: string
}
`, registry.EntityBinding{Name: "dataset", KeyAspect: "props", Aspects: []string{"props"}})

	set, errs := Resolve(graph, DefaultOptions())
	assert.Nil(t, set)
	require.True(t, errs.HasErrors())
	assert.True(t, hasCode(errs, cerrors.CodeRelationshipNonUrn))
}

func TestResolveRelationshipOnUrnArray(t *testing.T) {
	graph := loadGraph(t, `
namespace com.example

@Aspect = { "name": "ownership" }
record Ownership {
  @Relationship = { "name": "OwnedBy", "entityTypes": [ "corpuser", "corpGroup" ] }
  owners: array[urn]
}
`, registry.EntityBinding{Name: "dataset", KeyAspect: "ownership", Aspects: []string{"ownership"}})

	set := resolveOK(t, graph, DefaultOptions())
	e := entryAt(set, "ownership", "/owners")
	require.NotNil(t, e)
	require.NotNil(t, e.Relationship)
	assert.Equal(t, "OwnedBy", e.Relationship.Name)
}

func TestResolveUnknownAnnotationIsWarning(t *testing.T) {
	graph := loadGraph(t, `
namespace com.example

@Aspect = { "name": "props" }
record Props {
  @Deprecated = { "note": "old" }
  @Searchable = { "fieldType": "TEXT" }
  name: string
}
`, registry.EntityBinding{Name: "dataset", KeyAspect: "props", Aspects: []string{"props"}})

	set, errs := Resolve(graph, DefaultOptions())
	require.NotNil(t, set, "unknown annotation names do not fail the compile")
	assert.True(t, hasCode(errs, cerrors.CodeUnknownAnnotation))
	require.Len(t, errs.Warnings(), 1)
	assert.NotNil(t, entryAt(set, "props", "/name"))
}

func TestResolveUnknownKeyIsWarning(t *testing.T) {
	graph := loadGraph(t, `
namespace com.example

@Aspect = { "name": "props" }
record Props {
  @Searchable = { "fieldType": "TEXT", "addToFilters": true }
  name: string
}
`, registry.EntityBinding{Name: "dataset", KeyAspect: "props", Aspects: []string{"props"}})

	set, errs := Resolve(graph, DefaultOptions())
	require.NotNil(t, set)
	assert.True(t, hasCode(errs, cerrors.CodeUnknownAnnotationKey))
	e := entryAt(set, "props", "/name")
	require.NotNil(t, e)
	assert.Equal(t, FieldTypeText, e.Searchable.FieldType)
}

func TestResolveBadFieldType(t *testing.T) {
	graph := loadGraph(t, `
namespace com.example

@Aspect = { "name": "props" }
record Props {
  @Searchable = { "fieldType": "FANCY" }
  name: string
}
`, registry.EntityBinding{Name: "dataset", KeyAspect: "props", Aspects: []string{"props"}})

	set, errs := Resolve(graph, DefaultOptions())
	assert.Nil(t, set)
	require.True(t, errs.HasErrors())
	assert.True(t, hasCode(errs, cerrors.CodeBadFieldType))
}

func TestResolveRecursiveRecordTerminates(t *testing.T) {
	graph := loadGraph(t, `
namespace com.example

@Aspect = { "name": "treeInfo" }
record TreeInfo {
  @Searchable = { "fieldType": "KEYWORD" }
  name: string
  optional child: TreeInfo
}
`, registry.EntityBinding{Name: "node", KeyAspect: "treeInfo", Aspects: []string{"treeInfo"}})

	set := resolveOK(t, graph, DefaultOptions())
	assert.NotNil(t, entryAt(set, "treeInfo", "/name"))
	assert.Nil(t, entryAt(set, "treeInfo", "/child/name"),
		"recursion stops at the first repeated record on the path")
}

func TestResolveMapWildcard(t *testing.T) {
	graph := loadGraph(t, `
namespace com.example

record Endpoint {
  @Searchable = { "fieldType": "KEYWORD" }
  host: string
}

@Aspect = { "name": "deployments" }
record Deployments {
  byRegion: map[string, Endpoint]
}
`, registry.EntityBinding{Name: "service", KeyAspect: "deployments", Aspects: []string{"deployments"}})

	set := resolveOK(t, graph, DefaultOptions())
	e := entryAt(set, "deployments", "/byRegion/*/host")
	require.NotNil(t, e)
	assert.Equal(t, FieldTypeKeyword, e.Searchable.FieldType)
}

func TestResolveDeterministicOrder(t *testing.T) {
	graph := loadGraph(t, `
namespace com.example

@Aspect = { "name": "zeta" }
record Zeta {
  @Searchable = { "fieldType": "TEXT" }
  b: string
  @Searchable = { "fieldType": "TEXT" }
  a: string
}

@Aspect = { "name": "alpha" }
record Alpha {
  @Searchable = { "fieldType": "TEXT" }
  z: string
}
`, registry.EntityBinding{Name: "thing", KeyAspect: "alpha", Aspects: []string{"alpha", "zeta"}})

	set := resolveOK(t, graph, DefaultOptions())
	var got []string
	for _, e := range set.Entries {
		got = append(got, e.Aspect+":"+e.Path.String())
	}
	assert.Equal(t, []string{"alpha:/z", "zeta:/a", "zeta:/b"}, got,
		"entries are ordered by aspect then path")
}

func TestResolveWildcardEquivalentToNestedDeclaration(t *testing.T) {
	binding := registry.EntityBinding{Name: "dataset", KeyAspect: "schemaMetadata", Aspects: []string{"schemaMetadata"}}

	// Annotations declared inside the element record.
	nested := loadGraph(t, `
namespace com.example

record SchemaField {
  @Searchable = { "fieldType": "KEYWORD" }
  fieldPath: string
  @Searchable = { "fieldType": "TEXT" }
  optional description: string
}

@Aspect = { "name": "schemaMetadata" }
record SchemaMetadata {
  fields: array[SchemaField]
}
`, binding)

	// The same annotations declared as wildcard overrides at the root.
	wildcard := loadGraph(t, `
namespace com.example

record SchemaField {
  fieldPath: string
  optional description: string
}

@Searchable = {
  "/fields/*/fieldPath": { "fieldType": "KEYWORD" },
  "/fields/*/description": { "fieldType": "TEXT" }
}
@Aspect = { "name": "schemaMetadata" }
record SchemaMetadata {
  fields: array[SchemaField]
}
`, binding)

	fromNested := resolveOK(t, nested, DefaultOptions())
	fromWildcard := resolveOK(t, wildcard, DefaultOptions())

	require.Len(t, fromNested.Entries, len(fromWildcard.Entries))
	for i := range fromNested.Entries {
		assert.Equal(t, fromNested.Entries[i].Path.String(), fromWildcard.Entries[i].Path.String())
		assert.Equal(t, fromNested.Entries[i].Searchable, fromWildcard.Entries[i].Searchable)
	}
}
