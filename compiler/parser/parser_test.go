package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodestar-catalog/lodestar/compiler/lexer"
)

func parseSource(t *testing.T, source string) (*File, []ParseError) {
	t.Helper()
	tokens, lexErrs := lexer.New(source, "test.adl").ScanTokens()
	require.Empty(t, lexErrs, "lexer errors")
	return New(tokens).Parse()
}

func mustParse(t *testing.T, source string) *File {
	t.Helper()
	file, errs := parseSource(t, source)
	require.Empty(t, errs, "parse errors")
	return file
}

func TestParseNamespaceAndImports(t *testing.T) {
	file := mustParse(t, `
namespace com.example.domains

import com.example.common.AuditStamp
import com.example.common.CustomProperties

record Empty {}
`)

	assert.Equal(t, "com.example.domains", file.Namespace)
	assert.Equal(t, []string{
		"com.example.common.AuditStamp",
		"com.example.common.CustomProperties",
	}, file.Imports)
	require.Len(t, file.Records, 1)
	assert.Equal(t, "Empty", file.Records[0].Name)
}

func TestParseRecordWithFields(t *testing.T) {
	file := mustParse(t, `
namespace com.example

record DomainProperties {
  name: string
  optional description: string
  created: com.example.common.AuditStamp
  tags: array[string]
  properties: map[string, string]
  optional parent: urn
}
`)

	require.Len(t, file.Records, 1)
	rec := file.Records[0]
	require.Len(t, rec.Fields, 6)

	assert.Equal(t, "name", rec.Fields[0].Name)
	assert.False(t, rec.Fields[0].Optional)
	assert.IsType(t, &PrimitiveType{}, rec.Fields[0].Type)

	assert.Equal(t, "description", rec.Fields[1].Name)
	assert.True(t, rec.Fields[1].Optional)

	named, ok := rec.Fields[2].Type.(*NamedType)
	require.True(t, ok)
	assert.Equal(t, "com.example.common.AuditStamp", named.Name)

	arr, ok := rec.Fields[3].Type.(*ArrayType)
	require.True(t, ok)
	assert.Equal(t, "string", arr.Element.String())

	_, ok = rec.Fields[4].Type.(*MapType)
	require.True(t, ok)

	_, ok = rec.Fields[5].Type.(*UrnType)
	require.True(t, ok)
}

func TestParseIncludes(t *testing.T) {
	file := mustParse(t, `
record DomainProperties includes CustomProperties, com.example.Versioned {
  name: string
}
`)

	require.Len(t, file.Records, 1)
	assert.Equal(t, []string{"CustomProperties", "com.example.Versioned"}, file.Records[0].Includes)
}

func TestParseEnum(t *testing.T) {
	file := mustParse(t, `
/// Assertion run outcomes.
enum AssertionResultType {
  SUCCESS
  FAILURE
  ERROR
}
`)

	require.Len(t, file.Enums, 1)
	en := file.Enums[0]
	assert.Equal(t, "AssertionResultType", en.Name)
	assert.Equal(t, []string{"SUCCESS", "FAILURE", "ERROR"}, en.Symbols)
	assert.Equal(t, "Assertion run outcomes.", en.Doc)
}

func TestParseAspectAnnotation(t *testing.T) {
	file := mustParse(t, `
@Aspect = { "name": "domainProperties" }
record DomainProperties {
  name: string
}
`)

	require.Len(t, file.Records, 1)
	rec := file.Records[0]
	require.Len(t, rec.Annotations, 1)
	assert.Equal(t, "Aspect", rec.Annotations[0].Name)

	obj, ok := rec.Annotations[0].Value.(*ObjectValue)
	require.True(t, ok)
	name, ok := obj.Get("name").(*StringValue)
	require.True(t, ok)
	assert.Equal(t, "domainProperties", name.Val)
}

func TestParseFieldAnnotations(t *testing.T) {
	file := mustParse(t, `
record DomainProperties {
  @Searchable = {
    "fieldType": "WORD_GRAM",
    "enableAutocomplete": true,
    "boostScore": 10.0,
    "fieldNameAliases": [ "_entityName" ]
  }
  name: string

  @Relationship = { "name": "IsPartOf", "entityTypes": [ "domain" ] }
  @Searchable = { "fieldType": "URN", "hasValuesFieldName": "hasParentDomain" }
  optional parentDomain: urn
}
`)

	rec := file.Records[0]
	require.Len(t, rec.Fields, 2)

	nameField := rec.Fields[0]
	require.Len(t, nameField.Annotations, 1)
	obj := nameField.Annotations[0].Value.(*ObjectValue)
	assert.Equal(t, []string{"fieldType", "enableAutocomplete", "boostScore", "fieldNameAliases"}, obj.Keys)

	boost, ok := obj.Get("boostScore").(*NumberValue)
	require.True(t, ok)
	assert.Equal(t, 10.0, boost.Val)

	aliases, ok := obj.Get("fieldNameAliases").(*ListValue)
	require.True(t, ok)
	require.Len(t, aliases.Items, 1)

	parentField := rec.Fields[1]
	require.Len(t, parentField.Annotations, 2)
	assert.Equal(t, "Relationship", parentField.Annotations[0].Name)
	assert.Equal(t, "Searchable", parentField.Annotations[1].Name)
	assert.True(t, parentField.Optional)
}

func TestParsePathQualifiedAnnotation(t *testing.T) {
	file := mustParse(t, `
record SchemaMetadata {
  @Searchable = {
    "/fields/*/fieldPath": { "fieldType": "KEYWORD" },
    "/fields/*/description": null
  }
  fields: array[SchemaField]
}
`)

	rec := file.Records[0]
	obj := rec.Fields[0].Annotations[0].Value.(*ObjectValue)
	require.Equal(t, []string{"/fields/*/fieldPath", "/fields/*/description"}, obj.Keys)

	nested, ok := obj.Get("/fields/*/fieldPath").(*ObjectValue)
	require.True(t, ok)
	assert.True(t, nested.Has("fieldType"))

	_, ok = obj.Get("/fields/*/description").(*NullValue)
	assert.True(t, ok, "explicit null should parse as NullValue")
}

func TestParseUnionType(t *testing.T) {
	file := mustParse(t, `
record AssertionInfo {
  source: union[DatasetAssertion, FieldAssertion]
}
`)

	union, ok := file.Records[0].Fields[0].Type.(*UnionType)
	require.True(t, ok)
	assert.Len(t, union.Members, 2)
}

func TestParseDocComments(t *testing.T) {
	file := mustParse(t, `
/// A named grouping of catalog assets.
/// Domains nest through parentDomain.
@Aspect = { "name": "domainProperties" }
record DomainProperties {
  /// Display name.
  name: string
}
`)

	rec := file.Records[0]
	assert.Equal(t, "A named grouping of catalog assets.\nDomains nest through parentDomain.", rec.Doc)
	assert.Equal(t, "Display name.", rec.Fields[0].Doc)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"missing colon", `record Foo { name string }`},
		{"missing record name", `record { name: string }`},
		{"bad map key", `record Foo { props: map[int, string] }`},
		{"single member union", `record Foo { x: union[string] }`},
		{"annotation without value", `record Foo { @Searchable name: string }`},
		{"non-string object key", `record Foo { @Searchable = { fieldType: "TEXT" } name: string }`},
		{"duplicate object key", `record Foo { @Searchable = { "fieldType": "TEXT", "fieldType": "KEYWORD" } name: string }`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, lexErrs := lexer.New(tt.source, "test.adl").ScanTokens()
			require.Empty(t, lexErrs)
			_, errs := New(tokens).Parse()
			assert.NotEmpty(t, errs, "expected parse errors")
		})
	}
}

func TestParseRecoversAfterBadField(t *testing.T) {
	source := `
record Foo {
  broken field here
  name: string
}

record Bar {
  id: long
}
`
	file, errs := parseSource(t, source)
	assert.NotEmpty(t, errs)
	// The parser should still surface both records
	assert.Len(t, file.Records, 2)
}
