package annotations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	p, err := ParsePath("/fields/*/fieldPath")
	require.NoError(t, err)
	require.Len(t, p, 3)
	assert.Equal(t, "fields", p[0].Name)
	assert.True(t, p[1].Wildcard)
	assert.Equal(t, "fieldPath", p[2].Name)
	assert.Equal(t, "/fields/*/fieldPath", p.String())
}

func TestParsePathErrors(t *testing.T) {
	_, err := ParsePath("fields/name")
	assert.Error(t, err)

	_, err = ParsePath("/fields//name")
	assert.Error(t, err)

	_, err = ParsePath("/")
	assert.Error(t, err)
}

func TestMatches(t *testing.T) {
	concrete := Path{Literal("fields"), Wildcard, Literal("fieldPath")}

	pattern, err := ParsePath("/fields/*/fieldPath")
	require.NoError(t, err)
	assert.True(t, Matches(pattern, concrete))

	// A pattern literal never matches a container-element step.
	pattern, err = ParsePath("/fields/element/fieldPath")
	require.NoError(t, err)
	assert.False(t, Matches(pattern, concrete))

	// Length must agree exactly.
	pattern, err = ParsePath("/fields/*")
	require.NoError(t, err)
	assert.False(t, Matches(pattern, concrete))

	pattern, err = ParsePath("/fields/*/other")
	require.NoError(t, err)
	assert.False(t, Matches(pattern, concrete))
}

func TestLiterals(t *testing.T) {
	p, err := ParsePath("/a/*/b/*")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Literals())
}

func TestChildDoesNotAliasParent(t *testing.T) {
	parent := Path{Literal("a")}
	c1 := parent.Child(Literal("b"))
	c2 := parent.Child(Literal("c"))
	assert.Equal(t, "/a/b", c1.String())
	assert.Equal(t, "/a/c", c2.String())
}

func TestJoin(t *testing.T) {
	prefix := Path{Literal("owners")}
	suffix, err := ParsePath("/*/owner")
	if err != nil {
		t.Fatal(err)
	}
	joined := Join(prefix, suffix)
	assert.Equal(t, "/owners/*/owner", joined.String())
}
