package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lodestar-catalog/lodestar/internal/annotations"
	"github.com/lodestar-catalog/lodestar/internal/generation"
	"github.com/lodestar-catalog/lodestar/internal/registry"
	"github.com/lodestar-catalog/lodestar/internal/store"
)

const testSchema = `
namespace com.example

@Aspect = { "name": "domainProperties" }
record DomainProperties {
  @Searchable = { "fieldType": "WORD_GRAM", "fieldNameAliases": [ "_entityName" ] }
  name: string

  @Relationship = { "name": "IsPartOf", "entityTypes": [ "domain" ] }
  @Searchable = { "fieldType": "URN" }
  optional parentDomain: urn
}
`

func newTestServer(t *testing.T) *Server {
	t.Helper()

	gen, errs := generation.Compile(
		[]registry.Source{{Name: "domain.adl", Text: testSchema}},
		[]registry.EntityBinding{{Name: "domain", KeyAspect: "domainProperties", Aspects: []string{"domainProperties"}}},
		generation.Options{Annotations: annotations.DefaultOptions()},
	)
	require.False(t, errs.HasErrors(), "compile errors: %v", errs.Diagnostics)

	pub := generation.NewPublisher()
	pub.Publish(gen)

	st, err := store.Open(":memory:", pub, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return New(st, pub, zap.NewNop())
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestWriteReadDeleteRoundtrip(t *testing.T) {
	s := newTestServer(t)
	path := "/v1/entity/urn:lc:domain:marketing/aspect/domainProperties"

	rec := doRequest(t, s, http.MethodPut, path, `{ "name": "Marketing" }`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var writeResp struct {
		Version int64 `json:"version"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &writeResp))
	assert.Equal(t, int64(1), writeResp.Version)

	rec = doRequest(t, s, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var readResp struct {
		Version int64           `json:"version"`
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &readResp))
	assert.Equal(t, int64(1), readResp.Version)
	assert.JSONEq(t, `{ "name": "Marketing" }`, string(readResp.Payload))

	rec = doRequest(t, s, http.MethodDelete, path, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "default read sees the removed marker")

	rec = doRequest(t, s, http.MethodGet, path+"?version=1", "")
	assert.Equal(t, http.StatusOK, rec.Code, "history stays retrievable by explicit version")
}

func TestWriteValidationFailure(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPut,
		"/v1/entity/urn:lc:domain:marketing/aspect/domainProperties",
		`{ "name": "Marketing", "bogus": 1 }`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Problems []string `json:"problems"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Problems)
	assert.Contains(t, resp.Problems[0], "/bogus")
}

func TestReadUnknownAspect(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet,
		"/v1/entity/urn:lc:domain:marketing/aspect/domainProperties", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBadUrnAndVersion(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/v1/entity/not-a-urn/aspect/domainProperties", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodGet,
		"/v1/entity/urn:lc:domain:marketing/aspect/domainProperties?version=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDescriptorEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/v1/descriptors/mappings", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var mappings struct {
		GenerationID string `json:"generationId"`
		Mappings     []struct {
			FieldName string `json:"fieldName"`
		} `json:"mappings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mappings))
	assert.NotEmpty(t, mappings.GenerationID)
	require.Len(t, mappings.Mappings, 2)
	assert.Equal(t, "name", mappings.Mappings[0].FieldName)

	rec = doRequest(t, s, http.MethodGet, "/v1/descriptors/edges", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var edges struct {
		Edges []struct {
			Name string `json:"name"`
		} `json:"edges"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &edges))
	require.Len(t, edges.Edges, 1)
	assert.Equal(t, "IsPartOf", edges.Edges[0].Name)
}

func TestDescriptorsBeforeFirstGeneration(t *testing.T) {
	pub := generation.NewPublisher()
	st, err := store.Open(":memory:", pub, zap.NewNop())
	require.NoError(t, err)
	defer st.Close()

	s := New(st, pub, zap.NewNop())
	rec := doRequest(t, s, http.MethodGet, "/v1/descriptors/mappings", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
