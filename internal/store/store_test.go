package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lodestar-catalog/lodestar/internal/annotations"
	"github.com/lodestar-catalog/lodestar/internal/generation"
	"github.com/lodestar-catalog/lodestar/internal/registry"
	"github.com/lodestar-catalog/lodestar/internal/urn"
)

const ownershipSchema = `
namespace com.example

enum OwnershipType { TECHNICAL_OWNER BUSINESS_OWNER }

record Owner {
  owner: urn
  type: OwnershipType
}

@Aspect = { "name": "ownership" }
record Ownership {
  owners: array[Owner]
  optional note: string
}
`

func newTestStore(t *testing.T) (*Store, *generation.Publisher) {
	t.Helper()

	gen, errs := generation.Compile(
		[]registry.Source{{Name: "ownership.adl", Text: ownershipSchema}},
		[]registry.EntityBinding{{Name: "dataset", KeyAspect: "ownership", Aspects: []string{"ownership"}}},
		generation.Options{Annotations: annotations.DefaultOptions()},
	)
	require.False(t, errs.HasErrors(), "compile errors: %v", errs.Diagnostics)

	pub := generation.NewPublisher()
	pub.Publish(gen)

	s, err := Open(":memory:", pub, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, pub
}

func validPayload() json.RawMessage {
	return json.RawMessage(`{
		"owners": [
			{ "owner": "urn:lc:corpuser:jdoe", "type": "TECHNICAL_OWNER" }
		],
		"note": "primary on-call"
	}`)
}

func TestWriteAndRead(t *testing.T) {
	s, pub := newTestStore(t)
	ctx := context.Background()
	u := urn.New("dataset", "sales")

	version, err := s.Write(ctx, u, "ownership", validPayload(), "tester")
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	got, err := s.Read(ctx, u, "ownership", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
	assert.False(t, got.Removed)
	assert.JSONEq(t, string(validPayload()), string(got.Payload))
	assert.Equal(t, "tester", got.LastModified.Actor)
	assert.Equal(t, got.Created, got.LastModified, "first version's stamps coincide")
	assert.Equal(t, pub.Current().ID, got.GenerationID)
}

func TestWriteRejectsUnknownField(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	u := urn.New("dataset", "sales")

	_, err := s.Write(ctx, u, "ownership", json.RawMessage(`{
		"owners": [],
		"ownerCount": 3
	}`), "tester")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Problems[0], "/ownerCount")

	_, err = s.Read(ctx, u, "ownership", 0)
	assert.ErrorIs(t, err, ErrNotFound, "a rejected write has no observable effect")
}

func TestWriteToleratesMissingOptional(t *testing.T) {
	s, _ := newTestStore(t)
	u := urn.New("dataset", "sales")

	_, err := s.Write(context.Background(), u, "ownership",
		json.RawMessage(`{ "owners": [] }`), "tester")
	assert.NoError(t, err, "optional fields may be absent")
}

func TestWriteValidationCases(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	u := urn.New("dataset", "sales")

	tests := []struct {
		name    string
		payload string
		problem string
	}{
		{"missing required", `{}`, "/owners"},
		{"bad enum symbol", `{ "owners": [ { "owner": "urn:lc:corpuser:jdoe", "type": "JANITOR" } ] }`, "JANITOR"},
		{"bad urn", `{ "owners": [ { "owner": "not-a-urn", "type": "TECHNICAL_OWNER" } ] }`, "invalid urn"},
		{"wrong type", `{ "owners": [], "note": 7 }`, "/note"},
		{"nested unknown field", `{ "owners": [ { "owner": "urn:lc:corpuser:jdoe", "type": "TECHNICAL_OWNER", "extra": 1 } ] }`, "/owners/0/extra"},
		{"not json", `{{`, "not valid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Write(ctx, u, "ownership", json.RawMessage(tt.payload), "tester")
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Error(), tt.problem)
		})
	}
}

func TestWriteUnknownAspect(t *testing.T) {
	s, _ := newTestStore(t)
	u := urn.New("dataset", "sales")

	_, err := s.Write(context.Background(), u, "noSuchAspect", validPayload(), "tester")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestWriteAspectNotBoundToEntityType(t *testing.T) {
	s, _ := newTestStore(t)
	u := urn.New("chart", "revenue")

	_, err := s.Write(context.Background(), u, "ownership", validPayload(), "tester")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), "not bound")
}

func TestVersionsAppend(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	u := urn.New("dataset", "sales")

	v1, err := s.Write(ctx, u, "ownership", json.RawMessage(`{ "owners": [] }`), "alice")
	require.NoError(t, err)
	v2, err := s.Write(ctx, u, "ownership", validPayload(), "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v1)
	assert.Equal(t, int64(2), v2)

	latest, err := s.Read(ctx, u, "ownership", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), latest.Version)
	assert.Equal(t, "bob", latest.LastModified.Actor)
	assert.Equal(t, "alice", latest.Created.Actor, "creation stamp stays with version 1")

	first, err := s.Read(ctx, u, "ownership", 1)
	require.NoError(t, err)
	assert.JSONEq(t, `{ "owners": [] }`, string(first.Payload))

	history, err := s.History(ctx, u, "ownership")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(1), history[0].Version)
	assert.Equal(t, int64(2), history[1].Version)
}

func TestSoftDelete(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	u := urn.New("dataset", "sales")

	_, err := s.Write(ctx, u, "ownership", validPayload(), "tester")
	require.NoError(t, err)

	dv, err := s.SoftDelete(ctx, u, "ownership", "tester")
	require.NoError(t, err)
	assert.Equal(t, int64(2), dv)

	_, err = s.Read(ctx, u, "ownership", 0)
	assert.ErrorIs(t, err, ErrNotFound, "default read sees the removed marker")

	prior, err := s.Read(ctx, u, "ownership", 1)
	require.NoError(t, err)
	assert.JSONEq(t, string(validPayload()), string(prior.Payload))

	marker, err := s.Read(ctx, u, "ownership", 2)
	require.NoError(t, err)
	assert.True(t, marker.Removed)
	assert.Nil(t, marker.Payload)

	// A later write revives the aspect.
	v3, err := s.Write(ctx, u, "ownership", json.RawMessage(`{ "owners": [] }`), "tester")
	require.NoError(t, err)
	assert.Equal(t, int64(3), v3)

	latest, err := s.Read(ctx, u, "ownership", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), latest.Version)
}

func TestSoftDeleteMissingAspect(t *testing.T) {
	s, _ := newTestStore(t)
	u := urn.New("dataset", "sales")

	_, err := s.SoftDelete(context.Background(), u, "ownership", "tester")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWriteWithoutGeneration(t *testing.T) {
	pub := generation.NewPublisher()
	s, err := Open(":memory:", pub, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Write(context.Background(), urn.New("dataset", "sales"), "ownership", validPayload(), "tester")
	assert.ErrorIs(t, err, ErrNoGeneration)
}

func TestStaleGenerationRejected(t *testing.T) {
	s, pub := newTestStore(t)
	u := urn.New("dataset", "sales")

	// Simulate a write whose validation generation was superseded before the
	// transaction's re-check.
	_, err := s.append(context.Background(), u, "ownership", validPayload(), "tester", false, uuid.New())

	var stale *StaleGenerationError
	require.ErrorAs(t, err, &stale)
	assert.Equal(t, pub.Current().ID, stale.Current)

	_, err = s.Read(context.Background(), u, "ownership", 0)
	assert.True(t, errors.Is(err, ErrNotFound), "a stale write leaves no version behind")
}
