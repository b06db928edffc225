// Package store implements the versioned aspect store: append-only sqlite
// storage of aspect payloads, validated against the currently-published
// schema generation.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/lodestar-catalog/lodestar/internal/generation"
	"github.com/lodestar-catalog/lodestar/internal/urn"
)

// AuditStamp records who touched a version and when
type AuditStamp struct {
	Actor string    `json:"actor"`
	Time  time.Time `json:"time"`
}

// VersionedAspect is one stored aspect version with its audit metadata
type VersionedAspect struct {
	Urn     urn.Urn         `json:"urn"`
	Aspect  string          `json:"aspect"`
	Version int64           `json:"version"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Removed bool            `json:"removed,omitempty"`

	// Created is the stamp of version 1; LastModified is this version's stamp.
	Created      AuditStamp `json:"created"`
	LastModified AuditStamp `json:"lastModified"`

	// GenerationID names the schema generation the payload validated against
	GenerationID uuid.UUID `json:"generationId"`
}

// Store is the sqlite-backed versioned aspect store
type Store struct {
	db  *sql.DB
	pub *generation.Publisher
	log *zap.Logger
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS aspect_versions (
	urn           TEXT    NOT NULL,
	aspect        TEXT    NOT NULL,
	version       INTEGER NOT NULL,
	payload       TEXT,
	removed       INTEGER NOT NULL DEFAULT 0,
	actor         TEXT    NOT NULL,
	created_at    INTEGER NOT NULL,
	generation_id TEXT    NOT NULL,
	PRIMARY KEY (urn, aspect, version)
);
`

// Open opens or creates the store at path. Use ":memory:" for tests.
func Open(path string, pub *generation.Publisher, log *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	// sqlite allows one writer; serialize access through a single connection
	// so concurrent writes queue instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize store schema: %w", err)
	}

	return &Store{db: db, pub: pub, log: log}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Write validates payload against the current generation and appends a new
// version. The generation is re-checked inside the transaction; a swap racing
// the write yields StaleGenerationError rather than a write validated against
// a discarded schema.
func (s *Store) Write(ctx context.Context, u urn.Urn, aspect string, payload json.RawMessage, actor string) (int64, error) {
	gen := s.pub.Current()
	if gen == nil {
		return 0, ErrNoGeneration
	}

	schema := gen.Schemas.Aspect(aspect)
	if schema == nil {
		return 0, &ValidationError{Urn: u.String(), Aspect: aspect,
			Problems: []string{"no such aspect in the current schema"}}
	}
	if !bound(schema.EntityTypes, u.EntityType) {
		return 0, &ValidationError{Urn: u.String(), Aspect: aspect,
			Problems: []string{fmt.Sprintf("aspect is not bound to entity type %q", u.EntityType)}}
	}
	if problems := validatePayload(schema, payload); len(problems) > 0 {
		return 0, &ValidationError{Urn: u.String(), Aspect: aspect, Problems: problems}
	}

	version, err := s.append(ctx, u, aspect, payload, actor, false, gen.ID)
	if err != nil {
		return 0, err
	}

	s.log.Info("aspect written",
		zap.String("urn", u.String()),
		zap.String("aspect", aspect),
		zap.Int64("version", version))
	return version, nil
}

// SoftDelete appends a removed marker version. History stays; default reads
// return ErrNotFound until a later write revives the aspect.
func (s *Store) SoftDelete(ctx context.Context, u urn.Urn, aspect string, actor string) (int64, error) {
	gen := s.pub.Current()
	if gen == nil {
		return 0, ErrNoGeneration
	}

	latest, err := s.latestVersion(ctx, u, aspect)
	if err != nil {
		return 0, err
	}
	if latest == 0 {
		return 0, ErrNotFound
	}

	version, err := s.append(ctx, u, aspect, nil, actor, true, gen.ID)
	if err != nil {
		return 0, err
	}

	s.log.Info("aspect soft-deleted",
		zap.String("urn", u.String()),
		zap.String("aspect", aspect),
		zap.Int64("version", version))
	return version, nil
}

// append inserts the next version inside one transaction
func (s *Store) append(ctx context.Context, u urn.Urn, aspect string, payload json.RawMessage, actor string, removed bool, validatedGen uuid.UUID) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin write: %w", err)
	}
	defer tx.Rollback()

	// Swap window check: the generation we validated against must still be
	// the published one. The publisher is an in-process pointer outside the
	// transaction, so a publish landing between this check and Commit can
	// still slip through; the check narrows the window to the insert itself
	// and catches any swap that completed before the write started.
	if current := s.pub.Current(); current == nil || current.ID != validatedGen {
		currentID := uuid.Nil
		if current != nil {
			currentID = current.ID
		}
		return 0, &StaleGenerationError{Validated: validatedGen, Current: currentID}
	}

	var version int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM aspect_versions WHERE urn = ? AND aspect = ?`,
		u.String(), aspect).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate version: %w", err)
	}

	var payloadText any
	if payload != nil {
		payloadText = string(payload)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO aspect_versions (urn, aspect, version, payload, removed, actor, created_at, generation_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.String(), aspect, version, payloadText, removed, actor,
		time.Now().UTC().UnixMilli(), validatedGen.String())
	if err != nil {
		return 0, fmt.Errorf("failed to append version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit write: %w", err)
	}
	return version, nil
}

// Read returns one aspect version. With version 0 it returns the latest
// version, or ErrNotFound when the latest is a removed marker. An explicit
// version retrieves anything in history, removed markers included.
func (s *Store) Read(ctx context.Context, u urn.Urn, aspect string, version int64) (*VersionedAspect, error) {
	query := `SELECT version, payload, removed, actor, created_at, generation_id
		FROM aspect_versions WHERE urn = ? AND aspect = ?`
	args := []any{u.String(), aspect}
	if version > 0 {
		query += ` AND version = ?`
		args = append(args, version)
	} else {
		query += ` ORDER BY version DESC LIMIT 1`
	}

	row := s.db.QueryRowContext(ctx, query, args...)

	var (
		out        VersionedAspect
		payload    sql.NullString
		createdAt  int64
		generation string
	)
	err := row.Scan(&out.Version, &payload, &out.Removed, &out.LastModified.Actor, &createdAt, &generation)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read aspect: %w", err)
	}

	if version == 0 && out.Removed {
		return nil, ErrNotFound
	}

	out.Urn = u
	out.Aspect = aspect
	if payload.Valid {
		out.Payload = json.RawMessage(payload.String)
	}
	out.LastModified.Time = time.UnixMilli(createdAt).UTC()
	if out.GenerationID, err = uuid.Parse(generation); err != nil {
		return nil, fmt.Errorf("corrupt generation id %q: %w", generation, err)
	}

	if err := s.fillCreated(ctx, u, aspect, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History returns every stored version, oldest first
func (s *Store) History(ctx context.Context, u urn.Urn, aspect string) ([]VersionedAspect, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT version, payload, removed, actor, created_at, generation_id
		 FROM aspect_versions WHERE urn = ? AND aspect = ? ORDER BY version ASC`,
		u.String(), aspect)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer rows.Close()

	var out []VersionedAspect
	var created AuditStamp
	for rows.Next() {
		var (
			va         VersionedAspect
			payload    sql.NullString
			createdAt  int64
			generation string
		)
		if err := rows.Scan(&va.Version, &payload, &va.Removed, &va.LastModified.Actor, &createdAt, &generation); err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		va.Urn = u
		va.Aspect = aspect
		if payload.Valid {
			va.Payload = json.RawMessage(payload.String)
		}
		va.LastModified.Time = time.UnixMilli(createdAt).UTC()
		if va.GenerationID, err = uuid.Parse(generation); err != nil {
			return nil, fmt.Errorf("corrupt generation id %q: %w", generation, err)
		}
		if va.Version == 1 {
			created = va.LastModified
		}
		va.Created = created
		out = append(out, va)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// fillCreated loads the version-1 stamp into out.Created
func (s *Store) fillCreated(ctx context.Context, u urn.Urn, aspect string, out *VersionedAspect) error {
	var (
		actor     string
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT actor, created_at FROM aspect_versions WHERE urn = ? AND aspect = ? AND version = 1`,
		u.String(), aspect).Scan(&actor, &createdAt)
	if err != nil {
		return fmt.Errorf("failed to read creation stamp: %w", err)
	}
	out.Created = AuditStamp{Actor: actor, Time: time.UnixMilli(createdAt).UTC()}
	return nil
}

// latestVersion returns the highest stored version, or 0 when none exists
func (s *Store) latestVersion(ctx context.Context, u urn.Urn, aspect string) (int64, error) {
	var version int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM aspect_versions WHERE urn = ? AND aspect = ?`,
		u.String(), aspect).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to query latest version: %w", err)
	}
	return version, nil
}

func bound(entityTypes []string, want string) bool {
	for _, et := range entityTypes {
		if et == want {
			return true
		}
	}
	return false
}
