package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no matching aspect version exists
var ErrNotFound = errors.New("aspect not found")

// ErrNoGeneration is returned when a write arrives before any schema
// generation has been published
var ErrNoGeneration = errors.New("no schema generation published")

// ValidationError reports a payload that does not conform to the current
// aspect schema. The write is rejected with no observable effect.
type ValidationError struct {
	Urn      string
	Aspect   string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("aspect %q of %s failed validation: %s",
		e.Aspect, e.Urn, strings.Join(e.Problems, "; "))
}

// StaleGenerationError reports a write that was validated against a schema
// generation superseded during the write. The caller should retry against the
// current generation.
type StaleGenerationError struct {
	Validated uuid.UUID
	Current   uuid.UUID
}

func (e *StaleGenerationError) Error() string {
	return fmt.Sprintf("schema generation %s superseded by %s during write; retry",
		e.Validated, e.Current)
}
