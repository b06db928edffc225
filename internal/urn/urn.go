// Package urn implements the typed entity identifier used across the catalog.
// A urn has the form urn:lc:<entityType>:<key> where key is either a single
// segment or a parenthesized tuple: urn:lc:dataset:(platform,db.table,PROD).
package urn

import (
	"fmt"
	"strings"
)

// Prefix is the scheme every catalog urn starts with
const Prefix = "urn:lc:"

// Urn is a parsed entity identifier
type Urn struct {
	EntityType string
	Key        []string
}

// New builds a Urn from an entity type and key tuple
func New(entityType string, key ...string) Urn {
	return Urn{EntityType: entityType, Key: key}
}

// Parse parses a urn string
func Parse(s string) (Urn, error) {
	if !strings.HasPrefix(s, Prefix) {
		return Urn{}, fmt.Errorf("urn %q: missing %q prefix", s, Prefix)
	}

	rest := s[len(Prefix):]
	idx := strings.IndexByte(rest, ':')
	if idx <= 0 {
		return Urn{}, fmt.Errorf("urn %q: missing entity type or key", s)
	}

	entityType := rest[:idx]
	keyPart := rest[idx+1:]
	if keyPart == "" {
		return Urn{}, fmt.Errorf("urn %q: empty key", s)
	}

	if !validName(entityType) {
		return Urn{}, fmt.Errorf("urn %q: invalid entity type %q", s, entityType)
	}

	var key []string
	if strings.HasPrefix(keyPart, "(") {
		if !strings.HasSuffix(keyPart, ")") {
			return Urn{}, fmt.Errorf("urn %q: unbalanced key tuple", s)
		}
		inner := keyPart[1 : len(keyPart)-1]
		if inner == "" {
			return Urn{}, fmt.Errorf("urn %q: empty key tuple", s)
		}
		key = strings.Split(inner, ",")
		for _, part := range key {
			if part == "" {
				return Urn{}, fmt.Errorf("urn %q: empty key tuple segment", s)
			}
		}
	} else {
		key = []string{keyPart}
	}

	return Urn{EntityType: entityType, Key: key}, nil
}

// String serializes the urn
func (u Urn) String() string {
	if len(u.Key) == 1 {
		return Prefix + u.EntityType + ":" + u.Key[0]
	}
	return Prefix + u.EntityType + ":(" + strings.Join(u.Key, ",") + ")"
}

// IsZero reports whether the urn is the zero value
func (u Urn) IsZero() bool {
	return u.EntityType == "" && len(u.Key) == 0
}

// Validate checks that a string is a well-formed urn
func Validate(s string) error {
	_, err := Parse(s)
	return err
}

// validName accepts lowerCamel entity type names: letters, digits,
// underscores, starting with a letter
func validName(s string) bool {
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return len(s) > 0
}
