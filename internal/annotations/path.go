// Package annotations resolves Searchable and Relationship annotations over
// a schema graph into a flat, deterministic set of per-path entries for the
// descriptor compilers.
package annotations

import (
	"fmt"
	"strings"
)

// Segment is one step of a field path: a literal field name, or the wildcard
// step that addresses every element of an array or map container.
type Segment struct {
	Name     string
	Wildcard bool
}

// Path is a canonical field path. Wildcard segments appear where the path
// descends into a container's elements, e.g. /fields/*/fieldPath.
type Path []Segment

// Literal builds a literal segment
func Literal(name string) Segment { return Segment{Name: name} }

// Wildcard is the container-element step
var Wildcard = Segment{Name: "*", Wildcard: true}

// Child returns a new path with seg appended; the receiver is not modified
func (p Path) Child(seg Segment) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, seg)
}

// String renders the path as /a/*/b; the empty path renders as /
func (p Path) String() string {
	if len(p) == 0 {
		return "/"
	}
	var sb strings.Builder
	for _, seg := range p {
		sb.WriteByte('/')
		sb.WriteString(seg.Name)
	}
	return sb.String()
}

// Equal reports segment-wise equality
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i].Name != other[i].Name || p[i].Wildcard != other[i].Wildcard {
			return false
		}
	}
	return true
}

// Literals counts non-wildcard segments; used as the specificity tiebreak
// between patterns matching the same concrete path
func (p Path) Literals() int {
	n := 0
	for _, seg := range p {
		if !seg.Wildcard {
			n++
		}
	}
	return n
}

// ParsePath parses a declared annotation path like "/fields/*/fieldPath".
// Paths are relative to the declaring field and must start with '/'.
func ParsePath(s string) (Path, error) {
	if !strings.HasPrefix(s, "/") {
		return nil, fmt.Errorf("annotation path %q must start with '/'", s)
	}
	parts := strings.Split(s[1:], "/")
	path := make(Path, 0, len(parts))
	for _, part := range parts {
		switch {
		case part == "":
			return nil, fmt.Errorf("annotation path %q has an empty segment", s)
		case part == "*":
			path = append(path, Wildcard)
		default:
			path = append(path, Literal(part))
		}
	}
	return path, nil
}

// Matches reports whether the pattern matches the concrete path. Patterns and
// concrete paths must have the same length; a pattern wildcard matches any
// one step, a literal matches only a field name step with that name. The
// container-element step in a concrete path is only matched by a wildcard.
func Matches(pattern, concrete Path) bool {
	if len(pattern) != len(concrete) {
		return false
	}
	for i := range pattern {
		if pattern[i].Wildcard {
			continue
		}
		if concrete[i].Wildcard {
			return false
		}
		if pattern[i].Name != concrete[i].Name {
			return false
		}
	}
	return true
}

// Join concatenates two paths into a new one
func Join(prefix, suffix Path) Path {
	out := make(Path, 0, len(prefix)+len(suffix))
	out = append(out, prefix...)
	out = append(out, suffix...)
	return out
}
