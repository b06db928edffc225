package annotations

import (
	"errors"
	"fmt"
	"sort"

	"github.com/lodestar-catalog/lodestar/compiler/parser"
)

// ErrBadFieldType marks an unrecognized Searchable fieldType so the resolver
// can report it under its own code.
var ErrBadFieldType = errors.New("unknown fieldType")

// FieldType is the index field type requested by a Searchable annotation
type FieldType string

const (
	FieldTypeKeyword  FieldType = "KEYWORD"
	FieldTypeText     FieldType = "TEXT"
	FieldTypeWordGram FieldType = "WORD_GRAM"
	FieldTypeUrn      FieldType = "URN"
	FieldTypeDatetime FieldType = "DATETIME"
	FieldTypeBoolean  FieldType = "BOOLEAN"
	FieldTypeCount    FieldType = "COUNT"
	FieldTypeObject   FieldType = "OBJECT"
)

// ParseFieldType validates a fieldType string
func ParseFieldType(s string) (FieldType, error) {
	switch FieldType(s) {
	case FieldTypeKeyword, FieldTypeText, FieldTypeWordGram, FieldTypeUrn,
		FieldTypeDatetime, FieldTypeBoolean, FieldTypeCount, FieldTypeObject:
		return FieldType(s), nil
	default:
		return "", fmt.Errorf("%w %q", ErrBadFieldType, s)
	}
}

// Searchable is the typed form of an @Searchable annotation. Every recognized
// key is an explicit field; unknown keys surface as warnings at parse time.
type Searchable struct {
	FieldType          FieldType
	FieldName          string
	FieldNameAliases   []string
	BoostScore         float64
	EnableAutocomplete bool
	HasValuesFieldName string
	QueryByDefault     *bool // nil means derive from field type
}

// Relationship is the typed form of an @Relationship annotation
type Relationship struct {
	Name        string
	EntityTypes []string
	IsLineage   bool
}

// parseSearchable converts a flat annotation object into a Searchable.
// Unknown keys are returned for warning reporting.
func parseSearchable(obj *parser.ObjectValue) (*Searchable, []string, error) {
	s := &Searchable{BoostScore: 1.0}
	var unknown []string

	for _, key := range obj.Keys {
		val := obj.Entries[key]
		switch key {
		case "fieldType":
			sv, ok := val.(*parser.StringValue)
			if !ok {
				return nil, nil, fmt.Errorf("fieldType must be a string")
			}
			ft, err := ParseFieldType(sv.Val)
			if err != nil {
				return nil, nil, err
			}
			s.FieldType = ft
		case "fieldName":
			sv, ok := val.(*parser.StringValue)
			if !ok {
				return nil, nil, fmt.Errorf("fieldName must be a string")
			}
			s.FieldName = sv.Val
		case "fieldNameAliases":
			lv, ok := val.(*parser.ListValue)
			if !ok {
				return nil, nil, fmt.Errorf("fieldNameAliases must be a list of strings")
			}
			for _, item := range lv.Items {
				sv, ok := item.(*parser.StringValue)
				if !ok {
					return nil, nil, fmt.Errorf("fieldNameAliases must be a list of strings")
				}
				s.FieldNameAliases = append(s.FieldNameAliases, sv.Val)
			}
		case "boostScore":
			nv, ok := val.(*parser.NumberValue)
			if !ok {
				return nil, nil, fmt.Errorf("boostScore must be a number")
			}
			s.BoostScore = nv.Val
		case "enableAutocomplete":
			bv, ok := val.(*parser.BoolValue)
			if !ok {
				return nil, nil, fmt.Errorf("enableAutocomplete must be a boolean")
			}
			s.EnableAutocomplete = bv.Val
		case "hasValuesFieldName":
			sv, ok := val.(*parser.StringValue)
			if !ok {
				return nil, nil, fmt.Errorf("hasValuesFieldName must be a string")
			}
			s.HasValuesFieldName = sv.Val
		case "queryByDefault":
			bv, ok := val.(*parser.BoolValue)
			if !ok {
				return nil, nil, fmt.Errorf("queryByDefault must be a boolean")
			}
			v := bv.Val
			s.QueryByDefault = &v
		default:
			unknown = append(unknown, key)
		}
	}

	if s.FieldType == "" {
		return nil, nil, fmt.Errorf("Searchable annotation needs a fieldType")
	}
	return s, unknown, nil
}

// parseRelationship converts a flat annotation object into a Relationship
func parseRelationship(obj *parser.ObjectValue) (*Relationship, []string, error) {
	r := &Relationship{}
	var unknown []string

	for _, key := range obj.Keys {
		val := obj.Entries[key]
		switch key {
		case "name":
			sv, ok := val.(*parser.StringValue)
			if !ok {
				return nil, nil, fmt.Errorf("name must be a string")
			}
			r.Name = sv.Val
		case "entityTypes":
			lv, ok := val.(*parser.ListValue)
			if !ok {
				return nil, nil, fmt.Errorf("entityTypes must be a list of strings")
			}
			for _, item := range lv.Items {
				sv, ok := item.(*parser.StringValue)
				if !ok {
					return nil, nil, fmt.Errorf("entityTypes must be a list of strings")
				}
				r.EntityTypes = append(r.EntityTypes, sv.Val)
			}
		case "isLineage":
			bv, ok := val.(*parser.BoolValue)
			if !ok {
				return nil, nil, fmt.Errorf("isLineage must be a boolean")
			}
			r.IsLineage = bv.Val
		default:
			unknown = append(unknown, key)
		}
	}

	if r.Name == "" {
		return nil, nil, fmt.Errorf("Relationship annotation needs a name")
	}
	if len(r.EntityTypes) == 0 {
		return nil, nil, fmt.Errorf("Relationship annotation needs entityTypes")
	}
	sort.Strings(r.EntityTypes)
	return r, unknown, nil
}

// splitAnnotationObject separates the flat keys of an annotation object from
// its path-qualified sub-maps. A nil flat part means the object declared only
// path overrides.
func splitAnnotationObject(obj *parser.ObjectValue) (flat *parser.ObjectValue, paths []pathEntry, err error) {
	for _, key := range obj.Keys {
		val := obj.Entries[key]
		if len(key) > 0 && key[0] == '/' {
			p, perr := ParsePath(key)
			if perr != nil {
				return nil, nil, perr
			}
			entry := pathEntry{pattern: p, loc: val.Location()}
			switch v := val.(type) {
			case *parser.NullValue:
				entry.null = true
			case *parser.ObjectValue:
				entry.value = v
			default:
				return nil, nil, fmt.Errorf("path key %q must map to an object or null", key)
			}
			paths = append(paths, entry)
			continue
		}

		if flat == nil {
			flat = &parser.ObjectValue{Entries: make(map[string]parser.Value), Loc: obj.Loc}
		}
		flat.Keys = append(flat.Keys, key)
		flat.Entries[key] = val
	}
	return flat, paths, nil
}

// pathEntry is one path-qualified override inside an annotation object
type pathEntry struct {
	pattern Path
	value   *parser.ObjectValue // nil when null
	null    bool
	loc     parser.SourceLocation
}
