// Package mapping compiles resolved Searchable annotations into the index
// mapping descriptor consumed by the search engine's index-provisioning step.
package mapping

import (
	"fmt"

	cerrors "github.com/lodestar-catalog/lodestar/compiler/errors"
	"github.com/lodestar-catalog/lodestar/internal/annotations"
)

// Analyzer names understood by the index provisioner
const (
	AnalyzerKeyword  = "keyword"
	AnalyzerText     = "text_standard"
	AnalyzerWordGram = "word_gram"
	AnalyzerUrn      = "urn_component"
	AnalyzerNumeric  = "numeric"
	AnalyzerBoolean  = "boolean"
	AnalyzerObject   = "object"
)

// IndexMappingField is one entry of the compiled index mapping descriptor
type IndexMappingField struct {
	FieldName          string                `json:"fieldName"`
	FieldType          annotations.FieldType `json:"fieldType"`
	Analyzer           string                `json:"analyzer"`
	BoostScore         float64               `json:"boostScore"`
	EnableAutocomplete bool                  `json:"enableAutocomplete"`
	QueryByDefault     bool                  `json:"queryByDefault"`
	Aliases            []string              `json:"aliases,omitempty"`

	// EntityNameField marks fields aliased as _entityName; they participate
	// in the cross-entity display name search field.
	EntityNameField bool `json:"entityNameField,omitempty"`

	// HasValuesField marks the synthetic boolean presence field emitted for a
	// hasValuesFieldName declaration.
	HasValuesField bool `json:"hasValuesField,omitempty"`

	SourcePath string `json:"sourcePath"`
	Aspect     string `json:"aspect"`
}

// EntityNameAlias is the reserved alias that opts a field into the shared
// display name search field.
const EntityNameAlias = "_entityName"

// Compile turns the resolved annotation set into the ordered mapping list.
// Input order is already deterministic, so output order is too: base fields in
// (aspect, path) order, each followed by its synthetic presence field.
func Compile(set *annotations.ResolvedSet) ([]IndexMappingField, *cerrors.List) {
	errs := &cerrors.List{}
	var out []IndexMappingField

	// Same output field name from two declarations is fine as long as the
	// index types agree; disagreement would provision one physical field two
	// ways.
	seen := make(map[string]annotations.FieldType)

	emit := func(f IndexMappingField) {
		if prev, ok := seen[f.FieldName]; ok {
			if prev != f.FieldType {
				errs.Add(cerrors.New("mapping", cerrors.CodeMappingConflict, cerrors.CompileConflict,
					fmt.Sprintf("field name %q mapped as both %s and %s", f.FieldName, prev, f.FieldType),
					cerrors.SourceLocation{}))
				return
			}
		} else {
			seen[f.FieldName] = f.FieldType
		}
		out = append(out, f)
	}

	for _, entry := range set.Entries {
		s := entry.Searchable
		if s == nil {
			continue
		}

		name := s.FieldName
		if name == "" {
			name = defaultFieldName(entry.Path)
		}

		f := IndexMappingField{
			FieldName:          name,
			FieldType:          s.FieldType,
			Analyzer:           analyzerFor(s.FieldType),
			BoostScore:         s.BoostScore,
			EnableAutocomplete: s.EnableAutocomplete || s.FieldType == annotations.FieldTypeWordGram,
			QueryByDefault:     queryByDefault(s),
			Aliases:            s.FieldNameAliases,
			EntityNameField:    hasAlias(s.FieldNameAliases, EntityNameAlias),
			SourcePath:         entry.Path.String(),
			Aspect:             entry.Aspect,
		}
		emit(f)

		if s.HasValuesFieldName != "" {
			emit(IndexMappingField{
				FieldName:      s.HasValuesFieldName,
				FieldType:      annotations.FieldTypeBoolean,
				Analyzer:       AnalyzerBoolean,
				BoostScore:     1.0,
				QueryByDefault: false,
				HasValuesField: true,
				SourcePath:     entry.Path.String(),
				Aspect:         entry.Aspect,
			})
		}
	}

	if errs.HasErrors() {
		return nil, errs
	}
	return out, errs
}

// defaultFieldName derives the output name from the last literal path segment
func defaultFieldName(p annotations.Path) string {
	for i := len(p) - 1; i >= 0; i-- {
		if !p[i].Wildcard {
			return p[i].Name
		}
	}
	return ""
}

func analyzerFor(ft annotations.FieldType) string {
	switch ft {
	case annotations.FieldTypeKeyword:
		return AnalyzerKeyword
	case annotations.FieldTypeText:
		return AnalyzerText
	case annotations.FieldTypeWordGram:
		return AnalyzerWordGram
	case annotations.FieldTypeUrn:
		return AnalyzerUrn
	case annotations.FieldTypeDatetime, annotations.FieldTypeCount:
		return AnalyzerNumeric
	case annotations.FieldTypeBoolean:
		return AnalyzerBoolean
	default:
		return AnalyzerObject
	}
}

// queryByDefault honors an explicit setting and otherwise includes the field
// in default query scope
func queryByDefault(s *annotations.Searchable) bool {
	if s.QueryByDefault != nil {
		return *s.QueryByDefault
	}
	return true
}

func hasAlias(aliases []string, want string) bool {
	for _, a := range aliases {
		if a == want {
			return true
		}
	}
	return false
}
