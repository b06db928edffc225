package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/lodestar-catalog/lodestar/compiler/parser"
	"github.com/lodestar-catalog/lodestar/internal/registry"
	"github.com/lodestar-catalog/lodestar/internal/urn"
)

// validatePayload checks a JSON payload against an aspect's record schema.
// Unknown fields are rejected, missing optional fields are tolerated, enum
// symbols and urn values are checked, and nested records, arrays, and maps
// validate recursively.
func validatePayload(schema *registry.AspectSchema, payload []byte) []string {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return []string{fmt.Sprintf("payload is not valid JSON: %v", err)}
	}

	var problems []string
	checkRecord(schema.Record, root, "", &problems)
	return problems
}

func checkRecord(rec *registry.RecordType, v any, path string, problems *[]string) {
	obj, ok := v.(map[string]any)
	if !ok {
		add(problems, path, "expected an object for record %s", rec.Name)
		return
	}

	for key, val := range obj {
		field := rec.Field(key)
		if field == nil {
			add(problems, path+"/"+key, "unknown field")
			continue
		}
		checkValue(field.Type, val, path+"/"+key, problems)
	}

	for _, field := range rec.Fields {
		if field.Optional {
			continue
		}
		if _, present := obj[field.Name]; !present {
			add(problems, path+"/"+field.Name, "required field is missing")
		}
	}
}

func checkValue(t *registry.Type, v any, path string, problems *[]string) {
	if v == nil {
		add(problems, path, "null is not a legal field value; omit optional fields instead")
		return
	}

	switch t.Kind {
	case registry.KindPrimitive:
		checkPrimitive(t.Primitive, v, path, problems)

	case registry.KindEnum:
		s, ok := v.(string)
		if !ok {
			add(problems, path, "expected an enum symbol string")
			return
		}
		if !t.Enum.HasSymbol(s) {
			add(problems, path, "value %q is not a symbol of enum %s", s, t.Enum.Name)
		}

	case registry.KindUrn:
		s, ok := v.(string)
		if !ok {
			add(problems, path, "expected a urn string")
			return
		}
		if _, err := urn.Parse(s); err != nil {
			add(problems, path, "invalid urn: %v", err)
		}

	case registry.KindRecord:
		checkRecord(t.Record, v, path, problems)

	case registry.KindArray:
		items, ok := v.([]any)
		if !ok {
			add(problems, path, "expected an array")
			return
		}
		for i, item := range items {
			checkValue(t.Element, item, fmt.Sprintf("%s/%d", path, i), problems)
		}

	case registry.KindMap:
		entries, ok := v.(map[string]any)
		if !ok {
			add(problems, path, "expected an object for map values")
			return
		}
		for key, val := range entries {
			checkValue(t.Element, val, path+"/"+key, problems)
		}

	case registry.KindUnion:
		// A union value conforms when any member accepts it.
		for _, member := range t.Members {
			var memberProblems []string
			checkValue(member, v, path, &memberProblems)
			if len(memberProblems) == 0 {
				return
			}
		}
		add(problems, path, "value matches no member of %s", t.String())
	}
}

func checkPrimitive(kind parser.PrimitiveKind, v any, path string, problems *[]string) {
	switch kind {
	case parser.PrimString, parser.PrimBytes:
		if _, ok := v.(string); !ok {
			add(problems, path, "expected a string")
		}
	case parser.PrimBoolean:
		if _, ok := v.(bool); !ok {
			add(problems, path, "expected a boolean")
		}
	case parser.PrimInt, parser.PrimLong, parser.PrimTimestamp:
		n, ok := v.(json.Number)
		if !ok {
			add(problems, path, "expected an integer")
			return
		}
		if _, err := n.Int64(); err != nil {
			add(problems, path, "expected an integer, got %s", n.String())
		}
	case parser.PrimFloat, parser.PrimDouble:
		n, ok := v.(json.Number)
		if !ok {
			add(problems, path, "expected a number")
			return
		}
		if _, err := n.Float64(); err != nil {
			add(problems, path, "expected a number, got %s", n.String())
		}
	}
}

func add(problems *[]string, path, format string, args ...any) {
	*problems = append(*problems, fmt.Sprintf("%s: %s", path, fmt.Sprintf(format, args...)))
}
