package errors

// Error codes, grouped by compiler phase. Codes are stable identifiers for
// operators and tests; messages may change freely.
const (
	// Lexer / parser (SchemaParse)
	CodeLexUnexpectedChar = "E101"
	CodeLexBadLiteral     = "E102"
	CodeParseSyntax       = "E110"

	// Registry (SchemaGraph)
	CodeUnknownTypeRef      = "E201"
	CodeDuplicateAspect     = "E202"
	CodeDuplicateField      = "E203"
	CodeStructuralCycle     = "E204"
	CodeBadInclude          = "E205"
	CodeUnknownAspectBound  = "E206"
	CodeAspectNameMissing   = "E207"
	CodeAspectBoundTwice    = "E208"

	// Annotation resolution (Annotation)
	CodeBadAnnotationValue    = "E301"
	CodeUnknownAnnotationKey  = "E302" // warning
	CodeRelationshipNonUrn    = "E303"
	CodeAmbiguousAnnotation   = "E304"
	CodePathNoMatch           = "E305"
	CodeBadFieldType          = "E306"
	CodeUnknownAnnotation     = "E307" // warning

	// Descriptor compilation (CompileConflict)
	CodeMappingConflict = "E401"
	CodeEdgeConflict    = "E402"
)

// codeDescriptions provides one-line summaries for operator-facing output
var codeDescriptions = map[string]string{
	CodeLexUnexpectedChar:    "unexpected character in source text",
	CodeLexBadLiteral:        "malformed literal",
	CodeParseSyntax:          "syntax error",
	CodeUnknownTypeRef:       "reference to an unknown type",
	CodeDuplicateAspect:      "aspect name declared more than once",
	CodeDuplicateField:       "duplicate field name after includes flattening",
	CodeStructuralCycle:      "record embeds itself at unbounded depth",
	CodeBadInclude:           "includes target is not a record",
	CodeUnknownAspectBound:   "entity registry references an unknown aspect",
	CodeAspectNameMissing:    "@Aspect annotation has no name",
	CodeAspectBoundTwice:     "aspect bound to more than one slot",
	CodeBadAnnotationValue:   "malformed value for a recognized annotation key",
	CodeUnknownAnnotationKey: "unrecognized key inside a recognized annotation",
	CodeRelationshipNonUrn:   "Relationship annotation on a non-urn field",
	CodeAmbiguousAnnotation:  "conflicting annotations at the same path and specificity",
	CodePathNoMatch:          "annotation path matches no field",
	CodeBadFieldType:         "unknown Searchable fieldType",
	CodeUnknownAnnotation:    "unrecognized annotation name",
	CodeMappingConflict:      "incompatible index mappings for the same field name",
	CodeEdgeConflict:         "incompatible relationship declarations for the same edge name",
}

// Describe returns the one-line summary for a code, or "" if unknown
func Describe(code string) string {
	return codeDescriptions[code]
}
