package lexer

import "fmt"

// TokenType represents the type of token in the aspect definition language
type TokenType int

const (
	// Special tokens
	TOKEN_EOF TokenType = iota
	TOKEN_ERROR
	TOKEN_COMMENT
	TOKEN_DOC_COMMENT

	// Keywords - Declarations
	TOKEN_NAMESPACE
	TOKEN_IMPORT
	TOKEN_RECORD
	TOKEN_ENUM
	TOKEN_INCLUDES
	TOKEN_OPTIONAL

	// Keywords - Type constructors
	TOKEN_ARRAY
	TOKEN_MAP
	TOKEN_UNION

	// Type keywords - Primitives
	TOKEN_STRING
	TOKEN_INT
	TOKEN_LONG
	TOKEN_FLOAT
	TOKEN_DOUBLE
	TOKEN_BOOLEAN
	TOKEN_BYTES
	TOKEN_TIMESTAMP
	TOKEN_URN

	// Literals
	TOKEN_IDENTIFIER
	TOKEN_INT_LITERAL
	TOKEN_FLOAT_LITERAL
	TOKEN_STRING_LITERAL
	TOKEN_TRUE
	TOKEN_FALSE
	TOKEN_NULL

	// Operators and punctuation
	TOKEN_AT    // @
	TOKEN_COLON // :
	TOKEN_COMMA // ,
	TOKEN_DOT   // .
	TOKEN_EQUAL // =
	TOKEN_MINUS // -

	// Delimiters
	TOKEN_LBRACE   // {
	TOKEN_RBRACE   // }
	TOKEN_LBRACKET // [
	TOKEN_RBRACKET // ]
)

// Token represents a single lexical token
type Token struct {
	Type    TokenType
	Lexeme  string
	Literal interface{} // For literals (numbers, strings)
	Line    int
	Column  int
	File    string // Source file path
}

// String returns a string representation of the token type
func (t TokenType) String() string {
	switch t {
	case TOKEN_EOF:
		return "EOF"
	case TOKEN_ERROR:
		return "ERROR"
	case TOKEN_COMMENT:
		return "COMMENT"
	case TOKEN_DOC_COMMENT:
		return "DOC_COMMENT"
	case TOKEN_NAMESPACE:
		return "NAMESPACE"
	case TOKEN_IMPORT:
		return "IMPORT"
	case TOKEN_RECORD:
		return "RECORD"
	case TOKEN_ENUM:
		return "ENUM"
	case TOKEN_INCLUDES:
		return "INCLUDES"
	case TOKEN_OPTIONAL:
		return "OPTIONAL"
	case TOKEN_ARRAY:
		return "ARRAY"
	case TOKEN_MAP:
		return "MAP"
	case TOKEN_UNION:
		return "UNION"
	case TOKEN_STRING:
		return "STRING"
	case TOKEN_INT:
		return "INT"
	case TOKEN_LONG:
		return "LONG"
	case TOKEN_FLOAT:
		return "FLOAT"
	case TOKEN_DOUBLE:
		return "DOUBLE"
	case TOKEN_BOOLEAN:
		return "BOOLEAN"
	case TOKEN_BYTES:
		return "BYTES"
	case TOKEN_TIMESTAMP:
		return "TIMESTAMP"
	case TOKEN_URN:
		return "URN"
	case TOKEN_IDENTIFIER:
		return "IDENTIFIER"
	case TOKEN_INT_LITERAL:
		return "INT_LITERAL"
	case TOKEN_FLOAT_LITERAL:
		return "FLOAT_LITERAL"
	case TOKEN_STRING_LITERAL:
		return "STRING_LITERAL"
	case TOKEN_TRUE:
		return "TRUE"
	case TOKEN_FALSE:
		return "FALSE"
	case TOKEN_NULL:
		return "NULL"
	case TOKEN_AT:
		return "AT"
	case TOKEN_COLON:
		return "COLON"
	case TOKEN_COMMA:
		return "COMMA"
	case TOKEN_DOT:
		return "DOT"
	case TOKEN_EQUAL:
		return "EQUAL"
	case TOKEN_MINUS:
		return "MINUS"
	case TOKEN_LBRACE:
		return "LBRACE"
	case TOKEN_RBRACE:
		return "RBRACE"
	case TOKEN_LBRACKET:
		return "LBRACKET"
	case TOKEN_RBRACKET:
		return "RBRACKET"
	default:
		return "UNKNOWN"
	}
}

// String returns a string representation of the token
func (t Token) String() string {
	if t.Literal != nil {
		return fmt.Sprintf("%s(%v) [%d:%d]", t.Type, t.Literal, t.Line, t.Column)
	}
	return fmt.Sprintf("%s(%s) [%d:%d]", t.Type, t.Lexeme, t.Line, t.Column)
}

// LexError represents a lexical analysis error
type LexError struct {
	Message string
	Line    int
	Column  int
	File    string
}

// Error implements the error interface
func (e LexError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
}
