package lexer

// keywords maps reserved words to their token types
var keywords = map[string]TokenType{
	"namespace": TOKEN_NAMESPACE,
	"import":    TOKEN_IMPORT,
	"record":    TOKEN_RECORD,
	"enum":      TOKEN_ENUM,
	"includes":  TOKEN_INCLUDES,
	"optional":  TOKEN_OPTIONAL,

	"array": TOKEN_ARRAY,
	"map":   TOKEN_MAP,
	"union": TOKEN_UNION,

	"string":    TOKEN_STRING,
	"int":       TOKEN_INT,
	"long":      TOKEN_LONG,
	"float":     TOKEN_FLOAT,
	"double":    TOKEN_DOUBLE,
	"boolean":   TOKEN_BOOLEAN,
	"bytes":     TOKEN_BYTES,
	"timestamp": TOKEN_TIMESTAMP,
	"urn":       TOKEN_URN,

	"true":  TOKEN_TRUE,
	"false": TOKEN_FALSE,
	"null":  TOKEN_NULL,
}

// lookupKeyword checks if an identifier is a reserved keyword
func lookupKeyword(ident string) (TokenType, bool) {
	tok, ok := keywords[ident]
	return tok, ok
}
