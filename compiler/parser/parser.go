package parser

import (
	"fmt"
	"strings"

	"github.com/lodestar-catalog/lodestar/compiler/lexer"
)

// ParseError represents a syntax error with its source location
type ParseError struct {
	Message  string
	Location SourceLocation
}

// Error implements the error interface
func (e ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Location.File, e.Location.Line, e.Location.Column, e.Message)
}

// Parser transforms a token stream into a File AST
type Parser struct {
	tokens    []lexer.Token
	current   int
	errors    []ParseError
	panicMode bool
}

// New creates a new Parser from a token stream
func New(tokens []lexer.Token) *Parser {
	return &Parser{
		tokens:  tokens,
		current: 0,
		errors:  []ParseError{},
	}
}

// Parse parses the token stream and returns the File and any errors
func (p *Parser) Parse() (*File, []ParseError) {
	file := p.parseFile()
	return file, p.errors
}

func (p *Parser) parseFile() *File {
	file := &File{Loc: TokenToLocation(p.peek())}

	p.skipDocComments()
	if p.match(lexer.TOKEN_NAMESPACE) {
		file.Namespace = p.parseQualifiedName("Expected namespace name after 'namespace'.")
	}

	for p.check(lexer.TOKEN_IMPORT) {
		p.advance()
		file.Imports = append(file.Imports, p.parseQualifiedName("Expected type name after 'import'."))
	}

	for !p.isAtEnd() {
		doc := p.collectDocComment()
		annotations := p.parseAnnotations()

		switch {
		case p.check(lexer.TOKEN_RECORD):
			if rec := p.parseRecord(doc, annotations); rec != nil {
				file.Records = append(file.Records, rec)
			}
		case p.check(lexer.TOKEN_ENUM):
			if len(annotations) > 0 {
				p.addError(ParseError{
					Message:  "Annotations are not allowed on enum declarations.",
					Location: annotations[0].Loc,
				})
			}
			if en := p.parseEnum(doc); en != nil {
				file.Enums = append(file.Enums, en)
			}
		default:
			p.addError(ParseError{
				Message:  fmt.Sprintf("Unexpected token: %s. Expected 'record' or 'enum'.", p.peek().Lexeme),
				Location: TokenToLocation(p.peek()),
			})
			p.synchronize()
		}
	}

	return file
}

// parseRecord parses: record Name [includes A, b.c.D] { fields }
func (p *Parser) parseRecord(doc string, annotations []*AnnotationDecl) *RecordDecl {
	start, _ := p.consume(lexer.TOKEN_RECORD, "Expected 'record'.")

	nameTok, ok := p.consume(lexer.TOKEN_IDENTIFIER, "Expected record name after 'record'.")
	if !ok {
		p.synchronize()
		return nil
	}

	rec := &RecordDecl{
		Name:        nameTok.Lexeme,
		Doc:         doc,
		Annotations: annotations,
		Loc:         TokenToLocation(start),
	}

	if p.match(lexer.TOKEN_INCLUDES) {
		for {
			rec.Includes = append(rec.Includes, p.parseQualifiedName("Expected type name in includes clause."))
			if !p.match(lexer.TOKEN_COMMA) {
				break
			}
		}
	}

	if _, ok := p.consume(lexer.TOKEN_LBRACE, "Expected '{' to open record body."); !ok {
		p.synchronize()
		return rec
	}

	for !p.check(lexer.TOKEN_RBRACE) && !p.isAtEnd() {
		before := p.current
		if field := p.parseField(); field != nil {
			rec.Fields = append(rec.Fields, field)
		}
		if p.current == before {
			// Recovery stopped without consuming anything; skip a token so
			// the body loop cannot stall on the same error.
			p.advance()
		}
	}

	p.consume(lexer.TOKEN_RBRACE, "Expected '}' to close record body.")
	return rec
}

// parseField parses: [doc][annotations] [optional] name: type
func (p *Parser) parseField() *FieldDecl {
	doc := p.collectDocComment()
	annotations := p.parseAnnotations()

	optional := p.match(lexer.TOKEN_OPTIONAL)

	nameTok, ok := p.consume(lexer.TOKEN_IDENTIFIER, "Expected field name.")
	if !ok {
		p.synchronizeField()
		return nil
	}

	if _, ok := p.consume(lexer.TOKEN_COLON, "Expected ':' after field name."); !ok {
		p.synchronizeField()
		return nil
	}

	fieldType := p.parseType()
	if fieldType == nil {
		p.synchronizeField()
		return nil
	}

	return &FieldDecl{
		Name:        nameTok.Lexeme,
		Doc:         doc,
		Optional:    optional,
		Type:        fieldType,
		Annotations: annotations,
		Loc:         TokenToLocation(nameTok),
	}
}

// parseEnum parses: enum Name { SYM1 SYM2 ... }
func (p *Parser) parseEnum(doc string) *EnumDecl {
	start, _ := p.consume(lexer.TOKEN_ENUM, "Expected 'enum'.")

	nameTok, ok := p.consume(lexer.TOKEN_IDENTIFIER, "Expected enum name after 'enum'.")
	if !ok {
		p.synchronize()
		return nil
	}

	en := &EnumDecl{
		Name: nameTok.Lexeme,
		Doc:  doc,
		Loc:  TokenToLocation(start),
	}

	if _, ok := p.consume(lexer.TOKEN_LBRACE, "Expected '{' to open enum body."); !ok {
		p.synchronize()
		return en
	}

	for !p.check(lexer.TOKEN_RBRACE) && !p.isAtEnd() {
		p.skipDocComments()
		if p.check(lexer.TOKEN_RBRACE) {
			break
		}
		symTok, ok := p.consume(lexer.TOKEN_IDENTIFIER, "Expected enum symbol.")
		if !ok {
			p.synchronize()
			return en
		}
		en.Symbols = append(en.Symbols, symTok.Lexeme)
		p.match(lexer.TOKEN_COMMA) // commas between symbols are optional
	}

	p.consume(lexer.TOKEN_RBRACE, "Expected '}' to close enum body.")
	return en
}

// parseType parses a type expression
func (p *Parser) parseType() TypeNode {
	tok := p.peek()
	loc := TokenToLocation(tok)

	switch tok.Type {
	case lexer.TOKEN_STRING:
		p.advance()
		return &PrimitiveType{Kind: PrimString, Loc: loc}
	case lexer.TOKEN_INT:
		p.advance()
		return &PrimitiveType{Kind: PrimInt, Loc: loc}
	case lexer.TOKEN_LONG:
		p.advance()
		return &PrimitiveType{Kind: PrimLong, Loc: loc}
	case lexer.TOKEN_FLOAT:
		p.advance()
		return &PrimitiveType{Kind: PrimFloat, Loc: loc}
	case lexer.TOKEN_DOUBLE:
		p.advance()
		return &PrimitiveType{Kind: PrimDouble, Loc: loc}
	case lexer.TOKEN_BOOLEAN:
		p.advance()
		return &PrimitiveType{Kind: PrimBoolean, Loc: loc}
	case lexer.TOKEN_BYTES:
		p.advance()
		return &PrimitiveType{Kind: PrimBytes, Loc: loc}
	case lexer.TOKEN_TIMESTAMP:
		p.advance()
		return &PrimitiveType{Kind: PrimTimestamp, Loc: loc}
	case lexer.TOKEN_URN:
		p.advance()
		return &UrnType{Loc: loc}

	case lexer.TOKEN_ARRAY:
		p.advance()
		if _, ok := p.consume(lexer.TOKEN_LBRACKET, "Expected '[' after 'array'."); !ok {
			return nil
		}
		elem := p.parseType()
		if elem == nil {
			return nil
		}
		if _, ok := p.consume(lexer.TOKEN_RBRACKET, "Expected ']' to close array type."); !ok {
			return nil
		}
		return &ArrayType{Element: elem, Loc: loc}

	case lexer.TOKEN_MAP:
		p.advance()
		if _, ok := p.consume(lexer.TOKEN_LBRACKET, "Expected '[' after 'map'."); !ok {
			return nil
		}
		keyTok := p.peek()
		if keyTok.Type != lexer.TOKEN_STRING {
			p.addError(ParseError{
				Message:  fmt.Sprintf("Map keys must be 'string', got '%s'.", keyTok.Lexeme),
				Location: TokenToLocation(keyTok),
			})
			return nil
		}
		p.advance()
		if _, ok := p.consume(lexer.TOKEN_COMMA, "Expected ',' between map key and value types."); !ok {
			return nil
		}
		value := p.parseType()
		if value == nil {
			return nil
		}
		if _, ok := p.consume(lexer.TOKEN_RBRACKET, "Expected ']' to close map type."); !ok {
			return nil
		}
		return &MapType{Value: value, Loc: loc}

	case lexer.TOKEN_UNION:
		p.advance()
		if _, ok := p.consume(lexer.TOKEN_LBRACKET, "Expected '[' after 'union'."); !ok {
			return nil
		}
		var members []TypeNode
		for {
			member := p.parseType()
			if member == nil {
				return nil
			}
			members = append(members, member)
			if !p.match(lexer.TOKEN_COMMA) {
				break
			}
		}
		if _, ok := p.consume(lexer.TOKEN_RBRACKET, "Expected ']' to close union type."); !ok {
			return nil
		}
		if len(members) < 2 {
			p.addError(ParseError{
				Message:  "Union types need at least two members.",
				Location: loc,
			})
		}
		return &UnionType{Members: members, Loc: loc}

	case lexer.TOKEN_IDENTIFIER:
		name := p.parseQualifiedName("Expected type name.")
		return &NamedType{Name: name, Loc: loc}

	default:
		p.addError(ParseError{
			Message:  fmt.Sprintf("Expected a type, got '%s'.", tok.Lexeme),
			Location: loc,
		})
		return nil
	}
}

// parseAnnotations parses zero or more @Name = value attachments
func (p *Parser) parseAnnotations() []*AnnotationDecl {
	var annotations []*AnnotationDecl

	for p.check(lexer.TOKEN_AT) {
		atTok := p.advance()

		nameTok, ok := p.consume(lexer.TOKEN_IDENTIFIER, "Expected annotation name after '@'.")
		if !ok {
			p.synchronizeField()
			return annotations
		}

		if _, ok := p.consume(lexer.TOKEN_EQUAL, "Expected '=' after annotation name."); !ok {
			p.synchronizeField()
			return annotations
		}

		value := p.parseValue()
		if value == nil {
			p.synchronizeField()
			return annotations
		}

		annotations = append(annotations, &AnnotationDecl{
			Name:  nameTok.Lexeme,
			Value: value,
			Loc:   TokenToLocation(atTok),
		})

		p.skipDocComments()
	}

	return annotations
}

// parseValue parses a JSON-like annotation value literal
func (p *Parser) parseValue() Value {
	tok := p.peek()
	loc := TokenToLocation(tok)

	switch tok.Type {
	case lexer.TOKEN_STRING_LITERAL:
		p.advance()
		return &StringValue{Val: tok.Literal.(string), Loc: loc}

	case lexer.TOKEN_INT_LITERAL:
		p.advance()
		n := tok.Literal.(int64)
		return &NumberValue{Val: float64(n), IsInt: true, Int: n, Loc: loc}

	case lexer.TOKEN_FLOAT_LITERAL:
		p.advance()
		return &NumberValue{Val: tok.Literal.(float64), Loc: loc}

	case lexer.TOKEN_MINUS:
		p.advance()
		numTok := p.peek()
		switch numTok.Type {
		case lexer.TOKEN_INT_LITERAL:
			p.advance()
			n := -numTok.Literal.(int64)
			return &NumberValue{Val: float64(n), IsInt: true, Int: n, Loc: loc}
		case lexer.TOKEN_FLOAT_LITERAL:
			p.advance()
			return &NumberValue{Val: -numTok.Literal.(float64), Loc: loc}
		default:
			p.addError(ParseError{Message: "Expected number after '-'.", Location: loc})
			return nil
		}

	case lexer.TOKEN_TRUE:
		p.advance()
		return &BoolValue{Val: true, Loc: loc}

	case lexer.TOKEN_FALSE:
		p.advance()
		return &BoolValue{Val: false, Loc: loc}

	case lexer.TOKEN_NULL:
		p.advance()
		return &NullValue{Loc: loc}

	case lexer.TOKEN_LBRACKET:
		p.advance()
		list := &ListValue{Loc: loc}
		if p.match(lexer.TOKEN_RBRACKET) {
			return list
		}
		for {
			item := p.parseValue()
			if item == nil {
				return nil
			}
			list.Items = append(list.Items, item)
			if !p.match(lexer.TOKEN_COMMA) {
				break
			}
		}
		if _, ok := p.consume(lexer.TOKEN_RBRACKET, "Expected ']' to close list."); !ok {
			return nil
		}
		return list

	case lexer.TOKEN_LBRACE:
		p.advance()
		obj := &ObjectValue{Entries: make(map[string]Value), Loc: loc}
		if p.match(lexer.TOKEN_RBRACE) {
			return obj
		}
		for {
			keyTok, ok := p.consume(lexer.TOKEN_STRING_LITERAL, "Expected string key in annotation object.")
			if !ok {
				return nil
			}
			key := keyTok.Literal.(string)
			if _, dup := obj.Entries[key]; dup {
				p.addError(ParseError{
					Message:  fmt.Sprintf("Duplicate key %q in annotation object.", key),
					Location: TokenToLocation(keyTok),
				})
			}
			if _, ok := p.consume(lexer.TOKEN_COLON, "Expected ':' after object key."); !ok {
				return nil
			}
			val := p.parseValue()
			if val == nil {
				return nil
			}
			if _, dup := obj.Entries[key]; !dup {
				obj.Keys = append(obj.Keys, key)
			}
			obj.Entries[key] = val
			if !p.match(lexer.TOKEN_COMMA) {
				break
			}
		}
		if _, ok := p.consume(lexer.TOKEN_RBRACE, "Expected '}' to close object."); !ok {
			return nil
		}
		return obj

	default:
		p.addError(ParseError{
			Message:  fmt.Sprintf("Expected annotation value, got '%s'.", tok.Lexeme),
			Location: loc,
		})
		return nil
	}
}

// parseQualifiedName parses ident(.ident)* into a dotted name
func (p *Parser) parseQualifiedName(message string) string {
	var parts []string

	tok, ok := p.consume(lexer.TOKEN_IDENTIFIER, message)
	if !ok {
		return ""
	}
	parts = append(parts, tok.Lexeme)

	for p.match(lexer.TOKEN_DOT) {
		tok, ok := p.consume(lexer.TOKEN_IDENTIFIER, "Expected identifier after '.'.")
		if !ok {
			break
		}
		parts = append(parts, tok.Lexeme)
	}

	return strings.Join(parts, ".")
}

// collectDocComment joins consecutive doc comment tokens into one doc string
func (p *Parser) collectDocComment() string {
	var lines []string
	for p.check(lexer.TOKEN_DOC_COMMENT) {
		tok := p.advance()
		lines = append(lines, tok.Literal.(string))
	}
	return strings.Join(lines, "\n")
}

func (p *Parser) skipDocComments() {
	for p.match(lexer.TOKEN_DOC_COMMENT) {
		// Discard
	}
}

// Token manipulation helpers

func (p *Parser) isAtEnd() bool {
	if p.current >= len(p.tokens) {
		return true
	}
	return p.tokens[p.current].Type == lexer.TOKEN_EOF
}

func (p *Parser) peek() lexer.Token {
	if p.current >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // Return EOF
	}
	return p.tokens[p.current]
}

func (p *Parser) previous() lexer.Token {
	if p.current > 0 {
		return p.tokens[p.current-1]
	}
	return p.tokens[0]
}

func (p *Parser) advance() lexer.Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.previous()
}

func (p *Parser) check(tokenType lexer.TokenType) bool {
	if p.isAtEnd() {
		return false
	}
	return p.peek().Type == tokenType
}

// match consumes the current token if it matches any of the given types
func (p *Parser) match(types ...lexer.TokenType) bool {
	for _, tokenType := range types {
		if p.check(tokenType) {
			p.advance()
			return true
		}
	}
	return false
}

// consume consumes a token of the given type or records an error
func (p *Parser) consume(tokenType lexer.TokenType, message string) (lexer.Token, bool) {
	if p.check(tokenType) {
		return p.advance(), true
	}

	p.addError(ParseError{
		Message:  message,
		Location: TokenToLocation(p.peek()),
	})
	return lexer.Token{}, false
}

func (p *Parser) addError(err ParseError) {
	if p.panicMode {
		return
	}
	p.errors = append(p.errors, err)
	p.panicMode = true
}

// synchronize skips tokens until the next top-level declaration
func (p *Parser) synchronize() {
	p.panicMode = false
	for !p.isAtEnd() {
		switch p.peek().Type {
		case lexer.TOKEN_RECORD, lexer.TOKEN_ENUM, lexer.TOKEN_AT, lexer.TOKEN_NAMESPACE:
			return
		}
		p.advance()
	}
}

// synchronizeField skips tokens until the next plausible field start or the
// end of the enclosing record body
func (p *Parser) synchronizeField() {
	p.panicMode = false
	for !p.isAtEnd() {
		switch p.peek().Type {
		case lexer.TOKEN_AT, lexer.TOKEN_OPTIONAL, lexer.TOKEN_RBRACE, lexer.TOKEN_RECORD, lexer.TOKEN_ENUM:
			return
		}
		p.advance()
	}
}
