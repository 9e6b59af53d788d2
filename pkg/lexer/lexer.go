// Package lexer provides tokenization for the Aspect Definition Language.
//
// The lexer performs character-by-character processing and never fails:
// bytes it cannot classify and unterminated strings become ILLEGAL tokens,
// which the parser reports as syntax errors at the right position.
//
// Token kinds:
//
//	keywords    aspect for in end import mixins include interceptors advice
//	            pointcut method property propertyread propertywrite
//	            assignableFrom customMatcher excludes includes
//	IDENT       Service, MyApp (dotted names are IDENT DOT IDENT ...)
//	STRING      "key" (value is unquoted)
//	OR          or, |
//	STAR        *
//	punctuation [ ] { } ( ) : ; , .
//
// Whitespace, // line comments and /* block */ comments are skipped.
package lexer

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Lexer tokenizes ADL source code.
type Lexer struct {
	input  string // The source code being tokenized
	source string // Source name recorded in token locations
	pos    int    // Current position in input
	line   int    // Current line number (1-indexed)
	col    int    // Current column number (0-indexed)
	tokens []Token
}

// New creates a new Lexer for the given input.
func New(source, input string) *Lexer {
	return &Lexer{
		input:  input,
		source: source,
		pos:    0,
		line:   1,
		col:    0,
		tokens: make([]Token, 0),
	}
}

// NewFromReader creates a new Lexer from an io.Reader.
func NewFromReader(source string, r io.Reader) (*Lexer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return New(source, string(data)), nil
}

// Tokenize processes the entire input and returns all tokens, terminated by EOF.
func (l *Lexer) Tokenize() []Token {
	for {
		l.skipTrivia()
		if l.isAtEnd() {
			break
		}
		l.scanToken()
	}
	l.tokens = append(l.tokens, NewToken(EOF, "", l.here()))
	return l.tokens
}

// TokenizeJSON processes the input and returns tokens as a JSON array.
func (l *Lexer) TokenizeJSON() (string, error) {
	data, err := json.Marshal(l.Tokenize())
	if err != nil {
		return "", fmt.Errorf("failed to marshal tokens: %w", err)
	}
	return string(data), nil
}

// Helper methods for character access and movement

func (l *Lexer) isAtEnd() bool {
	return l.pos >= len(l.input)
}

func (l *Lexer) peek() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) peekNext() byte {
	if l.pos+1 >= len(l.input) {
		return 0
	}
	return l.input[l.pos+1]
}

func (l *Lexer) advance() byte {
	ch := l.input[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
	return ch
}

func (l *Lexer) here() Location {
	return Location{Source: l.source, Line: l.line, Column: l.col}
}

func (l *Lexer) addTokenAt(typ TokenType, value string, loc Location) {
	l.tokens = append(l.tokens, NewToken(typ, value, loc))
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlphaNumeric(c byte) bool {
	return isAlpha(c) || isDigit(c)
}

// skipTrivia skips whitespace and comments.
func (l *Lexer) skipTrivia() {
	for !l.isAtEnd() {
		switch c := l.peek(); {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance()
		case c == '/' && l.peekNext() == '/':
			for !l.isAtEnd() && l.peek() != '\n' {
				l.advance()
			}
		case c == '/' && l.peekNext() == '*':
			l.advance()
			l.advance()
			for !l.isAtEnd() && !(l.peek() == '*' && l.peekNext() == '/') {
				l.advance()
			}
			if !l.isAtEnd() {
				l.advance()
				l.advance()
			}
		default:
			return
		}
	}
}

var punctuation = map[byte]TokenType{
	'[': LBRACK,
	']': RBRACK,
	'{': LBRACE,
	'}': RBRACE,
	'(': LPAREN,
	')': RPAREN,
	':': COLON,
	';': SEMI,
	',': COMMA,
	'.': DOT,
	'|': OR,
	'*': STAR,
}

// scanToken scans a single token from the current position.
func (l *Lexer) scanToken() {
	loc := l.here()
	char := l.peek()

	if typ, ok := punctuation[char]; ok {
		l.advance()
		l.addTokenAt(typ, string(char), loc)
		return
	}

	switch {
	case char == '"':
		l.scanString(loc)
	case isAlpha(char):
		l.scanIdentifierOrKeyword(loc)
	default:
		l.advance()
		l.addTokenAt(ILLEGAL, string(char), loc)
	}
}

// scanString handles "double quoted" strings with \" and \\ escapes.
// The closing quote must appear on the same line.
func (l *Lexer) scanString(loc Location) {
	l.advance() // consume opening quote

	var str strings.Builder
	for !l.isAtEnd() {
		c := l.peek()
		switch {
		case c == '"':
			l.advance()
			l.addTokenAt(STRING, str.String(), loc)
			return
		case c == '\n':
			l.addTokenAt(ILLEGAL, "\""+str.String(), loc)
			return
		case c == '\\' && (l.peekNext() == '"' || l.peekNext() == '\\'):
			l.advance()
			str.WriteByte(l.advance())
		default:
			str.WriteByte(l.advance())
		}
	}

	l.addTokenAt(ILLEGAL, "\""+str.String(), loc)
}

// scanIdentifierOrKeyword reads a word and classifies it.
func (l *Lexer) scanIdentifierOrKeyword(loc Location) {
	var word strings.Builder
	for !l.isAtEnd() && isAlphaNumeric(l.peek()) {
		word.WriteByte(l.advance())
	}
	text := word.String()
	l.addTokenAt(LookupIdent(text), text, loc)
}

// String returns a string representation of the lexer state (for debugging).
func (l *Lexer) String() string {
	return fmt.Sprintf("Lexer{pos=%d, line=%d, col=%d, tokens=%d}",
		l.pos, l.line, l.col, len(l.tokens))
}

// Tokenize is a convenience function that tokenizes source text in one call.
func Tokenize(source, input string) []Token {
	return New(source, input).Tokenize()
}
