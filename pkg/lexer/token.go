// Package lexer provides tokenization for the Aspect Definition Language.
package lexer

import "fmt"

// TokenType represents the kind of a token.
type TokenType int

// Token kinds. Kinds are small integers so parser follow sets fit in a uint64.
const (
	EOF     TokenType = iota // End of input
	ILLEGAL                  // Unknown character or unterminated string
	EOS                      // Statement terminator (never produced by this lexer)

	// Keywords
	ASPECT         // aspect
	FOR            // for
	IN             // in
	END            // end
	IMPORT         // import
	MIXINS         // mixins
	INCLUDE        // include
	INTERCEPTORS   // interceptors
	ADVICE         // advice
	POINTCUT       // pointcut
	METHOD         // method
	PROPERTY       // property
	PROPERTYREAD   // propertyread
	PROPERTYWRITE  // propertywrite
	ASSIGNABLEFROM // assignableFrom
	CUSTOMMATCHER  // customMatcher
	EXCLUDES       // excludes
	INCLUDES       // includes

	// Punctuation
	LBRACK // [
	RBRACK // ]
	LBRACE // {
	RBRACE // }
	LPAREN // (
	RPAREN // )
	COLON  // :
	SEMI   // ;
	COMMA  // ,
	DOT    // .

	// Literals
	STRING // "key" (Value holds the unquoted text)
	IDENT  // MyApp, Service

	// Operators
	OR   // or, |
	STAR // *

	tokenTypeCount
)

var tokenNames = [...]string{
	EOF:            "EOF",
	ILLEGAL:        "ILLEGAL",
	EOS:            "EOS",
	ASPECT:         "aspect",
	FOR:            "for",
	IN:             "in",
	END:            "end",
	IMPORT:         "import",
	MIXINS:         "mixins",
	INCLUDE:        "include",
	INTERCEPTORS:   "interceptors",
	ADVICE:         "advice",
	POINTCUT:       "pointcut",
	METHOD:         "method",
	PROPERTY:       "property",
	PROPERTYREAD:   "propertyread",
	PROPERTYWRITE:  "propertywrite",
	ASSIGNABLEFROM: "assignableFrom",
	CUSTOMMATCHER:  "customMatcher",
	EXCLUDES:       "excludes",
	INCLUDES:       "includes",
	LBRACK:         "[",
	RBRACK:         "]",
	LBRACE:         "{",
	RBRACE:         "}",
	LPAREN:         "(",
	RPAREN:         ")",
	COLON:          ":",
	SEMI:           ";",
	COMMA:          ",",
	DOT:            ".",
	STRING:         "STRING",
	IDENT:          "IDENT",
	OR:             "or",
	STAR:           "*",
}

func (t TokenType) String() string {
	if t >= 0 && t < tokenTypeCount {
		return tokenNames[t]
	}
	return fmt.Sprintf("Token(%d)", int(t))
}

// MarshalText renders the kind by name so token dumps stay readable.
func (t TokenType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses a kind name produced by MarshalText.
func (t *TokenType) UnmarshalText(text []byte) error {
	name := string(text)
	for i := TokenType(0); i < tokenTypeCount; i++ {
		if tokenNames[i] == name {
			*t = i
			return nil
		}
	}
	return fmt.Errorf("unknown token type %q", name)
}

// keywords maps reserved words to their token kinds. Matching is case-sensitive.
var keywords = map[string]TokenType{
	"aspect":         ASPECT,
	"for":            FOR,
	"in":             IN,
	"end":            END,
	"import":         IMPORT,
	"mixins":         MIXINS,
	"include":        INCLUDE,
	"interceptors":   INTERCEPTORS,
	"advice":         ADVICE,
	"pointcut":       POINTCUT,
	"method":         METHOD,
	"property":       PROPERTY,
	"propertyread":   PROPERTYREAD,
	"propertywrite":  PROPERTYWRITE,
	"assignableFrom": ASSIGNABLEFROM,
	"customMatcher":  CUSTOMMATCHER,
	"excludes":       EXCLUDES,
	"includes":       INCLUDES,
	"or":             OR,
}

// LookupIdent returns the keyword kind for word, or IDENT.
func LookupIdent(word string) TokenType {
	if t, ok := keywords[word]; ok {
		return t
	}
	return IDENT
}

// Location is a position in ADL source text.
type Location struct {
	Source string `json:"source,omitempty" yaml:"source,omitempty" cbor:"source,omitempty"`
	Line   int    `json:"line" yaml:"line" cbor:"line"`
	Column int    `json:"col" yaml:"col" cbor:"col"`
}

func (l Location) String() string {
	if l.Source != "" {
		return fmt.Sprintf("%s:%d:%d", l.Source, l.Line, l.Column)
	}
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// Token represents a single token from the lexer.
type Token struct {
	Type  TokenType `json:"type"`
	Value string    `json:"value"`
	Loc   Location  `json:"loc"`
}

// NewToken creates a new token with the given properties.
func NewToken(typ TokenType, value string, loc Location) Token {
	return Token{
		Type:  typ,
		Value: value,
		Loc:   loc,
	}
}

func (t Token) String() string {
	switch t.Type {
	case EOF:
		return "EOF"
	case STRING:
		return fmt.Sprintf("%q", t.Value)
	case IDENT, ILLEGAL:
		if len(t.Value) > 20 {
			return fmt.Sprintf("%s(%q...)", t.Type, t.Value[:20])
		}
		return fmt.Sprintf("%s(%q)", t.Type, t.Value)
	}
	return fmt.Sprintf("%q", t.Type.String())
}

// IsKeyword returns true if the token is a reserved word.
func (t Token) IsKeyword() bool {
	return t.Type >= ASPECT && t.Type <= INCLUDES
}

// Keywords returns every reserved word kind in declaration order.
func Keywords() []TokenType {
	var out []TokenType
	for t := TokenType(0); t < tokenTypeCount; t++ {
		if (Token{Type: t}).IsKeyword() {
			out = append(out, t)
		}
	}
	return out
}

// IsPointcutFlag returns true for method, property, propertyread and propertywrite.
func (t Token) IsPointcutFlag() bool {
	switch t.Type {
	case METHOD, PROPERTY, PROPERTYREAD, PROPERTYWRITE:
		return true
	}
	return false
}
