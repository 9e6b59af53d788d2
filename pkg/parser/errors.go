package parser

import (
	"fmt"
	"strings"

	"github.com/chazu/adl/pkg/lexer"
)

// SyntaxError reports an unexpected token at a grammar position.
type SyntaxError struct {
	Rule     string            `json:"rule"`     // Grammar rule being parsed
	Expected []lexer.TokenType `json:"expected"` // Token kinds that would have been accepted
	Found    lexer.Token       `json:"found"`    // Token actually seen
	Location lexer.Location    `json:"location"` // Where Found starts
	Detail   string            `json:"detail,omitempty"`
	// Cascade marks an error reported at the same position as the one
	// before it, usually a consequence of that earlier error.
	Cascade bool `json:"cascade,omitempty"`

	reported bool
}

func (e *SyntaxError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: syntax error in %s: ", e.Location, e.Rule)
	if e.Detail != "" {
		sb.WriteString(e.Detail)
		return sb.String()
	}
	switch len(e.Expected) {
	case 0:
		sb.WriteString("unexpected ")
	case 1:
		fmt.Fprintf(&sb, "expected %s, found ", quoteKind(e.Expected[0]))
	default:
		kinds := make([]string, len(e.Expected))
		for i, k := range e.Expected {
			kinds[i] = quoteKind(k)
		}
		fmt.Fprintf(&sb, "expected one of %s, found ", strings.Join(kinds, " "))
	}
	if e.Found.Type == lexer.ILLEGAL {
		fmt.Fprintf(&sb, "illegal input %q", e.Found.Value)
	} else {
		sb.WriteString(e.Found.String())
	}
	if e.Cascade {
		sb.WriteString(" (after an earlier error)")
	}
	return sb.String()
}

func quoteKind(t lexer.TokenType) string {
	switch t {
	case lexer.EOF, lexer.IDENT, lexer.STRING:
		return t.String()
	}
	return "'" + t.String() + "'"
}

// ErrorPolicy decides what happens when a rule hits a syntax error.
// Returning nil resumes parsing after resynchronisation; returning an error
// aborts the parse with it.
type ErrorPolicy interface {
	Report(err *SyntaxError) error
}

// ErrorPolicyFunc adapts a function to ErrorPolicy.
type ErrorPolicyFunc func(err *SyntaxError) error

// Report calls f(err).
func (f ErrorPolicyFunc) Report(err *SyntaxError) error {
	return f(err)
}

type strictPolicy struct{}

func (strictPolicy) Report(err *SyntaxError) error {
	return err
}

// Strict aborts on the first syntax error.
var Strict ErrorPolicy = strictPolicy{}

// Collector records every syntax error and lets the parser resume.
type Collector struct {
	Errors []*SyntaxError
}

// Report implements ErrorPolicy.
func (c *Collector) Report(err *SyntaxError) error {
	c.Errors = append(c.Errors, err)
	return nil
}

// tokenSet is a bitset of token kinds, one bit per lexer.TokenType.
type tokenSet uint64

func setOf(types ...lexer.TokenType) tokenSet {
	var s tokenSet
	for _, t := range types {
		s |= 1 << uint(t)
	}
	return s
}

func (s tokenSet) has(t lexer.TokenType) bool {
	return t >= 0 && s&(1<<uint(t)) != 0
}

func (s tokenSet) types() []lexer.TokenType {
	var out []lexer.TokenType
	for t := lexer.TokenType(0); s != 0; t++ {
		if s&1 != 0 {
			out = append(out, t)
		}
		s >>= 1
	}
	return out
}

// Resynchronisation sets. EOF always stops skipping.
const (
	followImport = tokenSet(1<<lexer.IMPORT | 1<<lexer.INTERCEPTORS | 1<<lexer.MIXINS | 1<<lexer.ASPECT)
	followTable  = tokenSet(1<<lexer.INTERCEPTORS | 1<<lexer.MIXINS | 1<<lexer.ASPECT)
	followEntry  = tokenSet(1<<lexer.SEMI | 1<<lexer.RBRACK | 1<<lexer.INTERCEPTORS | 1<<lexer.MIXINS | 1<<lexer.ASPECT)
	followAspect = tokenSet(1 << lexer.ASPECT)
	followMember = tokenSet(1<<lexer.INCLUDE | 1<<lexer.POINTCUT | 1<<lexer.END | 1<<lexer.ASPECT)
	followAdvice = tokenSet(1<<lexer.ADVICE | 1<<lexer.END | 1<<lexer.INCLUDE | 1<<lexer.POINTCUT | 1<<lexer.ASPECT)

	pointcutFlags = tokenSet(1<<lexer.METHOD | 1<<lexer.PROPERTY | 1<<lexer.PROPERTYREAD | 1<<lexer.PROPERTYWRITE)
	groupOpeners  = tokenSet(1<<lexer.LBRACE | 1<<lexer.LPAREN)
	segmentStart  = tokenSet(1<<lexer.IDENT | 1<<lexer.STAR)
)
