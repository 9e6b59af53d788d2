// Package parser converts ADL token streams into configuration trees.
//
// The parser is LL(k) recursive descent over a TokenSource. Every
// statement-level rule (import, declaration table and entry, aspect,
// include, pointcut, advice) resynchronises on its own follow set after a
// syntax error; the injected ErrorPolicy decides whether that happens or the
// parse aborts. Parse uses Strict, ParseResumable uses a Collector.
package parser

import (
	"fmt"
	"os"

	"github.com/chazu/adl/pkg/ast"
	"github.com/chazu/adl/pkg/lexer"
)

// TokenSource supplies tokens with bounded lookahead. The parser borrows it
// for one parse and never closes it.
type TokenSource interface {
	// Peek returns the k-th upcoming token without consuming it (k >= 1).
	Peek(k int) lexer.Token
	// Advance consumes and returns the next token.
	Advance() lexer.Token
	// Position returns the location of the next token.
	Position() lexer.Location
}

// Parser holds the state for one parse.
type Parser struct {
	src    TokenSource
	policy ErrorPolicy

	lastErr  lexer.Location
	reported int
}

// New creates a parser reading from src. A nil policy means Strict.
func New(src TokenSource, policy ErrorPolicy) *Parser {
	if policy == nil {
		policy = Strict
	}
	return &Parser{src: src, policy: policy}
}

// Parse parses a whole configuration. Whether syntax errors abort depends on
// the parser's policy; a duplicate declaration always aborts.
func (p *Parser) Parse() (*ast.Configuration, error) {
	cfg := ast.NewConfiguration()
	if err := p.parseConfiguration(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse parses src in strict mode: the first error ends the parse and no
// configuration is returned.
func Parse(src TokenSource) (*ast.Configuration, error) {
	return New(src, Strict).Parse()
}

// ParseResumable parses src, recovering from syntax errors. It returns the
// best-effort configuration and every syntax error met. The error result is
// reserved for fatal problems such as *ast.DuplicateDeclarationError.
// Callers must check the error list before trusting the configuration.
func ParseResumable(src TokenSource) (*ast.Configuration, []*SyntaxError, error) {
	c := &Collector{}
	cfg, err := New(src, c).Parse()
	return cfg, c.Errors, err
}

// ParsePointcutTarget parses a standalone pointcut target, flags followed by
// a braced signature such as `method|property(* Get.*)`, into pc. pc is only
// modified on success.
func ParsePointcutTarget(src TokenSource, pc *ast.PointcutDeclaration) error {
	p := New(src, Strict)
	flags, err := p.parseFlags()
	if err != nil {
		return err
	}
	sig, err := p.parseSignatureGroup()
	if err != nil {
		return err
	}
	if _, err := p.expect("pointcut target", lexer.EOF); err != nil {
		return err
	}
	pc.Flags = flags
	pc.Signature = sig
	return nil
}

// ParseString tokenizes and parses text in strict mode. source names the
// input in error locations.
func ParseString(source, text string) (*ast.Configuration, error) {
	return Parse(lexer.NewStringStream(source, text))
}

// ParseStringResumable is ParseResumable over text.
func ParseStringResumable(source, text string) (*ast.Configuration, []*SyntaxError, error) {
	return ParseResumable(lexer.NewStringStream(source, text))
}

// ParseFile reads and parses an ADL file in strict mode.
func ParseFile(path string) (*ast.Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ParseString(path, string(data))
}

// =============================================================================
// Token Utilities
// =============================================================================

func (p *Parser) peek() lexer.Token {
	return p.src.Peek(1)
}

func (p *Parser) at(t lexer.TokenType) bool {
	return p.src.Peek(1).Type == t
}

func (p *Parser) atAny(s tokenSet) bool {
	return s.has(p.src.Peek(1).Type)
}

func (p *Parser) next() lexer.Token {
	return p.src.Advance()
}

// expect consumes the next token if it is one of types.
func (p *Parser) expect(rule string, types ...lexer.TokenType) (lexer.Token, error) {
	tok := p.peek()
	for _, t := range types {
		if tok.Type == t {
			return p.next(), nil
		}
	}
	return tok, p.unexpected(rule, types...)
}

// expectClose consumes closer. On failure the error also lists the tokens
// that could have continued the construct being closed.
func (p *Parser) expectClose(rule string, closer lexer.TokenType, continuations ...lexer.TokenType) error {
	if p.at(closer) {
		p.next()
		return nil
	}
	return p.unexpected(rule, append(continuations, closer)...)
}

// unexpected builds a SyntaxError for the next token.
func (p *Parser) unexpected(rule string, expected ...lexer.TokenType) *SyntaxError {
	tok := p.peek()
	return &SyntaxError{
		Rule:     rule,
		Expected: expected,
		Found:    tok,
		Location: tok.Loc,
	}
}

// =============================================================================
// Error Recovery
// =============================================================================

// recoverTo is deferred by statement-level rules. On a syntax error it asks
// the policy whether to continue; if so it skips the offending token (unless
// it already belongs to follow) and every token up to the next member of
// follow or EOF, then clears *err so the caller carries on without the failed
// node. It reports whether it resynchronised.
//
// Other errors, and errors the policy re-raises, propagate unchanged. Each
// error reaches the policy once, from the innermost rule. An error at the
// position of the previous report is marked as a cascade.
func (p *Parser) recoverTo(err *error, follow tokenSet) bool {
	se, ok := (*err).(*SyntaxError)
	if !ok || se.reported {
		return false
	}
	se.reported = true

	se.Cascade = p.reported > 0 && se.Location == p.lastErr
	if rerr := p.policy.Report(se); rerr != nil {
		*err = rerr
		return false
	}
	p.reported++
	p.lastErr = se.Location

	if !p.at(lexer.EOF) && !p.atAny(follow) {
		p.next()
	}
	for !p.at(lexer.EOF) && !p.atAny(follow) {
		p.next()
	}
	*err = nil
	return true
}
