package parser

import (
	"strings"

	"github.com/chazu/adl/pkg/ast"
	"github.com/chazu/adl/pkg/lexer"
)

// =============================================================================
// Configuration
// =============================================================================

// parseConfiguration parses:
//
//	EOS* import* (interceptors [..])* (mixins [..])* aspect* EOF
func (p *Parser) parseConfiguration(cfg *ast.Configuration) error {
	for p.at(lexer.EOS) {
		p.next()
	}

	for p.at(lexer.IMPORT) {
		if err := p.parseImport(cfg); err != nil {
			return err
		}
	}
	for p.at(lexer.INTERCEPTORS) {
		if err := p.parseGlobalTable(lexer.INTERCEPTORS, &cfg.Interceptors); err != nil {
			return err
		}
	}
	for p.at(lexer.MIXINS) {
		if err := p.parseGlobalTable(lexer.MIXINS, &cfg.Mixins); err != nil {
			return err
		}
	}

	for !p.at(lexer.EOF) {
		var err error
		if p.at(lexer.ASPECT) {
			err = p.parseAspect(cfg)
		} else {
			err = p.skipStray()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// skipStray reports a token that cannot start an aspect and skips to the next one.
func (p *Parser) skipStray() (err error) {
	defer p.recoverTo(&err, followAspect)
	return p.unexpected("configuration", lexer.ASPECT, lexer.EOF)
}

// parseImport parses: import Namespace [in Assembly]
func (p *Parser) parseImport(cfg *ast.Configuration) (err error) {
	defer p.recoverTo(&err, followImport)

	kw, err := p.expect("import", lexer.IMPORT)
	if err != nil {
		return err
	}
	ns, _, err := p.parseIdentifier("import")
	if err != nil {
		return err
	}
	imp := ast.ImportDirective{Namespace: ns, Location: kw.Loc}
	if p.at(lexer.IN) {
		p.next()
		asm, loc, err := p.parseIdentifier("import")
		if err != nil {
			return err
		}
		imp.Assembly = &ast.AssemblyReference{Name: asm, Location: loc}
	}
	cfg.Imports = append(cfg.Imports, imp)
	return nil
}

// =============================================================================
// Declaration Tables
// =============================================================================

// parseGlobalTable parses: (interceptors | mixins) [ entries ]
func (p *Parser) parseGlobalTable(kind lexer.TokenType, table *ast.DeclarationTable) (err error) {
	defer p.recoverTo(&err, followTable)

	if _, err := p.expect(kind.String(), kind); err != nil {
		return err
	}
	return p.parseBracketedTable(kind.String(), table)
}

// parseBracketedTable parses: [ "key": TypeRef (; "key": TypeRef)* ]
// Entries are added to table as they parse, so earlier entries survive a
// later malformed one.
func (p *Parser) parseBracketedTable(rule string, table *ast.DeclarationTable) error {
	if _, err := p.expect(rule, lexer.LBRACK); err != nil {
		return err
	}
	if err := p.parseTableEntry(rule, table); err != nil {
		return err
	}
	for p.at(lexer.SEMI) {
		p.next()
		if err := p.parseTableEntry(rule, table); err != nil {
			return err
		}
	}
	return p.expectClose(rule, lexer.RBRACK, lexer.SEMI)
}

// parseTableEntry parses: "key" : TypeRef
func (p *Parser) parseTableEntry(rule string, table *ast.DeclarationTable) (err error) {
	defer p.recoverTo(&err, followEntry)

	key, err := p.expect(rule+" entry", lexer.STRING)
	if err != nil {
		return err
	}
	if _, err := p.expect(rule+" entry", lexer.COLON); err != nil {
		return err
	}
	tr, err := p.parseTypeReference(rule + " entry")
	if err != nil {
		return err
	}
	return table.Add(ast.NamedDeclaration{Key: key.Value, Location: key.Loc, Type: tr})
}

// =============================================================================
// Aspects
// =============================================================================

// parseAspect parses:
//
//	aspect Name for Target (include ... | pointcut ... end)* end
func (p *Parser) parseAspect(cfg *ast.Configuration) (err error) {
	defer p.recoverTo(&err, followAspect)

	kw, err := p.expect("aspect", lexer.ASPECT)
	if err != nil {
		return err
	}
	name, err := p.expect("aspect", lexer.IDENT)
	if err != nil {
		return err
	}
	if _, err := p.expect("aspect", lexer.FOR); err != nil {
		return err
	}
	target, err := p.parseTargetSelector()
	if err != nil {
		return err
	}

	aspect := ast.AspectDeclaration{Name: name.Value, Location: kw.Loc, Target: target}
	for {
		switch p.peek().Type {
		case lexer.INCLUDE:
			err = p.parseInclude(&aspect)
		case lexer.POINTCUT:
			err = p.parsePointcut(&aspect)
		default:
			if err := p.expectClose("aspect", lexer.END, lexer.INCLUDE, lexer.POINTCUT); err != nil {
				return err
			}
			cfg.Aspects = append(cfg.Aspects, aspect)
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// parseTargetSelector parses one of:
//
//	TypeRef
//	[ assignableFrom { TypeRef } ]
//	[ customMatcher { TypeRef } ]
//	[ Namespace (excludes { TypeRef (; TypeRef)* })? ]
func (p *Parser) parseTargetSelector() (ast.TargetSelector, error) {
	const rule = "target"

	switch p.peek().Type {
	case lexer.IDENT:
		tr, err := p.parseTypeReference(rule)
		if err != nil {
			return ast.TargetSelector{}, err
		}
		return ast.SingleTypeTarget(tr), nil
	case lexer.LBRACK:
		p.next()
	default:
		return ast.TargetSelector{}, p.unexpected(rule, lexer.IDENT, lexer.LBRACK)
	}

	var sel ast.TargetSelector
	switch p.peek().Type {
	case lexer.ASSIGNABLEFROM:
		p.next()
		tr, err := p.parseGroupedTypeReference(rule)
		if err != nil {
			return ast.TargetSelector{}, err
		}
		sel = ast.AssignableTarget(tr)
	case lexer.CUSTOMMATCHER:
		p.next()
		tr, err := p.parseGroupedTypeReference(rule)
		if err != nil {
			return ast.TargetSelector{}, err
		}
		sel = ast.CustomTarget(tr)
	case lexer.IDENT:
		ns, _, err := p.parseIdentifier(rule)
		if err != nil {
			return ast.TargetSelector{}, err
		}
		var excludes []ast.TypeReference
		if p.at(lexer.EXCLUDES) {
			p.next()
			if excludes, err = p.parseExcludes(); err != nil {
				return ast.TargetSelector{}, err
			}
		}
		sel = ast.NamespaceTarget(ns, excludes...)
	default:
		return ast.TargetSelector{}, p.unexpected(rule, lexer.ASSIGNABLEFROM, lexer.CUSTOMMATCHER, lexer.IDENT)
	}

	if _, err := p.expect(rule, lexer.RBRACK); err != nil {
		return ast.TargetSelector{}, err
	}
	return sel, nil
}

// parseExcludes parses: { TypeRef (; TypeRef)* }
func (p *Parser) parseExcludes() ([]ast.TypeReference, error) {
	const rule = "excludes"

	closer, err := p.openGroup(rule)
	if err != nil {
		return nil, err
	}
	var excludes []ast.TypeReference
	for {
		tr, err := p.parseTypeReference(rule)
		if err != nil {
			return nil, err
		}
		excludes = append(excludes, tr)
		if !p.at(lexer.SEMI) {
			break
		}
		p.next()
	}
	if err := p.expectClose(rule, closer, lexer.SEMI); err != nil {
		return nil, err
	}
	return excludes, nil
}

// parseInclude parses: include TypeRefOrLink
func (p *Parser) parseInclude(aspect *ast.AspectDeclaration) (err error) {
	defer p.recoverTo(&err, followMember)

	kw, err := p.expect("include", lexer.INCLUDE)
	if err != nil {
		return err
	}
	tr, err := p.parseTypeReferenceOrLink("include")
	if err != nil {
		return err
	}
	aspect.Mixins = append(aspect.Mixins, ast.MixinReference{Location: kw.Loc, Type: tr})
	return nil
}

// =============================================================================
// Identifiers and Type References
// =============================================================================

// parseIdentifier parses: IDENT (. IDENT)*
func (p *Parser) parseIdentifier(rule string) (string, lexer.Location, error) {
	first, err := p.expect(rule, lexer.IDENT)
	if err != nil {
		return "", first.Loc, err
	}
	var sb strings.Builder
	sb.WriteString(first.Value)
	for p.at(lexer.DOT) && p.src.Peek(2).Type == lexer.IDENT {
		p.next()
		sb.WriteByte('.')
		sb.WriteString(p.next().Value)
	}
	if p.at(lexer.DOT) {
		p.next()
		return "", first.Loc, p.unexpected(rule, lexer.IDENT)
	}
	return sb.String(), first.Loc, nil
}

// parseTypeReference parses: Identifier (in Identifier)?
func (p *Parser) parseTypeReference(rule string) (ast.TypeReference, error) {
	name, loc, err := p.parseIdentifier(rule)
	if err != nil {
		return ast.TypeReference{}, err
	}
	tr := ast.TypeReference{TypeName: name, Location: loc}
	if p.at(lexer.IN) {
		p.next()
		asm, asmLoc, err := p.parseIdentifier(rule)
		if err != nil {
			return ast.TypeReference{}, err
		}
		tr.Assembly = &ast.AssemblyReference{Name: asm, Location: asmLoc}
	}
	return tr, nil
}

// parseTypeReferenceOrLink parses: TypeRef | "link"
func (p *Parser) parseTypeReferenceOrLink(rule string) (ast.TypeReference, error) {
	switch p.peek().Type {
	case lexer.STRING:
		if p.peek().Value == "" {
			se := p.unexpected(rule, lexer.IDENT, lexer.STRING)
			se.Detail = "empty link key"
			return ast.TypeReference{}, se
		}
		tok := p.next()
		return ast.NewLinkReference(tok.Loc, tok.Value), nil
	case lexer.IDENT:
		return p.parseTypeReference(rule)
	}
	return ast.TypeReference{}, p.unexpected(rule, lexer.IDENT, lexer.STRING)
}

// parseGroupedTypeReference parses: { TypeRef }
func (p *Parser) parseGroupedTypeReference(rule string) (ast.TypeReference, error) {
	closer, err := p.openGroup(rule)
	if err != nil {
		return ast.TypeReference{}, err
	}
	tr, err := p.parseTypeReference(rule)
	if err != nil {
		return ast.TypeReference{}, err
	}
	if _, err := p.expect(rule, closer); err != nil {
		return ast.TypeReference{}, err
	}
	return tr, nil
}

// openGroup consumes { or ( and returns the token kind that closes it.
func (p *Parser) openGroup(rule string) (lexer.TokenType, error) {
	switch p.peek().Type {
	case lexer.LBRACE:
		p.next()
		return lexer.RBRACE, nil
	case lexer.LPAREN:
		p.next()
		return lexer.RPAREN, nil
	}
	return lexer.EOF, p.unexpected(rule, lexer.LBRACE, lexer.LPAREN)
}
