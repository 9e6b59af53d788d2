package parser

import (
	"github.com/chazu/adl/pkg/ast"
	"github.com/chazu/adl/pkg/lexer"
)

// =============================================================================
// Pointcuts
// =============================================================================

// parsePointcut parses:
//
//	pointcut Flags { Signature } (advice { TypeRefOrLink })* end
//
// When resynchronisation stops on an end token, that end is taken to close
// the failed pointcut and is consumed.
func (p *Parser) parsePointcut(aspect *ast.AspectDeclaration) (err error) {
	defer func() {
		if p.recoverTo(&err, followMember) && p.at(lexer.END) {
			p.next()
		}
	}()

	kw, err := p.expect("pointcut", lexer.POINTCUT)
	if err != nil {
		return err
	}
	flags, err := p.parseFlags()
	if err != nil {
		return err
	}
	sig, err := p.parseSignatureGroup()
	if err != nil {
		return err
	}

	pc := ast.PointcutDeclaration{Location: kw.Loc, Flags: flags, Signature: sig}
	for p.at(lexer.ADVICE) {
		if err := p.parseAdvice(&pc); err != nil {
			return err
		}
	}
	if err := p.expectClose("pointcut", lexer.END, lexer.ADVICE); err != nil {
		return err
	}
	aspect.Pointcuts = append(aspect.Pointcuts, pc)
	return nil
}

var flagOf = map[lexer.TokenType]ast.PointcutFlags{
	lexer.METHOD:        ast.FlagMethod,
	lexer.PROPERTY:      ast.FlagProperty,
	lexer.PROPERTYREAD:  ast.FlagPropertyRead,
	lexer.PROPERTYWRITE: ast.FlagPropertyWrite,
}

// parseFlags parses: Flag ((or | '|') Flag)*
func (p *Parser) parseFlags() (ast.PointcutFlags, error) {
	var flags ast.PointcutFlags
	for {
		tok := p.peek()
		if !tok.IsPointcutFlag() {
			return 0, p.unexpected("pointcut flags", pointcutFlags.types()...)
		}
		p.next()
		flags |= flagOf[tok.Type]
		if !p.at(lexer.OR) {
			return flags, nil
		}
		p.next()
	}
}

// parseAdvice parses: advice { TypeRefOrLink }
func (p *Parser) parseAdvice(pc *ast.PointcutDeclaration) (err error) {
	defer p.recoverTo(&err, followAdvice)

	kw, err := p.expect("advice", lexer.ADVICE)
	if err != nil {
		return err
	}
	closer, err := p.openGroup("advice")
	if err != nil {
		return err
	}
	tr, err := p.parseTypeReferenceOrLink("advice")
	if err != nil {
		return err
	}
	if _, err := p.expect("advice", closer); err != nil {
		return err
	}
	pc.Advice = append(pc.Advice, ast.AdviceReference{Location: kw.Loc, Type: tr})
	return nil
}

// =============================================================================
// Signatures
// =============================================================================

// parseSignatureGroup parses a braced signature: { Signature }
func (p *Parser) parseSignatureGroup() (ast.MethodSignature, error) {
	closer, err := p.openGroup("signature")
	if err != nil {
		return ast.MethodSignature{}, err
	}
	sig, err := p.parseSignature(closer)
	if err != nil {
		return ast.MethodSignature{}, err
	}
	if _, err := p.expect("signature", closer); err != nil {
		return ast.MethodSignature{}, err
	}
	return sig, nil
}

// parseSignature parses the body of a signature group:
//
//	*                          match-all, only when directly closed
//	Segment [Segment [Segment]] [Arguments]
//
// A segment after the last one the grammar allows is rejected, as is a
// bare wildcard directly after the final segment or an argument.
func (p *Parser) parseSignature(closer lexer.TokenType) (ast.MethodSignature, error) {
	if p.at(lexer.STAR) && p.src.Peek(2).Type == closer {
		p.next()
		return ast.MatchAllSignature(), nil
	}
	if !p.atAny(segmentStart) {
		return ast.MethodSignature{}, p.unexpected("signature", lexer.IDENT, lexer.STAR)
	}

	var sig ast.MethodSignature
	for len(sig.Segments) < ast.MaxSegments && p.atAny(segmentStart) {
		last := len(sig.Segments) == ast.MaxSegments-1
		seg, err := p.parsePatternSegment("signature", !last)
		if err != nil {
			return ast.MethodSignature{}, err
		}
		sig.Segments = append(sig.Segments, seg)
	}

	if p.atAny(groupOpeners) {
		args, err := p.parseArguments()
		if err != nil {
			return ast.MethodSignature{}, err
		}
		sig = sig.WithArguments(args...)
	}
	return sig, nil
}

// parseArguments parses: { (Segment (, Segment)*)? }
func (p *Parser) parseArguments() ([]ast.PatternSegment, error) {
	const rule = "arguments"

	closer, err := p.openGroup(rule)
	if err != nil {
		return nil, err
	}
	var args []ast.PatternSegment
	if !p.at(closer) {
		for {
			seg, err := p.parsePatternSegment(rule, false)
			if err != nil {
				return nil, err
			}
			args = append(args, seg)
			if !p.at(lexer.COMMA) {
				break
			}
			p.next()
		}
	}
	if err := p.expectClose(rule, closer, lexer.COMMA); err != nil {
		return nil, err
	}
	return args, nil
}

// parsePatternSegment parses one signature segment:
//
//	*              wildcard
//	Name(.Name)*   literal
//	Name(.Name)*.* prefix
//
// Unless allowTrailingWildcard is set, a * directly after the segment is an
// error rather than the start of another segment.
func (p *Parser) parsePatternSegment(rule string, allowTrailingWildcard bool) (ast.PatternSegment, error) {
	var seg ast.PatternSegment
	switch p.peek().Type {
	case lexer.STAR:
		p.next()
		seg = ast.Wildcard()
	case lexer.IDENT:
		name := p.next().Value
		prefix := false
		for !prefix && p.at(lexer.DOT) {
			p.next()
			switch p.peek().Type {
			case lexer.IDENT:
				name += "." + p.next().Value
			case lexer.STAR:
				p.next()
				prefix = true
			default:
				return ast.PatternSegment{}, p.unexpected(rule, lexer.IDENT, lexer.STAR)
			}
		}
		if prefix {
			seg = ast.Prefix(name)
		} else {
			seg = ast.Literal(name)
		}
	default:
		return ast.PatternSegment{}, p.unexpected(rule, lexer.IDENT, lexer.STAR)
	}

	if !allowTrailingWildcard && p.at(lexer.STAR) {
		return ast.PatternSegment{}, p.unexpected(rule)
	}
	return seg, nil
}
