// Package format renders configurations as canonical ADL source.
//
// Canonical form: imports first, then the interceptor and mixin tables with
// one entry per line, then aspects. Inside an aspect, includes precede
// pointcuts. Groups are written with parentheses and indentation is two
// spaces. Formatting is idempotent, and reparsing the output yields the same
// configuration up to source locations.
package format

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/chazu/adl/pkg/ast"
	"github.com/chazu/adl/pkg/parser"
)

const indent = "  "

// Source parses ADL text and returns it in canonical form.
func Source(name string, src []byte) ([]byte, error) {
	cfg, err := parser.ParseString(name, string(src))
	if err != nil {
		return nil, err
	}
	return Configuration(cfg)
}

// Configuration renders cfg as ADL text.
func Configuration(cfg *ast.Configuration) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write renders cfg to w. Trees that the grammar cannot express, such as a
// pointcut without flags, are rejected before anything is written.
func Write(w io.Writer, cfg *ast.Configuration) error {
	if err := check(cfg); err != nil {
		return err
	}
	p := &printer{}
	p.configuration(cfg)
	_, err := io.WriteString(w, p.sb.String())
	return err
}

func check(cfg *ast.Configuration) error {
	for _, t := range []struct {
		name  string
		table *ast.DeclarationTable
	}{{"interceptors", &cfg.Interceptors}, {"mixins", &cfg.Mixins}} {
		for _, e := range t.table.Entries {
			if strings.ContainsAny(e.Key, "\n\r") {
				return fmt.Errorf("format: %s key %q spans lines", t.name, e.Key)
			}
			if err := checkRef(e.Type, false); err != nil {
				return fmt.Errorf("format: %s entry %q: %w", t.name, e.Key, err)
			}
		}
	}
	for _, a := range cfg.Aspects {
		if err := a.Target.Validate(); err != nil {
			return fmt.Errorf("format: aspect %s: %w", a.Name, err)
		}
		for _, tr := range targetRefs(a.Target) {
			if err := checkRef(tr, false); err != nil {
				return fmt.Errorf("format: aspect %s target: %w", a.Name, err)
			}
		}
		for _, m := range a.Mixins {
			if err := checkRef(m.Type, true); err != nil {
				return fmt.Errorf("format: aspect %s include: %w", a.Name, err)
			}
		}
		for i, pc := range a.Pointcuts {
			for _, adv := range pc.Advice {
				if err := checkRef(adv.Type, true); err != nil {
					return fmt.Errorf("format: aspect %s: pointcut %d advice: %w", a.Name, i, err)
				}
			}
			if pc.Flags == ast.FlagUnspecified {
				return fmt.Errorf("format: aspect %s: pointcut %d has no flags", a.Name, i)
			}
			if !pc.Signature.MatchAll && len(pc.Signature.Segments) == 0 {
				return fmt.Errorf("format: aspect %s: pointcut %d has an empty signature", a.Name, i)
			}
			if sig := pc.Signature; !sig.MatchAll && !sig.HasArguments && len(sig.Segments) == 1 && sig.Segments[0].Kind == ast.SegmentWildcard {
				return fmt.Errorf("format: aspect %s: pointcut %d: a lone wildcard segment reads back as match-all", a.Name, i)
			}
			if len(pc.Signature.Segments) > ast.MaxSegments {
				return fmt.Errorf("format: aspect %s: pointcut %d has %d signature segments", a.Name, i, len(pc.Signature.Segments))
			}
		}
	}
	return nil
}

// checkRef rejects references the grammar cannot spell. Links are only
// written in include and advice position.
func checkRef(tr ast.TypeReference, linkAllowed bool) error {
	switch {
	case tr.IsLink() && !linkAllowed:
		return fmt.Errorf("link %q where a type name is required", tr.Link)
	case tr.IsLink() && strings.ContainsAny(tr.Link, "\n\r"):
		return fmt.Errorf("link %q spans lines", tr.Link)
	case !tr.IsLink() && tr.TypeName == "":
		return fmt.Errorf("reference has neither a type name nor a link")
	}
	return nil
}

func targetRefs(sel ast.TargetSelector) []ast.TypeReference {
	switch {
	case sel.SingleType != nil:
		return []ast.TypeReference{*sel.SingleType}
	case sel.Assignable != nil:
		return []ast.TypeReference{*sel.Assignable}
	case sel.Custom != nil:
		return []ast.TypeReference{*sel.Custom}
	case sel.Namespace != nil:
		return sel.Namespace.Excludes
	}
	return nil
}

type printer struct {
	sb strings.Builder
}

func (p *printer) line(depth int, format string, args ...any) {
	p.sb.WriteString(strings.Repeat(indent, depth))
	fmt.Fprintf(&p.sb, format, args...)
	p.sb.WriteByte('\n')
}

func (p *printer) blank() {
	if p.sb.Len() > 0 {
		p.sb.WriteByte('\n')
	}
}

func (p *printer) configuration(cfg *ast.Configuration) {
	for _, imp := range cfg.Imports {
		if imp.Assembly != nil {
			p.line(0, "import %s in %s", imp.Namespace, imp.Assembly.Name)
		} else {
			p.line(0, "import %s", imp.Namespace)
		}
	}
	p.table("interceptors", &cfg.Interceptors)
	p.table("mixins", &cfg.Mixins)
	for i := range cfg.Aspects {
		p.aspect(&cfg.Aspects[i])
	}
}

func (p *printer) table(keyword string, t *ast.DeclarationTable) {
	if t.Len() == 0 {
		return
	}
	p.blank()
	p.line(0, "%s [", keyword)
	for i, e := range t.Entries {
		sep := ";"
		if i == len(t.Entries)-1 {
			sep = ""
		}
		p.line(1, "%s: %s%s", quote(e.Key), typeRef(e.Type), sep)
	}
	p.line(0, "]")
}

func (p *printer) aspect(a *ast.AspectDeclaration) {
	p.blank()
	p.line(0, "aspect %s for %s", a.Name, target(a.Target))
	for _, m := range a.Mixins {
		p.line(1, "include %s", typeRef(m.Type))
	}
	for i, pc := range a.Pointcuts {
		if i > 0 || len(a.Mixins) > 0 {
			p.blank()
		}
		p.line(1, "pointcut %s(%s)", pc.Flags, pc.Signature)
		for _, adv := range pc.Advice {
			p.line(2, "advice(%s)", typeRef(adv.Type))
		}
		p.line(1, "end")
	}
	p.line(0, "end")
}

func target(sel ast.TargetSelector) string {
	switch sel.Strategy {
	case ast.StrategyAssignable:
		return "[ assignableFrom(" + typeRef(*sel.Assignable) + ") ]"
	case ast.StrategyCustom:
		return "[ customMatcher(" + typeRef(*sel.Custom) + ") ]"
	case ast.StrategyNamespace:
		ns := sel.Namespace
		if len(ns.Excludes) == 0 {
			return "[ " + ns.Pattern + " ]"
		}
		ex := make([]string, len(ns.Excludes))
		for i, tr := range ns.Excludes {
			ex[i] = typeRef(tr)
		}
		return "[ " + ns.Pattern + " excludes(" + strings.Join(ex, "; ") + ") ]"
	}
	return typeRef(*sel.SingleType)
}

func typeRef(tr ast.TypeReference) string {
	if tr.IsLink() {
		return quote(tr.Link)
	}
	return tr.String()
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}
