// Package codegen generates Go code from an ADL weaving plan.
//
// The generated file rebuilds the plan as a Go literal, so a weaver compiled
// together with it needs neither the ADL source nor the parser at run time.
// Source locations are not carried over.
package codegen

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/chazu/adl/pkg/ast"
	"github.com/chazu/adl/pkg/ir"
	"github.com/dave/jennifer/jen"
)

const (
	astPath = "github.com/chazu/adl/pkg/ast"
	irPath  = "github.com/chazu/adl/pkg/ir"
)

// Result contains the generated code and any warnings.
type Result struct {
	Code     string
	Warnings []string
}

// Generate produces a Go file in package pkg exposing Plan() *ir.Plan and a
// constant per aspect name. Plan warnings are passed through to the result.
func Generate(plan *ir.Plan, pkg string) *Result {
	g := newGenerator(plan)
	f := jen.NewFile(pkg)
	g.header(f)
	g.generateNames(f)
	f.Line()
	g.generatePlanFunc(f)
	return g.render(f)
}

type generator struct {
	plan     *ir.Plan
	warnings []string
}

func newGenerator(plan *ir.Plan) *generator {
	g := &generator{plan: plan, warnings: []string{}}
	for _, w := range plan.Warnings {
		g.warnings = append(g.warnings, w.String())
	}
	return g
}

func (g *generator) header(f *jen.File) {
	if g.plan.Source != "" {
		f.HeaderComment(fmt.Sprintf("Code generated by adlc from %s. DO NOT EDIT.", g.plan.Source))
	} else {
		f.HeaderComment("Code generated by adlc. DO NOT EDIT.")
	}
	f.ImportName(astPath, "ast")
	f.ImportName(irPath, "ir")
}

func (g *generator) render(f *jen.File) *Result {
	buf := &bytes.Buffer{}
	if err := f.Render(buf); err != nil {
		return &Result{
			Code:     fmt.Sprintf("// Error rendering: %v", err),
			Warnings: g.warnings,
		}
	}
	return &Result{
		Code:     buf.String(),
		Warnings: g.warnings,
	}
}

// generateNames emits one string constant per distinct aspect name.
func (g *generator) generateNames(f *jen.File) {
	if len(g.plan.Aspects) == 0 {
		return
	}
	seen := map[string]string{}
	var defs []jen.Code
	for _, a := range g.plan.Aspects {
		id := "Aspect" + goName(a.Name)
		if prev, ok := seen[id]; ok {
			if prev != a.Name {
				g.warnings = append(g.warnings, fmt.Sprintf("aspect %s: constant %s already used by aspect %s", a.Name, id, prev))
			}
			continue
		}
		seen[id] = a.Name
		defs = append(defs, jen.Id(id).Op("=").Lit(a.Name))
	}
	f.Comment("Aspect names.")
	f.Const().Defs(defs...)
}

func (g *generator) generatePlanFunc(f *jen.File) {
	if g.plan.Source != "" {
		f.Comment(fmt.Sprintf("Plan returns the weaving plan compiled from %s.", g.plan.Source))
	} else {
		f.Comment("Plan returns the compiled weaving plan.")
	}
	f.Func().Id("Plan").Params().Op("*").Qual(irPath, "Plan").Block(
		jen.Return(jen.Op("&").Qual(irPath, "Plan").Values(g.planDict())),
	)
}

func (g *generator) planDict() jen.Dict {
	d := jen.Dict{}
	if g.plan.Source != "" {
		d[jen.Id("Source")] = jen.Lit(g.plan.Source)
	}
	if len(g.plan.Imports) > 0 {
		var items []jen.Code
		for _, imp := range g.plan.Imports {
			id := jen.Dict{jen.Id("Namespace"): jen.Lit(imp.Namespace)}
			if imp.Assembly != "" {
				id[jen.Id("Assembly")] = jen.Lit(imp.Assembly)
			}
			items = append(items, jen.Values(id))
		}
		d[jen.Id("Imports")] = jen.Index().Qual(irPath, "Import").Values(items...)
	}
	if len(g.plan.Aspects) > 0 {
		var items []jen.Code
		for i := range g.plan.Aspects {
			items = append(items, jen.Values(g.aspectDict(&g.plan.Aspects[i])))
		}
		d[jen.Id("Aspects")] = jen.Index().Qual(irPath, "Aspect").Values(items...)
	}
	return d
}

func (g *generator) aspectDict(a *ir.Aspect) jen.Dict {
	d := jen.Dict{
		jen.Id("Name"):   jen.Lit(a.Name),
		jen.Id("Target"): jen.Qual(irPath, "Target").Values(targetDict(a.Target)),
	}
	if len(a.Mixins) > 0 {
		d[jen.Id("Mixins")] = typeRefs(a.Mixins)
	}
	if len(a.Pointcuts) > 0 {
		var items []jen.Code
		for _, pc := range a.Pointcuts {
			items = append(items, jen.Values(g.pointcutDict(pc)))
		}
		d[jen.Id("Pointcuts")] = jen.Index().Qual(irPath, "Pointcut").Values(items...)
	}
	return d
}

func (g *generator) pointcutDict(pc ir.Pointcut) jen.Dict {
	d := jen.Dict{
		jen.Id("Flags"):     flags(pc.Flags),
		jen.Id("Signature"): signature(pc.Signature),
	}
	if len(pc.Advice) > 0 {
		d[jen.Id("Advice")] = typeRefs(pc.Advice)
	}
	return d
}

func targetDict(t ir.Target) jen.Dict {
	d := jen.Dict{jen.Id("Strategy"): jen.Qual(astPath, strategyConst(t.Strategy))}
	if t.Type != nil {
		d[jen.Id("Type")] = jen.Op("&").Qual(irPath, "TypeRef").Values(typeRefDict(*t.Type))
	}
	if t.Namespace != "" {
		d[jen.Id("Namespace")] = jen.Lit(t.Namespace)
	}
	if len(t.Excludes) > 0 {
		d[jen.Id("Excludes")] = typeRefs(t.Excludes)
	}
	return d
}

func strategyConst(s ast.TargetStrategy) string {
	switch s {
	case ast.StrategyAssignable:
		return "StrategyAssignable"
	case ast.StrategyCustom:
		return "StrategyCustom"
	case ast.StrategyNamespace:
		return "StrategyNamespace"
	}
	return "StrategySingleType"
}

func typeRefs(refs []ir.TypeRef) *jen.Statement {
	items := make([]jen.Code, len(refs))
	for i, r := range refs {
		items[i] = jen.Values(typeRefDict(r))
	}
	return jen.Index().Qual(irPath, "TypeRef").Values(items...)
}

func typeRefDict(r ir.TypeRef) jen.Dict {
	d := jen.Dict{}
	if r.Name != "" {
		d[jen.Id("Name")] = jen.Lit(r.Name)
	}
	if r.Assembly != "" {
		d[jen.Id("Assembly")] = jen.Lit(r.Assembly)
	}
	if r.Link != "" {
		d[jen.Id("Link")] = jen.Lit(r.Link)
	}
	if r.Resolved {
		d[jen.Id("Resolved")] = jen.True()
	}
	return d
}

var flagConsts = []struct {
	flag ast.PointcutFlags
	name string
}{
	{ast.FlagMethod, "FlagMethod"},
	{ast.FlagProperty, "FlagProperty"},
	{ast.FlagPropertyRead, "FlagPropertyRead"},
	{ast.FlagPropertyWrite, "FlagPropertyWrite"},
}

// flags renders a flag set as an OR of the ast constants.
func flags(f ast.PointcutFlags) *jen.Statement {
	var s *jen.Statement
	for _, fc := range flagConsts {
		if !f.Has(fc.flag) {
			continue
		}
		if s == nil {
			s = jen.Qual(astPath, fc.name)
		} else {
			s = s.Op("|").Qual(astPath, fc.name)
		}
	}
	if s == nil {
		return jen.Qual(astPath, "FlagUnspecified")
	}
	return s
}

func signature(sig ast.MethodSignature) *jen.Statement {
	if sig.MatchAll {
		return jen.Qual(astPath, "MatchAllSignature").Call()
	}
	s := jen.Qual(astPath, "NewMethodSignature").Call(segments(sig.Segments)...)
	if sig.HasArguments {
		s = s.Dot("WithArguments").Call(segments(sig.Arguments)...)
	}
	return s
}

func segments(segs []ast.PatternSegment) []jen.Code {
	out := make([]jen.Code, len(segs))
	for i, seg := range segs {
		switch seg.Kind {
		case ast.SegmentWildcard:
			out[i] = jen.Qual(astPath, "Wildcard").Call()
		case ast.SegmentPrefix:
			out[i] = jen.Qual(astPath, "Prefix").Call(jen.Lit(seg.Stem()))
		default:
			out[i] = jen.Qual(astPath, "Literal").Call(jen.Lit(seg.Text))
		}
	}
	return out
}

// goName turns an aspect name into an exported Go identifier fragment.
func goName(name string) string {
	var sb strings.Builder
	upper := true
	for _, r := range name {
		if r == '_' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		sb.WriteRune(r)
	}
	if sb.Len() == 0 {
		return "X"
	}
	return sb.String()
}
