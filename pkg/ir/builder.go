package ir

import (
	"fmt"

	"github.com/chazu/adl/pkg/ast"
)

// Scope tracks declaration-table keys for link resolution.
type Scope struct {
	parent   *Scope
	bindings map[string]ast.NamedDeclaration
}

// NewScope creates a new scope with the given parent.
func NewScope(parent *Scope) *Scope {
	return &Scope{
		parent:   parent,
		bindings: make(map[string]ast.NamedDeclaration),
	}
}

// Define adds a declaration to the scope.
func (s *Scope) Define(decl ast.NamedDeclaration) {
	s.bindings[decl.Key] = decl
}

// Resolve looks up a key in this scope and parent scopes.
func (s *Scope) Resolve(key string) (ast.NamedDeclaration, bool) {
	if decl, ok := s.bindings[key]; ok {
		return decl, true
	}
	if s.parent != nil {
		return s.parent.Resolve(key)
	}
	return ast.NamedDeclaration{}, false
}

func (s *Scope) root() *Scope {
	for s.parent != nil {
		s = s.parent
	}
	return s
}

func scopeOf(t *ast.DeclarationTable) *Scope {
	s := NewScope(nil)
	for _, d := range t.Entries {
		s.Define(d)
	}
	return s
}

// Builder lowers a configuration into a Plan.
type Builder struct {
	cfg          *ast.Configuration
	source       string
	interceptors *Scope
	mixins       *Scope
	used         map[string]bool
	warnings     []Warning
}

// NewBuilder creates a builder for cfg.
func NewBuilder(cfg *ast.Configuration) *Builder {
	return &Builder{
		cfg:          cfg,
		interceptors: scopeOf(&cfg.Interceptors),
		mixins:       scopeOf(&cfg.Mixins),
		used:         map[string]bool{},
	}
}

// WithSource records the name of the document the plan was built from.
func (b *Builder) WithSource(name string) *Builder {
	b.source = name
	return b
}

// Inherit makes the declaration tables of base visible to links in the
// configuration being built. Local keys shadow inherited ones, and bases
// added earlier shadow bases added later.
func (b *Builder) Inherit(base *ast.Configuration) *Builder {
	b.interceptors.root().parent = scopeOf(&base.Interceptors)
	b.mixins.root().parent = scopeOf(&base.Mixins)
	return b
}

// Build produces the plan and its warnings. An error is returned only for
// trees the parser cannot produce, such as a target selector with no branch.
func (b *Builder) Build() (*Plan, []Warning, error) {
	plan := &Plan{Source: b.source}

	for _, imp := range b.cfg.Imports {
		plan.Imports = append(plan.Imports, Import{
			Namespace: imp.Namespace,
			Assembly:  nameOf(imp.Assembly),
		})
	}

	seen := map[string]ast.Location{}
	for i := range b.cfg.Aspects {
		a := &b.cfg.Aspects[i]
		if first, dup := seen[a.Name]; dup {
			b.warn(a.Location, "aspect %q is already declared at %s", a.Name, first)
		} else {
			seen[a.Name] = a.Location
		}
		aspect, err := b.buildAspect(a)
		if err != nil {
			return nil, nil, err
		}
		plan.Aspects = append(plan.Aspects, aspect)
	}

	b.warnUnused("interceptor", &b.cfg.Interceptors)
	b.warnUnused("mixin", &b.cfg.Mixins)

	plan.Warnings = b.warnings
	return plan, b.warnings, nil
}

func (b *Builder) buildAspect(a *ast.AspectDeclaration) (Aspect, error) {
	target, err := buildTarget(a.Target)
	if err != nil {
		return Aspect{}, fmt.Errorf("aspect %s: %w", a.Name, err)
	}
	out := Aspect{Name: a.Name, Location: a.Location, Target: target}

	for _, m := range a.Mixins {
		out.Mixins = append(out.Mixins, b.resolve("mixin", b.mixins, m.Type))
	}
	for _, pc := range a.Pointcuts {
		p := Pointcut{Flags: pc.Flags, Signature: pc.Signature, Location: pc.Location}
		for _, adv := range pc.Advice {
			p.Advice = append(p.Advice, b.resolve("interceptor", b.interceptors, adv.Type))
		}
		if len(p.Advice) == 0 {
			b.warn(pc.Location, "pointcut %s(%s) in aspect %s has no advice", pc.Flags, pc.Signature, a.Name)
		}
		out.Pointcuts = append(out.Pointcuts, p)
	}
	if len(out.Mixins) == 0 && len(out.Pointcuts) == 0 {
		b.warn(a.Location, "aspect %s has no mixins or pointcuts", a.Name)
	}
	return out, nil
}

// resolve lowers a reference, following a link through scope.
func (b *Builder) resolve(kind string, scope *Scope, tr ast.TypeReference) TypeRef {
	if !tr.IsLink() {
		if tr.TypeName == "" {
			b.warn(tr.Location, "%s reference has neither a type name nor a link", kind)
			return TypeRef{Location: tr.Location}
		}
		return direct(tr)
	}
	out := TypeRef{Link: tr.Link, Location: tr.Location}
	decl, ok := scope.Resolve(tr.Link)
	if !ok {
		b.warn(tr.Location, "unresolved %s link %q", kind, tr.Link)
		return out
	}
	b.used[kind+"\x00"+tr.Link] = true
	if decl.Type.IsLink() {
		b.warn(tr.Location, "%s link %q resolves to another link %q", kind, tr.Link, decl.Type.Link)
		return out
	}
	out.Name = decl.Type.TypeName
	out.Assembly = decl.Type.AssemblyName()
	out.Resolved = true
	return out
}

func (b *Builder) warnUnused(kind string, t *ast.DeclarationTable) {
	for _, d := range t.Entries {
		if !b.used[kind+"\x00"+d.Key] {
			b.warn(d.Location, "%s %q is declared but never used", kind, d.Key)
		}
	}
}

func (b *Builder) warn(loc ast.Location, format string, args ...any) {
	b.warnings = append(b.warnings, Warning{Location: loc, Message: fmt.Sprintf(format, args...)})
}

func buildTarget(sel ast.TargetSelector) (Target, error) {
	if err := sel.Validate(); err != nil {
		return Target{}, err
	}
	t := Target{Strategy: sel.Strategy}
	switch sel.Strategy {
	case ast.StrategySingleType:
		t.Type = ptr(direct(*sel.SingleType))
	case ast.StrategyAssignable:
		t.Type = ptr(direct(*sel.Assignable))
	case ast.StrategyCustom:
		t.Type = ptr(direct(*sel.Custom))
	case ast.StrategyNamespace:
		t.Namespace = sel.Namespace.Pattern
		for _, ex := range sel.Namespace.Excludes {
			t.Excludes = append(t.Excludes, direct(ex))
		}
	}
	return t, nil
}

func direct(tr ast.TypeReference) TypeRef {
	return TypeRef{
		Name:     tr.TypeName,
		Assembly: tr.AssemblyName(),
		Resolved: true,
		Location: tr.Location,
	}
}

func nameOf(a *ast.AssemblyReference) string {
	if a == nil {
		return ""
	}
	return a.Name
}

func ptr[T any](v T) *T {
	return &v
}

// Build lowers cfg with no inherited declarations.
func Build(cfg *ast.Configuration) (*Plan, []Warning, error) {
	return NewBuilder(cfg).Build()
}
