// Package ir lowers a parsed configuration into a weaving plan.
//
// The plan is what a weaver consumes: one entry per aspect, with the target
// summarised and every mixin and advice link replaced by the type it names in
// the declaration tables. Links that cannot be resolved stay in the plan,
// marked unresolved, and produce a Warning. They are never syntax errors.
package ir

import (
	"fmt"
	"strings"

	"github.com/chazu/adl/pkg/ast"
	"github.com/chazu/adl/pkg/lexer"
)

// Plan is the weaving plan for one configuration.
type Plan struct {
	Source   string    `json:"source,omitempty"`
	Imports  []Import  `json:"imports,omitempty"`
	Aspects  []Aspect  `json:"aspects,omitempty"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// Aspect returns the planned aspect with the given name.
func (p *Plan) Aspect(name string) (*Aspect, bool) {
	for i := range p.Aspects {
		if p.Aspects[i].Name == name {
			return &p.Aspects[i], true
		}
	}
	return nil, false
}

// AdviceTypes returns every distinct resolved advice type in first-use order.
func (p *Plan) AdviceTypes() []TypeRef {
	seen := map[string]bool{}
	var out []TypeRef
	for _, a := range p.Aspects {
		for _, pc := range a.Pointcuts {
			for _, adv := range pc.Advice {
				if !adv.Resolved {
					continue
				}
				key := adv.Qualified()
				if seen[key] {
					continue
				}
				seen[key] = true
				out = append(out, adv)
			}
		}
	}
	return out
}

// Import is a namespace made visible to type lookup.
type Import struct {
	Namespace string `json:"namespace"`
	Assembly  string `json:"assembly,omitempty"`
}

// TypeRef is a type reference after link resolution.
type TypeRef struct {
	Name     string         `json:"name,omitempty"`
	Assembly string         `json:"assembly,omitempty"`
	Link     string         `json:"link,omitempty"`
	Resolved bool           `json:"resolved"`
	Location lexer.Location `json:"location"`
}

// Qualified returns "Name, Assembly", or just Name when no assembly is known.
func (t TypeRef) Qualified() string {
	if t.Assembly == "" {
		return t.Name
	}
	return t.Name + ", " + t.Assembly
}

func (t TypeRef) String() string {
	if !t.Resolved {
		return fmt.Sprintf("%q (unresolved)", t.Link)
	}
	s := t.Name
	if t.Assembly != "" {
		s += " in " + t.Assembly
	}
	if t.Link != "" {
		s += fmt.Sprintf(" via %q", t.Link)
	}
	return s
}

// Target is the lowered target selector of an aspect. Type is set for the
// single-type, assignable and custom strategies; Namespace and Excludes for
// the namespace strategy.
type Target struct {
	Strategy  ast.TargetStrategy `json:"strategy"`
	Type      *TypeRef           `json:"type,omitempty"`
	Namespace string             `json:"namespace,omitempty"`
	Excludes  []TypeRef          `json:"excludes,omitempty"`
}

func (t Target) String() string {
	switch t.Strategy {
	case ast.StrategyAssignable:
		return "assignableFrom(" + t.Type.String() + ")"
	case ast.StrategyCustom:
		return "customMatcher(" + t.Type.String() + ")"
	case ast.StrategyNamespace:
		if len(t.Excludes) == 0 {
			return t.Namespace
		}
		ex := make([]string, len(t.Excludes))
		for i, e := range t.Excludes {
			ex[i] = e.String()
		}
		return t.Namespace + " excludes(" + strings.Join(ex, "; ") + ")"
	}
	if t.Type == nil {
		return ""
	}
	return t.Type.String()
}

// Aspect is one planned aspect.
type Aspect struct {
	Name      string         `json:"name"`
	Location  lexer.Location `json:"location"`
	Target    Target         `json:"target"`
	Mixins    []TypeRef      `json:"mixins,omitempty"`
	Pointcuts []Pointcut     `json:"pointcuts,omitempty"`
}

// Pointcut is one planned pointcut. Advice keeps declaration order, which is
// the order interceptors run in.
type Pointcut struct {
	Flags     ast.PointcutFlags   `json:"flags"`
	Signature ast.MethodSignature `json:"signature"`
	Advice    []TypeRef           `json:"advice,omitempty"`
	Location  lexer.Location      `json:"location"`
}

// Warning is a non-fatal finding about the plan.
type Warning struct {
	Location lexer.Location `json:"location"`
	Message  string         `json:"message"`
}

func (w Warning) String() string {
	return w.Location.String() + ": " + w.Message
}
