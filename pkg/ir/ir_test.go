package ir

import (
	"strings"
	"testing"

	"github.com/chazu/adl/pkg/ast"
	"github.com/chazu/adl/pkg/parser"
)

func mustBuild(t *testing.T, src string) (*Plan, []Warning) {
	t.Helper()
	cfg, err := parser.ParseString("t.adl", src)
	if err != nil {
		t.Fatalf("parse error = %v", err)
	}
	plan, warnings, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return plan, warnings
}

func TestScopeResolve(t *testing.T) {
	parent := NewScope(nil)
	parent.Define(ast.NamedDeclaration{Key: "log", Type: ast.NewTypeReference(ast.Location{}, "Base.Logger", "")})

	child := NewScope(parent)
	child.Define(ast.NamedDeclaration{Key: "sec", Type: ast.NewTypeReference(ast.Location{}, "Security", "")})

	tests := []struct {
		name     string
		scope    *Scope
		key      string
		wantOK   bool
		wantType string
	}{
		{"inherited from parent", child, "log", true, "Base.Logger"},
		{"local", child, "sec", true, "Security"},
		{"missing", child, "missing", false, ""},
		{"parent direct", parent, "log", true, "Base.Logger"},
		{"child not visible in parent", parent, "sec", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decl, ok := tt.scope.Resolve(tt.key)
			if ok != tt.wantOK {
				t.Fatalf("Resolve(%q) ok = %v, want %v", tt.key, ok, tt.wantOK)
			}
			if ok && decl.Type.TypeName != tt.wantType {
				t.Errorf("Resolve(%q) = %s, want %s", tt.key, decl.Type.TypeName, tt.wantType)
			}
		})
	}
}

func TestScopeShadowing(t *testing.T) {
	parent := NewScope(nil)
	parent.Define(ast.NamedDeclaration{Key: "log", Type: ast.NewTypeReference(ast.Location{}, "Base.Logger", "")})
	child := NewScope(parent)
	child.Define(ast.NamedDeclaration{Key: "log", Type: ast.NewTypeReference(ast.Location{}, "Local.Logger", "")})

	decl, ok := child.Resolve("log")
	if !ok {
		t.Fatal("expected to find 'log'")
	}
	if decl.Type.TypeName != "Local.Logger" {
		t.Errorf("Resolve(log) = %s, want the local declaration", decl.Type.TypeName)
	}
}

func TestBuild_ResolvesLinks(t *testing.T) {
	plan, warnings := mustBuild(t, `import My.Aspects in My.Aspects.Asm

interceptors [
  "log": My.Aspects.Logger in My.Aspects.Asm;
  "sec": Security
]
mixins [
  "ser": My.Mixins.Serializable
]

aspect Logging for [ assignableFrom(My.Services.Base) ]
  include "ser"
  pointcut method(* Get.*)
    advice("log")
    advice(Direct.Interceptor)
    advice("sec")
  end
end
`)
	if len(warnings) != 0 {
		t.Errorf("warnings = %v", warnings)
	}
	if len(plan.Imports) != 1 || plan.Imports[0] != (Import{Namespace: "My.Aspects", Assembly: "My.Aspects.Asm"}) {
		t.Errorf("imports = %+v", plan.Imports)
	}

	a, ok := plan.Aspect("Logging")
	if !ok {
		t.Fatal("aspect Logging missing")
	}
	if got := a.Target.String(); got != "assignableFrom(My.Services.Base)" {
		t.Errorf("target = %s", got)
	}
	if len(a.Mixins) != 1 || a.Mixins[0].Name != "My.Mixins.Serializable" || a.Mixins[0].Link != "ser" {
		t.Errorf("mixins = %+v", a.Mixins)
	}

	advice := a.Pointcuts[0].Advice
	want := []string{
		`My.Aspects.Logger in My.Aspects.Asm via "log"`,
		"Direct.Interceptor",
		`Security via "sec"`,
	}
	if len(advice) != len(want) {
		t.Fatalf("advice = %v", advice)
	}
	for i := range want {
		if got := advice[i].String(); got != want[i] {
			t.Errorf("advice[%d] = %s, want %s", i, got, want[i])
		}
		if !advice[i].Resolved {
			t.Errorf("advice[%d] should be resolved", i)
		}
	}
}

func TestBuild_Warnings(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "unresolved advice link",
			src:  `aspect A for T pointcut method(*) advice("missing") end end`,
			want: []string{`unresolved interceptor link "missing"`},
		},
		{
			name: "unresolved mixin link",
			src:  `aspect A for T include "m" end`,
			want: []string{`unresolved mixin link "m"`},
		},
		{
			name: "mixin key is not an interceptor",
			src:  `mixins [ "log": M ] aspect A for T pointcut method(*) advice("log") end end`,
			want: []string{`unresolved interceptor link "log"`, `mixin "log" is declared but never used`},
		},
		{
			name: "unused interceptor",
			src:  `interceptors [ "a": A; "b": B ] aspect X for T pointcut method(*) advice("a") end end`,
			want: []string{`interceptor "b" is declared but never used`},
		},
		{
			name: "pointcut without advice",
			src:  `aspect A for T pointcut method(*) end end`,
			want: []string{"pointcut method(*) in aspect A has no advice"},
		},
		{
			name: "empty aspect",
			src:  `aspect A for T end`,
			want: []string{"aspect A has no mixins or pointcuts"},
		},
		{
			name: "duplicate aspect name",
			src:  `aspect A for T include M end aspect A for U include M end`,
			want: []string{`aspect "A" is already declared at t.adl:1:0`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, warnings := mustBuild(t, tt.src)
			if len(warnings) != len(tt.want) {
				t.Fatalf("warnings = %v, want %v", warnings, tt.want)
			}
			for i, w := range warnings {
				if w.Message != tt.want[i] {
					t.Errorf("warning[%d] = %q, want %q", i, w.Message, tt.want[i])
				}
			}
		})
	}
}

func TestBuild_UnresolvedStaysInPlan(t *testing.T) {
	plan, warnings := mustBuild(t, `aspect A for T
  pointcut method(*)
    advice("first")
    advice(Second)
  end
end`)
	advice := plan.Aspects[0].Pointcuts[0].Advice
	if len(advice) != 2 {
		t.Fatalf("advice = %v", advice)
	}
	if advice[0].Resolved || advice[0].Link != "first" {
		t.Errorf("advice[0] = %+v, want unresolved link", advice[0])
	}
	if advice[0].String() != `"first" (unresolved)` {
		t.Errorf("String() = %s", advice[0])
	}
	if len(warnings) != 1 || warnings[0].Location.Line != 3 {
		t.Errorf("warnings = %v, want one on line 3", warnings)
	}
	if len(plan.Warnings) != len(warnings) {
		t.Errorf("plan.Warnings = %v", plan.Warnings)
	}
	if got := plan.AdviceTypes(); len(got) != 1 || got[0].Name != "Second" {
		t.Errorf("AdviceTypes() = %v", got)
	}
}

func TestBuilder_Inherit(t *testing.T) {
	base, err := parser.ParseString("base.adl", `interceptors [ "log": Base.Logger; "sec": Base.Security ]`)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := parser.ParseString("t.adl", `interceptors [ "log": Local.Logger ]
aspect A for T
  pointcut method(*) advice("log") advice("sec") end
end`)
	if err != nil {
		t.Fatal(err)
	}

	plan, warnings, err := NewBuilder(cfg).WithSource("t.adl").Inherit(base).Build()
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v", warnings)
	}
	if plan.Source != "t.adl" {
		t.Errorf("Source = %q", plan.Source)
	}
	advice := plan.Aspects[0].Pointcuts[0].Advice
	if advice[0].Name != "Local.Logger" || advice[1].Name != "Base.Security" {
		t.Errorf("advice = %v", advice)
	}
}

func TestBuild_Targets(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`aspect A for My.Type in Asm include M end`, "My.Type in Asm"},
		{`aspect A for [ customMatcher(My.Matcher) ] include M end`, "customMatcher(My.Matcher)"},
		{`aspect A for [ My.Ns ] include M end`, "My.Ns"},
		{`aspect A for [ My.Ns excludes(X; Y in Z) ] include M end`, "My.Ns excludes(X; Y in Z)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			plan, _ := mustBuild(t, tt.src)
			if got := plan.Aspects[0].Target.String(); got != tt.want {
				t.Errorf("target = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuild_InvalidTarget(t *testing.T) {
	cfg := ast.NewConfiguration()
	cfg.Aspects = append(cfg.Aspects, ast.AspectDeclaration{Name: "Broken"})
	_, _, err := Build(cfg)
	if err == nil || !strings.Contains(err.Error(), "Broken") {
		t.Errorf("Build() error = %v, want target error naming the aspect", err)
	}
}

func TestBuild_EmptyReference(t *testing.T) {
	cfg := ast.NewConfiguration()
	pc := ast.NewPointcut(ast.Location{Line: 2}, ast.FlagMethod,
		ast.AdviceReference{Type: ast.NewLinkReference(ast.Location{Line: 3}, "")})
	pc.Signature = ast.MatchAllSignature()
	cfg.Aspects = []ast.AspectDeclaration{{
		Name:      "A",
		Target:    ast.SingleTypeTarget(ast.NewTypeReference(ast.Location{}, "T", "")),
		Mixins:    []ast.MixinReference{{Type: ast.TypeReference{Location: ast.Location{Line: 4}}}},
		Pointcuts: []ast.PointcutDeclaration{*pc},
	}}

	plan, warnings, err := Build(cfg)
	if err != nil {
		t.Fatal(err)
	}
	a := plan.Aspects[0]
	if a.Mixins[0].Resolved || a.Pointcuts[0].Advice[0].Resolved {
		t.Errorf("empty references must not resolve: %+v", a)
	}
	want := []string{
		"mixin reference has neither a type name nor a link",
		"interceptor reference has neither a type name nor a link",
	}
	if len(warnings) != len(want) {
		t.Fatalf("warnings = %v", warnings)
	}
	for i := range want {
		if warnings[i].Message != want[i] {
			t.Errorf("warnings[%d] = %q, want %q", i, warnings[i].Message, want[i])
		}
	}
	if got := plan.AdviceTypes(); len(got) != 0 {
		t.Errorf("AdviceTypes() = %v", got)
	}
}
