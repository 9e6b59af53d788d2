package parser

import (
	"testing"

	"github.com/chazu/adl/pkg/ast"
	"github.com/chazu/adl/pkg/lexer"
)

func parseTarget(t *testing.T, src string) (*ast.PointcutDeclaration, error) {
	t.Helper()
	pc := ast.NewPointcut(lexer.Location{}, ast.FlagUnspecified)
	err := ParsePointcutTarget(lexer.NewStringStream("target", src), pc)
	return pc, err
}

func TestParseSignature(t *testing.T) {
	lit, pre, wild := ast.Literal, ast.Prefix, ast.Wildcard
	tests := []struct {
		name string
		body string
		want ast.MethodSignature
	}{
		{"match all", "*", ast.MatchAllSignature()},
		{"wildcard and name", "* DoSomething", ast.NewMethodSignature(wild(), lit("DoSomething"))},
		{"single name", "DoSomething", ast.NewMethodSignature(lit("DoSomething"))},
		{"prefix", "DoS.*", ast.NewMethodSignature(pre("DoS"))},
		{"dotted prefix", "My.Ns.Get.*", ast.NewMethodSignature(pre("My.Ns.Get"))},
		{"dotted literal", "System.String", ast.NewMethodSignature(lit("System.String"))},
		{"three wildcards", "* * *", ast.NewMethodSignature(wild(), wild(), wild())},
		{"three segments", "public int Do.*", ast.NewMethodSignature(lit("public"), lit("int"), pre("Do"))},
		{
			"return type name and arguments",
			"int DoSomething(string, *)",
			ast.NewMethodSignature(lit("int"), lit("DoSomething")).WithArguments(lit("string"), wild()),
		},
		{
			"single segment with arguments",
			"String (*)",
			ast.NewMethodSignature(lit("String")).WithArguments(wild()),
		},
		{
			"wildcard with arguments",
			"* (int)",
			ast.NewMethodSignature(wild()).WithArguments(lit("int")),
		},
		{
			"empty argument list",
			"Dispose()",
			ast.NewMethodSignature(lit("Dispose")).WithArguments(),
		},
		{
			"three segments with arguments",
			"* * Set.*(System.Int32, My.Types.*)",
			ast.NewMethodSignature(wild(), wild(), pre("Set")).WithArguments(lit("System.Int32"), pre("My.Types")),
		},
		{
			"brace arguments",
			"* Do { int, * }",
			ast.NewMethodSignature(wild(), lit("Do")).WithArguments(lit("int"), wild()),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, group := range [][2]string{{"(", ")"}, {"{", "}"}} {
				pc, err := parseTarget(t, "method"+group[0]+tt.body+group[1])
				if err != nil {
					t.Fatalf("%s%s%s: error = %v", group[0], tt.body, group[1], err)
				}
				if !pc.Signature.Equal(tt.want) {
					t.Errorf("%s%s%s: Signature = %#v, want %#v", group[0], tt.body, group[1], pc.Signature, tt.want)
				}
			}
		})
	}
}

func TestParseSignature_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		found lexer.TokenType
	}{
		{"empty signature", "method()", lexer.RPAREN},
		{"fourth segment", "method(a b c d)", lexer.IDENT},
		{"wildcard after third segment", "method(a b c *)", lexer.STAR},
		{"wildcard after argument", "method(Foo(int *))", lexer.STAR},
		{"dangling dot", "method(Foo.)", lexer.RPAREN},
		{"mismatched closer", "method(* }", lexer.RBRACE},
		{"unclosed arguments", "method(Foo(int)", lexer.EOF},
		{"empty argument", "method(Foo(int,))", lexer.RPAREN},
		{"missing group", "method *", lexer.STAR},
		{"trailing tokens", "method(*) end", lexer.END},
		{"no flags", "(*)", lexer.LPAREN},
		{"dangling or", "method|(*)", lexer.LPAREN},
		{"pointcut keyword", "pointcut method(*)", lexer.POINTCUT},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pc, err := parseTarget(t, tt.input)
			se := syntaxError(t, err)
			if se.Found.Type != tt.found {
				t.Errorf("Found = %s, want %s (%v)", se.Found.Type, tt.found, se)
			}
			if pc.Flags != ast.FlagUnspecified || !pc.Signature.Equal(ast.MethodSignature{}) {
				t.Errorf("failed parse modified the pointcut: %+v", pc)
			}
		})
	}
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		input string
		want  ast.PointcutFlags
	}{
		{"method(*)", ast.FlagMethod},
		{"property(*)", ast.FlagProperty},
		{"propertyread(*)", ast.FlagPropertyRead},
		{"propertywrite(*)", ast.FlagPropertyWrite},
		{"method|property(*)", ast.FlagMethod | ast.FlagProperty},
		{"method or propertyread or propertywrite(*)", ast.FlagMethod | ast.FlagPropertyRead | ast.FlagPropertyWrite},
		{"method|method(*)", ast.FlagMethod},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			pc, err := parseTarget(t, tt.input)
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if pc.Flags != tt.want {
				t.Errorf("Flags = %v, want %v", pc.Flags, tt.want)
			}
		})
	}
}

func TestParse_PointcutWithoutFlags(t *testing.T) {
	_, err := ParseString("t.adl", "aspect A for T pointcut (*) end end")
	se := syntaxError(t, err)
	if se.Rule != "pointcut flags" {
		t.Errorf("Rule = %q, want pointcut flags", se.Rule)
	}
	want := []lexer.TokenType{lexer.METHOD, lexer.PROPERTY, lexer.PROPERTYREAD, lexer.PROPERTYWRITE}
	if len(se.Expected) != len(want) {
		t.Fatalf("Expected = %v, want %v", se.Expected, want)
	}
	for i := range want {
		if se.Expected[i] != want[i] {
			t.Errorf("Expected[%d] = %s, want %s", i, se.Expected[i], want[i])
		}
	}
}

func TestParsePointcutTarget_Builder(t *testing.T) {
	pc := ast.NewPointcut(lexer.Location{Line: 9}, ast.FlagUnspecified,
		ast.AdviceReference{Type: ast.NewLinkReference(lexer.Location{}, "log")})

	err := ParsePointcutTarget(lexer.NewStringStream("", "property|method(* Get.*)"), pc)
	if err != nil {
		t.Fatalf("ParsePointcutTarget() error = %v", err)
	}
	if pc.Flags != ast.FlagMethod|ast.FlagProperty {
		t.Errorf("Flags = %v", pc.Flags)
	}
	want := ast.NewMethodSignature(ast.Wildcard(), ast.Prefix("Get"))
	if !pc.Signature.Equal(want) {
		t.Errorf("Signature = %s, want %s", pc.Signature, want)
	}
	if len(pc.Advice) != 1 || pc.Location.Line != 9 {
		t.Errorf("advice and location must be preserved: %+v", pc)
	}
}

func TestParse_AdviceOrder(t *testing.T) {
	cfg := mustParse(t, `aspect A for T
  pointcut method(*)
    advice("first")
    advice(Second in Asm)
    advice { "third" }
  end
end`)
	advice := cfg.Aspects[0].Pointcuts[0].Advice
	got := make([]string, len(advice))
	for i, a := range advice {
		got[i] = a.Type.String()
	}
	want := []string{`"first"`, "Second in Asm", `"third"`}
	if len(got) != len(want) {
		t.Fatalf("advice = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("advice[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestParse_InterleavedMembers(t *testing.T) {
	cfg := mustParse(t, `aspect A for T
  include "m1"
  pointcut method(*) end
  include M2
  pointcut property(*) end
end`)
	a := cfg.Aspects[0]
	if len(a.Mixins) != 2 || len(a.Pointcuts) != 2 {
		t.Fatalf("mixins = %d, pointcuts = %d", len(a.Mixins), len(a.Pointcuts))
	}
	if a.Mixins[0].Type.Link != "m1" || a.Mixins[1].Type.TypeName != "M2" {
		t.Errorf("mixins = %+v", a.Mixins)
	}
}
