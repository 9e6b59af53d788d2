package lsp

import (
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

const sample = `interceptors [
  "log": My.Logger in Asm;
  "sec": My.Security
]

aspect Logging for [ assignableFrom(My.Base) ]
  include My.Mixin
  pointcut method(* Get.*)
    advice("log")
  end
  pointcut property(*)
    advice("sec")
  end
end

aspect Other for T
  pointcut method(*) advice("log") end
end
`

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

func TestAnalyze_Clean(t *testing.T) {
	doc := analyze("file:///a.adl", sample)
	if len(doc.diagnostics) != 0 {
		t.Errorf("diagnostics = %+v", doc.diagnostics)
	}
	if doc.cfg == nil || doc.plan == nil {
		t.Fatal("expected configuration and plan")
	}
}

func TestAnalyze_SyntaxErrors(t *testing.T) {
	text := "aspect A for X\n  include 42\nend\naspect B for [ ] end\n"
	doc := analyze("file:///a.adl", text)
	if len(doc.diagnostics) != 2 {
		t.Fatalf("diagnostics = %+v, want 2", doc.diagnostics)
	}

	first := doc.diagnostics[0]
	if *first.Severity != protocol.DiagnosticSeverityError {
		t.Errorf("severity = %v, want error", *first.Severity)
	}
	if first.Range.Start.Line != 1 || first.Range.Start.Character != 10 {
		t.Errorf("range = %+v, want line 1 col 10", first.Range)
	}
	if first.Range.End.Character != 11 {
		t.Errorf("range end = %+v, want the width of the bad token", first.Range.End)
	}
	if strings.HasPrefix(first.Message, "file:///a.adl") {
		t.Errorf("message repeats the location: %q", first.Message)
	}
	if *first.Source != lspName {
		t.Errorf("source = %q", *first.Source)
	}

	// warnings are held back while the document has syntax errors
	for _, d := range doc.diagnostics {
		if *d.Severity != protocol.DiagnosticSeverityError {
			t.Errorf("unexpected non-error diagnostic %+v", d)
		}
	}
}

func TestAnalyze_Warnings(t *testing.T) {
	text := "aspect A for X\n  pointcut method(*)\n    advice(\"missing\")\n  end\nend\n"
	doc := analyze("file:///a.adl", text)
	if len(doc.diagnostics) != 1 {
		t.Fatalf("diagnostics = %+v, want 1", doc.diagnostics)
	}
	d := doc.diagnostics[0]
	if *d.Severity != protocol.DiagnosticSeverityWarning {
		t.Errorf("severity = %v, want warning", *d.Severity)
	}
	if d.Range.Start.Line != 2 || !strings.Contains(d.Message, `"missing"`) {
		t.Errorf("diagnostic = %+v", d)
	}
}

func TestAnalyze_Duplicate(t *testing.T) {
	text := "interceptors [\n  \"a\": A;\n  \"a\": B\n]\n"
	doc := analyze("file:///a.adl", text)
	if doc.cfg != nil {
		t.Error("fatal error should leave no configuration")
	}
	if len(doc.diagnostics) != 1 {
		t.Fatalf("diagnostics = %+v, want 1", doc.diagnostics)
	}
	d := doc.diagnostics[0]
	if d.Range.Start.Line != 2 || !strings.Contains(d.Message, "first declared on line 2") {
		t.Errorf("diagnostic = %+v", d)
	}
	if doc.symbols() != nil {
		t.Error("no symbols without a configuration")
	}
}

// ---------------------------------------------------------------------------
// Symbols, hover, completion
// ---------------------------------------------------------------------------

func TestSymbols(t *testing.T) {
	syms := analyze("file:///a.adl", sample).symbols()
	var names []string
	for _, s := range syms {
		names = append(names, s.Name)
	}
	if strings.Join(names, ",") != "interceptors,Logging,Other" {
		t.Fatalf("symbols = %v", names)
	}

	table := syms[0]
	if len(table.Children) != 2 || table.Children[0].Name != "log" || *table.Children[0].Detail != "My.Logger in Asm" {
		t.Errorf("table children = %+v", table.Children)
	}

	logging := syms[1]
	if logging.Kind != protocol.SymbolKindClass {
		t.Errorf("kind = %v", logging.Kind)
	}
	if logging.Detail == nil || *logging.Detail != "for assignableFrom(My.Base)" {
		t.Errorf("detail = %v", logging.Detail)
	}
	if logging.Range.Start.Line != 5 || logging.Range.End.Line != 15 {
		t.Errorf("range = %+v", logging.Range)
	}
	var children []string
	for _, c := range logging.Children {
		children = append(children, c.Name)
	}
	want := "include My.Mixin|method(* Get.*)|property(*)"
	if strings.Join(children, "|") != want {
		t.Errorf("children = %v, want %s", children, want)
	}
	if d := logging.Children[1].Detail; d == nil || *d != `advice "log"` {
		t.Errorf("pointcut detail = %v", d)
	}
}

func TestHover(t *testing.T) {
	doc := analyze("file:///a.adl", sample)
	tests := []struct {
		word string
		want string
	}{
		{"log", "**interceptor**"},
		{"Logging", "**aspect** Logging for `assignableFrom(My.Base)`"},
		{"nothing", ""},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			got := doc.hover(tt.word)
			if tt.want == "" {
				if got != "" {
					t.Errorf("hover = %q, want empty", got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("hover = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestComplete(t *testing.T) {
	doc := analyze("file:///a.adl", sample)

	labels := func(items []protocol.CompletionItem) string {
		var out []string
		for _, it := range items {
			out = append(out, it.Label)
		}
		return strings.Join(out, ",")
	}

	if got := labels(doc.complete("prop")); got != "property,propertyread,propertywrite" {
		t.Errorf("complete(prop) = %s", got)
	}
	if got := labels(doc.complete("s")); got != "sec" {
		t.Errorf("complete(s) = %s", got)
	}
	if got := labels(doc.complete("in")); got != "in,include,interceptors,includes" {
		t.Errorf("complete(in) = %s", got)
	}
}

// ---------------------------------------------------------------------------
// Text extraction helpers
// ---------------------------------------------------------------------------

func TestExtractPrefix(t *testing.T) {
	tests := []struct {
		name string
		text string
		pos  protocol.Position
		want string
	}{
		{"simple word", "aspect Log", protocol.Position{Line: 0, Character: 10}, "Log"},
		{"dotted name", "include My.Mi", protocol.Position{Line: 0, Character: 13}, "My.Mi"},
		{"inside quotes", `advice("lo`, protocol.Position{Line: 0, Character: 10}, "lo"},
		{"multi line", "first\nsecond\nasp", protocol.Position{Line: 2, Character: 3}, "asp"},
		{"cursor at beginning", "hello", protocol.Position{Line: 0, Character: 0}, ""},
		{"line beyond document", "single line", protocol.Position{Line: 5, Character: 0}, ""},
		{"column beyond line", "abc", protocol.Position{Line: 0, Character: 99}, "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractPrefix(tt.text, tt.pos); got != tt.want {
				t.Errorf("extractPrefix = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractWord(t *testing.T) {
	tests := []struct {
		name string
		text string
		pos  protocol.Position
		want string
	}{
		{"middle of word", "aspect Logging for T", protocol.Position{Line: 0, Character: 9}, "Logging"},
		{"quoted key", `advice("log")`, protocol.Position{Line: 0, Character: 9}, "log"},
		{"dotted name", "for My.Base end", protocol.Position{Line: 0, Character: 5}, "My.Base"},
		{"on whitespace", "a  b", protocol.Position{Line: 0, Character: 2}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractWord(tt.text, tt.pos); got != tt.want {
				t.Errorf("extractWord = %q, want %q", got, tt.want)
			}
		})
	}
}
