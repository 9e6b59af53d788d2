package lsp

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/adl/pkg/ast"
	"github.com/chazu/adl/pkg/ir"
	"github.com/chazu/adl/pkg/lexer"
	"github.com/chazu/adl/pkg/parser"
)

// document is the analysed state of one open file.
type document struct {
	text        string
	cfg         *ast.Configuration // nil after a fatal error
	plan        *ir.Plan
	diagnostics []protocol.Diagnostic
}

// analyze parses text in resumable mode and collects diagnostics.
func analyze(uri, text string) *document {
	doc := &document{text: text, diagnostics: []protocol.Diagnostic{}}

	cfg, errs, fatal := parser.ParseStringResumable(uri, text)
	for _, se := range errs {
		msg := strings.TrimPrefix(se.Error(), se.Location.String()+": ")
		doc.add(protocol.DiagnosticSeverityError, rangeAt(se.Location, tokenWidth(se.Found)), msg)
	}
	if fatal != nil {
		var dup *ast.DuplicateDeclarationError
		if errors.As(fatal, &dup) {
			msg := fmt.Sprintf("duplicate declaration %q (first declared on line %d)", dup.Key, dup.First.Line)
			doc.add(protocol.DiagnosticSeverityError, rangeAt(dup.Second, len(dup.Key)+2), msg)
		} else {
			doc.add(protocol.DiagnosticSeverityError, protocol.Range{}, fatal.Error())
		}
		return doc
	}
	doc.cfg = cfg

	plan, warnings, err := ir.Build(cfg)
	if err != nil {
		return doc
	}
	doc.plan = plan
	if len(errs) == 0 {
		for _, w := range warnings {
			doc.add(protocol.DiagnosticSeverityWarning, rangeAt(w.Location, 0), w.Message)
		}
	}
	return doc
}

func (d *document) add(severity protocol.DiagnosticSeverity, rng protocol.Range, msg string) {
	source := lspName
	d.diagnostics = append(d.diagnostics, protocol.Diagnostic{
		Range:    rng,
		Severity: &severity,
		Source:   &source,
		Message:  msg,
	})
}

// tokenWidth returns how many columns tok occupies in the source.
func tokenWidth(tok lexer.Token) int {
	switch tok.Type {
	case lexer.EOF:
		return 0
	case lexer.STRING:
		return len(tok.Value) + 2
	}
	return len(tok.Value)
}

// position converts a 1-based line, 0-based column location.
func position(loc lexer.Location) protocol.Position {
	line := loc.Line - 1
	if line < 0 {
		line = 0
	}
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(loc.Column)}
}

func rangeAt(loc lexer.Location, width int) protocol.Range {
	start := position(loc)
	end := start
	end.Character += protocol.UInteger(width)
	return protocol.Range{Start: start, End: end}
}

func (d *document) end() protocol.Position {
	lines := strings.Split(d.text, "\n")
	last := lines[len(lines)-1]
	return protocol.Position{Line: protocol.UInteger(len(lines) - 1), Character: protocol.UInteger(len(last))}
}

// --- Document symbols ---

func (d *document) symbols() []protocol.DocumentSymbol {
	if d.cfg == nil {
		return nil
	}
	var out []protocol.DocumentSymbol
	if sym, ok := tableSymbol("interceptors", &d.cfg.Interceptors); ok {
		out = append(out, sym)
	}
	if sym, ok := tableSymbol("mixins", &d.cfg.Mixins); ok {
		out = append(out, sym)
	}

	for i := range d.cfg.Aspects {
		a := &d.cfg.Aspects[i]
		end := d.end()
		if i+1 < len(d.cfg.Aspects) {
			end = position(d.cfg.Aspects[i+1].Location)
		}
		sym := protocol.DocumentSymbol{
			Name:           a.Name,
			Kind:           protocol.SymbolKindClass,
			Range:          protocol.Range{Start: position(a.Location), End: end},
			SelectionRange: rangeAt(a.Location, len("aspect")),
		}
		if d.plan != nil {
			detail := "for " + d.plan.Aspects[i].Target.String()
			sym.Detail = &detail
		}
		for _, m := range a.Mixins {
			sym.Children = append(sym.Children, protocol.DocumentSymbol{
				Name:           "include " + m.Type.String(),
				Kind:           protocol.SymbolKindInterface,
				Range:          rangeAt(m.Location, len("include")),
				SelectionRange: rangeAt(m.Location, len("include")),
			})
		}
		for j, pc := range a.Pointcuts {
			pcEnd := end
			if j+1 < len(a.Pointcuts) {
				pcEnd = position(a.Pointcuts[j+1].Location)
			}
			child := protocol.DocumentSymbol{
				Name:           fmt.Sprintf("%s(%s)", pc.Flags, pc.Signature),
				Kind:           protocol.SymbolKindMethod,
				Range:          protocol.Range{Start: position(pc.Location), End: pcEnd},
				SelectionRange: rangeAt(pc.Location, len("pointcut")),
			}
			if len(pc.Advice) > 0 {
				names := make([]string, len(pc.Advice))
				for k, adv := range pc.Advice {
					names[k] = adv.Type.String()
				}
				detail := "advice " + strings.Join(names, ", ")
				child.Detail = &detail
			}
			sym.Children = append(sym.Children, child)
		}
		out = append(out, sym)
	}
	return out
}

func tableSymbol(name string, t *ast.DeclarationTable) (protocol.DocumentSymbol, bool) {
	if t.Len() == 0 {
		return protocol.DocumentSymbol{}, false
	}
	sym := protocol.DocumentSymbol{
		Name: name,
		Kind: protocol.SymbolKindNamespace,
	}
	for _, e := range t.Entries {
		detail := e.Type.String()
		rng := rangeAt(e.Location, len(e.Key)+2)
		sym.Children = append(sym.Children, protocol.DocumentSymbol{
			Name:           e.Key,
			Detail:         &detail,
			Kind:           protocol.SymbolKindField,
			Range:          rng,
			SelectionRange: rng,
		})
	}
	first := sym.Children[0].Range.Start
	last := sym.Children[len(sym.Children)-1].Range.End
	sym.Range = protocol.Range{Start: first, End: last}
	sym.SelectionRange = sym.Children[0].Range
	return sym, true
}

// --- Hover and completion ---

// hover describes word as a declaration key or aspect name.
func (d *document) hover(word string) string {
	if d.cfg == nil || word == "" {
		return ""
	}
	var parts []string
	if decl, ok := d.cfg.Interceptors.Get(word); ok {
		parts = append(parts, fmt.Sprintf("**interceptor** `%q` → `%s`", decl.Key, decl.Type))
	}
	if decl, ok := d.cfg.Mixins.Get(word); ok {
		parts = append(parts, fmt.Sprintf("**mixin** `%q` → `%s`", decl.Key, decl.Type))
	}
	if d.plan != nil {
		if a, ok := d.plan.Aspect(word); ok {
			parts = append(parts, fmt.Sprintf("**aspect** %s for `%s`\n\n%d mixins, %d pointcuts",
				a.Name, a.Target, len(a.Mixins), len(a.Pointcuts)))
		}
	}
	return strings.Join(parts, "\n\n")
}

// complete offers keywords and declared keys starting with prefix.
func (d *document) complete(prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	keyword := protocol.CompletionItemKindKeyword
	for _, t := range lexer.Keywords() {
		if kw := t.String(); strings.HasPrefix(kw, prefix) {
			items = append(items, protocol.CompletionItem{Label: kw, Kind: &keyword})
		}
	}
	if d.cfg == nil {
		return items
	}

	reference := protocol.CompletionItemKindReference
	var keys []protocol.CompletionItem
	for _, table := range []struct {
		kind string
		t    *ast.DeclarationTable
	}{{"interceptor", &d.cfg.Interceptors}, {"mixin", &d.cfg.Mixins}} {
		for _, e := range table.t.Entries {
			if !strings.HasPrefix(e.Key, prefix) {
				continue
			}
			detail := table.kind + " " + e.Type.String()
			keys = append(keys, protocol.CompletionItem{Label: e.Key, Kind: &reference, Detail: &detail})
		}
	}
	sort.SliceStable(keys, func(i, j int) bool { return keys[i].Label < keys[j].Label })
	return append(items, keys...)
}

// --- Text extraction helpers ---

func isWordChar(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' || ch == '.'
}

func lineAt(text string, pos protocol.Position) (string, int, bool) {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return "", 0, false
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}
	return line, col, true
}

// extractPrefix returns the word fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	line, col, ok := lineAt(text, pos)
	if !ok {
		return ""
	}

	// Walk backwards from cursor to find the start of the identifier
	start := col
	for start > 0 && isWordChar(rune(line[start-1])) {
		start--
	}
	return line[start:col]
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	line, col, ok := lineAt(text, pos)
	if !ok {
		return ""
	}

	start := col
	for start > 0 && isWordChar(rune(line[start-1])) {
		start--
	}
	end := col
	for end < len(line) && isWordChar(rune(line[end])) {
		end++
	}
	return line[start:end]
}
