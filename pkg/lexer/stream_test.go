package lexer

import "testing"

func TestStream_PeekAndAdvance(t *testing.T) {
	s := NewStringStream("s.adl", "aspect A end")

	if got := s.Peek(1).Type; got != ASPECT {
		t.Fatalf("Peek(1) = %s, want aspect", got)
	}
	if got := s.Peek(3).Type; got != END {
		t.Fatalf("Peek(3) = %s, want end", got)
	}
	if got := s.Peek(10).Type; got != EOF {
		t.Fatalf("Peek(10) = %s, want EOF", got)
	}
	if got := s.Remaining(); got != 3 {
		t.Errorf("Remaining() = %d, want 3", got)
	}

	if tok := s.Advance(); tok.Type != ASPECT {
		t.Errorf("Advance() = %s, want aspect", tok.Type)
	}
	if pos := s.Position(); pos.Column != 7 || pos.Source != "s.adl" {
		t.Errorf("Position() = %v, want s.adl:1:7", pos)
	}

	s.Advance()
	s.Advance()
	for i := 0; i < 3; i++ {
		if tok := s.Advance(); tok.Type != EOF {
			t.Fatalf("Advance() past end = %s, want EOF", tok.Type)
		}
	}
}

func TestNewStream_AppendsEOF(t *testing.T) {
	s := NewStream([]Token{NewToken(IDENT, "x", Location{Line: 2, Column: 4})})
	s.Advance()
	tok := s.Peek(1)
	if tok.Type != EOF {
		t.Fatalf("Peek(1) = %s, want EOF", tok.Type)
	}
	if tok.Loc.Line != 2 {
		t.Errorf("EOF line = %d, want 2", tok.Loc.Line)
	}

	empty := NewStream(nil)
	if empty.Peek(1).Type != EOF {
		t.Error("empty stream should yield EOF")
	}
}
