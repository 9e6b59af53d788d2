package lexer

// Stream is a pre-buffered token source with arbitrary lookahead.
// It never runs past the trailing EOF token.
type Stream struct {
	tokens []Token
	pos    int
}

// NewStream wraps a token slice. A trailing EOF token is appended when missing.
func NewStream(tokens []Token) *Stream {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != EOF {
		var loc Location
		if len(tokens) > 0 {
			loc = tokens[len(tokens)-1].Loc
		}
		tokens = append(tokens[:len(tokens):len(tokens)], NewToken(EOF, "", loc))
	}
	return &Stream{tokens: tokens}
}

// NewStringStream tokenizes input and wraps the result.
func NewStringStream(source, input string) *Stream {
	return NewStream(Tokenize(source, input))
}

// Peek returns the k-th upcoming token; Peek(1) is the next token to be consumed.
func (s *Stream) Peek(k int) Token {
	if k < 1 {
		k = 1
	}
	i := s.pos + k - 1
	if i >= len(s.tokens) {
		return s.tokens[len(s.tokens)-1]
	}
	return s.tokens[i]
}

// Advance consumes and returns the next token. At EOF it keeps returning EOF.
func (s *Stream) Advance() Token {
	tok := s.tokens[s.pos]
	if s.pos < len(s.tokens)-1 {
		s.pos++
	}
	return tok
}

// Position returns the location of the next token.
func (s *Stream) Position() Location {
	return s.tokens[s.pos].Loc
}

// Remaining returns the number of tokens left before EOF.
func (s *Stream) Remaining() int {
	return len(s.tokens) - 1 - s.pos
}
