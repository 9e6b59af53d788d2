package ast

import "strings"

// SegmentKind distinguishes the three wildcard encodings of a pattern segment.
// They are never interchangeable: "Foo" is exact, "Foo.*" is a prefix match,
// "*" matches anything.
type SegmentKind string

const (
	SegmentLiteral  SegmentKind = "literal"
	SegmentPrefix   SegmentKind = "prefix"
	SegmentWildcard SegmentKind = "wildcard"
)

// PatternSegment is one wildcard-capable piece of a method signature.
// Text holds the segment as written: "Foo.Bar", "Foo.*" or "*".
type PatternSegment struct {
	Kind SegmentKind `json:"kind" yaml:"kind" cbor:"kind"`
	Text string      `json:"text" yaml:"text" cbor:"text"`
}

// Literal returns an exact-match segment for a dotted name.
func Literal(name string) PatternSegment {
	return PatternSegment{Kind: SegmentLiteral, Text: name}
}

// Prefix returns a prefix-match segment; Prefix("Foo") is written "Foo.*".
func Prefix(name string) PatternSegment {
	return PatternSegment{Kind: SegmentPrefix, Text: name + ".*"}
}

// Wildcard returns the bare "*" segment.
func Wildcard() PatternSegment {
	return PatternSegment{Kind: SegmentWildcard, Text: "*"}
}

// Stem returns the name part of a prefix segment ("Foo" for "Foo.*"),
// or Text for the other kinds.
func (s PatternSegment) Stem() string {
	if s.Kind == SegmentPrefix {
		return strings.TrimSuffix(s.Text, ".*")
	}
	return s.Text
}

func (s PatternSegment) String() string {
	return s.Text
}

// MaxSegments is the most name segments a signature may carry.
const MaxSegments = 3

// MethodSignature is either the match-all sentinel or 1..3 ordered name
// segments plus an optional argument list. What each segment means is a
// convention of the weaver consuming the tree; order and wildcard encoding
// are preserved exactly as written.
type MethodSignature struct {
	MatchAll     bool             `json:"matchAll,omitempty" yaml:"matchAll,omitempty" cbor:"matchAll,omitempty"`
	Segments     []PatternSegment `json:"segments,omitempty" yaml:"segments,omitempty" cbor:"segments,omitempty"`
	HasArguments bool             `json:"hasArguments,omitempty" yaml:"hasArguments,omitempty" cbor:"hasArguments,omitempty"`
	Arguments    []PatternSegment `json:"arguments,omitempty" yaml:"arguments,omitempty" cbor:"arguments,omitempty"`
}

// MatchAllSignature returns the sentinel matching every member regardless of name or arguments.
func MatchAllSignature() MethodSignature {
	return MethodSignature{MatchAll: true}
}

// NewMethodSignature builds a signature without an argument list.
func NewMethodSignature(segments ...PatternSegment) MethodSignature {
	return MethodSignature{Segments: segments}
}

// WithArguments returns a copy of s carrying an argument list. An empty call
// yields "()", which is distinct from having no list at all.
func (s MethodSignature) WithArguments(args ...PatternSegment) MethodSignature {
	s.HasArguments = true
	s.Arguments = args
	return s
}

// Equal reports structural equality. Nil and empty slices compare equal.
func (s MethodSignature) Equal(o MethodSignature) bool {
	if s.MatchAll != o.MatchAll || s.HasArguments != o.HasArguments {
		return false
	}
	return segmentsEqual(s.Segments, o.Segments) && segmentsEqual(s.Arguments, o.Arguments)
}

func segmentsEqual(a, b []PatternSegment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// String renders the signature body as written between the pointcut's braces.
func (s MethodSignature) String() string {
	if s.MatchAll {
		return "*"
	}
	var sb strings.Builder
	for i, seg := range s.Segments {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(seg.Text)
	}
	if s.HasArguments {
		sb.WriteByte('(')
		for i, arg := range s.Arguments {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(arg.Text)
		}
		sb.WriteByte(')')
	}
	return sb.String()
}
