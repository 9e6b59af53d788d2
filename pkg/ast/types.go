// Package ast defines the configuration tree produced by the ADL parser.
//
// A Configuration is built once, top-down, by a single parse and is not
// mutated afterwards. Ownership is strictly tree-shaped: the configuration
// owns its aspects, aspects own their pointcuts, pointcuts own their advice,
// and every TypeReference belongs to exactly one node.
package ast

import (
	"fmt"
	"strings"

	"github.com/chazu/adl/pkg/lexer"
)

// Location represents a position in the source file.
type Location = lexer.Location

// Configuration is the root of a parsed ADL document.
type Configuration struct {
	Imports      []ImportDirective   `json:"imports,omitempty" yaml:"imports,omitempty" cbor:"imports,omitempty"`
	Interceptors DeclarationTable    `json:"interceptors" yaml:"interceptors" cbor:"interceptors"`
	Mixins       DeclarationTable    `json:"mixins" yaml:"mixins" cbor:"mixins"`
	Aspects      []AspectDeclaration `json:"aspects,omitempty" yaml:"aspects,omitempty" cbor:"aspects,omitempty"`
}

// NewConfiguration returns an empty configuration.
func NewConfiguration() *Configuration {
	return &Configuration{}
}

// Aspect returns the first aspect with the given name.
func (c *Configuration) Aspect(name string) (*AspectDeclaration, bool) {
	for i := range c.Aspects {
		if c.Aspects[i].Name == name {
			return &c.Aspects[i], true
		}
	}
	return nil, false
}

// ImportDirective represents: import Namespace [in Assembly]
type ImportDirective struct {
	Namespace string             `json:"namespace" yaml:"namespace" cbor:"namespace"`
	Assembly  *AssemblyReference `json:"assembly,omitempty" yaml:"assembly,omitempty" cbor:"assembly,omitempty"`
	Location  Location           `json:"location" yaml:"location" cbor:"location"`
}

// AssemblyReference names the assembly a type or namespace is loaded from.
type AssemblyReference struct {
	Name     string   `json:"name" yaml:"name" cbor:"name"`
	Location Location `json:"location" yaml:"location" cbor:"location"`
}

// TypeReference is either a dotted type name with an optional assembly,
// or a link: a key resolved later against a declaration table.
// Exactly one of TypeName and Link is set.
type TypeReference struct {
	TypeName string             `json:"typeName,omitempty" yaml:"typeName,omitempty" cbor:"typeName,omitempty"`
	Assembly *AssemblyReference `json:"assembly,omitempty" yaml:"assembly,omitempty" cbor:"assembly,omitempty"`
	Link     string             `json:"link,omitempty" yaml:"link,omitempty" cbor:"link,omitempty"`
	Location Location           `json:"location" yaml:"location" cbor:"location"`
}

// NewTypeReference creates a direct reference to typeName. assembly may be empty.
func NewTypeReference(loc Location, typeName, assembly string) TypeReference {
	tr := TypeReference{TypeName: typeName, Location: loc}
	if assembly != "" {
		tr.Assembly = &AssemblyReference{Name: assembly, Location: loc}
	}
	return tr
}

// NewLinkReference creates an indirect reference to a declaration table key.
func NewLinkReference(loc Location, key string) TypeReference {
	return TypeReference{Link: key, Location: loc}
}

// IsLink reports whether the reference must be resolved through a declaration table.
func (t TypeReference) IsLink() bool {
	return t.Link != ""
}

// AssemblyName returns the assembly name, or "" when unspecified.
func (t TypeReference) AssemblyName() string {
	if t.Assembly == nil {
		return ""
	}
	return t.Assembly.Name
}

// String renders the reference the way it is written in ADL.
func (t TypeReference) String() string {
	if t.IsLink() {
		return fmt.Sprintf("%q", t.Link)
	}
	if t.Assembly != nil {
		return t.TypeName + " in " + t.Assembly.Name
	}
	return t.TypeName
}

// AspectDeclaration represents: aspect Name for <target> ... end
type AspectDeclaration struct {
	Name      string                `json:"name" yaml:"name" cbor:"name"`
	Location  Location              `json:"location" yaml:"location" cbor:"location"`
	Target    TargetSelector        `json:"target" yaml:"target" cbor:"target"`
	Mixins    []MixinReference      `json:"mixins,omitempty" yaml:"mixins,omitempty" cbor:"mixins,omitempty"`
	Pointcuts []PointcutDeclaration `json:"pointcuts,omitempty" yaml:"pointcuts,omitempty" cbor:"pointcuts,omitempty"`
}

// TargetStrategy tags the active branch of a TargetSelector.
type TargetStrategy string

const (
	StrategySingleType TargetStrategy = "singleType"
	StrategyAssignable TargetStrategy = "assignable"
	StrategyCustom     TargetStrategy = "custom"
	StrategyNamespace  TargetStrategy = "namespace"
)

// TargetSelector chooses the types an aspect applies to. Strategy names the
// single populated branch; the other three are nil.
type TargetSelector struct {
	Strategy   TargetStrategy     `json:"strategy" yaml:"strategy" cbor:"strategy"`
	SingleType *TypeReference     `json:"singleType,omitempty" yaml:"singleType,omitempty" cbor:"singleType,omitempty"`
	Assignable *TypeReference     `json:"assignableFrom,omitempty" yaml:"assignableFrom,omitempty" cbor:"assignableFrom,omitempty"`
	Custom     *TypeReference     `json:"customMatcher,omitempty" yaml:"customMatcher,omitempty" cbor:"customMatcher,omitempty"`
	Namespace  *NamespaceSelector `json:"namespace,omitempty" yaml:"namespace,omitempty" cbor:"namespace,omitempty"`
}

// NamespaceSelector matches every type under a namespace prefix except the excluded ones.
type NamespaceSelector struct {
	Pattern  string          `json:"pattern" yaml:"pattern" cbor:"pattern"`
	Excludes []TypeReference `json:"excludes,omitempty" yaml:"excludes,omitempty" cbor:"excludes,omitempty"`
}

// SingleTypeTarget targets exactly one type.
func SingleTypeTarget(tr TypeReference) TargetSelector {
	return TargetSelector{Strategy: StrategySingleType, SingleType: &tr}
}

// AssignableTarget targets every type assignable to tr.
func AssignableTarget(tr TypeReference) TargetSelector {
	return TargetSelector{Strategy: StrategyAssignable, Assignable: &tr}
}

// CustomTarget delegates type selection to a matcher implementation.
func CustomTarget(matcher TypeReference) TargetSelector {
	return TargetSelector{Strategy: StrategyCustom, Custom: &matcher}
}

// NamespaceTarget targets all types below pattern, minus excludes.
func NamespaceTarget(pattern string, excludes ...TypeReference) TargetSelector {
	return TargetSelector{Strategy: StrategyNamespace, Namespace: &NamespaceSelector{Pattern: pattern, Excludes: excludes}}
}

// Populated returns how many strategy branches are set. A well-formed selector has exactly one.
func (s TargetSelector) Populated() int {
	n := 0
	if s.SingleType != nil {
		n++
	}
	if s.Assignable != nil {
		n++
	}
	if s.Custom != nil {
		n++
	}
	if s.Namespace != nil {
		n++
	}
	return n
}

// Validate checks that the tag matches the single populated branch.
func (s TargetSelector) Validate() error {
	if n := s.Populated(); n != 1 {
		return fmt.Errorf("target selector has %d populated strategies, want 1", n)
	}
	var ok bool
	switch s.Strategy {
	case StrategySingleType:
		ok = s.SingleType != nil
	case StrategyAssignable:
		ok = s.Assignable != nil
	case StrategyCustom:
		ok = s.Custom != nil
	case StrategyNamespace:
		ok = s.Namespace != nil
	default:
		return fmt.Errorf("unknown target strategy %q", s.Strategy)
	}
	if !ok {
		return fmt.Errorf("target strategy %q does not match the populated branch", s.Strategy)
	}
	return nil
}

// MixinReference represents: include TypeRef | include "link"
type MixinReference struct {
	Location Location      `json:"location" yaml:"location" cbor:"location"`
	Type     TypeReference `json:"type" yaml:"type" cbor:"type"`
}

// AdviceReference represents one interceptor applied to a pointcut.
// Advice order on a pointcut is the declaration order.
type AdviceReference struct {
	Location Location      `json:"location" yaml:"location" cbor:"location"`
	Type     TypeReference `json:"type" yaml:"type" cbor:"type"`
}

// PointcutDeclaration represents: pointcut flags(signature) advice(...)* end
type PointcutDeclaration struct {
	Location  Location          `json:"location" yaml:"location" cbor:"location"`
	Flags     PointcutFlags     `json:"flags" yaml:"flags" cbor:"flags"`
	Signature MethodSignature   `json:"signature" yaml:"signature" cbor:"signature"`
	Advice    []AdviceReference `json:"advice,omitempty" yaml:"advice,omitempty" cbor:"advice,omitempty"`
}

// NewPointcut builds a pointcut programmatically. Its signature is usually
// filled in afterwards by parser.ParsePointcutTarget.
func NewPointcut(loc Location, flags PointcutFlags, advice ...AdviceReference) *PointcutDeclaration {
	return &PointcutDeclaration{Location: loc, Flags: flags, Advice: advice}
}

// PointcutFlags is the set of member kinds a pointcut selects.
type PointcutFlags uint8

const (
	FlagMethod PointcutFlags = 1 << iota
	FlagProperty
	FlagPropertyRead
	FlagPropertyWrite

	// FlagUnspecified is the zero value; the grammar never produces it.
	FlagUnspecified PointcutFlags = 0
)

var flagNames = []struct {
	flag PointcutFlags
	name string
}{
	{FlagMethod, "method"},
	{FlagProperty, "property"},
	{FlagPropertyRead, "propertyread"},
	{FlagPropertyWrite, "propertywrite"},
}

// Has reports whether every bit of f2 is set in f.
func (f PointcutFlags) Has(f2 PointcutFlags) bool {
	return f2 != 0 && f&f2 == f2
}

// Names returns the ADL keywords for the set bits, in canonical order.
func (f PointcutFlags) Names() []string {
	var names []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			names = append(names, fn.name)
		}
	}
	return names
}

// String renders the flags as an ADL or-chain, e.g. "method|property".
func (f PointcutFlags) String() string {
	if f == FlagUnspecified {
		return "unspecified"
	}
	return strings.Join(f.Names(), "|")
}

// MarshalText implements encoding.TextMarshaler.
func (f PointcutFlags) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *PointcutFlags) UnmarshalText(text []byte) error {
	flags, err := ParsePointcutFlags(string(text))
	if err != nil {
		return err
	}
	*f = flags
	return nil
}

// ParsePointcutFlags parses an or-chain such as "method|propertywrite".
func ParsePointcutFlags(s string) (PointcutFlags, error) {
	if s == "unspecified" || s == "" {
		return FlagUnspecified, nil
	}
	var flags PointcutFlags
	for _, part := range strings.Split(s, "|") {
		part = strings.TrimSpace(part)
		found := false
		for _, fn := range flagNames {
			if fn.name == part {
				flags |= fn.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown pointcut flag %q", part)
		}
	}
	return flags, nil
}
