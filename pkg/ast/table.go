package ast

import "fmt"

// NamedDeclaration is one "key": TypeRef entry of a declaration table.
type NamedDeclaration struct {
	Key      string        `json:"key" yaml:"key" cbor:"key"`
	Location Location      `json:"location" yaml:"location" cbor:"location"`
	Type     TypeReference `json:"type" yaml:"type" cbor:"type"`
}

// DeclarationTable is an insertion-ordered map from unique keys to declarations.
// The zero value is an empty table.
type DeclarationTable struct {
	Entries []NamedDeclaration `json:"entries,omitempty" yaml:"entries,omitempty" cbor:"entries,omitempty"`
}

// DuplicateDeclarationError reports a key declared twice in one table.
type DuplicateDeclarationError struct {
	Key    string
	First  Location
	Second Location
}

func (e *DuplicateDeclarationError) Error() string {
	return fmt.Sprintf("%s: duplicate declaration %q (first declared at %s)", e.Second, e.Key, e.First)
}

// Add appends a declaration. A key that is already present is rejected and
// the table is left unchanged.
func (t *DeclarationTable) Add(d NamedDeclaration) error {
	if prev, ok := t.Get(d.Key); ok {
		return &DuplicateDeclarationError{Key: d.Key, First: prev.Location, Second: d.Location}
	}
	t.Entries = append(t.Entries, d)
	return nil
}

// Get looks up a declaration by key.
func (t *DeclarationTable) Get(key string) (NamedDeclaration, bool) {
	for _, e := range t.Entries {
		if e.Key == key {
			return e, true
		}
	}
	return NamedDeclaration{}, false
}

// Keys returns the keys in declaration order.
func (t *DeclarationTable) Keys() []string {
	keys := make([]string, len(t.Entries))
	for i, e := range t.Entries {
		keys[i] = e.Key
	}
	return keys
}

// Len returns the number of entries.
func (t *DeclarationTable) Len() int {
	return len(t.Entries)
}
