package ast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// Format names an AST serialization.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCBOR Format = "cbor"
)

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(name); f {
	case FormatJSON, FormatYAML, FormatCBOR:
		return f, nil
	}
	return "", fmt.Errorf("unknown AST format %q (want json, yaml or cbor)", name)
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("ast: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal serializes a configuration. JSON output is indented; CBOR output is canonical.
func Marshal(cfg *Configuration, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(cfg, "", "  ")
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return nil, fmt.Errorf("ast: marshal yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("ast: marshal yaml: %w", err)
		}
		return buf.Bytes(), nil
	case FormatCBOR:
		return cborEncMode.Marshal(cfg)
	}
	return nil, fmt.Errorf("ast: unknown format %q", format)
}

// Unmarshal deserializes a configuration produced by Marshal.
func Unmarshal(data []byte, format Format) (*Configuration, error) {
	var cfg Configuration
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &cfg)
	case FormatYAML:
		err = yaml.Unmarshal(data, &cfg)
	case FormatCBOR:
		err = cbor.Unmarshal(data, &cfg)
	default:
		return nil, fmt.Errorf("ast: unknown format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("ast: unmarshal %s: %w", format, err)
	}
	return &cfg, nil
}

// Parse reads AST JSON from a reader and returns a Configuration.
func Parse(r io.Reader) (*Configuration, error) {
	var cfg Configuration
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse AST: %w", err)
	}
	return &cfg, nil
}

// ParseBytes parses AST JSON from a byte slice.
func ParseBytes(data []byte) (*Configuration, error) {
	var cfg Configuration
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse AST: %w", err)
	}
	return &cfg, nil
}
