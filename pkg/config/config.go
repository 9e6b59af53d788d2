// Package config handles adl.toml project configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/chazu/adl/pkg/ast"
	"github.com/tliron/commonlog"
)

// FileName is the project configuration file looked up by FindAndLoad.
const FileName = "adl.toml"

var log = commonlog.GetLogger("adl.config")

// Config represents an adl.toml project configuration.
type Config struct {
	Project Project `toml:"project"`
	Parse   Parse   `toml:"parse"`
	Output  Output  `toml:"output"`
	Codegen Codegen `toml:"codegen"`
	Catalog Catalog `toml:"catalog"`
	Log     Log     `toml:"log"`

	// Dir is the directory containing the adl.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name string `toml:"name"`
}

// Parse configures how ADL sources are parsed.
type Parse struct {
	Strict bool     `toml:"strict"`
	Base   []string `toml:"base"` // ADL files whose declaration tables every plan inherits
}

// Output configures tree export.
type Output struct {
	Format string `toml:"format"`
}

// Codegen configures Go generation.
type Codegen struct {
	Package string `toml:"package"`
	Output  string `toml:"output"`
	Plugin  bool   `toml:"plugin"`
}

// Catalog configures the snapshot database.
type Catalog struct {
	Path      string `toml:"path"`
	CacheSize int    `toml:"cache_size"`
}

// Log configures logging.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no adl.toml exists.
func Default() *Config {
	return &Config{
		Parse:   Parse{Strict: true},
		Output:  Output{Format: string(ast.FormatJSON)},
		Codegen: Codegen{Package: "weaving"},
	}
}

// Load parses an adl.toml file from the given directory. Keys the file
// leaves out keep their defaults.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		log.Warningf("%s: unknown key %s", path, key)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debugf("loaded %s", path)
	return c, nil
}

// FindAndLoad walks up from startDir to find an adl.toml file, then loads
// and returns it. When none is found the defaults are returned with Dir set
// to startDir.
func FindAndLoad(startDir string) (*Config, error) {
	start, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	dir := start
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			c := Default()
			c.Dir = start
			return c, nil
		}
		dir = parent
	}
}

// Validate checks values that have a fixed set of choices.
func (c *Config) Validate() error {
	if _, err := ast.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}
	if c.Codegen.Package == "" {
		return fmt.Errorf("codegen.package must not be empty")
	}
	if c.Log.Verbosity < -4 || c.Log.Verbosity > 4 {
		return fmt.Errorf("log.verbosity %d out of range [-4, 4]", c.Log.Verbosity)
	}
	return nil
}

// Format returns the configured export format.
func (c *Config) Format() ast.Format {
	f, err := ast.ParseFormat(c.Output.Format)
	if err != nil {
		return ast.FormatJSON
	}
	return f
}

// CatalogPath returns the catalog database path resolved against Dir, or ""
// to use the catalog's own default.
func (c *Config) CatalogPath() string {
	return c.resolve(c.Catalog.Path)
}

// BasePaths returns absolute paths for the configured base files.
func (c *Config) BasePaths() []string {
	var paths []string
	for _, p := range c.Parse.Base {
		paths = append(paths, c.resolve(p))
	}
	return paths
}

// LogFile returns the log file path resolved against Dir, or "" for stderr.
func (c *Config) LogFile() string {
	return c.resolve(c.Log.File)
}

func (c *Config) resolve(p string) string {
	if p == "" || p == ":memory:" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}
