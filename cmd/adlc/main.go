// adlc - Aspect Definition Language compiler
//
// Tokenizes, parses, checks and formats ADL files, generates Go weaving plans
// and keeps a catalog of parsed configurations.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"github.com/tliron/kutil/util"

	"github.com/chazu/adl/pkg/ast"
	"github.com/chazu/adl/pkg/catalog"
	"github.com/chazu/adl/pkg/codegen"
	"github.com/chazu/adl/pkg/config"
	"github.com/chazu/adl/pkg/format"
	"github.com/chazu/adl/pkg/ir"
	"github.com/chazu/adl/pkg/lexer"
	"github.com/chazu/adl/pkg/parser"
)

const versionStr = "0.1.0"

// verbosity is a repeatable -v flag.
type verbosity int

func (v *verbosity) String() string   { return strconv.Itoa(int(*v)) }
func (v *verbosity) IsBoolFlag() bool { return true }

func (v *verbosity) Set(s string) error {
	if s == "true" {
		*v++
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*v = verbosity(n)
	return nil
}

var (
	verbose verbosity
	dir     = flag.String("C", ".", "directory to search for "+config.FileName)
	version = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Var(&verbose, "v", "increase log verbosity (repeatable)")
	flag.Usage = printUsage
	flag.Parse()

	if *version {
		fmt.Printf("adlc version %s\n", versionStr)
		util.Exit(0)
	}

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		util.Exit(1)
	}

	cfg, err := config.FindAndLoad(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		util.Exit(1)
	}
	configureLogging(cfg)

	command, rest := args[0], args[1:]
	switch command {
	case "tokenize":
		err = cmdTokenize(rest)
	case "parse":
		err = cmdParse(cfg, rest)
	case "check":
		err = cmdCheck(cfg, rest)
	case "fmt":
		err = cmdFmt(rest)
	case "gen":
		err = cmdGen(cfg, rest)
	case "catalog":
		err = cmdCatalog(cfg, rest)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command '%s'\n", command)
		printUsage()
		util.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		util.Exit(1)
	}
	util.Exit(0)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `adlc - Aspect Definition Language compiler

Usage:
  adlc [-v] [-C dir] <command> [options] <args>

Commands:
  tokenize <file.adl>                  Output JSON tokens
  parse [-format f] <file.adl>         Output the configuration tree (json, yaml or cbor)
  check <file.adl>...                  Report syntax errors and plan warnings
  fmt [-w] <file.adl>...               Print or rewrite files in canonical form
  gen [-pkg p] [-o out] [-plugin] <file.adl>
                                       Generate a Go weaving plan
  catalog store <file.adl>...          Store parsed configurations
  catalog list                         List stored snapshots
  catalog show [-format f] <id>        Output a stored configuration
  catalog find <type-or-link>          Find aspects applying the given advice
  catalog delete <id>                  Remove a snapshot
  help                                 Show this help message

gen and catalog store also accept a JSON tree written by "adlc parse",
as a .json file or - for stdin. [parse] base entries may be .json files.

Options:
`)
	flag.PrintDefaults()
}

// configureLogging applies -v, falling back to log.verbosity from adl.toml.
func configureLogging(cfg *config.Config) {
	level := cfg.Log.Verbosity
	if verbose > 0 {
		level = int(verbose)
	}
	var path *string
	if file := cfg.LogFile(); file != "" {
		path = &file
	}
	commonlog.Configure(level, path)
}

func requireArgs(fs *flag.FlagSet, n int) error {
	if fs.NArg() < n {
		fs.Usage()
		return fmt.Errorf("%s: missing argument", fs.Name())
	}
	return nil
}

// cmdTokenize reads a file and outputs JSON tokens.
func cmdTokenize(args []string) error {
	fs := flag.NewFlagSet("tokenize", flag.ExitOnError)
	fs.Parse(args)
	if err := requireArgs(fs, 1); err != nil {
		return err
	}

	content, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	jsonOutput, err := lexer.New(fs.Arg(0), string(content)).TokenizeJSON()
	if err != nil {
		return fmt.Errorf("tokenizing: %w", err)
	}
	fmt.Println(jsonOutput)
	return nil
}

// cmdParse parses a file and outputs the tree. Outside strict mode the
// best-effort tree is printed after the syntax errors.
func cmdParse(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	formatName := fs.String("format", string(cfg.Format()), "output format: json, yaml or cbor")
	fs.Parse(args)
	if err := requireArgs(fs, 1); err != nil {
		return err
	}
	outFormat, err := ast.ParseFormat(*formatName)
	if err != nil {
		return err
	}

	var tree *ast.Configuration
	if cfg.Parse.Strict {
		if tree, err = parser.ParseFile(fs.Arg(0)); err != nil {
			return err
		}
	} else {
		content, err := os.ReadFile(fs.Arg(0))
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}
		var errs []*parser.SyntaxError
		tree, errs, err = parser.ParseStringResumable(fs.Arg(0), string(content))
		if err != nil {
			return err
		}
		for _, se := range errs {
			fmt.Fprintf(os.Stderr, "Parse error: %s\n", se.Error())
		}
	}

	data, err := ast.Marshal(tree, outFormat)
	if err != nil {
		return fmt.Errorf("marshaling tree: %w", err)
	}
	os.Stdout.Write(data)
	if outFormat == ast.FormatJSON {
		fmt.Println()
	}
	return nil
}

// cmdCheck parses every file in resumable mode and reports all problems.
func cmdCheck(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	fs.Parse(args)
	if err := requireArgs(fs, 1); err != nil {
		return err
	}
	bases, err := loadBases(cfg)
	if err != nil {
		return err
	}

	var result *multierror.Error
	for _, path := range fs.Args() {
		content, err := os.ReadFile(path)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("reading file: %w", err))
			continue
		}
		tree, errs, err := parser.ParseStringResumable(path, string(content))
		for _, se := range errs {
			fmt.Fprintf(os.Stderr, "%s\n", se.Error())
		}
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if len(errs) > 0 {
			result = multierror.Append(result, fmt.Errorf("%s: %d syntax errors", path, len(errs)))
			continue
		}

		_, warnings, err := newBuilder(tree, path, bases).Build()
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", path, err))
			continue
		}
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
		}
		fmt.Fprintf(os.Stderr, "%s: %d aspects, %d warnings\n", path, len(tree.Aspects), len(warnings))
	}
	return result.ErrorOrNil()
}

// cmdFmt prints files in canonical form, or rewrites them with -w.
func cmdFmt(args []string) error {
	fs := flag.NewFlagSet("fmt", flag.ExitOnError)
	write := fs.Bool("w", false, "write result to the source file instead of stdout")
	fs.Parse(args)
	if err := requireArgs(fs, 1); err != nil {
		return err
	}

	for _, path := range fs.Args() {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}
		out, err := format.Source(path, content)
		if err != nil {
			return err
		}
		if !*write {
			os.Stdout.Write(out)
			continue
		}
		if bytes.Equal(out, content) {
			continue
		}
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Fprintf(os.Stderr, "formatted %s\n", path)
	}
	return nil
}

// cmdGen builds the weaving plan for a file and emits Go source.
func cmdGen(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("gen", flag.ExitOnError)
	pkg := fs.String("pkg", cfg.Codegen.Package, "package name of the generated file")
	output := fs.String("o", cfg.Codegen.Output, "output file (default stdout)")
	plugin := fs.Bool("plugin", cfg.Codegen.Plugin, "generate a c-shared plugin exporting the plan")
	fs.Parse(args)
	if err := requireArgs(fs, 1); err != nil {
		return err
	}

	tree, err := loadTree(fs.Arg(0))
	if err != nil {
		return err
	}
	bases, err := loadBases(cfg)
	if err != nil {
		return err
	}
	plan, warnings, err := newBuilder(tree, fs.Arg(0), bases).Build()
	if err != nil {
		return err
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}

	var result *codegen.Result
	if *plugin {
		result = codegen.GeneratePlugin(plan)
	} else {
		result = codegen.Generate(plan, *pkg)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}

	if *output == "" {
		fmt.Print(result.Code)
		return nil
	}
	if err := os.WriteFile(*output, []byte(result.Code), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", *output, err)
	}
	fmt.Fprintf(os.Stderr, "adlc: wrote %s (%d aspects)\n", *output, len(plan.Aspects))
	return nil
}

// loadBases parses the [parse] base files of the project.
func loadBases(cfg *config.Config) ([]*ast.Configuration, error) {
	var bases []*ast.Configuration
	for _, path := range cfg.BasePaths() {
		base, err := loadTree(path)
		if err != nil {
			return nil, fmt.Errorf("base %s: %w", path, err)
		}
		bases = append(bases, base)
	}
	return bases, nil
}

// loadTree parses an ADL file. A .json path holds a tree written by
// "adlc parse", and "-" reads such a tree from stdin.
func loadTree(path string) (*ast.Configuration, error) {
	switch {
	case path == "-":
		return ast.Parse(os.Stdin)
	case filepath.Ext(path) == ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		tree, err := ast.ParseBytes(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return tree, nil
	}
	return parser.ParseFile(path)
}

func newBuilder(tree *ast.Configuration, source string, bases []*ast.Configuration) *ir.Builder {
	b := ir.NewBuilder(tree).WithSource(source)
	for _, base := range bases {
		b.Inherit(base)
	}
	return b
}

// cmdCatalog dispatches the catalog subcommands.
func cmdCatalog(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("catalog: missing subcommand (store, list, show, find, delete)")
	}

	cat, err := catalog.Open(&catalog.Config{Path: cfg.CatalogPath(), CacheSize: cfg.Catalog.CacheSize})
	if err != nil {
		return err
	}
	defer cat.Close()

	sub, rest := args[0], args[1:]
	switch sub {
	case "store":
		if len(rest) < 1 {
			return fmt.Errorf("catalog store: missing file argument")
		}
		for _, path := range rest {
			tree, err := loadTree(path)
			if err != nil {
				return err
			}
			id, err := cat.Store(path, tree)
			if err != nil {
				return err
			}
			fmt.Println(id)
		}

	case "list":
		snapshots, err := cat.List()
		if err != nil {
			return err
		}
		for _, s := range snapshots {
			fmt.Printf("%s  %s  %-3d %s\n", s.ID, s.CreatedAt.Format("2006-01-02 15:04:05"), s.Aspects, s.Source)
		}

	case "show":
		fs := flag.NewFlagSet("catalog show", flag.ExitOnError)
		formatName := fs.String("format", string(cfg.Format()), "output format: json, yaml or cbor")
		fs.Parse(rest)
		if err := requireArgs(fs, 1); err != nil {
			return err
		}
		outFormat, err := ast.ParseFormat(*formatName)
		if err != nil {
			return err
		}
		tree, err := cat.Load(fs.Arg(0))
		if err != nil {
			return err
		}
		data, err := ast.Marshal(tree, outFormat)
		if err != nil {
			return err
		}
		os.Stdout.Write(data)
		if outFormat == ast.FormatJSON {
			fmt.Println()
		}

	case "find":
		if len(rest) < 1 {
			return fmt.Errorf("catalog find: missing type or link argument")
		}
		refs, err := cat.FindAspectsByAdvice(rest[0])
		if err != nil {
			return err
		}
		for _, r := range refs {
			fmt.Printf("%s  %s  %s\n", r.SnapshotID, r.Aspect, r.Source)
		}

	case "delete":
		if len(rest) < 1 {
			return fmt.Errorf("catalog delete: missing id argument")
		}
		if err := cat.Delete(rest[0]); err != nil {
			return err
		}

	default:
		return fmt.Errorf("catalog: unknown subcommand '%s'", sub)
	}
	return nil
}
