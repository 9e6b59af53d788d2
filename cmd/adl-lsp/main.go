// adl-lsp - language server for ADL documents
//
// Serves editors over stdio by default, or over TCP with -tcp.
//
// Build: go build ./cmd/adl-lsp
// Usage: adl-lsp [-tcp ADDR] [-v N] [-log FILE]
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"
	"github.com/tliron/kutil/util"

	"github.com/chazu/adl/pkg/lsp"
)

const versionStr = "0.1.0"

var (
	tcp       = flag.String("tcp", "", "listen on this TCP address instead of stdio")
	verbosity = flag.Int("v", 0, "log verbosity (-4 to 4)")
	logFile   = flag.String("log", "", "log to this file instead of stderr")
	version   = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("adl-lsp version %s\n", versionStr)
		util.Exit(0)
	}

	// stdout carries the protocol, so logs never go there
	var path *string
	if *logFile != "" {
		path = logFile
	}
	commonlog.Configure(*verbosity, path)

	server := lsp.New(versionStr)
	var err error
	if *tcp != "" {
		err = server.RunTCP(*tcp)
	} else {
		err = server.Run()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "adl-lsp: %v\n", err)
		util.Exit(1)
	}
	util.Exit(0)
}
