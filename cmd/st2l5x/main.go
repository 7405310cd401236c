// Command st2l5x lifts a Structured Text source file back into an L5X
// document.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/lagarcia38/l5x2st/convert"
	"github.com/lagarcia38/l5x2st/internal/diag"
	"github.com/lagarcia38/l5x2st/ir"
)

var debug bool

func atExit(err error) {
	if err == nil {
		return
	}
	if !debug {
		fmt.Fprintf(os.Stderr, "\n%v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "\n%+v\n", err)
	os.Exit(1)
}

func printDiagnostics(meta *ir.ConversionMetadata) {
	if meta == nil {
		return
	}
	for _, w := range meta.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	for _, e := range meta.Errors {
		fmt.Fprintf(os.Stderr, "error: %s\n", e)
	}
}

func main() {
	var err error
	defer func() { atExit(err) }()

	inFile := flag.String("i", "", "Structured Text `file` to convert")
	outFile := flag.String("o", "", "output `file` for the L5X result")
	useIR := flag.Bool("use-ir", false, "validate via ST -> L5X -> extractor -> validator before writing")
	flag.BoolVar(&debug, "v", false, "enable verbose diagnostics")
	flag.Parse()

	diag.SetVerbose(debug)

	if *inFile == "" {
		err = errors.New("st2l5x: -i is required")
		return
	}
	if *outFile == "" {
		err = errors.New("st2l5x: -o is required")
		return
	}

	var src []byte
	src, err = os.ReadFile(*inFile)
	if err != nil {
		return
	}

	var out string
	var meta *ir.ConversionMetadata
	out, meta, err = convert.STToL5X(string(src), *useIR)
	printDiagnostics(meta)
	if err != nil {
		return
	}

	err = os.WriteFile(*outFile, []byte(out), 0o644)
}
