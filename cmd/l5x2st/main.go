// Command l5x2st converts a single L5X file, or every L5X file under a
// directory, into Structured Text.
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

	inFile := flag.String("i", "", "L5X `file` to convert")
	inDir := flag.String("d", "", "`directory` of L5X files to convert and consolidate")
	outFile := flag.String("o", "", "output `file` for the Structured Text result")
	useIR := flag.Bool("use-ir", false, "route the conversion through the IR extractor and validator")
	flag.BoolVar(&debug, "v", false, "enable verbose diagnostics")
	flag.Parse()

	diag.SetVerbose(debug)

	if (*inFile == "") == (*inDir == "") {
		err = errors.New("l5x2st: exactly one of -i or -d is required")
		return
	}
	if *outFile == "" {
		err = errors.New("l5x2st: -o is required")
		return
	}

	var out string
	if *inDir != "" {
		out, err = convert.ConsolidateDirectory(os.DirFS(*inDir), ".")
		if err != nil {
			return
		}
	} else {
		var f *os.File
		f, err = os.Open(*inFile)
		if err != nil {
			return
		}
		defer f.Close()

		var meta *ir.ConversionMetadata
		out, meta, err = convert.L5XToST(f, *useIR)
		printDiagnostics(meta)
		if err != nil {
			return
		}
	}

	err = os.WriteFile(*outFile, []byte(out), 0o644)
}
