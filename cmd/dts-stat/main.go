// The dts-stat command displays stats for a shape file.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	ts "github.com/andrewstrauch/The-Scarab-Gauntlet-sub002"
	"github.com/andrewstrauch/The-Scarab-Gauntlet-sub002/dts"
	"github.com/andrewstrauch/The-Scarab-Gauntlet-sub002/errors"
)

const usage = `usage: dts-stat [-seq FILE]... [INPUT] [OUTPUT]

Reads a DTS shape file from INPUT, and writes to OUTPUT statistics for the
shape as JSON.

Each -seq FILE imports a DSQ sequence file into the shape before the stats
are collected; the flag may be repeated.

INPUT and OUTPUT are paths to files. If INPUT is "-" or unspecified, then stdin
is used. If OUTPUT is "-" or unspecified, then stdout is used. Errors are
written to stderr.
`

type seqFiles []string

func (s *seqFiles) String() string { return fmt.Sprint(*s) }

func (s *seqFiles) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	var input io.Reader = os.Stdin
	var output io.Writer = os.Stdout
	var seqs seqFiles

	flag.Usage = func() { fmt.Fprintf(flag.CommandLine.Output(), usage) }
	flag.Var(&seqs, "seq", "sequence file to import")
	flag.Parse()
	args := flag.Args()
	if len(args) >= 1 && args[0] != "-" {
		in, err := os.Open(args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, fmt.Errorf("open input: %w", err))
			return
		}
		input = in
		defer in.Close()
	}
	if len(args) >= 2 && args[1] != "-" {
		out, err := os.Create(args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, fmt.Errorf("create output: %w", err))
			return
		}
		defer out.Close()
		defer func() {
			err := out.Sync()
			if err != nil {
				fmt.Fprintln(os.Stderr, fmt.Errorf("sync output: %w", err))
				return
			}
		}()
		output = out
	}

	shape, err := dts.Decoder{}.Decode(input)
	if err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("decode error: %w", err))
		return
	}
	// A failed import skips that file; stats still cover the shape and
	// every sequence that did import. All failures are reported at once.
	var importErrs []error
	for _, name := range seqs {
		f, err := os.Open(name)
		if err != nil {
			importErrs = append(importErrs, fmt.Errorf("open sequence: %w", err))
			continue
		}
		err = dts.ImportSequence(f, shape)
		f.Close()
		if err != nil {
			importErrs = append(importErrs, fmt.Errorf("import %s: %w", name, err))
		}
	}
	if err := errors.Union(importErrs...); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	je := json.NewEncoder(output)
	je.SetEscapeHTML(false)
	je.SetIndent("", "\t")
	if err := je.Encode(ts.ShapeStats(shape)); err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("write error: %w", err))
	}
}
