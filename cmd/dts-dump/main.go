// The dts-dump command writes a readable representation of a shape file.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/andrewstrauch/The-Scarab-Gauntlet-sub002/dts"
)

const usage = `usage: dts-dump [INPUT] [OUTPUT]

Reads a DTS shape file from INPUT, and writes to OUTPUT a readable
representation of its structure. Primitives are kept as stored in the file.

INPUT and OUTPUT are paths to files. If INPUT is "-" or unspecified, then stdin
is used. If OUTPUT is "-" or unspecified, then stdout is used. Errors are
written to stderr.
`

func main() {
	var input io.Reader = os.Stdin
	var output io.Writer = os.Stdout

	flag.Usage = func() { fmt.Fprintf(flag.CommandLine.Output(), usage) }
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

	d := dts.Decoder{Primitives: dts.PreserveStrips}
	if err := d.Dump(output, input); err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("dump error: %w", err))
	}
}
