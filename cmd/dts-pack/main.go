// The dts-pack command wraps a DTS shape file in an LZ4 container, or
// unwraps one.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/bkaradzic/go-lz4"
)

const usage = `usage: dts-pack [-d] [INPUT] [OUTPUT]

Reads a DTS shape file from INPUT, and writes to OUTPUT the same file wrapped
in an LZ4 container. With -d, an LZ4 container is unwrapped instead. The
shape data itself is copied untouched.

INPUT and OUTPUT are paths to files. If INPUT is "-" or unspecified, then stdin
is used. If OUTPUT is "-" or unspecified, then stdout is used. Errors are
written to stderr.
`

const lz4Sig = "DTSz"

func main() {
	var input io.Reader = os.Stdin
	var output io.Writer = os.Stdout
	var unwrap bool

	flag.Usage = func() { fmt.Fprintf(flag.CommandLine.Output(), usage) }
	flag.BoolVar(&unwrap, "d", false, "unwrap an LZ4 container")
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

	data, err := io.ReadAll(input)
	if err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("read input: %w", err))
		return
	}
	if unwrap {
		data, err = unpack(data)
	} else {
		data, err = pack(data)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	if _, err := output.Write(data); err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("write output: %w", err))
	}
}

func pack(data []byte) ([]byte, error) {
	if len(data) >= len(lz4Sig) && string(data[:len(lz4Sig)]) == lz4Sig {
		return nil, fmt.Errorf("input is already an LZ4 container")
	}
	// lz4 prefixes the block with the decompressed length, which is the
	// container's framing.
	packed, err := lz4.Encode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	return append([]byte(lz4Sig), packed...), nil
}

func unpack(data []byte) ([]byte, error) {
	if len(data) < len(lz4Sig)+4 || string(data[:len(lz4Sig)]) != lz4Sig {
		return nil, fmt.Errorf("input is not an LZ4 container")
	}
	size := binary.LittleEndian.Uint32(data[len(lz4Sig):])
	out, err := lz4.Decode(make([]byte, size), data[len(lz4Sig):])
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	return out, nil
}
