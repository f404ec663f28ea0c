// Package report writes comparison rows in the supported output formats.
package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"drone-compare/src/metrics"
)

// Format is an output format name.
type Format string

const (
	FormatTSV   Format = "tsv"
	FormatCSV   Format = "csv"
	FormatProm  Format = "prom"
	FormatJSONL Format = "jsonl"
)

// Formats lists every supported format.
var Formats = []Format{FormatTSV, FormatCSV, FormatProm, FormatJSONL}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q (want one of tsv, csv, prom, jsonl)", s)
}

// Options controls Open.
type Options struct {
	Format Format
	// Path is the output file. Empty means stdout.
	Path string
	// Delimiter overrides the field separator of delimited formats.
	Delimiter rune
	// Stream writes stdout output as the sink is flushed instead of holding
	// it until Close. Streamed output cannot be aborted.
	Stream bool
}

// Open creates a sink for opts. Nothing becomes visible before Close:
// files are written to a temporary name and moved into place, stdout output
// is held in memory. Abort discards either.
func Open(opts Options) (metrics.Sink, error) {
	out, err := create(opts)
	if err != nil {
		return nil, err
	}

	switch opts.Format {
	case FormatTSV, "":
		return NewDelimitedSink(out, delimiterOr(opts.Delimiter, '\t')), nil
	case FormatCSV:
		return NewDelimitedSink(out, delimiterOr(opts.Delimiter, ',')), nil
	case FormatJSONL:
		return NewJSONLinesSink(out), nil
	case FormatProm:
		return NewPromSink(out), nil
	}

	out.Abort()
	return nil, fmt.Errorf("unknown output format %q", opts.Format)
}

func delimiterOr(d, def rune) rune {
	if d == 0 {
		return def
	}
	return d
}

// output is where a sink writes. Close commits what was written, Abort
// discards it.
type output interface {
	io.WriteCloser
	Abort() error
}

func asOutput(w io.WriteCloser) output {
	if o, ok := w.(output); ok {
		return o
	}
	return closeOnAbort{w}
}

// closeOnAbort adapts writers that cannot take output back.
type closeOnAbort struct {
	io.WriteCloser
}

func (c closeOnAbort) Abort() error { return c.Close() }

func create(opts Options) (output, error) {
	switch {
	case opts.Path != "":
		return newAtomicFile(opts.Path)
	case opts.Stream:
		return closeOnAbort{nopCloser{os.Stdout}}, nil
	}
	return &heldWriter{dst: os.Stdout}, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// heldWriter buffers everything and copies it to dst on Close.
type heldWriter struct {
	bytes.Buffer
	dst io.Writer
}

func (h *heldWriter) Close() error {
	_, err := h.Buffer.WriteTo(h.dst)
	return err
}

func (h *heldWriter) Abort() error {
	h.Buffer.Reset()
	return nil
}

// atomicFile writes to a sibling temp file and renames it over the target
// on Close. Abort removes the temp file and leaves the target untouched.
type atomicFile struct {
	*os.File
	target string
}

func newAtomicFile(path string) (*atomicFile, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return &atomicFile{File: tmp, target: path}, nil
}

func (f *atomicFile) Close() error {
	if err := f.File.Close(); err != nil {
		os.Remove(f.File.Name())
		return fmt.Errorf("failed to close output file: %w", err)
	}
	if err := os.Rename(f.File.Name(), f.target); err != nil {
		os.Remove(f.File.Name())
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

func (f *atomicFile) Abort() error {
	f.File.Close()
	if err := os.Remove(f.File.Name()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove partial output: %w", err)
	}
	return nil
}
