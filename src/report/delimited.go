package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"drone-compare/src/metrics"
)

// DelimitedSink writes a header line and one delimited line per row.
// The header is written with the first row, or on Close for an empty run.
type DelimitedSink struct {
	out    output
	w      *csv.Writer
	header bool
}

func NewDelimitedSink(out io.WriteCloser, delimiter rune) *DelimitedSink {
	w := csv.NewWriter(out)
	w.Comma = delimiter
	return &DelimitedSink{out: asOutput(out), w: w}
}

func (s *DelimitedSink) Write(row metrics.Row) error {
	if err := s.writeHeader(); err != nil {
		return err
	}
	return s.w.Write(row.Values())
}

func (s *DelimitedSink) writeHeader() error {
	if s.header {
		return nil
	}
	s.header = true
	if err := s.w.Write(metrics.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	return nil
}

// Flush pushes buffered lines to the output.
func (s *DelimitedSink) Flush() error {
	s.w.Flush()
	return s.w.Error()
}

func (s *DelimitedSink) Close() error {
	if err := s.writeHeader(); err != nil {
		s.out.Abort()
		return err
	}
	if err := s.Flush(); err != nil {
		s.out.Abort()
		return fmt.Errorf("failed to flush report: %w", err)
	}
	return s.out.Close()
}

// Abort drops buffered lines and discards the output.
func (s *DelimitedSink) Abort() error {
	return s.out.Abort()
}
