package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"drone-compare/src/metrics"
)

// JSONLinesSink writes one JSON object per row.
type JSONLinesSink struct {
	out output
	buf *bufio.Writer
	enc *json.Encoder
}

func NewJSONLinesSink(out io.WriteCloser) *JSONLinesSink {
	buf := bufio.NewWriter(out)
	return &JSONLinesSink{out: asOutput(out), buf: buf, enc: json.NewEncoder(buf)}
}

func (s *JSONLinesSink) Write(row metrics.Row) error {
	if err := s.enc.Encode(row); err != nil {
		return fmt.Errorf("failed to encode row: %w", err)
	}
	return nil
}

// Flush pushes buffered lines to the output.
func (s *JSONLinesSink) Flush() error {
	return s.buf.Flush()
}

func (s *JSONLinesSink) Close() error {
	if err := s.Flush(); err != nil {
		s.out.Abort()
		return fmt.Errorf("failed to flush report: %w", err)
	}
	return s.out.Close()
}

// Abort drops buffered lines and discards the output.
func (s *JSONLinesSink) Abort() error {
	return s.out.Abort()
}
