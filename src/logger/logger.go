package logger

import (
	"fmt"
	"io"
	"os"
)

// Logger defines the interface for logging throughout the application.
// Different implementations can be used for different contexts (console, silent, etc.)
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// ConsoleLogger writes human-readable logs to stderr.
// Stdout is reserved for the comparison report when no output file is given.
type ConsoleLogger struct {
	out   io.Writer
	debug bool
}

func NewConsoleLogger(verbose bool) *ConsoleLogger {
	return &ConsoleLogger{out: os.Stderr, debug: verbose}
}

// NewWriterLogger returns a ConsoleLogger that writes every level to w.
func NewWriterLogger(w io.Writer, verbose bool) *ConsoleLogger {
	return &ConsoleLogger{out: w, debug: verbose}
}

func (c *ConsoleLogger) Info(msg string, args ...interface{}) {
	fmt.Fprintf(c.out, "[INFO] "+msg+"\n", args...)
}

func (c *ConsoleLogger) Warn(msg string, args ...interface{}) {
	fmt.Fprintf(c.out, "[WARN] "+msg+"\n", args...)
}

func (c *ConsoleLogger) Error(msg string, args ...interface{}) {
	fmt.Fprintf(c.out, "[ERROR] "+msg+"\n", args...)
}

func (c *ConsoleLogger) Debug(msg string, args ...interface{}) {
	if !c.debug {
		return
	}
	fmt.Fprintf(c.out, "[DEBUG] "+msg+"\n", args...)
}

// SilentLogger discards all log messages.
// Used by the TUI and the MCP server, where stray output would corrupt the display or the stdio transport.
type SilentLogger struct{}

func NewSilentLogger() *SilentLogger {
	return &SilentLogger{}
}

func (s *SilentLogger) Info(msg string, args ...interface{})  {}
func (s *SilentLogger) Warn(msg string, args ...interface{})  {}
func (s *SilentLogger) Error(msg string, args ...interface{}) {}
func (s *SilentLogger) Debug(msg string, args ...interface{}) {}
