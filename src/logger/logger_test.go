package logger

import (
	"bytes"
	"testing"
)

func TestConsoleLogger_Levels(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		want    string
	}{
		{"quiet", false, "[INFO] fetched 3 pages\n[WARN] skipping abc123\n[ERROR] drone2 failed\n"},
		{"verbose", true, "[INFO] fetched 3 pages\n[WARN] skipping abc123\n[ERROR] drone2 failed\n[DEBUG] page 4\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewWriterLogger(&buf, tt.verbose)

			log.Info("fetched %d pages", 3)
			log.Warn("skipping %s", "abc123")
			log.Error("drone2 failed")
			log.Debug("page %d", 4)

			if got := buf.String(); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSilentLogger(t *testing.T) {
	var log Logger = NewSilentLogger()
	log.Info("ignored %d", 1)
	log.Warn("ignored")
	log.Error("ignored")
	log.Debug("ignored")
}
