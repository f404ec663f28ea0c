package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/common/expfmt"

	"drone-compare/src/drone"
	"drone-compare/src/metrics"
)

type bufferCloser struct {
	bytes.Buffer
	closed bool
}

func (b *bufferCloser) Close() error {
	b.closed = true
	return nil
}

var sampleRow = metrics.Row{
	PRNumber:        "4321",
	PRURL:           "https://github.com/BitGo/bitgo-microservices/pull/4321",
	Commit:          "abc123",
	Gen1Build:       10,
	Gen2Build:       20,
	UnitTestStatus:  drone.StatusSuccess,
	AwaitTestStatus: drone.StatusSuccess,
	SystemStatus:    drone.StatusFailure,
	UnitTestElapsed: 60,
	TotalElapsed:    130,
	AwaitWithin:     true,
	AwaitDelta:      150,
}

func TestDelimitedSink_TSV(t *testing.T) {
	out := &bufferCloser{}
	sink := NewDelimitedSink(out, '\t')
	if err := sink.Write(sampleRow); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), out.String())
	}
	if lines[0] != strings.Join(metrics.Columns, "\t") {
		t.Errorf("header = %q", lines[0])
	}
	want := "4321\thttps://github.com/BitGo/bitgo-microservices/pull/4321\tabc123\t10\t20\tsuccess\tsuccess\tfailure\t60\t130\ttrue\t150"
	if lines[1] != want {
		t.Errorf("row = %q\nwant  %q", lines[1], want)
	}
	if !out.closed {
		t.Error("Close() did not close the underlying writer")
	}
}

func TestDelimitedSink_HeaderOnlyWhenEmpty(t *testing.T) {
	out := &bufferCloser{}
	sink := NewDelimitedSink(out, ',')
	sink.Close()

	if got := out.String(); got != strings.Join(metrics.Columns, ",")+"\n" {
		t.Errorf("output = %q, want header only", got)
	}
}

func TestJSONLinesSink(t *testing.T) {
	out := &bufferCloser{}
	sink := NewJSONLinesSink(out)
	sink.Write(sampleRow)
	sink.Write(metrics.Row{Commit: "def456", UnitTestStatus: drone.StatusUnknown})
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	if decoded["git_sha"] != "abc123" || decoded["drone2_system_status"] != "failure" {
		t.Errorf("decoded = %v", decoded)
	}
	if decoded["await_within_three_minutes_of_unit_test_start"] != true {
		t.Errorf("within flag = %v, want true", decoded["await_within_three_minutes_of_unit_test_start"])
	}
	if !strings.Contains(lines[1], `"drone1_unit_test_status":"unknown"`) {
		t.Errorf("second line = %s", lines[1])
	}
}

func TestPromSink_ParsesBack(t *testing.T) {
	out := &bufferCloser{}
	sink := NewPromSink(out)
	sink.Write(sampleRow)
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(strings.NewReader(out.String()))
	if err != nil {
		t.Fatalf("output does not parse: %v\n%s", err, out.String())
	}

	if got := families[MetricRows].GetMetric()[0].GetGauge().GetValue(); got != 1 {
		t.Errorf("%s = %v, want 1", MetricRows, got)
	}

	tests := []struct {
		name string
		want float64
	}{
		{MetricUnitElapsed, 60},
		{MetricTotalElapsed, 130},
		{MetricAwaitDelta, 150},
		{MetricAwaitWithin, 1},
	}
	for _, tt := range tests {
		mf, ok := families[tt.name]
		if !ok {
			t.Errorf("missing family %s", tt.name)
			continue
		}
		m := mf.GetMetric()[0]
		if got := m.GetGauge().GetValue(); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
		labels := map[string]string{}
		for _, lp := range m.GetLabel() {
			labels[lp.GetName()] = lp.GetValue()
		}
		if labels["commit"] != "abc123" || labels["drone1_build"] != "10" || labels["drone2_build"] != "20" {
			t.Errorf("%s labels = %v", tt.name, labels)
		}
	}

	statuses := map[string]string{}
	for _, m := range families[MetricStatus].GetMetric() {
		var check, status string
		for _, lp := range m.GetLabel() {
			switch lp.GetName() {
			case "check":
				check = lp.GetValue()
			case "status":
				status = lp.GetValue()
			}
		}
		statuses[check] = status
	}
	if statuses["drone2_system"] != "failure" || statuses["drone1_unit_test"] != "success" {
		t.Errorf("status series = %v", statuses)
	}
}

func TestPromSink_EmptyRun(t *testing.T) {
	out := &bufferCloser{}
	sink := NewPromSink(out)
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(strings.NewReader(out.String()))
	if err != nil {
		t.Fatalf("output does not parse: %v", err)
	}
	if len(families) != 1 {
		t.Errorf("families = %d, want only %s", len(families), MetricRows)
	}
}

func TestOpen_WritesFileOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")

	sink, err := Open(Options{Format: FormatCSV, Path: path})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	sink.Write(sampleRow)

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("report visible before Close: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.HasPrefix(string(data), "pr_number,pr_url,git_sha,") {
		t.Errorf("file does not start with CSV header: %q", data)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestOpen_CustomDelimiter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	sink, err := Open(Options{Format: FormatTSV, Path: path, Delimiter: '|'})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	sink.Close()

	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "pr_number|pr_url|") {
		t.Errorf("header = %q", data)
	}
}

func TestOpen_AbortLeavesNoFile(t *testing.T) {
	for _, format := range Formats {
		t.Run(string(format), func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "report")

			sink, err := Open(Options{Format: format, Path: path})
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			sink.Write(sampleRow)
			if err := metrics.Abort(sink); err != nil {
				t.Fatalf("Abort() error = %v", err)
			}

			entries, _ := os.ReadDir(dir)
			if len(entries) != 0 {
				t.Errorf("files left after Abort: %v", entries)
			}
		})
	}
}

func TestOpen_AbortKeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.tsv")
	if err := os.WriteFile(path, []byte("previous\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	sink, err := Open(Options{Format: FormatTSV, Path: path})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	sink.Write(sampleRow)
	metrics.Abort(sink)

	data, _ := os.ReadFile(path)
	if string(data) != "previous\n" {
		t.Errorf("file = %q, want it untouched", data)
	}
}

func TestHeldWriter(t *testing.T) {
	var dst bytes.Buffer
	held := &heldWriter{dst: &dst}
	sink := NewDelimitedSink(held, '\t')

	sink.Write(sampleRow)
	sink.Flush()
	if dst.Len() != 0 {
		t.Errorf("output visible before Close: %q", dst.String())
	}
	if err := sink.Abort(); err != nil {
		t.Fatalf("Abort() error = %v", err)
	}
	if err := held.Close(); err != nil {
		t.Fatal(err)
	}
	if dst.Len() != 0 {
		t.Errorf("aborted output written: %q", dst.String())
	}

	held = &heldWriter{dst: &dst}
	sink = NewDelimitedSink(held, '\t')
	sink.Write(sampleRow)
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if lines := strings.Count(dst.String(), "\n"); lines != 2 {
		t.Errorf("got %d lines after Close, want 2", lines)
	}
}

func TestDelimitedSink_NoHeaderBeforeFirstRow(t *testing.T) {
	out := &bufferCloser{}
	sink := NewDelimitedSink(out, '\t')
	if err := sink.Flush(); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Errorf("output before any row = %q", out.String())
	}

	sink.Write(sampleRow)
	sink.Flush()
	if !strings.HasPrefix(out.String(), "pr_number\t") {
		t.Errorf("output = %q, want header first", out.String())
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"tsv", FormatTSV, false},
		{"CSV", FormatCSV, false},
		{" prom ", FormatProm, false},
		{"jsonl", FormatJSONL, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
