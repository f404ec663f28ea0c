package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"drone-compare/src/metrics"
)

// Metric names written by PromSink.
const (
	MetricRows         = "drone_compare_rows"
	MetricUnitElapsed  = "drone_compare_unit_test_elapsed_seconds"
	MetricTotalElapsed = "drone_compare_total_elapsed_seconds"
	MetricAwaitDelta   = "drone_compare_await_delta_seconds"
	MetricAwaitWithin  = "drone_compare_await_within_threshold"
	MetricStatus       = "drone_compare_status"
)

// PromSink renders rows in the Prometheus text exposition format, suitable
// for the node_exporter textfile collector. Output is written on Close.
type PromSink struct {
	out  output
	rows []metrics.Row
}

func NewPromSink(out io.WriteCloser) *PromSink {
	return &PromSink{out: asOutput(out)}
}

func (s *PromSink) Write(row metrics.Row) error {
	s.rows = append(s.rows, row)
	return nil
}

func (s *PromSink) Close() error {
	buf := bufio.NewWriter(s.out)
	for _, mf := range s.families() {
		if len(mf.Metric) == 0 {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(buf, mf); err != nil {
			s.out.Abort()
			return fmt.Errorf("failed to encode %s: %w", mf.GetName(), err)
		}
	}
	if err := buf.Flush(); err != nil {
		s.out.Abort()
		return fmt.Errorf("failed to flush report: %w", err)
	}
	return s.out.Close()
}

// Abort drops the collected rows and discards the output.
func (s *PromSink) Abort() error {
	s.rows = nil
	return s.out.Abort()
}

func (s *PromSink) families() []*dto.MetricFamily {
	rows := family(MetricRows, "Number of commits compared in the last run.")
	rows.Metric = append(rows.Metric, gauge(float64(len(s.rows))))

	unit := family(MetricUnitElapsed, "Elapsed time of the drone1 unit test step.")
	total := family(MetricTotalElapsed, "Time from drone2 build start to drone1 await step completion.")
	delta := family(MetricAwaitDelta, "Time from drone1 unit test start to await step completion.")
	within := family(MetricAwaitWithin, "1 if the await step completed within the threshold of unit test start.")
	status := family(MetricStatus, "Status of each compared check, one series per check with value 1.")

	for _, r := range s.rows {
		labels := rowLabels(r)
		unit.Metric = append(unit.Metric, gauge(float64(r.UnitTestElapsed), labels...))
		total.Metric = append(total.Metric, gauge(float64(r.TotalElapsed), labels...))
		delta.Metric = append(delta.Metric, gauge(float64(r.AwaitDelta), labels...))
		within.Metric = append(within.Metric, gauge(boolValue(r.AwaitWithin), labels...))

		for _, c := range []struct {
			check  string
			status string
		}{
			{"drone1_unit_test", r.UnitTestStatus.String()},
			{"drone1_await_test", r.AwaitTestStatus.String()},
			{"drone2_system", r.SystemStatus.String()},
		} {
			status.Metric = append(status.Metric, gauge(1,
				label("check", c.check),
				label("commit", r.Commit),
				label("pr_number", r.PRNumber),
				label("status", c.status),
			))
		}
	}

	return []*dto.MetricFamily{rows, unit, total, delta, within, status}
}

func rowLabels(r metrics.Row) []*dto.LabelPair {
	return []*dto.LabelPair{
		label("commit", r.Commit),
		label("drone1_build", strconv.Itoa(r.Gen1Build)),
		label("drone2_build", strconv.Itoa(r.Gen2Build)),
		label("pr_number", r.PRNumber),
	}
}

func family(name, help string) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(help),
		Type: dto.MetricType_GAUGE.Enum(),
	}
}

func gauge(v float64, labels ...*dto.LabelPair) *dto.Metric {
	return &dto.Metric{
		Label: labels,
		Gauge: &dto.Gauge{Value: proto.Float64(v)},
	}
}

func label(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: proto.String(name), Value: proto.String(value)}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
