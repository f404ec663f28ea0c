package metrics

import (
	"strconv"

	"drone-compare/src/drone"
)

// Columns is the output header, in emission order.
var Columns = []string{
	"pr_number",
	"pr_url",
	"git_sha",
	"drone1_build_number",
	"drone2_build_number",
	"drone1_unit_test_status",
	"drone1_await_test_status",
	"drone2_system_status",
	"drone1_unit_test_elapsed_time",
	"drone2_total_elapsed_time",
	"await_within_three_minutes_of_unit_test_start",
	"delta_await_complete_to_unit_test_start",
}

// Row is the comparison of one commit across both generations.
// Durations are in seconds.
type Row struct {
	PRNumber        string       `json:"pr_number"`
	PRURL           string       `json:"pr_url"`
	Commit          string       `json:"git_sha"`
	Gen1Build       int          `json:"drone1_build_number"`
	Gen2Build       int          `json:"drone2_build_number"`
	UnitTestStatus  drone.Status `json:"drone1_unit_test_status"`
	AwaitTestStatus drone.Status `json:"drone1_await_test_status"`
	SystemStatus    drone.Status `json:"drone2_system_status"`
	UnitTestElapsed int64        `json:"drone1_unit_test_elapsed_time"`
	TotalElapsed    int64        `json:"drone2_total_elapsed_time"`
	AwaitWithin     bool         `json:"await_within_three_minutes_of_unit_test_start"`
	AwaitDelta      int64        `json:"delta_await_complete_to_unit_test_start"`
}

// Values returns the row's fields as strings in Columns order.
func (r Row) Values() []string {
	return []string{
		r.PRNumber,
		r.PRURL,
		r.Commit,
		strconv.Itoa(r.Gen1Build),
		strconv.Itoa(r.Gen2Build),
		r.UnitTestStatus.String(),
		r.AwaitTestStatus.String(),
		r.SystemStatus.String(),
		strconv.FormatInt(r.UnitTestElapsed, 10),
		strconv.FormatInt(r.TotalElapsed, 10),
		strconv.FormatBool(r.AwaitWithin),
		strconv.FormatInt(r.AwaitDelta, 10),
	}
}

// Failed reports whether any compared status is not success.
func (r Row) Failed() bool {
	return r.UnitTestStatus != drone.StatusSuccess ||
		r.AwaitTestStatus != drone.StatusSuccess ||
		r.SystemStatus != drone.StatusSuccess
}

// Sink receives rows as they are produced.
type Sink interface {
	Write(row Row) error
	// Close commits the output. Write must not be called after Close.
	Close() error
}

// Aborter is implemented by sinks whose output must not be committed when
// the run fails. A sink that commits on Close must implement it.
type Aborter interface {
	// Abort discards everything written and releases the sink.
	Abort() error
}

// Abort ends a failed run on sink. Sinks without Abort hold nothing
// outside the process and are closed.
func Abort(sink Sink) error {
	if a, ok := sink.(Aborter); ok {
		return a.Abort()
	}
	return sink.Close()
}

// RunBinder is implemented by sinks that tag their output with the run ID.
type RunBinder interface {
	BindRun(runID string)
}

// BindRun passes runID to sink if it records one.
func BindRun(sink Sink, runID string) {
	if b, ok := sink.(RunBinder); ok {
		b.BindRun(runID)
	}
}

// MultiSink fans every row out to all sinks in order. The first failing
// sink stops the fan-out for that row.
type MultiSink []Sink

func (m MultiSink) Write(row Row) error {
	for _, s := range m {
		if err := s.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// Close commits the sinks in order. Once one fails the rest are aborted,
// so a failed commit is not followed by partial output elsewhere.
func (m MultiSink) Close() error {
	for i, s := range m {
		if err := s.Close(); err != nil {
			m[i+1:].Abort()
			return err
		}
	}
	return nil
}

// Abort aborts every sink and returns the first error.
func (m MultiSink) Abort() error {
	var first error
	for _, s := range m {
		if err := Abort(s); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m MultiSink) BindRun(runID string) {
	for _, s := range m {
		BindRun(s, runID)
	}
}

// Collect is an in-memory Sink.
type Collect struct {
	Rows []Row
}

func (c *Collect) Write(row Row) error {
	c.Rows = append(c.Rows, row)
	return nil
}

func (c *Collect) Close() error { return nil }
