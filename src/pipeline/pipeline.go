// Package pipeline runs a full comparison: collect both backends, correlate
// by commit, evaluate and report.
// This package is used by both the CLI and the MCP server.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"drone-compare/src/correlate"
	"drone-compare/src/logger"
	"drone-compare/src/metrics"
	"drone-compare/src/store"
	"drone-compare/src/window"
)

// Request describes one comparison run.
type Request struct {
	Window    window.Window
	Mode      window.Mode
	SkipPages int
}

// Result is the outcome of a run.
type Result struct {
	RunID   string
	Gen1    correlate.Stats
	Gen2    correlate.Stats
	Commits int
	Summary metrics.Summary
	Rows    []metrics.Row
}

// Runner executes comparison runs against two backends.
type Runner struct {
	gen1   correlate.Source
	gen2   correlate.Source
	engine *metrics.Engine
	store  store.Store
	logger logger.Logger
	now    func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithStore persists every run and its rows.
func WithStore(s store.Store) Option {
	return func(r *Runner) {
		r.store = s
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// NewRunner creates a runner over the two backends.
func NewRunner(gen1, gen2 correlate.Source, engine *metrics.Engine, log logger.Logger, opts ...Option) *Runner {
	r := &Runner{
		gen1:   gen1,
		gen2:   gen2,
		engine: engine,
		logger: log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run collects Gen1 then Gen2, evaluates every comparable commit and writes
// the rows to sink. Any collection, contract or sink error aborts the run;
// skipped commits do not. Run closes sink after a successful run and aborts
// it after a failed one, so a failed run leaves no report, published rows or
// stored rows behind.
func (r *Runner) Run(ctx context.Context, req Request, sink metrics.Sink) (*Result, error) {
	result := &Result{RunID: uuid.NewString()}
	metrics.BindRun(sink, result.RunID)

	r.logger.Info("Comparing %s builds finished between %s (%s) and %s (%s)",
		req.Mode,
		req.Window.End.Format(time.RFC3339), humanize.Time(req.Window.End),
		req.Window.Start.Format(time.RFC3339), humanize.Time(req.Window.Start),
	)

	run := &store.Run{
		ID:          result.RunID,
		CreatedAt:   r.now(),
		WindowStart: req.Window.Start,
		WindowEnd:   req.Window.End,
		Mode:        req.Mode.String(),
		Status:      store.RunPending,
	}
	if r.store != nil {
		if err := r.store.CreateRun(ctx, run); err != nil {
			metrics.Abort(sink)
			return nil, err
		}
	}

	// Stored rows are committed before the caller's sink.
	collected := &metrics.Collect{}
	sinks := metrics.MultiSink{collected}
	if r.store != nil {
		sinks = append(sinks, store.NewRowSink(ctx, r.store, result.RunID))
	}
	sinks = append(sinks, sink)

	err := r.run(ctx, req, sinks, result)
	result.Rows = collected.Rows
	if err != nil {
		if aerr := sinks.Abort(); aerr != nil {
			r.logger.Warn("Failed to discard output of run %s: %v", result.RunID, aerr)
		}
	} else if cerr := sinks.Close(); cerr != nil {
		err = fmt.Errorf("failed to close output: %w", cerr)
	}

	if r.store != nil {
		run.Status = store.RunCompleted
		if err != nil {
			run.Status = store.RunFailed
		}
		run.Emitted = result.Summary.Emitted
		run.Skipped = result.Summary.Skipped
		if uerr := r.store.UpdateRun(ctx, run); uerr != nil {
			r.logger.Error("Failed to record run %s: %v", run.ID, uerr)
		}
	}

	if err != nil {
		return result, err
	}

	r.logger.Info("Compared %s commits: %d rows, %d skipped (run %s)",
		humanize.Comma(int64(result.Summary.Comparable)), result.Summary.Emitted, result.Summary.Skipped, result.RunID)
	return result, nil
}

func (r *Runner) run(ctx context.Context, req Request, sink metrics.Sink, result *Result) error {
	collector := correlate.NewCollector(req.Window, req.Mode, r.logger, correlate.WithSkipPages(req.SkipPages))
	builds := correlate.NewMap()

	var err error
	result.Gen1, err = r.collect(ctx, collector, correlate.Gen1, r.gen1, builds)
	if err != nil {
		return err
	}
	result.Gen2, err = r.collect(ctx, collector, correlate.Gen2, r.gen2, builds)
	if err != nil {
		return err
	}
	result.Commits = builds.Len()

	result.Summary, err = r.engine.Run(builds.Buckets(), sink)
	return err
}

func (r *Runner) collect(ctx context.Context, c *correlate.Collector, side correlate.Side, src correlate.Source, m *correlate.Map) (correlate.Stats, error) {
	start := time.Now()
	stats, err := c.Collect(ctx, side, src, m)
	if err != nil {
		return stats, err
	}

	r.logger.Info("[%s] %d pages, %d builds listed, %d admitted, %d skipped in %s",
		stats.Backend, stats.Pages, stats.Listed, stats.Admitted, stats.SkippedTotal(),
		time.Since(start).Round(time.Millisecond))
	for reason, n := range stats.Skipped {
		r.logger.Debug("[%s]   %d skipped: %s", stats.Backend, n, reason)
	}
	return stats, nil
}
