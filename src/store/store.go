// Package store defines the interface for persisting comparison runs.
package store

import (
	"context"
	"errors"
	"time"

	"drone-compare/src/metrics"
)

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

// Run status values.
const (
	RunPending   = "pending"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Run describes one comparison run.
type Run struct {
	ID          string
	CreatedAt   time.Time
	WindowStart time.Time
	WindowEnd   time.Time
	Mode        string
	Status      string
	Emitted     int
	Skipped     int
}

// Store defines the interface for persisting runs and their rows.
type Store interface {
	// CreateRun records a new run. The run ID must be set.
	CreateRun(ctx context.Context, run *Run) error

	// UpdateRun stores the final status and counters of a run.
	UpdateRun(ctx context.Context, run *Run) error

	// GetRun returns a single run.
	GetRun(ctx context.Context, runID string) (*Run, error)

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// SaveRow appends a row to a run.
	SaveRow(ctx context.Context, runID string, row metrics.Row) error

	// GetRows returns a run's rows in the order they were saved.
	GetRows(ctx context.Context, runID string) ([]metrics.Row, error)

	// Close closes the store connection
	Close() error
}

// RowSink adapts a Store to metrics.Sink for one run. Rows are saved on
// Close; an aborted run keeps no rows.
type RowSink struct {
	ctx     context.Context
	store   Store
	runID   string
	pending []metrics.Row
}

// NewRowSink returns a sink that saves rows under runID. Closing the sink
// does not close the store.
func NewRowSink(ctx context.Context, s Store, runID string) *RowSink {
	return &RowSink{ctx: ctx, store: s, runID: runID}
}

func (r *RowSink) Write(row metrics.Row) error {
	r.pending = append(r.pending, row)
	return nil
}

func (r *RowSink) Close() error {
	rows := r.pending
	r.pending = nil
	for _, row := range rows {
		if err := r.store.SaveRow(r.ctx, r.runID, row); err != nil {
			return err
		}
	}
	return nil
}

// Abort drops the rows without saving them.
func (r *RowSink) Abort() error {
	r.pending = nil
	return nil
}
