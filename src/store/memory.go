package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"drone-compare/src/metrics"
)

// MemoryStore is an in-memory implementation of Store.
// Used when no database is configured and by the MCP server.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*Run
	rows map[string][]metrics.Row // runID -> rows
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs: make(map[string]*Run),
		rows: make(map[string][]metrics.Row),
	}
}

// CreateRun records a new run.
func (s *MemoryStore) CreateRun(ctx context.Context, run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("failed to create run: duplicate run id %s", run.ID)
	}
	runCopy := *run
	s.runs[run.ID] = &runCopy
	return nil
}

// UpdateRun stores the final status and counters of a run.
func (s *MemoryStore) UpdateRun(ctx context.Context, run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.runs[run.ID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrRunNotFound, run.ID)
	}
	existing.Status = run.Status
	existing.Emitted = run.Emitted
	existing.Skipped = run.Skipped
	return nil
}

// GetRun returns a single run.
func (s *MemoryStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.runs[runID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	// Return a copy
	runCopy := *run
	return &runCopy, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *MemoryStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]Run, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, *run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].ID < runs[j].ID
	})

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// SaveRow appends a row to a run.
func (s *MemoryStore) SaveRow(ctx context.Context, runID string, row metrics.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[runID]; !exists {
		return fmt.Errorf("failed to save row for %s: %w: %s", row.Commit, ErrRunNotFound, runID)
	}
	s.rows[runID] = append(s.rows[runID], row)
	return nil
}

// GetRows returns a run's rows in the order they were saved.
func (s *MemoryStore) GetRows(ctx context.Context, runID string) ([]metrics.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, exists := s.rows[runID]
	if !exists {
		return []metrics.Row{}, nil
	}

	// Return a copy
	result := make([]metrics.Row, len(rows))
	copy(result, rows)
	return result, nil
}

// Close closes the store (no-op for memory store).
func (s *MemoryStore) Close() error {
	return nil
}
