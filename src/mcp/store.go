package mcp

import (
	"context"
	"time"

	"drone-compare/src/store"
)

// DefaultRunLimit is how many runs list_runs returns when no limit is given.
const DefaultRunLimit = 10

// listRuns returns the most recent stored runs, newest first.
func listRuns(ctx context.Context, s store.Store, limit int) ([]RunInfo, error) {
	if limit <= 0 {
		limit = DefaultRunLimit
	}
	runs, err := s.ListRuns(ctx, limit)
	if err != nil {
		return nil, err
	}

	infos := make([]RunInfo, 0, len(runs))
	for _, run := range runs {
		infos = append(infos, toRunInfo(run))
	}
	return infos, nil
}

// runRows looks up a stored run's rows, filtered to one tier (0 for all).
// It fails with store.ErrRunNotFound for an unknown run.
func runRows(ctx context.Context, s store.Store, runID string, tier int) ([]RowView, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.GetRows(ctx, runID)
	if err != nil {
		return nil, err
	}
	return compactRows(filterTier(rows, tier), ""), nil
}

func toRunInfo(run store.Run) RunInfo {
	return RunInfo{
		ID:        run.ID,
		CreatedAt: run.CreatedAt.UTC().Format(time.RFC3339),
		Window: WindowInfo{
			Start: run.WindowStart.UTC().Format(time.RFC3339),
			End:   run.WindowEnd.UTC().Format(time.RFC3339),
			Mode:  run.Mode,
		},
		Status:  run.Status,
		Emitted: run.Emitted,
		Skipped: run.Skipped,
	}
}
