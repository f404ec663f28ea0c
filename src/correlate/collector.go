package correlate

import (
	"context"
	"errors"
	"fmt"

	"drone-compare/src/drone"
	"drone-compare/src/logger"
	"drone-compare/src/window"
)

// Source is one Drone backend as seen by the collector.
type Source interface {
	Name() string
	Paginate() *drone.Paginator
	GetBuild(ctx context.Context, number int) (*drone.BuildDetail, error)
}

// Stats counts what happened while draining one backend.
type Stats struct {
	Backend  string
	Pages    int
	Listed   int
	Admitted int
	Skipped  map[window.Reason]int
	Stopped  bool // true if a Stop verdict ended the walk, false if the list ran out
}

// SkippedTotal sums skips over all reasons.
func (s Stats) SkippedTotal() int {
	n := 0
	for _, c := range s.Skipped {
		n += c
	}
	return n
}

// Collector walks backend build lists through the window filter and records
// admitted builds into a Map.
type Collector struct {
	window    window.Window
	mode      window.Mode
	skipPages int
	logger    logger.Logger
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithSkipPages starts every walk n pages into the list.
func WithSkipPages(n int) CollectorOption {
	return func(c *Collector) {
		c.skipPages = n
	}
}

// NewCollector creates a collector for the given window and mode.
func NewCollector(w window.Window, mode window.Mode, log logger.Logger, opts ...CollectorOption) *Collector {
	c := &Collector{window: w, mode: mode, logger: log}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect drains src until a Stop verdict or an empty page, fetching the
// detail of every admitted build into m under side. Any fetch error aborts
// the walk; m keeps whatever was added before the failure.
func (c *Collector) Collect(ctx context.Context, side Side, src Source, m *Map) (stats Stats, err error) {
	stats = Stats{Backend: src.Name(), Skipped: make(map[window.Reason]int)}

	pages := src.Paginate().SkipPages(c.skipPages)
	defer func() {
		stats.Pages = pages.Fetched()
	}()

	for {
		summary, err := pages.Next(ctx)
		if errors.Is(err, drone.ErrExhausted) {
			c.logger.Debug("[%s] build list exhausted after %d pages", src.Name(), pages.Fetched())
			return stats, nil
		}
		if err != nil {
			return stats, err
		}
		stats.Listed++

		verdict := c.window.Classify(summary, c.mode)
		switch verdict.Decision {
		case window.Stop:
			c.logger.Debug("[%s] build %d %s, stopping", src.Name(), summary.Number, verdict.Reason)
			stats.Stopped = true
			return stats, nil

		case window.Skip:
			c.logger.Debug("[%s] skipping build %d: %s", src.Name(), summary.Number, verdict.Reason)
			stats.Skipped[verdict.Reason]++

		case window.Admit:
			detail, err := src.GetBuild(ctx, summary.Number)
			if err != nil {
				return stats, err
			}
			m.Add(side, detail)
			stats.Admitted++
			c.logger.Debug("[%s] admitted build %d (%s)", src.Name(), detail.Number, detail.Commit())

		default:
			return stats, fmt.Errorf("unknown window decision %v", verdict.Decision)
		}
	}
}
