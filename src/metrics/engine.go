// Package metrics turns correlated build pairs into comparison rows.
package metrics

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	"drone-compare/src/correlate"
	"drone-compare/src/drone"
	"drone-compare/src/logger"
)

// Default names looked up in the builds.
const (
	DefaultStage              = "build-pull-request"
	DefaultUnitStep           = "run-wallet-platform-unit-tests"
	DefaultAwaitStep          = "await-wallet-platform-test-status"
	DefaultSystemStagePattern = "^wallet-platform-.*"
	DefaultThresholdSeconds   = 180
)

// Options names the stage and steps the engine reads.
type Options struct {
	Stage              string
	UnitStep           string
	AwaitStep          string
	SystemStagePattern string
	ThresholdSeconds   int64
}

// DefaultOptions returns the wallet-platform lookup names.
func DefaultOptions() Options {
	return Options{
		Stage:              DefaultStage,
		UnitStep:           DefaultUnitStep,
		AwaitStep:          DefaultAwaitStep,
		SystemStagePattern: DefaultSystemStagePattern,
		ThresholdSeconds:   DefaultThresholdSeconds,
	}
}

// SkipError reports a commit that cannot be compared. It never aborts a run.
type SkipError struct {
	Commit string
	Build  int
	Reason string
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("skipping commit %s (drone1 build %d): %s", e.Commit, e.Build, e.Reason)
}

// IsSkip reports whether err is a *SkipError.
func IsSkip(err error) bool {
	var skip *SkipError
	return errors.As(err, &skip)
}

// Summary counts the outcome of a run.
type Summary struct {
	Buckets    int
	Comparable int
	Emitted    int
	Skipped    int
}

// Engine evaluates buckets.
type Engine struct {
	opts    Options
	pattern *regexp.Regexp
	logger  logger.Logger
}

// NewEngine compiles the system stage pattern. Zero-valued options fall back
// to their defaults.
func NewEngine(opts Options, log logger.Logger) (*Engine, error) {
	def := DefaultOptions()
	if opts.Stage == "" {
		opts.Stage = def.Stage
	}
	if opts.UnitStep == "" {
		opts.UnitStep = def.UnitStep
	}
	if opts.AwaitStep == "" {
		opts.AwaitStep = def.AwaitStep
	}
	if opts.SystemStagePattern == "" {
		opts.SystemStagePattern = def.SystemStagePattern
	}
	if opts.ThresholdSeconds == 0 {
		opts.ThresholdSeconds = def.ThresholdSeconds
	}

	pattern, err := regexp.Compile(opts.SystemStagePattern)
	if err != nil {
		return nil, fmt.Errorf("invalid system stage pattern %q: %w", opts.SystemStagePattern, err)
	}
	return &Engine{opts: opts, pattern: pattern, logger: log}, nil
}

// Options returns the effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// Evaluate computes the row for one bucket. The bucket must be comparable.
// A *SkipError means the commit is left out; any other error is fatal.
func (e *Engine) Evaluate(b *correlate.Bucket) (Row, error) {
	if !b.Comparable() {
		return Row{}, fmt.Errorf("bucket %s is not comparable", b.Commit)
	}

	gen1 := earliest(b.Gen1)
	gen2 := earliest(b.Gen2)
	skip := func(format string, args ...interface{}) (Row, error) {
		return Row{}, &SkipError{Commit: b.Commit, Build: gen1.Number, Reason: fmt.Sprintf(format, args...)}
	}

	prNumber, err := gen1.PullRequestNumber()
	if err != nil {
		return Row{}, fmt.Errorf("drone1 build %d: %w", gen1.Number, err)
	}

	stage, ok := gen1.Stage(e.opts.Stage)
	if !ok {
		return skip("no stage %q", e.opts.Stage)
	}
	unit, ok := stage.Step(e.opts.UnitStep)
	if !ok {
		return skip("no step %q", e.opts.UnitStep)
	}
	if unit.Status() == drone.StatusSkipped {
		return skip("step %q was skipped", e.opts.UnitStep)
	}
	await, ok := stage.Step(e.opts.AwaitStep)
	if !ok {
		return skip("no step %q", e.opts.AwaitStep)
	}

	system, err := SystemStatus(gen2.Stages, e.pattern)
	if err != nil {
		return Row{}, fmt.Errorf("drone2 build %d: %w", gen2.Number, err)
	}

	unitElapsed, err := drone.Elapsed(unit)
	if err != nil {
		return Row{}, fmt.Errorf("drone1 build %d: %w", gen1.Number, err)
	}
	unitStart, err := drone.StartedAt(unit)
	if err != nil {
		return Row{}, fmt.Errorf("drone1 build %d: %w", gen1.Number, err)
	}
	awaitStop, err := drone.StoppedAt(await)
	if err != nil {
		return Row{}, fmt.Errorf("drone1 build %d: %w", gen1.Number, err)
	}

	delta := awaitStop - unitStart
	return Row{
		PRNumber:        prNumber,
		PRURL:           gen2.Link,
		Commit:          b.Commit,
		Gen1Build:       gen1.Number,
		Gen2Build:       gen2.Number,
		UnitTestStatus:  unit.Status(),
		AwaitTestStatus: await.Status(),
		SystemStatus:    system,
		UnitTestElapsed: unitElapsed,
		TotalElapsed:    awaitStop - gen2.Started,
		AwaitWithin:     delta < e.opts.ThresholdSeconds,
		AwaitDelta:      delta,
	}, nil
}

// Run evaluates every comparable bucket in order and writes the rows to sink.
// Skipped commits are logged and counted.
func (e *Engine) Run(buckets []*correlate.Bucket, sink Sink) (Summary, error) {
	summary := Summary{Buckets: len(buckets)}
	for _, b := range buckets {
		if !b.Comparable() {
			continue
		}
		summary.Comparable++

		row, err := e.Evaluate(b)
		if IsSkip(err) {
			e.logger.Warn("%v", err)
			summary.Skipped++
			continue
		}
		if err != nil {
			return summary, fmt.Errorf("commit %s: %w", b.Commit, err)
		}

		if err := sink.Write(row); err != nil {
			return summary, fmt.Errorf("failed to write row for %s: %w", b.Commit, err)
		}
		summary.Emitted++
	}
	return summary, nil
}

// earliest returns the lowest-numbered build without reordering builds.
func earliest(builds []*drone.BuildDetail) *drone.BuildDetail {
	sorted := make([]*drone.BuildDetail, len(builds))
	copy(sorted, builds)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Number < sorted[j].Number
	})
	return sorted[0]
}
