// Package window decides which builds of a newest-first build list fall
// inside the comparison window.
package window

import (
	"fmt"
	"time"

	"drone-compare/src/drone"
)

// DevelopBranch is the branch compared in DevelopMode.
const DevelopBranch = "develop"

// Mode selects which builds are comparable.
type Mode int

const (
	// PullRequestMode admits pull request builds.
	PullRequestMode Mode = iota
	// DevelopMode admits pushes to the develop branch.
	DevelopMode
)

func (m Mode) String() string {
	if m == DevelopMode {
		return "develop"
	}
	return "pull-request"
}

// Decision is the outcome of classifying one build.
type Decision int

const (
	// Admit means the build is comparable and its detail should be fetched.
	Admit Decision = iota
	// Skip means the build is not comparable but older builds may be.
	Skip
	// Stop means no older build can fall inside the window.
	Stop
)

func (d Decision) String() string {
	switch d {
	case Admit:
		return "admit"
	case Skip:
		return "skip"
	case Stop:
		return "stop"
	}
	return fmt.Sprintf("Decision(%d)", int(d))
}

// Reason explains a Skip or Stop.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonBeforeWindow  Reason = "created and finished before window"
	ReasonCrossesWindow Reason = "crosses window boundary"
	ReasonEvent         Reason = "event does not match mode"
	ReasonRunning       Reason = "still running"
)

// Verdict is a Decision with the reason that produced it.
type Verdict struct {
	Decision Decision
	Reason   Reason
}

// Window is the [End, Start] range of comparable builds. Start is the bound
// closer to now; build lists are read from Start backwards towards End.
type Window struct {
	Start time.Time
	End   time.Time
}

// New returns the window ending offset before now and spanning duration.
func New(now time.Time, duration, offset time.Duration) Window {
	start := now.Add(-offset)
	return Window{Start: start, End: start.Add(-duration)}
}

// Classify decides what to do with one build list entry. It is pure: the
// caller fetches the build detail on Admit and stops reading the list on Stop.
//
// Only the created and finished timestamps are consulted. Stop is only
// safe because Drone lists builds newest first.
func (w Window) Classify(b drone.BuildSummary, mode Mode) Verdict {
	finished := epoch(b.Finished)
	created := epoch(b.Created)

	if finished.Before(w.End) && created.Before(w.End) {
		return Verdict{Decision: Stop, Reason: ReasonBeforeWindow}
	}

	// TODO: confirm with the pipeline owners whether builds that started
	// before End but finished inside the window should count.
	if finished.After(w.Start) || created.Before(w.End) {
		return Verdict{Decision: Skip, Reason: ReasonCrossesWindow}
	}

	if !mode.matches(b) {
		return Verdict{Decision: Skip, Reason: ReasonEvent}
	}

	if b.Status == drone.StatusRunning {
		return Verdict{Decision: Skip, Reason: ReasonRunning}
	}

	return Verdict{Decision: Admit}
}

func (m Mode) matches(b drone.BuildSummary) bool {
	if m == DevelopMode {
		return b.Event == drone.EventPush &&
			b.Source == DevelopBranch &&
			b.Target == DevelopBranch
	}
	return b.Event == drone.EventPullRequest
}

func epoch(ts int64) time.Time {
	if ts < 0 {
		ts = -ts
	}
	return time.Unix(ts, 0)
}
