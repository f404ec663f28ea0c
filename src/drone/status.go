package drone

import "encoding/json"

// Status is the lifecycle state Drone reports for builds, stages and steps.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusKilled  Status = "killed"
	StatusError   Status = "error"
	StatusRunning Status = "running"
	StatusSkipped Status = "skipped"
	StatusPending Status = "pending"
	// StatusUnknown absorbs any value this tool does not recognise.
	StatusUnknown Status = "unknown"
)

// ParseStatus maps a wire value onto Status. Unrecognised values become StatusUnknown.
func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusSuccess, StatusFailure, StatusKilled, StatusError,
		StatusRunning, StatusSkipped, StatusPending:
		return Status(s)
	}
	return StatusUnknown
}

func (s Status) String() string {
	return string(s)
}

// UnmarshalJSON decodes a status string, downgrading unknown values instead of failing.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseStatus(raw)
	return nil
}

// Event is the trigger kind of a build.
type Event string

const (
	EventPullRequest Event = "pull_request"
	EventPush        Event = "push"
	EventTag         Event = "tag"
	EventOther       Event = "other"
)

// ParseEvent maps a wire value onto Event. Unrecognised values become EventOther.
func ParseEvent(s string) Event {
	switch Event(s) {
	case EventPullRequest, EventPush, EventTag:
		return Event(s)
	}
	return EventOther
}

func (e Event) String() string {
	return string(e)
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = ParseEvent(raw)
	return nil
}
