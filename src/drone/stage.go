package drone

import (
	"encoding/json"
	"fmt"
)

// Named is implemented by records that carry a name.
type Named interface {
	Name() string
}

// StatusReporter is implemented by records that carry a status.
type StatusReporter interface {
	Status() Status
}

// Timed is implemented by records with start/stop timestamps.
// The boolean is false when the timestamp is absent (the record never ran).
type Timed interface {
	Started() (int64, bool)
	Stopped() (int64, bool)
}

// StepOwner is implemented by records that own an ordered list of steps.
type StepOwner interface {
	Steps() []Step
	// Step returns the first step with the given name.
	Step(name string) (Step, bool)
}

// Stage is a named phase of a build, regardless of which Drone generation produced it.
type Stage interface {
	Named
	StatusReporter
	Timed
	StepOwner
	Info() StageInfo
}

// Step is a unit of work inside a stage, regardless of generation.
type Step interface {
	Named
	StatusReporter
	Timed
	Info() StepInfo
}

// StageInfo is the payload both generations share for a stage.
type StageInfo struct {
	ID        int64
	Number    int
	Name      string
	Status    Status
	ErrIgnore bool
	ExitCode  int
	Started   int64
	Stopped   int64
	Created   int64
	Updated   int64
}

// StepInfo is the payload both generations share for a step.
// Started and Stopped are nil until the step has run.
type StepInfo struct {
	ID       int64
	Number   int
	Name     string
	Status   Status
	ExitCode int
	Started  *int64
	Stopped  *int64
}

type stageBase struct {
	info  StageInfo
	steps []Step
}

func (s stageBase) Name() string { return s.info.Name }
func (s stageBase) Status() Status { return s.info.Status }
func (s stageBase) Started() (int64, bool) { return s.info.Started, true }
func (s stageBase) Stopped() (int64, bool) { return s.info.Stopped, true }
func (s stageBase) Info() StageInfo { return s.info }
func (s stageBase) Steps() []Step { return s.steps }

func (s stageBase) Step(name string) (Step, bool) {
	for _, step := range s.steps {
		if step.Name() == name {
			return step, true
		}
	}
	return nil, false
}

// Gen1Stage is a stage as reported by a Gen1 server.
type Gen1Stage struct {
	stageBase
}

func NewGen1Stage(info StageInfo, steps ...Step) *Gen1Stage {
	return &Gen1Stage{stageBase{info: info, steps: steps}}
}

// Gen2Stage is a stage as reported by a Gen2 server.
type Gen2Stage struct {
	stageBase
	kind      string
	stageType string
	dependsOn []string
}

func NewGen2Stage(info StageInfo, kind, stageType string, dependsOn []string, steps ...Step) *Gen2Stage {
	return &Gen2Stage{
		stageBase: stageBase{info: info, steps: steps},
		kind:      kind,
		stageType: stageType,
		dependsOn: dependsOn,
	}
}

func (s *Gen2Stage) Kind() string { return s.kind }
func (s *Gen2Stage) Type() string { return s.stageType }
func (s *Gen2Stage) DependsOn() []string { return s.dependsOn }

type stepBase struct {
	info StepInfo
}

func (s stepBase) Name() string { return s.info.Name }
func (s stepBase) Status() Status { return s.info.Status }
func (s stepBase) Info() StepInfo { return s.info }

func (s stepBase) Started() (int64, bool) {
	if s.info.Started == nil {
		return 0, false
	}
	return *s.info.Started, true
}

func (s stepBase) Stopped() (int64, bool) {
	if s.info.Stopped == nil {
		return 0, false
	}
	return *s.info.Stopped, true
}

// Gen1Step is a step as reported by a Gen1 server.
type Gen1Step struct {
	stepBase
}

func NewGen1Step(info StepInfo) *Gen1Step {
	return &Gen1Step{stepBase{info: info}}
}

// Gen2Step is a step as reported by a Gen2 server.
type Gen2Step struct {
	stepBase
	image     string
	dependsOn []string
}

func NewGen2Step(info StepInfo, image string, dependsOn []string) *Gen2Step {
	return &Gen2Step{stepBase: stepBase{info: info}, image: image, dependsOn: dependsOn}
}

func (s *Gen2Step) Image() string { return s.image }
func (s *Gen2Step) DependsOn() []string { return s.dependsOn }

// StartedAt returns the start timestamp, failing if the record never started.
func StartedAt(t Timed) (int64, error) {
	v, ok := t.Started()
	if !ok {
		return 0, fmt.Errorf("%w: %s has no started timestamp", ErrContractViolation, describe(t))
	}
	return v, nil
}

// StoppedAt returns the stop timestamp, failing if the record never stopped.
func StoppedAt(t Timed) (int64, error) {
	v, ok := t.Stopped()
	if !ok {
		return 0, fmt.Errorf("%w: %s has no stopped timestamp", ErrContractViolation, describe(t))
	}
	return v, nil
}

// Elapsed returns stopped minus started in seconds.
func Elapsed(t Timed) (int64, error) {
	start, err := StartedAt(t)
	if err != nil {
		return 0, err
	}
	stop, err := StoppedAt(t)
	if err != nil {
		return 0, err
	}
	return stop - start, nil
}

func describe(t Timed) string {
	if n, ok := t.(Named); ok {
		return fmt.Sprintf("%q", n.Name())
	}
	return fmt.Sprintf("%T", t)
}

type stageWire struct {
	ID        int64             `json:"id"`
	Number    int               `json:"number"`
	Name      string            `json:"name"`
	Status    Status            `json:"status"`
	ErrIgnore bool              `json:"errignore"`
	ExitCode  int               `json:"exit_code"`
	Started   int64             `json:"started"`
	Stopped   int64             `json:"stopped"`
	Created   int64             `json:"created"`
	Updated   int64             `json:"updated"`
	Steps     []json.RawMessage `json:"steps"`
	Kind      string            `json:"kind"`
	Type      string            `json:"type"`
	DependsOn []string          `json:"depends_on"`
}

var stageRequired = []string{
	"id", "number", "name", "status", "exit_code",
	"started", "stopped", "created", "updated",
}

// DecodeStage decodes one stage payload. A payload carrying both "kind" and
// "type" is a Gen2 stage; anything else falls back to Gen1.
func DecodeStage(data []byte) (Stage, error) {
	raw, err := rawFields("stage", data)
	if err != nil {
		return nil, err
	}
	if err := requireFields("stage", raw, stageRequired...); err != nil {
		return nil, err
	}

	var w stageWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &DecodeError{Kind: "stage", Err: err}
	}

	steps := make([]Step, 0, len(w.Steps))
	for i, item := range w.Steps {
		step, err := DecodeStep(item)
		if err != nil {
			return nil, fmt.Errorf("stage %q step %d: %w", w.Name, i, err)
		}
		steps = append(steps, step)
	}

	info := StageInfo{
		ID:        w.ID,
		Number:    w.Number,
		Name:      w.Name,
		Status:    w.Status,
		ErrIgnore: w.ErrIgnore,
		ExitCode:  w.ExitCode,
		Started:   w.Started,
		Stopped:   w.Stopped,
		Created:   w.Created,
		Updated:   w.Updated,
	}

	if hasField(raw, "kind") && hasField(raw, "type") {
		return NewGen2Stage(info, w.Kind, w.Type, w.DependsOn, steps...), nil
	}
	return NewGen1Stage(info, steps...), nil
}

type stepWire struct {
	ID        int64    `json:"id"`
	Number    int      `json:"number"`
	Name      string   `json:"name"`
	Status    Status   `json:"status"`
	ExitCode  int      `json:"exit_code"`
	Started   *int64   `json:"started"`
	Stopped   *int64   `json:"stopped"`
	Image     string   `json:"image"`
	DependsOn []string `json:"depends_on"`
}

var stepRequired = []string{"id", "number", "name", "status", "exit_code"}

// DecodeStep decodes one step payload. A payload carrying "image" is a Gen2
// step; anything else falls back to Gen1.
func DecodeStep(data []byte) (Step, error) {
	raw, err := rawFields("step", data)
	if err != nil {
		return nil, err
	}
	if err := requireFields("step", raw, stepRequired...); err != nil {
		return nil, err
	}

	var w stepWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &DecodeError{Kind: "step", Err: err}
	}

	info := StepInfo{
		ID:       w.ID,
		Number:   w.Number,
		Name:     w.Name,
		Status:   w.Status,
		ExitCode: w.ExitCode,
		Started:  w.Started,
		Stopped:  w.Stopped,
	}

	if hasField(raw, "image") {
		return NewGen2Step(info, w.Image, w.DependsOn), nil
	}
	return NewGen1Step(info), nil
}
