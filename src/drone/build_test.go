package drone

import (
	"encoding/json"
	"errors"
	"testing"
)

const gen1BuildJSON = `{
	"id": 9001,
	"repo_id": 7,
	"trigger": "@hook",
	"number": 10,
	"status": "success",
	"event": "pull_request",
	"action": "sync",
	"link": "https://github.com/BitGo/bitgo-microservices/pull/4321",
	"timestamp": 0,
	"message": "fix wallet fees",
	"before": "000111",
	"after": "abc123",
	"ref": "refs/pull/4321/head",
	"source_repo": "",
	"source": "feature/fees",
	"target": "develop",
	"author_login": "octo",
	"author_name": "Octo Cat",
	"author_email": "octo@example.com",
	"author_avatar": "https://example.com/octo.png",
	"sender": "octo",
	"started": 100,
	"finished": 300,
	"created": 90,
	"updated": 300,
	"version": 3,
	"stages": [
		{
			"id": 1, "repo_id": 7, "build_id": 9001, "number": 1,
			"name": "build-pull-request", "status": "success",
			"errignore": false, "exit_code": 0, "machine": "runner-1",
			"os": "linux", "arch": "amd64",
			"started": 100, "stopped": 290, "created": 95, "updated": 290,
			"version": 2, "on_success": true, "on_failure": false,
			"steps": [
				{"id": 11, "step_id": 1, "number": 1, "name": "clone", "status": "success", "exit_code": 0, "started": 100, "stopped": 105, "version": 1},
				{"id": 12, "step_id": 1, "number": 2, "name": "run-wallet-platform-unit-tests", "status": "success", "exit_code": 0, "started": 100, "stopped": 160, "version": 1},
				{"id": 13, "step_id": 1, "number": 3, "name": "await-wallet-platform-test-status", "status": "success", "exit_code": 0, "started": 160, "stopped": 250, "version": 1},
				{"id": 14, "step_id": 1, "number": 4, "name": "notify", "status": "skipped", "exit_code": 0, "version": 1}
			]
		}
	]
}`

const gen2BuildJSON = `{
	"id": 5001,
	"repo_id": 3,
	"trigger": "@hook",
	"number": 20,
	"status": "failure",
	"event": "pull_request",
	"action": "sync",
	"link": "https://github.com/BitGo/bitgo-microservices/compare/000111...abc123",
	"message": "fix wallet fees",
	"before": "000111",
	"after": "abc123",
	"ref": "refs/pull/4321/head",
	"source": "feature/fees",
	"target": "develop",
	"started": 120,
	"finished": 400,
	"created": 110,
	"updated": 400,
	"version": 4,
	"stages": [
		{
			"id": 2, "number": 1, "name": "wallet-platform-api", "kind": "pipeline", "type": "kubernetes",
			"status": "success", "errignore": false, "exit_code": 0,
			"started": 121, "stopped": 200, "created": 120, "updated": 200,
			"steps": [
				{"id": 21, "step_id": 2, "number": 1, "name": "run-wallet-platform-unit-tests", "status": "success", "exit_code": 0, "started": 121, "stopped": 181, "image": "node:18", "depends_on": ["clone"]}
			]
		},
		{
			"id": 3, "number": 2, "name": "wallet-platform-worker", "kind": "pipeline", "type": "kubernetes",
			"status": "mystery-state", "errignore": false, "exit_code": 1,
			"started": 121, "stopped": 260, "created": 120, "updated": 260,
			"depends_on": ["wallet-platform-api"]
		}
	]
}`

func TestBuildDetail_DecodeGen1(t *testing.T) {
	var build BuildDetail
	if err := json.Unmarshal([]byte(gen1BuildJSON), &build); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if build.Number != 10 {
		t.Errorf("Number = %d, want 10", build.Number)
	}
	if build.Commit() != "abc123" {
		t.Errorf("Commit() = %q, want abc123", build.Commit())
	}
	if build.Event != EventPullRequest {
		t.Errorf("Event = %q, want %q", build.Event, EventPullRequest)
	}
	if len(build.Stages) != 1 {
		t.Fatalf("len(Stages) = %d, want 1", len(build.Stages))
	}
	if _, ok := build.Stages[0].(*Gen1Stage); !ok {
		t.Errorf("stage type = %T, want *Gen1Stage", build.Stages[0])
	}

	stage, ok := build.Stage("build-pull-request")
	if !ok {
		t.Fatal("Stage(build-pull-request) not found")
	}
	if got := len(stage.Steps()); got != 4 {
		t.Fatalf("len(Steps()) = %d, want 4", got)
	}

	unit, ok := stage.Step("run-wallet-platform-unit-tests")
	if !ok {
		t.Fatal("Step(run-wallet-platform-unit-tests) not found")
	}
	if _, ok := unit.(*Gen1Step); !ok {
		t.Errorf("step type = %T, want *Gen1Step", unit)
	}
	elapsed, err := Elapsed(unit)
	if err != nil {
		t.Fatalf("Elapsed() error = %v", err)
	}
	if elapsed != 60 {
		t.Errorf("Elapsed() = %d, want 60", elapsed)
	}
}

func TestBuildDetail_DecodeGen2(t *testing.T) {
	var build BuildDetail
	if err := json.Unmarshal([]byte(gen2BuildJSON), &build); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if len(build.Stages) != 2 {
		t.Fatalf("len(Stages) = %d, want 2", len(build.Stages))
	}

	api, ok := build.Stages[0].(*Gen2Stage)
	if !ok {
		t.Fatalf("stage type = %T, want *Gen2Stage", build.Stages[0])
	}
	if api.Kind() != "pipeline" || api.Type() != "kubernetes" {
		t.Errorf("Kind/Type = %q/%q, want pipeline/kubernetes", api.Kind(), api.Type())
	}

	step, ok := api.Step("run-wallet-platform-unit-tests")
	if !ok {
		t.Fatal("Step(run-wallet-platform-unit-tests) not found")
	}
	gen2Step, ok := step.(*Gen2Step)
	if !ok {
		t.Fatalf("step type = %T, want *Gen2Step", step)
	}
	if gen2Step.Image() != "node:18" {
		t.Errorf("Image() = %q, want node:18", gen2Step.Image())
	}

	worker := build.Stages[1]
	if worker.Status() != StatusUnknown {
		t.Errorf("unknown status decoded as %q, want %q", worker.Status(), StatusUnknown)
	}
	if len(worker.Steps()) != 0 {
		t.Errorf("stage without steps has %d steps, want 0", len(worker.Steps()))
	}
	if deps := worker.(*Gen2Stage).DependsOn(); len(deps) != 1 || deps[0] != "wallet-platform-api" {
		t.Errorf("DependsOn() = %v, want [wallet-platform-api]", deps)
	}
}

func TestStage_CapabilitiesMatchAcrossGenerations(t *testing.T) {
	common := `"id": 1, "number": 1, "name": "unit", "status": "failure", "exit_code": 2,
		"started": 10, "stopped": 70, "created": 5, "updated": 70`

	gen1, err := DecodeStage([]byte(`{` + common + `}`))
	if err != nil {
		t.Fatalf("DecodeStage(gen1) error = %v", err)
	}
	gen2, err := DecodeStage([]byte(`{` + common + `, "kind": "pipeline", "type": "docker"}`))
	if err != nil {
		t.Fatalf("DecodeStage(gen2) error = %v", err)
	}

	if _, ok := gen1.(*Gen1Stage); !ok {
		t.Errorf("gen1 decoded as %T", gen1)
	}
	if _, ok := gen2.(*Gen2Stage); !ok {
		t.Errorf("gen2 decoded as %T", gen2)
	}

	if gen1.Name() != gen2.Name() {
		t.Errorf("Name() differs: %q vs %q", gen1.Name(), gen2.Name())
	}
	if gen1.Status() != gen2.Status() {
		t.Errorf("Status() differs: %q vs %q", gen1.Status(), gen2.Status())
	}
	if gen1.Info() != gen2.Info() {
		t.Errorf("Info() differs: %+v vs %+v", gen1.Info(), gen2.Info())
	}

	e1, err1 := Elapsed(gen1)
	e2, err2 := Elapsed(gen2)
	if err1 != nil || err2 != nil {
		t.Fatalf("Elapsed() errors = %v, %v", err1, err2)
	}
	if e1 != 60 || e2 != 60 {
		t.Errorf("Elapsed() = %d, %d, want 60, 60", e1, e2)
	}
}

func TestStep_CapabilitiesMatchAcrossGenerations(t *testing.T) {
	common := `"id": 4, "number": 2, "name": "lint", "status": "success", "exit_code": 0, "started": 20, "stopped": 35`

	gen1, err := DecodeStep([]byte(`{` + common + `}`))
	if err != nil {
		t.Fatalf("DecodeStep(gen1) error = %v", err)
	}
	gen2, err := DecodeStep([]byte(`{` + common + `, "image": "golang:1.24"}`))
	if err != nil {
		t.Fatalf("DecodeStep(gen2) error = %v", err)
	}

	if gen1.Name() != gen2.Name() || gen1.Status() != gen2.Status() {
		t.Errorf("name/status differ: %q/%q vs %q/%q", gen1.Name(), gen1.Status(), gen2.Name(), gen2.Status())
	}
	e1, _ := Elapsed(gen1)
	e2, _ := Elapsed(gen2)
	if e1 != e2 || e1 != 15 {
		t.Errorf("Elapsed() = %d, %d, want 15, 15", e1, e2)
	}
}

func TestElapsed_AbsentTimestampIsContractViolation(t *testing.T) {
	step, err := DecodeStep([]byte(`{"id": 1, "number": 1, "name": "pending-step", "status": "pending", "exit_code": 0}`))
	if err != nil {
		t.Fatalf("DecodeStep() error = %v", err)
	}

	if _, ok := step.Started(); ok {
		t.Error("Started() ok = true for a step that never ran")
	}

	_, err = Elapsed(step)
	if !errors.Is(err, ErrContractViolation) {
		t.Fatalf("Elapsed() error = %v, want ErrContractViolation", err)
	}

	_, err = StoppedAt(step)
	if !errors.Is(err, ErrContractViolation) {
		t.Errorf("StoppedAt() error = %v, want ErrContractViolation", err)
	}
}

func TestDecode_MissingRequiredField(t *testing.T) {
	tests := []struct {
		name      string
		decode    func() error
		wantKind  string
		wantField string
	}{
		{
			name: "build without after",
			decode: func() error {
				var b BuildSummary
				return json.Unmarshal([]byte(`{"id": 1, "number": 2, "status": "success", "event": "push", "link": "https://x/y",
					"source": "a", "target": "b", "started": 1, "finished": 2, "created": 1, "updated": 2}`), &b)
			},
			wantKind:  "build",
			wantField: "after",
		},
		{
			name: "detail without stages",
			decode: func() error {
				var b BuildDetail
				return json.Unmarshal([]byte(`{"id": 1, "number": 2, "status": "success", "event": "push", "link": "https://x/y",
					"after": "abc", "source": "a", "target": "b", "started": 1, "finished": 2, "created": 1, "updated": 2}`), &b)
			},
			wantKind:  "build",
			wantField: "stages",
		},
		{
			name: "stage without name",
			decode: func() error {
				_, err := DecodeStage([]byte(`{"id": 1, "number": 1, "status": "success", "exit_code": 0,
					"started": 1, "stopped": 2, "created": 1, "updated": 2}`))
				return err
			},
			wantKind:  "stage",
			wantField: "name",
		},
		{
			name: "step with null status",
			decode: func() error {
				_, err := DecodeStep([]byte(`{"id": 1, "number": 1, "name": "x", "status": null, "exit_code": 0}`))
				return err
			},
			wantKind:  "step",
			wantField: "status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.decode()
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("error = %v, want *DecodeError", err)
			}
			if decodeErr.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", decodeErr.Kind, tt.wantKind)
			}
			if decodeErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", decodeErr.Field, tt.wantField)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"success", StatusSuccess},
		{"failure", StatusFailure},
		{"killed", StatusKilled},
		{"error", StatusError},
		{"running", StatusRunning},
		{"skipped", StatusSkipped},
		{"pending", StatusPending},
		{"waiting_on_dependencies", StatusUnknown},
		{"declined", StatusUnknown},
		{"", StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseStatus(tt.in); got != tt.want {
				t.Errorf("ParseStatus(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseEvent(t *testing.T) {
	if got := ParseEvent("cron"); got != EventOther {
		t.Errorf("ParseEvent(cron) = %q, want %q", got, EventOther)
	}
	if got := ParseEvent("pull_request"); got != EventPullRequest {
		t.Errorf("ParseEvent(pull_request) = %q, want %q", got, EventPullRequest)
	}
}

func TestBuildSummary_PullRequestNumber(t *testing.T) {
	tests := []struct {
		name    string
		link    string
		want    string
		wantErr bool
	}{
		{
			name: "pull request link",
			link: "https://github.com/BitGo/bitgo-microservices/pull/4321",
			want: "4321",
		},
		{
			name: "suffix stripped",
			link: "https://github.com/BitGo/bitgo-microservices/pull/4321.diff",
			want: "4321",
		},
		{
			name: "compare link keeps text before first dot",
			link: "https://github.com/BitGo/bitgo-microservices/compare/000111...abc123",
			want: "000111",
		},
		{
			name: "trailing slash",
			link: "https://github.com/BitGo/bitgo-microservices/pull/77/",
			want: "77",
		},
		{
			name:    "no path",
			link:    "https://github.com",
			wantErr: true,
		},
		{
			name:    "root path",
			link:    "https://github.com/",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := BuildSummary{Number: 1, Link: tt.link}
			got, err := b.PullRequestNumber()
			if (err != nil) != tt.wantErr {
				t.Fatalf("PullRequestNumber() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("PullRequestNumber() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLookup_FirstMatchWins(t *testing.T) {
	first := NewGen1Step(StepInfo{ID: 1, Name: "dup", Status: StatusSuccess})
	second := NewGen1Step(StepInfo{ID: 2, Name: "dup", Status: StatusFailure})
	stageA := NewGen1Stage(StageInfo{ID: 10, Name: "same"}, first, second)
	stageB := NewGen1Stage(StageInfo{ID: 11, Name: "same"})

	build := &BuildDetail{Stages: []Stage{stageA, stageB}}

	stage, ok := build.Stage("same")
	if !ok {
		t.Fatal("Stage(same) not found")
	}
	if stage.Info().ID != 10 {
		t.Errorf("Stage(same) returned ID %d, want 10", stage.Info().ID)
	}

	step, ok := stage.Step("dup")
	if !ok {
		t.Fatal("Step(dup) not found")
	}
	if step.Info().ID != 1 {
		t.Errorf("Step(dup) returned ID %d, want 1", step.Info().ID)
	}

	if _, ok := build.Stage("missing"); ok {
		t.Error("Stage(missing) ok = true, want false")
	}
	if _, ok := stage.Step("missing"); ok {
		t.Error("Step(missing) ok = true, want false")
	}
}
