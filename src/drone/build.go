// Package drone models the build records served by Drone CI and provides a
// client for the two Drone generations this tool compares.
//
// Gen1 and Gen2 servers share the build shape but disagree on stages and steps:
// Gen2 adds kind/type/depends_on to stages and image/depends_on to steps.
// Both variants are exposed through the Stage and Step interfaces so callers
// never have to know which server produced a record.
package drone

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

var (
	buildRequired = []string{
		"id", "number", "status", "event", "link", "after",
		"source", "target", "started", "finished", "created", "updated",
	}
	detailRequired = []string{"stages"}
)

// BuildSummary is a build as listed by GET /api/repos/{repo}/builds.
type BuildSummary struct {
	ID      int64  `json:"id"`
	RepoID  int64  `json:"repo_id"`
	Trigger string `json:"trigger"`
	// Number is assigned sequentially per repository by the server.
	Number  int    `json:"number"`
	Status  Status `json:"status"`
	Event   Event  `json:"event"`
	Action  string `json:"action"`
	Link    string `json:"link"`
	Message string `json:"message"`

	// Before is the previous commit, After the commit that was built.
	Before string `json:"before"`
	After  string `json:"after"`
	Ref    string `json:"ref"`

	SourceRepo string `json:"source_repo"`
	Source     string `json:"source"`
	Target     string `json:"target"`

	AuthorLogin  string `json:"author_login"`
	AuthorName   string `json:"author_name"`
	AuthorEmail  string `json:"author_email"`
	AuthorAvatar string `json:"author_avatar"`
	Sender       string `json:"sender"`

	// Epoch seconds. Drone pre-populates started/finished for running
	// builds, so they are not guaranteed to be ordered.
	Started  int64 `json:"started"`
	Finished int64 `json:"finished"`
	Created  int64 `json:"created"`
	Updated  int64 `json:"updated"`

	Version int `json:"version"`
}

// Commit returns the commit the build ran against.
func (b BuildSummary) Commit() string {
	return b.After
}

// PullRequestNumber extracts the pull request number from the build link:
// the last path segment with any ".suffix" removed.
func (b BuildSummary) PullRequestNumber() (string, error) {
	u, err := url.Parse(b.Link)
	if err != nil {
		return "", fmt.Errorf("build %d: invalid link %q: %w", b.Number, b.Link, err)
	}

	path := strings.Trim(u.Path, "/")
	if path == "" {
		return "", fmt.Errorf("build %d: link %q has no path segments", b.Number, b.Link)
	}

	segments := strings.Split(path, "/")
	number, _, _ := strings.Cut(segments[len(segments)-1], ".")
	return number, nil
}

func (b *BuildSummary) UnmarshalJSON(data []byte) error {
	raw, err := rawFields("build", data)
	if err != nil {
		return err
	}
	return b.decode(data, raw)
}

func (b *BuildSummary) decode(data []byte, raw map[string]json.RawMessage) error {
	if err := requireFields("build", raw, buildRequired...); err != nil {
		return err
	}

	type plain BuildSummary
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return &DecodeError{Kind: "build", Err: err}
	}
	if _, err := url.Parse(p.Link); err != nil {
		return &DecodeError{Kind: "build", Field: "link", Err: err}
	}

	*b = BuildSummary(p)
	return nil
}

// BuildDetail is a build with its stages, as returned by GET /api/repos/{repo}/builds/{number}.
type BuildDetail struct {
	BuildSummary
	Stages []Stage
}

func (d *BuildDetail) UnmarshalJSON(data []byte) error {
	raw, err := rawFields("build", data)
	if err != nil {
		return err
	}
	if err := d.BuildSummary.decode(data, raw); err != nil {
		return err
	}
	if err := requireFields("build", raw, detailRequired...); err != nil {
		return err
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw["stages"], &items); err != nil {
		return &DecodeError{Kind: "build", Field: "stages", Err: err}
	}

	d.Stages = make([]Stage, 0, len(items))
	for i, item := range items {
		stage, err := DecodeStage(item)
		if err != nil {
			return fmt.Errorf("build %d stage %d: %w", d.Number, i, err)
		}
		d.Stages = append(d.Stages, stage)
	}
	return nil
}

// Stage returns the first stage with the given name. Drone does not enforce
// unique stage names, so list order decides ties.
func (d *BuildDetail) Stage(name string) (Stage, bool) {
	for _, stage := range d.Stages {
		if stage.Name() == name {
			return stage, true
		}
	}
	return nil, false
}

func rawFields(kind string, data []byte) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &DecodeError{Kind: kind, Err: err}
	}
	if raw == nil {
		return nil, &DecodeError{Kind: kind, Err: fmt.Errorf("expected object, got null")}
	}
	return raw, nil
}

func requireFields(kind string, raw map[string]json.RawMessage, fields ...string) error {
	for _, field := range fields {
		if !hasField(raw, field) {
			return &DecodeError{Kind: kind, Field: field}
		}
	}
	return nil
}

func hasField(raw map[string]json.RawMessage, field string) bool {
	v, ok := raw[field]
	return ok && string(v) != "null"
}
