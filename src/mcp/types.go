// Package mcp provides the MCP server that lets LLM clients run and inspect
// drone comparisons.
package mcp

// CompareResponse is the compare_builds tool response.
type CompareResponse struct {
	RunID      string        `json:"run_id"`
	Window     WindowInfo    `json:"window"`
	Backends   []BackendInfo `json:"backends"`
	Commits    int           `json:"commits"`
	Comparable int           `json:"comparable"`
	Emitted    int           `json:"emitted"`
	Skipped    int           `json:"skipped"`
	Rows       TieredRows    `json:"rows"`
}

// WindowInfo describes the time window a run covered.
type WindowInfo struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Mode  string `json:"mode"`
}

// BackendInfo summarizes collection against one backend.
type BackendInfo struct {
	Name     string         `json:"name"`
	Pages    int            `json:"pages"`
	Listed   int            `json:"listed"`
	Admitted int            `json:"admitted"`
	Skipped  map[string]int `json:"skipped,omitempty"`
	Stopped  bool           `json:"stopped"`
}

// TieredRows groups rows by how much attention they need.
type TieredRows struct {
	// PRURLPrefix is stripped from every PRURL below when set.
	PRURLPrefix string `json:"pr_url_prefix,omitempty"`

	Tier1Failures []RowView `json:"tier_1_failures"`
	Tier2Slow     []RowView `json:"tier_2_slow"`
	Tier3Healthy  []RowView `json:"tier_3_healthy"`

	// Omitted counts rows dropped by per-tier limits.
	Omitted int `json:"omitted,omitempty"`
}

// RowView is a compact rendering of a comparison row.
type RowView struct {
	PRNumber        string `json:"pr"`
	PRURL           string `json:"pr_url,omitempty"`
	Commit          string `json:"commit"`
	Gen1Build       int    `json:"drone1_build"`
	Gen2Build       int    `json:"drone2_build"`
	UnitTestStatus  string `json:"unit_status"`
	AwaitTestStatus string `json:"await_status"`
	SystemStatus    string `json:"system_status"`
	UnitTestElapsed int64  `json:"unit_elapsed_s"`
	TotalElapsed    int64  `json:"drone2_elapsed_s"`
	AwaitDelta      int64  `json:"await_delta_s"`
	AwaitWithin     bool   `json:"await_within_threshold"`
}

// RunInfo is a stored run as returned by list_runs.
type RunInfo struct {
	ID        string     `json:"run_id"`
	CreatedAt string     `json:"created_at"`
	Window    WindowInfo `json:"window"`
	Status    string     `json:"status"`
	Emitted   int        `json:"emitted"`
	Skipped   int        `json:"skipped"`
}
