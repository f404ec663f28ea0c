package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// Tool names.
const (
	ToolCompareBuilds = "compare_builds"
	ToolListRuns      = "list_runs"
	ToolGetRunRows    = "get_run_rows"
)

func compareBuildsTool() mcp.Tool {
	return mcp.NewTool(ToolCompareBuilds,
		mcp.WithDescription("Compare Drone Gen1 and Gen2 builds of the same commits over a time window. Returns one row per commit built on both servers: unit and await step statuses on Gen1, the aggregated wallet-platform system status on Gen2, and timings. Rows are tiered: tier 1 has a failed status, tier 2 finished the await step outside the threshold, tier 3 is healthy. Use get_run_rows with the returned run_id to see every row of a tier."),
		mcp.WithNumber("window_hours",
			mcp.Required(),
			mcp.Description("Length of the window in hours, counted back from its start"),
		),
		mcp.WithNumber("offset_hours",
			mcp.Description("How many hours before now the window starts (default: 0)"),
		),
		mcp.WithBoolean("develop",
			mcp.Description("Compare pushes to develop instead of pull request builds"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max rows per tier (default: 15)"),
		),
	)
}

func listRunsTool() mcp.Tool {
	return mcp.NewTool(ToolListRuns,
		mcp.WithDescription("List recent comparison runs, newest first."),
		mcp.WithNumber("limit",
			mcp.Description("Max runs to return (default: 10)"),
		),
	)
}

func getRunRowsTool() mcp.Tool {
	return mcp.NewTool(ToolGetRunRows,
		mcp.WithDescription("Get the rows of a stored comparison run. Use after compare_builds or list_runs to drill into a run."),
		mcp.WithString("run_id",
			mcp.Required(),
			mcp.Description("Run ID from compare_builds or list_runs"),
		),
		mcp.WithNumber("tier",
			mcp.Description("Only return rows of this tier (1-3); 0 returns all rows"),
		),
	)
}
