package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"drone-compare/src/config"
	"drone-compare/src/correlate"
	"drone-compare/src/logger"
	"drone-compare/src/metrics"
	"drone-compare/src/pipeline"
	"drone-compare/src/store"
	"drone-compare/src/window"
)

// Server is the MCP server for drone-compare.
type Server struct {
	mcpServer *server.MCPServer
	runner    *pipeline.Runner
	store     store.Store
	now       func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithClock replaces time.Now when computing windows.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// NewServer creates a new MCP server. runner must persist its runs to st so
// that list_runs and get_run_rows can find them.
func NewServer(runner *pipeline.Runner, st store.Store, opts ...Option) *Server {
	s := server.NewMCPServer(
		"drone-compare",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	srv := &Server{
		mcpServer: s,
		runner:    runner,
		store:     st,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(srv)
	}
	srv.registerTools()

	return srv
}

// FromConfig builds a server for cfg. Runs are kept in memory unless a
// store DSN is configured.
func FromConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	// stdout carries the protocol, so nothing else may be written there.
	log := logger.NewSilentLogger()

	gen1, gen2, err := pipeline.Clients(cfg)
	if err != nil {
		return nil, err
	}
	engine, err := metrics.NewEngine(cfg.MetricsOptions(), log)
	if err != nil {
		return nil, err
	}

	st, err := pipeline.OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if st == nil {
		st = store.NewMemoryStore()
	}

	runner := pipeline.NewRunner(gen1, gen2, engine, log, pipeline.WithStore(st))
	return NewServer(runner, st), nil
}

// registerTools registers all available tools.
func (s *Server) registerTools() {
	s.mcpServer.AddTool(compareBuildsTool(), s.handleCompareBuilds)
	s.mcpServer.AddTool(listRunsTool(), s.handleListRuns)
	s.mcpServer.AddTool(getRunRowsTool(), s.handleGetRunRows)
}

// Run starts the MCP server on stdio.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

// Close releases the run store.
func (s *Server) Close() error {
	return s.store.Close()
}

// handleCompareBuilds runs a comparison and returns the tiered rows.
func (s *Server) handleCompareBuilds(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hours := request.GetFloat("window_hours", 0)
	if hours <= 0 {
		return mcp.NewToolResultError("window_hours must be a positive number"), nil
	}
	offset := request.GetFloat("offset_hours", 0)
	if offset < 0 {
		return mcp.NewToolResultError("offset_hours must not be negative"), nil
	}

	mode := window.PullRequestMode
	if request.GetBool("develop", false) {
		mode = window.DevelopMode
	}
	limit := request.GetInt("limit", DefaultTier1Limit)

	req := pipeline.Request{
		Window: window.New(s.now(), fromHours(hours), fromHours(offset)),
		Mode:   mode,
	}
	result, err := s.runner.Run(ctx, req, &metrics.Collect{})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("comparison failed: %v", err)), nil
	}

	response := CompareResponse{
		RunID: result.RunID,
		Window: WindowInfo{
			Start: req.Window.Start.UTC().Format(time.RFC3339),
			End:   req.Window.End.UTC().Format(time.RFC3339),
			Mode:  mode.String(),
		},
		Backends:   []BackendInfo{backendInfo(result.Gen1), backendInfo(result.Gen2)},
		Commits:    result.Commits,
		Comparable: result.Summary.Comparable,
		Emitted:    result.Summary.Emitted,
		Skipped:    result.Summary.Skipped,
		Rows:       TierRows(result.Rows, limit),
	}
	return jsonResult(response)
}

// handleListRuns lists stored runs.
func (s *Server) handleListRuns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runs, err := listRuns(ctx, s.store, request.GetInt("limit", DefaultRunLimit))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list runs: %v", err)), nil
	}
	return jsonResult(runs)
}

// handleGetRunRows returns the rows of a stored run.
func (s *Server) handleGetRunRows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID := request.GetString("run_id", "")
	if runID == "" {
		return mcp.NewToolResultError("run_id parameter is required"), nil
	}
	tier := request.GetInt("tier", 0)
	if tier < 0 || tier > 3 {
		return mcp.NewToolResultError("tier must be between 0 and 3"), nil
	}

	rows, err := runRows(ctx, s.store, runID, tier)
	if errors.Is(err, store.ErrRunNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("run not found: run_id=%s", runID)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load rows: %v", err)), nil
	}
	return jsonResult(rows)
}

func backendInfo(stats correlate.Stats) BackendInfo {
	info := BackendInfo{
		Name:     stats.Backend,
		Pages:    stats.Pages,
		Listed:   stats.Listed,
		Admitted: stats.Admitted,
		Stopped:  stats.Stopped,
	}
	if len(stats.Skipped) > 0 {
		info.Skipped = make(map[string]int, len(stats.Skipped))
		for reason, n := range stats.Skipped {
			info.Skipped[string(reason)] = n
		}
	}
	return info
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func fromHours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
