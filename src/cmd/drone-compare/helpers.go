package main

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"drone-compare/src/config"
	"drone-compare/src/pipeline"
	"drone-compare/src/report"
	"drone-compare/src/window"
)

// loadConfig resolves the config file, the environment and the persistent
// flags. Commands that talk to Drone pass requireBackends to validate tokens.
func loadConfig(requireBackends bool) (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	applyFlags(cfg)

	if requireBackends {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("configuration error: %w", err)
		}
	}
	return cfg, nil
}

// applyFlags overlays the persistent flags, which win over file and
// environment.
func applyFlags(cfg *config.Config) {
	if storeDSN != "" {
		cfg.Store.DSN = config.ExpandPath(storeDSN)
	}
	if len(publish) > 0 {
		cfg.Redpanda.Brokers = publish
	}
}

// parseHours parses a non-negative number of hours.
func parseHours(name, s string) (float64, error) {
	h, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(h) || math.IsInf(h, 0) {
		return 0, fmt.Errorf("%s must be a number of hours, got %q", name, s)
	}
	if h < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %q", name, s)
	}
	return h, nil
}

func hoursToDuration(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

// buildRequest turns the window flags into a run request.
func buildRequest(now time.Time, hours, offset float64, develop bool, skipPages int) (pipeline.Request, error) {
	if hours <= 0 {
		return pipeline.Request{}, fmt.Errorf("window-hours must be greater than zero")
	}
	if offset < 0 {
		return pipeline.Request{}, fmt.Errorf("--offset must not be negative")
	}
	if skipPages < 0 {
		return pipeline.Request{}, fmt.Errorf("--skip-pages must not be negative")
	}

	mode := window.PullRequestMode
	if develop {
		mode = window.DevelopMode
	}
	return pipeline.Request{
		Window:    window.New(now, hoursToDuration(hours), hoursToDuration(offset)),
		Mode:      mode,
		SkipPages: skipPages,
	}, nil
}

// outputOptions merges the output flags over the configured defaults.
func outputOptions(cfg *config.Config) (report.Options, error) {
	name := cfg.Output.Format
	if format != "" {
		name = format
	}
	f := report.FormatTSV
	if name != "" {
		var err error
		if f, err = report.ParseFormat(name); err != nil {
			return report.Options{}, err
		}
	}

	delim := cfg.Output.Delimiter
	if delimiter != "" {
		delim = delimiter
	}
	d, err := parseDelimiter(delim)
	if err != nil {
		return report.Options{}, err
	}

	return report.Options{Format: f, Path: config.ExpandPath(outputFile), Delimiter: d}, nil
}

// parseDelimiter accepts a single character or one of the escapes \t and
// tab. Empty selects the format default.
func parseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case `\t`, "tab":
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == '\n' || r == '\r' || r == '"' || r == utf8.RuneError {
		return 0, fmt.Errorf("invalid delimiter %q", s)
	}
	return r, nil
}

// shortID abbreviates a run ID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
