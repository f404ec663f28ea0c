// Package config provides configuration management for drone-compare.
//
// Settings come from an optional TOML file, then environment variables,
// then command-line flags, each layer overriding the previous one.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"drone-compare/src/broker"
	"drone-compare/src/drone"
	"drone-compare/src/metrics"
)

// Default backend locations.
const (
	DefaultDrone1URL = "https://drone.bitgo-dev.com"
	DefaultDrone2URL = "https://drone2.bitgo-ci.com"
)

// Config holds the application configuration.
type Config struct {
	Repo     string         `toml:"repo"`
	Drone1   BackendConfig  `toml:"drone1"`
	Drone2   BackendConfig  `toml:"drone2"`
	HTTP     HTTPConfig     `toml:"http"`
	Metrics  MetricsConfig  `toml:"metrics"`
	Output   OutputConfig   `toml:"output"`
	Store    StoreConfig    `toml:"store"`
	Redpanda RedpandaConfig `toml:"redpanda"`
}

// BackendConfig locates one Drone server.
type BackendConfig struct {
	URL   string `toml:"url"`
	Token string `toml:"token"`
}

// HTTPConfig tunes the Drone API clients.
type HTTPConfig struct {
	// Timeout is a Go duration string. Empty or "0" disables the timeout.
	Timeout  string `toml:"timeout"`
	PageSize int    `toml:"page_size"`
}

// MetricsConfig names the stage and steps compared.
type MetricsConfig struct {
	Stage              string `toml:"stage"`
	UnitStep           string `toml:"unit_step"`
	AwaitStep          string `toml:"await_step"`
	SystemStagePattern string `toml:"system_stage_pattern"`
	ThresholdSeconds   int64  `toml:"threshold_seconds"`
}

// OutputConfig selects the report format.
type OutputConfig struct {
	Format    string `toml:"format"`
	Delimiter string `toml:"delimiter"`
}

// StoreConfig enables run persistence. An empty DSN disables it.
type StoreConfig struct {
	DSN string `toml:"dsn"`
}

// RedpandaConfig enables row publishing. No brokers disables it.
type RedpandaConfig struct {
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	opts := metrics.DefaultOptions()
	return &Config{
		Repo:   drone.DefaultRepo,
		Drone1: BackendConfig{URL: DefaultDrone1URL},
		Drone2: BackendConfig{URL: DefaultDrone2URL},
		Metrics: MetricsConfig{
			Stage:              opts.Stage,
			UnitStep:           opts.UnitStep,
			AwaitStep:          opts.AwaitStep,
			SystemStagePattern: opts.SystemStagePattern,
			ThresholdSeconds:   opts.ThresholdSeconds,
		},
		Output:   OutputConfig{Format: "tsv"},
		Redpanda: RedpandaConfig{Topic: broker.DefaultTopic},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
// when the file does not exist.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.Store.DSN = ExpandPath(cfg.Store.DSN)
	return cfg, nil
}

// ApplyEnv overlays environment variables read through getenv.
// Empty variables leave the current value in place.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	set(&c.Drone1.Token, "DRONE1_TOKEN")
	set(&c.Drone2.Token, "DRONE2_TOKEN")
	set(&c.Drone1.URL, "DRONE1_URL")
	set(&c.Drone2.URL, "DRONE2_URL")
	set(&c.Repo, "DRONE_REPO")
	set(&c.Store.DSN, "DATABASE_DSN")
	set(&c.Redpanda.Topic, "REDPANDA_TOPIC")

	if v := getenv("REDPANDA_BROKERS"); v != "" {
		c.Redpanda.Brokers = splitList(v)
	}
}

// Validate checks that the configuration can drive a comparison run.
func (c *Config) Validate() error {
	if c.Drone1.Token == "" {
		return fmt.Errorf("DRONE1_TOKEN environment variable is required")
	}
	if c.Drone2.Token == "" {
		return fmt.Errorf("DRONE2_TOKEN environment variable is required")
	}
	if c.Drone1.URL == "" || c.Drone2.URL == "" {
		return fmt.Errorf("both drone1 and drone2 URLs must be set")
	}
	if c.Repo == "" {
		return fmt.Errorf("repository must not be empty")
	}
	if _, err := c.HTTPTimeout(); err != nil {
		return err
	}
	if c.Metrics.ThresholdSeconds < 0 {
		return fmt.Errorf("metrics.threshold_seconds must not be negative")
	}
	return nil
}

// HTTPTimeout parses HTTP.Timeout. Zero means no timeout.
func (c *Config) HTTPTimeout() (time.Duration, error) {
	if c.HTTP.Timeout == "" || c.HTTP.Timeout == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.HTTP.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid http.timeout %q: %w", c.HTTP.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("http.timeout must not be negative")
	}
	return d, nil
}

// MetricsOptions converts the metrics section for the engine.
func (c *Config) MetricsOptions() metrics.Options {
	return metrics.Options{
		Stage:              c.Metrics.Stage,
		UnitStep:           c.Metrics.UnitStep,
		AwaitStep:          c.Metrics.AwaitStep,
		SystemStagePattern: c.Metrics.SystemStagePattern,
		ThresholdSeconds:   c.Metrics.ThresholdSeconds,
	}
}

// LoadFromEnv loads configuration from defaults and environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := Default()
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve loads the file at path, overlays the environment and validates.
func Resolve(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "drone-compare", "config.toml")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
