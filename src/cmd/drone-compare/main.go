// Package main provides the drone-compare CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"drone-compare/src/config"
	"drone-compare/src/drone"
	"drone-compare/src/logger"
	"drone-compare/src/metrics"
	"drone-compare/src/pipeline"
	"drone-compare/src/report"
	"drone-compare/src/tui"
)

var (
	configPath string
	storeDSN   string
	publish    []string
	verbose    bool

	offsetHours float64
	outputFile  string
	develop     bool
	format      string
	delimiter   string
	useTUI      bool
	skipPages   int
)

// rootCmd compares the builds of both Drone generations.
var rootCmd = &cobra.Command{
	Use:   "drone-compare [window-hours]",
	Short: "Compare Drone Gen1 and Gen2 builds per commit",
	Long: `drone-compare lists the builds both Drone servers ran inside a time
window, pairs them by commit and reports unit test, await test and system
test outcomes side by side.

The window ends --offset hours before now and spans window-hours. Tokens
are read from DRONE1_TOKEN and DRONE2_TOKEN.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runCompare,
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	hours, err := parseHours("window-hours", args[0])
	if err != nil {
		return err
	}
	req, err := buildRequest(time.Now(), hours, offsetHours, develop, skipPages)
	if err != nil {
		return err
	}
	out, err := outputOptions(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if useTUI {
		return runCompareTUI(ctx, cfg, req, out)
	}

	log := logger.NewConsoleLogger(verbose)
	runner, st, err := pipeline.FromConfig(ctx, cfg, log)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	sink, cleanup, err := pipeline.Outputs(ctx, cfg, out, log)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := runner.Run(ctx, req, sink); err != nil {
		return drone.WrapError(err)
	}
	if out.Path != "" {
		log.Info("Wrote %s report to %s", out.Format, out.Path)
	}
	return nil
}

// runCompareTUI runs the comparison behind the loading screen and then shows
// the rows. A report is still written when an output file was requested.
func runCompareTUI(ctx context.Context, cfg *config.Config, req pipeline.Request, out report.Options) error {
	return tui.RunLoading(ctx, "drone-compare", func(ctx context.Context, log logger.Logger) (string, []metrics.Row, error) {
		runner, st, err := pipeline.FromConfig(ctx, cfg, log)
		if err != nil {
			return "", nil, err
		}
		if st != nil {
			defer st.Close()
		}

		collect := &metrics.Collect{}
		sinks := metrics.MultiSink{collect}
		// stdout belongs to the TUI, so the report is only written to a file.
		switch {
		case out.Path != "":
			sink, cleanup, err := pipeline.Outputs(ctx, cfg, out, log)
			if err != nil {
				return "", nil, err
			}
			defer cleanup()
			sinks = append(sinks, sink)
		case pipeline.PublishEnabled(cfg):
			publisher, cleanup, err := pipeline.Publisher(ctx, cfg, log)
			if err != nil {
				return "", nil, err
			}
			defer cleanup()
			sinks = append(sinks, publisher)
		}

		result, err := runner.Run(ctx, req, sinks)
		if err != nil {
			return "", nil, drone.WrapError(err)
		}
		return runTitle(req, result), collect.Rows, nil
	})
}

func runTitle(req pipeline.Request, result *pipeline.Result) string {
	return fmt.Sprintf("drone-compare • %s • %s to %s • run %s",
		req.Mode,
		req.Window.End.Format("Jan 2 15:04"),
		req.Window.Start.Format("Jan 2 15:04"),
		shortID(result.RunID),
	)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Config file (default ~/.config/drone-compare/config.toml)")
	pf.StringVar(&storeDSN, "store", "", "Persist runs to a database (postgres:// DSN or SQLite file)")
	pf.StringSliceVar(&publish, "publish", nil, "Publish rows to these Redpanda brokers")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Log every skipped build and commit")

	addOutputFlags(rootCmd)
	rootCmd.Flags().Float64VarP(&offsetHours, "offset", "o", 0, "Hours before now at which the window ends")
	rootCmd.Flags().BoolVarP(&develop, "develop", "d", false, "Compare pushes to develop instead of pull requests")
	rootCmd.Flags().BoolVar(&useTUI, "tui", false, "Show the rows in an interactive viewer")
	rootCmd.Flags().IntVar(&skipPages, "skip-pages", 0, "Skip this many leading list pages on both servers")

	rootCmd.AddCommand(recentCmd, historyCmd, mcpCmd, tailCmd)
}

// addOutputFlags registers the report flags shared by every command that
// writes rows.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outputFile, "file", "f", "", "Write the report to this file instead of stdout")
	cmd.Flags().StringVar(&format, "format", "", "Report format: tsv, csv, prom or jsonl (default tsv)")
	cmd.Flags().StringVar(&delimiter, "delimiter", "", "Field delimiter for tsv and csv reports")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
