package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"drone-compare/src/broker"
	"drone-compare/src/drone"
	"drone-compare/src/logger"
	"drone-compare/src/mcp"
	"drone-compare/src/metrics"
	"drone-compare/src/pipeline"
	"drone-compare/src/report"
	"drone-compare/src/store"
	"drone-compare/src/tui"
)

var (
	historyLimit int
	tailGroup    string
)

// recentCmd prints the newest builds of each server.
var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show the most recent builds on both Drone servers",
	Long: `Fetch the first page of builds from each server. Useful to check that
both tokens work and to pick a window before running a comparison.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(true)
		if err != nil {
			return err
		}
		gen1, gen2, err := pipeline.Clients(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		for _, c := range []*drone.Client{gen1, gen2} {
			builds, err := c.RecentBuilds(ctx)
			if err != nil {
				return drone.WrapError(err)
			}
			fmt.Fprintf(os.Stdout, "%s (%d builds)\n", c.Name(), len(builds))
			writeBuilds(os.Stdout, builds, time.Now())
			fmt.Fprintln(os.Stdout)
		}
		return nil
	},
}

// writeBuilds prints one aligned line per build.
func writeBuilds(w io.Writer, builds []drone.BuildSummary, now time.Time) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NUMBER\tSTATUS\tEVENT\tCOMMIT\tCREATED\tSOURCE")
	for _, b := range builds {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			b.Number, b.Status, b.Event, shortCommit(b.Commit()),
			humanize.RelTime(time.Unix(b.Created, 0), now, "ago", "from now"),
			b.Source,
		)
	}
	tw.Flush()
}

func shortCommit(sha string) string {
	if len(sha) > 10 {
		return sha[:10]
	}
	return sha
}

// historyCmd lists stored runs or prints the rows of one run.
var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List stored comparison runs, or show the rows of one run",
	Long: `Without arguments, list the most recent runs recorded with --store.
With a run ID, print that run's rows in the selected report format or,
with --tui, in the interactive viewer.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(false)
		if err != nil {
			return err
		}
		if cfg.Store.DSN == "" {
			return fmt.Errorf("history needs a store: pass --store or set DATABASE_DSN")
		}

		ctx := cmd.Context()
		st, err := pipeline.OpenStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		if len(args) == 0 {
			runs, err := st.ListRuns(ctx, historyLimit)
			if err != nil {
				return err
			}
			writeRuns(os.Stdout, runs, time.Now())
			return nil
		}

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		rows, err := st.GetRows(ctx, run.ID)
		if err != nil {
			return err
		}

		if useTUI {
			title := fmt.Sprintf("drone-compare • %s • %s to %s • run %s",
				run.Mode,
				run.WindowEnd.Format("Jan 2 15:04"),
				run.WindowStart.Format("Jan 2 15:04"),
				shortID(run.ID),
			)
			return tui.Run(title, rows)
		}

		out, err := outputOptions(cfg)
		if err != nil {
			return err
		}
		sink, err := report.Open(out)
		if err != nil {
			return err
		}
		return writeRows(sink, rows)
	},
}

// writeRuns prints one aligned line per run, newest first.
func writeRuns(w io.Writer, runs []store.Run, now time.Time) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tMODE\tWINDOW\tSTATUS\tROWS\tSKIPPED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
			r.ID,
			humanize.RelTime(r.CreatedAt, now, "ago", "from now"),
			r.Mode,
			r.WindowStart.Sub(r.WindowEnd).Round(time.Minute),
			r.Status,
			r.Emitted,
			r.Skipped,
		)
	}
	tw.Flush()
}

// writeRows writes rows to sink and closes it.
func writeRows(sink metrics.Sink, rows []metrics.Row) error {
	for _, row := range rows {
		if err := sink.Write(row); err != nil {
			sink.Close()
			return err
		}
	}
	return sink.Close()
}

// mcpCmd serves the comparison tools over stdio.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run an MCP server exposing the comparison tools over stdio",
	Long: `Start a Model Context Protocol server on stdin/stdout with the
compare_builds, list_runs and get_run_rows tools. Runs are kept in memory
unless a store is configured.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(true)
		if err != nil {
			return err
		}

		srv, err := mcp.FromConfig(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer srv.Close()

		return srv.Run()
	},
}

// tailCmd follows rows published with --publish.
var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Follow comparison rows published to Redpanda",
	Long: `Consume the row topic and write every row as it arrives. Output is
JSON lines unless --format is given. Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(false)
		if err != nil {
			return err
		}
		if !pipeline.PublishEnabled(cfg) {
			return fmt.Errorf("tail needs Redpanda: pass --publish or set REDPANDA_BROKERS")
		}

		out, err := outputOptions(cfg)
		if err != nil {
			return err
		}
		if format == "" {
			out.Format = report.FormatJSONL
		}
		out.Stream = true

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log := logger.NewConsoleLogger(verbose)
		rp, err := broker.NewRedpandaBroker(cfg.Redpanda.Brokers, log)
		if err != nil {
			return err
		}
		defer rp.Close()

		topic := cfg.Redpanda.Topic
		if topic == "" {
			topic = broker.DefaultTopic
		}
		msgs, err := rp.Subscribe(ctx, topic, tailGroup)
		if err != nil {
			return err
		}

		sink, err := report.Open(out)
		if err != nil {
			return err
		}
		log.Info("Following %s on %v", topic, cfg.Redpanda.Brokers)
		return tailRows(ctx, msgs, sink, log)
	},
}

// tailRows writes every decodable row message to sink until ctx is done or
// msgs is closed, then closes sink. Sinks that buffer are flushed after every
// row. Malformed messages are logged and skipped.
func tailRows(ctx context.Context, msgs <-chan broker.Message, sink metrics.Sink, log logger.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return sink.Close()
		case msg, ok := <-msgs:
			if !ok {
				return sink.Close()
			}
			rm, err := broker.DecodeRow(msg)
			if err != nil {
				log.Warn("Skipping message: %v", err)
				continue
			}
			if err := sink.Write(rm.Row); err != nil {
				sink.Close()
				return err
			}
			if f, ok := sink.(flusher); ok {
				if err := f.Flush(); err != nil {
					sink.Close()
					return err
				}
			}
			log.Debug("Row for %s from run %s", rm.Row.Commit, rm.RunID)
		}
	}
}

type flusher interface {
	Flush() error
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to list")
	historyCmd.Flags().BoolVar(&useTUI, "tui", false, "Show the rows in an interactive viewer")
	addOutputFlags(historyCmd)

	tailCmd.Flags().StringVar(&tailGroup, "group", "drone-compare-tail", "Consumer group")
	addOutputFlags(tailCmd)
}
