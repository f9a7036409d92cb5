package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/reqprof/internal/config"
	"github.com/nao1215/reqprof/internal/database"
	"github.com/nao1215/reqprof/internal/report"
	"github.com/nao1215/reqprof/internal/target"
	"github.com/spf13/cobra"
)

// defaultHistoryLimit is the number of runs listed when --limit is not given.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
// This command shows profiling runs stored with --save.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show stored profiling runs",
		Long: `History lists profiling runs saved with 'reqprof --save'.

Each run records the target, when it started, how many requests were sent,
the share of successful requests and the median latency. A single run can be
rendered again as a full report.

Examples:
  # List the most recent runs
  reqprof history

  # List runs for one host
  reqprof history --target example.com

  # Show the full report of run 5
  reqprof history --id 5

  # Show run 5 as Markdown
  reqprof history --id 5 --markdown

  # List every profiled host
  reqprof history --list-targets

  # Delete run 5
  reqprof history --delete 5`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	// Selection flags
	cmd.Flags().StringP("target", "t", "",
		"Only list runs for this host (a URL is accepted)")
	cmd.Flags().Int64P("id", "i", 0,
		"Show the full report of the run with this ID")
	cmd.Flags().IntP("limit", "l", defaultHistoryLimit,
		"Maximum number of runs to list (0 for all)")
	cmd.Flags().BoolP("list-targets", "L", false,
		"List every host with stored runs")
	cmd.Flags().Int64("delete", 0,
		"Delete the run with this ID")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output the report selected with --id in Markdown format")

	return cmd
}

// historyOptions holds the parsed history flags.
type historyOptions struct {
	target      string
	id          int64
	limit       int
	listTargets bool
	deleteID    int64
	dbDir       string
	json        bool
	markdown    bool
}

// parseHistoryFlags reads the history flags from cmd.
func parseHistoryFlags(cmd *cobra.Command) (*historyOptions, error) {
	opts := &historyOptions{}
	var err error

	if opts.target, err = cmd.Flags().GetString("target"); err != nil {
		return nil, err
	}
	if opts.id, err = cmd.Flags().GetInt64("id"); err != nil {
		return nil, err
	}
	if opts.limit, err = cmd.Flags().GetInt("limit"); err != nil {
		return nil, err
	}
	if opts.listTargets, err = cmd.Flags().GetBool("list-targets"); err != nil {
		return nil, err
	}
	if opts.deleteID, err = cmd.Flags().GetInt64("delete"); err != nil {
		return nil, err
	}
	if opts.dbDir, err = cmd.Flags().GetString("db-dir"); err != nil {
		return nil, err
	}
	if opts.json, err = cmd.Flags().GetBool("json"); err != nil {
		return nil, err
	}
	if opts.markdown, err = cmd.Flags().GetBool("markdown"); err != nil {
		return nil, err
	}

	if opts.json && opts.markdown {
		return nil, config.ErrConflictingReportFormats
	}
	if opts.markdown && opts.id == 0 {
		return nil, errors.New("--markdown requires --id")
	}
	if opts.target != "" {
		opts.target = target.Normalize(opts.target).Hostname
	}
	return opts, nil
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	// Validate flags before opening the database
	opts, err := parseHistoryFlags(cmd)
	if err != nil {
		return err
	}

	db, err := database.Open(opts.dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case opts.deleteID != 0:
		if err := db.DeleteRun(ctx, opts.deleteID); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted run #%d\n", opts.deleteID)
		return nil
	case opts.listTargets:
		return listTargets(ctx, out, db, opts)
	case opts.id != 0:
		return showRun(ctx, out, db, opts)
	default:
		return listRuns(ctx, out, db, opts)
	}
}

// listTargets prints every hostname with stored runs.
func listTargets(ctx context.Context, out io.Writer, db *database.HistoryDB, opts *historyOptions) error {
	targets, err := db.ListTargets(ctx)
	if err != nil {
		return err
	}

	if opts.json {
		if targets == nil {
			targets = []string{}
		}
		_, err := report.NewJSONWriter(out, report.WithPrettyPrint()).Encode(targets)
		return err
	}

	if len(targets) == 0 {
		fmt.Fprintln(out, "No profiled targets found in the database.")
		fmt.Fprintln(out, "\nUse 'reqprof --url <url> --profile <n> --save' to store a run.")
		return nil
	}

	fmt.Fprintf(out, "Profiled targets (%d):\n\n", len(targets))
	for _, t := range targets {
		fmt.Fprintf(out, "  • %s\n", t)
	}
	return nil
}

// showRun renders the full report of a stored run.
func showRun(ctx context.Context, out io.Writer, db *database.HistoryDB, opts *historyOptions) error {
	stored, err := db.GetRunByID(ctx, opts.id)
	if err != nil {
		return err
	}

	var writer report.Writer
	switch {
	case opts.json:
		writer = report.NewJSONWriter(out, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case opts.markdown:
		writer = report.NewMarkdownWriter(out)
	default:
		writer = report.NewSimpleWriter(out, report.WithVerbose(true))
	}
	_, err = writer.Write(stored)
	return err
}

// listRuns prints stored runs, newest first.
func listRuns(ctx context.Context, out io.Writer, db *database.HistoryDB, opts *historyOptions) error {
	runs, err := db.ListRuns(ctx, opts.target, opts.limit)
	if err != nil {
		return err
	}

	if opts.json {
		if runs == nil {
			runs = []database.RunRecord{}
		}
		_, err := report.NewJSONWriter(out, report.WithPrettyPrint()).Encode(runs)
		return err
	}

	if len(runs) == 0 {
		if opts.target != "" {
			fmt.Fprintf(out, "No profiling runs found for %s\n", opts.target)
		} else {
			fmt.Fprintln(out, "No profiling runs found in the database.")
		}
		fmt.Fprintln(out, "\nUse 'reqprof --url <url> --profile <n> --save' to store a run.")
		return nil
	}

	fmt.Fprintf(out, "Profiling runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-6s  %-20s  %8s  %8s  %10s  %s\n",
		"ID", "Date", "Requests", "Success", "Median", "Target")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 80))

	for _, rec := range runs {
		fmt.Fprintf(out, "  %-6d  %-20s  %8d  %7.1f%%  %10s  %s\n",
			rec.ID,
			rec.StartedAt.Local().Format("2006-01-02 15:04:05"),
			rec.TotalRequests,
			rec.SuccessRate,
			formatMedian(rec.MedianMillis),
			rec.Target,
		)
	}

	fmt.Fprintln(out, "\nUse 'reqprof history --id <id>' to show the full report of a run.")
	return nil
}

// formatMedian formats an optional latency in milliseconds.
func formatMedian(ms *uint64) string {
	if ms == nil {
		return "N/A"
	}
	return strconv.FormatUint(*ms, 10) + "ms"
}
