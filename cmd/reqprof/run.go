package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/nao1215/reqprof/internal/config"
	"github.com/nao1215/reqprof/internal/database"
	"github.com/nao1215/reqprof/internal/log"
	"github.com/nao1215/reqprof/internal/model"
	"github.com/nao1215/reqprof/internal/profiler"
	"github.com/nao1215/reqprof/internal/report"
	"github.com/nao1215/reqprof/internal/target"
	"github.com/nao1215/reqprof/internal/tor"
	"github.com/nao1215/reqprof/internal/transport"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// runRootCmd executes the root command.
func runRootCmd(cmd *cobra.Command, _ []string) error {
	// Build config from flags and the config file
	cfg, file, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	// Set up structured logging
	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	cfg.Target = target.NormalizeWithLogger(cfg.EffectiveURL(), logger)
	cfg.ApplyFile(file, config.Explicit{
		Timeout:     cmd.Flags().Changed("timeout"),
		Concurrency: cmd.Flags().Changed("concurrency"),
	})

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Cancel in-flight requests on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, cmd, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags and loads the
// configuration file. The returned File is nil when no file was found.
func buildConfig(cmd *cobra.Command) (*config.Config, *config.File, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	var err error

	cfg.RawURL, err = cmd.Flags().GetString("url")
	if err != nil {
		return nil, nil, err
	}

	count, err := cmd.Flags().GetUint("profile")
	if err != nil {
		return nil, nil, err
	}
	cfg.Profile = cmd.Flags().Changed("profile")
	cfg.Count = int(count) //nolint:gosec // Validate rejects values that wrap to non-positive

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, nil, err
	}

	cfg.Concurrency, err = cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, nil, err
	}

	cfg.RateLimit, err = cmd.Flags().GetFloat64("rate")
	if err != nil {
		return nil, nil, err
	}

	cfg.FailFast, err = cmd.Flags().GetBool("fail-fast")
	if err != nil {
		return nil, nil, err
	}

	headers, err := cmd.Flags().GetStringArray("header")
	if err != nil {
		return nil, nil, err
	}
	for _, h := range headers {
		name, value, err := config.ParseHeader(h)
		if err != nil {
			return nil, nil, fmt.Errorf("configuration error: %w", err)
		}
		cfg.Headers[name] = value
	}

	cfg.MaxResponseSize, err = cmd.Flags().GetInt64("max-response-size")
	if err != nil {
		return nil, nil, err
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, nil, err
	}

	cfg.SaveToDB, err = cmd.Flags().GetBool("save")
	if err != nil {
		return nil, nil, err
	}

	cfg.UseTor, err = cmd.Flags().GetBool("tor")
	if err != nil {
		return nil, nil, err
	}

	cfg.ExternalTorAddress, err = cmd.Flags().GetString("external-tor")
	if err != nil {
		return nil, nil, err
	}

	cfg.TorStartupTimeout, err = cmd.Flags().GetDuration("tor-timeout")
	if err != nil {
		return nil, nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, err
	}

	// If the user named a config file it must exist; otherwise a missing
	// file just means no file settings.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath == "" {
		if cfg.ConfigFilePath != "" {
			return nil, nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
		}
		return cfg, nil, nil
	}

	file, err := config.LoadConfigFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	return cfg, file, nil
}

// setupLogger creates a structured logger that masks sensitive values.
func setupLogger(w io.Writer, verbose bool) *slog.Logger {
	return log.NewSecureLogger(w, verbose)
}

// run sends the requests described by cfg and prints the result.
func run(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting reqprof",
		"url", cfg.Target.URL(),
		"profile", cfg.Profile,
		"count", cfg.Count,
		"concurrency", cfg.Concurrency,
		"tor", cfg.UsesTor(),
	)

	dialer, cleanup, err := newDialer(ctx, cmd.ErrOrStderr(), cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	prof := newProfiler(cfg, dialer, newProgressFunc(cmd.ErrOrStderr()), logger)

	if cfg.Mode() == config.ModeSingle {
		return runSingle(ctx, cmd.OutOrStdout(), cfg, prof)
	}
	return runProfile(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, prof, logger)
}

// newProfiler builds the requester and profiler for cfg. A nil dialer
// connects directly and a nil progress disables progress output.
func newProfiler(cfg *config.Config, dialer transport.Dialer, progress profiler.ProgressFunc, logger *slog.Logger) *profiler.Profiler {
	requester := transport.NewRequester(
		transport.WithDialer(dialer),
		transport.WithTimeout(cfg.Timeout),
		transport.WithHeaders(cfg.Headers),
		transport.WithMaxResponseSize(cfg.MaxResponseSize),
		transport.WithLogger(logger),
	)

	opts := []profiler.Option{
		profiler.WithLogger(logger),
		profiler.WithConcurrency(cfg.Concurrency),
		profiler.WithRateLimit(cfg.RateLimit),
		profiler.WithFailFast(cfg.FailFast),
	}
	if progress != nil {
		opts = append(opts, profiler.WithProgress(progress))
	}
	return profiler.New(requester, opts...)
}

// newDialer returns the Tor dialer selected by cfg, or nil for direct
// connections. cleanup is always safe to call.
func newDialer(ctx context.Context, w io.Writer, cfg *config.Config, logger *slog.Logger) (transport.Dialer, func(), error) {
	noop := func() {}

	switch {
	case cfg.ExternalTorAddress != "":
		client, err := tor.NewClient(cfg.ExternalTorAddress)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create Tor client: %w", err)
		}

		status := client.CheckConnection(ctx)
		if status != tor.ProxyStatusOK {
			return nil, noop, fmt.Errorf("tor proxy check failed: %w (make sure Tor is running at %s)",
				status.Err(), cfg.ExternalTorAddress)
		}

		logger.Info("Tor proxy connection verified", "address", cfg.ExternalTorAddress)
		return client, noop, nil

	case cfg.UseTor:
		client, embeddedTor, err := startEmbeddedTor(ctx, w, cfg, logger)
		if err != nil {
			return nil, noop, err
		}
		return client, func() {
			logger.Info("stopping embedded Tor daemon...")
			if err := embeddedTor.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}, nil

	default:
		return nil, noop, nil
	}
}

// startEmbeddedTor starts an embedded Tor daemon using tornago.
// Returns the Tor client and embedded Tor manager on success.
func startEmbeddedTor(ctx context.Context, w io.Writer, cfg *config.Config, logger *slog.Logger) (*tor.Client, *tor.EmbeddedTor, error) {
	fmt.Fprintln(w, "Starting embedded Tor daemon...")
	fmt.Fprintf(w, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	embeddedTor := tor.NewEmbeddedTor(
		tor.WithStartupTimeout(cfg.TorStartupTimeout),
	)

	if err := embeddedTor.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}

	logger.Info("embedded Tor daemon started", "socksAddr", embeddedTor.SocksAddr())
	fmt.Fprintf(w, "SOCKS proxy: %s\n\n", embeddedTor.SocksAddr())

	client, err := embeddedTor.NewClient()
	if err != nil {
		_ = embeddedTor.Stop() //nolint:errcheck // best effort cleanup
		return nil, nil, fmt.Errorf("failed to create Tor client: %w", err)
	}

	status := client.CheckConnection(ctx)
	if status != tor.ProxyStatusOK {
		_ = embeddedTor.Stop() //nolint:errcheck // best effort cleanup
		return nil, nil, fmt.Errorf("embedded Tor proxy check failed: %w", status.Err())
	}

	return client, embeddedTor, nil
}

// newProgressFunc returns a progress printer when w is a terminal, nil otherwise.
func newProgressFunc(w io.Writer) profiler.ProgressFunc {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) { //nolint:gosec // file descriptors fit in int
		return nil
	}
	return func(done, total int) {
		if done == total {
			fmt.Fprint(f, "\r\033[K")
			return
		}
		fmt.Fprintf(f, "\r[%d/%d] requests completed", done, total)
	}
}

// runSingle sends one request. The response is printed on success and the
// status code otherwise; a connection failure is returned as an error.
func runSingle(ctx context.Context, w io.Writer, cfg *config.Config, prof *profiler.Profiler) error {
	resp, outcome, err := prof.Single(ctx, cfg.Target)
	if err != nil {
		return err
	}

	if outcome.Kind == model.OutcomeSuccess {
		_, err = fmt.Fprintln(w, strings.ToValidUTF8(string(resp.Raw), "\uFFFD"))
		return err
	}
	_, err = fmt.Fprintf(w, "Request to [%s] returned error code: [%d]\n", cfg.RawURL, outcome.StatusCode)
	return err
}

// runProfile sends cfg.Count requests, prints the report and optionally
// stores it in the history database.
func runProfile(ctx context.Context, out, errOut io.Writer, cfg *config.Config, prof *profiler.Profiler, logger *slog.Logger) error {
	result, err := prof.Profile(ctx, cfg.Target, cfg.Count)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("profiling cancelled: %w", err)
		}
		return fmt.Errorf("profiling failed: %w", err)
	}

	if err := outputReport(out, cfg, result); err != nil {
		return err
	}

	if cfg.SaveToDB {
		return saveProfileReport(ctx, errOut, cfg.DBDir, result, logger)
	}
	return nil
}

// newReportWriter returns the writer for the format selected in cfg.
func newReportWriter(w io.Writer, cfg *config.Config) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(w, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(w)
	default:
		return report.NewSimpleWriter(w, report.WithVerbose(cfg.Verbose))
	}
}

// outputReport writes the profiling report in the requested format. When
// a report file is set the file receives that format and the terminal
// still gets the plain text summary.
func outputReport(out io.Writer, cfg *config.Config, result *model.ProfileReport) error {
	if cfg.ReportFile == "" {
		_, err := newReportWriter(out, cfg).Write(result)
		return err
	}

	// Create directories if they don't exist
	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	writer := report.NewMultiWriter(
		newReportWriter(f, cfg),
		report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose)),
	)
	if _, err := writer.Write(result); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// saveProfileReport stores result in the history database under dbDir.
func saveProfileReport(ctx context.Context, w io.Writer, dbDir string, result *model.ProfileReport, logger *slog.Logger) error {
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	id, err := db.SaveProfileReport(ctx, result)
	if err != nil {
		return fmt.Errorf("failed to save profiling run: %w", err)
	}

	logger.Info("profiling run saved to database", "id", id, "target", result.Target.URL())
	fmt.Fprintf(w, "Saved run #%d to %s\n", id, db.Path())
	return nil
}
