package main

import (
	"fmt"
	"os"

	"github.com/nao1215/reqprof/internal/config"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for reqprof.
// Running it without a subcommand sends requests to the given URL.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reqprof",
		Short: "Minimal HTTP(S) diagnostic client and request profiler",
		Long: `reqprof sends a raw HTTP/1.1 GET request to a URL and prints the response.

With --profile N it repeats the request N times and reports the fastest,
slowest and mean latency, the share of successful requests, the error
codes seen, and the smallest and largest response.

URLs may be given as http://host/path, https://host/path or host/path.
A URL without a scheme is requested over plain HTTP.

Examples:
  # Print the response of a single request
  reqprof --url https://example.com/

  # Profile 20 requests
  reqprof --url https://httpbin.org/get --profile 20

  # Profile the default target with 4 requests in flight
  reqprof -n 50 -c 4

  # Write a Markdown report and keep the run in the history database
  reqprof -u example.com -n 10 --markdown -o report.md --save`,
		Version:       getVersion(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runRootCmd,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Target flags
	cmd.Flags().StringP("url", "u", "",
		"The URL to test: http(s)://host/path or host/path")
	cmd.Flags().UintP("profile", "n", 0,
		"Number of requests; selects profiling mode")

	// Request flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for a single request")
	cmd.Flags().IntP("concurrency", "c", config.DefaultConcurrency,
		"Number of requests in flight while profiling")
	cmd.Flags().Float64P("rate", "r", 0,
		"Maximum requests started per second (0 for no limit)")
	cmd.Flags().Bool("fail-fast", false,
		"Abort profiling at the first connection error")
	cmd.Flags().StringArrayP("header", "H", nil,
		`Extra request header "Name: value" (repeatable)`)
	cmd.Flags().Int64("max-response-size", config.DefaultMaxResponseSize,
		"Maximum number of response bytes read per request")

	// Output flags
	cmd.Flags().BoolP("json", "j", false,
		"Output the profiling report in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output the profiling report in Markdown format")
	cmd.Flags().StringP("output", "o", "",
		"Write the profiling report to a file")
	cmd.Flags().String("config", "",
		"Path to the configuration file (default: .reqprof)")
	cmd.Flags().Bool("save", false,
		"Store the profiling run in the history database")

	// Tor flags
	cmd.Flags().Bool("tor", false,
		"Route requests through an embedded Tor daemon")
	cmd.Flags().StringP("external-tor", "e", "",
		"Route requests through an existing Tor SOCKS proxy, e.g. "+config.DefaultTorProxyAddress)
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor daemon startup")

	// Add subcommands
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
