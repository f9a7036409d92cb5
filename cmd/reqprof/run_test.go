package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/reqprof/internal/config"
	"github.com/nao1215/reqprof/internal/log"
	"github.com/nao1215/reqprof/internal/model"
	"github.com/nao1215/reqprof/internal/report"
	"github.com/nao1215/reqprof/internal/target"
	"github.com/nao1215/reqprof/internal/tor"
	"github.com/nao1215/reqprof/internal/transport"
)

// redirectDialer connects to addr whatever address it is asked for.
type redirectDialer struct {
	addr string
	d    net.Dialer
}

func (r *redirectDialer) DialContext(ctx context.Context, network, _ string) (net.Conn, error) {
	return r.d.DialContext(ctx, network, r.addr)
}

// newTestServer serves "hello" on /ok, 404 on /missing and 503 on /busy.
func newTestServer(t *testing.T) *redirectDialer {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "hello")
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})
	mux.HandleFunc("/busy", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/agent", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "agent=%s", r.Header.Get("User-Agent"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &redirectDialer{addr: srv.Listener.Addr().String()}
}

// closedAddr returns an address nothing listens on.
func closedAddr(t *testing.T) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0") //nolint:noctx // test code
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	addr := listener.Addr().String()
	_ = listener.Close()
	return addr
}

// testConfig returns a validated config for rawURL.
func testConfig(t *testing.T, rawURL string, count int) *config.Config {
	t.Helper()

	cfg := config.NewConfig()
	cfg.RawURL = rawURL
	if count > 0 {
		cfg.Profile = true
		cfg.Count = count
	}
	cfg.Target = target.Normalize(cfg.EffectiveURL())
	cfg.DBDir = t.TempDir()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid test config: %v", err)
	}
	return cfg
}

func TestRunSingle(t *testing.T) {
	t.Parallel()

	dialer := newTestServer(t)

	tests := []struct {
		name       string
		url        string
		headers    map[string]string
		wantPrefix string
		wantBody   string
		wantExact  string
	}{
		{
			name:       "success prints raw response",
			url:        "example.com/ok",
			wantPrefix: "HTTP/1.1 200 OK\r\n",
			wantBody:   "hello",
		},
		{
			name:      "not found prints error code",
			url:       "example.com/missing",
			wantExact: "Request to [example.com/missing] returned error code: [404]\n",
		},
		{
			name:      "error message keeps the url as typed",
			url:       "http://example.com/busy",
			wantExact: "Request to [http://example.com/busy] returned error code: [503]\n",
		},
		{
			name:       "configured headers are sent",
			url:        "example.com/agent",
			headers:    map[string]string{"User-Agent": "reqprof-test"},
			wantPrefix: "HTTP/1.1 200 OK\r\n",
			wantBody:   "agent=reqprof-test",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := testConfig(t, tt.url, 0)
			for k, v := range tt.headers {
				cfg.Headers[k] = v
			}
			prof := newProfiler(cfg, dialer, nil, log.Discard())

			var buf bytes.Buffer
			if err := runSingle(context.Background(), &buf, cfg, prof); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got := buf.String()
			if tt.wantExact != "" && got != tt.wantExact {
				t.Errorf("expected %q, got %q", tt.wantExact, got)
			}
			if tt.wantPrefix != "" && !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("expected prefix %q, got %q", tt.wantPrefix, got)
			}
			if tt.wantBody != "" && !strings.HasSuffix(got, tt.wantBody+"\n") {
				t.Errorf("expected body %q at the end, got %q", tt.wantBody, got)
			}
		})
	}
}

func TestRunSingleConnectionFailure(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "example.com/ok", 0)
	prof := newProfiler(cfg, &redirectDialer{addr: closedAddr(t)}, nil, log.Discard())

	var buf bytes.Buffer
	err := runSingle(context.Background(), &buf, cfg, prof)
	if !errors.Is(err, transport.ErrConnect) {
		t.Fatalf("expected ErrConnect, got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestRunProfile(t *testing.T) {
	t.Parallel()

	dialer := newTestServer(t)

	tests := []struct {
		name        string
		url         string
		count       int
		concurrency int
		want        []string
	}{
		{
			name:  "all successful",
			url:   "example.com/ok",
			count: 3,
			want: []string{
				"Number of requests: 3\n",
				"The percentage of requests that succeeded: 100%\n",
				"No error occurred. Good!\n",
				"Distinct response bodies: 1\n",
			},
		},
		{
			name:        "all failed in parallel",
			url:         "example.com/missing",
			count:       4,
			concurrency: 2,
			want: []string{
				"Number of requests: 4\n",
				"No stats for the fastest time (failed requests do not count).\n",
				"The percentage of requests that succeeded: 0%\n",
				"Error code(s) occurred: [404]\n",
				"No stats for size in bytes of smallest response (failed requests do not count).\n",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := testConfig(t, tt.url, tt.count)
			if tt.concurrency > 0 {
				cfg.Concurrency = tt.concurrency
			}
			prof := newProfiler(cfg, dialer, nil, log.Discard())

			var out, errOut bytes.Buffer
			if err := runProfile(context.Background(), &out, &errOut, cfg, prof, log.Discard()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out.String(), want) {
					t.Errorf("expected output to contain %q, got:\n%s", want, out.String())
				}
			}
		})
	}
}

func TestRunProfileTransportErrors(t *testing.T) {
	t.Parallel()

	t.Run("recorded and run continues", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(t, "example.com/ok", 3)
		prof := newProfiler(cfg, &redirectDialer{addr: closedAddr(t)}, nil, log.Discard())

		var out bytes.Buffer
		if err := runProfile(context.Background(), &out, &bytes.Buffer{}, cfg, prof, log.Discard()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out.String(), "Transport error(s): 3\n") {
			t.Errorf("expected transport error count, got:\n%s", out.String())
		}
	})

	t.Run("fail fast aborts", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(t, "example.com/ok", 3)
		cfg.FailFast = true
		prof := newProfiler(cfg, &redirectDialer{addr: closedAddr(t)}, nil, log.Discard())

		var out bytes.Buffer
		err := runProfile(context.Background(), &out, &bytes.Buffer{}, cfg, prof, log.Discard())
		if !errors.Is(err, transport.ErrConnect) {
			t.Fatalf("expected ErrConnect, got %v", err)
		}
		if out.Len() != 0 {
			t.Errorf("expected no report, got %q", out.String())
		}
	})

	t.Run("cancelled run", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(t, "example.com/ok", 3)
		prof := newProfiler(cfg, newTestServer(t), nil, log.Discard())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := runProfile(ctx, &bytes.Buffer{}, &bytes.Buffer{}, cfg, prof, log.Discard())
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}

func TestRunProfileSavesToDatabase(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "example.com/ok", 2)
	cfg.SaveToDB = true
	prof := newProfiler(cfg, newTestServer(t), nil, log.Discard())

	var out, errOut bytes.Buffer
	if err := runProfile(context.Background(), &out, &errOut, cfg, prof, log.Discard()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(errOut.String(), "Saved run #1") {
		t.Errorf("expected save message, got %q", errOut.String())
	}

	output, err := runHistory(t, "--db-dir", cfg.DBDir)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(output, "Profiling runs (1)") || !strings.Contains(output, "http://example.com/ok") {
		t.Errorf("expected stored run in history, got:\n%s", output)
	}
}

func TestOutputReport(t *testing.T) {
	t.Parallel()

	result := model.NewProfileReport(model.CanonicalURL{Hostname: "example.com", IsSecure: true, Path: "/"}, 2)
	result.Add(model.NewSuccess(120, 10))
	result.Add(model.NewFailure(500))
	result.Finalize()

	tests := []struct {
		name      string
		json      bool
		markdown  bool
		toFile    bool
		checkMain func(t *testing.T, data []byte)
	}{
		{
			name: "text to stdout",
			checkMain: func(t *testing.T, data []byte) {
				t.Helper()
				if !strings.Contains(string(data), "Error code(s) occurred: [500]") {
					t.Errorf("unexpected text report:\n%s", data)
				}
			},
		},
		{
			name: "json to stdout",
			json: true,
			checkMain: func(t *testing.T, data []byte) {
				t.Helper()
				var doc report.JSONReport
				if err := json.Unmarshal(data, &doc); err != nil {
					t.Fatalf("invalid JSON: %v", err)
				}
				if doc.Target != "https://example.com/" || doc.Summary.Failed != 1 {
					t.Errorf("unexpected JSON report: %+v", doc)
				}
			},
		},
		{
			name:     "markdown to file",
			markdown: true,
			toFile:   true,
			checkMain: func(t *testing.T, data []byte) {
				t.Helper()
				if !strings.HasPrefix(string(data), "# reqprof Report") {
					t.Errorf("unexpected markdown report:\n%s", data)
				}
			},
		},
		{
			name:   "text to file",
			toFile: true,
			checkMain: func(t *testing.T, data []byte) {
				t.Helper()
				if !strings.Contains(string(data), "Number of requests: 2") {
					t.Errorf("unexpected text report:\n%s", data)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.NewConfig()
			cfg.JSONReport = tt.json
			cfg.MarkdownReport = tt.markdown
			if tt.toFile {
				cfg.ReportFile = filepath.Join(t.TempDir(), "reports", "out")
			}

			var out bytes.Buffer
			if err := outputReport(&out, cfg, result); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if !tt.toFile {
				tt.checkMain(t, out.Bytes())
				return
			}

			data, err := os.ReadFile(cfg.ReportFile)
			if err != nil {
				t.Fatalf("failed to read report file: %v", err)
			}
			tt.checkMain(t, data)

			// The terminal still gets the text summary
			if !strings.Contains(out.String(), "Number of requests: 2") {
				t.Errorf("expected text summary on stdout, got %q", out.String())
			}
		})
	}
}

func TestNewReportWriter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		json     bool
		markdown bool
		want     string
	}{
		{name: "default", want: "*report.SimpleWriter"},
		{name: "json", json: true, want: "*report.JSONWriter"},
		{name: "markdown", markdown: true, want: "*report.MarkdownWriter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.NewConfig()
			cfg.JSONReport = tt.json
			cfg.MarkdownReport = tt.markdown
			if got := fmt.Sprintf("%T", newReportWriter(&bytes.Buffer{}, cfg)); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestNewDialer(t *testing.T) {
	t.Parallel()

	t.Run("direct connection", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		dialer, cleanup, err := newDialer(context.Background(), &bytes.Buffer{}, cfg, log.Discard())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer cleanup()
		if dialer != nil {
			t.Errorf("expected nil dialer, got %T", dialer)
		}
	})

	t.Run("invalid external tor address", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.ExternalTorAddress = "not-an-address"
		_, cleanup, err := newDialer(context.Background(), &bytes.Buffer{}, cfg, log.Discard())
		defer cleanup()
		if !errors.Is(err, tor.ErrInvalidProxyAddress) {
			t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
		}
	})

	t.Run("unreachable external tor", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.ExternalTorAddress = closedAddr(t)
		_, cleanup, err := newDialer(context.Background(), &bytes.Buffer{}, cfg, log.Discard())
		defer cleanup()
		if !errors.Is(err, tor.ErrProxyCannotConnect) {
			t.Errorf("expected ErrProxyCannotConnect, got %v", err)
		}
	})
}

func TestNewProgressFunc(t *testing.T) {
	t.Parallel()

	if progress := newProgressFunc(&bytes.Buffer{}); progress != nil {
		t.Error("expected no progress output for a non-terminal writer")
	}
}

func TestNewProfilerOptions(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "example.com/ok", 5)
	cfg.Concurrency = 3

	var calls []int
	prof := newProfiler(cfg, newTestServer(t), func(done, _ int) {
		calls = append(calls, done)
	}, log.Discard())

	result, err := prof.Profile(context.Background(), cfg.Target, cfg.Count)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Succeeded() != 5 {
		t.Errorf("expected 5 successes, got %d", result.Succeeded())
	}
	if len(calls) != 5 || calls[len(calls)-1] != 5 {
		t.Errorf("expected progress up to 5, got %v", calls)
	}
}

func TestSetupLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		verbose     bool
		wantVisible bool
	}{
		{name: "quiet hides debug", verbose: false, wantVisible: false},
		{name: "verbose shows debug", verbose: true, wantVisible: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := setupLogger(&buf, tt.verbose)
			logger.Debug("probe", "authorization", "Bearer secret")

			if got := strings.Contains(buf.String(), "probe"); got != tt.wantVisible {
				t.Errorf("expected visible=%v, got output %q", tt.wantVisible, buf.String())
			}
			if strings.Contains(buf.String(), "secret") {
				t.Errorf("expected authorization to be masked, got %q", buf.String())
			}
		})
	}
}
