package tor

import (
	"context"
	"fmt"
	"time"

	"github.com/nao1215/tornago"
)

// defaultStartupTimeout bounds Tor bootstrap when --tor-timeout is not set.
const defaultStartupTimeout = 3 * time.Minute

// EmbeddedTor runs a private Tor daemon behind --tor. Every request of a
// single fetch or profiling run is dialed through its SOCKS5 port, and the
// daemon is stopped when the run ends. Bootstrap time is not part of any
// measured latency.
type EmbeddedTor struct {
	process        *tornago.TorProcess
	socksAddr      string
	startupTimeout time.Duration
}

// EmbeddedTorOption configures an EmbeddedTor.
type EmbeddedTorOption func(*EmbeddedTor)

// WithStartupTimeout sets the bootstrap limit. Non-positive values keep the default.
func WithStartupTimeout(timeout time.Duration) EmbeddedTorOption {
	return func(e *EmbeddedTor) {
		if timeout > 0 {
			e.startupTimeout = timeout
		}
	}
}

// NewEmbeddedTor returns a stopped daemon. Call Start before the first request.
func NewEmbeddedTor(opts ...EmbeddedTorOption) *EmbeddedTor {
	e := &EmbeddedTor{startupTimeout: defaultStartupTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start launches the daemon on OS-assigned SOCKS and control ports and
// blocks until it has bootstrapped. If ctx is cancelled meanwhile, for
// example by SIGINT, the daemon is stopped and ctx.Err is returned.
func (e *EmbeddedTor) Start(ctx context.Context) error {
	launchCfg, err := tornago.NewTorLaunchConfig(
		tornago.WithTorSocksAddr(":0"),
		tornago.WithTorControlAddr(":0"),
		tornago.WithTorStartupTimeout(e.startupTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create Tor launch config: %w", err)
	}

	process, err := tornago.StartTorDaemon(launchCfg)
	if err != nil {
		return fmt.Errorf("failed to start embedded Tor daemon: %w", err)
	}

	if err := ctx.Err(); err != nil {
		_ = process.Stop() //nolint:errcheck // best effort cleanup
		return err
	}

	e.process = process
	e.socksAddr = process.SocksAddr()
	return nil
}

// Stop shuts the daemon down after the run. Calling it twice is harmless.
func (e *EmbeddedTor) Stop() error {
	if e.process == nil {
		return nil
	}
	err := e.process.Stop()
	e.process = nil
	e.socksAddr = ""
	return err
}

// SocksAddr returns the SOCKS5 address requests are dialed through, or ""
// when the daemon is not running.
func (e *EmbeddedTor) SocksAddr() string {
	return e.socksAddr
}

// IsRunning reports whether the daemon has been started and not stopped.
func (e *EmbeddedTor) IsRunning() bool {
	return e.process != nil
}

// NewClient returns the transport dialer for requests routed through the
// daemon.
func (e *EmbeddedTor) NewClient() (*Client, error) {
	if !e.IsRunning() {
		return nil, ErrDaemonNotRunning
	}
	return NewClient(e.socksAddr)
}
