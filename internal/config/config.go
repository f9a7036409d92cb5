package config

import (
	"fmt"
	"maps"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/reqprof/internal/model"
)

const (
	// AppName is used for XDG directory names.
	AppName = "reqprof"

	// DefaultProfileURL is profiled when --profile is given without --url.
	DefaultProfileURL = "https://cf2020.jerryc05.workers.dev"

	// DefaultTimeout bounds a single request.
	DefaultTimeout = 30 * time.Second

	// DefaultConcurrency keeps profiling strictly sequential.
	DefaultConcurrency = 1

	// DefaultMaxResponseSize is 100 MiB.
	DefaultMaxResponseSize int64 = 100 << 20

	// DefaultTorProxyAddress is the SOCKS port of a system Tor service.
	DefaultTorProxyAddress = "127.0.0.1:9050"

	// DefaultTorStartupTimeout bounds embedded Tor bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute
)

// Mode selects what the root command does.
type Mode int

const (
	// ModeSingle sends one request and prints the response.
	ModeSingle Mode = iota

	// ModeProfile sends Count requests and prints statistics.
	ModeProfile
)

// Config holds all settings for one reqprof invocation.
type Config struct {
	// RawURL is the URL as typed by the user.
	RawURL string

	// Profile is set when --profile was given.
	Profile bool

	// Count is the number of requests in profiling mode.
	Count int

	// Target is RawURL after normalization. See EffectiveURL.
	Target model.CanonicalURL

	Verbose bool

	Timeout     time.Duration
	Concurrency int

	// RateLimit is the maximum number of request starts per second; 0 disables it.
	RateLimit float64

	// FailFast aborts a profiling run at the first transport error.
	FailFast bool

	// Headers are sent with every request after Host.
	Headers map[string]string

	MaxResponseSize int64

	JSONReport     bool
	MarkdownReport bool

	// ReportFile receives a copy of the report when set.
	ReportFile string

	ConfigFilePath string

	// SaveToDB stores profiling runs in the history database under DBDir.
	SaveToDB bool
	DBDir    string

	// UseTor starts an embedded Tor daemon.
	UseTor bool

	// ExternalTorAddress routes through an already running Tor SOCKS proxy.
	ExternalTorAddress string

	TorStartupTimeout time.Duration
}

// NewConfig returns a Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:           DefaultTimeout,
		Concurrency:       DefaultConcurrency,
		Headers:           make(map[string]string),
		MaxResponseSize:   DefaultMaxResponseSize,
		DBDir:             XDGDataDir(),
		TorStartupTimeout: DefaultTorStartupTimeout,
	}
}

// XDGDataDir is where the history database lives.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir is searched for a config file after the working and home directories.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Mode reports whether this invocation profiles or sends a single request.
func (c *Config) Mode() Mode {
	if c.Profile {
		return ModeProfile
	}
	return ModeSingle
}

// EffectiveURL returns the URL to normalize: RawURL, or DefaultProfileURL
// when profiling without a URL.
func (c *Config) EffectiveURL() string {
	if c.RawURL == "" && c.Profile {
		return DefaultProfileURL
	}
	return c.RawURL
}

// UsesTor reports whether requests are routed through Tor.
func (c *Config) UsesTor() bool {
	return c.UseTor || c.ExternalTorAddress != ""
}

// Validate returns the first usage error in c. Target must already be set.
func (c *Config) Validate() error {
	if c.RawURL == "" && !c.Profile {
		return ErrNoMode
	}
	if c.Profile && c.Count < 1 {
		return ErrInvalidCount
	}
	if c.Target.Hostname == "" {
		return ErrEmptyHost
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Concurrency < 1 {
		return ErrInvalidConcurrency
	}
	if c.RateLimit < 0 {
		return ErrInvalidRate
	}
	if c.MaxResponseSize <= 0 {
		return ErrInvalidMaxResponseSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.UseTor && c.ExternalTorAddress != "" {
		return ErrConflictingTorModes
	}
	for name, value := range c.Headers {
		if err := validateHeader(name, value); err != nil {
			return err
		}
	}
	return nil
}

// Explicit lists settings given on the command line; they take precedence
// over the config file.
type Explicit struct {
	Timeout     bool
	Concurrency bool
}

// ApplyFile merges the file settings for c.Target.Hostname into c.
// Headers from the file are added unless the command line set the same name.
func (c *Config) ApplyFile(f *File, explicit Explicit) {
	if f == nil {
		return
	}
	tc := f.TargetConfig(c.Target.Hostname)

	if tc.Timeout > 0 && !explicit.Timeout {
		c.Timeout = tc.Timeout
	}
	if tc.Concurrency > 0 && !explicit.Concurrency {
		c.Concurrency = tc.Concurrency
	}

	merged := maps.Clone(tc.Headers)
	if merged == nil {
		merged = make(map[string]string)
	}
	maps.Copy(merged, c.Headers)
	c.Headers = merged
}

// ParseHeader splits a "Name: value" flag argument.
func ParseHeader(s string) (string, string, error) {
	name, value, found := strings.Cut(s, ":")
	if !found {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidHeader, s)
	}
	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)
	if err := validateHeader(name, value); err != nil {
		return "", "", err
	}
	return name, value, nil
}

func validateHeader(name, value string) error {
	if name == "" || strings.ContainsAny(name, " \t:\r\n") {
		return fmt.Errorf("%w: bad name %q", ErrInvalidHeader, name)
	}
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("%w: value of %s contains a line break", ErrInvalidHeader, name)
	}
	return nil
}
