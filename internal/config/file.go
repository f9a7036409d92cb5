package config

import (
	"time"
)

// TargetConfig holds per-hostname request settings.
type TargetConfig struct {
	// Headers are added to every request.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Timeout overrides the per-request timeout, e.g. "10s".
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Concurrency overrides how many requests may be in flight.
	Concurrency int `yaml:"concurrency,omitempty"`
}

// File is the structure of a .reqprof configuration file.
type File struct {
	// Defaults apply to every target.
	Defaults TargetConfig `yaml:"defaults,omitempty"`

	// Targets maps a hostname, exactly as it appears in the URL, to its settings.
	Targets map[string]TargetConfig `yaml:"targets,omitempty"`
}

// TargetConfig returns the defaults overlaid with the entry for hostname.
// Header maps are merged with the target's values winning.
func (f *File) TargetConfig(hostname string) TargetConfig {
	result := TargetConfig{
		Timeout:     f.Defaults.Timeout,
		Concurrency: f.Defaults.Concurrency,
	}
	if len(f.Defaults.Headers) > 0 {
		result.Headers = make(map[string]string, len(f.Defaults.Headers))
		for k, v := range f.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	tc, ok := f.Targets[hostname]
	if !ok {
		return result
	}
	if tc.Timeout != 0 {
		result.Timeout = tc.Timeout
	}
	if tc.Concurrency != 0 {
		result.Concurrency = tc.Concurrency
	}
	if len(tc.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(tc.Headers))
		}
		for k, v := range tc.Headers {
			result.Headers[k] = v
		}
	}
	return result
}
