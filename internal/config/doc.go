// Package config holds reqprof's runtime configuration.
//
// A Config starts from NewConfig defaults, is filled from command-line flags,
// and may be enriched from a .reqprof YAML file with per-hostname settings.
// Validate reports usage errors as sentinel errors before any request is made.
package config
