// Package model defines the core data structures used throughout reqprof.
//
// This package contains the following main types:
//   - CanonicalURL: A normalized {hostname, scheme, path} triple
//   - Response: The raw bytes and status code of a single request
//   - Outcome: The classified result of one request attempt
//   - ProfileReport: The aggregate of a profiling run
//   - Summary: Statistics derived from a finalized ProfileReport
//
// Models live in their own package because the profiler, report writers and
// history store all share them. Every type serializes to JSON for report
// output and database storage.
package model
