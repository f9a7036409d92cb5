// Package profiler runs requests against a single target and aggregates
// their outcomes.
//
// Single issues one request. Profile issues exactly n requests, times each
// one and folds every outcome into a model.ProfileReport. Non-200 responses
// and transport errors are recorded, never retried, and do not stop the run
// unless fail-fast is enabled.
//
// Requests run sequentially by default. WithConcurrency allows several in
// flight through an errgroup limit, and WithRateLimit spaces request starts
// with a token bucket.
package profiler
