package model

import (
	"slices"
	"time"
)

// maxTransportMessages bounds how many distinct transport error messages
// a report keeps. The count in TransportErrors is never capped.
const maxTransportMessages = 10

// ProfileReport aggregates the outcomes of a profiling run.
// Outcomes are folded in one at a time with Add; individual outcomes are
// not retained. Call Finalize once all outcomes are collected.
//
// ProfileReport is not safe for concurrent use. The profiler serializes
// calls to Add.
type ProfileReport struct {
	// Target is the URL that was profiled.
	Target CanonicalURL `json:"target"`

	// TotalRequests is the number of attempts the run was asked to make.
	TotalRequests int `json:"total_requests"`

	// Latencies holds the elapsed milliseconds of successful attempts.
	// After Finalize it is sorted ascending.
	Latencies []uint64 `json:"latencies_ms"`

	// ErrorCodes maps each distinct non-200 status code to the number of
	// attempts that returned it.
	ErrorCodes map[uint16]int `json:"error_codes"`

	// MinResponseBytes is the smallest successful response, nil if none.
	MinResponseBytes *uint64 `json:"min_response_bytes,omitempty"`

	// MaxResponseBytes is the largest successful response, nil if none.
	MaxResponseBytes *uint64 `json:"max_response_bytes,omitempty"`

	// TransportErrors counts attempts that produced no usable response.
	TransportErrors int `json:"transport_errors"`

	// TransportErrorMessages holds up to maxTransportMessages distinct
	// transport error messages in the order they were first seen.
	TransportErrorMessages []string `json:"transport_error_messages,omitempty"`

	// DistinctBodies is the number of distinct response bodies among
	// successful attempts, compared by murmur3 hash.
	DistinctBodies int `json:"distinct_bodies"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// Duration is the wall time of the whole run.
	Duration time.Duration `json:"duration"`

	bodyHashes map[uint32]struct{}
	finalized  bool
}

// maxPreallocatedLatencies caps the latency slice capacity reserved up front.
const maxPreallocatedLatencies = 1024

// NewProfileReport creates an empty report for n attempts against target.
func NewProfileReport(target CanonicalURL, n int) *ProfileReport {
	return &ProfileReport{
		Target:        target,
		TotalRequests: n,
		Latencies:     make([]uint64, 0, max(0, min(n, maxPreallocatedLatencies))),
		ErrorCodes:    make(map[uint16]int),
		StartedAt:     time.Now(),
		bodyHashes:    make(map[uint32]struct{}),
	}
}

// Add folds a single outcome into the report.
// Failures and transport errors never touch latency or size statistics.
func (r *ProfileReport) Add(o Outcome) {
	switch o.Kind {
	case OutcomeSuccess:
		r.Latencies = append(r.Latencies, o.ElapsedMillis)
		r.MinResponseBytes = minOf(r.MinResponseBytes, o.ByteLength)
		r.MaxResponseBytes = maxOf(r.MaxResponseBytes, o.ByteLength)
		if r.bodyHashes == nil {
			r.bodyHashes = make(map[uint32]struct{})
		}
		if _, seen := r.bodyHashes[o.BodyHash]; !seen {
			r.bodyHashes[o.BodyHash] = struct{}{}
			r.DistinctBodies++
		}
	case OutcomeFailure:
		if r.ErrorCodes == nil {
			r.ErrorCodes = make(map[uint16]int)
		}
		r.ErrorCodes[o.StatusCode]++
	case OutcomeTransportError:
		r.TransportErrors++
		if o.Error != "" && len(r.TransportErrorMessages) < maxTransportMessages &&
			!slices.Contains(r.TransportErrorMessages, o.Error) {
			r.TransportErrorMessages = append(r.TransportErrorMessages, o.Error)
		}
	}
	r.finalized = false
}

// Finalize sorts the latency sequence so that it is percentile-ready.
// It records the run duration the first time it is called.
func (r *ProfileReport) Finalize() {
	if r.finalized {
		return
	}
	slices.Sort(r.Latencies)
	if r.Duration == 0 && !r.StartedAt.IsZero() {
		r.Duration = time.Since(r.StartedAt)
	}
	r.finalized = true
}

// Restore marks a decoded report as finalized. Unlike Finalize it keeps the
// stored Duration.
func (r *ProfileReport) Restore() {
	slices.Sort(r.Latencies)
	r.finalized = true
}

// Succeeded returns the number of successful attempts.
func (r *ProfileReport) Succeeded() int {
	return len(r.Latencies)
}

// Failed returns the number of attempts with a non-200 status.
func (r *ProfileReport) Failed() int {
	total := 0
	for _, count := range r.ErrorCodes {
		total += count
	}
	return total
}

// Recorded returns the number of outcomes folded so far.
// For a completed run this equals TotalRequests.
func (r *ProfileReport) Recorded() int {
	return r.Succeeded() + r.Failed() + r.TransportErrors
}

// minOf returns a pointer to the smaller of *current and v.
func minOf(current *uint64, v uint64) *uint64 {
	if current != nil && *current <= v {
		return current
	}
	return &v
}

// maxOf returns a pointer to the larger of *current and v.
func maxOf(current *uint64, v uint64) *uint64 {
	if current != nil && *current >= v {
		return current
	}
	return &v
}
