package model

import (
	"maps"
	"slices"
)

// Summary holds the statistics derived from a ProfileReport.
// Optional statistics are nil when no attempt succeeded.
type Summary struct {
	TotalRequests   int `json:"total_requests"`
	Succeeded       int `json:"succeeded"`
	Failed          int `json:"failed"`
	TransportErrors int `json:"transport_errors"`

	FastestMillis *uint64  `json:"fastest_ms,omitempty"`
	SlowestMillis *uint64  `json:"slowest_ms,omitempty"`
	MeanMillis    *float64 `json:"mean_ms,omitempty"`
	MedianMillis  *uint64  `json:"median_ms,omitempty"`

	// SuccessRate is the percentage of TotalRequests that succeeded.
	SuccessRate float64 `json:"success_rate"`

	// ErrorCodes lists the distinct non-200 codes in ascending order.
	ErrorCodes []uint16 `json:"error_codes"`

	MinResponseBytes *uint64 `json:"min_response_bytes,omitempty"`
	MaxResponseBytes *uint64 `json:"max_response_bytes,omitempty"`

	DistinctBodies int `json:"distinct_bodies"`
}

// NewSummary computes statistics over r without modifying it.
//
// The median is the element at index len/2 of the sorted latencies, which
// is the upper median for even counts.
func NewSummary(r *ProfileReport) Summary {
	s := Summary{
		TotalRequests:    r.TotalRequests,
		Succeeded:        r.Succeeded(),
		Failed:           r.Failed(),
		TransportErrors:  r.TransportErrors,
		ErrorCodes:       slices.Sorted(maps.Keys(r.ErrorCodes)),
		MinResponseBytes: r.MinResponseBytes,
		MaxResponseBytes: r.MaxResponseBytes,
		DistinctBodies:   r.DistinctBodies,
	}
	if s.ErrorCodes == nil {
		s.ErrorCodes = []uint16{}
	}

	if r.TotalRequests > 0 {
		s.SuccessRate = float64(s.Succeeded) / float64(r.TotalRequests) * 100
	}

	if len(r.Latencies) == 0 {
		return s
	}

	sorted := slices.Clone(r.Latencies)
	slices.Sort(sorted)

	var sum uint64
	for _, ms := range sorted {
		sum += ms
	}
	fastest := sorted[0]
	slowest := sorted[len(sorted)-1]
	median := sorted[len(sorted)/2]
	mean := float64(sum) / float64(len(sorted))

	s.FastestMillis = &fastest
	s.SlowestMillis = &slowest
	s.MedianMillis = &median
	s.MeanMillis = &mean

	return s
}

// HasLatencyStats reports whether at least one attempt succeeded.
func (s Summary) HasLatencyStats() bool {
	return s.FastestMillis != nil
}

// HasErrors reports whether any attempt returned a non-200 status.
func (s Summary) HasErrors() bool {
	return len(s.ErrorCodes) > 0
}
