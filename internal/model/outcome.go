package model

import (
	"time"

	"github.com/twmb/murmur3"
)

// StatusOK is the only status code treated as a successful request.
const StatusOK uint16 = 200

// OutcomeKind identifies which variant an Outcome holds.
type OutcomeKind int

const (
	// OutcomeSuccess is a 200 response.
	OutcomeSuccess OutcomeKind = iota

	// OutcomeFailure is any non-200 response.
	OutcomeFailure

	// OutcomeTransportError means no usable response was received:
	// the connection failed, timed out, or the status line was malformed.
	OutcomeTransportError
)

// String returns the lowercase name of the kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeTransportError:
		return "transport error"
	default:
		return "unknown"
	}
}

// Response is the raw result of a single GET request.
type Response struct {
	// StatusCode is the numeric code from the status line.
	StatusCode uint16

	// Raw holds every byte read until the peer closed the stream,
	// including the status line and headers.
	Raw []byte
}

// Outcome converts the response into a classified Outcome.
// Only status 200 counts as success.
func (r *Response) Outcome(elapsed time.Duration) Outcome {
	if r.StatusCode != StatusOK {
		return NewFailure(r.StatusCode)
	}
	return Outcome{
		Kind:          OutcomeSuccess,
		ByteLength:    uint64(len(r.Raw)),
		ElapsedMillis: uint64(elapsed.Milliseconds()),
		BodyHash:      murmur3.Sum32(r.Raw),
	}
}

// Outcome is the classified result of one request attempt.
// Which fields are meaningful depends on Kind.
type Outcome struct {
	Kind OutcomeKind `json:"kind"`

	// ByteLength is the full response length. Success only.
	ByteLength uint64 `json:"byte_length,omitempty"`

	// ElapsedMillis is the wall time of the attempt. Success only.
	ElapsedMillis uint64 `json:"elapsed_ms,omitempty"`

	// BodyHash is the murmur3 hash of the response bytes. Success only.
	BodyHash uint32 `json:"body_hash,omitempty"`

	// StatusCode is the non-200 status. Failure only.
	StatusCode uint16 `json:"status_code,omitempty"`

	// Error describes the transport problem. Transport errors only.
	Error string `json:"error,omitempty"`
}

// NewSuccess creates a success outcome without a body hash.
func NewSuccess(byteLength, elapsedMillis uint64) Outcome {
	return Outcome{Kind: OutcomeSuccess, ByteLength: byteLength, ElapsedMillis: elapsedMillis}
}

// NewFailure creates a failure outcome for the given status code.
func NewFailure(statusCode uint16) Outcome {
	return Outcome{Kind: OutcomeFailure, StatusCode: statusCode}
}

// NewTransportError creates an outcome for an attempt that got no usable response.
func NewTransportError(err error) Outcome {
	o := Outcome{Kind: OutcomeTransportError}
	if err != nil {
		o.Error = err.Error()
	}
	return o
}
