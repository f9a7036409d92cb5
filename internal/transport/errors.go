package transport

import "errors"

var (
	// ErrConnect is returned when the TCP connection or TLS handshake fails.
	ErrConnect = errors.New("failed to connect")

	// ErrMalformedResponse is returned when the response does not start
	// with a valid HTTP status line.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrResponseTooLarge is returned when the response exceeds the
	// configured maximum size.
	ErrResponseTooLarge = errors.New("response exceeds maximum size")

	// ErrTimeout is returned when the request does not finish within the
	// per-request timeout.
	ErrTimeout = errors.New("request timed out")
)
