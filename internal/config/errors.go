package config

import "errors"

// Usage errors returned by Config.Validate and ParseHeader.
var (
	// ErrNoMode is returned when neither a URL nor a request count is given.
	ErrNoMode = errors.New("nothing to do: specify --url, --profile, or both")

	// ErrInvalidCount is returned when profiling is requested with a count of zero.
	ErrInvalidCount = errors.New("invalid number of profile requests: must be at least 1")

	// ErrEmptyHost is returned when the URL has no hostname.
	ErrEmptyHost = errors.New("invalid URL: hostname is empty")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidConcurrency is returned when concurrency is below one.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be at least 1")

	// ErrInvalidRate is returned when the rate limit is negative.
	ErrInvalidRate = errors.New("invalid rate: must be non-negative")

	// ErrInvalidMaxResponseSize is returned when the response size limit is not positive.
	ErrInvalidMaxResponseSize = errors.New("invalid max response size: must be positive")

	// ErrConflictingReportFormats is returned when --json and --markdown are both set.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrConflictingTorModes is returned when --tor and --external-tor are both set.
	ErrConflictingTorModes = errors.New("conflicting Tor options: --tor and --external-tor cannot be used together")

	// ErrInvalidHeader is returned for a header that is not "Name: value" or
	// that contains line breaks.
	ErrInvalidHeader = errors.New(`invalid header: expected "Name: value"`)
)
