package profiler

import "errors"

// ErrInvalidCount is returned by Profile when asked for fewer than one request.
var ErrInvalidCount = errors.New("number of requests must be at least 1")
