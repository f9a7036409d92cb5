package target

import (
	"log/slog"
	"strings"

	"github.com/nao1215/reqprof/internal/model"
)

// Scheme prefixes recognized by Normalize. Matching is case-sensitive.
const (
	httpPrefix     = "http"
	insecureSuffix = "://"
	secureSuffix   = "s://"
)

// Normalize converts raw input into its canonical form.
//
// A leading "http://" selects an insecure URL and "https://" a secure one.
// Anything else, including inputs such as "httpbin.org/get" that merely
// start with "http", is schemeless and insecure. The remainder is split at
// its first '/': the prefix is the hostname and the rest (inclusive) is the
// path, which defaults to "/".
func Normalize(raw string) model.CanonicalURL {
	rest, secure := splitScheme(raw)
	hostname, path := splitHostPath(rest)
	return model.CanonicalURL{
		Hostname: hostname,
		IsSecure: secure,
		Path:     path,
	}
}

// NormalizeWithLogger behaves like Normalize and reports the parsed
// structure at debug level.
func NormalizeWithLogger(raw string, logger *slog.Logger) model.CanonicalURL {
	u := Normalize(raw)
	if logger != nil {
		rest, _ := splitScheme(raw)
		logger.Debug("[VERBOSE] URL ["+rest+"] parsed to: ["+u.String()+"]",
			"hostname", u.Hostname,
			"secure", u.IsSecure,
			"path", u.Path,
		)
	}
	return u
}

// splitScheme strips a recognized scheme prefix and reports whether it was https.
func splitScheme(raw string) (rest string, secure bool) {
	if !strings.HasPrefix(raw, httpPrefix) {
		return raw, false
	}
	after := raw[len(httpPrefix):]
	switch {
	case strings.HasPrefix(after, insecureSuffix):
		return after[len(insecureSuffix):], false
	case strings.HasPrefix(after, secureSuffix):
		return after[len(secureSuffix):], true
	default:
		return raw, false
	}
}

// splitHostPath splits at the first '/'.
func splitHostPath(rest string) (hostname, path string) {
	idx := strings.IndexByte(rest, '/')
	if idx < 0 {
		return rest, "/"
	}
	return rest[:idx], rest[idx:]
}
