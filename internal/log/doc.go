// Package log builds reqprof's slog loggers.
//
// Every logger returned by this package wraps its output handler in a
// SecureHandler. The handler masks attributes whose key looks like a
// credential (Authorization, Cookie, X-Api-Key, anything containing
// "token" or "secret") and values that look like bearer tokens, basic
// credentials or JWTs. Custom request headers supplied with --header are
// logged through HeadersAttr, so a verbose run never prints them in clear.
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("sending request", log.HeadersAttr(headers))
package log
