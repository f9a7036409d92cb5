// Package transport performs the single raw HTTP/1.1 GET that everything in
// reqprof is built on.
//
// A Requester dials hostname:port itself, wraps the connection in TLS when
// the URL is secure, writes a minimal request with "Connection: close" and
// reads until the peer closes the stream. Only the status line is parsed.
// There is no connection reuse and no redirect handling.
package transport
