// Package tor routes reqprof's raw connections through the Tor network.
//
// A Client wraps a SOCKS5 dialer (golang.org/x/net/proxy) pointed at a Tor
// proxy and satisfies transport.Dialer, so profiling through Tor only changes
// which dialer the transport is built with. EmbeddedTor starts a private Tor
// daemon through tornago for users without a running Tor service.
//
// Hostnames ending in ".onion" are checked with ValidateOnionHost before
// dialing so that typos fail fast instead of timing out inside Tor.
package tor
