package tor

import "errors"

// Tor connectivity errors.
var (
	// ErrProxyNotTor is returned when the configured proxy responds but does
	// not behave like a Tor SOCKS5 proxy.
	ErrProxyNotTor = errors.New("proxy is not a Tor SOCKS5 proxy")

	// ErrProxyCannotConnect is returned when no TCP connection to the proxy
	// can be established.
	ErrProxyCannotConnect = errors.New("cannot connect to Tor proxy")

	// ErrProxyTimeout is returned when the proxy check times out.
	ErrProxyTimeout = errors.New("timeout connecting to Tor proxy")

	// ErrInvalidProxyAddress is returned when the proxy address is not host:port.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrDaemonNotRunning is returned when a client is requested from an
	// embedded daemon that has not been started.
	ErrDaemonNotRunning = errors.New("embedded Tor daemon is not running")
)

// Onion address errors.
var (
	// ErrInvalidOnionAddress is returned for a malformed or mis-checksummed
	// .onion hostname.
	ErrInvalidOnionAddress = errors.New("invalid onion address")

	// ErrV2AddressDeprecated is returned for 16-character v2 addresses,
	// which stopped working in October 2021.
	ErrV2AddressDeprecated = errors.New("v2 onion addresses are deprecated and no longer functional")
)

// ProxyStatus is the result of checking a Tor proxy.
type ProxyStatus int

const (
	// ProxyStatusOK indicates a working SOCKS5 proxy.
	ProxyStatusOK ProxyStatus = iota

	// ProxyStatusWrongType indicates the peer did not speak SOCKS5 without auth.
	ProxyStatusWrongType

	// ProxyStatusCannotConnect indicates the proxy could not be reached.
	ProxyStatusCannotConnect

	// ProxyStatusTimeout indicates the check timed out.
	ProxyStatusTimeout
)

// String returns a human-readable description of the proxy status.
func (s ProxyStatus) String() string {
	switch s {
	case ProxyStatusOK:
		return "OK"
	case ProxyStatusWrongType:
		return "wrong type (not Tor)"
	case ProxyStatusCannotConnect:
		return "cannot connect"
	case ProxyStatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Err returns the matching sentinel error, or nil for ProxyStatusOK.
func (s ProxyStatus) Err() error {
	switch s {
	case ProxyStatusOK:
		return nil
	case ProxyStatusWrongType:
		return ErrProxyNotTor
	case ProxyStatusCannotConnect:
		return ErrProxyCannotConnect
	case ProxyStatusTimeout:
		return ErrProxyTimeout
	default:
		return errors.New("unknown proxy status")
	}
}
