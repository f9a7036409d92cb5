package tor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// checkProxyTimeout bounds the SOCKS5 handshake performed by CheckConnection.
const checkProxyTimeout = 2 * time.Second

// SOCKS5 protocol constants used by CheckConnection.
const (
	socks5Version       = 0x05
	socks5AuthNone      = 0x00
	socks5AuthNoAccept  = 0xFF
	socks5CmdConnect    = 0x01
	socks5AddrTypeDomID = 0x03

	// socks5TestHost is a syntactically valid but non-existent onion
	// address. Only the proxy's reply matters, not whether it connects.
	socks5TestHost = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa.onion"
)

// Client dials TCP connections through a Tor SOCKS5 proxy.
// It implements transport.Dialer.
type Client struct {
	// proxyAddress is the SOCKS5 proxy in "host:port" form.
	proxyAddress string

	// dialer performs the SOCKS5 CONNECT.
	dialer proxy.Dialer
}

// NewClient creates a Client for the proxy at proxyAddress.
// It validates the address but does not contact the proxy; call
// CheckConnection for that.
func NewClient(proxyAddress string) (*Client, error) {
	if !isValidProxyAddress(proxyAddress) {
		return nil, ErrInvalidProxyAddress
	}

	// Tor's SOCKS port does not require authentication.
	dialer, err := proxy.SOCKS5("tcp", proxyAddress, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	return &Client{
		proxyAddress: proxyAddress,
		dialer:       dialer,
	}, nil
}

// isValidProxyAddress reports whether address is "host:port" with a port
// in 1..65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// ProxyAddress returns the configured proxy address.
func (c *Client) ProxyAddress() string {
	return c.proxyAddress
}

// DialContext opens a connection to address through Tor.
// Onion hostnames are validated before the proxy is contacted.
func (c *Client) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}
	if IsOnionHost(host) {
		if err := ValidateOnionHost(host); err != nil {
			return nil, fmt.Errorf("%s: %w", host, err)
		}
	}

	if cd, ok := c.dialer.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, network, address)
	}

	// Fall back to a plain Dial that gives up waiting on cancellation.
	// The underlying attempt may still finish in the background.
	type dialResult struct {
		conn net.Conn
		err  error
	}
	resultCh := make(chan dialResult, 1)
	go func() {
		conn, err := c.dialer.Dial(network, address)
		resultCh <- dialResult{conn, err}
	}()

	select {
	case result := <-resultCh:
		return result.conn, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CheckConnection verifies that the proxy speaks SOCKS5 without
// authentication and answers a CONNECT request.
func (c *Client) CheckConnection(ctx context.Context) ProxyStatus {
	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.proxyAddress)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return ProxyStatusCannotConnect
	}

	// Greeting: version, one method, "no authentication".
	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return ProxyStatusCannotConnect
	}

	authResp := make([]byte, 2)
	if _, err := io.ReadFull(conn, authResp); err != nil {
		return readFailureStatus(err)
	}
	if authResp[0] != socks5Version || authResp[1] == socks5AuthNoAccept || authResp[1] != socks5AuthNone {
		return ProxyStatusWrongType
	}

	const testPort = 80
	connectReq := []byte{
		socks5Version,
		socks5CmdConnect,
		0x00,
		socks5AddrTypeDomID,
		byte(len(socks5TestHost)),
	}
	connectReq = append(connectReq, socks5TestHost...)
	connectReq = append(connectReq, byte(testPort>>8), byte(testPort&0xFF))

	if _, err := conn.Write(connectReq); err != nil {
		return ProxyStatusCannotConnect
	}

	// Any reply code is fine; Tor answers 0x04 for unknown onion services.
	connectResp := make([]byte, 4)
	if _, err := io.ReadFull(conn, connectResp); err != nil {
		return readFailureStatus(err)
	}
	if connectResp[0] != socks5Version {
		return ProxyStatusWrongType
	}

	return ProxyStatusOK
}

// readFailureStatus maps a handshake read error to a ProxyStatus.
func readFailureStatus(err error) ProxyStatus {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ProxyStatusTimeout
	}
	return ProxyStatusWrongType
}
