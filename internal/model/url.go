package model

import (
	"fmt"
	"strconv"
)

// Default ports for the two supported schemes.
const (
	// HTTPPort is used when a URL is not secure.
	HTTPPort = 80

	// HTTPSPort is used when a URL is secure.
	HTTPSPort = 443
)

// CanonicalURL is the normalized form of a loosely formatted URL.
// It is constructed once from raw input and never modified.
type CanonicalURL struct {
	// Hostname is the host without scheme prefix or path suffix.
	// It never contains '/'.
	Hostname string `json:"hostname"`

	// IsSecure selects TLS and the default port 443.
	IsSecure bool `json:"is_secure"`

	// Path always starts with '/' and defaults to "/".
	Path string `json:"path"`
}

// Port returns the default port for the URL's scheme.
func (u CanonicalURL) Port() int {
	if u.IsSecure {
		return HTTPSPort
	}
	return HTTPPort
}

// Scheme returns "https" for secure URLs and "http" otherwise.
func (u CanonicalURL) Scheme() string {
	if u.IsSecure {
		return "https"
	}
	return "http"
}

// Address returns the "hostname:port" pair to dial.
func (u CanonicalURL) Address() string {
	return u.Hostname + ":" + strconv.Itoa(u.Port())
}

// String renders the URL as "hostname:port/path".
func (u CanonicalURL) String() string {
	return fmt.Sprintf("%s:%d%s", u.Hostname, u.Port(), u.Path)
}

// URL renders the URL with an explicit scheme, e.g. "https://example.com/".
// Normalizing this string yields a CanonicalURL equal to u.
func (u CanonicalURL) URL() string {
	return u.Scheme() + "://" + u.Hostname + u.Path
}
