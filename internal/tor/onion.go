package tor

import (
	"encoding/base32"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Onion address constants.
const (
	// OnionSuffix is the suffix of every onion hostname.
	OnionSuffix = ".onion"

	// onionV3Version is the trailing version byte of a v3 address.
	onionV3Version = 0x03
)

var (
	onionV3Pattern = regexp.MustCompile(`^[a-z2-7]{56}\.onion$`)
	onionV2Pattern = regexp.MustCompile(`^[a-z2-7]{16}\.onion$`)
)

// checksumPrefix is prepended to the key when computing a v3 checksum.
var checksumPrefix = []byte(".onion checksum")

// IsOnionHost reports whether host is in the .onion pseudo-TLD.
func IsOnionHost(host string) bool {
	return strings.HasSuffix(strings.ToLower(host), OnionSuffix)
}

// ValidateOnionHost checks that host is a well-formed v3 onion address with
// a correct checksum. Subdomains ("www.<addr>.onion") are accepted.
func ValidateOnionHost(host string) error {
	host = strings.ToLower(host)
	labels := strings.Split(strings.TrimSuffix(host, OnionSuffix), ".")
	address := labels[len(labels)-1] + OnionSuffix

	if onionV2Pattern.MatchString(address) {
		return ErrV2AddressDeprecated
	}
	if !isValidV3Address(address) {
		return ErrInvalidOnionAddress
	}
	return nil
}

// isValidV3Address verifies format, version byte and checksum of a v3
// address. The checksum is the first two bytes of
// SHA3-256(".onion checksum" || pubkey || version).
func isValidV3Address(address string) bool {
	if !onionV3Pattern.MatchString(address) {
		return false
	}

	decoded, err := base32.StdEncoding.DecodeString(strings.ToUpper(strings.TrimSuffix(address, OnionSuffix)))
	if err != nil || len(decoded) != 35 {
		return false
	}

	pubkey := decoded[:32]
	checksum := decoded[32:34]
	version := decoded[34]
	if version != onionV3Version {
		return false
	}

	expected := computeV3Checksum(pubkey, version)
	return checksum[0] == expected[0] && checksum[1] == expected[1]
}

// computeV3Checksum returns the two checksum bytes for pubkey.
func computeV3Checksum(pubkey []byte, version byte) []byte {
	data := make([]byte, 0, len(checksumPrefix)+len(pubkey)+1)
	data = append(data, checksumPrefix...)
	data = append(data, pubkey...)
	data = append(data, version)

	hash := sha3.Sum256(data)
	return hash[:2]
}

// addressFromPublicKey builds the v3 onion address for a 32-byte key.
// Tests use it to produce valid addresses.
func addressFromPublicKey(pubkey []byte) string {
	data := make([]byte, 0, 35)
	data = append(data, pubkey...)
	data = append(data, computeV3Checksum(pubkey, onionV3Version)...)
	data = append(data, onionV3Version)
	return strings.ToLower(base32.StdEncoding.EncodeToString(data)) + OnionSuffix
}
