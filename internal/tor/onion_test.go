package tor

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestValidateOnionHost(t *testing.T) {
	t.Parallel()

	valid := addressFromPublicKey(bytes.Repeat([]byte{0x42}, 32))
	// Flip one character of the key part to break the checksum.
	corrupted := "b" + valid[1:]
	if corrupted == valid {
		corrupted = "c" + valid[1:]
	}

	tests := []struct {
		name    string
		host    string
		wantErr error
	}{
		{name: "valid v3", host: valid},
		{name: "valid v3 uppercase", host: strings.ToUpper(valid)},
		{name: "valid v3 with subdomain", host: "www." + valid},
		{name: "bad checksum", host: corrupted, wantErr: ErrInvalidOnionAddress},
		{name: "v2 address", host: "abcdefghijklmnop.onion", wantErr: ErrV2AddressDeprecated},
		{name: "too short", host: "abc.onion", wantErr: ErrInvalidOnionAddress},
		{name: "invalid characters", host: "0000000000000000000000000000000000000000000000000000000a.onion", wantErr: ErrInvalidOnionAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateOnionHost(tt.host)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateOnionHost(%q) = %v, want %v", tt.host, err, tt.wantErr)
			}
		})
	}
}

func TestIsOnionHost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		host string
		want bool
	}{
		{host: "example.onion", want: true},
		{host: "EXAMPLE.ONION", want: true},
		{host: "example.com", want: false},
		{host: "onion", want: false},
		{host: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			t.Parallel()

			if got := IsOnionHost(tt.host); got != tt.want {
				t.Errorf("IsOnionHost(%q) = %v, want %v", tt.host, got, tt.want)
			}
		})
	}
}

func TestAddressFromPublicKeyRoundTrip(t *testing.T) {
	t.Parallel()

	for _, b := range []byte{0x00, 0x7f, 0xff} {
		addr := addressFromPublicKey(bytes.Repeat([]byte{b}, 32))
		if len(addr) != 56+len(OnionSuffix) {
			t.Fatalf("address %q has length %d", addr, len(addr))
		}
		if !isValidV3Address(addr) {
			t.Errorf("isValidV3Address(%q) = false", addr)
		}
	}
}
