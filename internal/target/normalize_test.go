package target

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/nao1215/reqprof/internal/model"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  model.CanonicalURL
	}{
		{
			name:  "https without path defaults to slash",
			input: "https://a.com",
			want:  model.CanonicalURL{Hostname: "a.com", IsSecure: true, Path: "/"},
		},
		{
			name:  "http without path defaults to slash",
			input: "http://google.com",
			want:  model.CanonicalURL{Hostname: "google.com", IsSecure: false, Path: "/"},
		},
		{
			name:  "bare host defaults to slash",
			input: "google.com",
			want:  model.CanonicalURL{Hostname: "google.com", IsSecure: false, Path: "/"},
		},
		{
			name:  "http with path",
			input: "http://a.com/x",
			want:  model.CanonicalURL{Hostname: "a.com", IsSecure: false, Path: "/x"},
		},
		{
			name:  "https with path",
			input: "https://google.com/123",
			want:  model.CanonicalURL{Hostname: "google.com", IsSecure: true, Path: "/123"},
		},
		{
			name:  "schemeless with path is insecure",
			input: "a.com/x",
			want:  model.CanonicalURL{Hostname: "a.com", IsSecure: false, Path: "/x"},
		},
		{
			name:  "path keeps query and nested segments",
			input: "https://a.com/x/y?z=1",
			want:  model.CanonicalURL{Hostname: "a.com", IsSecure: true, Path: "/x/y?z=1"},
		},
		{
			name:  "trailing slash is kept",
			input: "https://a.com/",
			want:  model.CanonicalURL{Hostname: "a.com", IsSecure: true, Path: "/"},
		},
		{
			name:  "host starting with http is schemeless",
			input: "httpbin.org/get",
			want:  model.CanonicalURL{Hostname: "httpbin.org", IsSecure: false, Path: "/get"},
		},
		{
			name:  "scheme match is case-sensitive",
			input: "HTTPS://a.com/x",
			want:  model.CanonicalURL{Hostname: "HTTPS:", IsSecure: false, Path: "//a.com/x"},
		},
		{
			name:  "empty input yields empty hostname",
			input: "",
			want:  model.CanonicalURL{Hostname: "", IsSecure: false, Path: "/"},
		},
		{
			name:  "scheme only yields empty hostname",
			input: "https://",
			want:  model.CanonicalURL{Hostname: "", IsSecure: true, Path: "/"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Normalize(tt.input)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
			if strings.Contains(got.Hostname, "/") {
				t.Errorf("hostname %q must not contain '/'", got.Hostname)
			}
			if got.Path == "" {
				t.Error("path must never be empty")
			}
		})
	}
}

func TestNormalizeRoundTrip(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"https://a.com",
		"http://a.com/x",
		"a.com/x",
		"example.org/deep/path?q=1",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			t.Parallel()

			first := Normalize(input)
			second := Normalize(first.URL())
			if first != second {
				t.Errorf("round trip changed %+v into %+v", first, second)
			}
		})
	}
}

func TestNormalizeWithLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	got := NormalizeWithLogger("https://a.com/x", logger)
	if got.Hostname != "a.com" {
		t.Fatalf("unexpected hostname %q", got.Hostname)
	}
	if !strings.Contains(buf.String(), "a.com:443/x") {
		t.Errorf("expected parsed structure in log output, got %q", buf.String())
	}

	// A nil logger must not panic.
	_ = NormalizeWithLogger("a.com", nil)
}
