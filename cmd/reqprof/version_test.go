package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestGetVersion(t *testing.T) {
	t.Parallel()

	// Either the ldflags value, build info, or "(devel)"
	if v := getVersion(); v == "" {
		t.Error("getVersion() returned empty string")
	}
}

func TestGetCommit(t *testing.T) {
	t.Parallel()

	c := getCommit()
	if c == "" {
		t.Error("getCommit() returned empty string")
	}
	if c != "unknown" && len(c) > 7 {
		t.Errorf("expected short commit hash, got %q", c)
	}
}

func TestGetDate(t *testing.T) {
	t.Parallel()

	if d := getDate(); d == "" {
		t.Error("getDate() returned empty string")
	}
}

func TestBuildSettingUnknownKey(t *testing.T) {
	t.Parallel()

	if got := buildSetting("no.such.setting"); got != "" {
		t.Errorf("expected empty value, got %q", got)
	}
}

func TestNewVersionCmd(t *testing.T) {
	t.Parallel()

	cmd := NewVersionCmd()

	t.Run("command has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "version" {
			t.Errorf("expected Use to be 'version', got %q", cmd.Use)
		}
	})

	t.Run("command outputs version info", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		c := NewVersionCmd()
		c.SetOut(&buf)
		c.SetArgs([]string{})
		if err := c.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"reqprof version", "commit:", "built:"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q, got %q", want, output)
			}
		}
	})
}
