package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/nao1215/reqprof/internal/config"
)

// TestNewRootCmd tests the root command creation.
func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "reqprof" {
			t.Errorf("expected use 'reqprof', got %q", cmd.Use)
		}
	})

	t.Run("has descriptions and version", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" || cmd.Long == "" {
			t.Error("expected non-empty descriptions")
		}
		if cmd.Version == "" {
			t.Error("expected non-empty version")
		}
	})

	t.Run("has verbose flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.PersistentFlags().Lookup("verbose")
		if flag == nil {
			t.Fatal("expected verbose flag")
		}
		if flag.Shorthand != "v" {
			t.Errorf("expected shorthand 'v', got %q", flag.Shorthand)
		}
	})

	t.Run("has request flags", func(t *testing.T) {
		t.Parallel()
		tests := []struct {
			name      string
			shorthand string
			defValue  string
		}{
			{name: "url", shorthand: "u", defValue: ""},
			{name: "profile", shorthand: "n", defValue: "0"},
			{name: "timeout", shorthand: "t", defValue: "30s"},
			{name: "concurrency", shorthand: "c", defValue: "1"},
			{name: "rate", shorthand: "r", defValue: "0"},
			{name: "header", shorthand: "H", defValue: "[]"},
			{name: "json", shorthand: "j", defValue: "false"},
			{name: "markdown", shorthand: "m", defValue: "false"},
			{name: "output", shorthand: "o", defValue: ""},
			{name: "external-tor", shorthand: "e", defValue: ""},
			{name: "fail-fast", defValue: "false"},
			{name: "save", defValue: "false"},
			{name: "tor", defValue: "false"},
			{name: "config", defValue: ""},
		}
		for _, tt := range tests {
			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Errorf("expected %s flag", tt.name)
				continue
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("%s: expected shorthand %q, got %q", tt.name, tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("%s: expected default %q, got %q", tt.name, tt.defValue, flag.DefValue)
			}
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		t.Parallel()
		want := map[string]bool{"history": false, "init": false, "version": false}
		for _, sub := range cmd.Commands() {
			if _, ok := want[sub.Name()]; ok {
				want[sub.Name()] = true
			}
		}
		for name, found := range want {
			if !found {
				t.Errorf("expected %s subcommand", name)
			}
		}
	})
}

// TestRunRootCmdUsageErrors checks that invalid invocations fail before any
// request is sent.
func TestRunRootCmdUsageErrors(t *testing.T) {
	t.Parallel()

	missingConfig := filepath.Join(t.TempDir(), "missing.yaml")

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{name: "no url and no profile", args: []string{}, wantErr: config.ErrNoMode},
		{name: "verbose only", args: []string{"-v"}, wantErr: config.ErrNoMode},
		{name: "zero profile count", args: []string{"-n", "0"}, wantErr: config.ErrInvalidCount},
		{name: "empty host", args: []string{"-u", "https://"}, wantErr: config.ErrEmptyHost},
		{name: "empty host with path", args: []string{"-u", "/get"}, wantErr: config.ErrEmptyHost},
		{name: "conflicting formats", args: []string{"-n", "1", "--json", "--markdown"}, wantErr: config.ErrConflictingReportFormats},
		{name: "zero concurrency", args: []string{"-u", "example.com", "-c", "0"}, wantErr: config.ErrInvalidConcurrency},
		{name: "negative rate", args: []string{"-u", "example.com", "--rate=-1"}, wantErr: config.ErrInvalidRate},
		{name: "zero timeout", args: []string{"-u", "example.com", "-t", "0s"}, wantErr: config.ErrInvalidTimeout},
		{name: "bad header", args: []string{"-u", "example.com", "-H", "no-colon"}, wantErr: config.ErrInvalidHeader},
		{name: "both tor modes", args: []string{"-u", "example.com", "--tor", "-e", "127.0.0.1:9050"}, wantErr: config.ErrConflictingTorModes},
		{name: "missing config file", args: []string{"-u", "example.com", "--config", missingConfig}, wantErr: config.ErrConfigNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var stdout, stderr bytes.Buffer
			cmd := NewRootCmd()
			cmd.SetOut(&stdout)
			cmd.SetErr(&stderr)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if stdout.Len() != 0 {
				t.Errorf("expected no output, got %q", stdout.String())
			}
		})
	}
}

func TestRunRootCmdRejectsPositionalArgs(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"example.com"})

	if err := cmd.Execute(); err == nil {
		t.Error("expected error for positional argument")
	}
}
