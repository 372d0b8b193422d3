package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil error", err: nil, expected: 0},
		{name: "validation error", err: ValidationError("invalid input").Build(), expected: 2},
		{name: "config error", err: ConfigError("bad config").Build(), expected: 7},
		{name: "graph error", err: GraphError("cycle").Build(), expected: 9},
		{name: "compile error", err: CompileError("parse failure").Build(), expected: 11},
		{name: "task error", err: TaskError("css failed").Build(), expected: 11},
		{name: "internal error", err: InternalError("boom").Build(), expected: 10},
		{name: "wrapped compile error", err: fmt.Errorf("run: %w", CompileError("x").Build()), expected: 11},
		{name: "unclassified error", err: errors.New("unknown error"), expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.ExitCodeFor(tt.err); got != tt.expected {
				t.Errorf("ExitCodeFor() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	quiet := NewCLIErrorAdapter(false, slog.Default())
	verbose := NewCLIErrorAdapter(true, slog.Default())

	tests := []struct {
		name     string
		adapter  *CLIErrorAdapter
		err      error
		contains string
	}{
		{name: "nil error", adapter: quiet, err: nil, contains: ""},
		{name: "internal error in non-verbose mode", adapter: quiet, err: InternalError("internal issue").Build(), contains: "Internal error occurred (use -v for details)"},
		{name: "config error shows message", adapter: quiet, err: ConfigError("bad config").Build(), contains: "Error: bad config"},
		{name: "cause is appended", adapter: quiet, err: WrapError(errors.New("EOF"), CategoryConfig, "parse config.json").Build(), contains: "parse config.json: EOF"},
		{name: "verbose shows category", adapter: verbose, err: CompileError("bad module").Build(), contains: "[compile:error] bad module"},
		{name: "unclassified error", adapter: quiet, err: errors.New("unknown error"), contains: "Error: unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.adapter.FormatError(tt.err)
			if tt.contains == "" {
				if got != "" {
					t.Errorf("FormatError() = %q, want empty string", got)
				}
				return
			}
			if !strings.Contains(got, tt.contains) {
				t.Errorf("FormatError() = %q, want to contain %q", got, tt.contains)
			}
		})
	}
}
