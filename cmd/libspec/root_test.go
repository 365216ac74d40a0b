// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rfls/libspec/internal/issue"
	"github.com/rfls/libspec/pkg/types"
)

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "v1.2.3"
		Commit = "abc1234"
		BuildDate = "2025-06-15T10:00:00Z"

		got := getVersionString()
		want := "v1.2.3 (commit: abc1234, built: 2025-06-15T10:00:00Z)"
		if got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("dev build", func(t *testing.T) {
		origVersion := Version
		t.Cleanup(func() { Version = origVersion })

		Version = "dev"
		if got, want := getVersionString(), "dev (built from source)"; got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})
}

func TestFormatErrorForDisplay(t *testing.T) {
	t.Parallel()

	plain := errors.New("plain failure")
	if got := formatErrorForDisplay(plain, true); got != "plain failure" {
		t.Errorf("plain error = %q", got)
	}

	ae := issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource("/etc/libspec.cue").
		WithSuggestion("Check the file").
		Wrap(plain).
		BuildError()

	short := formatErrorForDisplay(ae, false)
	if !strings.Contains(short, "Check the file") || strings.Contains(short, "Error chain") {
		t.Errorf("non-verbose output = %q", short)
	}
	if long := formatErrorForDisplay(ae, true); !strings.Contains(long, "Error chain") {
		t.Errorf("verbose output = %q", long)
	}
}

func TestExitErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("cause")
	err := &ExitError{Code: types.ExitNotFound, Err: cause}
	if !errors.Is(err, cause) {
		t.Error("ExitError does not unwrap to its cause")
	}
	if got := (&ExitError{Code: types.ExitUsage}).Error(); got != "invalid command-line usage" {
		t.Errorf("Error() = %q", got)
	}
	if got := (&ExitError{Code: types.ExitNotFound}).Error(); got != "exit status 3" {
		t.Errorf("Error() = %q", got)
	}
}

func TestExitStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want types.ExitCode
	}{
		{"nil", nil, types.ExitOK},
		{"plain error", errors.New("boom"), types.ExitFailure},
		{"usage", &ExitError{Code: types.ExitUsage}, types.ExitUsage},
		{"wrapped not found", fmt.Errorf("info: %w", &ExitError{Code: types.ExitNotFound}), types.ExitNotFound},
		{"claims success", &ExitError{Code: types.ExitOK, Err: errors.New("boom")}, types.ExitFailure},
		{"out of range", &ExitError{Code: 300}, types.ExitFailure},
	}
	for _, tt := range tests {
		if got := exitStatus(tt.err); got != tt.want {
			t.Errorf("%s: exitStatus() = %d, want %d", tt.name, got, tt.want)
		}
	}
}
