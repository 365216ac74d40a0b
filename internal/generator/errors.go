// SPDX-License-Identifier: MPL-2.0

package generator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rfls/libspec/pkg/libdoc"
	"github.com/rfls/libspec/pkg/types"
)

var (
	// ErrGenerationFailed is the sentinel wrapped by GenerationError.
	ErrGenerationFailed = errors.New("library generation failed")

	// ErrToolchainUnavailable is the sentinel wrapped by EnvironmentFaultError.
	ErrToolchainUnavailable = errors.New("generation toolchain unavailable")

	// ErrModuleNotFound marks a generation failure where the toolchain could
	// not locate the library module on the search path.
	ErrModuleNotFound = errors.New("library module not found")
)

// maxStderrTail bounds how much toolchain output a GenerationError keeps.
const maxStderrTail = 4096

type (
	// GenerationError is returned when the toolchain ran but did not produce a
	// usable specification: non-zero exit, timeout, or empty output.
	GenerationError struct {
		Name libdoc.LibraryName
		// ExitCode is the toolchain's exit status; zero when it did not exit
		// on its own (timeout) or exited cleanly with unusable output.
		ExitCode types.ExitCode
		// Stderr is the tail of the toolchain's diagnostic output.
		Stderr string
		Err    error
	}

	// EnvironmentFaultError is returned when the toolchain itself cannot be
	// started. It signals a setup problem rather than a missing library.
	EnvironmentFaultError struct {
		Command string
		Err     error
	}
)

// Error implements the error interface.
func (e *GenerationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "generate library %q", e.Name)
	if e.ExitCode != 0 {
		fmt.Fprintf(&b, ": exit status %s", e.ExitCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		fmt.Fprintf(&b, ": %s", lastLine(s))
	}
	return b.String()
}

// Unwrap returns ErrGenerationFailed and the underlying cause.
func (e *GenerationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrGenerationFailed}
	}
	return []error{ErrGenerationFailed, e.Err}
}

// Error implements the error interface.
func (e *EnvironmentFaultError) Error() string {
	return fmt.Sprintf("generation toolchain %q unavailable: %v", e.Command, e.Err)
}

// Unwrap returns ErrToolchainUnavailable and the underlying cause.
func (e *EnvironmentFaultError) Unwrap() []error {
	return []error{ErrToolchainUnavailable, e.Err}
}

// IsEnvironmentFault reports whether err should be surfaced to the caller
// instead of being treated as "library not found".
func IsEnvironmentFault(err error) bool {
	return errors.Is(err, ErrToolchainUnavailable)
}

func tail(s string) string {
	if len(s) <= maxStderrTail {
		return s
	}
	return s[len(s)-maxStderrTail:]
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
