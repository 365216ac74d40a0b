// SPDX-License-Identifier: MPL-2.0

package specparse

import (
	"errors"
	"fmt"
)

// ErrMalformedSpec is the sentinel error wrapped by ParseError.
var ErrMalformedSpec = errors.New("malformed library specification")

// ParseError describes why a specification document could not be turned into
// a LibraryDoc. It wraps ErrMalformedSpec and, when present, the underlying
// decoder or validation error.
type ParseError struct {
	// Path is the specification file, or "<input>" for in-memory data.
	Path string
	// Reason is a short human-readable explanation.
	Reason string
	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// Unwrap returns both the sentinel and the cause for errors.Is/As.
func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedSpec}
	}
	return []error{ErrMalformedSpec, e.Err}
}
