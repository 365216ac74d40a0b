// SPDX-License-Identifier: MPL-2.0

package libdoc

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DocFormatRobot is the Robot Framework documentation markup.
	DocFormatRobot DocFormat = "ROBOT"
	// DocFormatHTML is pre-rendered HTML documentation.
	DocFormatHTML DocFormat = "HTML"
	// DocFormatText is plain text documentation.
	DocFormatText DocFormat = "TEXT"
	// DocFormatReST is reStructuredText documentation.
	DocFormatReST DocFormat = "REST"

	// MaxSupportedSpecVersion is the highest specification schema version whose
	// layout is fully understood. Higher versions are parsed best-effort.
	MaxSupportedSpecVersion SpecVersion = 3

	// SpecVersionUnknown marks a document that did not declare a version.
	SpecVersionUnknown SpecVersion = 0
)

// ErrInvalidDocFormat is returned when a DocFormat value is not recognized.
var ErrInvalidDocFormat = errors.New("invalid doc format")

type (
	// DocFormat tags how the Doc strings of a library are written.
	DocFormat string

	// InvalidDocFormatError is returned when a DocFormat value is not recognized.
	// It wraps ErrInvalidDocFormat for errors.Is() compatibility.
	InvalidDocFormatError struct {
		Value DocFormat
	}

	// SpecVersion is the schema version embedded in a specification file.
	SpecVersion int
)

// ParseDocFormat normalizes a format attribute ("robot", "Html", ...) into a
// DocFormat. Empty input maps to DocFormatRobot, the libdoc default.
func ParseDocFormat(s string) (DocFormat, error) {
	f := DocFormat(strings.ToUpper(strings.TrimSpace(s)))
	if f == "" {
		return DocFormatRobot, nil
	}
	if err := f.Validate(); err != nil {
		return "", err
	}
	return f, nil
}

// String returns the string representation of the DocFormat.
func (f DocFormat) String() string { return string(f) }

// Validate returns nil if the DocFormat is one of the known formats.
func (f DocFormat) Validate() error {
	switch f {
	case DocFormatRobot, DocFormatHTML, DocFormatText, DocFormatReST:
		return nil
	default:
		return &InvalidDocFormatError{Value: f}
	}
}

// Error implements the error interface for InvalidDocFormatError.
func (e *InvalidDocFormatError) Error() string {
	return fmt.Sprintf("invalid doc format %q (valid: ROBOT, HTML, TEXT, REST)", e.Value)
}

// Unwrap returns ErrInvalidDocFormat for errors.Is() compatibility.
func (e *InvalidDocFormatError) Unwrap() error { return ErrInvalidDocFormat }

// IsSupported reports whether v is a declared version this package fully
// understands.
func (v SpecVersion) IsSupported() bool {
	return v > SpecVersionUnknown && v <= MaxSupportedSpecVersion
}
