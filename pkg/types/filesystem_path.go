// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// ErrInvalidFilesystemPath is the sentinel error wrapped by InvalidFilesystemPathError.
var ErrInvalidFilesystemPath = errors.New("invalid filesystem path")

type (
	// FilesystemPath is a directory or file location as supplied by a caller.
	// It may be a plain path or a file:// URI; Normalize turns either form into
	// a clean absolute path. The zero value ("") is invalid.
	FilesystemPath string

	// InvalidFilesystemPathError is returned when a FilesystemPath value is
	// empty, whitespace-only, or a URI with a scheme other than file.
	InvalidFilesystemPathError struct {
		Value  FilesystemPath
		Reason string
	}
)

// String returns the string representation of the FilesystemPath.
func (p FilesystemPath) String() string { return string(p) }

// IsURI reports whether the value is written as a file:// URI.
func (p FilesystemPath) IsURI() bool {
	return strings.HasPrefix(strings.ToLower(string(p)), "file://")
}

// Validate returns an error if the FilesystemPath is empty or whitespace-only.
func (p FilesystemPath) Validate() error {
	if strings.TrimSpace(string(p)) == "" {
		return &InvalidFilesystemPathError{Value: p, Reason: "must be non-empty"}
	}
	return nil
}

// Normalize converts the value to a clean absolute filesystem path. URIs are
// decoded first; relative paths resolve against the working directory.
func (p FilesystemPath) Normalize() (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}

	raw := string(p)
	if p.IsURI() {
		u, err := url.Parse(raw)
		if err != nil {
			return "", &InvalidFilesystemPathError{Value: p, Reason: err.Error()}
		}
		raw = u.Path
		// file:///C:/dir decodes to /C:/dir; drop the leading slash before a drive letter.
		if len(raw) >= 3 && raw[0] == '/' && raw[2] == ':' {
			raw = raw[1:]
		}
		if u.Host != "" && u.Host != "localhost" {
			raw = "//" + u.Host + raw
		}
		if strings.TrimSpace(raw) == "" {
			return "", &InvalidFilesystemPathError{Value: p, Reason: "URI has no path"}
		}
		raw = filepath.FromSlash(raw)
	}

	abs, err := filepath.Abs(raw)
	if err != nil {
		return "", &InvalidFilesystemPathError{Value: p, Reason: err.Error()}
	}
	return filepath.Clean(abs), nil
}

// Error implements the error interface for InvalidFilesystemPathError.
func (e *InvalidFilesystemPathError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "must be non-empty"
	}
	return fmt.Sprintf("invalid filesystem path %q: %s", e.Value, reason)
}

// Unwrap returns ErrInvalidFilesystemPath for errors.Is() compatibility.
func (e *InvalidFilesystemPathError) Unwrap() error { return ErrInvalidFilesystemPath }
