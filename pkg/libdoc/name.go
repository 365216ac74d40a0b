// SPDX-License-Identifier: MPL-2.0

package libdoc

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrInvalidLibraryName is the sentinel error wrapped by InvalidLibraryNameError.
var ErrInvalidLibraryName = errors.New("invalid library name")

type (
	// LibraryName is the resolution key of a library: a module name such as
	// "Collections" or "my_pkg.my_lib", or a path-like name for file libraries.
	LibraryName string

	// InvalidLibraryNameError is returned when a LibraryName is empty, only
	// whitespace, or contains path separators that would escape the cache
	// directory when used as a file name.
	InvalidLibraryNameError struct {
		Value  LibraryName
		Reason string
	}
)

// String returns the string representation of the LibraryName.
func (n LibraryName) String() string { return string(n) }

// Validate returns nil if the name can be used as a cache key and file stem.
func (n LibraryName) Validate() error {
	s := string(n)
	switch {
	case strings.TrimSpace(s) == "":
		return &InvalidLibraryNameError{Value: n, Reason: "must be non-empty"}
	case strings.TrimSpace(s) != s:
		return &InvalidLibraryNameError{Value: n, Reason: "must not have leading or trailing whitespace"}
	case strings.ContainsAny(s, `/\`):
		return &InvalidLibraryNameError{Value: n, Reason: "must not contain path separators"}
	case s == "." || s == "..":
		return &InvalidLibraryNameError{Value: n, Reason: "must not be a relative directory"}
	}
	return nil
}

// Error implements the error interface for InvalidLibraryNameError.
func (e *InvalidLibraryNameError) Error() string {
	return fmt.Sprintf("invalid library name %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidLibraryName for errors.Is() compatibility.
func (e *InvalidLibraryNameError) Unwrap() error { return ErrInvalidLibraryName }

// DisplayName converts a callable identifier into the keyword name shown to
// users: underscores become spaces, camelCase humps are split and every word
// starts with an upper-case letter. "method_2" becomes "Method 2" and
// "openBrowser" becomes "Open Browser". Leading and trailing underscores are
// dropped.
func DisplayName(identifier string) string {
	var words []string
	for part := range strings.SplitSeq(identifier, "_") {
		if part == "" {
			continue
		}
		words = append(words, splitCamel(part)...)
	}
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// splitCamel splits "openHTTPBrowser" into ["open", "HTTP", "Browser"].
// Digits stay attached to the preceding word.
func splitCamel(s string) []string {
	runes := []rune(s)
	var (
		words []string
		start int
	)
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}
		lowerToUpper := unicode.IsLower(prev) && unicode.IsUpper(cur)
		acronymEnd := unicode.IsUpper(prev) && unicode.IsUpper(cur) && next != 0 && unicode.IsLower(next)
		if lowerToUpper || acronymEnd {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}
	return append(words, string(runes[start:]))
}
