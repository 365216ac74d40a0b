// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// defaultIgnores lists path patterns that are never scanned, regardless of
// user-supplied ignore patterns: VCS metadata, virtual environments and
// dependency caches that can hold thousands of directories.
var defaultIgnores = []string{
	"**/.git/**",
	"**/.hg/**",
	"**/.svn/**",
	"**/node_modules/**",
	"**/__pycache__/**",
	"**/.venv/**",
	"**/venv/**",
	"**/.tox/**",
	"**/.mypy_cache/**",
	"**/site-packages/**",
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}

// matchesSpec reports whether rel names a specification file.
func matchesSpec(rel string) bool {
	matched, err := doublestar.Match(specPattern, filepath.ToSlash(rel))
	return err == nil && matched
}

// isIgnored returns true if rel (relative to a scanned location) matches any
// ignore pattern.
func (w *Watcher) isIgnored(rel string) bool {
	normalized := filepath.ToSlash(rel)
	for _, pat := range w.ignores {
		if matched, matchErr := doublestar.Match(pat, normalized); matchErr == nil && matched {
			return true
		}
	}
	return false
}

// isIgnoredDir checks a directory path; "dir/**" patterns only match its
// contents, so the trailing-slash form is tried too.
func (w *Watcher) isIgnoredDir(rel string) bool {
	return w.isIgnored(rel) || w.isIgnored(rel+"/")
}

// validatePatterns checks that every pattern in the slice is a valid doublestar
// glob. The label is used in error messages.
func validatePatterns(patterns []string, label string) error {
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("watch: invalid %s pattern %q", label, pat)
		}
	}
	return nil
}

// ValidateIgnore checks user-supplied ignore patterns without building a
// Watcher.
func ValidateIgnore(patterns []string) error {
	return validatePatterns(patterns, "ignore")
}
