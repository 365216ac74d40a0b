// SPDX-License-Identifier: MPL-2.0

// Package libdoc defines the record model for keyword library specifications.
//
// A LibraryDoc is built once from a single parse of a specification file and is
// never mutated afterwards. Refreshing a library means building a new LibraryDoc
// and swapping it in, so callers holding an older value keep a consistent view.
// Slice accessors return copies for the same reason.
package libdoc
