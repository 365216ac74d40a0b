// SPDX-License-Identifier: MPL-2.0

// Package libspec is the facade editor features use to look up keyword
// library specifications.
//
// A Manager owns one specification Store, one search-path Resolver, one
// generation Gateway and one change Watcher. Lookups are served from the
// Store; a miss may trigger generation through the Gateway, whose output is
// parsed, persisted to the cache directory and stored before the call
// returns. The Watcher keeps the Store in step with specification files that
// appear, change or vanish on disk.
//
// A Manager is single-use: Start it once, Stop it once, and build a new one
// to start over.
package libspec
