// SPDX-License-Identifier: MPL-2.0

// Package benchmark provides benchmarks for PGO profile generation.
// These benchmarks cover the hot paths of a long-running libspec process:
//   - specification parsing and serialization
//   - static introspection of Python sources
//   - watcher reconcile cycles over an unchanged tree
//   - store lookups and documentation rendering
//
// To generate a profile, run:
//
//	go test -run=^$ -bench=. -cpuprofile=default.pgo ./internal/benchmark
package benchmark
