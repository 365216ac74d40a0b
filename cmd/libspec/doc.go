// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for libspec.
//
// This package implements the Cobra command hierarchy for the libspec CLI:
// looking up (and generating) library specifications, listing known
// libraries, watching the specification locations, and managing the
// configuration file.
package cmd
