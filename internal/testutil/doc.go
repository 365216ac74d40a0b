// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers shared by libspec tests.
//
// FakeClock drives time-dependent loops deterministically. WriteSpec and
// Touch create specification files with explicit modification times so
// change-detection tests do not depend on real one-second pauses. The Must*
// helpers fail the test on filesystem or environment errors.
package testutil
