// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"runtime"
	"testing"
)

// SetHomeDir points the platform home variable at dir and clears the XDG
// overrides so configuration and cache paths resolve inside dir. It returns
// a cleanup function restoring the previous values.
//
//	t.Cleanup(testutil.SetHomeDir(t, t.TempDir()))
//
// Windows uses USERPROFILE, other platforms HOME.
func SetHomeDir(t testing.TB, dir string) func() {
	t.Helper()

	var restores []func()
	switch runtime.GOOS {
	case "windows":
		restores = append(restores, MustSetenv(t, "USERPROFILE", dir))
	default:
		restores = append(restores, MustSetenv(t, "HOME", dir))
	}
	restores = append(restores,
		MustSetenv(t, "XDG_CONFIG_HOME", ""),
		MustSetenv(t, "XDG_CACHE_HOME", ""),
	)
	return func() {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
	}
}
