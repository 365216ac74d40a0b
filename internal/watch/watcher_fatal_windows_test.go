// SPDX-License-Identifier: MPL-2.0

//go:build windows

package watch

import (
	"fmt"
	"syscall"
	"testing"
)

func TestNotifyErrorFallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		fallback bool
	}{
		{"handle limit", errnoTooManyOpenFiles, true},
		{"deleted folder", fmt.Errorf("ReadDirectoryChanges: %w", errnoInvalidHandle), true},
		{"out of memory", errnoNotEnoughMemory, true},
		{"access denied", syscall.Errno(5), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := sleepAfterNotifyError(t, tt.err); got != tt.fallback {
				t.Errorf("after %v: fell back to polling = %v, want %v", tt.err, got, tt.fallback)
			}
		})
	}
}
