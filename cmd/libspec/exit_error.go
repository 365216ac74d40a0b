// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"

	"github.com/rfls/libspec/pkg/types"
)

// ExitError carries the process status a command chose for its failure.
// RunE handlers return it after reporting the problem; Execute exits with Code.
type ExitError struct {
	Code types.ExitCode
	Err  error
}

func (e *ExitError) Error() string {
	switch {
	case e.Err != nil:
		return e.Err.Error()
	case e.Code.IsUsage():
		return "invalid command-line usage"
	default:
		return "exit status " + e.Code.String()
	}
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitStatus maps a command error to the process status. Errors that did not
// pick a status, and an ExitError claiming success or an out-of-range code,
// exit with ExitFailure.
func exitStatus(err error) types.ExitCode {
	if err == nil {
		return types.ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && !exitErr.Code.IsSuccess() && exitErr.Code.Validate() == nil {
		return exitErr.Code
	}
	return types.ExitFailure
}
