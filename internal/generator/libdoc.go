// SPDX-License-Identifier: MPL-2.0

package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/shell"

	"github.com/rfls/libspec/pkg/types"
)

// DefaultLibdocCommand is the toolchain invocation used when none is configured.
const DefaultLibdocCommand = "python -m robot.libdoc"

// moduleNotFoundMarkers are stderr fragments that identify an import failure
// of the library itself rather than a crash of the toolchain.
var moduleNotFoundMarkers = []string{
	"No module named",
	"ModuleNotFoundError",
	"Importing library",
	"Importing test library",
}

// robotPackage is the import root of Robot Framework. An import failure of
// this package means the toolchain is not installed, whatever library was
// requested.
const robotPackage = "robot"

// LibdocToolchain runs the libdoc command-line tool as a subprocess and
// returns the specification it writes.
type LibdocToolchain struct {
	argv       []string
	formatArgs []string
	environ    func() []string
}

// NewLibdocToolchain parses command with POSIX shell field splitting, so
// quoted interpreter paths containing spaces are preserved. An empty command
// selects DefaultLibdocCommand.
func NewLibdocToolchain(command string) (*LibdocToolchain, error) {
	if strings.TrimSpace(command) == "" {
		command = DefaultLibdocCommand
	}
	argv, err := shell.Fields(command, os.Getenv)
	if err != nil {
		return nil, fmt.Errorf("parse generator command %q: %w", command, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("parse generator command %q: no executable", command)
	}
	return &LibdocToolchain{
		argv:       argv,
		formatArgs: []string{"--format", "XML:HTML"},
		environ:    os.Environ,
	}, nil
}

// Command returns the parsed argv prefix.
func (t *LibdocToolchain) Command() []string {
	return append([]string(nil), t.argv...)
}

// Args returns the full argument vector for req writing to outPath.
func (t *LibdocToolchain) Args(req Request, outPath string) []string {
	args := append([]string(nil), t.argv[1:]...)
	args = append(args, t.formatArgs...)
	if len(req.ModulePaths) > 0 {
		args = append(args, "-P", strings.Join(req.ModulePaths, string(os.PathListSeparator)))
	}
	return append(args, string(req.Name), outPath)
}

// Generate implements Toolchain.
func (t *LibdocToolchain) Generate(ctx context.Context, req Request) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "libspec-gen-*")
	if err != nil {
		return nil, &GenerationError{Name: req.Name, Err: fmt.Errorf("create temp dir: %w", err)}
	}
	defer os.RemoveAll(tmpDir) //nolint:errcheck // best-effort cleanup

	outPath := filepath.Join(tmpDir, string(req.Name)+".libspec")
	cmd := exec.CommandContext(ctx, t.argv[0], t.Args(req, outPath)...)
	if len(req.ModulePaths) > 0 {
		if st, statErr := os.Stat(req.ModulePaths[0]); statErr == nil && st.IsDir() {
			cmd.Dir = req.ModulePaths[0]
		}
	}
	cmd.Env = t.environ()
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Start(); err != nil {
		return nil, &EnvironmentFaultError{Command: t.argv[0], Err: err}
	}
	if err := cmd.Wait(); err != nil {
		genErr := &GenerationError{Name: req.Name, Stderr: tail(output.String()), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
			if msg, ok := t.toolchainImportFailure(output.String()); ok {
				return nil, &EnvironmentFaultError{Command: t.argv[0], Err: errors.New(msg)}
			}
			genErr.ExitCode = types.ExitCode(exitErr.ExitCode())
			genErr.Err = nil
			if isModuleNotFound(output.String()) {
				genErr.Err = ErrModuleNotFound
			}
		}
		if ctx.Err() != nil {
			genErr.Err = fmt.Errorf("timed out: %w", ctx.Err())
		}
		return nil, genErr
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, &GenerationError{Name: req.Name, Stderr: tail(output.String()), Err: fmt.Errorf("read toolchain output: %w", err)}
	}
	return data, nil
}

// toolchainModule returns the module named by a `-m <module>` argument, or
// "" when the command runs a script or binary directly.
func (t *LibdocToolchain) toolchainModule() string {
	for i := 1; i < len(t.argv)-1; i++ {
		if t.argv[i] == "-m" {
			return t.argv[i+1]
		}
	}
	return ""
}

// toolchainImportFailure reports whether output shows the interpreter failing
// to import the toolchain itself, as opposed to the requested library. It
// returns the offending line.
func (t *LibdocToolchain) toolchainImportFailure(output string) (string, bool) {
	markers := []string{
		"No module named '" + robotPackage + "'",
		"No module named '" + robotPackage + ".",
	}
	if mod := t.toolchainModule(); mod != "" {
		// `python -m pkg.mod` with pkg missing, and with pkg present but mod missing.
		markers = append(markers,
			"module specification for '"+mod+"'",
			"No module named "+mod)
	}
	for line := range strings.Lines(output) {
		line = strings.TrimSpace(line)
		for _, m := range markers {
			if strings.Contains(line, m) && !strings.Contains(line, "Importing") {
				return line, true
			}
		}
	}
	return "", false
}

func isModuleNotFound(stderr string) bool {
	for _, m := range moduleNotFoundMarkers {
		if strings.Contains(stderr, m) {
			return true
		}
	}
	return false
}
