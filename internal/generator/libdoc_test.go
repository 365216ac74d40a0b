// SPDX-License-Identifier: MPL-2.0

package generator

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"
)

const fakeSpec = `<?xml version="1.0" encoding="UTF-8"?>
<keywordspec name="Fake" specversion="2"><kw name="Hello"/></keywordspec>`

// writeScript creates an executable POSIX shell script in dir.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script toolchain fixtures require a POSIX shell")
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestNewLibdocToolchainFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		command string
		want    []string
	}{
		{"", []string{"python", "-m", "robot.libdoc"}},
		{"python3 -m robot.libdoc", []string{"python3", "-m", "robot.libdoc"}},
		{`"/opt/my python/bin/python" -m robot.libdoc`, []string{"/opt/my python/bin/python", "-m", "robot.libdoc"}},
		{`libdoc --pythonpath 'a b'`, []string{"libdoc", "--pythonpath", "a b"}},
	}
	for _, tt := range tests {
		tc, err := NewLibdocToolchain(tt.command)
		if err != nil {
			t.Fatalf("NewLibdocToolchain(%q) error: %v", tt.command, err)
		}
		if got := tc.Command(); !slices.Equal(got, tt.want) {
			t.Errorf("NewLibdocToolchain(%q).Command() = %q, want %q", tt.command, got, tt.want)
		}
	}

	if _, err := NewLibdocToolchain(`python "unterminated`); err == nil {
		t.Error("unterminated quote should fail to parse")
	}
}

func TestLibdocToolchainArgs(t *testing.T) {
	t.Parallel()

	tc, err := NewLibdocToolchain("python -m robot.libdoc")
	if err != nil {
		t.Fatal(err)
	}
	got := tc.Args(Request{Name: "MyLib", ModulePaths: []string{"/a", "/b"}}, "/tmp/out.libspec")
	want := []string{"-m", "robot.libdoc", "--format", "XML:HTML", "-P", "/a" + string(os.PathListSeparator) + "/b", "MyLib", "/tmp/out.libspec"}
	if !slices.Equal(got, want) {
		t.Errorf("Args() = %q, want %q", got, want)
	}

	got = tc.Args(Request{Name: "MyLib"}, "/tmp/out.libspec")
	if slices.Contains(got, "-P") {
		t.Errorf("Args() without module paths should omit -P: %q", got)
	}
}

func TestLibdocToolchainGenerate(t *testing.T) {
	// Not parallel: exec of a freshly written script can fail with ETXTBSY
	// when another test forks while the file is still open.

	dir := t.TempDir()
	// The output path is the last argument.
	script := writeScript(t, dir, "fake-libdoc", `for last; do :; done
cat > "$last" <<'SPEC'
`+fakeSpec+`
SPEC
`)
	tc, err := NewLibdocToolchain("'" + script + "'")
	if err != nil {
		t.Fatal(err)
	}

	data, err := tc.Generate(t.Context(), Request{Name: "Fake", ModulePaths: []string{dir}})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if !strings.Contains(string(data), `<keywordspec name="Fake"`) {
		t.Errorf("Generate() = %q", data)
	}
}

func TestLibdocToolchainModuleNotFound(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "fake-libdoc", `echo "Importing library 'Nope' failed: ModuleNotFoundError: No module named 'Nope'" >&2
exit 252
`)
	tc, err := NewLibdocToolchain("'" + script + "'")
	if err != nil {
		t.Fatal(err)
	}

	_, err = tc.Generate(t.Context(), Request{Name: "Nope"})
	if !errors.Is(err, ErrGenerationFailed) || !errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("error = %v, want module-not-found generation failure", err)
	}
	var genErr *GenerationError
	if !errors.As(err, &genErr) || genErr.ExitCode != 252 {
		t.Errorf("want exit status 252, got %#v", err)
	}
	if !strings.Contains(genErr.Stderr, "No module named") {
		t.Errorf("Stderr = %q", genErr.Stderr)
	}
}

func TestLibdocToolchainMissingOutput(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "fake-libdoc", "exit 0\n")
	tc, err := NewLibdocToolchain("'" + script + "'")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := tc.Generate(t.Context(), Request{Name: "Lib"}); !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("error = %v, want ErrGenerationFailed", err)
	}
}

func TestLibdocToolchainMissingExecutable(t *testing.T) {
	t.Parallel()

	tc, err := NewLibdocToolchain(filepath.Join(t.TempDir(), "no-such-python") + " -m robot.libdoc")
	if err != nil {
		t.Fatal(err)
	}

	_, err = tc.Generate(t.Context(), Request{Name: "Lib"})
	if !IsEnvironmentFault(err) {
		t.Fatalf("error = %v, want environment fault", err)
	}
	var envErr *EnvironmentFaultError
	if !errors.As(err, &envErr) || !strings.HasSuffix(envErr.Command, "no-such-python") {
		t.Errorf("EnvironmentFaultError.Command = %#v", err)
	}
}

func TestLibdocToolchainRobotNotInstalled(t *testing.T) {
	tests := []struct {
		name   string
		args   string
		stderr string
	}{
		{
			name:   "package missing",
			args:   " -m robot.libdoc",
			stderr: `/usr/bin/python3: Error while finding module specification for 'robot.libdoc' (ModuleNotFoundError: No module named 'robot')`,
		},
		{
			name:   "submodule missing",
			args:   " -m robot.libdoc",
			stderr: `/usr/bin/python3: No module named robot.libdoc`,
		},
		{
			name: "console script",
			stderr: `Traceback (most recent call last):
  File "/usr/local/bin/libdoc", line 5, in <module>
    from robot.libdoc import libdoc_cli
ModuleNotFoundError: No module named 'robot'`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			script := writeScript(t, dir, "fake-python", "cat >&2 <<'OUT'\n"+tt.stderr+"\nOUT\nexit 1\n")
			tc, err := NewLibdocToolchain("'" + script + "'" + tt.args)
			if err != nil {
				t.Fatal(err)
			}

			_, err = tc.Generate(t.Context(), Request{Name: "Collections"})
			if !IsEnvironmentFault(err) {
				t.Fatalf("error = %v, want environment fault", err)
			}
			if errors.Is(err, ErrModuleNotFound) || errors.Is(err, ErrGenerationFailed) {
				t.Errorf("error = %v, must not read as a missing library", err)
			}
		})
	}
}

func TestLibdocToolchainLibraryImportNotToolchainFault(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "fake-python", `echo "[ ERROR ] Importing library 'robotlib' failed: ModuleNotFoundError: No module named 'robotlib'" >&2
exit 252
`)
	tc, err := NewLibdocToolchain("'" + script + "' -m robot.libdoc")
	if err != nil {
		t.Fatal(err)
	}

	_, err = tc.Generate(t.Context(), Request{Name: "robotlib"})
	if IsEnvironmentFault(err) || !errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("error = %v, want module-not-found generation failure", err)
	}
}
