// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// SpecXML returns a minimal specversion 2 libspec document declaring the
// named library with argument-less keywords.
func SpecXML(library string, keywords ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<?xml version="1.0" encoding="UTF-8"?>
<keywordspec name="%s" type="LIBRARY" format="ROBOT" specversion="2" generated="20200101 00:00:00">
<version>1.0</version>
<scope>GLOBAL</scope>
<doc>Documentation for %s.</doc>
`, html.EscapeString(library), html.EscapeString(library))
	for i, kw := range keywords {
		fmt.Fprintf(&b, "<kw name=\"%s\" lineno=\"%d\">\n<arguments>\n</arguments>\n<doc></doc>\n</kw>\n", html.EscapeString(kw), i+1)
	}
	b.WriteString("</keywordspec>\n")
	return b.String()
}

// WriteSpec writes content to dir/filename and stamps it with mtime, so
// whole-second change detection sees a distinct timestamp without sleeping.
// It returns the file path.
func WriteSpec(t testing.TB, dir, filename, content string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	MustMkdirAll(t, filepath.Dir(path))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	Touch(t, path, mtime)
	return path
}

// Touch sets both the access and modification time of path.
func Touch(t testing.TB, path string, mtime time.Time) {
	t.Helper()
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("failed to set times on %s: %v", path, err)
	}
}

// Epoch is a whole-second reference time for spec files in tests. Offsets
// from it keep mtimes well apart from the real wall clock.
var Epoch = time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC)
