// SPDX-License-Identifier: MPL-2.0

package pystatic

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/rfls/libspec/internal/generator"
	"github.com/rfls/libspec/pkg/libdoc"
	"github.com/rfls/libspec/pkg/specparse"
)

const checkLib = `
def method(a:int=10):
    '''
    :param a: This is the parameter a.
    '''

def method2(a:int):
    pass

def method3(a=10):
    pass
    
def method4(a=10, *args, **kwargs):
    pass
    
def method5(a, *args, **kwargs):
    pass
    
def method6():
    pass
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func argStrings(args []libdoc.Argument) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		out = append(out, a.String())
	}
	return out
}

func TestGenerateSixFunctions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "check_lib.py"), checkLib)

	data, err := New().Generate(t.Context(), generator.Request{Name: "check_lib", ModulePaths: []string{dir}})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	doc, err := specparse.Parse(data, filepath.Join(t.TempDir(), "check_lib.libspec"))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if doc.SpecVersion() > libdoc.MaxSupportedSpecVersion {
		t.Errorf("SpecVersion() = %d, exceeds %d", doc.SpecVersion(), libdoc.MaxSupportedSpecVersion)
	}
	if doc.Source() != filepath.Join(dir, "check_lib.py") {
		t.Errorf("Source() = %q", doc.Source())
	}
	if _, err := os.Stat(doc.Source()); err != nil {
		t.Errorf("source must exist on disk: %v", err)
	}

	want := []struct {
		name   string
		args   []string
		lineno int
	}{
		{"Method", []string{"a: int=10"}, 2},
		{"Method2", []string{"a: int"}, 7},
		{"Method3", []string{"a=10"}, 10},
		{"Method4", []string{"a=10", "*args", "**kwargs"}, 13},
		{"Method5", []string{"a", "*args", "**kwargs"}, 16},
		{"Method6", []string{}, 19},
	}

	kws := doc.Keywords()
	if len(kws) != len(want) {
		t.Fatalf("got %d keywords, want %d", len(kws), len(want))
	}
	for i, w := range want {
		kw := kws[i]
		if kw.Name() != w.name {
			t.Errorf("keyword %d name = %q, want %q", i, kw.Name(), w.name)
		}
		if got := argStrings(kw.Args()); !slices.Equal(got, w.args) {
			t.Errorf("%s args = %q, want %q", w.name, got, w.args)
		}
		if kw.Lineno() != w.lineno {
			t.Errorf("%s lineno = %d, want %d", w.name, kw.Lineno(), w.lineno)
		}
	}

	if got := kws[0].Doc(); got != ":param a: This is the parameter a." {
		t.Errorf("Method doc = %q", got)
	}

	a := kws[0].Args()[0]
	if typ, ok := a.Type(); !ok || typ != "int" {
		t.Errorf("Method arg type = %q, %v", typ, ok)
	}
	if def, ok := a.Default(); !ok || def != "10" {
		t.Errorf("Method arg default = %q, %v", def, ok)
	}

	m4 := kws[3].Args()
	if m4[0].IsStarArg || m4[0].IsKeywordArg {
		t.Error("plain arg flagged as star/keyword arg")
	}
	if !m4[1].IsStarArg || m4[1].IsKeywordArg {
		t.Errorf("*args flags = star %v kw %v", m4[1].IsStarArg, m4[1].IsKeywordArg)
	}
	if !m4[2].IsKeywordArg || m4[2].IsStarArg {
		t.Errorf("**kwargs flags = star %v kw %v", m4[2].IsStarArg, m4[2].IsKeywordArg)
	}
}

func TestIntrospectSignatureForms(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "forms.py")
	writeFile(t, path, `"""Library of signature forms."""

__version__ = "1.2.3"
ROBOT_LIBRARY_SCOPE = 'global'

import functools

def keyword_only(a, *, flag: bool = False, other):
    """First line.

        Indented detail.
    """

def positional_only(a, /, b):
    pass

def typed_star(*values: str, **options: "dict[str, int]"):
    pass

@functools.cache
def decorated(x: list[int] | None = None):
    pass

def _private():
    pass

class Helper:
    def not_a_keyword(self):
        pass
`)

	doc, err := Introspect(t.Context(), "forms", path)
	if err != nil {
		t.Fatalf("Introspect() error: %v", err)
	}

	if doc.Doc() != "Library of signature forms." {
		t.Errorf("Doc() = %q", doc.Doc())
	}
	if doc.Version() != "1.2.3" || doc.Scope() != "GLOBAL" {
		t.Errorf("Version() = %q, Scope() = %q", doc.Version(), doc.Scope())
	}

	want := map[string][]string{
		"Keyword Only":    {"a", "flag: bool=False", "other"},
		"Positional Only": {"a", "b"},
		"Typed Star":      {"*values: str", `**options: "dict[str, int]"`},
		"Decorated":       {"x: list[int] | None=None"},
	}
	if got := doc.KeywordNames(); len(got) != len(want) {
		t.Fatalf("KeywordNames() = %v", got)
	}
	for name, args := range want {
		kw, ok := doc.Keyword(name)
		if !ok {
			t.Errorf("missing keyword %q", name)
			continue
		}
		if got := argStrings(kw.Args()); !slices.Equal(got, args) {
			t.Errorf("%s args = %q, want %q", name, got, args)
		}
	}

	kw, _ := doc.Keyword("Keyword Only")
	if kw.Doc() != "First line.\n\nIndented detail." {
		t.Errorf("Keyword Only doc = %q", kw.Doc())
	}
}

func TestIntrospectClassLibrary(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "Browser.py")
	writeFile(t, path, `class Browser:
    """Drives a browser."""

    ROBOT_LIBRARY_SCOPE = "SUITE"

    def __init__(self, timeout=5):
        pass

    def open_browser(self, url, alias=None):
        pass

    @staticmethod
    def close_all():
        pass

def module_helper():
    pass
`)

	doc, err := Introspect(t.Context(), "Browser", path)
	if err != nil {
		t.Fatalf("Introspect() error: %v", err)
	}
	if doc.Doc() != "Drives a browser." {
		t.Errorf("Doc() = %q", doc.Doc())
	}
	if got := doc.KeywordNames(); !slices.Equal(got, []string{"Close All", "Module Helper", "Open Browser"}) {
		t.Errorf("KeywordNames() = %v", got)
	}
	kw, _ := doc.Keyword("Open Browser")
	if got := argStrings(kw.Args()); !slices.Equal(got, []string{"url", "alias=None"}) {
		t.Errorf("Open Browser args = %q", got)
	}
	if kw.Lineno() != 9 {
		t.Errorf("Open Browser lineno = %d, want 9", kw.Lineno())
	}
}

func TestResolveShadowing(t *testing.T) {
	t.Parallel()

	first := t.TempDir()
	second := t.TempDir()
	writeFile(t, filepath.Join(first, "shadow.py"), "def old():\n    pass\n")
	writeFile(t, filepath.Join(second, "shadow", "__init__.py"), "def new():\n    pass\n")
	writeFile(t, filepath.Join(second, "pkg", "sub.py"), "def nested():\n    pass\n")

	path, ok := Resolve("shadow", []string{first, second})
	if !ok || path != filepath.Join(second, "shadow", "__init__.py") {
		t.Errorf("Resolve() = %q, %v; want last-added path to win", path, ok)
	}
	path, ok = Resolve("shadow", []string{second, first})
	if !ok || path != filepath.Join(first, "shadow.py") {
		t.Errorf("Resolve() = %q, %v", path, ok)
	}
	path, ok = Resolve("pkg.sub", []string{first, second})
	if !ok || path != filepath.Join(second, "pkg", "sub.py") {
		t.Errorf("Resolve(dotted) = %q, %v", path, ok)
	}
	if _, ok := Resolve("missing", []string{first, second}); ok {
		t.Error("Resolve() found a missing module")
	}
}

func TestGenerateModuleNotFound(t *testing.T) {
	t.Parallel()

	_, err := New().Generate(t.Context(), generator.Request{Name: "nowhere", ModulePaths: []string{t.TempDir()}})
	if !errors.Is(err, generator.ErrModuleNotFound) || !errors.Is(err, generator.ErrGenerationFailed) {
		t.Errorf("error = %v, want module-not-found generation failure", err)
	}
	if generator.IsEnvironmentFault(err) {
		t.Error("a missing module is not an environment fault")
	}
}

func TestCleanDoc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"One line.", "One line."},
		{"\n    Indented.\n    ", "Indented."},
		{"Summary.\n\n    Body\n      nested\n    ", "Summary.\n\nBody\n  nested"},
		{"\tTabbed\n\tbody", "Tabbed\nbody"},
	}
	for _, tt := range tests {
		if got := cleanDoc(tt.in); got != tt.want {
			t.Errorf("cleanDoc(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUnquote(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		`"x"`:         "x",
		`'x'`:         "x",
		`"""a\nb"""`:  `a\nb`,
		`r'''raw'''`:  "raw",
		`u"unicode"`:  "unicode",
		`''`:          "",
		`""""""`:      "",
	}
	for in, want := range tests {
		if got := unquote(in); got != want {
			t.Errorf("unquote(%q) = %q, want %q", in, got, want)
		}
	}
}
