// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/rfls/libspec/internal/searchpath"
	"github.com/rfls/libspec/internal/specstore"
	"github.com/rfls/libspec/internal/testutil"
	"github.com/rfls/libspec/pkg/libdoc"
	"github.com/rfls/libspec/pkg/specparse"
)

type countingParser struct {
	calls atomic.Int64
}

func (c *countingParser) parse(data []byte, path string) (*libdoc.LibraryDoc, error) {
	c.calls.Add(1)
	return specparse.Parse(data, path)
}

type fixture struct {
	store    *specstore.Store
	resolver *searchpath.Resolver
	parser   *countingParser
	watcher  *Watcher
	ws       string
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		store:    specstore.New(),
		resolver: searchpath.New(searchpath.Defaults{}),
		parser:   &countingParser{},
		ws:       t.TempDir(),
	}
	if _, err := f.resolver.AddWorkspaceFolder(f.ws); err != nil {
		t.Fatal(err)
	}
	cfg.Store = f.store
	cfg.Locations = f.resolver
	cfg.Parse = f.parser.parse
	cfg.Logger = log.New(io.Discard)
	w, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	f.watcher = w
	return f
}

func (f *fixture) scan(t *testing.T) Result {
	t.Helper()
	res, err := f.watcher.Scan(t.Context())
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	return res
}

func (f *fixture) keywordNames(t *testing.T, name libdoc.LibraryName) []string {
	t.Helper()
	doc, ok := f.store.Get(name)
	if !ok {
		t.Fatalf("store has no entry for %q", name)
	}
	return doc.KeywordNames()
}

func TestScanAddsNewSpec(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{})
	path := testutil.WriteSpec(t, f.ws, "sub/my.libspec", testutil.SpecXML("case1_library", "Verify Model", "Verify Another Model"), testutil.Epoch)

	res := f.scan(t)
	if !slices.Equal(res.Added, []libdoc.LibraryName{"case1_library"}) || res.Files != 1 {
		t.Fatalf("Scan() = %+v", res)
	}
	if got := f.keywordNames(t, "case1_library"); !slices.Equal(got, []string{"Verify Another Model", "Verify Model"}) {
		t.Errorf("keywords = %v", got)
	}
	e, _ := f.store.Entry("case1_library")
	if e.BackingPath != path || !e.MTime.Equal(testutil.Epoch) {
		t.Errorf("entry = %+v", e)
	}
}

func TestScanSkipsUnchangedFiles(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{})
	testutil.WriteSpec(t, f.ws, "a.libspec", testutil.SpecXML("a", "K"), testutil.Epoch)
	testutil.WriteSpec(t, f.ws, "b.libspec", testutil.SpecXML("b", "K"), testutil.Epoch)

	f.scan(t)
	if got := f.parser.calls.Load(); got != 2 {
		t.Fatalf("first scan parsed %d files, want 2", got)
	}
	res := f.scan(t)
	if res.Changed() {
		t.Errorf("second scan changed the store: %+v", res)
	}
	if got := f.parser.calls.Load(); got != 2 {
		t.Errorf("unchanged files were reparsed: %d parses", got)
	}
}

func TestScanUpdatesOnNewerMTime(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{})
	testutil.WriteSpec(t, f.ws, "my2.libspec", testutil.SpecXML("case2_library", "Case 2 Verify Model"), testutil.Epoch)
	f.scan(t)
	held, _ := f.store.Get("case2_library")

	testutil.WriteSpec(t, f.ws, "my2.libspec", testutil.SpecXML("case2_library", "Case 2 A Verify Model"), testutil.Epoch.Add(time.Second))
	res := f.scan(t)
	if !slices.Equal(res.Updated, []libdoc.LibraryName{"case2_library"}) {
		t.Fatalf("Scan() = %+v, want case2_library updated", res)
	}
	if got := f.keywordNames(t, "case2_library"); !slices.Equal(got, []string{"Case 2 A Verify Model"}) {
		t.Errorf("keywords = %v", got)
	}
	if got := held.KeywordNames(); !slices.Equal(got, []string{"Case 2 Verify Model"}) {
		t.Errorf("previously returned doc changed: %v", got)
	}
}

func TestScanSameSecondRewriteIsInvisible(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{})
	mtime := testutil.Epoch.Add(300 * time.Millisecond)
	testutil.WriteSpec(t, f.ws, "lib.libspec", testutil.SpecXML("lib", "Aaa"), mtime)
	f.scan(t)

	// Same size, same whole second: indistinguishable by design.
	testutil.WriteSpec(t, f.ws, "lib.libspec", testutil.SpecXML("lib", "Bbb"), mtime.Add(400*time.Millisecond))
	if res := f.scan(t); res.Changed() {
		t.Errorf("same-second rewrite was detected: %+v", res)
	}
	if got := f.keywordNames(t, "lib"); !slices.Equal(got, []string{"Aaa"}) {
		t.Errorf("keywords = %v", got)
	}
}

func TestScanSizeChangeWithinSecondIsDetected(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{})
	testutil.WriteSpec(t, f.ws, "lib.libspec", testutil.SpecXML("lib", "Short"), testutil.Epoch)
	f.scan(t)

	testutil.WriteSpec(t, f.ws, "lib.libspec", testutil.SpecXML("lib", "Much Longer Name"), testutil.Epoch)
	if res := f.scan(t); !slices.Equal(res.Updated, []libdoc.LibraryName{"lib"}) {
		t.Errorf("Scan() = %+v, want lib updated", res)
	}
}

func TestScanEvictsDeletedFile(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{})
	path := testutil.WriteSpec(t, f.ws, "gone.libspec", testutil.SpecXML("gone", "K"), testutil.Epoch)
	f.scan(t)

	testutil.MustRemove(t, path)
	res := f.scan(t)
	if !slices.Equal(res.Removed, []libdoc.LibraryName{"gone"}) {
		t.Fatalf("Scan() = %+v, want gone removed", res)
	}
	if _, ok := f.store.Get("gone"); ok {
		t.Error("entry survived deletion of its backing file")
	}
}

func TestScanFolderLifecycle(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{})
	other := t.TempDir()
	testutil.WriteSpec(t, other, "my.libspec", testutil.SpecXML("case1_library", "Verify Model"), testutil.Epoch)

	if _, err := f.resolver.AddWorkspaceFolder("file://" + filepath.ToSlash(other)); err != nil {
		t.Fatal(err)
	}
	f.scan(t)
	if _, ok := f.store.Get("case1_library"); !ok {
		t.Fatal("library missing after adding its folder")
	}

	if _, err := f.resolver.RemoveWorkspaceFolder(other); err != nil {
		t.Fatal(err)
	}
	if res := f.scan(t); !slices.Equal(res.Removed, []libdoc.LibraryName{"case1_library"}) {
		t.Fatalf("Scan() after removal = %+v", res)
	}
	if _, ok := f.store.Get("case1_library"); ok {
		t.Fatal("library still present after removing its only folder")
	}

	if _, err := f.resolver.AddWorkspaceFolder(other); err != nil {
		t.Fatal(err)
	}
	if res := f.scan(t); !slices.Equal(res.Added, []libdoc.LibraryName{"case1_library"}) {
		t.Fatalf("Scan() after re-adding = %+v", res)
	}
}

func TestScanSkipsMalformedFile(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{})
	bad := testutil.WriteSpec(t, f.ws, "bad.libspec", "<keywordspec name=", testutil.Epoch)
	testutil.WriteSpec(t, f.ws, "good.libspec", testutil.SpecXML("good", "K"), testutil.Epoch)

	res := f.scan(t)
	if !slices.Equal(res.Failed, []string{bad}) || !slices.Equal(res.Added, []libdoc.LibraryName{"good"}) {
		t.Fatalf("Scan() = %+v", res)
	}

	parses := f.parser.calls.Load()
	if res := f.scan(t); len(res.Failed) != 0 {
		t.Errorf("unchanged bad file retried: %+v", res)
	}
	if f.parser.calls.Load() != parses {
		t.Error("unchanged bad file was reparsed")
	}

	testutil.WriteSpec(t, f.ws, "bad.libspec", testutil.SpecXML("fixed", "K"), testutil.Epoch.Add(time.Second))
	if res := f.scan(t); !slices.Equal(res.Added, []libdoc.LibraryName{"fixed"}) {
		t.Errorf("Scan() after fix = %+v", res)
	}
}

func TestScanRenameAfterMalformedSave(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{})
	path := testutil.WriteSpec(t, f.ws, "my.libspec", testutil.SpecXML("lib_a", "K"), testutil.Epoch)
	f.scan(t)

	testutil.WriteSpec(t, f.ws, "my.libspec", "<keywordspec", testutil.Epoch.Add(2*time.Second))
	if res := f.scan(t); !slices.Equal(res.Failed, []string{path}) {
		t.Fatalf("Scan() after malformed save = %+v", res)
	}
	if _, ok := f.store.Get("lib_a"); !ok {
		t.Fatal("last good lib_a should stay served while the file is malformed")
	}

	testutil.WriteSpec(t, f.ws, "my.libspec", testutil.SpecXML("lib_b", "K"), testutil.Epoch.Add(4*time.Second))
	res := f.scan(t)
	if !slices.Equal(res.Added, []libdoc.LibraryName{"lib_b"}) || !slices.Equal(res.Removed, []libdoc.LibraryName{"lib_a"}) {
		t.Fatalf("Scan() after rename = %+v", res)
	}
	if got := f.store.Names(); !slices.Equal(got, []libdoc.LibraryName{"lib_b"}) {
		t.Errorf("Names() = %v, want [lib_b]", got)
	}
}

func TestScanFallsBackToOtherFileForName(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{})
	older := testutil.WriteSpec(t, f.ws, "a/lib.libspec", testutil.SpecXML("lib", "Old"), testutil.Epoch)
	newer := testutil.WriteSpec(t, f.ws, "b/lib.libspec", testutil.SpecXML("lib", "New"), testutil.Epoch.Add(time.Second))
	f.scan(t)

	e, _ := f.store.Entry("lib")
	if e.BackingPath != newer {
		t.Fatalf("BackingPath = %q, want %q", e.BackingPath, newer)
	}

	testutil.MustRemove(t, newer)
	res := f.scan(t)
	if !slices.Equal(res.Updated, []libdoc.LibraryName{"lib"}) || len(res.Removed) != 0 {
		t.Fatalf("Scan() = %+v, want lib re-pointed", res)
	}
	e, _ = f.store.Entry("lib")
	if e.BackingPath != older {
		t.Errorf("BackingPath = %q, want %q", e.BackingPath, older)
	}
	if got := f.keywordNames(t, "lib"); !slices.Equal(got, []string{"Old"}) {
		t.Errorf("keywords = %v", got)
	}
}

func TestScanKeepsUnbackedEntries(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{})
	doc, err := libdoc.New(libdoc.LibrarySpec{Name: "generated"})
	if err != nil {
		t.Fatal(err)
	}
	f.store.Put("generated", doc, "", testutil.Epoch)

	if res := f.scan(t); res.Changed() {
		t.Errorf("Scan() = %+v", res)
	}
	if _, ok := f.store.Get("generated"); !ok {
		t.Error("entry without a backing file was evicted")
	}
}

func TestScanTrustsFreshStoreEntry(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{})
	path := testutil.WriteSpec(t, f.ws, "cached.libspec", testutil.SpecXML("cached", "K"), testutil.Epoch)
	doc, err := libdoc.New(libdoc.LibrarySpec{Name: "cached"})
	if err != nil {
		t.Fatal(err)
	}
	f.store.Put("cached", doc, path, testutil.Epoch.Add(time.Second))

	if res := f.scan(t); res.Changed() {
		t.Errorf("Scan() = %+v", res)
	}
	if got := f.parser.calls.Load(); got != 0 {
		t.Errorf("file already served by the store was parsed %d times", got)
	}
}

func TestScanDefaultIgnores(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{Ignore: []string{"**/build/**"}})
	testutil.WriteSpec(t, f.ws, ".git/x.libspec", testutil.SpecXML("vcs"), testutil.Epoch)
	testutil.WriteSpec(t, f.ws, ".venv/lib/y.libspec", testutil.SpecXML("venv"), testutil.Epoch)
	testutil.WriteSpec(t, f.ws, "build/z.libspec", testutil.SpecXML("build"), testutil.Epoch)
	testutil.WriteSpec(t, f.ws, "notes.txt", "not a spec", testutil.Epoch)
	testutil.WriteSpec(t, f.ws, "specs/kept.libspec", testutil.SpecXML("kept"), testutil.Epoch)

	res := f.scan(t)
	if !slices.Equal(res.Added, []libdoc.LibraryName{"kept"}) || res.Files != 1 {
		t.Errorf("Scan() = %+v", res)
	}
}

func TestScanMissingLocation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{})
	if _, err := f.resolver.AddWorkspaceFolder(filepath.Join(t.TempDir(), "does-not-exist")); err != nil {
		t.Fatal(err)
	}
	testutil.WriteSpec(t, f.ws, "a.libspec", testutil.SpecXML("a"), testutil.Epoch)

	if res := f.scan(t); !slices.Equal(res.Added, []libdoc.LibraryName{"a"}) {
		t.Errorf("Scan() = %+v", res)
	}
}

func TestScanCancelled(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{})
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if _, err := f.watcher.Scan(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Scan() error = %v, want context.Canceled", err)
	}
}

func TestRunReconcilesEachInterval(t *testing.T) {
	t.Parallel()

	clock := testutil.NewFakeClock(time.Time{})
	var scans atomic.Int64
	f := newFixture(t, Config{
		Clock:         clock,
		Interval:      time.Second,
		DisableNotify: true,
		OnScan:        func(Result) { scans.Add(1) },
	})

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- f.watcher.Run(ctx) }()

	if !clock.BlockUntil(1, 5*time.Second) {
		t.Fatal("loop never went to sleep")
	}
	testutil.WriteSpec(t, f.ws, "tick.libspec", testutil.SpecXML("tick", "K"), testutil.Epoch)
	if _, ok := f.store.Get("tick"); ok {
		t.Fatal("store changed before the next cycle")
	}

	clock.Advance(time.Second)
	testutil.WaitFor(t, 5*time.Second, time.Millisecond, "cycle reported", func() bool {
		return scans.Load() == 1
	})
	if _, ok := f.store.Get("tick"); !ok {
		t.Error("tick library not loaded by the cycle")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func TestRunWake(t *testing.T) {
	t.Parallel()

	clock := testutil.NewFakeClock(time.Time{})
	f := newFixture(t, Config{Clock: clock, Interval: time.Hour, DisableNotify: true})

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go func() { _ = f.watcher.Run(ctx) }()
	if !clock.BlockUntil(1, 5*time.Second) {
		t.Fatal("loop never went to sleep")
	}

	testutil.WriteSpec(t, f.ws, "woken.libspec", testutil.SpecXML("woken"), testutil.Epoch)
	f.watcher.Wake()
	f.watcher.Wake() // coalesces, never blocks
	testutil.WaitFor(t, 5*time.Second, time.Millisecond, "woken library loaded", func() bool {
		_, ok := f.store.Get("woken")
		return ok
	})
}

func TestRunNotifyWakesLoop(t *testing.T) {
	if testing.Short() {
		t.Skip("relies on platform file notifications")
	}
	t.Parallel()

	clock := testutil.NewFakeClock(time.Time{})
	f := newFixture(t, Config{Clock: clock, Interval: time.Hour})
	testutil.MustMkdirAll(t, filepath.Join(f.ws, "specs"))

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go func() { _ = f.watcher.Run(ctx) }()
	if !clock.BlockUntil(1, 5*time.Second) {
		t.Fatal("loop never went to sleep")
	}

	if err := os.WriteFile(filepath.Join(f.ws, "specs", "notified.libspec"), []byte(testutil.SpecXML("notified")), 0o644); err != nil {
		t.Fatal(err)
	}
	testutil.WaitFor(t, 10*time.Second, 5*time.Millisecond, "notified library loaded", func() bool {
		_, ok := f.store.Get("notified")
		return ok
	})
}

// sleepAfterNotifyError delivers notifyErr to a sleeping loop, wakes it, and
// reports whether the loop dropped file notifications for polling.
func sleepAfterNotifyError(t *testing.T, notifyErr error) bool {
	t.Helper()

	f := newFixture(t, Config{Clock: testutil.NewFakeClock(time.Time{}), Interval: time.Hour, DisableNotify: true})
	n, err := newNotifier(func(string) bool { return false })
	if err != nil {
		t.Skipf("file notifications unavailable: %v", err)
	}
	np := n
	woke := make(chan bool, 1)
	go func() { woke <- f.watcher.sleep(t.Context(), &np) }()

	// sleep handles the error before it selects again, so the wake-up below
	// is seen only afterwards.
	n.errors <- notifyErr
	testutil.WaitFor(t, 5*time.Second, time.Millisecond, "notify error consumed", func() bool {
		return len(n.errors) == 0
	})
	f.watcher.Wake()
	if !<-woke {
		t.Fatal("sleep reported cancellation")
	}
	if np == nil {
		return true
	}
	np.close(f.watcher.logger)
	return false
}

func TestRunTwice(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{DisableNotify: true, Clock: testutil.NewFakeClock(time.Time{})})
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- f.watcher.Run(ctx) }()

	testutil.WaitFor(t, 5*time.Second, time.Millisecond, "first Run started", f.watcher.started.Load)
	if err := f.watcher.Run(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() error = %v, want ErrAlreadyRunning", err)
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}); err == nil {
		t.Error("New() without Store and Locations should fail")
	}
	_, err := New(Config{
		Store:     specstore.New(),
		Locations: searchpath.New(searchpath.Defaults{}),
		Ignore:    []string{"[unclosed"},
	})
	if err == nil {
		t.Error("New() with a malformed ignore pattern should fail")
	}

	w, err := New(Config{Store: specstore.New(), Locations: searchpath.New(searchpath.Defaults{})})
	if err != nil {
		t.Fatal(err)
	}
	if w.Interval() != DefaultInterval {
		t.Errorf("Interval() = %v, want %v", w.Interval(), DefaultInterval)
	}
}

func TestDefaultIgnores(t *testing.T) {
	t.Parallel()

	got := DefaultIgnores()
	if !slices.Contains(got, "**/.git/**") || !slices.Contains(got, "**/__pycache__/**") {
		t.Errorf("DefaultIgnores() = %v", got)
	}
	got[0] = "mutated"
	if DefaultIgnores()[0] == "mutated" {
		t.Error("DefaultIgnores() exposes the package slice")
	}
}

func TestResultString(t *testing.T) {
	t.Parallel()

	r := Result{Added: []libdoc.LibraryName{"a"}, Failed: []string{"x"}, Files: 3}
	if got, want := r.String(), "files=3 added=1 updated=0 removed=0 failed=1"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if !r.Changed() || (Result{Failed: []string{"x"}}).Changed() {
		t.Error("Changed() misreports")
	}
}
