// SPDX-License-Identifier: MPL-2.0

package libspec

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rfls/libspec/internal/generator"
	"github.com/rfls/libspec/internal/issue"
	"github.com/rfls/libspec/internal/specstore"
	"github.com/rfls/libspec/pkg/libdoc"
	"github.com/rfls/libspec/pkg/specparse"
)

// GetLibraryInfo returns the specification of name.
//
// A stored specification is returned as is. On a miss with create false the
// result is nil. With create true the library is generated from the current
// module search paths, persisted to the cache directory and stored, so the
// caller and everyone after it see the new entry. Concurrent callers for the
// same name share one generation.
//
// Generation and parse failures are logged and reported as a nil result; the
// next call retries. The only errors returned are caller cancellation and an
// unusable toolchain, the latter as an *issue.ActionableError wrapping
// generator.ErrToolchainUnavailable.
func (m *Manager) GetLibraryInfo(ctx context.Context, name libdoc.LibraryName, create bool) (*libdoc.LibraryDoc, error) {
	if err := name.Validate(); err != nil {
		m.logger.Debug("ignoring lookup", "error", err)
		return nil, nil
	}
	if doc, ok := m.store.Get(name); ok {
		return doc, nil
	}
	if !create {
		return nil, nil
	}

	ch := m.flights.DoChan(string(name), func() (any, error) {
		return m.create(context.WithoutCancel(ctx), name)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	switch {
	case res.Err == nil:
		return res.Val.(*libdoc.LibraryDoc), nil
	case generator.IsEnvironmentFault(res.Err):
		return nil, issue.NewErrorContext().
			WithOperation("generate library specification").
			WithResource(string(name)).
			WithSuggestions(
				"Install Robot Framework in the Python environment on PATH (pip install robotframework)",
				"Set generator.command in the libspec config to a working libdoc command",
				"Set generator.mode to \"static\" to introspect modules without Python",
			).
			WithIssue(issue.ToolchainNotFoundId).
			Wrap(res.Err).
			BuildError()
	default:
		m.logger.Warn("library unavailable", "library", name, "error", res.Err)
		return nil, nil
	}
}

// create runs inside the per-name flight. It rechecks the store so a caller
// that missed just before another flight finished does not generate again.
func (m *Manager) create(ctx context.Context, name libdoc.LibraryName) (*libdoc.LibraryDoc, error) {
	if doc, ok := m.store.Get(name); ok {
		return doc, nil
	}

	data, err := m.gateway.Generate(ctx, name, m.resolver.ModuleSearchPaths())
	if err != nil {
		return nil, err
	}

	target := filepath.Join(m.cacheDir, string(name)+specparse.FileExt)
	doc, err := specparse.Parse(data, target)
	if err != nil {
		return nil, &generator.GenerationError{Name: name, Err: fmt.Errorf("toolchain output: %w", err)}
	}

	backing, mtime := target, time.Now()
	if written, err := writeAtomic(target, data); err != nil {
		// The entry stays reachable without a backing file; the watcher never
		// evicts unbacked entries.
		m.logger.Warn("could not persist specification", "library", name, "path", target, "error", err)
		backing = ""
	} else {
		mtime = written
	}

	m.store.Put(name, doc, backing, specstore.TruncateMTime(mtime))
	m.logger.Info("generated library specification", "library", name, "keywords", len(doc.Keywords()))
	return doc, nil
}

// writeAtomic replaces path with data through a sibling temp file and returns
// the resulting modification time. The temp name does not match the spec
// pattern, so a concurrent scan never sees a partial file.
func writeAtomic(path string, data []byte) (time.Time, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return time.Time{}, err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return time.Time{}, err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return time.Time{}, err
	}
	if err := tmp.Close(); err != nil {
		return time.Time{}, err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return time.Time{}, err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return time.Time{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
