// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rfls/libspec/internal/specstore"
	"github.com/rfls/libspec/pkg/libdoc"
	"github.com/rfls/libspec/pkg/specparse"
)

// specPattern selects specification files relative to a scanned location.
const specPattern = "**/*" + specparse.FileExt

// observed is one specification file found by enumerate.
type observed struct {
	// mtime is truncated to whole seconds.
	mtime time.Time
	size  int64
}

func (w *Watcher) scan(ctx context.Context) (Result, []string) {
	w.scanMu.Lock()
	defer w.scanMu.Unlock()

	start := w.clock.Now()
	locs := w.cfg.Locations.CandidateSpecLocations()
	files, dirs := w.enumerate(ctx, locs)
	res := Result{Files: len(files)}
	if ctx.Err() != nil {
		return res, dirs
	}

	store := w.cfg.Store
	for _, path := range slices.Sorted(maps.Keys(files)) {
		f := files[path]
		prev, known := w.seen[path]
		if known && !f.mtime.After(prev.mtime) && f.size == prev.size {
			continue
		}
		if !known {
			// A file the store already serves at least as fresh, such as a
			// cache file written right after generation, needs no reparse.
			if name, e, ok := store.EntryByPath(path); ok && !f.mtime.After(e.MTime) {
				w.seen[path] = fileState{name: name, mtime: f.mtime, size: f.size}
				continue
			}
		}

		doc, err := w.load(path)
		if err != nil {
			// Logged once per (path, mtime, size): an unchanged bad file is
			// skipped above on later cycles. The last good name is kept so a
			// later valid save under another name still retires it.
			w.logger.Warn("skipping unreadable specification", "path", path, "error", err)
			w.seen[path] = fileState{name: prev.name, mtime: f.mtime, size: f.size, failed: true}
			res.Failed = append(res.Failed, path)
			continue
		}

		name := doc.Name()
		if known && prev.name != "" && prev.name != name && store.RemoveIfBackedBy(prev.name, path) {
			res.Removed = append(res.Removed, prev.name)
		}
		_, had := store.Entry(name)
		store.Put(name, doc, path, f.mtime)
		w.seen[path] = fileState{name: name, mtime: f.mtime, size: f.size}
		if had {
			res.Updated = append(res.Updated, name)
		} else {
			res.Added = append(res.Added, name)
		}
	}

	w.evict(locs, files, &res)

	for path := range w.seen {
		if _, ok := files[path]; !ok {
			delete(w.seen, path)
		}
	}
	w.dirs = dirs
	w.logger.Debug("scan complete", "result", res.String(), "elapsed", w.clock.Now().Sub(start))
	return res, dirs
}

// evict removes store entries whose backing file is gone from every current
// location. If another present file encodes the same library, the newest one
// replaces the entry instead.
func (w *Watcher) evict(locs []string, files map[string]observed, res *Result) {
	store := w.cfg.Store
	for name, e := range store.Snapshot() {
		if e.BackingPath == "" {
			continue
		}
		if _, ok := files[e.BackingPath]; ok {
			continue
		}
		if withinAny(e.BackingPath, locs) && fileExists(e.BackingPath) {
			// Written after this cycle enumerated; the next cycle sees it.
			continue
		}

		if alt, ok := w.alternative(name, e.BackingPath, files); ok {
			doc, err := w.load(alt)
			if err == nil && doc.Name() == name {
				store.Put(name, doc, alt, files[alt].mtime)
				res.Updated = append(res.Updated, name)
				continue
			}
		}

		if store.RemoveIfBackedBy(name, e.BackingPath) {
			res.Removed = append(res.Removed, name)
		}
	}
}

// alternative finds the newest present file, other than exclude, that last
// parsed as name.
func (w *Watcher) alternative(name libdoc.LibraryName, exclude string, files map[string]observed) (string, bool) {
	var (
		best      string
		bestMTime time.Time
	)
	for _, path := range slices.Sorted(maps.Keys(files)) {
		st, ok := w.seen[path]
		if !ok || st.failed || st.name != name || path == exclude {
			continue
		}
		if mt := files[path].mtime; best == "" || mt.After(bestMTime) {
			best, bestMTime = path, mt
		}
	}
	return best, best != ""
}

func (w *Watcher) load(path string) (*libdoc.LibraryDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return w.parse(data, path)
}

// enumerate walks every location and returns the spec files found, keyed by
// absolute path, plus the directories visited.
func (w *Watcher) enumerate(ctx context.Context, locs []string) (map[string]observed, []string) {
	files := make(map[string]observed)
	var dirs []string
	for _, loc := range locs {
		if ctx.Err() != nil {
			break
		}
		walkErr := filepath.WalkDir(loc, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == loc && os.IsNotExist(err) {
					return filepath.SkipDir
				}
				w.logger.Debug("skipping inaccessible path", "path", path, "error", err)
				return nil //nolint:nilerr // one unreadable directory must not end the scan
			}
			if ctx.Err() != nil {
				return filepath.SkipAll
			}

			rel, relErr := filepath.Rel(loc, path)
			if relErr != nil {
				return nil //nolint:nilerr // skip paths that cannot be made relative
			}
			if d.IsDir() {
				if path != loc && w.isIgnoredDir(rel) {
					return filepath.SkipDir
				}
				dirs = append(dirs, path)
				return nil
			}
			if w.isIgnored(rel) || !matchesSpec(rel) {
				return nil
			}
			info, infoErr := d.Info()
			if infoErr != nil || !info.Mode().IsRegular() {
				return nil //nolint:nilerr // vanished between listing and stat
			}
			files[path] = observed{
				mtime: specstore.TruncateMTime(info.ModTime()),
				size:  info.Size(),
			}
			return nil
		})
		if walkErr != nil {
			w.logger.Debug("walk failed", "location", loc, "error", walkErr)
		}
	}
	return files, dirs
}

// withinAny reports whether path lies inside one of dirs.
func withinAny(path string, dirs []string) bool {
	for _, d := range dirs {
		rel, err := filepath.Rel(d, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}
