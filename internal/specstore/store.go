// SPDX-License-Identifier: MPL-2.0

// Package specstore holds the parsed library specifications of a manager.
//
// Entries are replaced wholesale: Put swaps in a new LibraryDoc and never edits
// one in place, so a reader that already holds a doc keeps a consistent value.
// Critical sections only touch the map; parsing and file I/O happen outside.
package specstore

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/rfls/libspec/pkg/libdoc"
)

type (
	// Entry is the bookkeeping kept for one library name.
	Entry struct {
		// Doc is the current parsed specification.
		Doc *libdoc.LibraryDoc
		// BackingPath is the specification file the doc was built from. Empty
		// when the doc came from a generation whose cache write failed.
		BackingPath string
		// MTime is the backing file's modification time, in whole seconds, as
		// observed when Doc was built.
		MTime time.Time
	}

	// Store maps library names to their current Entry. The zero value is not
	// usable; call New.
	Store struct {
		mu      sync.RWMutex
		entries map[libdoc.LibraryName]Entry
	}
)

// New creates an empty Store.
func New() *Store {
	return &Store{entries: make(map[libdoc.LibraryName]Entry)}
}

// TruncateMTime drops sub-second precision so comparisons match the coarsest
// filesystem timestamp granularity.
func TruncateMTime(t time.Time) time.Time {
	return time.Unix(t.Unix(), 0)
}

// Get returns the current doc for name.
func (s *Store) Get(name libdoc.LibraryName) (*libdoc.LibraryDoc, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[name]
	if !ok {
		return nil, false
	}
	return e.Doc, true
}

// Entry returns the full bookkeeping for name.
func (s *Store) Entry(name libdoc.LibraryName) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[name]
	return e, ok
}

// Put installs doc for name, replacing any previous entry. mtime is truncated
// to whole seconds.
func (s *Store) Put(name libdoc.LibraryName, doc *libdoc.LibraryDoc, backingPath string, mtime time.Time) {
	e := Entry{Doc: doc, BackingPath: backingPath, MTime: TruncateMTime(mtime)}
	s.mu.Lock()
	s.entries[name] = e
	s.mu.Unlock()
}

// Remove drops the entry for name. Removing an unknown name is a no-op.
func (s *Store) Remove(name libdoc.LibraryName) {
	s.mu.Lock()
	delete(s.entries, name)
	s.mu.Unlock()
}

// RemoveIfBackedBy drops the entry for name only if it is still backed by
// path. It returns whether an entry was removed. The watcher uses this so an
// entry replaced by a concurrent generation is not evicted by a stale scan.
func (s *Store) RemoveIfBackedBy(name libdoc.LibraryName, path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok || e.BackingPath != path {
		return false
	}
	delete(s.entries, name)
	return true
}

// Names returns the known names in sorted order.
func (s *Store) Names() []libdoc.LibraryName {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.entries))
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Snapshot returns a copy of all entries keyed by name.
func (s *Store) Snapshot() map[libdoc.LibraryName]Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.entries)
}

// EntryByPath returns the name whose entry is backed by path, if any.
func (s *Store) EntryByPath(path string) (libdoc.LibraryName, Entry, bool) {
	if path == "" {
		return "", Entry{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for name, e := range s.entries {
		if e.BackingPath == path {
			return name, e, true
		}
	}
	return "", Entry{}, false
}
