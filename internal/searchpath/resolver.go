// SPDX-License-Identifier: MPL-2.0

// Package searchpath maintains the workspace folders and additional module
// search folders registered with a manager.
//
// Both sets are ordered by insertion and mutated under a mutex; every accessor
// returns a fresh copy so callers may iterate while folders are added or
// removed concurrently.
package searchpath

import (
	"slices"
	"sync"

	"github.com/rfls/libspec/pkg/types"
)

type (
	// Defaults are the fixed locations that precede the registered folders.
	Defaults struct {
		// SpecDirs are scanned for specification files before any workspace
		// folder. The generated-spec cache directory belongs here.
		SpecDirs []string
		// ModulePaths precede the registered folders in ModuleSearchPaths.
		ModulePaths []string
	}

	// Resolver tracks the registered search roots.
	Resolver struct {
		mu         sync.Mutex
		defaults   Defaults
		workspace  []string
		pythonpath []string
		version    uint64
	}
)

// New creates a Resolver. Default locations are normalized; invalid entries
// are dropped.
func New(defaults Defaults) *Resolver {
	return &Resolver{
		defaults: Defaults{
			SpecDirs:    normalizeAll(defaults.SpecDirs),
			ModulePaths: normalizeAll(defaults.ModulePaths),
		},
	}
}

// AddWorkspaceFolder registers a workspace root given as a path or file:// URI.
// It reports whether the set changed.
func (r *Resolver) AddWorkspaceFolder(pathOrURI string) (bool, error) {
	dir, err := types.FilesystemPath(pathOrURI).Normalize()
	if err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.Contains(r.workspace, dir) {
		return false, nil
	}
	r.workspace = append(r.workspace, dir)
	r.version++
	return true, nil
}

// RemoveWorkspaceFolder unregisters a workspace root. Removing a folder that is
// not registered is a no-op.
func (r *Resolver) RemoveWorkspaceFolder(pathOrURI string) (bool, error) {
	dir, err := types.FilesystemPath(pathOrURI).Normalize()
	if err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.Index(r.workspace, dir)
	if i < 0 {
		return false, nil
	}
	r.workspace = slices.Delete(r.workspace, i, i+1)
	r.version++
	return true, nil
}

// AddPythonpathFolder registers an additional module search folder. Folders
// are never removed; re-adding one is a no-op and keeps its original position.
func (r *Resolver) AddPythonpathFolder(pathOrURI string) (bool, error) {
	dir, err := types.FilesystemPath(pathOrURI).Normalize()
	if err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.Contains(r.pythonpath, dir) {
		return false, nil
	}
	r.pythonpath = append(r.pythonpath, dir)
	r.version++
	return true, nil
}

// CandidateSpecLocations returns the directories to scan for specification
// files: the default spec directories followed by the workspace folders.
func (r *Resolver) CandidateSpecLocations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return dedupe(r.defaults.SpecDirs, r.workspace)
}

// ModuleSearchPaths returns the directories handed to the generation
// toolchain: default module paths, then workspace folders, then additional
// folders in insertion order. The most recently added folder is last so it
// can shadow a same-named module found earlier.
func (r *Resolver) ModuleSearchPaths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return dedupe(r.defaults.ModulePaths, r.workspace, r.pythonpath)
}

// WorkspaceFolders returns the registered workspace roots.
func (r *Resolver) WorkspaceFolders() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.workspace)
}

// PythonpathFolders returns the registered additional module search folders.
func (r *Resolver) PythonpathFolders() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.pythonpath)
}

// Version increases on every mutation that changed a set.
func (r *Resolver) Version() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.version
}

// dedupe concatenates the lists keeping the last occurrence of each path, so
// a folder registered late still sorts after the entries it should shadow.
func dedupe(lists ...[]string) []string {
	var all []string
	for _, l := range lists {
		all = append(all, l...)
	}
	last := make(map[string]int, len(all))
	for i, p := range all {
		last[p] = i
	}
	out := make([]string, 0, len(last))
	for i, p := range all {
		if last[p] == i {
			out = append(out, p)
		}
	}
	return out
}

func normalizeAll(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		dir, err := types.FilesystemPath(p).Normalize()
		if err != nil {
			continue
		}
		if !slices.Contains(out, dir) {
			out = append(out, dir)
		}
	}
	return out
}
