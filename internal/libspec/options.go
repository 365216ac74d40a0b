// SPDX-License-Identifier: MPL-2.0

package libspec

import (
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/rfls/libspec/internal/generator"
	"github.com/rfls/libspec/internal/watch"
	"github.com/rfls/libspec/pkg/libdoc"
)

// DefaultMaxParallelWarm bounds concurrent generations while warming
// built-in libraries.
const DefaultMaxParallelWarm = 2

// DefaultBuiltinLibraries are the standard libraries every Robot Framework
// installation ships. They are always listed by GetLibraryNames.
var DefaultBuiltinLibraries = []libdoc.LibraryName{
	"BuiltIn",
	"Collections",
	"DateTime",
	"Dialogs",
	"Easter",
	"OperatingSystem",
	"Process",
	"Remote",
	"Screenshot",
	"String",
	"Telnet",
	"XML",
}

// Config holds the parameters for a Manager.
type Config struct {
	// CacheDir receives generated specification files, one per library. It
	// is always scanned before SpecDirs. Required.
	CacheDir string

	// SpecDirs are extra directories holding pre-built specification files.
	SpecDirs []string

	// ModulePaths precede registered folders when generating.
	ModulePaths []string

	// WorkspaceFolders and PythonpathFolders are registered at construction,
	// as if added through the folder operations.
	WorkspaceFolders  []string
	PythonpathFolders []string

	// Toolchain generates missing specifications. Required.
	Toolchain generator.Toolchain

	// GenerateTimeout bounds one generation; zero selects generator.DefaultTimeout.
	GenerateTimeout time.Duration

	// BuiltinLibraries overrides DefaultBuiltinLibraries when non-nil.
	BuiltinLibraries []libdoc.LibraryName

	// WarmBuiltins generates missing built-in specifications in the
	// background after Start.
	WarmBuiltins    bool
	MaxParallelWarm int

	WatchInterval time.Duration
	WatchIgnore   []string
	DisableNotify bool
	// OnScan is forwarded to the watcher.
	OnScan func(watch.Result)
	Clock  watch.Clock

	// FormatCacheSize bounds the rendered documentation cache.
	FormatCacheSize int

	Logger *log.Logger
}

// Validate returns an error if a required field is missing or invalid.
func (c Config) Validate() error {
	var errs []error
	if c.CacheDir == "" {
		errs = append(errs, errors.New("libspec: CacheDir is required"))
	}
	if c.Toolchain == nil {
		errs = append(errs, errors.New("libspec: Toolchain is required"))
	}
	for _, name := range c.BuiltinLibraries {
		if err := name.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.MaxParallelWarm < 0 {
		errs = append(errs, errors.New("libspec: MaxParallelWarm must not be negative"))
	}
	return errors.Join(errs...)
}
