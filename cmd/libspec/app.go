// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/rfls/libspec/internal/config"
	"github.com/rfls/libspec/internal/generator"
	"github.com/rfls/libspec/internal/generator/pystatic"
	"github.com/rfls/libspec/internal/libspec"
	"github.com/rfls/libspec/internal/watch"
	"github.com/rfls/libspec/pkg/types"
)

type (
	// App wires CLI services and shared dependencies. All Cobra command
	// handlers receive an App reference instead of reaching for globals.
	App struct {
		Config ConfigProvider
		stdout io.Writer
		stderr io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil fields
	// are replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		Stdout io.Writer
		Stderr io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// rootFlagValues holds the persistent flags shared by every subcommand.
	rootFlagValues struct {
		verbose    bool
		configPath string
	}

	// folderFlagValues holds the per-invocation folder overrides.
	folderFlagValues struct {
		workspace  []string
		pythonpath []string
	}

	// session is one loaded configuration plus the logger built from it.
	session struct {
		cfg    *config.Config
		logger *log.Logger
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	return &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}
}

func (f *rootFlagValues) loadOptions() config.LoadOptions {
	return config.LoadOptions{ConfigFilePath: types.FilesystemPath(f.configPath)}
}

// open loads the configuration and installs a logger for it. The logger also
// becomes the log/slog default so library code logging through slog shares
// the same sink.
func (a *App) open(ctx context.Context, flags *rootFlagValues) (*session, error) {
	cfg, err := a.Config.Load(ctx, flags.loadOptions())
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level.Level()
	if flags.verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(a.stderr, log.Options{
		Level:           level,
		ReportTimestamp: flags.verbose,
	})
	slog.SetDefault(slog.New(logger))

	return &session{cfg: cfg, logger: logger}, nil
}

// newToolchain selects the generation backend for the configured mode.
func newToolchain(gc config.GeneratorConfig) (generator.Toolchain, error) {
	if gc.Mode == config.GeneratorModeStatic {
		return pystatic.New(), nil
	}
	tc, err := generator.NewLibdocToolchain(gc.Command)
	if err != nil {
		return nil, err
	}
	return tc, nil
}

// managerConfig maps the file configuration onto a libspec.Config. Folder
// flags are appended after the configured folders.
func (s *session) managerConfig(folders folderFlagValues, onScan func(watch.Result)) (libspec.Config, error) {
	cfg := s.cfg

	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		var err error
		if cacheDir, err = config.DefaultCacheDir(); err != nil {
			return libspec.Config{}, err
		}
	}

	tc, err := newToolchain(cfg.Generator)
	if err != nil {
		return libspec.Config{}, fmt.Errorf("generator: %w", err)
	}

	return libspec.Config{
		CacheDir:          cacheDir,
		SpecDirs:          cfg.SpecDirs,
		WorkspaceFolders:  slices.Concat(cfg.WorkspaceFolders, folders.workspace),
		PythonpathFolders: slices.Concat(cfg.Pythonpath, folders.pythonpath),
		Toolchain:         tc,
		GenerateTimeout:   cfg.Generator.Timeout,
		BuiltinLibraries:  cfg.Builtins(),
		WarmBuiltins:      cfg.WarmBuiltins,
		MaxParallelWarm:   cfg.Generator.MaxParallelWarm,
		WatchInterval:     cfg.Watch.Interval,
		WatchIgnore:       cfg.Watch.Ignore,
		DisableNotify:     cfg.Watch.DisableNotify,
		OnScan:            onScan,
		Logger:            s.logger,
	}, nil
}

// startManager builds and starts a Manager. Callers must Stop it.
func (s *session) startManager(ctx context.Context, folders folderFlagValues, onScan func(watch.Result)) (*libspec.Manager, error) {
	mcfg, err := s.managerConfig(folders, onScan)
	if err != nil {
		return nil, err
	}
	m, err := libspec.New(mcfg)
	if err != nil {
		return nil, err
	}
	if err := m.Start(ctx); err != nil {
		_ = m.Stop()
		return nil, err
	}
	return m, nil
}

func (s *session) stopManager(m *libspec.Manager) {
	if err := m.Stop(); err != nil {
		s.logger.Warn("stopping manager", "error", err)
	}
}
