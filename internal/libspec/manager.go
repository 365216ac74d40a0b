// SPDX-License-Identifier: MPL-2.0

package libspec

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/rfls/libspec/internal/docfmt"
	"github.com/rfls/libspec/internal/generator"
	"github.com/rfls/libspec/internal/issue"
	"github.com/rfls/libspec/internal/searchpath"
	"github.com/rfls/libspec/internal/specstore"
	"github.com/rfls/libspec/internal/watch"
	"github.com/rfls/libspec/pkg/libdoc"
	"github.com/rfls/libspec/pkg/types"
)

// Manager resolves library names to specifications.
type Manager struct {
	cacheDir  string
	builtins  []libdoc.LibraryName
	warm      bool
	warmLimit int

	store     *specstore.Store
	resolver  *searchpath.Resolver
	gateway   *generator.Gateway
	watcher   *watch.Watcher
	formatter *docfmt.Formatter
	logger    *log.Logger

	// flights covers generate, parse, persist and Put so that a caller
	// arriving after the Gateway flight ended still finds the stored result.
	flights singleflight.Group

	state   atomic.Int32
	stateMu sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
}

// New creates a Manager. Folders listed in cfg are registered immediately;
// nothing touches the filesystem until Start.
func New(cfg Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cacheDir, err := types.FilesystemPath(cfg.CacheDir).Normalize()
	if err != nil {
		return nil, fmt.Errorf("cache dir: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	m := &Manager{
		cacheDir:  cacheDir,
		builtins:  cfg.BuiltinLibraries,
		warm:      cfg.WarmBuiltins,
		warmLimit: cfg.MaxParallelWarm,
		store:     specstore.New(),
		logger:    logger.WithPrefix("libspec"),
	}
	if m.builtins == nil {
		m.builtins = DefaultBuiltinLibraries
	}
	m.builtins = slices.Clone(m.builtins)
	if m.warmLimit == 0 {
		m.warmLimit = DefaultMaxParallelWarm
	}

	m.resolver = searchpath.New(searchpath.Defaults{
		SpecDirs:    append([]string{cacheDir}, cfg.SpecDirs...),
		ModulePaths: cfg.ModulePaths,
	})
	for _, dir := range cfg.WorkspaceFolders {
		if _, err := m.resolver.AddWorkspaceFolder(dir); err != nil {
			return nil, fmt.Errorf("workspace folder: %w", err)
		}
	}
	for _, dir := range cfg.PythonpathFolders {
		if _, err := m.resolver.AddPythonpathFolder(dir); err != nil {
			return nil, fmt.Errorf("pythonpath folder: %w", err)
		}
	}

	m.gateway = generator.NewGateway(cfg.Toolchain,
		generator.WithTimeout(cfg.GenerateTimeout),
		generator.WithLogger(logger.WithPrefix("generator")),
	)

	m.watcher, err = watch.New(watch.Config{
		Store:         m.store,
		Locations:     m.resolver,
		Interval:      cfg.WatchInterval,
		Ignore:        cfg.WatchIgnore,
		DisableNotify: cfg.DisableNotify,
		OnScan:        cfg.OnScan,
		Clock:         cfg.Clock,
		Logger:        logger.WithPrefix("watch"),
	})
	if err != nil {
		return nil, err
	}

	m.formatter, err = docfmt.New(cfg.FormatCacheSize)
	if err != nil {
		return nil, err
	}

	m.state.Store(int32(StateCreated))
	return m, nil
}

// Start runs one synchronous reconcile of the spec locations, then launches
// the watcher and, when configured, background warming of built-in libraries.
// The goroutines outlive ctx; call Stop to end them.
func (m *Manager) Start(ctx context.Context) error {
	if !m.state.CompareAndSwap(int32(StateCreated), int32(StateStarting)) {
		return fmt.Errorf("%w in state %s", ErrNotStartable, m.State())
	}
	if err := ctx.Err(); err != nil {
		err = fmt.Errorf("context cancelled before start: %w", err)
		m.fail(err)
		return err
	}

	if err := os.MkdirAll(m.cacheDir, 0o755); err != nil {
		ae := issue.WrapWithContext(err, "create specification cache", m.cacheDir)
		ae.Suggestions = []string{
			"Check that the parent directory is writable",
			"Point cache_dir at another directory in the libspec config",
		}
		ae.Issue = issue.CacheDirUnwritableId
		m.fail(ae)
		return ae
	}

	res, err := m.watcher.Scan(ctx)
	if err != nil {
		m.fail(err)
		return err
	}
	m.logger.Debug("initial scan", "result", res.String())

	runCtx, cancel := context.WithCancel(context.Background())

	// A Stop that ran during the scan has already waited; launching now would
	// leave goroutines nobody cancels.
	m.stateMu.Lock()
	if m.State() != StateStarting {
		m.stateMu.Unlock()
		cancel()
		return fmt.Errorf("%w: stopped while starting", ErrNotStartable)
	}
	m.cancel = cancel
	m.wg.Add(1)
	if m.warm {
		m.wg.Add(1)
	}
	m.stateMu.Unlock()

	go func() {
		defer m.wg.Done()
		if err := m.watcher.Run(runCtx); err != nil {
			m.logger.Error("watcher stopped", "error", err)
		}
	}()

	if m.warm {
		go func() {
			defer m.wg.Done()
			m.warmBuiltins(runCtx)
		}()
	}

	m.state.CompareAndSwap(int32(StateStarting), int32(StateRunning))
	return nil
}

// Stop cancels the background goroutines and waits for them to exit. It is
// safe to call more than once.
func (m *Manager) Stop() error {
	for {
		current := m.State()
		if current.IsTerminal() || current == StateStopping {
			return nil
		}
		if current == StateCreated {
			if m.state.CompareAndSwap(int32(StateCreated), int32(StateStopped)) {
				return nil
			}
			continue
		}
		if m.swapState(current, StateStopping) {
			break
		}
	}

	m.stateMu.Lock()
	cancel := m.cancel
	m.stateMu.Unlock()
	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
	m.state.Store(int32(StateStopped))
	return nil
}

// swapState moves from one state to another under stateMu, so Start's
// launch decision and Stop's transition are ordered.
func (m *Manager) swapState(from, to State) bool {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.state.CompareAndSwap(int32(from), int32(to))
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// LastError returns the error that caused the Failed state, or nil.
func (m *Manager) LastError() error {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.lastErr
}

func (m *Manager) fail(err error) {
	m.stateMu.Lock()
	m.lastErr = err
	m.stateMu.Unlock()
	m.state.Store(int32(StateFailed))
}

// GetLibraryNames returns the names currently in the store together with the
// configured built-in libraries, sorted and without duplicates.
func (m *Manager) GetLibraryNames() []libdoc.LibraryName {
	set := make(map[libdoc.LibraryName]struct{}, m.store.Len()+len(m.builtins))
	for _, n := range m.store.Names() {
		set[n] = struct{}{}
	}
	for _, n := range m.builtins {
		set[n] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}

// AddWorkspaceFolder registers a workspace root, given as a path or file://
// URI, and wakes the watcher so its specification files are picked up.
func (m *Manager) AddWorkspaceFolder(pathOrURI string) (bool, error) {
	return m.wakeIf(m.resolver.AddWorkspaceFolder(pathOrURI))
}

// RemoveWorkspaceFolder unregisters a workspace root. Libraries backed by
// files under it are evicted by the next scan.
func (m *Manager) RemoveWorkspaceFolder(pathOrURI string) (bool, error) {
	return m.wakeIf(m.resolver.RemoveWorkspaceFolder(pathOrURI))
}

// AddAdditionalPythonpathFolder registers an extra module search folder used
// by later generations.
func (m *Manager) AddAdditionalPythonpathFolder(pathOrURI string) (bool, error) {
	return m.wakeIf(m.resolver.AddPythonpathFolder(pathOrURI))
}

func (m *Manager) wakeIf(changed bool, err error) (bool, error) {
	if changed {
		m.watcher.Wake()
	}
	return changed, err
}

// Sync runs one reconcile of the store against the spec locations now.
func (m *Manager) Sync(ctx context.Context) (watch.Result, error) {
	return m.watcher.Scan(ctx)
}

// Formatter returns the documentation formatter shared by consumers.
func (m *Manager) Formatter() *docfmt.Formatter { return m.formatter }

// CacheDir returns the directory generated specifications are written to.
func (m *Manager) CacheDir() string { return m.cacheDir }

// SpecLocations returns the directories the watcher currently scans.
func (m *Manager) SpecLocations() []string { return m.resolver.CandidateSpecLocations() }

// ModuleSearchPaths returns the folders handed to the toolchain.
func (m *Manager) ModuleSearchPaths() []string { return m.resolver.ModuleSearchPaths() }

// Generations returns how many times the toolchain has been invoked.
func (m *Manager) Generations() int64 { return m.gateway.Invocations() }

// warmBuiltins generates every missing built-in library. An environment
// fault stops the remaining work, since no later generation can succeed.
func (m *Manager) warmBuiltins(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.warmLimit)
	for _, name := range m.builtins {
		if _, ok := m.store.Get(name); ok {
			continue
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			_, err := m.GetLibraryInfo(gctx, name, true)
			if generator.IsEnvironmentFault(err) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		m.logger.Warn("warming built-in libraries stopped", "error", err)
		return
	}
	m.logger.Debug("built-in libraries warmed", "count", len(m.builtins))
}
