// SPDX-License-Identifier: MPL-2.0

// Package watch keeps a specification store in step with the specification
// files on disk.
//
// A Watcher periodically enumerates every *.libspec file under the current
// candidate locations, reparses files that are new or whose modification time
// (truncated to whole seconds) moved forward, and evicts libraries whose
// backing file vanished. fsnotify events and explicit Wake calls shorten the
// sleep between cycles but are never relied on for correctness: the periodic
// scan is the source of truth.
//
// Two writes to the same file within one second carry the same truncated
// mtime. A changed size still triggers a reparse, but same-size rewrites in
// the same second are indistinguishable.
package watch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/rfls/libspec/internal/specstore"
	"github.com/rfls/libspec/pkg/libdoc"
	"github.com/rfls/libspec/pkg/specparse"
)

// DefaultInterval is the scan period when none is configured.
const DefaultInterval = 500 * time.Millisecond

// ErrAlreadyRunning is returned by a second call to Run.
var ErrAlreadyRunning = errors.New("watch: Run called more than once")

type (
	// Locations supplies the directories to scan. It is consulted at the
	// start of every cycle.
	Locations interface {
		CandidateSpecLocations() []string
	}

	// ParseFunc turns the bytes of one specification file into a doc.
	ParseFunc func(data []byte, path string) (*libdoc.LibraryDoc, error)

	// Clock abstracts the time source of the scan loop.
	Clock interface {
		Now() time.Time
		After(d time.Duration) <-chan time.Time
	}

	// Config holds the parameters for a Watcher.
	Config struct {
		// Store receives parsed specifications. Required.
		Store *specstore.Store

		// Locations lists the directories to scan. Required.
		Locations Locations

		// Parse defaults to specparse.Parse.
		Parse ParseFunc

		// Interval is the period between scans. Zero or negative values fall
		// back to DefaultInterval.
		Interval time.Duration

		// Ignore are additional doublestar-compatible patterns, relative to a
		// scanned location, for paths that are never scanned. They are
		// merged with the built-in default ignores.
		Ignore []string

		// DisableNotify turns off fsnotify wake-ups, leaving pure polling.
		DisableNotify bool

		// OnScan, when set, is called after every cycle that changed the store
		// or hit a parse failure.
		OnScan func(Result)

		Clock  Clock
		Logger *log.Logger
	}

	// Result summarizes one scan cycle.
	Result struct {
		Added   []libdoc.LibraryName
		Updated []libdoc.LibraryName
		Removed []libdoc.LibraryName
		// Failed lists specification files that could not be read or parsed.
		Failed []string
		// Files is the number of specification files found.
		Files int
	}

	// Watcher reconciles a Store against the filesystem. Run must be called at
	// most once; Scan may be called at any time, including while Run is active.
	Watcher struct {
		cfg      Config
		parse    ParseFunc
		interval time.Duration
		ignores  []string
		clock    Clock
		logger   *log.Logger
		wake     chan struct{}
		started  atomic.Bool

		// scanMu serializes cycles; seen and dirs belong to it.
		scanMu sync.Mutex
		seen   map[string]fileState
		dirs   []string
	}

	// fileState is what the last cycle learned about one spec file.
	fileState struct {
		name   libdoc.LibraryName
		mtime  time.Time
		size   int64
		failed bool
	}

	realClock struct{}
)

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Changed reports whether the cycle altered the store.
func (r Result) Changed() bool {
	return len(r.Added)+len(r.Updated)+len(r.Removed) > 0
}

// String renders a one-line summary for logs.
func (r Result) String() string {
	return fmt.Sprintf("files=%d added=%d updated=%d removed=%d failed=%d",
		r.Files, len(r.Added), len(r.Updated), len(r.Removed), len(r.Failed))
}

// Validate returns an error if a required field is missing or an ignore
// pattern is malformed.
func (c Config) Validate() error {
	var errs []error
	if c.Store == nil {
		errs = append(errs, errors.New("watch: Store is required"))
	}
	if c.Locations == nil {
		errs = append(errs, errors.New("watch: Locations is required"))
	}
	if err := validatePatterns(c.Ignore, "ignore"); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// New creates a Watcher from cfg.
func New(cfg Config) (*Watcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	w := &Watcher{
		cfg:      cfg,
		parse:    cfg.Parse,
		interval: cfg.Interval,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
		wake:     make(chan struct{}, 1),
		seen:     make(map[string]fileState),
	}
	if w.parse == nil {
		w.parse = specparse.Parse
	}
	if w.interval <= 0 {
		w.interval = DefaultInterval
	}
	if w.clock == nil {
		w.clock = realClock{}
	}
	if w.logger == nil {
		w.logger = log.Default().WithPrefix("watch")
	}

	w.ignores = make([]string, 0, len(defaultIgnores)+len(cfg.Ignore))
	w.ignores = append(w.ignores, defaultIgnores...)
	w.ignores = append(w.ignores, cfg.Ignore...)
	return w, nil
}

// Wake asks a running loop to start its next cycle now. It never blocks.
func (w *Watcher) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Interval returns the effective scan period.
func (w *Watcher) Interval() time.Duration { return w.interval }

// Run scans until ctx is cancelled. It returns nil on cancellation. fsnotify
// failures degrade the loop to pure polling instead of stopping it.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	var n *notifier
	if !w.cfg.DisableNotify {
		var err error
		if n, err = newNotifier(w.isIgnoredDir); err != nil {
			w.logger.Warn("file notifications unavailable, polling only", "error", err)
			n = nil
		}
	}
	defer func() {
		if n != nil {
			n.close(w.logger)
		}
	}()

	for {
		res, dirs := w.scan(ctx)
		if ctx.Err() != nil {
			return nil
		}
		w.report(res)
		if n != nil {
			n.sync(dirs, w.logger)
		}

		if !w.sleep(ctx, &n) {
			return nil
		}
	}
}

// sleep waits for the next cycle trigger. It reports false when ctx ended.
func (w *Watcher) sleep(ctx context.Context, np **notifier) bool {
	timer := w.clock.After(w.interval)
	for {
		var events <-chan struct{}
		var errs <-chan error
		if *np != nil {
			events, errs = (*np).wakeups, (*np).errors
		}

		select {
		case <-ctx.Done():
			return false
		case <-timer:
			return true
		case <-w.wake:
			return true
		case <-events:
			return true
		case err := <-errs:
			if isFatalFsnotifyError(err) {
				w.logger.Warn("file notifications failed, falling back to polling", "error", err)
				(*np).close(w.logger)
				*np = nil
				continue
			}
			w.logger.Debug("fsnotify error", "error", err)
		}
	}
}

// Scan runs one reconcile cycle synchronously and returns what it changed.
func (w *Watcher) Scan(ctx context.Context) (Result, error) {
	res, _ := w.scan(ctx)
	if err := ctx.Err(); err != nil {
		return res, err
	}
	w.report(res)
	return res, nil
}

func (w *Watcher) report(res Result) {
	if res.Changed() {
		w.logger.Debug("reconciled specifications", "added", res.Added, "updated", res.Updated, "removed", res.Removed)
	}
	if w.cfg.OnScan != nil && (res.Changed() || len(res.Failed) > 0) {
		w.cfg.OnScan(res)
	}
}
