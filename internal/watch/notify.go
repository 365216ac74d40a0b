// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// notifier turns fsnotify events on specification files into loop wake-ups.
// Its directory registrations follow the set of directories visited by the
// latest scan. sync and close are called from the scan loop only.
type notifier struct {
	fsw     *fsnotify.Watcher
	watched map[string]struct{}
	wakeups chan struct{}
	errors  chan error
	done    chan struct{}
	ignored func(rel string) bool
}

func newNotifier(ignored func(rel string) bool) (*notifier, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	n := &notifier{
		fsw:     fsw,
		watched: make(map[string]struct{}),
		wakeups: make(chan struct{}, 1),
		errors:  make(chan error, 1),
		done:    make(chan struct{}),
		ignored: ignored,
	}
	go n.forward()
	return n, nil
}

// forward filters raw events so the scan loop only wakes for spec files and
// new directories.
func (n *notifier) forward() {
	for {
		select {
		case <-n.done:
			return
		case evt, ok := <-n.fsw.Events:
			if !ok {
				return
			}
			if !n.relevant(evt) {
				continue
			}
			select {
			case n.wakeups <- struct{}{}:
			default:
			}
		case err, ok := <-n.fsw.Errors:
			if !ok {
				return
			}
			select {
			case n.errors <- err:
			case <-n.done:
				return
			}
		}
	}
}

func (n *notifier) relevant(evt fsnotify.Event) bool {
	if evt.Has(fsnotify.Chmod) && !evt.Has(fsnotify.Write) {
		return false
	}
	if matchesSpec(filepath.Base(evt.Name)) {
		return true
	}
	// New or removed directories change what the next scan must register.
	// watched belongs to the scan loop, so it is not consulted here.
	if evt.Has(fsnotify.Create) || evt.Has(fsnotify.Remove) || evt.Has(fsnotify.Rename) {
		return filepath.Ext(evt.Name) == "" && !n.ignored(filepath.Base(evt.Name))
	}
	return false
}

// sync registers new directories and drops ones the scan no longer visits.
func (n *notifier) sync(dirs []string, logger *log.Logger) {
	want := make(map[string]struct{}, len(dirs))
	for _, d := range dirs {
		want[d] = struct{}{}
		if _, ok := n.watched[d]; ok {
			continue
		}
		if err := n.fsw.Add(d); err != nil {
			logger.Debug("cannot watch directory", "dir", d, "error", err)
			continue
		}
		n.watched[d] = struct{}{}
	}
	for d := range n.watched {
		if _, ok := want[d]; ok {
			continue
		}
		// Removal fails when the directory is already gone; fsnotify has
		// dropped it by then.
		_ = n.fsw.Remove(d)
		delete(n.watched, d)
	}
}

func (n *notifier) close(logger *log.Logger) {
	select {
	case <-n.done:
		return
	default:
	}
	close(n.done)
	if err := n.fsw.Close(); err != nil {
		logger.Debug("close fsnotify", "error", err)
	}
}
