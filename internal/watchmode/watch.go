// Package watchmode re-runs the heap-lifecycle checker against a set of
// MIR module files whenever one of them changes on disk, grounded on
// the runtime virtual filesystem watcher's fsnotify wrapper.
package watchmode

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchOp mirrors the bitset the wrapped fsnotify op collapses into, so
// callers outside this package never import fsnotify directly.
type WatchOp uint8

const (
	OpCreate WatchOp = 1 << iota
	OpWrite
	OpRemove
	OpRename
	OpChmod
)

// Event is a single filesystem change notification.
type Event struct {
	Path string
	Op   WatchOp
}

// Watcher watches a fixed set of paths and runs fn whenever one of them
// changes, coalescing bursts of events (an editor's save-then-chmod
// sequence, for instance) into a single run via a debounce window.
type Watcher struct {
	w        *fsnotify.Watcher
	debounce time.Duration
}

// New creates a Watcher over paths with the given debounce window. A
// debounce of zero runs fn immediately on every event.
func New(paths []string, debounce time.Duration) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watchmode: create watcher: %w", err)
	}

	for _, p := range paths {
		if err := w.Add(p); err != nil {
			w.Close()

			return nil, fmt.Errorf("watchmode: watch %s: %w", p, err)
		}
	}

	return &Watcher{w: w, debounce: debounce}, nil
}

// Close releases the underlying OS watch handles.
func (w *Watcher) Close() error {
	return w.w.Close()
}

// Run blocks, invoking fn once immediately and again after every
// debounced burst of filesystem events, until ctx is cancelled or the
// watcher's error channel closes.
func (w *Watcher) Run(ctx context.Context, fn func(Event)) error {
	fn(Event{})

	var pending Event
	var armed bool

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.w.Events:
			if !ok {
				return nil
			}

			pending = Event{Path: ev.Name, Op: translate(ev.Op)}

			if w.debounce <= 0 {
				fn(pending)

				continue
			}

			if armed && !timer.Stop() {
				<-timer.C
			}

			timer.Reset(w.debounce)
			armed = true

		case <-timer.C:
			armed = false
			fn(pending)

		case err, ok := <-w.w.Errors:
			if !ok {
				return nil
			}

			return fmt.Errorf("watchmode: watcher error: %w", err)
		}
	}
}

func translate(op fsnotify.Op) WatchOp {
	var out WatchOp

	if op&fsnotify.Create != 0 {
		out |= OpCreate
	}

	if op&fsnotify.Write != 0 {
		out |= OpWrite
	}

	if op&fsnotify.Remove != 0 {
		out |= OpRemove
	}

	if op&fsnotify.Rename != 0 {
		out |= OpRename
	}

	if op&fsnotify.Chmod != 0 {
		out |= OpChmod
	}

	return out
}
