package daemon

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"repocket/pkg/repocket/logging"
)

// DefaultDebounce is how long descriptor activity must settle before a watch
// callback fires. The device rewrites several descriptor files in a burst
// when a document is moved.
const DefaultDebounce = 2 * time.Second

// Watcher observes the device document directory and reports settled bursts
// of descriptor changes. The directory is flat, so no recursive watches are
// needed.
type Watcher struct {
	fsw      *fsnotify.Watcher
	root     string
	debounce time.Duration
	log      *logging.Logger

	mu     sync.Mutex
	closed bool
}

// WatcherOption tunes a Watcher.
type WatcherOption func(*Watcher)

func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

func NewWatcher(root string, opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsw.Add(root); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", root, err)
	}

	w := &Watcher{
		fsw:      fsw,
		root:     root,
		debounce: DefaultDebounce,
		log:      logging.Get("watcher"),
	}
	for _, o := range opts {
		o(w)
	}
	return w, nil
}

// Run blocks until the context is cancelled, invoking onSettle once per
// settled burst of descriptor changes.
func (w *Watcher) Run(ctx context.Context, onSettle func()) {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	pending := false
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !descriptorEvent(event) {
				continue
			}
			w.log.Debug("descriptor changed", "path", event.Name, "op", event.Op.String())
			if pending && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)
			pending = true

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("watch error", "error", err)

		case <-timer.C:
			pending = false
			onSettle()
		}
	}
}

// descriptorEvent reports whether the event touches a document descriptor.
// Payload and thumbnail churn is ignored.
func descriptorEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}
	return strings.HasSuffix(event.Name, ".metadata")
}

// Close stops the watcher and releases its resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.fsw.Close()
}
