package watch

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Debouncer coalesces rapid events into a single callback invocation. The
// callback receives every distinct path seen since it last fired, sorted.
type Debouncer struct {
	interval time.Duration
	mu       sync.Mutex
	timer    *time.Timer
	callback func(paths []string)
	pending  map[string]struct{}
}

// NewDebouncer creates a debouncer that waits for interval of quiet before
// firing callback.
func NewDebouncer(interval time.Duration, callback func(paths []string)) *Debouncer {
	return &Debouncer{
		interval: interval,
		callback: callback,
		pending:  make(map[string]struct{}),
	}
}

// Trigger records an event for the given path and restarts the quiet period.
func (d *Debouncer) Trigger(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending[path] = struct{}{}

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.interval, d.fire)
}

func (d *Debouncer) fire() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("debouncer callback panicked", slog.Any("error", r))
		}
	}()

	d.mu.Lock()
	paths := make([]string, 0, len(d.pending))
	for p := range d.pending {
		paths = append(paths, p)
	}

	d.pending = make(map[string]struct{})
	d.mu.Unlock()

	if len(paths) == 0 {
		return
	}

	sort.Strings(paths)
	d.callback(paths)
}

// Stop cancels any pending debounced callback and drops recorded paths.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}

	d.pending = make(map[string]struct{})
}
