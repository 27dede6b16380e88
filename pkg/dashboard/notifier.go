package dashboard

import (
	"sync"
	"time"
)

// SizeNotifier is told that the rendered height of the panel may have
// changed, usually to resize an embedding frame
type SizeNotifier interface {
	NotifySizeChanged()
}

// SizeNotifierFunc adapts a function to SizeNotifier
type SizeNotifierFunc func()

// NotifySizeChanged implements SizeNotifier
func (f SizeNotifierFunc) NotifySizeChanged() { f() }

type nopNotifier struct{}

func (nopNotifier) NotifySizeChanged() {}

// debouncer coalesces size signals: a new schedule replaces a pending one
type debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	notifier SizeNotifier
}

func newDebouncer(notifier SizeNotifier) *debouncer {
	return &debouncer{notifier: notifier}
}

func (d *debouncer) schedule(delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(delay, d.notifier.NotifySizeChanged)
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
