package table

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet period before a search or filter edit is
// applied.
const DefaultDebounce = 500 * time.Millisecond

// Debouncer delivers the last value it was given once no new value has arrived
// for the delay. A value equal to the previously delivered one is dropped.
type Debouncer struct {
	delay time.Duration
	fn    func(string)

	mu      sync.Mutex
	timer   *time.Timer
	seq     uint64
	last    string
	emitted bool
	stopped bool
}

// NewDebouncer returns a Debouncer calling fn. A non-positive delay uses
// DefaultDebounce.
func NewDebouncer(delay time.Duration, fn func(string)) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger schedules v, replacing any value still waiting.
func (d *Debouncer) Trigger(v string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = time.AfterFunc(d.delay, func() { d.fire(v, seq) })
}

// Stop cancels the pending value. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}

func (d *Debouncer) fire(v string, seq uint64) {
	d.mu.Lock()
	if d.stopped || seq != d.seq || (d.emitted && v == d.last) {
		d.mu.Unlock()
		return
	}
	d.last = v
	d.emitted = true
	d.mu.Unlock()
	d.fn(v)
}
