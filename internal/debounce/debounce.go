package debounce

import (
	"sync"
	"time"
)

// afterFunc is swapped out by tests to control timer firing.
var afterFunc = time.AfterFunc

// Debouncer coalesces bursts of Trigger calls into a single invocation of fn
// after delay has elapsed without a new Trigger. A non-zero maxWait bounds how
// long a continuous burst can postpone fn: once a pending invocation has
// waited maxWait, the next Trigger fires it immediately instead of pushing it
// further out.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	maxWait time.Duration
	timer   *time.Timer
	gen     uint64
	pending time.Time
	fn      func()
}

func New(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// NewWithMaxWait returns a Debouncer whose pending invocation is never
// postponed past maxWait from the first Trigger of a burst.
func NewWithMaxWait(delay, maxWait time.Duration, fn func()) *Debouncer {
	return &Debouncer{delay: delay, maxWait: maxWait, fn: fn}
}

func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	now := time.Now()
	if d.pending.IsZero() {
		d.pending = now
	}
	delay := d.delay
	if d.maxWait > 0 {
		if deadline := d.pending.Add(d.maxWait); deadline.Before(now.Add(delay)) {
			delay = deadline.Sub(now)
			if delay < 0 {
				delay = 0
			}
		}
	}
	d.gen++
	gen := d.gen
	d.timer = afterFunc(delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		// A newer Trigger or Stop superseded this timer.
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.pending = time.Time{}
	fn := d.fn
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.pending = time.Time{}
}
