package timer

import (
	"sort"
	"sync"
	"time"
)

// Fake is a manually advanced Scheduler for tests and offline simulation.
// Callbacks run synchronously inside Advance, in deadline order, with Now
// set to each callback's deadline.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	next   Handle
	timers []fakeTimer
}

type fakeTimer struct {
	handle   Handle
	deadline time.Time
	fn       func()
}

// NewFake creates a Fake whose clock starts at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Start(d time.Duration, onFire func()) Handle {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.next++
	f.timers = append(f.timers, fakeTimer{handle: f.next, deadline: f.now.Add(d), fn: onFire})
	return f.next
}

func (f *Fake) Cancel(h Handle) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, t := range f.timers {
		if t.handle == h {
			f.timers = append(f.timers[:i], f.timers[i+1:]...)
			return true
		}
	}
	return false
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d, firing every timer that falls due.
// Timers started by a callback fire in the same call if they are due.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		due, ok := f.popDue(target)
		if !ok {
			f.now = target
			f.mu.Unlock()
			return
		}
		f.now = due.deadline
		f.mu.Unlock()

		due.fn()
	}
}

// Pending returns the number of timers not yet fired or cancelled.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.timers)
}

// popDue removes and returns the earliest timer due at or before target.
// Equal deadlines fire in start order. Caller holds f.mu.
func (f *Fake) popDue(target time.Time) (fakeTimer, bool) {
	if len(f.timers) == 0 {
		return fakeTimer{}, false
	}
	sort.SliceStable(f.timers, func(i, j int) bool {
		return f.timers[i].deadline.Before(f.timers[j].deadline)
	})
	first := f.timers[0]
	if first.deadline.After(target) {
		return fakeTimer{}, false
	}
	f.timers = f.timers[1:]
	return first, true
}
