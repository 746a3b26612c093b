// Package timer provides cancellable delayed callbacks decoupled from any UI
// or event loop. Callbacks run on a goroutine owned by the scheduler and must
// only hand work to the caller's own loop (e.g. enqueue a message).
package timer

import (
	"sync"
	"time"
)

// Handle identifies a started timer. The zero Handle never refers to a timer.
type Handle uint64

// Scheduler starts and cancels delayed callbacks.
type Scheduler interface {
	// Start runs onFire once after d. It returns a handle for Cancel.
	Start(d time.Duration, onFire func()) Handle
	// Cancel stops a pending timer. It reports whether the timer was still
	// pending; false means it already fired, was cancelled, or never existed.
	Cancel(h Handle) bool
	// Now is the scheduler's notion of the current time.
	Now() time.Time
}

// Service is the wall-clock Scheduler backed by time.AfterFunc.
type Service struct {
	mu      sync.Mutex
	next    Handle
	pending map[Handle]*time.Timer
}

// NewService creates a wall-clock scheduler.
func NewService() *Service {
	return &Service{pending: make(map[Handle]*time.Timer)}
}

func (s *Service) Start(d time.Duration, onFire func()) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	h := s.next
	s.pending[h] = time.AfterFunc(d, func() {
		s.mu.Lock()
		_, live := s.pending[h]
		delete(s.pending, h)
		s.mu.Unlock()

		if live {
			onFire()
		}
	})
	return h
}

func (s *Service) Cancel(h Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.pending[h]
	if !ok {
		return false
	}
	delete(s.pending, h)
	t.Stop()
	return true
}

func (s *Service) Now() time.Time {
	return time.Now()
}

// Pending returns the number of timers that have neither fired nor been cancelled.
func (s *Service) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
