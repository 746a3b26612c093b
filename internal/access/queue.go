package access

import (
	"sync"

	"github.com/kozaktomas/door-sentry/internal/classifier"
)

// message is anything the Run loop consumes.
type message interface{}

// frameMsg carries one camera frame. resolved marks an operator answer to a
// multi-face prompt.
type frameMsg struct {
	frame    classifier.Frame
	resolved bool
}

// triggerMsg carries an operator trigger; the outcome is sent on reply.
type triggerMsg struct {
	trigger Trigger
	reply   chan error
}

type timerKind int

const (
	timerConfirm timerKind = iota + 1
	timerCountdown
	timerCooldown
)

func (k timerKind) String() string {
	switch k {
	case timerConfirm:
		return "confirmation"
	case timerCountdown:
		return "countdown"
	case timerCooldown:
		return "cooldown"
	}
	return "unknown"
}

// timerMsg is posted by a timer callback. token identifies the scope that
// started the timer.
type timerMsg struct {
	kind  timerKind
	token uint64
}

// messageQueue is an unbounded thread-safe FIFO. Frames, triggers and timer
// fires are enqueued from any goroutine; only the Run loop dequeues.
// signal has capacity 1 so many enqueues coalesce into one wake-up.
type messageQueue struct {
	mu     sync.Mutex
	items  []message
	closed bool
	signal chan struct{}
}

func newMessageQueue() *messageQueue {
	return &messageQueue{
		items:  make([]message, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends m. It returns false once the queue is closed.
func (q *messageQueue) Enqueue(m message) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, m)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front message without blocking.
func (q *messageQueue) TryDequeue() (message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}
	m := q.items[0]
	q.items[0] = nil
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return m, true
}

// Wait returns the wake-up channel. It is closed when the queue closes.
func (q *messageQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued messages.
func (q *messageQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close rejects further enqueues and wakes the consumer.
func (q *messageQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
