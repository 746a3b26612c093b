package access

import (
	"sync"
	"time"
)

// NoticeKind classifies a status notice.
type NoticeKind string

const (
	NoticeState                NoticeKind = "state"
	NoticeProgress             NoticeKind = "progress"
	NoticeCooldownActive       NoticeKind = "cooldown_active"
	NoticeRecognitionFailed    NoticeKind = "recognition_failed"
	NoticeCountdown            NoticeKind = "countdown"
	NoticePreview              NoticeKind = "preview"
	NoticeTimedOut             NoticeKind = "timed_out"
	NoticeDenied               NoticeKind = "denied"
	NoticeActuatorFailed       NoticeKind = "actuator_failed"
	NoticeDisambiguationNeeded NoticeKind = "disambiguation_needed"
)

// Notice is a presentation event. Notices never drive transitions.
type Notice struct {
	Kind      NoticeKind `json:"kind"`
	State     string     `json:"state"`
	Identity  string     `json:"identity,omitempty"`
	Remaining int        `json:"remaining,omitempty"` // frames, seconds of countdown, or seconds of cooldown
	Faces     int        `json:"faces,omitempty"`
	Message   string     `json:"message,omitempty"`
	At        time.Time  `json:"at"`
}

// Publisher receives notices from the machine.
type Publisher interface {
	Publish(n Notice)
}

// DefaultListenerBuffer is the per-listener channel capacity.
const DefaultListenerBuffer = 64

// Hub fans notices out to listeners. A listener whose buffer is full misses
// the notice; publishing never blocks the state machine.
type Hub struct {
	mu        sync.RWMutex
	listeners []chan Notice
	buffer    int
}

// NewHub creates a hub with the given per-listener buffer size.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultListenerBuffer
	}
	return &Hub{buffer: buffer}
}

// AddListener registers a new listener.
func (h *Hub) AddListener() chan Notice {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan Notice, h.buffer)
	h.listeners = append(h.listeners, ch)
	return ch
}

// RemoveListener unregisters and closes a listener.
func (h *Hub) RemoveListener(ch chan Notice) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, listener := range h.listeners {
		if listener == ch {
			h.listeners = append(h.listeners[:i], h.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// Publish sends n to every listener without blocking.
func (h *Hub) Publish(n Notice) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, listener := range h.listeners {
		select {
		case listener <- n:
		default:
			// Listener buffer full, skip.
		}
	}
}

// Listeners returns the number of registered listeners.
func (h *Hub) Listeners() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}

type discardPublisher struct{}

func (discardPublisher) Publish(Notice) {}
