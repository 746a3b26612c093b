package access

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/kozaktomas/door-sentry/internal/classifier"
	"github.com/kozaktomas/door-sentry/internal/log"
)

// Controller serializes every input of the access machine onto a single
// goroutine. Frames, operator triggers and timer fires are enqueued from any
// goroutine and applied one at a time by Run (or Drain).
type Controller struct {
	machine *Machine
	queue   *messageQueue
	status  atomic.Pointer[Status]
}

// NewController validates opts and deps and returns a controller in Locked.
func NewController(opts Options, deps Deps) (*Controller, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid access options: %w", err)
	}
	switch {
	case deps.Classifier == nil:
		return nil, errors.New("access controller requires a frame classifier")
	case deps.Scheduler == nil:
		return nil, errors.New("access controller requires a timer scheduler")
	case deps.Actuator == nil:
		return nil, errors.New("access controller requires an actuator")
	}

	c := &Controller{queue: newMessageQueue()}
	c.machine = newMachine(opts, deps, func(m message) {
		// Fires after shutdown are dropped.
		c.queue.Enqueue(m)
	})
	c.storeStatus()
	return c, nil
}

// SubmitFrame enqueues a camera frame. It never blocks.
func (c *Controller) SubmitFrame(f classifier.Frame) error {
	if !c.queue.Enqueue(frameMsg{frame: f}) {
		return ErrClosed
	}
	return nil
}

// ResolveFaces answers a multi-face prompt with the embedding of the chosen
// face. It is classified as one single-face frame.
func (c *Controller) ResolveFaces(embedding []float32) error {
	f := classifier.Frame{Faces: 1, Embedding: embedding}
	if !c.queue.Enqueue(frameMsg{frame: f, resolved: true}) {
		return ErrClosed
	}
	return nil
}

// Submit enqueues a trigger and returns a channel that receives its outcome.
func (c *Controller) Submit(t Trigger) <-chan error {
	reply := make(chan error, 1)
	if !c.queue.Enqueue(triggerMsg{trigger: t, reply: reply}) {
		reply <- ErrClosed
	}
	return reply
}

// Trigger applies t and waits for the outcome. An unacceptable trigger
// returns a *TriggerError and leaves the state unchanged.
func (c *Controller) Trigger(ctx context.Context, t Trigger) error {
	select {
	case err := <-c.Submit(t):
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Confirm approves the pending candidate.
func (c *Controller) Confirm(ctx context.Context) error {
	return c.Trigger(ctx, TriggerConfirm)
}

// Deny rejects the pending candidate.
func (c *Controller) Deny(ctx context.Context) error {
	return c.Trigger(ctx, TriggerDeny)
}

// BeginLock starts a lock scan while unlocked.
func (c *Controller) BeginLock(ctx context.Context) error {
	return c.Trigger(ctx, TriggerBeginLock)
}

// Status returns the snapshot taken after the last processed message.
func (c *Controller) Status() Status {
	return *c.status.Load()
}

// Pending returns the number of queued messages.
func (c *Controller) Pending() int {
	return c.queue.Len()
}

// Run processes messages until ctx is cancelled or Close is called.
// Messages queued before Close are still applied.
func (c *Controller) Run(ctx context.Context) error {
	log.Info("access controller started", "state", c.Status().State)
	defer log.Info("access controller stopped")

	for {
		if m, ok := c.queue.TryDequeue(); ok {
			c.process(ctx, m)
			continue
		}

		select {
		case <-ctx.Done():
			c.queue.Close()
			c.failPending()
			return ctx.Err()
		case _, ok := <-c.queue.Wait():
			if !ok && c.queue.Len() == 0 {
				return nil
			}
		}
	}
}

// Drain applies every queued message on the calling goroutine and returns
// how many were applied. It is for deterministic drivers such as the
// simulator and must not be used while Run is active.
func (c *Controller) Drain(ctx context.Context) int {
	n := 0
	for {
		m, ok := c.queue.TryDequeue()
		if !ok {
			return n
		}
		c.process(ctx, m)
		n++
	}
}

// Close stops accepting input. Run returns after the backlog is applied.
func (c *Controller) Close() {
	c.queue.Close()
}

func (c *Controller) process(ctx context.Context, m message) {
	defer c.storeStatus()
	defer func() {
		if r := recover(); r != nil {
			log.Error("access message handling panicked", "panic", r, "state", c.machine.State().Name())
			if t, ok := m.(triggerMsg); ok {
				c.storeStatus()
				t.reply <- fmt.Errorf("handling %s: %v", t.trigger, r)
			}
		}
	}()

	switch m := m.(type) {
	case frameMsg:
		c.machine.handleFrame(m)
	case triggerMsg:
		err := c.machine.handleTrigger(ctx, m.trigger)
		if err != nil {
			log.Debug("trigger rejected", "trigger", string(m.trigger), "error", err)
		}
		// Publish before replying so the caller reads its own transition.
		c.storeStatus()
		m.reply <- err
	case timerMsg:
		c.machine.handleTimer(m)
	default:
		log.Warn("unknown access message", "type", fmt.Sprintf("%T", m))
	}
}

// failPending answers triggers that will never be applied.
func (c *Controller) failPending() {
	for {
		m, ok := c.queue.TryDequeue()
		if !ok {
			return
		}
		if t, ok := m.(triggerMsg); ok {
			t.reply <- ErrClosed
		}
	}
}

func (c *Controller) storeStatus() {
	st := c.machine.Status()
	c.status.Store(&st)
}
