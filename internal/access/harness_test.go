package access

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/door-sentry/internal/actuator"
	"github.com/kozaktomas/door-sentry/internal/classifier"
	"github.com/kozaktomas/door-sentry/internal/database/mock"
	"github.com/kozaktomas/door-sentry/internal/gallery"
	"github.com/kozaktomas/door-sentry/internal/timer"
)

var (
	aliceVec   = []float32{1, 0, 0}
	bobVec     = []float32{0, 1, 0}
	strangeVec = []float32{0, 0, 1}
)

type recordingActuator struct {
	mu   sync.Mutex
	cmds []actuator.Command
	err  error
}

func (a *recordingActuator) Send(_ context.Context, cmd actuator.Command) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cmds = append(a.cmds, cmd)
	return a.err
}

func (a *recordingActuator) commands() []actuator.Command {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]actuator.Command(nil), a.cmds...)
}

type recordingPublisher struct {
	mu      sync.Mutex
	notices []Notice
}

func (p *recordingPublisher) Publish(n Notice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notices = append(p.notices, n)
}

func (p *recordingPublisher) ofKind(kind NoticeKind) []Notice {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Notice
	for _, n := range p.notices {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

type harness struct {
	t       *testing.T
	ctrl    *Controller
	clock   *timer.Fake
	act     *recordingActuator
	audit   *mock.MockAuditStore
	notices *recordingPublisher
}

func testAccessOptions() Options {
	return Options{
		StabilityFrames:     20,
		ConfirmationTimeout: 10 * time.Second,
		CooldownDuration:    10 * time.Second,
		CountdownSeconds:    5,
	}
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()

	store, err := gallery.New(map[string][][]float32{
		"Alice":                 {aliceVec},
		"Bob":                   {bobVec},
		gallery.UnknownIdentity: {strangeVec},
	}, gallery.Options{Threshold: 1.3, Dimension: 3})
	require.NoError(t, err)

	h := &harness{
		t:       t,
		clock:   timer.NewFake(time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)),
		act:     &recordingActuator{},
		audit:   mock.NewMockAuditStore(),
		notices: &recordingPublisher{},
	}
	h.ctrl, err = NewController(opts, Deps{
		Classifier: classifier.New(store),
		Scheduler:  h.clock,
		Actuator:   h.act,
		Audit:      h.audit,
		Notices:    h.notices,
	})
	require.NoError(t, err)
	return h
}

// frames submits n single-face frames with embedding vec and applies them.
func (h *harness) frames(n int, vec []float32) {
	h.t.Helper()
	for range n {
		require.NoError(h.t, h.ctrl.SubmitFrame(classifier.Frame{Faces: 1, Embedding: vec}))
		h.ctrl.Drain(context.Background())
	}
}

func (h *harness) frame(f classifier.Frame) {
	h.t.Helper()
	require.NoError(h.t, h.ctrl.SubmitFrame(f))
	h.ctrl.Drain(context.Background())
}

func (h *harness) trigger(t Trigger) error {
	reply := h.ctrl.Submit(t)
	h.ctrl.Drain(context.Background())
	select {
	case err := <-reply:
		return err
	default:
		h.t.Fatalf("trigger %s was not applied", t)
		return nil
	}
}

func (h *harness) advance(d time.Duration) {
	h.clock.Advance(d)
	h.ctrl.Drain(context.Background())
}

func (h *harness) state() string {
	return h.ctrl.Status().State
}

// unlockAs drives the machine from Locked to Unlocked for the identity of vec.
func (h *harness) unlockAs(vec []float32) {
	h.t.Helper()
	h.frames(20, vec)
	require.Equal(h.t, StateAwaitingUnlockConfirm, h.state())
	require.NoError(h.t, h.trigger(TriggerConfirm))
	require.Equal(h.t, StateUnlocked, h.state())
}

// lockAs drives the machine from Unlocked to Cooldown for the identity of vec.
func (h *harness) lockAs(vec []float32) {
	h.t.Helper()
	require.NoError(h.t, h.trigger(TriggerBeginLock))
	h.frames(20, vec)
	require.Equal(h.t, StateAwaitingLockConfirm, h.state())
	require.NoError(h.t, h.trigger(TriggerConfirm))
	require.Equal(h.t, StateCooldown, h.state())
}

var errActuatorDown = errors.New("actuator offline")
