package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/door-sentry/internal/actuator"
	"github.com/kozaktomas/door-sentry/internal/classifier"
	"github.com/kozaktomas/door-sentry/internal/database"
	"github.com/kozaktomas/door-sentry/internal/gallery"
	"github.com/kozaktomas/door-sentry/internal/log"
	"github.com/kozaktomas/door-sentry/internal/stability"
	"github.com/kozaktomas/door-sentry/internal/timer"
)

// FrameClassifier turns a frame into an observation. *classifier.Classifier implements it.
type FrameClassifier interface {
	Classify(f classifier.Frame) classifier.Observation
}

// Actuator delivers lock commands. actuator.Gateway implementations satisfy it.
type Actuator interface {
	Send(ctx context.Context, cmd actuator.Command) error
}

// Options is the timing and debounce policy.
type Options struct {
	StabilityFrames     int
	ConfirmationTimeout time.Duration
	CooldownDuration    time.Duration
	CountdownSeconds    int           // cosmetic countdown shown while awaiting confirmation; 0 disables it
	ActuatorTimeout     time.Duration // per-command deadline (default 5s)
}

func (o Options) validate() error {
	var errs []error
	if o.StabilityFrames < 1 {
		errs = append(errs, fmt.Errorf("stability frames must be at least 1, got %d", o.StabilityFrames))
	}
	if o.ConfirmationTimeout <= 0 {
		errs = append(errs, fmt.Errorf("confirmation timeout must be positive, got %s", o.ConfirmationTimeout))
	}
	if o.CooldownDuration < 0 {
		errs = append(errs, fmt.Errorf("cooldown must not be negative, got %s", o.CooldownDuration))
	}
	if o.CountdownSeconds < 0 {
		errs = append(errs, fmt.Errorf("countdown must not be negative, got %d", o.CountdownSeconds))
	}
	return errors.Join(errs...)
}

// Deps are the collaborators of the machine. Audit and Notices are optional.
type Deps struct {
	Classifier FrameClassifier
	Scheduler  timer.Scheduler
	Actuator   Actuator
	Audit      database.AuditWriter
	Notices    Publisher
}

// Status is a point-in-time snapshot of the machine for presentation.
type Status struct {
	State         string    `json:"state"`
	Candidate     string    `json:"candidate,omitempty"`
	Authorized    string    `json:"authorized,omitempty"`
	CooldownUntil time.Time `json:"cooldown_until,omitzero"`
	RunLabel      string    `json:"run_label,omitempty"`
	RunLength     int       `json:"run_length"`
	FramesNeeded  int       `json:"frames_needed"`
	Countdown     int       `json:"countdown,omitempty"`
	LastLock      time.Time `json:"last_lock,omitzero"`
	Frames        uint64    `json:"frames_processed"`
	Commands      uint64    `json:"commands_sent"`
}

// Machine holds the access state and applies transitions. It is driven by
// exactly one goroutine (the Controller's loop); nothing here is locked.
type Machine struct {
	opts    Options
	cls     FrameClassifier
	tracker *stability.Tracker
	sched   timer.Scheduler
	act     Actuator
	audit   database.AuditWriter
	notices Publisher
	post    func(message)

	state State
	// scope changes on every transition; timers carry the scope that started them.
	scope   uint64
	handles []timer.Handle

	countdown     int
	facesPrompted bool
	lastLock      time.Time
	frames        uint64
	commands      uint64
}

func newMachine(opts Options, deps Deps, post func(message)) *Machine {
	if opts.ActuatorTimeout <= 0 {
		opts.ActuatorTimeout = 5 * time.Second
	}
	notices := deps.Notices
	if notices == nil {
		notices = discardPublisher{}
	}
	return &Machine{
		opts:    opts,
		cls:     deps.Classifier,
		tracker: stability.New(opts.StabilityFrames),
		sched:   deps.Scheduler,
		act:     deps.Actuator,
		audit:   deps.Audit,
		notices: notices,
		post:    post,
		state:   Locked{},
	}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Status builds a snapshot of the machine.
func (m *Machine) Status() Status {
	st := Status{
		State:        m.state.Name(),
		Candidate:    candidateOf(m.state),
		Authorized:   authorizedOf(m.state),
		RunLabel:     m.tracker.RunLabel(),
		RunLength:    m.tracker.RunLength(),
		FramesNeeded: m.tracker.Window(),
		LastLock:     m.lastLock,
		Frames:       m.frames,
		Commands:     m.commands,
	}
	if c, ok := m.state.(Cooldown); ok {
		st.CooldownUntil = c.Until
	}
	if isAwaiting(m.state) {
		st.Countdown = m.countdown
	}
	return st
}

func (m *Machine) publish(n Notice) {
	n.State = m.state.Name()
	n.At = m.sched.Now()
	m.notices.Publish(n)
}

// setState exits the current state and enters next. Every timer of the old
// state is cancelled and the scope advances, so late fires are stale.
func (m *Machine) setState(next State) {
	for _, h := range m.handles {
		m.sched.Cancel(h)
	}
	m.handles = m.handles[:0]
	m.scope++

	prev := m.state
	m.state = next
	log.Debug("access state changed", "from", prev.Name(), "to", next.Name(), "candidate", candidateOf(next))
	m.publish(Notice{Kind: NoticeState, Identity: candidateOf(next)})
}

func (m *Machine) startTimer(kind timerKind, d time.Duration) {
	token := m.scope
	h := m.sched.Start(d, func() {
		m.post(timerMsg{kind: kind, token: token})
	})
	m.handles = append(m.handles, h)
}

// classify never lets a classifier failure escape into the state machine.
func (m *Machine) classify(f classifier.Frame) (obs classifier.Observation) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("frame classification panicked", "panic", r)
			obs = classifier.Inconclusive(classifier.ReasonExtractionFailed)
		}
	}()
	return m.cls.Classify(f)
}

func (m *Machine) handleFrame(msg frameMsg) {
	m.frames++
	f := msg.frame

	if isAwaiting(m.state) {
		// The decision is pending; frames only refresh the preview.
		m.publish(Notice{Kind: NoticePreview, Identity: candidateOf(m.state), Faces: f.Faces})
		return
	}

	if c, ok := m.state.(Cooldown); ok {
		now := m.sched.Now()
		if now.Before(c.Until) {
			m.publish(Notice{Kind: NoticeCooldownActive, Remaining: ceilSeconds(c.Until.Sub(now))})
			return
		}
		m.setState(Locked{})
	}

	if _, ok := m.state.(Unlocked); ok {
		return
	}

	obs := m.classify(f)
	m.promptForFaces(f, obs, msg.resolved)

	switch s := m.state.(type) {
	case Locked, ScanningUnlock:
		m.observeUnlock(obs)
	case ScanningLock:
		m.observeLock(s, obs)
	}
}

// promptForFaces asks an operator to pick a face once per multi-face run.
func (m *Machine) promptForFaces(f classifier.Frame, obs classifier.Observation, resolved bool) {
	if resolved {
		log.Debug("operator resolved multi-face frame", "prompted", m.facesPrompted)
	}
	if obs.Reason == classifier.ReasonMultipleFaces {
		if !m.facesPrompted {
			m.facesPrompted = true
			m.publish(Notice{Kind: NoticeDisambiguationNeeded, Faces: f.Faces})
		}
		return
	}
	m.facesPrompted = false
}

func faceSeen(obs classifier.Observation) bool {
	return obs.Kind != classifier.KindInconclusive || obs.Reason != classifier.ReasonNoFace
}

func (m *Machine) observeUnlock(obs classifier.Observation) {
	label, stable := m.tracker.Observe(obs)
	if !stable {
		switch m.state.(type) {
		case Locked:
			if faceSeen(obs) {
				m.setState(ScanningUnlock{})
			}
		case ScanningUnlock:
			if !faceSeen(obs) {
				m.setState(Locked{})
			}
		}
		m.publishProgress(obs)
		return
	}

	if label == gallery.UnknownIdentity {
		m.tracker.Reset()
		if _, ok := m.state.(Locked); !ok {
			m.setState(Locked{})
		}
		m.publish(Notice{Kind: NoticeRecognitionFailed, Message: "face not recognized"})
		return
	}

	m.enterAwaiting(AwaitingUnlockConfirm{Candidate: label})
}

func (m *Machine) observeLock(s ScanningLock, obs classifier.Observation) {
	label, stable := m.tracker.Observe(obs)
	if !stable {
		m.publishProgress(obs)
		return
	}

	if label == gallery.UnknownIdentity {
		m.tracker.Reset()
		m.setState(Unlocked{Authorized: s.Authorized})
		m.publish(Notice{Kind: NoticeRecognitionFailed, Message: "face not recognized"})
		return
	}

	m.enterAwaiting(AwaitingLockConfirm{Candidate: label, Authorized: s.Authorized})
}

func (m *Machine) publishProgress(obs classifier.Observation) {
	if obs.Kind != classifier.KindMatch {
		return
	}
	m.publish(Notice{Kind: NoticeProgress, Identity: obs.Identity, Remaining: m.tracker.Remaining()})
}

func (m *Machine) enterAwaiting(next State) {
	m.tracker.Reset()
	m.setState(next)
	m.startTimer(timerConfirm, m.opts.ConfirmationTimeout)

	m.countdown = m.opts.CountdownSeconds
	if m.countdown > 0 {
		m.publish(Notice{Kind: NoticeCountdown, Identity: candidateOf(next), Remaining: m.countdown})
		m.startTimer(timerCountdown, time.Second)
	}
}

func (m *Machine) handleTimer(msg timerMsg) {
	if msg.token != m.scope {
		log.Debug("dropping stale timer", "timer", msg.kind.String(), "state", m.state.Name())
		return
	}

	switch msg.kind {
	case timerConfirm:
		switch s := m.state.(type) {
		case AwaitingUnlockConfirm:
			m.setState(Locked{})
			m.publish(Notice{Kind: NoticeTimedOut, Identity: s.Candidate, Message: "unlock not confirmed in time"})
		case AwaitingLockConfirm:
			m.setState(Unlocked{Authorized: s.Authorized})
			m.publish(Notice{Kind: NoticeTimedOut, Identity: s.Candidate, Message: "lock not confirmed in time"})
		}

	case timerCountdown:
		if !isAwaiting(m.state) || m.countdown <= 0 {
			return
		}
		m.countdown--
		m.publish(Notice{Kind: NoticeCountdown, Identity: candidateOf(m.state), Remaining: m.countdown})
		if m.countdown > 0 {
			m.startTimer(timerCountdown, time.Second)
		}

	case timerCooldown:
		if c, ok := m.state.(Cooldown); ok && !m.sched.Now().Before(c.Until) {
			m.setState(Locked{})
		}
	}
}

func (m *Machine) handleTrigger(ctx context.Context, t Trigger) error {
	switch t {
	case TriggerConfirm:
		return m.confirm(ctx)
	case TriggerDeny:
		return m.deny()
	case TriggerBeginLock:
		return m.beginLock()
	}
	return &TriggerError{Trigger: t, State: m.state.Name()}
}

func (m *Machine) confirm(ctx context.Context) error {
	switch s := m.state.(type) {
	case AwaitingUnlockConfirm:
		next := Unlocked{Authorized: s.Candidate}
		m.setState(next)
		m.actuate(ctx, actuator.Unlock, s.Candidate, s, next)
		return nil

	case AwaitingLockConfirm:
		now := m.sched.Now()
		next := Cooldown{Until: now.Add(m.opts.CooldownDuration)}
		m.lastLock = now
		m.setState(next)
		m.startTimer(timerCooldown, m.opts.CooldownDuration)
		m.actuate(ctx, actuator.Lock, s.Candidate, s, next)
		return nil
	}
	return &TriggerError{Trigger: TriggerConfirm, State: m.state.Name()}
}

func (m *Machine) deny() error {
	switch s := m.state.(type) {
	case AwaitingUnlockConfirm:
		m.setState(Locked{})
		m.publish(Notice{Kind: NoticeDenied, Identity: s.Candidate})
		return nil
	case AwaitingLockConfirm:
		m.setState(Unlocked{Authorized: s.Authorized})
		m.publish(Notice{Kind: NoticeDenied, Identity: s.Candidate})
		return nil
	}
	return &TriggerError{Trigger: TriggerDeny, State: m.state.Name()}
}

func (m *Machine) beginLock() error {
	s, ok := m.state.(Unlocked)
	if !ok {
		return &TriggerError{Trigger: TriggerBeginLock, State: m.state.Name()}
	}
	m.tracker.Reset()
	m.setState(ScanningLock{Authorized: s.Authorized})
	return nil
}

// actuate sends exactly one command for a confirmed transition and records it.
// A failed send does not undo the transition and is not retried.
func (m *Machine) actuate(ctx context.Context, cmd actuator.Command, identity string, prev, next State) {
	ctx, cancel := context.WithTimeout(ctx, m.opts.ActuatorTimeout)
	defer cancel()

	rec := database.NewAuditRecord(identity, prev.Name(), next.Name(), string(cmd), m.sched.Now())

	m.commands++
	if err := m.act.Send(ctx, cmd); err != nil {
		rec.Error = err.Error()
		log.Error("actuator command failed", "command", string(cmd), "identity", identity, "error", err)
		m.publish(Notice{Kind: NoticeActuatorFailed, Identity: identity, Message: err.Error()})
	} else {
		log.Info("actuator command sent", "command", string(cmd), "identity", identity)
	}

	if m.audit == nil {
		return
	}
	if err := m.audit.RecordTransition(ctx, rec); err != nil {
		log.Warn("failed to record audit event", "id", rec.ID.String(), "error", err)
	}
}
