package access

import "time"

// State is one of the access-control states. The set of implementations is closed.
type State interface {
	Name() string
	isState()
}

// Locked is the idle, secured state.
type Locked struct{}

// ScanningUnlock means a face is in view and the unlock run is accumulating.
type ScanningUnlock struct{}

// AwaitingUnlockConfirm waits for an operator to approve unlocking for Candidate.
type AwaitingUnlockConfirm struct {
	Candidate string
}

// Unlocked means the door is open; Authorized confirmed the unlock.
type Unlocked struct {
	Authorized string
}

// ScanningLock accumulates a lock run after an explicit begin-lock trigger.
type ScanningLock struct {
	Authorized string
}

// AwaitingLockConfirm waits for an operator to approve locking by Candidate.
type AwaitingLockConfirm struct {
	Candidate  string
	Authorized string
}

// Cooldown blocks unlock scanning until Until.
type Cooldown struct {
	Until time.Time
}

const (
	StateLocked                = "locked"
	StateScanningUnlock        = "scanning_unlock"
	StateAwaitingUnlockConfirm = "awaiting_unlock_confirm"
	StateUnlocked              = "unlocked"
	StateScanningLock          = "scanning_lock"
	StateAwaitingLockConfirm   = "awaiting_lock_confirm"
	StateCooldown              = "cooldown"
)

func (Locked) Name() string                { return StateLocked }
func (ScanningUnlock) Name() string        { return StateScanningUnlock }
func (AwaitingUnlockConfirm) Name() string { return StateAwaitingUnlockConfirm }
func (Unlocked) Name() string              { return StateUnlocked }
func (ScanningLock) Name() string          { return StateScanningLock }
func (AwaitingLockConfirm) Name() string   { return StateAwaitingLockConfirm }
func (Cooldown) Name() string              { return StateCooldown }

func (Locked) isState()                {}
func (ScanningUnlock) isState()        {}
func (AwaitingUnlockConfirm) isState() {}
func (Unlocked) isState()              {}
func (ScanningLock) isState()          {}
func (AwaitingLockConfirm) isState()   {}
func (Cooldown) isState()              {}

// candidateOf returns the identity awaiting confirmation, if any.
func candidateOf(s State) string {
	switch s := s.(type) {
	case AwaitingUnlockConfirm:
		return s.Candidate
	case AwaitingLockConfirm:
		return s.Candidate
	}
	return ""
}

// authorizedOf returns the identity that opened the door, if any.
func authorizedOf(s State) string {
	switch s := s.(type) {
	case Unlocked:
		return s.Authorized
	case ScanningLock:
		return s.Authorized
	case AwaitingLockConfirm:
		return s.Authorized
	}
	return ""
}

func isAwaiting(s State) bool {
	switch s.(type) {
	case AwaitingUnlockConfirm, AwaitingLockConfirm:
		return true
	}
	return false
}

// ceilSeconds rounds a positive duration up to whole seconds.
func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
