package access

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTrigger is matched by every *TriggerError.
	ErrInvalidTrigger = errors.New("invalid trigger")
	// ErrClosed is returned once the controller has stopped.
	ErrClosed = errors.New("access controller closed")
)

// Trigger names an operator action.
type Trigger string

const (
	TriggerConfirm   Trigger = "confirm"
	TriggerDeny      Trigger = "deny"
	TriggerBeginLock Trigger = "begin_lock"
)

// TriggerError reports a trigger received in a state that does not accept it.
// The state is left unchanged.
type TriggerError struct {
	Trigger Trigger
	State   string
}

func (e *TriggerError) Error() string {
	return fmt.Sprintf("%s not allowed in state %s", e.Trigger, e.State)
}

func (e *TriggerError) Is(target error) bool {
	return target == ErrInvalidTrigger
}
