package gallery

import (
	"errors"
	"fmt"
)

// ErrConfiguration marks enrollment data the engine refuses to start with.
var ErrConfiguration = errors.New("gallery configuration error")

// ConfigError describes why enrollment data was rejected.
type ConfigError struct {
	Identity string // empty when the problem is not tied to one identity
	Reason   string
	Err      error // optional underlying cause
}

func (e *ConfigError) Error() string {
	msg := e.Reason
	if e.Identity != "" {
		msg = fmt.Sprintf("identity %q: %s", e.Identity, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return "gallery: " + msg
}

// Unwrap lets errors.Is match both ErrConfiguration and the underlying cause.
func (e *ConfigError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrConfiguration, e.Err}
	}
	return []error{ErrConfiguration}
}

func configErr(identity, format string, args ...any) *ConfigError {
	return &ConfigError{Identity: identity, Reason: fmt.Sprintf(format, args...)}
}
