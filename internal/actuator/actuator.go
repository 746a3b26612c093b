// Package actuator sends two-valued lock commands to the door hardware.
package actuator

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Command is the two-valued instruction for the lock.
type Command string

const (
	Lock   Command = "lock"
	Unlock Command = "unlock"
)

func (c Command) Valid() bool {
	return c == Lock || c == Unlock
}

// Gateway delivers commands to the lock. Implementations must not retry on
// their own: every Send corresponds to exactly one confirmed transition.
type Gateway interface {
	Send(ctx context.Context, cmd Command) error
	Close() error
}

// Kind names a bundled gateway implementation.
type Kind string

const (
	KindLog    Kind = "log"
	KindSerial Kind = "serial"
	KindHTTP   Kind = "http"
)

// ErrInvalidCommand is returned for anything other than Lock or Unlock.
var ErrInvalidCommand = errors.New("invalid actuator command")

// New builds the gateway named by kind. addr is the serial bridge host:port
// for KindSerial and the controller base URL for KindHTTP.
func New(kind Kind, addr string) (Gateway, error) {
	switch Kind(strings.ToLower(string(kind))) {
	case KindLog, "":
		return NewLogGateway(), nil
	case KindSerial:
		if addr == "" {
			return nil, errors.New("serial actuator requires an address")
		}
		return NewSerialGateway(addr), nil
	case KindHTTP:
		if addr == "" {
			return nil, errors.New("http actuator requires a base URL")
		}
		return NewHTTPGateway(addr), nil
	default:
		return nil, fmt.Errorf("unknown actuator kind %q", kind)
	}
}
