package actuator

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

// Wire bytes understood by the lock controller firmware.
const (
	serialLock   = "1"
	serialUnlock = "0"
)

// SerialGateway writes single-byte commands to a serial-over-TCP bridge
// in front of the lock controller. The connection is opened lazily and
// re-dialled on the next Send after a write error.
type SerialGateway struct {
	addr    string
	timeout time.Duration

	mu   sync.Mutex
	conn net.Conn
}

func NewSerialGateway(addr string) *SerialGateway {
	return &SerialGateway{addr: addr, timeout: 3 * time.Second}
}

func (g *SerialGateway) Send(ctx context.Context, cmd Command) error {
	var payload string
	switch cmd {
	case Lock:
		payload = serialLock
	case Unlock:
		payload = serialUnlock
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCommand, cmd)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.conn == nil {
		d := net.Dialer{Timeout: g.timeout}
		conn, err := d.DialContext(ctx, "tcp", g.addr)
		if err != nil {
			return fmt.Errorf("connecting to lock controller %s: %w", g.addr, err)
		}
		g.conn = conn
	}

	deadline := time.Now().Add(g.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = g.conn.SetWriteDeadline(deadline)

	if _, err := g.conn.Write([]byte(payload)); err != nil {
		_ = g.conn.Close()
		g.conn = nil
		return fmt.Errorf("writing %s command: %w", cmd, err)
	}
	return nil
}

func (g *SerialGateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.conn == nil {
		return nil
	}
	err := g.conn.Close()
	g.conn = nil
	if err != nil {
		return fmt.Errorf("closing lock controller connection: %w", err)
	}
	return nil
}
