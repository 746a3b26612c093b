package actuator

import (
	"context"
	"fmt"

	"github.com/kozaktomas/door-sentry/internal/log"
)

// LogGateway only logs commands. Used for dry runs and simulation.
type LogGateway struct{}

func NewLogGateway() *LogGateway {
	return &LogGateway{}
}

func (g *LogGateway) Send(_ context.Context, cmd Command) error {
	if !cmd.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCommand, cmd)
	}
	log.Info("actuator command (dry run)", "command", string(cmd))
	return nil
}

func (g *LogGateway) Close() error { return nil }
