package actuator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// httpClient is shared by all HTTPGateway instances.
var httpClient = &http.Client{
	Timeout: 3 * time.Second,
}

// HTTPGateway posts commands to a lock controller's HTTP API.
type HTTPGateway struct {
	BaseURL string
}

func NewHTTPGateway(baseURL string) *HTTPGateway {
	return &HTTPGateway{BaseURL: strings.TrimRight(baseURL, "/")}
}

type commandRequest struct {
	Command Command `json:"command"`
}

func (g *HTTPGateway) Send(ctx context.Context, cmd Command) error {
	if !cmd.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCommand, cmd)
	}

	data, err := json.Marshal(commandRequest{Command: cmd})
	if err != nil {
		return fmt.Errorf("failed to marshal command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/api/lock", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build command request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("command request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("lock controller returned %s", resp.Status)
	}
	return nil
}

func (g *HTTPGateway) Close() error { return nil }
