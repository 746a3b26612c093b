package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/kozaktomas/door-sentry/internal/access"
	"github.com/kozaktomas/door-sentry/internal/classifier"
)

// fakeController records what the handlers forward to the access controller.
type fakeController struct {
	mu       sync.Mutex
	frames   []classifier.Frame
	resolved [][]float32
	triggers []access.Trigger

	status     access.Status
	submitErr  error
	triggerErr error
}

func newFakeController() *fakeController {
	return &fakeController{status: access.Status{State: access.StateLocked, FramesNeeded: 60}}
}

func (f *fakeController) SubmitFrame(fr classifier.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return f.submitErr
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeController) ResolveFaces(embedding []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return f.submitErr
	}
	f.resolved = append(f.resolved, embedding)
	return nil
}

func (f *fakeController) Trigger(_ context.Context, t access.Trigger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers = append(f.triggers, t)
	return f.triggerErr
}

func (f *fakeController) Status() access.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
