package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/door-sentry/internal/access"
	"github.com/kozaktomas/door-sentry/internal/actuator"
	"github.com/kozaktomas/door-sentry/internal/classifier"
	"github.com/kozaktomas/door-sentry/internal/config"
	"github.com/kozaktomas/door-sentry/internal/database/mock"
	"github.com/kozaktomas/door-sentry/internal/gallery"
	"github.com/kozaktomas/door-sentry/internal/timer"
)

type testServer struct {
	*httptest.Server
	audit *mock.MockAuditStore
	hub   *access.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := gallery.New(map[string][][]float32{
		"Alice": {{1, 0, 0}},
		"Bob":   {{0, 1, 0}},
	}, gallery.Options{Threshold: 1.3, Dimension: 3})
	require.NoError(t, err)

	audit := mock.NewMockAuditStore()
	hub := access.NewHub(16)
	ctrl, err := access.NewController(access.Options{
		StabilityFrames:     3,
		ConfirmationTimeout: 10 * time.Second,
		CooldownDuration:    10 * time.Second,
	}, access.Deps{
		Classifier: classifier.New(store),
		Scheduler:  timer.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		Actuator:   actuator.NewLogGateway(),
		Audit:      audit,
		Notices:    hub,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go ctrl.Run(ctx)
	t.Cleanup(cancel)

	cfg := &config.Config{Profile: "test", Web: config.WebConfig{Host: "127.0.0.1", Port: 8080}}
	srv := NewServer(cfg, Deps{Controller: ctrl, Notices: hub, Audit: audit, Gallery: store})

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, audit: audit, hub: hub}
}

func (ts *testServer) post(t *testing.T, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (ts *testServer) status(t *testing.T) access.Status {
	t.Helper()
	resp, err := http.Get(ts.URL + "/api/v1/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var st access.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	return st
}

func TestServer_UnlockFlow(t *testing.T) {
	ts := newTestServer(t)

	for range 3 {
		resp := ts.post(t, "/api/v1/frames", `{"faces":1,"embedding":[1,0,0]}`)
		require.Equal(t, http.StatusAccepted, resp.StatusCode)
	}
	require.Eventually(t, func() bool {
		return ts.status(t).State == access.StateAwaitingUnlockConfirm
	}, time.Second, 5*time.Millisecond)

	resp := ts.post(t, "/api/v1/confirm", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var st access.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, access.StateUnlocked, st.State)
	assert.Equal(t, "Alice", st.Authorized)

	resp = ts.post(t, "/api/v1/confirm", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	auditResp, err := http.Get(ts.URL + "/api/v1/audit")
	require.NoError(t, err)
	defer auditResp.Body.Close()
	var page struct {
		Total   int `json:"total"`
		Entries []struct {
			Identity string `json:"identity"`
			Command  string `json:"command"`
		} `json:"entries"`
	}
	require.NoError(t, json.NewDecoder(auditResp.Body).Decode(&page))
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "Alice", page.Entries[0].Identity)
	assert.Equal(t, "unlock", page.Entries[0].Command)
}

func TestServer_InvalidTriggers(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/v1/confirm", "/api/v1/deny", "/api/v1/lock"} {
		t.Run(path, func(t *testing.T) {
			resp := ts.post(t, path, "")
			assert.Equal(t, http.StatusConflict, resp.StatusCode)
		})
	}
	assert.Equal(t, access.StateLocked, ts.status(t).State)
}

func TestServer_Routes(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{"GET", "/api/v1/health", http.StatusOK},
		{"GET", "/api/v1/status", http.StatusOK},
		{"GET", "/api/v1/config", http.StatusOK},
		{"GET", "/api/v1/audit?limit=5", http.StatusOK},
		{"GET", "/api/v1/frames", http.StatusMethodNotAllowed},
		{"GET", "/api/v1/unknown", http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("%s %s", tc.method, tc.path), func(t *testing.T) {
			req, err := http.NewRequest(tc.method, ts.URL+tc.path, nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestServer_EventStream(t *testing.T) {
	ts := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", ts.URL+"/api/v1/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return ts.hub.Listeners() == 1 }, time.Second, 5*time.Millisecond)
	ts.post(t, "/api/v1/frames", `{"faces":1,"embedding":[0,1,0]}`)

	// Unblocks the read below if the notice never arrives.
	stop := time.AfterFunc(2*time.Second, cancel)
	defer stop.Stop()

	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 1024)
	for !strings.Contains(string(buf), `"identity":"Bob"`) {
		n, err := resp.Body.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if err != nil {
			break
		}
	}
	body := string(buf)
	assert.Contains(t, body, "event: status")
	assert.Contains(t, body, "event: progress")
	assert.Contains(t, body, `"identity":"Bob"`)
}
