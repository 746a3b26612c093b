package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/door-sentry/internal/access"
)

func TestAccessHandler_SubmitFrame(t *testing.T) {
	ctrl := newFakeController()
	handler := NewAccessHandler(ctrl)

	body := bytes.NewBufferString(`{"faces": 1, "embedding": [0.1, 0.2, 0.3]}`)
	req := httptest.NewRequest("POST", "/api/v1/frames", body)
	recorder := httptest.NewRecorder()

	handler.SubmitFrame(recorder, req)

	assertStatusCode(t, recorder, http.StatusAccepted)
	if len(ctrl.frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(ctrl.frames))
	}
	f := ctrl.frames[0]
	if f.Faces != 1 || len(f.Embedding) != 3 || f.Err != nil {
		t.Errorf("unexpected frame %+v", f)
	}
}

func TestAccessHandler_SubmitFrame_ExtractionError(t *testing.T) {
	ctrl := newFakeController()
	handler := NewAccessHandler(ctrl)

	body := bytes.NewBufferString(`{"faces": 1, "error": "landmarks not found"}`)
	req := httptest.NewRequest("POST", "/api/v1/frames", body)
	recorder := httptest.NewRecorder()

	handler.SubmitFrame(recorder, req)

	assertStatusCode(t, recorder, http.StatusAccepted)
	if len(ctrl.frames) != 1 || ctrl.frames[0].Err == nil {
		t.Fatalf("expected frame with extraction error, got %+v", ctrl.frames)
	}
	if ctrl.frames[0].Err.Error() != "landmarks not found" {
		t.Errorf("unexpected error %v", ctrl.frames[0].Err)
	}
}

func TestAccessHandler_SubmitFrame_InvalidJSON(t *testing.T) {
	ctrl := newFakeController()
	handler := NewAccessHandler(ctrl)

	req := httptest.NewRequest("POST", "/api/v1/frames", bytes.NewBufferString(`{faces:`))
	recorder := httptest.NewRecorder()

	handler.SubmitFrame(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, errInvalidRequestBody)
	if len(ctrl.frames) != 0 {
		t.Errorf("expected no frames, got %d", len(ctrl.frames))
	}
}

func TestAccessHandler_SubmitFrame_Closed(t *testing.T) {
	ctrl := newFakeController()
	ctrl.submitErr = access.ErrClosed
	handler := NewAccessHandler(ctrl)

	req := httptest.NewRequest("POST", "/api/v1/frames", bytes.NewBufferString(`{"faces": 0}`))
	recorder := httptest.NewRecorder()

	handler.SubmitFrame(recorder, req)

	assertStatusCode(t, recorder, http.StatusServiceUnavailable)
}

func TestAccessHandler_ResolveFaces(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCalls  int
	}{
		{"valid", `{"embedding": [1, 0]}`, http.StatusAccepted, 1},
		{"missing embedding", `{}`, http.StatusBadRequest, 0},
		{"invalid json", `[`, http.StatusBadRequest, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := newFakeController()
			handler := NewAccessHandler(ctrl)

			req := httptest.NewRequest("POST", "/api/v1/faces/resolve", bytes.NewBufferString(tc.body))
			recorder := httptest.NewRecorder()

			handler.ResolveFaces(recorder, req)

			assertStatusCode(t, recorder, tc.wantStatus)
			if len(ctrl.resolved) != tc.wantCalls {
				t.Errorf("expected %d resolve calls, got %d", tc.wantCalls, len(ctrl.resolved))
			}
		})
	}
}

func TestAccessHandler_Triggers(t *testing.T) {
	tests := []struct {
		name    string
		call    func(h *AccessHandler) http.HandlerFunc
		trigger access.Trigger
	}{
		{"confirm", func(h *AccessHandler) http.HandlerFunc { return h.Confirm }, access.TriggerConfirm},
		{"deny", func(h *AccessHandler) http.HandlerFunc { return h.Deny }, access.TriggerDeny},
		{"lock", func(h *AccessHandler) http.HandlerFunc { return h.BeginLock }, access.TriggerBeginLock},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := newFakeController()
			ctrl.status = access.Status{State: access.StateUnlocked, Authorized: "Alice"}
			handler := NewAccessHandler(ctrl)

			req := httptest.NewRequest("POST", "/api/v1/"+tc.name, nil)
			recorder := httptest.NewRecorder()

			tc.call(handler)(recorder, req)

			assertStatusCode(t, recorder, http.StatusOK)
			if len(ctrl.triggers) != 1 || ctrl.triggers[0] != tc.trigger {
				t.Errorf("expected trigger %s, got %v", tc.trigger, ctrl.triggers)
			}
			var st access.Status
			parseJSONResponse(t, recorder, &st)
			if st.State != access.StateUnlocked || st.Authorized != "Alice" {
				t.Errorf("unexpected status %+v", st)
			}
		})
	}
}

func TestAccessHandler_InvalidTriggerConflict(t *testing.T) {
	ctrl := newFakeController()
	ctrl.triggerErr = &access.TriggerError{Trigger: access.TriggerConfirm, State: access.StateLocked}
	handler := NewAccessHandler(ctrl)

	req := httptest.NewRequest("POST", "/api/v1/confirm", nil)
	recorder := httptest.NewRecorder()

	handler.Confirm(recorder, req)

	assertStatusCode(t, recorder, http.StatusConflict)
	assertJSONError(t, recorder, "confirm not allowed in state locked")
}

func TestAccessHandler_Status(t *testing.T) {
	ctrl := newFakeController()
	ctrl.status = access.Status{State: access.StateScanningUnlock, RunLabel: "Bob", RunLength: 12, FramesNeeded: 60}
	handler := NewAccessHandler(ctrl)

	req := httptest.NewRequest("GET", "/api/v1/status", nil)
	recorder := httptest.NewRecorder()

	handler.Status(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/json")

	var result map[string]any
	parseJSONResponse(t, recorder, &result)
	if result["state"] != access.StateScanningUnlock {
		t.Errorf("expected state scanning_unlock, got %v", result["state"])
	}
	if result["run_length"] != float64(12) {
		t.Errorf("expected run_length 12, got %v", result["run_length"])
	}
	if _, ok := result["cooldown_until"]; ok {
		t.Error("expected zero cooldown_until to be omitted")
	}
}
