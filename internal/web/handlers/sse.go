package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/kozaktomas/door-sentry/internal/access"
)

// NoticeSource hands out notice subscriptions. *access.Hub implements it.
type NoticeSource interface {
	AddListener() chan access.Notice
	RemoveListener(ch chan access.Notice)
}

// EventsHandler streams controller notices over SSE.
type EventsHandler struct {
	source     NoticeSource
	controller AccessController
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(source NoticeSource, c AccessController) *EventsHandler {
	return &EventsHandler{source: source, controller: c}
}

// setupSSEConnection sets SSE headers. On failure it writes an error response and returns false.
func setupSSEConnection(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return flusher, true
}

// Stream sends the current status, then every notice until the client leaves.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := setupSSEConnection(w)
	if !ok {
		return
	}

	noticeCh := h.source.AddListener()
	defer h.source.RemoveListener(noticeCh)

	sendSSEEvent(w, flusher, "status", h.controller.Status())

	for {
		select {
		case <-r.Context().Done():
			return
		case n, ok := <-noticeCh:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, string(n.Kind), n)
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	jsonData, _ := json.Marshal(data)
	_, _ = io.WriteString(w, "event: "+eventType+"\n")
	_, _ = io.WriteString(w, "data: ")
	_, _ = io.Copy(w, bytes.NewReader(jsonData))
	_, _ = io.WriteString(w, "\n\n")
	flusher.Flush()
}
