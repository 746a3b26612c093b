package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/kozaktomas/door-sentry/internal/access"
	"github.com/kozaktomas/door-sentry/internal/classifier"
	"github.com/kozaktomas/door-sentry/internal/log"
)

// AccessController is the part of access.Controller the API drives.
type AccessController interface {
	SubmitFrame(f classifier.Frame) error
	ResolveFaces(embedding []float32) error
	Trigger(ctx context.Context, t access.Trigger) error
	Status() access.Status
}

// AccessHandler handles frame input, operator triggers and status.
type AccessHandler struct {
	controller AccessController
}

// NewAccessHandler creates a new access handler
func NewAccessHandler(c AccessController) *AccessHandler {
	return &AccessHandler{controller: c}
}

// FrameRequest is one camera frame from the vision pipeline.
type FrameRequest struct {
	Faces     int       `json:"faces"`
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

// ResolveRequest answers a multi-face prompt with the chosen face.
type ResolveRequest struct {
	Embedding []float32 `json:"embedding"`
}

// Status returns the current controller snapshot
func (h *AccessHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.controller.Status())
}

// SubmitFrame enqueues a frame. It is accepted, not applied, when this returns.
func (h *AccessHandler) SubmitFrame(w http.ResponseWriter, r *http.Request) {
	var req FrameRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	frame := classifier.Frame{Faces: req.Faces, Embedding: req.Embedding}
	if req.Error != "" {
		frame.Err = errors.New(req.Error)
	}

	if err := h.controller.SubmitFrame(frame); err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// ResolveFaces forwards an operator's face choice.
func (h *AccessHandler) ResolveFaces(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Embedding) == 0 {
		respondError(w, http.StatusBadRequest, "embedding is required")
		return
	}

	if err := h.controller.ResolveFaces(req.Embedding); err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Confirm approves the pending candidate
func (h *AccessHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, r, access.TriggerConfirm)
}

// Deny rejects the pending candidate
func (h *AccessHandler) Deny(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, r, access.TriggerDeny)
}

// BeginLock starts a lock scan
func (h *AccessHandler) BeginLock(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, r, access.TriggerBeginLock)
}

func (h *AccessHandler) trigger(w http.ResponseWriter, r *http.Request, t access.Trigger) {
	if err := h.controller.Trigger(r.Context(), t); err != nil {
		log.Info("trigger rejected", "trigger", string(t), "error", sanitizeForLog(err.Error()))
		respondError(w, statusForError(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, h.controller.Status())
}
