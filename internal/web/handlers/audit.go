package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/kozaktomas/door-sentry/internal/database"
)

// AuditHandler exposes the transition log.
type AuditHandler struct {
	reader database.AuditReader
}

// NewAuditHandler creates a new audit handler. reader may be nil when no audit store is configured.
func NewAuditHandler(reader database.AuditReader) *AuditHandler {
	return &AuditHandler{reader: reader}
}

// AuditEntry is the JSON form of database.AuditRecord.
type AuditEntry struct {
	ID            string    `json:"id"`
	Identity      string    `json:"identity"`
	PreviousState string    `json:"previous_state"`
	NewState      string    `json:"new_state"`
	Command       string    `json:"command"`
	Timestamp     time.Time `json:"timestamp"`
	Error         string    `json:"error,omitempty"`
}

// AuditResponse is a page of the newest transitions.
type AuditResponse struct {
	Total   int          `json:"total"`
	Entries []AuditEntry `json:"entries"`
}

// List returns the newest transitions, limited by ?limit=
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.reader == nil {
		respondError(w, http.StatusServiceUnavailable, "audit store not configured")
		return
	}

	limit := database.DefaultAuditLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	records, err := h.reader.ListTransitions(r.Context(), database.ClampLimit(limit))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list audit records")
		return
	}
	total, err := h.reader.CountTransitions(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to count audit records")
		return
	}

	entries := make([]AuditEntry, len(records))
	for i, rec := range records {
		entries[i] = AuditEntry{
			ID:            rec.ID.String(),
			Identity:      rec.Identity,
			PreviousState: rec.PreviousState,
			NewState:      rec.NewState,
			Command:       rec.Command,
			Timestamp:     rec.Timestamp,
			Error:         rec.Error,
		}
	}
	respondJSON(w, http.StatusOK, AuditResponse{Total: total, Entries: entries})
}
