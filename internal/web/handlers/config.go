package handlers

import (
	"net/http"

	"github.com/kozaktomas/door-sentry/internal/config"
	"github.com/kozaktomas/door-sentry/internal/database"
)

// GalleryInfo describes the loaded gallery. *gallery.Store implements it.
type GalleryInfo interface {
	Identities() []string
	SampleCount() int
	Dimension() int
	Threshold() float64
}

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config  *config.Config
	gallery GalleryInfo
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config, g GalleryInfo) *ConfigHandler {
	return &ConfigHandler{
		config:  cfg,
		gallery: g,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	Profile               string   `json:"profile"`
	MatchThreshold        float64  `json:"match_threshold"`
	StabilityFramesNeeded int      `json:"stability_frames_needed"`
	ConfirmationTimeout   string   `json:"confirmation_timeout"`
	CooldownDuration      string   `json:"cooldown_duration"`
	Actuator              string   `json:"actuator"`
	Identities            []string `json:"identities"`
	Samples               int      `json:"samples"`
	EmbeddingDimension    int      `json:"embedding_dimension"`
	EnrollmentWritable    bool     `json:"enrollment_writable"`
}

// Get returns the active policy and gallery summary. Embeddings are never exposed.
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	a := h.config.Access
	response := ConfigResponse{
		Profile:               h.config.Profile,
		MatchThreshold:        a.MatchThreshold,
		StabilityFramesNeeded: a.StabilityFramesNeeded,
		ConfirmationTimeout:   a.ConfirmationTimeout.String(),
		CooldownDuration:      a.CooldownDuration.String(),
		Actuator:              h.config.Actuator.Kind,
		EnrollmentWritable:    database.IsInitialized(),
	}
	if h.gallery != nil {
		response.Identities = h.gallery.Identities()
		response.Samples = h.gallery.SampleCount()
		response.EmbeddingDimension = h.gallery.Dimension()
		response.MatchThreshold = h.gallery.Threshold()
	}

	respondJSON(w, http.StatusOK, response)
}
