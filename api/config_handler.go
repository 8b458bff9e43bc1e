package api

import (
	"net/http"
	"time"

	"github.com/seenimoa/tickerpulse/internal/config"
)

// ConfigResponse is the JSON envelope returned by GET /api/v1/config.
type ConfigResponse struct {
	Config          config.Config      `json:"config"`
	Keys            []config.KeyStatus `json:"keys"`
	NextRefresh     *time.Time         `json:"next_refresh_allowed,omitempty"`
	VocabularySize  int                `json:"vocabulary_size"`
	MinRefreshEvery string             `json:"min_refresh_interval"`
}

// handleGetConfig returns the running configuration with the Discord
// token masked.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	resp := ConfigResponse{
		Config:          s.cfg.Masked(),
		Keys:            config.CheckAPIKeys(s.cfg),
		VocabularySize:  s.tracker.Vocabulary().Size(),
		MinRefreshEvery: s.cfg.MinRefreshInterval().String(),
	}
	if next := s.tracker.NextRefreshAllowed(); !next.IsZero() {
		resp.NextRefresh = &next
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: resp})
}

// handleGetConfigKeys returns the status of all credentials.
func (s *Server) handleGetConfigKeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    config.CheckAPIKeys(s.cfg),
	})
}
