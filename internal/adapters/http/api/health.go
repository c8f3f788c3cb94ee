package api

import (
	"net/http"
	"time"

	"github.com/okian/zonewatch/pkg/metrics"
)

// HealthHandler handles liveness requests.
type HealthHandler struct {
	stats StatsProvider
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(stats StatsProvider) *HealthHandler {
	return &HealthHandler{stats: stats}
}

type healthResponse struct {
	Status     string     `json:"status"`
	LastStatus string     `json:"last_status,omitempty"`
	LastPassAt *time.Time `json:"last_pass_at,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
}

// HandleHealth handles GET /health. It only proves the process serves HTTP.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// HandleHealthz handles GET /healthz. It always answers 200 and reports
// "degraded" while the last pass failed.
func (h *HealthHandler) HandleHealthz(w http.ResponseWriter, _ *http.Request) {
	s := h.stats.Stats()
	resp := healthResponse{
		Status:     "ok",
		LastStatus: s.LastStatus,
		LastPassAt: s.LastPassAt,
		LastError:  s.LastError,
	}
	if s.LastStatus == metrics.StatusError {
		resp.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}
