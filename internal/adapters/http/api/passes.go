package api

import (
	"context"
	"net/http"

	service "github.com/okian/zonewatch/internal/app"
	"github.com/okian/zonewatch/internal/domain/model"
)

// PassRunner runs one pass on demand.
type PassRunner interface {
	RunPass(ctx context.Context) (service.Result, error)
}

// PassesHandler handles pass requests.
type PassesHandler struct {
	runner PassRunner
}

// NewPassesHandler creates a new passes handler.
func NewPassesHandler(runner PassRunner) *PassesHandler {
	return &PassesHandler{runner: runner}
}

// HandlePostPass handles POST /passes. It blocks while another pass is
// running and returns the committed result.
func (h *PassesHandler) HandlePostPass(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_pass"
	res, err := h.runner.RunPass(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "pass_failed", wrapKind(op, ErrPass, err))
		return
	}
	if res.Events == nil {
		res.Events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, res)
}
