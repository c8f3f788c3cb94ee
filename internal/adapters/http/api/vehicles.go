package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/zonewatch/internal/app"
)

// VehicleReader reads the persisted state of one vehicle.
type VehicleReader interface {
	Vehicle(ctx context.Context, vehicleID string) (service.VehicleState, error)
}

// VehiclesHandler handles vehicle requests.
type VehiclesHandler struct {
	deps VehicleReader
}

// NewVehiclesHandler creates a new vehicles handler.
func NewVehiclesHandler(deps VehicleReader) *VehiclesHandler {
	return &VehiclesHandler{deps: deps}
}

// HandleGetVehicle handles GET /vehicles/{vehicleID} requests.
func (h *VehiclesHandler) HandleGetVehicle(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_vehicle"
	id := strings.TrimSpace(chi.URLParam(r, "vehicleID"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, nil))
		return
	}
	v, err := h.deps.Vehicle(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrUnknownVehicle) {
			writeError(w, http.StatusNotFound, "not_found", wrapKind(op, ErrNotFound, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
