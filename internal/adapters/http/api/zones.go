package api

import (
	"net/http"

	"github.com/okian/zonewatch/internal/domain/zone"
)

// ZoneLister exposes the loaded zone set.
type ZoneLister interface {
	Zones() []zone.Zone
}

// ZonesHandler handles zone requests.
type ZonesHandler struct {
	zones ZoneLister
}

// NewZonesHandler creates a new zones handler.
func NewZonesHandler(zones ZoneLister) *ZonesHandler {
	return &ZonesHandler{zones: zones}
}

type zoneResponse struct {
	ID string `json:"id"`
	// BBox is [minLon, minLat, maxLon, maxLat].
	BBox [4]float64 `json:"bbox"`
}

// HandleGetZones handles GET /zones. Zones are listed in evaluation order.
func (h *ZonesHandler) HandleGetZones(w http.ResponseWriter, _ *http.Request) {
	zs := h.zones.Zones()
	out := make([]zoneResponse, len(zs))
	for i, z := range zs {
		b := z.Shape.Bound()
		out[i] = zoneResponse{ID: z.ID, BBox: [4]float64{b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat()}}
	}
	writeJSON(w, http.StatusOK, out)
}
