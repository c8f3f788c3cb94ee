// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/zonewatch/internal/adapters/http/swagger"
	service "github.com/okian/zonewatch/internal/app"
	"github.com/okian/zonewatch/internal/domain/zone"
	"github.com/okian/zonewatch/pkg/metrics"
)

// Dependencies required by HTTP handlers. *service.Tracker implements it.
type Dependencies interface {
	RunPass(ctx context.Context) (service.Result, error)
	Vehicle(ctx context.Context, vehicleID string) (service.VehicleState, error)
	Zones() []zone.Zone
	StatsProvider
}

// Server wires HTTP routes for the tracker API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	passesHandler   *PassesHandler
	zonesHandler    *ZonesHandler
	vehiclesHandler *VehiclesHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(deps),
		statsHandler:    NewStatsHandler(deps),
		passesHandler:   NewPassesHandler(deps),
		zonesHandler:    NewZonesHandler(deps),
		vehiclesHandler: NewVehiclesHandler(deps),
	}
}

// Register attaches all routes to r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", MetricsMiddleware(s.healthHandler.HandleHealth, "health"))
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealthz, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	r.Get("/zones", MetricsMiddleware(s.zonesHandler.HandleGetZones, "zones"))
	r.Get("/vehicles/{vehicleID}", MetricsMiddleware(s.vehiclesHandler.HandleGetVehicle, "vehicles"))
	r.Post("/passes", MetricsMiddleware(s.passesHandler.HandlePostPass, "passes"))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	swagger.Register(r)
}

// Router returns a chi router with every route registered.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	s.Register(r)
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
