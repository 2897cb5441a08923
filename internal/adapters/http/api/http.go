// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	service "github.com/okian/footsteps/internal/app"
	"github.com/okian/footsteps/internal/domain/model"
)

// Submitter accepts host notifications for asynchronous processing.
type Submitter interface {
	// Submit de-duplicates and queues n.
	Submit(ctx context.Context, n model.Notification) service.Outcome
}

// DecalLister exposes the footprint decals currently on the scene.
type DecalLister interface {
	Decals(ctx context.Context) ([]model.Decal, error)
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Submitter
	DecalLister
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler        *HealthHandler
	statsHandler         *StatsHandler
	notificationsHandler *NotificationsHandler
	decalsHandler        *DecalsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:        NewHealthHandler(),
		statsHandler:         NewStatsHandler(statsProvider),
		notificationsHandler: NewNotificationsHandler(deps),
		decalsHandler:        NewDecalsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/notifications", MetricsMiddleware(s.notificationsHandler.HandlePostNotification, "notifications"))
	mux.HandleFunc("/decals", MetricsMiddleware(s.decalsHandler.HandleGetDecals, "decals"))
}

// AckResponse acknowledges a submitted notification.
type AckResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Ack builds the acknowledgement for a submit outcome.
func Ack(id string, outcome service.Outcome) AckResponse {
	return AckResponse{ID: id, Status: outcome.String(), Duplicate: outcome == service.Duplicate}
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
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
	writeJSON(w, status, ErrorResponse{Code: code, Message: msg})
}
