// Package api is the operational HTTP surface: health, a presence
// snapshot for debugging, and Prometheus metrics. It carries no business
// logic.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DevaOnL/Chat-app-sub000/pkg/types"
)

// PresenceSource is the slice of the registry the API needs.
type PresenceSource interface {
	Snapshot() []types.PresenceEntry
	Count() int
}

// Pinger is the slice of the store the health check needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server serves the operational endpoints.
type Server struct {
	presence PresenceSource
	store    Pinger
	router   *mux.Router
}

// NewServer builds the API server and its routes.
func NewServer(presence PresenceSource, store Pinger) *Server {
	s := &Server{
		presence: presence,
		store:    store,
		router:   mux.NewRouter(),
	}

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/presence", s.handlePresence).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	if err := s.store.Ping(ctx); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]interface{}{
		"status":      status,
		"connections": s.presence.Count(),
		"timestamp":   time.Now().UTC(),
	})
}

func (s *Server) handlePresence(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"members": s.presence.Snapshot(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
