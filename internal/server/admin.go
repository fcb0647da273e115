package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/muurk/wschat/internal/logging"
	"github.com/muurk/wschat/internal/registry"
	"github.com/muurk/wschat/internal/version"
)

// healthResponse is the body of GET /healthz
type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Clients int    `json:"clients"`
}

// NewAdminHandler returns the router for the admin endpoint:
//
//	GET /healthz   liveness and client count
//	GET /clients   registered clients as JSON
//	GET /metrics   Prometheus metrics from gatherer
func NewAdminHandler(reg *registry.Registry, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, healthResponse{
			Status:  "ok",
			Version: version.Version,
			Clients: reg.Len(),
		})
	})

	r.Get("/clients", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, reg.List())
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("Failed to write admin response", zap.Error(err))
	}
}
