package metrics

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Pinger reports whether storage is reachable. *database.DB satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}

// PingResponse contains process status and version information.
type PingResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Service     string `json:"service"`
	GoVersion   string `json:"go_version"`
	Hostname    string `json:"hostname"`
	Environment string `json:"environment"`
}

type healthHandler struct {
	version     string
	environment string
	db          Pinger
	logger      *zap.Logger
}

func (h *healthHandler) register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.health)
	mux.HandleFunc("/ping", h.ping)
}

// health answers 200 while the database answers a ping, 503 otherwise.
func (h *healthHandler) health(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		h.write(w, http.StatusOK, HealthResponse{Status: "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("Health check failed", zap.Error(err))
		h.write(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Database: "unreachable"})
		return
	}
	h.write(w, http.StatusOK, HealthResponse{Status: "ok", Database: "ok"})
}

func (h *healthHandler) ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	h.write(w, http.StatusOK, PingResponse{
		Status:      "ok",
		Version:     h.version,
		Service:     "ekaya-tmdb",
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.environment,
	})
}

func (h *healthHandler) write(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
