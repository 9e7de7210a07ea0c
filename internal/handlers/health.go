package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

type HealthResponse struct {
	Status     string                 `json:"status"`
	Timestamp  time.Time              `json:"timestamp"`
	Service    string                 `json:"service"`
	Components map[string]interface{} `json:"components"`
}

// Pinger is a dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	backend Pinger
	store   CacheStore
	logger  *slog.Logger
}

func NewHealthHandler(backend Pinger, store CacheStore, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		backend: backend,
		store:   store,
		logger:  logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	h.logger.Debug("Health check requested",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := make(map[string]interface{})
	overallStatus := "healthy"

	if err := h.backend.Ping(ctx); err != nil {
		h.logger.Warn("Cache backend health check failed", "error", err)
		components["cache_backend"] = "unhealthy"
		overallStatus = "degraded"
	} else {
		components["cache_backend"] = "healthy"
	}

	rebuild, err := h.store.RebuildRequested(ctx)
	switch {
	case err != nil:
		h.logger.Warn("Rebuild request check failed", "error", err)
		components["rebuild"] = "unknown"
	case rebuild:
		components["rebuild"] = "requested"
	default:
		components["rebuild"] = "none"
	}
	components["loaded"] = h.store.Loaded()
	components["cached_regions"] = len(h.store.Cached())

	response := HealthResponse{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Service:    "slugrando",
		Components: components,
	}

	statusCode := http.StatusOK
	if overallStatus != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Error encoding health response",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path)
	}
}
