package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Pinger is satisfied by every store backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health and readiness checks
type HealthHandler struct {
	store   Pinger
	version string
	logger  *zap.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store Pinger, version string, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{
		store:   store,
		version: version,
		logger:  logger,
	}
}

// HandleHealth handles GET /health (liveness). It never touches the store so
// a database outage does not restart the process.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}

// HandleReady handles GET /ready (readiness); ready only when the store answers.
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Error("readiness check failed: store unavailable", zap.Error(err))
		respondWithError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
