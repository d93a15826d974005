package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/pravara/school-backend/internal/repository"
)

// DefaultWelcomeMessage is served by GET /start when none is configured.
const DefaultWelcomeMessage = "Welcome to the School Management API"

// SystemHandler serves the endpoints that do not touch school records.
type SystemHandler struct {
	welcome string
	db      repository.Pinger
	logger  *slog.Logger
}

func NewSystemHandler(welcome string, db repository.Pinger, logger *slog.Logger) *SystemHandler {
	if welcome == "" {
		welcome = DefaultWelcomeMessage
	}
	return &SystemHandler{welcome: welcome, db: db, logger: logger}
}

// HandleStart returns the static welcome payload.
//
// HTTP: GET /start
func (h *SystemHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: h.welcome})
}

// HandleHealth reports whether the database answers a ping.
//
// HTTP: GET /healthz → 200 {"status":"ok"} or 503 {"status":"unavailable"}
func (h *SystemHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
