package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/namegen-api/internal/api/shared"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// healthTimeout bounds the store ping behind /health.
const healthTimeout = 2 * time.Second

// StatusHandler serves the liveness and debug endpoints.
type StatusHandler struct {
	store  Pinger
	now    func() time.Time
	logger *slog.Logger
}

// NewStatusHandler creates a StatusHandler that checks the given store.
func NewStatusHandler(store Pinger, log *slog.Logger) *StatusHandler {
	if log == nil {
		log = slog.Default()
	}
	return &StatusHandler{
		store:  store,
		now:    func() time.Time { return time.Now().UTC() },
		logger: log.With(slog.String("component", "status_handler")),
	}
}

// Health handles GET /health: 200 "OK" when the store answers, 503 otherwise.
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable, "Store unavailable", err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		h.logger.Error("failed to write health check response", slog.String("error", err.Error()))
	}
}

// DebugStatus handles GET /api/debug/status.
func (h *StatusHandler) DebugStatus(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, StatusResponse{
		Success: true,
		Status:  "ok",
		Time:    h.now(),
	})
}
