package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/web"
)

// Pinger reports backing-store reachability (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler serves readiness for load balancers and orchestration probes.
type Handler struct {
	pinger Pinger
	logger *slog.Logger
}

// NewHandler returns a health handler. pinger may be nil; then the DB check
// is skipped.
func NewHandler(pinger Pinger, logger *slog.Logger) *Handler {
	return &Handler{pinger: pinger, logger: logger}
}

// Register mounts the health route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handleHealth)
}

type healthResponse struct {
	Status string `json:"status"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.pinger.PingContext(ctx); err != nil {
			h.logger.ErrorContext(r.Context(), "health check db ping failed", "error", err)
			web.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
			return
		}
	}
	web.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}
