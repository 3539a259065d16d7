package report

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-quote/internal/platform/httpx"
)

// Pinger reports whether the PDF backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler manages report endpoints.
type Handler struct {
	backend Pinger
	logger  *slog.Logger
}

// NewHandler creates a report handler.
func NewHandler(backend Pinger, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{backend: backend, logger: logger}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ping", h.ping)
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if h.backend == nil {
		httpx.Error(w, http.StatusServiceUnavailable, "document rendering is not configured")
		return
	}
	if err := h.backend.Ping(r.Context()); err != nil {
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		httpx.Error(w, http.StatusServiceUnavailable, "document renderer unavailable")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
