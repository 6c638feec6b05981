package report

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rxdesk/rxdesk/internal/platform/httpx"
)

// Handler exposes surface health endpoints.
type Handler struct {
	client *Client
	logger *slog.Logger
}

// NewHandler creates a surface handler.
func NewHandler(client *Client, logger *slog.Logger) *Handler {
	return &Handler{client: client, logger: logger}
}

// MountRoutes registers surface routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/surfaces/pdf/ping", h.ping)
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if h.client == nil {
		httpx.RespondError(w, ErrSurfaceUnavailable)
		return
	}
	if err := h.client.Ping(r.Context()); err != nil {
		if h.logger != nil {
			h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		}
		httpx.RespondError(w, ErrSurfaceUnavailable)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
