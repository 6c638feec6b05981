package templatehttp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rxdesk/rxdesk/internal/auth"
	"github.com/rxdesk/rxdesk/internal/platform/httpx"
	"github.com/rxdesk/rxdesk/internal/printing/layout"
	"github.com/rxdesk/rxdesk/internal/printing/schema"
	"github.com/rxdesk/rxdesk/internal/printing/templates"
	"github.com/rxdesk/rxdesk/internal/shared"
)

// TemplateService is the subset of templates.Service used by the handler.
type TemplateService interface {
	List(ctx context.Context, branchID string, filter templates.ListFilter) ([]templates.Template, error)
	Get(ctx context.Context, branchID, id string) (templates.Template, error)
	Delete(ctx context.Context, branchID, id string) error
	SetDefault(ctx context.Context, branchID, id string) (templates.Template, error)
}

// Handler exposes template management endpoints.
type Handler struct {
	logger  *slog.Logger
	service TemplateService
	auth    auth.Middleware
}

// NewHandler constructs a Handler value.
func NewHandler(logger *slog.Logger, service TemplateService, authMW auth.Middleware) *Handler {
	return &Handler{logger: logger, service: service, auth: authMW}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/templates", func(r chi.Router) {
		r.Use(h.auth.RequireAny(shared.PermPrintTemplates, shared.PermPrintDesign))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Post("/{id}/default", h.setDefault)
		r.Delete("/{id}", h.delete)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	scope, ok := shared.ScopeFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrMissingScope)
		return
	}
	q := r.URL.Query()
	filter := templates.ListFilter{
		DocType:   schema.DocType(strings.TrimSpace(q.Get("doc_type"))),
		PaperSize: layout.Paper(strings.TrimSpace(q.Get("paper_size"))),
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = limit
	}
	items, err := h.service.List(r.Context(), scope.BranchID, filter)
	if err != nil {
		h.fail(w, "list templates", err)
		return
	}
	if items == nil {
		items = []templates.Template{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"templates": items})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	scope, ok := shared.ScopeFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrMissingScope)
		return
	}
	tpl, err := h.service.Get(r.Context(), scope.BranchID, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get template", err)
		return
	}
	httpx.JSON(w, http.StatusOK, tpl)
}

func (h *Handler) setDefault(w http.ResponseWriter, r *http.Request) {
	scope, ok := shared.ScopeFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrMissingScope)
		return
	}
	tpl, err := h.service.SetDefault(r.Context(), scope.BranchID, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "set default template", err)
		return
	}
	httpx.JSON(w, http.StatusOK, tpl)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	scope, ok := shared.ScopeFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrMissingScope)
		return
	}
	if err := h.service.Delete(r.Context(), scope.BranchID, chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete template", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if h.logger != nil {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
