package receipthttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rxdesk/rxdesk/internal/auth"
	"github.com/rxdesk/rxdesk/internal/platform/httpx"
	"github.com/rxdesk/rxdesk/internal/printing/layout"
	"github.com/rxdesk/rxdesk/internal/receipt"
	"github.com/rxdesk/rxdesk/internal/shared"
	"github.com/rxdesk/rxdesk/jobs"
)

// Printer runs the receipt pipeline.
type Printer interface {
	PrintSale(ctx context.Context, req receipt.PrintRequest) (receipt.Printed, error)
}

// Enqueuer schedules background receipt prints.
type Enqueuer interface {
	EnqueueReceiptPrint(ctx context.Context, payload jobs.ReceiptPrintPayload) (string, error)
}

// Handler wires HTTP endpoints for receipt printing.
type Handler struct {
	logger  *slog.Logger
	printer Printer
	queue   Enqueuer
	auth    auth.Middleware
}

// NewHandler constructs a Handler value. queue may be nil when no worker runs.
func NewHandler(logger *slog.Logger, printer Printer, queue Enqueuer, authMW auth.Middleware) *Handler {
	return &Handler{logger: logger, printer: printer, queue: queue, auth: authMW}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.auth.RequireAny(shared.PermPrintReceipt))
		r.Get("/sales/{saleID}/receipt", h.printSale)
		r.Post("/events/sale-completed", h.saleCompleted)
	})
}

func (h *Handler) printSale(w http.ResponseWriter, r *http.Request) {
	scope, ok := shared.ScopeFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrMissingScope)
		return
	}
	q := r.URL.Query()
	margin := -1.0
	if raw := strings.TrimSpace(q.Get("margin")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			httpx.RespondError(w, fmt.Errorf("%w: margin must be a non-negative number", httpx.ErrValidation))
			return
		}
		margin = v
	}
	out, err := h.printer.PrintSale(r.Context(), receipt.PrintRequest{
		BranchID: scope.BranchID,
		SaleID:   chi.URLParam(r, "saleID"),
		Paper:    layout.ParsePaper(q.Get("paper")),
		MarginMm: margin,
		Format:   q.Get("format"),
	})
	if err != nil {
		h.fail("print sale receipt", err)
		httpx.RespondError(w, err)
		return
	}
	art := out.Artifact
	w.Header().Set("Content-Type", art.ContentType)
	if art.Filename != "" {
		w.Header().Set("Content-Disposition", "inline; filename="+art.Filename)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(art.Body)
}

type saleCompletedRequest struct {
	SaleID   string   `json:"sale_id"`
	Paper    string   `json:"paper"`
	MarginMm *float64 `json:"margin_mm"`
}

func (h *Handler) saleCompleted(w http.ResponseWriter, r *http.Request) {
	scope, ok := shared.ScopeFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrMissingScope)
		return
	}
	if h.queue == nil {
		httpx.RespondError(w, fmt.Errorf("receipt queue: %w", httpx.ErrUnavailable))
		return
	}
	var body saleCompletedRequest
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed request body", httpx.ErrValidation))
		return
	}
	if strings.TrimSpace(body.SaleID) == "" {
		httpx.RespondError(w, receipt.ErrMissingIDs)
		return
	}
	if body.MarginMm != nil && *body.MarginMm < 0 {
		httpx.RespondError(w, fmt.Errorf("%w: margin_mm must be a non-negative number", httpx.ErrValidation))
		return
	}
	id, err := h.queue.EnqueueReceiptPrint(r.Context(), jobs.ReceiptPrintPayload{
		BranchID: scope.BranchID,
		SaleID:   body.SaleID,
		Paper:    string(layout.ParsePaper(body.Paper)),
		MarginMm: body.MarginMm,
	})
	if errors.Is(err, httpx.ErrDuplicate) {
		h.fail("enqueue receipt print", err)
		httpx.RespondError(w, err)
		return
	}
	if err != nil {
		h.fail("enqueue receipt print", err)
		httpx.RespondError(w, fmt.Errorf("enqueue receipt: %w", httpx.ErrUnavailable))
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"task_id": id, "sale_id": body.SaleID})
}

func (h *Handler) fail(msg string, err error) {
	if h.logger == nil {
		return
	}
	if errors.Is(err, httpx.ErrValidation) || errors.Is(err, httpx.ErrNotFound) || errors.Is(err, httpx.ErrDuplicate) {
		h.logger.Warn(msg, slog.Any("error", err))
		return
	}
	h.logger.Error(msg, slog.Any("error", err))
}
