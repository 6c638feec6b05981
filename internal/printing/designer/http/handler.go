package designerhttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rxdesk/rxdesk/internal/auth"
	"github.com/rxdesk/rxdesk/internal/platform/httpx"
	"github.com/rxdesk/rxdesk/internal/printing/designer"
	"github.com/rxdesk/rxdesk/internal/printing/layout"
	"github.com/rxdesk/rxdesk/internal/printing/render"
	"github.com/rxdesk/rxdesk/internal/printing/schema"
	"github.com/rxdesk/rxdesk/internal/printing/templates"
	"github.com/rxdesk/rxdesk/internal/printing/tokens"
	"github.com/rxdesk/rxdesk/internal/shared"
)

// DesignerService is the designer.Service surface used over HTTP.
type DesignerService interface {
	Create(ctx context.Context, branchID string, meta *schema.Meta) (*designer.Session, error)
	State(ctx context.Context, branchID, id string) (*designer.Session, error)
	SetMeta(ctx context.Context, branchID, id string, meta schema.Meta) (*designer.Session, error)
	AddElement(ctx context.Context, branchID, id string) (*designer.Session, error)
	AddToken(ctx context.Context, branchID, id, token string) (*designer.Session, error)
	Select(ctx context.Context, branchID, id, elementID string) (*designer.Session, error)
	BeginGesture(ctx context.Context, branchID, id string, kind designer.GestureKind, elementID string, at designer.Point) (*designer.Session, error)
	PointerMove(ctx context.Context, branchID, id string, at designer.Point) (*designer.Session, error)
	EndGesture(ctx context.Context, branchID, id string) (*designer.Session, error)
	EditSelected(ctx context.Context, branchID, id string, patch designer.Patch) (*designer.Session, error)
	DeleteSelected(ctx context.Context, branchID, id string) (*designer.Session, error)
	Import(ctx context.Context, branchID, id, text string) (*designer.Session, error)
	Export(ctx context.Context, branchID, id string) (string, error)
	Load(ctx context.Context, branchID, id, templateID string) (*designer.Session, error)
	Save(ctx context.Context, branchID, id, name string) (templates.Template, *designer.Session, error)
	Preview(ctx context.Context, branchID, id string) (render.Document, error)
}

// Handler wires HTTP endpoints for the template designer.
type Handler struct {
	logger  *slog.Logger
	service DesignerService
	auth    auth.Middleware
}

// NewHandler constructs a Handler value.
func NewHandler(logger *slog.Logger, service DesignerService, authMW auth.Middleware) *Handler {
	return &Handler{logger: logger, service: service, auth: authMW}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/designer", func(r chi.Router) {
		r.Use(h.auth.RequireAny(shared.PermPrintDesign))
		r.Get("/tokens", h.tokens)
		r.Post("/sessions", h.create)
		r.Route("/sessions/{sid}", func(r chi.Router) {
			r.Get("/", h.state)
			r.Put("/meta", h.setMeta)
			r.Post("/elements", h.addElement)
			r.Post("/tokens", h.addToken)
			r.Post("/select", h.selectElement)
			r.Patch("/selected", h.editSelected)
			r.Delete("/selected", h.deleteSelected)
			r.Post("/gesture/move", h.pointerMove)
			r.Post("/gesture/end", h.endGesture)
			r.Post("/gesture/{kind}", h.beginGesture)
			r.Post("/import", h.importText)
			r.Get("/export", h.export)
			r.Post("/load", h.load)
			r.Post("/save", h.save)
			r.Get("/preview", h.preview)
		})
	})
}

type sessionView struct {
	*designer.Session
	Canvas   layout.Dims `json:"canvas"`
	SafeArea layout.Dims `json:"safe_area"`
	Margin   float64     `json:"margin"`
}

func newSessionView(sess *designer.Session) sessionView {
	paper, orientation := sess.Meta.PaperSize, sess.Meta.Orientation
	return sessionView{
		Session:  sess,
		Canvas:   layout.PaperDims(paper, orientation),
		SafeArea: layout.SafeArea(paper, orientation),
		Margin:   layout.PaperMargin(paper),
	}
}

func (h *Handler) writeSession(w http.ResponseWriter, status int, sess *designer.Session) {
	httpx.JSON(w, status, newSessionView(sess))
}

type tokenRequest struct {
	Token string `json:"token"`
}

type selectRequest struct {
	ElementID string `json:"element_id"`
}

type gestureRequest struct {
	ElementID string         `json:"element_id"`
	Pointer   designer.Point `json:"pointer"`
}

type importRequest struct {
	Text string `json:"text"`
}

type loadRequest struct {
	TemplateID string `json:"template_id"`
}

type saveRequest struct {
	Name string `json:"name"`
}

func (h *Handler) tokens(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"tokens": tokens.Tokens()})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	meta := schema.DefaultMeta()
	if err := decodeOptional(r, &meta); err != nil {
		h.fail(w, "decode session meta", err)
		return
	}
	sess, err := h.service.Create(r.Context(), scope.BranchID, &meta)
	if err != nil {
		h.fail(w, "create designer session", err)
		return
	}
	h.writeSession(w, http.StatusCreated, sess)
}

func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "designer state", func(ctx context.Context, branch, sid string) (*designer.Session, error) {
		return h.service.State(ctx, branch, sid)
	})
}

func (h *Handler) setMeta(w http.ResponseWriter, r *http.Request) {
	body := schema.DefaultMeta()
	if err := decodeOptional(r, &body); err != nil {
		h.fail(w, "decode meta", err)
		return
	}
	h.run(w, r, "designer set meta", func(ctx context.Context, branch, sid string) (*designer.Session, error) {
		return h.service.SetMeta(ctx, branch, sid, body)
	})
}

func (h *Handler) addElement(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "designer add element", func(ctx context.Context, branch, sid string) (*designer.Session, error) {
		return h.service.AddElement(ctx, branch, sid)
	})
}

func (h *Handler) addToken(w http.ResponseWriter, r *http.Request) {
	var body tokenRequest
	if err := decodeOptional(r, &body); err != nil {
		h.fail(w, "decode token", err)
		return
	}
	h.run(w, r, "designer add token", func(ctx context.Context, branch, sid string) (*designer.Session, error) {
		return h.service.AddToken(ctx, branch, sid, body.Token)
	})
}

func (h *Handler) selectElement(w http.ResponseWriter, r *http.Request) {
	var body selectRequest
	if err := decodeOptional(r, &body); err != nil {
		h.fail(w, "decode select", err)
		return
	}
	h.run(w, r, "designer select", func(ctx context.Context, branch, sid string) (*designer.Session, error) {
		return h.service.Select(ctx, branch, sid, body.ElementID)
	})
}

func (h *Handler) editSelected(w http.ResponseWriter, r *http.Request) {
	var body designer.Patch
	if err := decodeOptional(r, &body); err != nil {
		h.fail(w, "decode patch", err)
		return
	}
	h.run(w, r, "designer edit", func(ctx context.Context, branch, sid string) (*designer.Session, error) {
		return h.service.EditSelected(ctx, branch, sid, body)
	})
}

func (h *Handler) deleteSelected(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "designer delete", func(ctx context.Context, branch, sid string) (*designer.Session, error) {
		return h.service.DeleteSelected(ctx, branch, sid)
	})
}

func (h *Handler) beginGesture(w http.ResponseWriter, r *http.Request) {
	var kind designer.GestureKind
	switch chi.URLParam(r, "kind") {
	case "drag":
		kind = designer.GestureDragging
	case "resize":
		kind = designer.GestureResizing
	default:
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown gesture")
		return
	}
	var body gestureRequest
	if err := decodeOptional(r, &body); err != nil {
		h.fail(w, "decode gesture", err)
		return
	}
	h.run(w, r, "designer begin gesture", func(ctx context.Context, branch, sid string) (*designer.Session, error) {
		return h.service.BeginGesture(ctx, branch, sid, kind, body.ElementID, body.Pointer)
	})
}

func (h *Handler) pointerMove(w http.ResponseWriter, r *http.Request) {
	var body gestureRequest
	if err := decodeOptional(r, &body); err != nil {
		h.fail(w, "decode pointer", err)
		return
	}
	h.run(w, r, "designer pointer move", func(ctx context.Context, branch, sid string) (*designer.Session, error) {
		return h.service.PointerMove(ctx, branch, sid, body.Pointer)
	})
}

func (h *Handler) endGesture(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "designer end gesture", func(ctx context.Context, branch, sid string) (*designer.Session, error) {
		return h.service.EndGesture(ctx, branch, sid)
	})
}

func (h *Handler) importText(w http.ResponseWriter, r *http.Request) {
	var body importRequest
	if err := decodeOptional(r, &body); err != nil {
		h.fail(w, "decode import", err)
		return
	}
	h.run(w, r, "designer import", func(ctx context.Context, branch, sid string) (*designer.Session, error) {
		return h.service.Import(ctx, branch, sid, body.Text)
	})
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	text, err := h.service.Export(r.Context(), scope.BranchID, chi.URLParam(r, "sid"))
	if err != nil {
		h.fail(w, "designer export", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"text": text, "clipboard": "best-effort"})
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) {
	var body loadRequest
	if err := decodeOptional(r, &body); err != nil {
		h.fail(w, "decode load", err)
		return
	}
	h.run(w, r, "designer load", func(ctx context.Context, branch, sid string) (*designer.Session, error) {
		return h.service.Load(ctx, branch, sid, body.TemplateID)
	})
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	var body saveRequest
	if err := decodeOptional(r, &body); err != nil {
		h.fail(w, "decode save", err)
		return
	}
	tpl, sess, err := h.service.Save(r.Context(), scope.BranchID, chi.URLParam(r, "sid"), body.Name)
	if err != nil {
		h.fail(w, "designer save", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"template": tpl, "session": newSessionView(sess)})
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	doc, err := h.service.Preview(r.Context(), scope.BranchID, chi.URLParam(r, "sid"))
	if err != nil {
		h.fail(w, "designer preview", err)
		return
	}
	httpx.HTML(w, http.StatusOK, doc.HTML)
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request, msg string, fn func(ctx context.Context, branch, sid string) (*designer.Session, error)) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	sess, err := fn(r.Context(), scope.BranchID, chi.URLParam(r, "sid"))
	if err != nil {
		h.fail(w, msg, err)
		return
	}
	h.writeSession(w, http.StatusOK, sess)
}

func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (shared.Scope, bool) {
	scope, ok := shared.ScopeFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrMissingScope)
		return shared.Scope{}, false
	}
	return scope, true
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if h.logger != nil {
		if errors.Is(err, httpx.ErrValidation) || errors.Is(err, httpx.ErrNotFound) || errors.Is(err, httpx.ErrConflict) {
			h.logger.Warn(msg, slog.Any("error", err))
		} else {
			h.logger.Error(msg, slog.Any("error", err))
		}
	}
	httpx.RespondError(w, err)
}

func decodeOptional(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	if err := httpx.DecodeJSON(r, target); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: malformed request body", httpx.ErrValidation)
	}
	return nil
}
