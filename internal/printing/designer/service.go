package designer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rxdesk/rxdesk/internal/platform/httpx"
	"github.com/rxdesk/rxdesk/internal/printing/layout"
	"github.com/rxdesk/rxdesk/internal/printing/render"
	"github.com/rxdesk/rxdesk/internal/printing/schema"
	"github.com/rxdesk/rxdesk/internal/printing/templates"
	"github.com/rxdesk/rxdesk/internal/printing/tokens"
)

// TemplateStore is the subset of templates.Service the designer needs.
type TemplateStore interface {
	Get(ctx context.Context, branchID, id string) (templates.Template, error)
	Save(ctx context.Context, in templates.SaveInput) (templates.Template, error)
}

// RenderRecorder observes rendered documents.
type RenderRecorder interface {
	ObserveRender(docType, mode string)
}

// Service runs designer operations against stored sessions.
type Service struct {
	sessions  *SessionStore
	templates TemplateStore
	renderer  *render.Renderer
	recorder  RenderRecorder
}

// NewService constructs a Service. recorder may be nil.
func NewService(sessions *SessionStore, tpls TemplateStore, renderer *render.Renderer, recorder RenderRecorder) *Service {
	return &Service{sessions: sessions, templates: tpls, renderer: renderer, recorder: recorder}
}

// Create opens a new designer session for the branch.
func (s *Service) Create(ctx context.Context, branchID string, meta *schema.Meta) (*Session, error) {
	if strings.TrimSpace(branchID) == "" {
		return nil, fmt.Errorf("%w: branch required", httpx.ErrValidation)
	}
	sess := NewSession("", branchID, schema.DefaultMeta())
	if meta != nil {
		if err := sess.SetMeta(*meta); err != nil {
			return nil, err
		}
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// State returns the current session.
func (s *Service) State(ctx context.Context, branchID, id string) (*Session, error) {
	sess, err := s.sessions.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.BranchID != branchID {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *Service) mutate(ctx context.Context, branchID, id string, fn func(*Session) error) (*Session, error) {
	return s.sessions.Update(ctx, id, func(sess *Session) error {
		if sess.BranchID != branchID {
			return ErrSessionNotFound
		}
		return fn(sess)
	})
}

// SetMeta updates the step-one document choice.
func (s *Service) SetMeta(ctx context.Context, branchID, id string, meta schema.Meta) (*Session, error) {
	return s.mutate(ctx, branchID, id, func(sess *Session) error { return sess.SetMeta(meta) })
}

// AddElement prepends a default element.
func (s *Service) AddElement(ctx context.Context, branchID, id string) (*Session, error) {
	return s.mutate(ctx, branchID, id, func(sess *Session) error {
		sess.AddElement()
		return nil
	})
}

// AddToken prepends a token element.
func (s *Service) AddToken(ctx context.Context, branchID, id, token string) (*Session, error) {
	return s.mutate(ctx, branchID, id, func(sess *Session) error {
		_, err := sess.AddToken(token)
		return err
	})
}

// Select changes the selection.
func (s *Service) Select(ctx context.Context, branchID, id, elementID string) (*Session, error) {
	return s.mutate(ctx, branchID, id, func(sess *Session) error { return sess.Select(elementID) })
}

// BeginGesture starts a drag or resize.
func (s *Service) BeginGesture(ctx context.Context, branchID, id string, kind GestureKind, elementID string, at Point) (*Session, error) {
	return s.mutate(ctx, branchID, id, func(sess *Session) error {
		switch kind {
		case GestureDragging:
			return sess.BeginDrag(elementID, at)
		case GestureResizing:
			return sess.BeginResize(elementID, at)
		default:
			return fmt.Errorf("%w: unknown gesture %q", httpx.ErrValidation, kind)
		}
	})
}

// PointerMove feeds a pointer position to the active gesture.
func (s *Service) PointerMove(ctx context.Context, branchID, id string, at Point) (*Session, error) {
	return s.mutate(ctx, branchID, id, func(sess *Session) error {
		sess.PointerMove(at)
		return nil
	})
}

// EndGesture releases the pointer.
func (s *Service) EndGesture(ctx context.Context, branchID, id string) (*Session, error) {
	return s.mutate(ctx, branchID, id, func(sess *Session) error {
		sess.EndGesture()
		return nil
	})
}

// EditSelected applies a property patch.
func (s *Service) EditSelected(ctx context.Context, branchID, id string, patch Patch) (*Session, error) {
	return s.mutate(ctx, branchID, id, func(sess *Session) error {
		_, err := sess.EditSelected(patch)
		return err
	})
}

// DeleteSelected removes the selected element.
func (s *Service) DeleteSelected(ctx context.Context, branchID, id string) (*Session, error) {
	return s.mutate(ctx, branchID, id, func(sess *Session) error { return sess.DeleteSelected() })
}

// Import replaces the elements from import text.
func (s *Service) Import(ctx context.Context, branchID, id, text string) (*Session, error) {
	return s.mutate(ctx, branchID, id, func(sess *Session) error { return sess.Import(text) })
}

// Export serialises the session schema.
func (s *Service) Export(ctx context.Context, branchID, id string) (string, error) {
	var text string
	_, err := s.mutate(ctx, branchID, id, func(sess *Session) error {
		var err error
		text, err = sess.Export()
		return err
	})
	return text, err
}

// Load pulls a persisted template into the session. Template errors leave
// the session untouched.
func (s *Service) Load(ctx context.Context, branchID, id, templateID string) (*Session, error) {
	if _, err := s.State(ctx, branchID, id); err != nil {
		return nil, err
	}
	tpl, err := s.templates.Get(ctx, branchID, templateID)
	if err != nil {
		return nil, err
	}
	meta := schema.Meta{
		DocType:     tpl.DocType,
		PaperSize:   layout.ParsePaper(string(tpl.PaperSize)),
		Orientation: layout.ParseOrientation(string(tpl.Orientation)),
		Name:        tpl.Name,
	}
	return s.mutate(ctx, branchID, id, func(sess *Session) error {
		sess.Load(tpl.ID, meta, tpl.Schema.Elements)
		return nil
	})
}

// Save writes the session to the template store: an update when a template
// was loaded, an insert otherwise. A failed write leaves the session as is.
func (s *Service) Save(ctx context.Context, branchID, id, name string) (templates.Template, *Session, error) {
	sess, err := s.State(ctx, branchID, id)
	if err != nil {
		return templates.Template{}, nil, err
	}
	if strings.TrimSpace(name) != "" {
		sess.Meta.Name = strings.TrimSpace(name)
	}
	saved, err := s.templates.Save(ctx, templates.SaveInput{
		ID:       sess.TemplateID,
		BranchID: branchID,
		Name:     sess.SaveName(),
		Meta:     sess.Meta,
		Elements: sess.Elements,
	})
	if err != nil {
		return templates.Template{}, nil, err
	}
	updated, err := s.mutate(ctx, branchID, id, func(cur *Session) error {
		cur.Meta.Name = saved.Name
		cur.TemplateID = ""
		return nil
	})
	if err != nil {
		return saved, nil, err
	}
	return saved, updated, nil
}

// Preview renders the session with sample data through the print renderer.
func (s *Service) Preview(ctx context.Context, branchID, id string) (render.Document, error) {
	sess, err := s.State(ctx, branchID, id)
	if err != nil {
		return render.Document{}, err
	}
	doc := s.renderer.Render(sess.Schema(), tokens.Context{}, render.ModePreview, layout.DefaultMarginMm)
	if s.recorder != nil {
		s.recorder.ObserveRender(string(doc.DocType), render.ModePreview.String())
	}
	return doc, nil
}
