// Package designer holds the template designer state machine: selection,
// drag and resize gestures, property edits, import/export and load/save.
package designer

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rxdesk/rxdesk/internal/platform/httpx"
	"github.com/rxdesk/rxdesk/internal/printing/layout"
	"github.com/rxdesk/rxdesk/internal/printing/schema"
	"github.com/rxdesk/rxdesk/internal/printing/tokens"
)

const (
	// MinWidth and MinHeight floor every resize.
	MinWidth  = 40
	MinHeight = 20
	// TokenWidth is the width given to token elements.
	TokenWidth = 220
)

var (
	ErrElementNotFound = fmt.Errorf("designer element: %w", httpx.ErrNotFound)
	ErrNoSelection     = fmt.Errorf("%w: no element selected", httpx.ErrValidation)
	ErrUnknownToken    = fmt.Errorf("%w: unknown token", httpx.ErrValidation)
	ErrGestureActive   = fmt.Errorf("%w: another gesture is active", httpx.ErrConflict)
)

// Point is a pointer position in canvas pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Box is an element's geometry captured at gesture start.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// GestureKind tags the active pointer gesture.
type GestureKind string

const (
	GestureNone     GestureKind = ""
	GestureDragging GestureKind = "dragging"
	GestureResizing GestureKind = "resizing"
)

// Gesture is the single active pointer interaction on the canvas.
type Gesture struct {
	Kind      GestureKind `json:"kind,omitempty"`
	ElementID string      `json:"element_id,omitempty"`
	Origin    Point       `json:"origin"`
	Base      Box         `json:"base"`
}

// Active reports whether a gesture is in progress.
func (g Gesture) Active() bool { return g.Kind != GestureNone }

// Session is one operator's in-progress template.
type Session struct {
	ID         string           `json:"id"`
	BranchID   string           `json:"branch_id"`
	Meta       schema.Meta      `json:"meta"`
	Elements   []schema.Element `json:"elements"`
	SelectedID string           `json:"selected_id,omitempty"`
	Gesture    Gesture          `json:"gesture"`
	TemplateID string           `json:"template_id,omitempty"`
	ImportText string           `json:"import_text,omitempty"`
	Revision   int64            `json:"revision"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// NewSession starts a session with a single default element.
func NewSession(id, branchID string, meta schema.Meta) *Session {
	return &Session{
		ID:       id,
		BranchID: branchID,
		Meta:     meta,
		Elements: []schema.Element{schema.NewElement()},
	}
}

// Schema returns the session content as a template schema.
func (s *Session) Schema() schema.Schema {
	return schema.Schema{Meta: s.Meta, Elements: schema.Clone(s.Elements)}
}

// Selected returns the selected element, if any.
func (s *Session) Selected() (schema.Element, bool) {
	if i := schema.Find(s.Elements, s.SelectedID); i >= 0 {
		return s.Elements[i], true
	}
	return schema.Element{}, false
}

// SetMeta replaces the document, paper and orientation choice.
func (s *Session) SetMeta(meta schema.Meta) error {
	meta.PaperSize = layout.ParsePaper(string(meta.PaperSize))
	meta.Orientation = layout.ParseOrientation(string(meta.Orientation))
	if err := schema.ValidateMeta(meta); err != nil {
		return err
	}
	s.Meta = meta
	return nil
}

// AddElement prepends a default element and selects it.
func (s *Session) AddElement() schema.Element {
	el := schema.NewElement()
	s.prepend(el)
	return el
}

// AddToken prepends a text element holding exactly one token and selects it.
func (s *Session) AddToken(token string) (schema.Element, error) {
	if !tokens.Known(token) {
		return schema.Element{}, fmt.Errorf("%w: %s", ErrUnknownToken, token)
	}
	el := schema.NewElement()
	el.Text = token
	el.W = TokenWidth
	s.prepend(el)
	return el, nil
}

func (s *Session) prepend(el schema.Element) {
	s.Elements = append([]schema.Element{el}, s.Elements...)
	s.SelectedID = el.ID
}

// Select selects an element; an empty id clears the selection.
func (s *Session) Select(id string) error {
	if id == "" {
		s.SelectedID = ""
		return nil
	}
	if schema.Find(s.Elements, id) < 0 {
		return ErrElementNotFound
	}
	s.SelectedID = id
	return nil
}

// BeginDrag starts moving an element. Pressing an element selects it.
func (s *Session) BeginDrag(id string, at Point) error {
	return s.begin(GestureDragging, id, at)
}

// BeginResize starts resizing the selected element.
func (s *Session) BeginResize(id string, at Point) error {
	if id != s.SelectedID {
		return ErrNoSelection
	}
	return s.begin(GestureResizing, id, at)
}

func (s *Session) begin(kind GestureKind, id string, at Point) error {
	if s.Gesture.Active() {
		return ErrGestureActive
	}
	i := schema.Find(s.Elements, id)
	if i < 0 {
		return ErrElementNotFound
	}
	el := s.Elements[i]
	s.SelectedID = id
	s.Gesture = Gesture{
		Kind:      kind,
		ElementID: id,
		Origin:    at,
		Base:      Box{X: el.X, Y: el.Y, W: el.W, H: el.H},
	}
	return nil
}

// PointerMove applies the pointer position to the active gesture. It reports
// false and changes nothing when no gesture is active.
func (s *Session) PointerMove(at Point) bool {
	if !s.Gesture.Active() {
		return false
	}
	i := schema.Find(s.Elements, s.Gesture.ElementID)
	if i < 0 {
		s.Gesture = Gesture{}
		return false
	}
	g := s.Gesture
	dx := at.X - g.Origin.X
	dy := at.Y - g.Origin.Y
	el := &s.Elements[i]
	switch g.Kind {
	case GestureDragging:
		el.X = layout.Snap(math.Max(0, g.Base.X-dx))
		el.Y = layout.Snap(math.Max(0, g.Base.Y+dy))
	case GestureResizing:
		el.W = math.Max(MinWidth, layout.Snap(math.Max(MinWidth, g.Base.W+dx)))
		el.H = math.Max(MinHeight, layout.Snap(math.Max(MinHeight, g.Base.H+dy)))
	}
	return true
}

// EndGesture releases the pointer. Later moves are ignored.
func (s *Session) EndGesture() bool {
	active := s.Gesture.Active()
	s.Gesture = Gesture{}
	return active
}

// Patch carries property-panel edits; nil fields are left unchanged.
type Patch struct {
	Type     *schema.ElementType `json:"type,omitempty"`
	Text     *string             `json:"text,omitempty"`
	X        *float64            `json:"x,omitempty"`
	Y        *float64            `json:"y,omitempty"`
	W        *float64            `json:"w,omitempty"`
	H        *float64            `json:"h,omitempty"`
	Align    *schema.Align       `json:"align,omitempty"`
	FontSize *float64            `json:"fontSize,omitempty"`
	Bold     *bool               `json:"bold,omitempty"`
}

// EditSelected applies a patch to the selected element without snapping.
func (s *Session) EditSelected(p Patch) (schema.Element, error) {
	i := schema.Find(s.Elements, s.SelectedID)
	if i < 0 {
		return schema.Element{}, ErrNoSelection
	}
	el := s.Elements[i]
	if p.Type != nil {
		el.Type = *p.Type
	}
	if p.Text != nil {
		el.Text = *p.Text
	}
	if p.X != nil {
		el.X = *p.X
	}
	if p.Y != nil {
		el.Y = *p.Y
	}
	if p.W != nil {
		el.W = *p.W
	}
	if p.H != nil {
		el.H = *p.H
	}
	if p.Align != nil {
		el.Align = *p.Align
	}
	if p.FontSize != nil {
		el.FontSize = *p.FontSize
	}
	if p.Bold != nil {
		el.Bold = *p.Bold
	}
	if err := schema.ValidateElements([]schema.Element{el}); err != nil {
		return schema.Element{}, err
	}
	s.Elements[i] = el
	return el, nil
}

// DeleteSelected removes the selected element and clears the selection.
func (s *Session) DeleteSelected() error {
	i := schema.Find(s.Elements, s.SelectedID)
	if i < 0 {
		return ErrNoSelection
	}
	if s.Gesture.ElementID == s.SelectedID {
		s.Gesture = Gesture{}
	}
	s.Elements = append(s.Elements[:i:i], s.Elements[i+1:]...)
	s.SelectedID = ""
	return nil
}

// Import replaces the elements from import text and selects the first one.
// On error the session is left as it was.
func (s *Session) Import(text string) error {
	elements, err := schema.Import(text)
	if err != nil {
		return err
	}
	s.Elements = elements
	s.SelectedID = elements[0].ID
	s.Gesture = Gesture{}
	s.ImportText = text
	return nil
}

// Export serialises the session and keeps the text for the import/export area.
func (s *Session) Export() (string, error) {
	text, err := schema.Export(s.Schema())
	if err != nil {
		return "", err
	}
	s.ImportText = text
	return text, nil
}

// Load replaces the session content with a persisted template and remembers
// its id so the next save updates it in place.
func (s *Session) Load(templateID string, meta schema.Meta, elements []schema.Element) {
	s.Meta = meta
	s.Gesture = Gesture{}
	s.TemplateID = templateID
	if len(elements) == 0 {
		s.Elements = []schema.Element{schema.NewElement()}
		s.SelectedID = ""
		return
	}
	s.Elements = schema.Clone(elements)
	s.SelectedID = s.Elements[0].ID
}

// SaveName returns the name a save will use.
func (s *Session) SaveName() string {
	if name := strings.TrimSpace(s.Meta.Name); name != "" {
		return name
	}
	return "Template"
}
