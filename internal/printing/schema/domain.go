// Package schema defines the persisted template shape: paper metadata plus an
// ordered list of positioned elements. Element order is z-order only.
package schema

import (
	"github.com/google/uuid"

	"github.com/rxdesk/rxdesk/internal/printing/layout"
)

// DocType enumerates the documents a template can print.
type DocType string

const (
	DocSale           DocType = "sale"
	DocPurchase       DocType = "purchase"
	DocReport         DocType = "report"
	DocReturnSale     DocType = "return_sale"
	DocReturnPurchase DocType = "return_purchase"
)

// DocTypes lists every supported document type.
func DocTypes() []DocType {
	return []DocType{DocSale, DocPurchase, DocReport, DocReturnSale, DocReturnPurchase}
}

// ElementType selects the renderer used for an element.
type ElementType string

const (
	TypeText    ElementType = "text"
	TypeLine    ElementType = "line"
	TypeTable   ElementType = "table"
	TypeTotals  ElementType = "totals"
	TypeQR      ElementType = "qr"
	TypeBarcode ElementType = "barcode"
	TypeLogo    ElementType = "logo"
)

// Align is the intra-box text alignment.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Meta carries the paper geometry and identity of a template.
type Meta struct {
	DocType     DocType            `json:"doc_type" validate:"required,oneof=sale purchase report return_sale return_purchase"`
	PaperSize   layout.Paper       `json:"paper_size" validate:"required,oneof=58 80 A4"`
	Orientation layout.Orientation `json:"orientation" validate:"required,oneof=portrait landscape"`
	Name        string             `json:"name" validate:"max=120"`
}

// Element is one positioned visual primitive. X is measured from the right
// edge of the safe area, Y from its top edge.
type Element struct {
	ID       string      `json:"id" validate:"required"`
	Type     ElementType `json:"type" validate:"required,oneof=text line table totals qr barcode logo"`
	Text     string      `json:"text"`
	X        float64     `json:"x"`
	Y        float64     `json:"y"`
	W        float64     `json:"w" validate:"gt=0"`
	H        float64     `json:"h" validate:"gt=0"`
	Align    Align       `json:"align" validate:"omitempty,oneof=left center right"`
	FontSize float64     `json:"fontSize" validate:"gte=0"`
	Bold     bool        `json:"bold"`
}

// Schema is the persisted unit: meta plus elements.
type Schema struct {
	Meta     Meta      `json:"meta"`
	Elements []Element `json:"elements"`
}

// DefaultMeta is the meta a new designer session starts with.
func DefaultMeta() Meta {
	return Meta{DocType: DocSale, PaperSize: layout.Paper80, Orientation: layout.Portrait}
}

// NewID returns a fresh element identifier.
func NewID() string {
	return uuid.NewString()
}

// NewElement returns the default text element with a fresh id.
func NewElement() Element {
	return Element{
		ID:       NewID(),
		Type:     TypeText,
		Text:     "Text",
		X:        10,
		Y:        10,
		W:        180,
		H:        34,
		Align:    AlignLeft,
		FontSize: 14,
	}
}

// Find returns the index of the element with id, or -1.
func Find(elements []Element, id string) int {
	for i := range elements {
		if elements[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the element slice.
func Clone(elements []Element) []Element {
	if elements == nil {
		return nil
	}
	out := make([]Element, len(elements))
	copy(out, elements)
	return out
}
