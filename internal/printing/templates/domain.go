// Package templates persists print templates per branch and resolves the
// effective template for a document and paper size.
package templates

import (
	"fmt"
	"time"

	"github.com/rxdesk/rxdesk/internal/platform/httpx"
	"github.com/rxdesk/rxdesk/internal/printing/layout"
	"github.com/rxdesk/rxdesk/internal/printing/schema"
)

// ErrTemplateNotFound indicates no template matched the lookup.
var ErrTemplateNotFound = fmt.Errorf("print template: %w", httpx.ErrNotFound)

// Template is a persisted print template row.
type Template struct {
	ID          string             `json:"id"`
	BranchID    string             `json:"branch_id"`
	Name        string             `json:"name"`
	DocType     schema.DocType     `json:"doc_type"`
	PaperSize   layout.Paper       `json:"paper_size"`
	Orientation layout.Orientation `json:"orientation"`
	Schema      schema.Schema      `json:"template_json"`
	IsDefault   bool               `json:"is_default"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// ListFilter narrows template listings.
type ListFilter struct {
	DocType   schema.DocType
	PaperSize layout.Paper
	Limit     int
}

// SaveInput is the designer payload written on save. ID selects update over insert.
type SaveInput struct {
	ID       string           `validate:"omitempty,uuid"`
	BranchID string           `validate:"required"`
	Name     string           `validate:"required,max=120"`
	Meta     schema.Meta
	Elements []schema.Element
}

// Lookup identifies the effective template for a print job.
type Lookup struct {
	BranchID  string
	DocType   schema.DocType
	PaperSize layout.Paper
}

func (l Lookup) key() []string {
	return []string{"print", "tpl", l.BranchID, string(l.DocType), string(l.PaperSize)}
}

// PrintSchema returns the stored schema with empty meta fields filled from the
// row columns. paper is used when neither the JSON nor the row names one.
func (t Template) PrintSchema(paper layout.Paper) schema.Schema {
	s := t.Schema
	meta := &s.Meta
	if meta.DocType == "" {
		meta.DocType = t.DocType
	}
	if meta.DocType == "" {
		meta.DocType = schema.DocSale
	}
	if meta.PaperSize == "" {
		meta.PaperSize = t.PaperSize
	}
	if meta.PaperSize == "" {
		meta.PaperSize = paper
	}
	if meta.Orientation == "" {
		meta.Orientation = t.Orientation
	}
	if meta.Orientation == "" {
		meta.Orientation = layout.Portrait
	}
	if meta.Name == "" {
		meta.Name = t.Name
	}
	return s
}
