// Package receipt fetches a completed sale, merges it into the branch's
// effective template and hands the document to a print surface.
package receipt

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rxdesk/rxdesk/internal/platform/httpx"
	"github.com/rxdesk/rxdesk/internal/printing/layout"
	"github.com/rxdesk/rxdesk/internal/printing/render"
	"github.com/rxdesk/rxdesk/report"
)

// DateLayout is the receipt timestamp format.
const DateLayout = "02/01/2006 15:04"

// DefaultBranchName is printed when the branch has no name.
const DefaultBranchName = "Branch"

var (
	// ErrSaleNotFound indicates the sale is unknown or belongs to another branch.
	ErrSaleNotFound = fmt.Errorf("sale: %w", httpx.ErrNotFound)
	// ErrMissingIDs indicates the branch or sale id was not supplied.
	ErrMissingIDs = fmt.Errorf("%w: missing branch id or sale id", httpx.ErrValidation)
)

// SaleHeader is the sale row as stored by the point of sale.
type SaleHeader struct {
	ID            string
	BranchID      string
	ListRef       string
	CreatedAt     time.Time
	CustomerName  string
	Subtotal      decimal.Decimal
	GrandTotal    decimal.Decimal
	DiscountValue decimal.Decimal
	DiscountType  string
}

// Discount returns the discount amount. Percent discounts apply to the subtotal.
func (h SaleHeader) Discount() decimal.Decimal {
	if h.DiscountType == "percent" {
		return h.Subtotal.Mul(h.DiscountValue).Div(decimal.NewFromInt(100))
	}
	return h.DiscountValue
}

// SaleItem is one sold line joined with its product.
type SaleItem struct {
	TradeName string
	Strength  string
	Qty       decimal.Decimal
	LineTotal decimal.Decimal
}

// DisplayName joins the trade name and strength, skipping empty parts.
func (i SaleItem) DisplayName() string {
	parts := make([]string, 0, 2)
	for _, p := range []string{i.TradeName, i.Strength} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// PrintRequest asks for a sale receipt.
type PrintRequest struct {
	BranchID string
	SaleID   string
	Paper    layout.Paper
	// MarginMm below zero selects the configured default.
	MarginMm float64
	// Format picks the surface: html, pdf or printer.
	Format string
}

// Printed is the outcome of a print job.
type Printed struct {
	Document render.Document
	Artifact report.Artifact
}
