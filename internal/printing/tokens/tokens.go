// Package tokens substitutes the closed set of {{name}} placeholders with
// values from a render data context.
package tokens

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Recognised placeholders.
const (
	ListRef    = "{{list_ref}}"
	Date       = "{{date}}"
	Cashier    = "{{cashier}}"
	Customer   = "{{customer}}"
	BranchName = "{{branch_name}}"
	Subtotal   = "{{subtotal}}"
	Discount   = "{{discount}}"
	GrandTotal = "{{grand_total}}"
)

var all = []string{ListRef, Date, Cashier, Customer, BranchName, Subtotal, Discount, GrandTotal}

// Tokens returns the recognised placeholders in display order.
func Tokens() []string {
	out := make([]string, len(all))
	copy(out, all)
	return out
}

// Known reports whether tok is a recognised placeholder.
func Known(tok string) bool {
	for _, t := range all {
		if t == tok {
			return true
		}
	}
	return false
}

// Item is a single line of the table element.
type Item struct {
	Name  string           `json:"name"`
	Qty   string           `json:"qty"`
	Total *decimal.Decimal `json:"total,omitempty"`
}

// Context is the per-job data merged into a template.
type Context struct {
	BranchName string           `json:"branch_name"`
	ListRef    string           `json:"list_ref"`
	Date       string           `json:"date"`
	Cashier    string           `json:"cashier"`
	Customer   string           `json:"customer"`
	Subtotal   *decimal.Decimal `json:"subtotal,omitempty"`
	Discount   *decimal.Decimal `json:"discount,omitempty"`
	GrandTotal *decimal.Decimal `json:"grand_total,omitempty"`
	Items      []Item           `json:"items"`
}

// FormatMoney renders a value with two fixed decimals; nil renders as 0.00.
func FormatMoney(v *decimal.Decimal) string {
	if v == nil {
		return "0.00"
	}
	return v.StringFixed(2)
}

// Money is a helper for building optional decimal fields.
func Money(v decimal.Decimal) *decimal.Decimal {
	return &v
}

func (c Context) value(tok string) string {
	switch tok {
	case ListRef:
		return c.ListRef
	case Date:
		return c.Date
	case Cashier:
		return c.Cashier
	case Customer:
		return c.Customer
	case BranchName:
		return c.BranchName
	case Subtotal:
		return FormatMoney(c.Subtotal)
	case Discount:
		return FormatMoney(c.Discount)
	case GrandTotal:
		return FormatMoney(c.GrandTotal)
	}
	return tok
}

// Substitute replaces every recognised placeholder in text in a single
// left-to-right pass. Unknown {{...}} sequences are copied verbatim and
// replacement values are never rescanned.
func Substitute(text string, ctx Context) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); {
		if text[i] == '{' && strings.HasPrefix(text[i:], "{{") {
			if tok, ok := matchAt(text[i:]); ok {
				b.WriteString(ctx.value(tok))
				i += len(tok)
				continue
			}
		}
		b.WriteByte(text[i])
		i++
	}
	return b.String()
}

func matchAt(s string) (string, bool) {
	for _, tok := range all {
		if strings.HasPrefix(s, tok) {
			return tok, true
		}
	}
	return "", false
}
