package render

import (
	"github.com/shopspring/decimal"

	"github.com/rxdesk/rxdesk/internal/printing/layout"
	"github.com/rxdesk/rxdesk/internal/printing/schema"
	"github.com/rxdesk/rxdesk/internal/printing/tokens"
)

// FallbackTemplate is the built-in layout used when a branch has no stored
// template for the requested document and paper.
func FallbackTemplate(docType schema.DocType, paper layout.Paper) schema.Schema {
	if docType == "" {
		docType = schema.DocSale
	}
	paper = layout.ParsePaper(string(paper))
	w := layout.PrintCanvas(paper, layout.Portrait).W - 20
	return schema.Schema{
		Meta: schema.Meta{
			DocType:     docType,
			PaperSize:   paper,
			Orientation: layout.Portrait,
			Name:        "Default Sale",
		},
		Elements: []schema.Element{
			{ID: "t1", Type: schema.TypeText, Text: tokens.BranchName, X: 10, Y: 8, W: w, H: 30, Align: schema.AlignCenter, FontSize: 16, Bold: true},
			{ID: "t2", Type: schema.TypeText, Text: tokens.Date, X: 10, Y: 34, W: w, H: 22, Align: schema.AlignCenter, FontSize: 12},
			{ID: "line1", Type: schema.TypeLine, X: 10, Y: 62, W: w, H: 2},
			{ID: "table", Type: schema.TypeTable, X: 10, Y: 70, W: w, H: 380},
			{ID: "tot", Type: schema.TypeTotals, X: 10, Y: 460, W: w, H: 120},
			{ID: "bc", Type: schema.TypeBarcode, Text: tokens.ListRef, X: 10, Y: 585, W: w, H: 60, Align: schema.AlignCenter, FontSize: 12},
		},
	}
}

// SampleData is the context used for designer previews. String tokens render
// as themselves so the operator sees where each value lands.
func SampleData() tokens.Context {
	zero := decimal.Zero
	return tokens.Context{
		BranchName: tokens.BranchName,
		ListRef:    tokens.ListRef,
		Date:       tokens.Date,
		Cashier:    tokens.Cashier,
		Customer:   tokens.Customer,
		Items: []tokens.Item{
			{Name: "Sample", Qty: "1", Total: &zero},
			{Name: "Sample", Qty: "2", Total: &zero},
		},
	}
}
