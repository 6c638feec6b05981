package render

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rxdesk/rxdesk/internal/printing/layout"
	"github.com/rxdesk/rxdesk/internal/printing/schema"
	"github.com/rxdesk/rxdesk/internal/printing/tokens"
)

func receiptData() tokens.Context {
	sub := decimal.RequireFromString("12.5")
	return tokens.Context{
		BranchName: "Downtown",
		ListRef:    "S-0042",
		Date:       "02/01/2026 09:30",
		Subtotal:   &sub,
		Discount:   tokens.Money(decimal.Zero),
		GrandTotal: &sub,
		Items: []tokens.Item{
			{Name: `Amoxil <500mg> & "Co" 'x'`, Qty: "2", Total: tokens.Money(decimal.RequireFromString("7.5"))},
		},
	}
}

func TestRenderEscapesItemNames(t *testing.T) {
	doc := NewRenderer(Options{}).Render(FallbackTemplate(schema.DocSale, layout.Paper80), receiptData(), ModePrint, 4)
	require.Contains(t, doc.HTML, "Amoxil &lt;500mg&gt; &amp; &quot;Co&quot; &#39;x&#39;")
	require.NotContains(t, doc.HTML, "<500mg>")
	require.Contains(t, doc.HTML, ">7.50</td>")
}

func TestRenderFallbackLayout(t *testing.T) {
	tpl := FallbackTemplate(schema.DocSale, layout.Paper80)
	require.Len(t, tpl.Elements, 6)
	for _, el := range tpl.Elements {
		require.Equal(t, 360.0, el.W)
	}
	require.Equal(t, schema.TypeBarcode, tpl.Elements[5].Type)
	require.Equal(t, tokens.ListRef, tpl.Elements[5].Text)

	doc := NewRenderer(Options{}).Render(tpl, receiptData(), ModePrint, 4)
	require.Equal(t, layout.Dims{W: 380, H: 900}, doc.Canvas)
	require.Contains(t, doc.HTML, "#paper{position:relative;width:380px;min-height:900px;")
	require.Contains(t, doc.HTML, "@page{size:80mm 300mm;margin:4mm;}")
	require.Contains(t, doc.HTML, "Downtown")
	require.Contains(t, doc.HTML, ">S-0042</div>")
	require.Contains(t, doc.HTML, "<span>Total</span><span>12.50</span>")

	require.Equal(t, 260.0, FallbackTemplate(schema.DocSale, layout.Paper58).Elements[0].W)
}

func TestRenderPreservesZOrder(t *testing.T) {
	a := schema.Element{ID: "a", Type: schema.TypeText, Text: "FIRST", X: 10, Y: 10, W: 100, H: 20}
	b := schema.Element{ID: "b", Type: schema.TypeText, Text: "SECOND", X: 10, Y: 10, W: 100, H: 20}
	doc := NewRenderer(Options{}).Render(schema.Schema{Meta: schema.DefaultMeta(), Elements: []schema.Element{a, b}}, tokens.Context{}, ModePrint, 4)
	require.Less(t, strings.Index(doc.HTML, "FIRST"), strings.Index(doc.HTML, "SECOND"))
}

func TestRenderAnchorsRightAndTop(t *testing.T) {
	el := schema.Element{ID: "a", Type: schema.TypeLine, X: 15, Y: 25, W: 100, H: 2}
	doc := NewRenderer(Options{}).Render(schema.Schema{Meta: schema.DefaultMeta(), Elements: []schema.Element{el}}, tokens.Context{}, ModePrint, 4)
	require.Contains(t, doc.HTML, "position:absolute;right:15px;top:25px;width:100px;height:2px;")
	require.Contains(t, doc.HTML, "#safe{position:absolute;left:10px;top:10px;width:360px;height:880px;}")
}

func TestRenderUsesTemplateMetaNotRequest(t *testing.T) {
	tpl := schema.Schema{Meta: schema.Meta{DocType: schema.DocSale, PaperSize: layout.PaperA4, Orientation: layout.Landscape}}
	doc := NewRenderer(Options{}).Render(tpl, tokens.Context{}, ModePrint, -1)
	require.Equal(t, layout.Dims{W: 842, H: 595}, doc.Canvas)
	require.Contains(t, doc.HTML, "@page{size:A4 landscape;margin:4mm;}")
	require.Equal(t, 4.0, doc.MarginMm)
}

func TestPreviewUsesSampleRowsAndPlaceholders(t *testing.T) {
	tpl := FallbackTemplate(schema.DocSale, layout.Paper58)
	tpl.Elements = append(tpl.Elements,
		schema.Element{ID: "q", Type: schema.TypeQR, W: 60, H: 60},
		schema.Element{ID: "l", Type: schema.TypeLogo, W: 60, H: 60},
	)
	doc := NewRenderer(Options{Symbology: true}).Render(tpl, receiptData(), ModePreview, 4)
	require.Equal(t, layout.Dims{W: 280, H: 760}, doc.Canvas)
	require.Contains(t, doc.HTML, "doc: sale • paper: 58 • portrait")
	require.Equal(t, 2, strings.Count(doc.HTML, ">Sample</td>"))
	require.Contains(t, doc.HTML, ">BARCODE</div>")
	require.Contains(t, doc.HTML, ">QR</div>")
	require.Contains(t, doc.HTML, "LOGO")
	require.Contains(t, doc.HTML, "{{branch_name}}")
	require.NotContains(t, doc.HTML, "Downtown")
	require.NotContains(t, doc.HTML, "data:image/png")
}

func TestRenderSymbologyEmbedsImage(t *testing.T) {
	tpl := schema.Schema{Meta: schema.DefaultMeta(), Elements: []schema.Element{
		{ID: "q", Type: schema.TypeQR, W: 80, H: 80},
		{ID: "b", Type: schema.TypeBarcode, Text: "{{list_ref}}", W: 200, H: 60},
	}}
	doc := NewRenderer(Options{Symbology: true}).Render(tpl, receiptData(), ModePrint, 4)
	require.Equal(t, 2, strings.Count(doc.HTML, "data:image/png;base64,"))

	plain := NewRenderer(Options{}).Render(tpl, receiptData(), ModePrint, 4)
	require.NotContains(t, plain.HTML, "data:image/png")
	require.Equal(t, 2, strings.Count(plain.HTML, ">S-0042</div>"))
}

func TestRenderIsDeterministic(t *testing.T) {
	r := NewRenderer(Options{})
	tpl := FallbackTemplate(schema.DocSale, layout.Paper80)
	require.Equal(t, r.Render(tpl, receiptData(), ModePrint, 4).HTML, r.Render(tpl, receiptData(), ModePrint, 4).HTML)
}

func TestRenderIsSelfContained(t *testing.T) {
	doc := NewRenderer(Options{}).Render(FallbackTemplate(schema.DocSale, layout.Paper80), receiptData(), ModePrint, 4)
	require.NotContains(t, doc.HTML, "<link")
	require.NotContains(t, doc.HTML, "src=\"http")
	require.True(t, strings.HasPrefix(doc.HTML, "<!doctype html>"))
}
