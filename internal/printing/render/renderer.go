// Package render projects a template schema and a data context into a
// self-contained HTML document. The designer preview and printed output
// share this code path and differ only by Mode.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rxdesk/rxdesk/internal/printing/layout"
	"github.com/rxdesk/rxdesk/internal/printing/schema"
	"github.com/rxdesk/rxdesk/internal/printing/tokens"
)

// Mode selects preview or print output.
type Mode int

const (
	// ModePrint renders real transaction data on the print canvas.
	ModePrint Mode = iota
	// ModePreview renders sample data on the designer canvas with guides.
	ModePreview
)

func (m Mode) String() string {
	if m == ModePreview {
		return "preview"
	}
	return "print"
}

// Document is the rendered, self-contained output.
type Document struct {
	HTML        string
	Title       string
	DocType     schema.DocType
	Paper       layout.Paper
	Orientation layout.Orientation
	Canvas      layout.Dims
	MarginMm    float64
	// Schema and Data are what HTML was built from, with the paper and
	// orientation resolved. Line printers re-encode from them.
	Schema schema.Schema
	Data   tokens.Context
}

// Options configures a Renderer.
type Options struct {
	// Symbology draws real QR and Code128 symbols instead of text placeholders.
	Symbology bool
}

// Renderer turns schemas into documents. It holds no per-call state.
type Renderer struct {
	symbols SymbolEncoder
}

// NewRenderer builds a Renderer.
func NewRenderer(opts Options) *Renderer {
	r := &Renderer{}
	if opts.Symbology {
		r.symbols = BarcodeEncoder{}
	}
	return r
}

// Render builds the document for a schema. The canvas comes from the schema's
// own meta; marginMm feeds the @page rule and defaults when negative.
func (r *Renderer) Render(s schema.Schema, data tokens.Context, mode Mode, marginMm float64) Document {
	paper := layout.ParsePaper(string(s.Meta.PaperSize))
	orientation := layout.ParseOrientation(string(s.Meta.Orientation))
	if marginMm < 0 {
		marginMm = layout.DefaultMarginMm
	}

	canvas := layout.PrintCanvas(paper, orientation)
	if mode == ModePreview {
		canvas = layout.PaperDims(paper, orientation)
		data = SampleData()
	}
	resolved := s
	resolved.Meta.PaperSize = paper
	resolved.Meta.Orientation = orientation
	margin := layout.PaperMargin(paper)
	safe := layout.Dims{W: canvas.W - 2*margin, H: canvas.H - 2*margin}

	title := s.Meta.Name
	if strings.TrimSpace(title) == "" {
		title = "Print"
	}

	var b strings.Builder
	b.WriteString("<!doctype html><html><head><meta charset=\"utf-8\"><title>")
	b.WriteString(EscapeHTML(title))
	b.WriteString("</title><style>")
	b.WriteString(layout.PaperCSS(paper, orientation, marginMm))
	b.WriteString("html,body{margin:0;padding:0;}body{font-family:Arial,sans-serif;color:#111;}")
	height := "min-height"
	if mode == ModePreview {
		height = "height"
	}
	fmt.Fprintf(&b, "#paper{position:relative;width:%spx;%s:%spx;background:#fff;}", px(canvas.W), height, px(canvas.H))
	fmt.Fprintf(&b, "#safe{position:absolute;left:%spx;top:%spx;width:%spx;height:%spx;}", px(margin), px(margin), px(safe.W), px(safe.H))
	if mode == ModePreview {
		b.WriteString("#safe{outline:1px dashed rgba(0,0,0,0.25);}.meta{font-size:11px;opacity:0.75;margin:0 0 6px;}")
	}
	b.WriteString("</style></head><body>")
	if mode == ModePreview {
		fmt.Fprintf(&b, "<div class=\"meta\">%s <span>%s</span></div>",
			EscapeHTML(title),
			EscapeHTML(fmt.Sprintf("doc: %s • paper: %s • %s", s.Meta.DocType, paper, orientation)))
	}
	b.WriteString("<div id=\"paper\"><div id=\"safe\">")
	for _, el := range s.Elements {
		r.element(&b, el, data, mode)
	}
	b.WriteString("</div></div></body></html>")

	return Document{
		HTML:        b.String(),
		Title:       title,
		DocType:     s.Meta.DocType,
		Paper:       paper,
		Orientation: orientation,
		Canvas:      canvas,
		MarginMm:    marginMm,
		Schema:      resolved,
		Data:        data,
	}
}

func (r *Renderer) element(b *strings.Builder, el schema.Element, data tokens.Context, mode Mode) {
	fs := el.FontSize
	if fs <= 0 {
		fs = 12
	}
	weight := 400
	if el.Bold {
		weight = 700
	}
	align := el.Align
	if align == "" {
		align = schema.AlignLeft
	}
	base := fmt.Sprintf("position:absolute;right:%spx;top:%spx;width:%spx;height:%spx;font-size:%spx;font-weight:%d;text-align:%s;overflow:hidden;white-space:pre-wrap;",
		px(el.X), px(el.Y), px(el.W), px(el.H), px(fs), weight, align)

	switch el.Type {
	case schema.TypeLine:
		fmt.Fprintf(b, `<div style="%sborder-top:1px solid rgba(0,0,0,0.65);"></div>`, base)
	case schema.TypeTable:
		renderTable(b, base, fs, data.Items)
	case schema.TypeTotals:
		renderTotals(b, base, data)
	case schema.TypeQR, schema.TypeBarcode:
		r.renderSymbol(b, base, el, data, mode)
	case schema.TypeLogo:
		fmt.Fprintf(b, `<div style="%sborder:1px dashed rgba(0,0,0,0.45);display:flex;align-items:center;justify-content:center;">`, base)
		if mode == ModePreview {
			b.WriteString("LOGO")
		}
		b.WriteString("</div>")
	default:
		fmt.Fprintf(b, `<div style="%s">%s</div>`, base, EscapeHTML(tokens.Substitute(el.Text, data)))
	}
}

func renderTable(b *strings.Builder, base string, fs float64, items []tokens.Item) {
	fmt.Fprintf(b, `<div style="%s"><table style="width:100%%;border-collapse:collapse;font-size:%spx;">`, base, px(fs))
	b.WriteString(`<thead><tr><th style="text-align:left;font-weight:700;padding:2px 0;">Item</th>` +
		`<th style="width:52px;text-align:center;font-weight:700;padding:2px 0;">Qty</th>` +
		`<th style="width:70px;text-align:right;font-weight:700;padding:2px 0;">Total</th></tr></thead><tbody>`)
	for _, it := range items {
		fmt.Fprintf(b, `<tr><td style="padding:2px 0;">%s</td><td style="width:52px;text-align:center;">%s</td><td style="width:70px;text-align:right;">%s</td></tr>`,
			EscapeHTML(it.Name), EscapeHTML(it.Qty), EscapeHTML(tokens.FormatMoney(it.Total)))
	}
	b.WriteString("</tbody></table></div>")
}

func renderTotals(b *strings.Builder, base string, data tokens.Context) {
	row := `<div style="display:flex;justify-content:space-between;padding:2px 0;%s"><span>%s</span><span>%s</span></div>`
	fmt.Fprintf(b, `<div style="%s">`, base)
	fmt.Fprintf(b, row, "", "Subtotal", EscapeHTML(tokens.FormatMoney(data.Subtotal)))
	fmt.Fprintf(b, row, "", "Discount", EscapeHTML(tokens.FormatMoney(data.Discount)))
	b.WriteString(`<div style="border-top:1px solid rgba(0,0,0,0.65);margin:4px 0;"></div>`)
	fmt.Fprintf(b, row, "font-weight:900;", "Total", EscapeHTML(tokens.FormatMoney(data.GrandTotal)))
	b.WriteString("</div>")
}

func (r *Renderer) renderSymbol(b *strings.Builder, base string, el schema.Element, data tokens.Context, mode Mode) {
	source := el.Text
	if strings.TrimSpace(source) == "" {
		source = tokens.ListRef
	}
	payload := tokens.Substitute(source, data)
	fmt.Fprintf(b, `<div style="%sdisplay:flex;flex-direction:column;align-items:center;justify-content:center;border:1px dashed rgba(0,0,0,0.45);border-radius:8px;">`, base)
	if mode == ModePreview {
		fmt.Fprintf(b, `<div style="font-size:11px;opacity:0.7;">%s</div>`, strings.ToUpper(string(el.Type)))
	} else if r.symbols != nil && payload != "" {
		if uri, err := r.symbols.Encode(el.Type, payload, int(el.W), int(el.H)); err == nil {
			fmt.Fprintf(b, `<img alt="" src="%s" style="max-width:100%%;max-height:75%%;">`, uri)
		}
	}
	fmt.Fprintf(b, `<div>%s</div></div>`, EscapeHTML(payload))
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// EscapeHTML escapes the five markup-significant characters.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
