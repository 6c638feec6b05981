package escpos

import (
	"sort"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/rxdesk/rxdesk/internal/printing/layout"
	"github.com/rxdesk/rxdesk/internal/printing/render"
	"github.com/rxdesk/rxdesk/internal/printing/schema"
	"github.com/rxdesk/rxdesk/internal/printing/tokens"
)

// Encoder turns rendered documents into ESC/POS streams. A thermal printer
// prints one column, so elements are emitted top to bottom by Y and their X
// offset and width are ignored except for symbol sizing.
type Encoder struct {
	charset *charmap.Charmap
	table   int
}

// NewEncoder builds an Encoder for a PRINTER_CHARSET value.
func NewEncoder(charset string) (Encoder, error) {
	cm, table, err := CharsetFor(charset)
	if err != nil {
		return Encoder{}, err
	}
	return Encoder{charset: cm, table: table}, nil
}

// Encode renders doc for its paper width.
func (e Encoder) Encode(doc render.Document) []byte {
	paper := layout.ParsePaper(string(doc.Paper))
	d := NewDocument(Columns(paper), e.charset, e.table)

	elements := make([]schema.Element, len(doc.Schema.Elements))
	copy(elements, doc.Schema.Elements)
	sort.SliceStable(elements, func(i, j int) bool { return elements[i].Y < elements[j].Y })

	canvasW := doc.Canvas.W
	if canvasW <= 0 {
		canvasW = layout.PrintCanvas(paper, layout.Portrait).W
	}
	for _, el := range elements {
		e.element(d, el, doc.Data, paper, canvasW)
	}
	return d.Feed(3).Cut().Bytes()
}

func (e Encoder) element(d *Document, el schema.Element, data tokens.Context, paper layout.Paper, canvasW float64) {
	switch el.Type {
	case schema.TypeLine:
		d.Separator('-')
	case schema.TypeTable:
		d.Align(schema.AlignLeft).Size(el.FontSize).Bold(true)
		d.Row("Item", "Qty", "Total")
		d.Bold(false)
		for _, it := range data.Items {
			d.Row(it.Name, it.Qty, tokens.FormatMoney(it.Total))
		}
		d.Size(0)
	case schema.TypeTotals:
		d.Align(schema.AlignLeft).Size(0).Bold(false)
		d.KeyValue("Subtotal", tokens.FormatMoney(data.Subtotal))
		d.KeyValue("Discount", tokens.FormatMoney(data.Discount))
		d.Separator('-')
		d.Bold(true).KeyValue("Total", tokens.FormatMoney(data.GrandTotal)).Bold(false)
	case schema.TypeQR, schema.TypeBarcode:
		source := el.Text
		if strings.TrimSpace(source) == "" {
			source = tokens.ListRef
		}
		payload := tokens.Substitute(source, data)
		if payload == "" {
			return
		}
		d.Align(schema.AlignCenter).Size(0).Bold(false)
		dots := Dots(paper)
		w := min(int(el.W*float64(dots)/canvasW), dots)
		h := int(el.H * float64(dots) / canvasW)
		if img, err := render.Symbol(el.Type, payload, w, h); err == nil {
			d.Raster(img, dots)
		}
		d.Text(payload)
	case schema.TypeLogo:
	default:
		d.Align(el.Align).Size(el.FontSize).Bold(el.Bold)
		d.Text(tokens.Substitute(el.Text, data))
		d.Bold(false).Size(0)
	}
}
