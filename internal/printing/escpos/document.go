// Package escpos encodes rendered print documents as ESC/POS byte streams for
// thermal receipt printers.
package escpos

import (
	"bytes"
	"fmt"
	"image"
	"strings"
	"unicode"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"

	"github.com/rxdesk/rxdesk/internal/printing/layout"
	"github.com/rxdesk/rxdesk/internal/printing/schema"
)

// ESC/POS control bytes.
const (
	ESC byte = 0x1B
	GS  byte = 0x1D
	LF  byte = 0x0A
)

// Character size selectors for GS !.
const (
	sizeNormal     byte = 0x00
	sizeTall       byte = 0x01
	sizeDouble     byte = 0x11
	darkThreshold       = 128
)

// Columns is the font A line width for a paper size.
func Columns(paper layout.Paper) int {
	if paper == layout.Paper58 {
		return 32
	}
	return 48
}

// Dots is the printable raster width for a paper size at 203 dpi.
func Dots(paper layout.Paper) int {
	if paper == layout.Paper58 {
		return 288
	}
	return 384
}

// Charsets maps PRINTER_CHARSET values to their code page and the ESC t table
// most Epson-compatible printers use for it.
var Charsets = map[string]struct {
	Map   *charmap.Charmap
	Table int
}{
	"ascii":  {nil, -1},
	"cp850":  {charmap.CodePage850, 2},
	"cp1256": {charmap.Windows1256, 50},
}

// Document accumulates an ESC/POS stream. Text is converted to the selected
// code page; characters it cannot represent lose their diacritics or print as '?'.
type Document struct {
	buf     bytes.Buffer
	width   int
	charset *charmap.Charmap
	wide    bool
}

// NewDocument starts a stream with the printer initialised and, when table is
// not negative, the character table selected.
func NewDocument(columns int, charset *charmap.Charmap, table int) *Document {
	if columns <= 0 {
		columns = 32
	}
	d := &Document{width: columns, charset: charset}
	d.buf.Write([]byte{ESC, '@'})
	if table >= 0 {
		d.buf.Write([]byte{ESC, 't', byte(table)})
	}
	return d
}

// Align sets the justification of following lines.
func (d *Document) Align(a schema.Align) *Document {
	n := byte(0)
	switch a {
	case schema.AlignCenter:
		n = 1
	case schema.AlignRight:
		n = 2
	}
	d.buf.Write([]byte{ESC, 'a', n})
	return d
}

// Bold toggles emphasis.
func (d *Document) Bold(on bool) *Document {
	n := byte(0)
	if on {
		n = 1
	}
	d.buf.Write([]byte{ESC, 'E', n})
	return d
}

// Size maps a template font size onto the printer's character multipliers.
func (d *Document) Size(fontSize float64) *Document {
	size := sizeNormal
	switch {
	case fontSize >= 20:
		size = sizeDouble
	case fontSize >= 16:
		size = sizeTall
	}
	d.wide = size == sizeDouble
	d.buf.Write([]byte{GS, '!', size})
	return d
}

func (d *Document) columns() int {
	if d.wide {
		return d.width / 2
	}
	return d.width
}

// Text writes s, wrapping each line at the current column width.
func (d *Document) Text(s string) *Document {
	for _, line := range strings.Split(s, "\n") {
		raw := d.encode(line)
		if len(raw) == 0 {
			d.buf.WriteByte(LF)
			continue
		}
		for len(raw) > 0 {
			n := min(len(raw), d.columns())
			d.buf.Write(raw[:n])
			d.buf.WriteByte(LF)
			raw = raw[n:]
		}
	}
	return d
}

// Separator prints a full-width rule.
func (d *Document) Separator(ch byte) *Document {
	d.buf.Write(bytes.Repeat([]byte{ch}, d.columns()))
	d.buf.WriteByte(LF)
	return d
}

// KeyValue prints key on the left and value flush right on one line.
func (d *Document) KeyValue(key, value string) *Document {
	k, v := d.encode(key), d.encode(value)
	gap := d.columns() - len(k) - len(v)
	if gap < 1 {
		gap = 1
	}
	d.buf.Write(k)
	d.buf.Write(bytes.Repeat([]byte{' '}, gap))
	d.buf.Write(v)
	d.buf.WriteByte(LF)
	return d
}

// Row prints an item row: the name wraps in its own column while quantity and
// total sit on the first line.
func (d *Document) Row(name, qty, total string) *Document {
	const qtyCols, totalCols = 5, 10
	nameCols := max(d.columns()-qtyCols-totalCols, 1)
	n, q, t := d.encode(name), d.encode(qty), d.encode(total)
	first := true
	for first || len(n) > 0 {
		cut := min(len(n), nameCols)
		d.buf.Write(n[:cut])
		if first {
			d.buf.Write(bytes.Repeat([]byte{' '}, nameCols-cut))
			d.buf.Write(pad(q, qtyCols, schema.AlignCenter))
			d.buf.Write(pad(t, totalCols, schema.AlignRight))
			first = false
		}
		d.buf.WriteByte(LF)
		n = bytes.TrimLeft(n[cut:], " ")
	}
	return d
}

// Raster prints img as a GS v 0 bitmap no wider than maxDots.
func (d *Document) Raster(img image.Image, maxDots int) *Document {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return d
	}
	scale := 1.0
	if maxDots > 0 && w > maxDots {
		scale = float64(w) / float64(maxDots)
		w = maxDots
		h = int(float64(h) / scale)
	}
	widthBytes := (w + 7) / 8
	d.buf.Write([]byte{GS, 'v', '0', 0, byte(widthBytes % 256), byte(widthBytes / 256), byte(h % 256), byte(h / 256)})
	for y := 0; y < h; y++ {
		for x := 0; x < w; x += 8 {
			var bits byte
			for bit := 0; bit < 8 && x+bit < w; bit++ {
				sx := b.Min.X + int(float64(x+bit)*scale)
				sy := b.Min.Y + int(float64(y)*scale)
				if dark(img, sx, sy) {
					bits |= 1 << uint(7-bit)
				}
			}
			d.buf.WriteByte(bits)
		}
	}
	d.buf.WriteByte(LF)
	return d
}

// Feed advances n lines.
func (d *Document) Feed(n int) *Document {
	d.buf.Write([]byte{ESC, 'd', byte(max(n, 0))})
	return d
}

// Cut feeds to the cutter and performs a partial cut.
func (d *Document) Cut() *Document {
	d.buf.Write([]byte{GS, 'V', 66, 0})
	return d
}

// Bytes returns the accumulated stream.
func (d *Document) Bytes() []byte {
	return d.buf.Bytes()
}

// encode converts s to printer bytes. Control characters become spaces so
// data can never inject commands.
func (d *Document) encode(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		switch {
		case r < 0x20 || r == 0x7F:
			out = append(out, ' ')
		case r < 0x80:
			out = append(out, byte(r))
		default:
			if d.charset != nil {
				if b, ok := d.charset.EncodeRune(r); ok {
					out = append(out, b)
					continue
				}
			}
			if base := stripMarks(r); base > 0 && base < 0x80 {
				out = append(out, byte(base))
				continue
			}
			out = append(out, '?')
		}
	}
	return out
}

func stripMarks(r rune) rune {
	for _, c := range norm.NFD.String(string(r)) {
		if !unicode.Is(unicode.Mn, c) {
			return c
		}
	}
	return 0
}

func pad(b []byte, width int, align schema.Align) []byte {
	if len(b) >= width {
		return b[:width]
	}
	gap := width - len(b)
	left := 0
	switch align {
	case schema.AlignRight:
		left = gap
	case schema.AlignCenter:
		left = gap / 2
	}
	out := bytes.Repeat([]byte{' '}, width)
	copy(out[left:], b)
	return out
}

func dark(img image.Image, x, y int) bool {
	r, g, b, a := img.At(x, y).RGBA()
	if a == 0 {
		return false
	}
	gray := (299*(r>>8) + 587*(g>>8) + 114*(b>>8)) / 1000
	return gray < darkThreshold
}

// CharsetFor resolves a PRINTER_CHARSET value.
func CharsetFor(name string) (*charmap.Charmap, int, error) {
	cs, ok := Charsets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, 0, fmt.Errorf("escpos: unsupported charset %q", name)
	}
	return cs.Map, cs.Table, nil
}
