package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/qr"

	"github.com/rxdesk/rxdesk/internal/printing/schema"
)

// SymbolEncoder turns a payload into an image data URI for qr and barcode elements.
type SymbolEncoder interface {
	Encode(kind schema.ElementType, payload string, w, h int) (string, error)
}

// BarcodeEncoder draws QR codes and Code128 barcodes as PNG.
type BarcodeEncoder struct{}

// Encode implements SymbolEncoder.
func (BarcodeEncoder) Encode(kind schema.ElementType, payload string, w, h int) (string, error) {
	img, err := Symbol(kind, payload, w, h)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Symbol draws a QR code or Code128 barcode scaled to at least w by h pixels.
// QR codes are square; barcodes use two thirds of h to leave room for text.
func Symbol(kind schema.ElementType, payload string, w, h int) (image.Image, error) {
	var (
		code barcode.Barcode
		err  error
	)
	switch kind {
	case schema.TypeQR:
		code, err = qr.Encode(payload, qr.M, qr.Auto)
		side := min(w, h)
		w, h = side, side
	case schema.TypeBarcode:
		code, err = code128.Encode(payload)
		h = h * 2 / 3
	default:
		return nil, fmt.Errorf("render: no symbology for %s", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("render: encode %s: %w", kind, err)
	}
	bounds := code.Bounds()
	if w < bounds.Dx() {
		w = bounds.Dx()
	}
	if h < bounds.Dy() {
		h = bounds.Dy()
	}
	scaled, err := barcode.Scale(code, w, h)
	if err != nil {
		return nil, fmt.Errorf("render: scale %s: %w", kind, err)
	}
	return scaled, nil
}
