// Package layout holds the paper and coordinate model shared by the designer
// canvas and the render pipeline.
package layout

import (
	"fmt"
	"math"
	"strings"
)

// Paper identifies a supported paper class.
type Paper string

// Orientation identifies the page orientation.
type Orientation string

const (
	Paper58 Paper = "58"
	Paper80 Paper = "80"
	PaperA4 Paper = "A4"

	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

const (
	// GridStep is the snapping unit applied after interactive manipulation.
	GridStep = 5
	// DefaultMarginMm is the print margin used when the caller gives none.
	DefaultMarginMm = 4
)

// Dims is a width/height pair in layout pixels.
type Dims struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func (d Dims) swapped() Dims { return Dims{W: d.H, H: d.W} }

// ParsePaper normalises a paper code. Unknown values map to 80mm.
func ParsePaper(raw string) Paper {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "58":
		return Paper58
	case "80":
		return Paper80
	case "A4":
		return PaperA4
	default:
		return Paper80
	}
}

// ParseOrientation normalises an orientation. Anything other than landscape is portrait.
func ParseOrientation(raw string) Orientation {
	if strings.EqualFold(strings.TrimSpace(raw), string(Landscape)) {
		return Landscape
	}
	return Portrait
}

// Valid reports whether p is one of the known paper classes.
func (p Paper) Valid() bool {
	return p == Paper58 || p == Paper80 || p == PaperA4
}

// Thermal reports whether p is a roll paper size.
func (p Paper) Thermal() bool {
	return p == Paper58 || p == Paper80
}

// PaperDims returns the canvas size for a paper and orientation.
func PaperDims(paper Paper, orientation Orientation) Dims {
	var base Dims
	switch paper {
	case Paper58:
		base = Dims{W: 280, H: 760}
	case PaperA4:
		base = Dims{W: 595, H: 842}
	default:
		base = Dims{W: 380, H: 760}
	}
	if orientation == Landscape {
		return base.swapped()
	}
	return base
}

// PaperMargin returns the safe-area inset for a paper class.
func PaperMargin(paper Paper) float64 {
	switch paper {
	case Paper58:
		return 8
	case Paper80:
		return 10
	default:
		return 24
	}
}

// SafeArea is the margin-inset region element coordinates are relative to.
func SafeArea(paper Paper, orientation Orientation) Dims {
	dims := PaperDims(paper, orientation)
	m := PaperMargin(paper)
	return Dims{W: dims.W - 2*m, H: dims.H - 2*m}
}

// PrintCanvas returns the canvas used for printed output. Thermal rolls get
// a generous fixed height; A4 keeps its exact page height.
func PrintCanvas(paper Paper, orientation Orientation) Dims {
	var base Dims
	switch paper {
	case Paper58:
		base = Dims{W: 280, H: 900}
	case PaperA4:
		base = Dims{W: 595, H: 842}
	default:
		base = Dims{W: 380, H: 900}
	}
	if orientation == Landscape {
		return base.swapped()
	}
	return base
}

// Snap rounds v to the nearest multiple of GridStep.
func Snap(v float64) float64 {
	return math.Round(v/GridStep) * GridStep
}

// PageMm returns the physical page size in millimetres. Thermal rolls use a
// fixed 300mm page length.
func PageMm(paper Paper, orientation Orientation) (w, h float64) {
	switch paper {
	case Paper58:
		return 58, 300
	case PaperA4:
		if orientation == Landscape {
			return 297, 210
		}
		return 210, 297
	default:
		return 80, 300
	}
}

// PaperCSS returns the @page rule for the paper.
func PaperCSS(paper Paper, orientation Orientation, marginMm float64) string {
	if marginMm < 0 {
		marginMm = DefaultMarginMm
	}
	m := formatNumber(marginMm)
	if paper == PaperA4 {
		return fmt.Sprintf("@page{size:A4 %s;margin:%smm;}", orientation, m)
	}
	width := "80"
	if paper == Paper58 {
		width = "58"
	}
	return fmt.Sprintf("@page{size:%smm 300mm;margin:%smm;}", width, m)
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
