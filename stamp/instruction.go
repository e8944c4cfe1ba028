// Package stamp implements the page-composition core: building text
// overlays, compositing an overlay onto the first page of an existing
// document, and concatenating two documents. Operations take and
// return semantic documents; the bytes-level entry points live on
// Service.
package stamp

import (
	"fmt"

	"github.com/institutovitalis/pdfstamp/fonts"
)

// Style selects a face within the built-in Helvetica family.
type Style string

const (
	StyleRegular Style = "regular"
	StyleBold    Style = "bold"
	StyleOblique Style = "oblique"
)

// Align positions a text run relative to its anchor.
type Align int

const (
	// AlignLeft anchors the left edge of the run at X.
	AlignLeft Align = iota
	// AlignCentered centers the run horizontally on X.
	AlignCentered
)

// TextInstruction is one line of overlay text. Instructions are
// independent; the caller manages the vertical cursor between them.
type TextInstruction struct {
	Text  string
	Style Style
	Size  float64
	X, Y  float64
	Align Align
}

// PageSize is a page extent in user-space points.
type PageSize struct {
	Width, Height float64
}

// Letter is the US Letter page size, the fixed format every layout
// here targets.
var Letter = PageSize{Width: 612, Height: 792}

func resolveFace(s Style) (string, error) {
	switch s {
	case StyleRegular:
		return fonts.Helvetica, nil
	case StyleBold:
		return fonts.HelveticaBold, nil
	case StyleOblique:
		return fonts.HelveticaOblique, nil
	default:
		return "", fmt.Errorf("unknown style %q", s)
	}
}
