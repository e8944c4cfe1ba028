// Package semantic models a PDF as an ordered list of pages. Parsed
// pages keep their raw dictionary so the writer can round-trip their
// content untouched; built pages carry typed drawing operations.
package semantic

import (
	"context"

	"github.com/institutovitalis/pdfstamp/ir/decoded"
	"github.com/institutovitalis/pdfstamp/ir/raw"
)

// Document is the semantic representation of a PDF.
type Document struct {
	Pages []*Page
	Info  *DocumentInfo

	decoded *decoded.Document
}

// Decoded returns the backing decoded document for parsed inputs; nil
// for documents built from scratch.
func (d *Document) Decoded() *decoded.Document { return d.decoded }

// PageCount reports the number of pages.
func (d *Document) PageCount() int { return len(d.Pages) }

// DocumentInfo carries the /Info dictionary fields this engine writes.
type DocumentInfo struct {
	Title    string
	Author   string
	Subject  string
	Producer string
}

// Page models a single page.
//
// A page parsed from an existing file has RawDict set: a self-contained
// page dictionary (inherited attributes materialized, /Parent stripped)
// whose indirect references point into Source. Contents and
// Resources then hold only additions layered on top. A built page has a
// nil RawDict and owns its content and resources outright.
type Page struct {
	Index       int
	MediaBox    Rectangle
	Rotate      int
	RawDict     *raw.Dict
	OriginalRef raw.ObjectRef
	Source      *decoded.Document
	Contents    []ContentStream
	Resources   *Resources
}

// IsParsed reports whether the page originates from a parsed document.
func (p *Page) IsParsed() bool { return p.RawDict != nil }

// EnsureResources lazily allocates the additions container.
func (p *Page) EnsureResources() *Resources {
	if p.Resources == nil {
		p.Resources = &Resources{}
	}
	if p.Resources.Fonts == nil {
		p.Resources.Fonts = make(map[string]*Font)
	}
	if p.Resources.ExtGStates == nil {
		p.Resources.ExtGStates = make(map[string]ExtGState)
	}
	return p.Resources
}

// Rectangle is an axis-aligned box in user-space units.
type Rectangle struct {
	LLX, LLY, URX, URY float64
}

func (r Rectangle) Width() float64  { return r.URX - r.LLX }
func (r Rectangle) Height() float64 { return r.URY - r.LLY }

// ContentStream is a sequence of operations on a page.
type ContentStream struct {
	Operations []Operation
}

// Operation is a PDF content operator with operands.
type Operation struct {
	Operator string
	Operands []Operand
}

// Operand is a type-safe operand value.
type Operand interface {
	operand()
}

type NumberOperand struct{ Value float64 }

func (NumberOperand) operand() {}

type NameOperand struct{ Value string }

func (NameOperand) operand() {}

type StringOperand struct{ Value []byte }

func (StringOperand) operand() {}

// Resources holds the font and graphics-state resources built pages
// use, or the additions composited onto a parsed page.
type Resources struct {
	Fonts      map[string]*Font
	ExtGStates map[string]ExtGState
}

// Font is a font resource. Only the standard non-embedded faces are
// representable; custom fonts are out of scope for this engine.
type Font struct {
	BaseFont string
	Encoding string
}

// ExtGState captures the graphics-state parameters the overlay uses.
type ExtGState struct {
	FillAlpha   *float64
	StrokeAlpha *float64
}

// Builder turns a decoded document into the semantic page list.
type Builder interface {
	Build(ctx context.Context, dec *decoded.Document) (*Document, error)
}
