package stamp

import (
	"fmt"

	"golang.org/x/text/encoding/charmap"

	"github.com/institutovitalis/pdfstamp/fonts"
	"github.com/institutovitalis/pdfstamp/ir/semantic"
)

// BuildOverlay renders an ordered list of text instructions onto a
// single fresh page. Coordinates are bottom-left origin; instructions
// outside the page bounds are drawn anyway, there is no clipping or
// pagination. The result is a one-page document meant for
// ApplyOverlay, or for direct serialization in the report case.
func BuildOverlay(instructions []TextInstruction, size PageSize) (*semantic.Document, error) {
	if size.Width <= 0 || size.Height <= 0 {
		size = Letter
	}

	page := &semantic.Page{
		MediaBox: semantic.Rectangle{URX: size.Width, URY: size.Height},
	}
	res := page.EnsureResources()

	faceNames := make(map[string]string)
	var ops []semantic.Operation
	for i, in := range instructions {
		face, err := resolveFace(in.Style)
		if err != nil {
			return nil, &RenderError{Reason: fmt.Sprintf("instruction %d: %v", i, err)}
		}
		if in.Size <= 0 {
			return nil, &RenderError{Reason: fmt.Sprintf("instruction %d: size %g is not positive", i, in.Size)}
		}
		encoded, err := encodeWinAnsi(in.Text)
		if err != nil {
			return nil, &RenderError{Reason: fmt.Sprintf("instruction %d: %v", i, err)}
		}

		name, ok := faceNames[face]
		if !ok {
			name = fmt.Sprintf("F%d", len(faceNames)+1)
			faceNames[face] = name
			res.Fonts[name] = &semantic.Font{BaseFont: face, Encoding: "WinAnsiEncoding"}
		}

		x := in.X
		if in.Align == AlignCentered {
			w, err := fonts.TextWidth(face, encoded, in.Size)
			if err != nil {
				return nil, &RenderError{Reason: fmt.Sprintf("instruction %d: %v", i, err)}
			}
			x = in.X - w/2
		}

		ops = append(ops,
			op("BT"),
			op("Tf", nameOp(name), numOp(in.Size)),
			op("Tm", numOp(1), numOp(0), numOp(0), numOp(1), numOp(x), numOp(in.Y)),
			op("Tj", strOp(encoded)),
			op("ET"),
		)
	}

	page.Contents = []semantic.ContentStream{{Operations: ops}}
	return &semantic.Document{Pages: []*semantic.Page{page}}, nil
}

func encodeWinAnsi(s string) ([]byte, error) {
	out, err := charmap.Windows1252.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("text %q not representable in WinAnsi: %w", s, err)
	}
	return out, nil
}

func op(operator string, operands ...semantic.Operand) semantic.Operation {
	return semantic.Operation{Operator: operator, Operands: operands}
}

func numOp(v float64) semantic.Operand { return semantic.NumberOperand{Value: v} }
func nameOp(v string) semantic.Operand { return semantic.NameOperand{Value: v} }
func strOp(v []byte) semantic.Operand  { return semantic.StringOperand{Value: v} }
