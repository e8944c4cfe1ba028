package filters

import (
	"errors"

	"github.com/institutovitalis/pdfstamp/ir/raw"
)

// applyPredictor undoes the PNG/TIFF predictors declared in DecodeParms.
// Predictor 1 (none) and absent params pass data through.
func applyPredictor(data []byte, params *raw.Dict) ([]byte, error) {
	if params == nil {
		return data, nil
	}
	predictor, _ := params.IntValue("Predictor")
	if predictor <= 1 {
		return data, nil
	}
	columns := int64(1)
	if v, ok := params.IntValue("Columns"); ok && v > 0 {
		columns = v
	}
	colors := int64(1)
	if v, ok := params.IntValue("Colors"); ok && v > 0 {
		colors = v
	}
	bpc := int64(8)
	if v, ok := params.IntValue("BitsPerComponent"); ok && v > 0 {
		bpc = v
	}
	bytesPerPixel := int((colors*bpc + 7) / 8)
	rowLen := int((columns*colors*bpc + 7) / 8)
	if rowLen <= 0 {
		return nil, errors.New("predictor: invalid row length")
	}

	if predictor == 2 { // TIFF horizontal differencing (8-bit components only)
		if bpc != 8 {
			return nil, errors.New("predictor: unsupported TIFF bit depth")
		}
		out := append([]byte(nil), data...)
		for row := 0; row+rowLen <= len(out); row += rowLen {
			for i := bytesPerPixel; i < rowLen; i++ {
				out[row+i] += out[row+i-bytesPerPixel]
			}
		}
		return out, nil
	}

	// PNG predictors: each row is prefixed with a filter-type byte.
	stride := rowLen + 1
	if len(data)%stride != 0 {
		return nil, errors.New("predictor: data not a whole number of rows")
	}
	rows := len(data) / stride
	out := make([]byte, 0, rows*rowLen)
	prior := make([]byte, rowLen)
	cur := make([]byte, rowLen)
	for r := 0; r < rows; r++ {
		ft := data[r*stride]
		copy(cur, data[r*stride+1:(r+1)*stride])
		switch ft {
		case 0: // None
		case 1: // Sub
			for i := bytesPerPixel; i < rowLen; i++ {
				cur[i] += cur[i-bytesPerPixel]
			}
		case 2: // Up
			for i := 0; i < rowLen; i++ {
				cur[i] += prior[i]
			}
		case 3: // Average
			for i := 0; i < rowLen; i++ {
				left := 0
				if i >= bytesPerPixel {
					left = int(cur[i-bytesPerPixel])
				}
				cur[i] += byte((left + int(prior[i])) / 2)
			}
		case 4: // Paeth
			for i := 0; i < rowLen; i++ {
				var left, upLeft byte
				if i >= bytesPerPixel {
					left = cur[i-bytesPerPixel]
					upLeft = prior[i-bytesPerPixel]
				}
				cur[i] += paeth(left, prior[i], upLeft)
			}
		default:
			return nil, errors.New("predictor: unknown PNG filter type")
		}
		out = append(out, cur...)
		copy(prior, cur)
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	default:
		return c
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
