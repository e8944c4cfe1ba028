package filters

import (
	"context"
	"errors"

	"github.com/institutovitalis/pdfstamp/ir/raw"
)

type lzwDecoder struct{}

func NewLZWDecoder() Decoder { return lzwDecoder{} }

func (lzwDecoder) Name() string { return "LZWDecode" }

// Decode implements the PDF flavor of LZW: MSB-first codes, 8-bit
// literals, and by default the "early change" code-width bump one entry
// before the table fills. compress/lzw lacks the early-change variant,
// so the table walk is done here.
func (lzwDecoder) Decode(ctx context.Context, in []byte, params *raw.Dict) ([]byte, error) {
	early := int64(1)
	if params != nil {
		if v, ok := params.IntValue("EarlyChange"); ok {
			early = v
		}
	}
	return lzwDecode(in, early != 0)
}

const (
	lzwClear = 256
	lzwEOD   = 257
)

func lzwDecode(in []byte, earlyChange bool) ([]byte, error) {
	var (
		out      []byte
		table    [][]byte
		codeLen  = 9
		bitBuf   uint32
		bitCount int
		prev     []byte
	)
	resetTable := func() {
		table = table[:0]
		for i := 0; i < 256; i++ {
			table = append(table, []byte{byte(i)})
		}
		table = append(table, nil, nil) // clear + EOD placeholders
		codeLen = 9
		prev = nil
	}
	resetTable()

	bump := 0
	if earlyChange {
		bump = 1
	}

	for _, b := range in {
		bitBuf = bitBuf<<8 | uint32(b)
		bitCount += 8
		for bitCount >= codeLen {
			code := int(bitBuf>>(uint(bitCount-codeLen))) & (1<<uint(codeLen) - 1)
			bitCount -= codeLen

			switch {
			case code == lzwClear:
				resetTable()
				continue
			case code == lzwEOD:
				return out, nil
			}

			var entry []byte
			switch {
			case code < len(table):
				entry = table[code]
			case code == len(table) && prev != nil:
				entry = append(append([]byte(nil), prev...), prev[0])
			default:
				return nil, errors.New("lzw: invalid code")
			}
			out = append(out, entry...)

			if prev != nil {
				next := append(append([]byte(nil), prev...), entry[0])
				table = append(table, next)
			}
			prev = entry

			if len(table)+bump >= 1<<uint(codeLen) && codeLen < 12 {
				codeLen++
			}
		}
	}
	return out, nil
}
