// Package filters decodes PDF stream filters. The pipeline applies the
// filter chain named in a stream dictionary in order, producing the
// plain payload bytes.
package filters

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"context"
	stdascii85 "encoding/ascii85"
	"encoding/hex"
	"errors"
	"io"

	"github.com/institutovitalis/pdfstamp/ir/raw"
)

// Decoder decodes a single filter.
type Decoder interface {
	Name() string
	Decode(ctx context.Context, input []byte, params *raw.Dict) ([]byte, error)
}

// Limits bounds decode work on hostile input. Zero disables a limit.
type Limits struct {
	MaxDecompressedSize int64
}

// Pipeline applies a filter chain.
type Pipeline struct {
	decoders []Decoder
	limits   Limits
}

func NewPipeline(decoders []Decoder, limits Limits) *Pipeline {
	return &Pipeline{decoders: decoders, limits: limits}
}

// Default returns a pipeline with every filter this engine understands.
func Default() *Pipeline {
	return NewPipeline([]Decoder{
		NewFlateDecoder(),
		NewLZWDecoder(),
		NewASCII85Decoder(),
		NewASCIIHexDecoder(),
	}, Limits{MaxDecompressedSize: 256 << 20})
}

func (p *Pipeline) findDecoder(name string) Decoder {
	for _, d := range p.decoders {
		if d.Name() == name {
			return d
		}
	}
	return nil
}

// Decode runs the chain in order over input.
func (p *Pipeline) Decode(ctx context.Context, input []byte, filterNames []string, params []*raw.Dict) ([]byte, error) {
	data := input
	for i, name := range filterNames {
		dec := p.findDecoder(name)
		if dec == nil {
			return nil, errors.New("unknown filter: " + name)
		}
		var param *raw.Dict
		if i < len(params) {
			param = params[i]
		}
		out, err := dec.Decode(ctx, data, param)
		if err != nil {
			return nil, err
		}
		if p.limits.MaxDecompressedSize > 0 && int64(len(out)) > p.limits.MaxDecompressedSize {
			return nil, errors.New("decompressed size exceeds limit")
		}
		data = out
	}
	return data, nil
}

// ExtractFilters reads /Filter and /DecodeParms from a stream dictionary.
// Indirect entries are resolved against doc when provided.
func ExtractFilters(dict *raw.Dict, doc *raw.Document) ([]string, []*raw.Dict) {
	if dict == nil {
		return nil, nil
	}
	resolve := func(o raw.Object) raw.Object {
		if doc != nil {
			return doc.Resolve(o)
		}
		return o
	}

	var names []string
	if fObj, ok := dict.Get("Filter"); ok {
		switch f := resolve(fObj).(type) {
		case raw.Name:
			names = []string{string(f)}
		case *raw.Array:
			for _, item := range f.Items {
				if n, ok := resolve(item).(raw.Name); ok {
					names = append(names, string(n))
				}
			}
		}
	}
	if len(names) == 0 {
		return nil, nil
	}

	params := make([]*raw.Dict, len(names))
	if pObj, ok := dict.Get("DecodeParms"); ok {
		switch pv := resolve(pObj).(type) {
		case *raw.Dict:
			params[0] = pv
		case *raw.Array:
			for i := 0; i < len(pv.Items) && i < len(params); i++ {
				if d, ok := resolve(pv.Items[i]).(*raw.Dict); ok {
					params[i] = d
				}
			}
		}
	}
	return names, params
}

type flateDecoder struct{}

func NewFlateDecoder() Decoder { return flateDecoder{} }

func (flateDecoder) Name() string { return "FlateDecode" }

// Decode accepts both zlib-wrapped (the common case per RFC 1950) and
// bare deflate payloads.
func (flateDecoder) Decode(ctx context.Context, in []byte, params *raw.Dict) ([]byte, error) {
	if zr, err := zlib.NewReader(bytes.NewReader(in)); err == nil {
		defer zr.Close()
		var out bytes.Buffer
		if _, err := io.Copy(&out, zr); err == nil {
			return applyPredictor(out.Bytes(), params)
		}
	}
	fr := flate.NewReader(bytes.NewReader(in))
	defer fr.Close()
	var out bytes.Buffer
	if _, err := io.Copy(&out, fr); err != nil {
		return nil, err
	}
	return applyPredictor(out.Bytes(), params)
}

type asciiHexDecoder struct{}

func NewASCIIHexDecoder() Decoder { return asciiHexDecoder{} }

func (asciiHexDecoder) Name() string { return "ASCIIHexDecode" }

func (asciiHexDecoder) Decode(ctx context.Context, in []byte, params *raw.Dict) ([]byte, error) {
	trimmed := compactHex(in)
	if i := bytes.IndexByte(trimmed, '>'); i >= 0 {
		trimmed = trimmed[:i]
	}
	if len(trimmed)%2 == 1 {
		trimmed = append(trimmed, '0') // odd digit count pads with zero
	}
	result := make([]byte, hex.DecodedLen(len(trimmed)))
	n, err := hex.Decode(result, trimmed)
	if err != nil {
		return nil, err
	}
	return result[:n], nil
}

func compactHex(in []byte) []byte {
	out := make([]byte, 0, len(in))
	for _, c := range in {
		switch c {
		case 0x00, 0x09, 0x0A, 0x0C, 0x0D, 0x20:
		default:
			out = append(out, c)
		}
	}
	return out
}

type ascii85Decoder struct{}

func NewASCII85Decoder() Decoder { return ascii85Decoder{} }

func (ascii85Decoder) Name() string { return "ASCII85Decode" }

func (ascii85Decoder) Decode(ctx context.Context, in []byte, params *raw.Dict) ([]byte, error) {
	trimmed := bytes.TrimSpace(in)
	if bytes.HasPrefix(trimmed, []byte("<~")) {
		trimmed = trimmed[2:]
	}
	if i := bytes.Index(trimmed, []byte("~>")); i >= 0 {
		trimmed = trimmed[:i]
	}
	out := make([]byte, len(trimmed)*2)
	n, _, err := stdascii85.Decode(out, trimmed, true)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}
