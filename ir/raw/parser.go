package raw

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/institutovitalis/pdfstamp/scanner"
)

// ParserConfig controls raw parsing behavior.
type ParserConfig struct {
	Scanner scanner.Config
}

// NewParser returns a parser that scans the whole file for `N G obj`
// sequences instead of trusting the cross-reference table. Damaged or
// rewritten xref offsets therefore do not break loading; object streams
// are inflated later by the decoded layer.
func NewParser(cfg ParserConfig) Parser {
	return &parserImpl{cfg: cfg}
}

type parserImpl struct {
	cfg ParserConfig
}

func (p *parserImpl) Parse(ctx context.Context, r io.ReaderAt) (*Document, error) {
	s := scanner.New(r, p.cfg.Scanner)
	tr := &tokenReader{s: s}

	doc := &Document{
		Objects: make(map[ObjectRef]Object),
		Version: detectHeaderVersion(r),
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tok, err := tr.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		// The trailer dictionary carries /Root; keep the last one seen
		// so incremental updates win.
		if tok.Type == scanner.TokenKeyword && tok.Value == "trailer" {
			obj, err := parseObject(tr)
			if err != nil {
				continue
			}
			if d, ok := obj.(*Dict); ok {
				doc.Trailer = d
			}
			continue
		}

		if tok.Type != scanner.TokenNumber {
			continue
		}
		objNum, ok := toInt(tok.Value)
		if !ok {
			continue
		}

		genTok, err := tr.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if genTok.Type != scanner.TokenNumber {
			tr.unread(genTok)
			continue
		}
		gen, ok := toInt(genTok.Value)
		if !ok {
			continue
		}

		kwTok, err := tr.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if kwTok.Type != scanner.TokenKeyword || kwTok.Value != "obj" {
			tr.unread(kwTok)
			tr.unread(genTok)
			continue
		}

		obj, err := parseObject(tr)
		if err != nil {
			return nil, fmt.Errorf("parse object %d %d: %w", objNum, gen, err)
		}

		// A dictionary may be the head of a stream object. Hand the
		// scanner a direct /Length so payloads containing the word
		// endstream are sliced correctly.
		if dict, ok := obj.(*Dict); ok {
			if length, ok := dict.IntValue("Length"); ok {
				s.SetNextStreamLength(length)
			}
			streamTok, err := tr.next()
			if err == nil {
				if streamTok.Type == scanner.TokenStream {
					obj = NewStream(dict, copyBytes(streamTok.Value))
				} else {
					s.SetNextStreamLength(-1)
					tr.unread(streamTok)
				}
			} else if err != io.EOF {
				return nil, err
			}
		}

		if t, err := tr.next(); err == nil {
			if t.Type != scanner.TokenKeyword || t.Value != "endobj" {
				tr.unread(t)
			}
		}

		doc.Objects[ObjectRef{Num: int(objNum), Gen: int(gen)}] = obj
	}

	if len(doc.Objects) == 0 {
		return nil, errors.New("no objects found")
	}
	return doc, nil
}

func parseObject(tr *tokenReader) (Object, error) {
	tok, err := tr.next()
	if err != nil {
		return nil, err
	}
	switch tok.Type {
	case scanner.TokenName:
		if v, ok := tok.Value.(string); ok {
			return Name(v), nil
		}
	case scanner.TokenNumber:
		if i, ok := tok.Value.(int64); ok {
			return Int(i), nil
		}
		if f, ok := tok.Value.(float64); ok {
			return Real(f), nil
		}
	case scanner.TokenBoolean:
		if v, ok := tok.Value.(bool); ok {
			return Bool(v), nil
		}
	case scanner.TokenNull:
		return Null{}, nil
	case scanner.TokenString:
		if b, ok := tok.Value.([]byte); ok {
			return String(b), nil
		}
	case scanner.TokenArray:
		return parseArray(tr)
	case scanner.TokenDict:
		return parseDict(tr)
	case scanner.TokenRef:
		if v, ok := tok.Value.(scanner.Ref); ok {
			return Ref(v.Num, v.Gen), nil
		}
	}
	return nil, fmt.Errorf("unexpected token: %v", tok.Type)
}

func parseArray(tr *tokenReader) (Object, error) {
	arr := &Array{}
	for {
		tok, err := tr.next()
		if err != nil {
			return nil, err
		}
		if tok.Type == scanner.TokenKeyword && tok.Value == "]" {
			return arr, nil
		}
		tr.unread(tok)
		item, err := parseObject(tr)
		if err != nil {
			return nil, err
		}
		arr.Append(item)
	}
}

func parseDict(tr *tokenReader) (Object, error) {
	d := NewDict()
	for {
		tok, err := tr.next()
		if err != nil {
			return nil, err
		}
		if tok.Type == scanner.TokenKeyword && tok.Value == ">>" {
			return d, nil
		}
		if tok.Type != scanner.TokenName {
			return nil, fmt.Errorf("expected name in dict, got %v", tok.Type)
		}
		key, _ := tok.Value.(string)
		val, err := parseObject(tr)
		if err != nil {
			return nil, err
		}
		d.Set(key, val)
	}
}

// ParseObjects parses a bare sequence of objects, as found in the body
// of an inflated object stream.
func ParseObjects(data []byte, offsets []int) []Object {
	out := make([]Object, 0, len(offsets))
	for _, off := range offsets {
		if off < 0 || off >= len(data) {
			out = append(out, Null{})
			continue
		}
		s := scanner.New(bytes.NewReader(data[off:]), scanner.Config{})
		obj, err := parseObject(&tokenReader{s: s})
		if err != nil {
			out = append(out, Null{})
			continue
		}
		out = append(out, obj)
	}
	return out
}

type tokenReader struct {
	s   scanner.Scanner
	buf []scanner.Token
}

func (r *tokenReader) next() (scanner.Token, error) {
	if l := len(r.buf); l > 0 {
		t := r.buf[l-1]
		r.buf = r.buf[:l-1]
		return t, nil
	}
	return r.s.Next()
}

func (r *tokenReader) unread(tok scanner.Token) { r.buf = append(r.buf, tok) }

func toInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func copyBytes(v interface{}) []byte {
	b, ok := v.([]byte)
	if !ok {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func detectHeaderVersion(r io.ReaderAt) string {
	buf := make([]byte, 16)
	n, _ := r.ReadAt(buf, 0)
	header := buf[:n]
	const prefix = "%PDF-"
	if i := bytes.Index(header, []byte(prefix)); i >= 0 {
		rest := header[i+len(prefix):]
		end := 0
		for end < len(rest) && rest[end] != '\r' && rest[end] != '\n' && end < 3 {
			end++
		}
		if end > 0 {
			return string(rest[:end])
		}
	}
	return "1.7"
}
