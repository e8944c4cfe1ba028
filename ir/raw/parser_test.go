package raw

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
)

// buildClassicPDF assembles a two-page file as a plain string. The xref
// offsets are deliberately bogus: the parser scans for objects and must
// not care.
func buildClassicPDF() []byte {
	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	b.WriteString("2 0 obj\n<< /Type /Pages /Kids [3 0 R 4 0 R] /Count 2 /MediaBox [0 0 612 792] >>\nendobj\n")
	b.WriteString("3 0 obj\n<< /Type /Page /Parent 2 0 R /Contents 5 0 R >>\nendobj\n")
	b.WriteString("4 0 obj\n<< /Type /Page /Parent 2 0 R >>\nendobj\n")
	content := "BT /F1 12 Tf 72 720 Td (Page one) Tj ET"
	fmt.Fprintf(&b, "5 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(content), content)
	b.WriteString("xref\n0 6\n0000000000 65535 f \n")
	for i := 0; i < 5; i++ {
		b.WriteString("0000000099 00000 n \n")
	}
	b.WriteString("trailer\n<< /Size 6 /Root 1 0 R >>\nstartxref\n99\n%%EOF\n")
	return []byte(b.String())
}

func TestParserScansAllObjects(t *testing.T) {
	p := NewParser(ParserConfig{})
	doc, err := p.Parse(context.Background(), bytes.NewReader(buildClassicPDF()))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if doc.Version != "1.4" {
		t.Fatalf("expected version 1.4, got %q", doc.Version)
	}
	if len(doc.Objects) != 5 {
		t.Fatalf("expected 5 objects, got %d", len(doc.Objects))
	}
	if doc.Trailer == nil {
		t.Fatalf("trailer not captured")
	}
	root, ok := doc.Trailer.Get("Root")
	if !ok {
		t.Fatalf("trailer missing Root")
	}
	catalog, ok := doc.Resolve(root).(*Dict)
	if !ok {
		t.Fatalf("Root did not resolve to a dictionary")
	}
	if typ, _ := catalog.NameValue("Type"); typ != "Catalog" {
		t.Fatalf("expected Catalog, got %q", typ)
	}
}

func TestParserCapturesStreamPayload(t *testing.T) {
	p := NewParser(ParserConfig{})
	doc, err := p.Parse(context.Background(), bytes.NewReader(buildClassicPDF()))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	obj, ok := doc.Get(ObjectRef{Num: 5})
	if !ok {
		t.Fatalf("content stream object missing")
	}
	stream, ok := obj.(*Stream)
	if !ok {
		t.Fatalf("expected stream, got %T", obj)
	}
	if !bytes.Contains(stream.Data, []byte("(Page one) Tj")) {
		t.Fatalf("payload lost: %q", stream.Data)
	}
	if length, _ := stream.Dict.IntValue("Length"); length != int64(len(stream.Data)) {
		t.Fatalf("Length %d does not match payload %d", length, len(stream.Data))
	}
}

func TestParserSurvivesMissingXref(t *testing.T) {
	data := buildClassicPDF()
	cut := bytes.Index(data, []byte("xref"))
	p := NewParser(ParserConfig{})
	doc, err := p.Parse(context.Background(), bytes.NewReader(data[:cut]))
	if err != nil {
		t.Fatalf("parse without xref failed: %v", err)
	}
	if len(doc.Objects) != 5 {
		t.Fatalf("expected 5 objects, got %d", len(doc.Objects))
	}
}

func TestParserRejectsNonPDF(t *testing.T) {
	p := NewParser(ParserConfig{})
	if _, err := p.Parse(context.Background(), strings.NewReader("this is not a pdf")); err == nil {
		t.Fatalf("expected error for non-PDF input")
	}
}

func TestResolveFollowsReferences(t *testing.T) {
	doc := &Document{Objects: map[ObjectRef]Object{
		{Num: 1}: Ref(2, 0),
		{Num: 2}: Int(7),
	}}
	if n, ok := doc.Resolve(Ref(1, 0)).(Number); !ok || n.Int() != 7 {
		t.Fatalf("chained resolve failed")
	}
	if _, ok := doc.Resolve(Ref(9, 0)).(Null); !ok {
		t.Fatalf("missing target should resolve to null")
	}
}

func TestParseObjectsForObjectStreams(t *testing.T) {
	body := []byte("<< /A 1 >> 42 (text)")
	objs := ParseObjects(body, []int{0, 11, 14})
	if len(objs) != 3 {
		t.Fatalf("expected 3 objects, got %d", len(objs))
	}
	if _, ok := objs[0].(*Dict); !ok {
		t.Fatalf("expected dict, got %T", objs[0])
	}
	if n, ok := objs[1].(Number); !ok || n.Int() != 42 {
		t.Fatalf("expected 42, got %#v", objs[1])
	}
	if s, ok := objs[2].(String); !ok || string(s) != "text" {
		t.Fatalf("expected string, got %#v", objs[2])
	}
}
