package stamp

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/institutovitalis/pdfstamp/ir"
	"github.com/institutovitalis/pdfstamp/ir/raw"
	"github.com/institutovitalis/pdfstamp/ir/semantic"
	"github.com/institutovitalis/pdfstamp/writer"
)

func fixedClock() time.Time {
	return time.Date(2024, time.May, 17, 15, 0, 0, 0, time.UTC)
}

func testService(cfg Config) *Service {
	if cfg.Clock == nil {
		cfg.Clock = fixedClock
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return NewService(cfg)
}

// pdfFixture serializes a document of single-line pages into bytes the
// service can parse back.
func pdfFixture(t *testing.T, texts ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	err := writer.New().Write(context.Background(), builtDoc(t, texts...), &buf, writer.Config{})
	if err != nil {
		t.Fatalf("fixture write failed: %v", err)
	}
	return buf.Bytes()
}

func parseDoc(t *testing.T, data []byte) *semantic.Document {
	t.Helper()
	doc, err := ir.NewDefault().Parse(context.Background(), bytes.NewReader(data))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return doc
}

// parsedContent gathers the decoded content bytes of a parsed page.
func parsedContent(t *testing.T, doc *semantic.Document, index int) string {
	t.Helper()
	page := doc.Pages[index]
	if page.Source == nil {
		t.Fatalf("page %d is not parsed", index)
	}
	contents, ok := page.RawDict.Get("Contents")
	if !ok {
		t.Fatalf("page %d has no Contents", index)
	}
	var refs []raw.ObjectRef
	switch v := page.Source.Raw.Resolve(contents).(type) {
	case *raw.Stream:
		if ref, ok := contents.(raw.Reference); ok {
			refs = append(refs, ref.R)
		}
	case *raw.Array:
		for _, item := range v.Items {
			if ref, ok := item.(raw.Reference); ok {
				refs = append(refs, ref.R)
			}
		}
	default:
		t.Fatalf("page %d Contents resolves to %T", index, v)
	}
	var out strings.Builder
	for _, ref := range refs {
		stream, ok := page.Source.Streams[ref]
		if !ok {
			t.Fatalf("content stream %v not decoded", ref)
		}
		out.Write(stream.Data())
		out.WriteByte('\n')
	}
	return out.String()
}

func TestGenerateReport(t *testing.T) {
	svc := testService(Config{})

	out, err := svc.GenerateReport(context.Background(), "Maria Silva", "11999998888", "")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	doc := parseDoc(t, out)
	if doc.PageCount() != 1 {
		t.Fatalf("report must be a single page, got %d", doc.PageCount())
	}

	content := parsedContent(t, doc, 0)
	for _, want := range []string{
		"(Nome: Maria Silva) Tj",
		"(Telefone: 11999998888) Tj",
		"(Data: 17/05/2024) Tj",
	} {
		if !strings.Contains(content, want) {
			t.Fatalf("report is missing %q:\n%s", want, content)
		}
	}
	if !bytes.Contains(out, []byte("/Helvetica-Bold")) {
		t.Fatalf("title face not embedded in output")
	}
}

func TestGenerateReportExplicitDate(t *testing.T) {
	svc := testService(Config{})

	out, err := svc.GenerateReport(context.Background(), "Maria Silva", "11999998888", "01/02/2023")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if !bytes.Contains(out, []byte("(Data: 01/02/2023) Tj")) {
		t.Fatalf("explicit date not used")
	}
	if bytes.Contains(out, []byte("17/05/2024")) {
		t.Fatalf("clock date leaked into an explicitly dated report")
	}
}

func TestStampCover(t *testing.T) {
	svc := testService(Config{})
	source := pdfFixture(t, "First page body", "Tail marker")

	out, err := svc.StampCover(context.Background(), source, "Maria Silva", "11999998888")
	if err != nil {
		t.Fatalf("stamp failed: %v", err)
	}

	doc := parseDoc(t, out)
	if doc.PageCount() != 2 {
		t.Fatalf("page count changed: got %d, want 2", doc.PageCount())
	}

	cover := parsedContent(t, doc, 0)
	base := strings.Index(cover, "(First page body) Tj")
	stamp := strings.Index(cover, "(Nome: Maria Silva) Tj")
	if base < 0 || stamp < 0 {
		t.Fatalf("cover content incomplete:\n%s", cover)
	}
	if stamp < base {
		t.Fatalf("overlay painted under the original content")
	}
	// The original content runs inside a saved graphics state.
	if !strings.Contains(cover, "q\n") || !strings.Contains(cover, "Q\n") {
		t.Fatalf("missing state fence:\n%s", cover)
	}

	srcTail := parsedContent(t, parseDoc(t, source), 1)
	outTail := parsedContent(t, doc, 1)
	if outTail != srcTail {
		t.Fatalf("tail page content changed:\n got %q\nwant %q", outTail, srcTail)
	}
}

func TestStampCoverTwiceStacksOverlays(t *testing.T) {
	svc := testService(Config{})
	source := pdfFixture(t, "Body")

	once, err := svc.StampCover(context.Background(), source, "Maria Silva", "11999998888")
	if err != nil {
		t.Fatalf("first stamp failed: %v", err)
	}
	twice, err := svc.StampCover(context.Background(), once, "Maria Silva", "11999998888")
	if err != nil {
		t.Fatalf("second stamp failed: %v", err)
	}

	content := parsedContent(t, parseDoc(t, twice), 0)
	if got := strings.Count(content, "(Nome: Maria Silva) Tj"); got != 2 {
		t.Fatalf("expected the header twice, found it %d times", got)
	}
}

func TestStampCoverRejectsGarbage(t *testing.T) {
	svc := testService(Config{})

	out, err := svc.StampCover(context.Background(), []byte("not a pdf"), "Maria Silva", "11999998888")
	if out != nil || err == nil {
		t.Fatalf("garbage input must fail, got doc=%v err=%v", out, err)
	}
	var decode *DecodeError
	if !errors.As(err, &decode) {
		t.Fatalf("expected DecodeError, got %T", err)
	}
	if !IsClientError(err) {
		t.Fatalf("a bad upload is the caller's fault")
	}
}

func TestStampCoverRejectsPagelessDocument(t *testing.T) {
	pdf := []byte("%PDF-1.4\n" +
		"1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n" +
		"2 0 obj\n<< /Type /Pages /Kids [] /Count 0 >>\nendobj\n" +
		"trailer\n<< /Root 1 0 R >>\n%%EOF\n")
	svc := testService(Config{})

	_, err := svc.StampCover(context.Background(), pdf, "Maria Silva", "11999998888")
	var empty *EmptyDocumentError
	if !errors.As(err, &empty) {
		t.Fatalf("expected EmptyDocumentError, got %v", err)
	}
	if !IsClientError(err) {
		t.Fatalf("pageless uploads are the caller's fault")
	}
}

func TestConcatenate(t *testing.T) {
	svc := testService(Config{})
	first := pdfFixture(t, "Alpha")
	second := pdfFixture(t, "Beta", "Gamma")

	out, err := svc.Concatenate(context.Background(), first, second)
	if err != nil {
		t.Fatalf("concatenate failed: %v", err)
	}
	doc := parseDoc(t, out)
	if doc.PageCount() != 3 {
		t.Fatalf("got %d pages, want 3", doc.PageCount())
	}
	for i, want := range []string{"Alpha", "Beta", "Gamma"} {
		content := parsedContent(t, doc, i)
		if !strings.Contains(content, "("+want+") Tj") {
			t.Fatalf("page %d is missing %q:\n%s", i, want, content)
		}
	}
}

func TestOverlayOpacity(t *testing.T) {
	svc := testService(Config{Opacity: 0.5})

	out, err := svc.GenerateReport(context.Background(), "Maria Silva", "11999998888", "")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if !bytes.Contains(out, []byte("/GS1 gs")) {
		t.Fatalf("graphics state never selected")
	}
	if !bytes.Contains(out, []byte("/ca 0.5")) {
		t.Fatalf("fill alpha not written")
	}
}

func TestCompressedOutputStillParses(t *testing.T) {
	svc := testService(Config{Compress: true})
	source := pdfFixture(t, "Body", "Tail")

	out, err := svc.StampCover(context.Background(), source, "Maria Silva", "11999998888")
	if err != nil {
		t.Fatalf("stamp failed: %v", err)
	}
	if !bytes.Contains(out, []byte("/FlateDecode")) {
		t.Fatalf("output is not compressed")
	}
	doc := parseDoc(t, out)
	if doc.PageCount() != 2 {
		t.Fatalf("got %d pages, want 2", doc.PageCount())
	}
	if !strings.Contains(parsedContent(t, doc, 0), "(Nome: Maria Silva) Tj") {
		t.Fatalf("stamped content lost after compression")
	}
}
