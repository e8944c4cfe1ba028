package semantic

import (
	"context"
	"testing"

	"github.com/institutovitalis/pdfstamp/ir/decoded"
	"github.com/institutovitalis/pdfstamp/ir/raw"
)

// treeDoc builds a decoded document with a two-level page tree. The
// root node carries MediaBox and Resources so inheritance is exercised;
// the second page overrides the size.
func treeDoc() *decoded.Document {
	catalog := raw.NewDict()
	catalog.Set("Type", raw.Name("Catalog"))
	catalog.Set("Pages", raw.Ref(2, 0))

	pages := raw.NewDict()
	pages.Set("Type", raw.Name("Pages"))
	pages.Set("Count", raw.Int(2))
	pages.Set("Kids", raw.NewArray(raw.Ref(3, 0), raw.Ref(4, 0)))
	pages.Set("MediaBox", raw.NewArray(raw.Int(0), raw.Int(0), raw.Int(612), raw.Int(792)))
	pages.Set("Resources", raw.Ref(5, 0))

	page1 := raw.NewDict()
	page1.Set("Type", raw.Name("Page"))
	page1.Set("Parent", raw.Ref(2, 0))
	page1.Set("Contents", raw.Ref(6, 0))

	page2 := raw.NewDict()
	page2.Set("Type", raw.Name("Page"))
	page2.Set("Parent", raw.Ref(2, 0))
	page2.Set("MediaBox", raw.NewArray(raw.Int(0), raw.Int(0), raw.Int(595), raw.Int(842)))
	page2.Set("Rotate", raw.Int(90))

	resources := raw.NewDict()

	contentDict := raw.NewDict()
	contentDict.Set("Length", raw.Int(2))

	trailer := raw.NewDict()
	trailer.Set("Root", raw.Ref(1, 0))

	return &decoded.Document{
		Raw: &raw.Document{
			Objects: map[raw.ObjectRef]raw.Object{
				{Num: 1}: catalog,
				{Num: 2}: pages,
				{Num: 3}: page1,
				{Num: 4}: page2,
				{Num: 5}: resources,
				{Num: 6}: raw.NewStream(contentDict, []byte("q Q")),
			},
			Trailer: trailer,
		},
		Streams: map[raw.ObjectRef]decoded.Stream{},
	}
}

func TestBuildFlattensPageTree(t *testing.T) {
	doc, err := NewBuilder().Build(context.Background(), treeDoc())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if doc.PageCount() != 2 {
		t.Fatalf("expected 2 pages, got %d", doc.PageCount())
	}
	for i, p := range doc.Pages {
		if p.Index != i {
			t.Fatalf("page %d has index %d", i, p.Index)
		}
		if !p.IsParsed() {
			t.Fatalf("page %d lost its raw dictionary", i)
		}
		if p.Source == nil {
			t.Fatalf("page %d has no source document", i)
		}
		if _, hasParent := p.RawDict.Get("Parent"); hasParent {
			t.Fatalf("page %d kept its Parent entry", i)
		}
	}
}

func TestBuildMaterializesInheritance(t *testing.T) {
	doc, err := NewBuilder().Build(context.Background(), treeDoc())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	first := doc.Pages[0]
	if first.MediaBox.Width() != 612 || first.MediaBox.Height() != 792 {
		t.Fatalf("inherited MediaBox wrong: %+v", first.MediaBox)
	}
	if _, ok := first.RawDict.Get("MediaBox"); !ok {
		t.Fatalf("inherited MediaBox not materialized on the page dict")
	}
	if _, ok := first.RawDict.Get("Resources"); !ok {
		t.Fatalf("inherited Resources not materialized on the page dict")
	}

	second := doc.Pages[1]
	if second.MediaBox.Width() != 595 || second.MediaBox.Height() != 842 {
		t.Fatalf("own MediaBox should win: %+v", second.MediaBox)
	}
	if second.Rotate != 90 {
		t.Fatalf("expected Rotate 90, got %d", second.Rotate)
	}
}

func TestBuildCatalogFallback(t *testing.T) {
	dec := treeDoc()
	dec.Raw.Trailer = nil // force the /Type /Catalog scan

	doc, err := NewBuilder().Build(context.Background(), dec)
	if err != nil {
		t.Fatalf("build without trailer failed: %v", err)
	}
	if doc.PageCount() != 2 {
		t.Fatalf("expected 2 pages, got %d", doc.PageCount())
	}
}

func TestBuildEmptyPageTree(t *testing.T) {
	dec := treeDoc()
	pages := dec.Raw.Objects[raw.ObjectRef{Num: 2}].(*raw.Dict)
	pages.Set("Kids", raw.NewArray())
	pages.Set("Count", raw.Int(0))

	doc, err := NewBuilder().Build(context.Background(), dec)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if doc.PageCount() != 0 {
		t.Fatalf("expected zero pages, got %d", doc.PageCount())
	}
}

func TestBuildRejectsMissingCatalog(t *testing.T) {
	dec := &decoded.Document{
		Raw: &raw.Document{Objects: map[raw.ObjectRef]raw.Object{
			{Num: 1}: raw.Int(1),
		}},
	}
	if _, err := NewBuilder().Build(context.Background(), dec); err == nil {
		t.Fatalf("expected error without a catalog")
	}
}
