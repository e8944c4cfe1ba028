package semantic

import (
	"context"
	"errors"

	"github.com/institutovitalis/pdfstamp/ir/decoded"
	"github.com/institutovitalis/pdfstamp/ir/raw"
)

// NewBuilder returns the default semantic builder.
func NewBuilder() Builder { return &builderImpl{} }

type builderImpl struct{}

func (b *builderImpl) Build(ctx context.Context, dec *decoded.Document) (*Document, error) {
	if dec == nil || dec.Raw == nil {
		return nil, errors.New("nil decoded document")
	}
	doc := &Document{decoded: dec}

	catalog := findCatalog(dec.Raw)
	if catalog == nil {
		return nil, errors.New("document catalog not found")
	}

	pagesObj, ok := catalog.Get("Pages")
	if !ok {
		return nil, errors.New("catalog missing page tree")
	}

	pages, err := parsePages(dec.Raw, pagesObj, inheritedProps{}, 0)
	if err != nil {
		return nil, err
	}
	for i, p := range pages {
		p.Index = i
		p.Source = dec
	}
	doc.Pages = pages
	return doc, nil
}

// findCatalog locates the document catalog: the trailer /Root when a
// classic trailer exists, the /Root of an xref stream otherwise, and as
// a last resort any dictionary typed /Catalog.
func findCatalog(doc *raw.Document) *raw.Dict {
	if doc.Trailer != nil {
		if rootObj, ok := doc.Trailer.Get("Root"); ok {
			if d, ok := doc.Resolve(rootObj).(*raw.Dict); ok {
				return d
			}
		}
	}
	for _, obj := range doc.Objects {
		stream, ok := obj.(*raw.Stream)
		if !ok {
			continue
		}
		if typ, _ := stream.Dict.NameValue("Type"); typ != "XRef" {
			continue
		}
		if rootObj, ok := stream.Dict.Get("Root"); ok {
			if d, ok := doc.Resolve(rootObj).(*raw.Dict); ok {
				return d
			}
		}
	}
	for _, obj := range doc.Objects {
		if d, ok := obj.(*raw.Dict); ok {
			if typ, _ := d.NameValue("Type"); typ == "Catalog" {
				return d
			}
		}
	}
	return nil
}
