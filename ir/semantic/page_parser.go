package semantic

import (
	"fmt"

	"github.com/institutovitalis/pdfstamp/ir/raw"
)

// LetterBox is the default page size when a page tree omits MediaBox.
var LetterBox = Rectangle{LLX: 0, LLY: 0, URX: 612, URY: 792}

type inheritedProps struct {
	MediaBox  *Rectangle
	Rotate    *int
	Resources raw.Object
}

const maxPageTreeDepth = 64

// parsePages flattens the page tree in document order, pushing the
// inheritable attributes (MediaBox, Rotate, Resources) down into each
// leaf so every page dictionary stands on its own.
func parsePages(doc *raw.Document, obj raw.Object, inherited inheritedProps, depth int) ([]*Page, error) {
	if depth > maxPageTreeDepth {
		return nil, fmt.Errorf("page tree deeper than %d levels", maxPageTreeDepth)
	}

	var originRef raw.ObjectRef
	if ref, ok := obj.(raw.Reference); ok {
		originRef = ref.R
	}
	dict, ok := doc.Resolve(obj).(*raw.Dict)
	if !ok {
		return nil, fmt.Errorf("page tree node is not a dictionary")
	}

	next := inherited
	if mbObj, ok := dict.Get("MediaBox"); ok {
		if mb := parseRectangle(doc, mbObj); mb != nil {
			next.MediaBox = mb
		}
	}
	if rotObj, ok := dict.Get("Rotate"); ok {
		if n, ok := doc.Resolve(rotObj).(raw.Number); ok {
			v := int(n.Int())
			next.Rotate = &v
		}
	}
	if resObj, ok := dict.Get("Resources"); ok {
		next.Resources = resObj
	}

	if isLeafPage(dict) {
		return []*Page{buildPage(dict, originRef, next)}, nil
	}

	kidsObj, ok := dict.Get("Kids")
	if !ok {
		return nil, fmt.Errorf("page tree node missing Kids")
	}
	kids, ok := doc.Resolve(kidsObj).(*raw.Array)
	if !ok {
		return nil, fmt.Errorf("Kids is not an array")
	}

	var pages []*Page
	for _, kid := range kids.Items {
		sub, err := parsePages(doc, kid, next, depth+1)
		if err != nil {
			return nil, err
		}
		pages = append(pages, sub...)
	}
	return pages, nil
}

func isLeafPage(dict *raw.Dict) bool {
	if typ, ok := dict.NameValue("Type"); ok {
		return typ == "Page"
	}
	_, hasKids := dict.Get("Kids")
	return !hasKids
}

func buildPage(dict *raw.Dict, originRef raw.ObjectRef, inherited inheritedProps) *Page {
	page := &Page{OriginalRef: originRef}

	// Materialize inheritance into a standalone dictionary; the writer
	// re-parents pages under a fresh tree.
	own := dict.Clone()
	own.Delete("Parent")

	box := LetterBox
	if inherited.MediaBox != nil {
		box = *inherited.MediaBox
	}
	if _, ok := own.Get("MediaBox"); !ok {
		own.Set("MediaBox", rectangleArray(box))
	}
	if _, ok := own.Get("Rotate"); !ok && inherited.Rotate != nil {
		own.Set("Rotate", raw.Int(int64(*inherited.Rotate)))
	}
	if _, ok := own.Get("Resources"); !ok && inherited.Resources != nil {
		own.Set("Resources", inherited.Resources)
	}
	page.RawDict = own

	// inherited already carries the leaf's own attributes, resolved.
	page.MediaBox = box
	if inherited.Rotate != nil {
		page.Rotate = *inherited.Rotate
	}
	return page
}

func parseRectangle(doc *raw.Document, obj raw.Object) *Rectangle {
	arr, ok := doc.Resolve(obj).(*raw.Array)
	if !ok || arr.Len() != 4 {
		return nil
	}
	r := rectangleFromArray(arr)
	return &r
}

func rectangleFromArray(arr *raw.Array) Rectangle {
	vals := [4]float64{}
	for i := 0; i < 4; i++ {
		if n, ok := arr.Items[i].(raw.Number); ok {
			vals[i] = n.Float()
		}
	}
	// Normalize so LL is actually lower-left.
	if vals[0] > vals[2] {
		vals[0], vals[2] = vals[2], vals[0]
	}
	if vals[1] > vals[3] {
		vals[1], vals[3] = vals[3], vals[1]
	}
	return Rectangle{LLX: vals[0], LLY: vals[1], URX: vals[2], URY: vals[3]}
}

func rectangleArray(r Rectangle) *raw.Array {
	return raw.NewArray(raw.Real(r.LLX), raw.Real(r.LLY), raw.Real(r.URX), raw.Real(r.URY))
}
