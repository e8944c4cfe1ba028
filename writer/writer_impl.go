package writer

import (
	"bytes"
	"compress/zlib"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/institutovitalis/pdfstamp/ir/decoded"
	"github.com/institutovitalis/pdfstamp/ir/raw"
	"github.com/institutovitalis/pdfstamp/ir/semantic"
)

type writerImpl struct{}

func (w *writerImpl) Write(ctx context.Context, doc *semantic.Document, out io.Writer, cfg Config) error {
	if doc == nil || len(doc.Pages) == 0 {
		return errors.New("document has no pages")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tab := newObjectTable()
	catalogRef := tab.alloc()
	pagesRef := tab.alloc()

	copiers := make(map[*decoded.Document]*copier)

	pageRefs := make([]raw.ObjectRef, 0, len(doc.Pages))
	for _, page := range doc.Pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		ref := tab.alloc()

		var dict *raw.Dict
		var err error
		if page.IsParsed() {
			dict, err = buildParsedPage(tab, copiers, page, cfg)
		} else {
			dict, err = buildNewPage(tab, page, cfg)
		}
		if err != nil {
			return fmt.Errorf("page %d: %w", page.Index, err)
		}
		dict.Set("Parent", raw.Ref(pagesRef.Num, 0))
		tab.add(ref, dict)
		pageRefs = append(pageRefs, ref)
	}

	kids := raw.NewArray()
	for _, r := range pageRefs {
		kids.Append(raw.Ref(r.Num, 0))
	}
	pagesDict := raw.NewDict()
	pagesDict.Set("Type", raw.Name("Pages"))
	pagesDict.Set("Count", raw.Int(int64(len(pageRefs))))
	pagesDict.Set("Kids", kids)
	tab.add(pagesRef, pagesDict)

	catalog := raw.NewDict()
	catalog.Set("Type", raw.Name("Catalog"))
	catalog.Set("Pages", raw.Ref(pagesRef.Num, 0))
	tab.add(catalogRef, catalog)

	var infoRef *raw.ObjectRef
	if info := infoDict(doc.Info); info != nil {
		r := tab.alloc()
		tab.add(r, info)
		infoRef = &r
	}

	return emit(tab, catalogRef, infoRef, out)
}

// emit serializes the finished object table as a classic-xref file.
// Output is buffered so a failing page never leaves a truncated file in
// the destination.
func emit(tab *objectTable, catalogRef raw.ObjectRef, infoRef *raw.ObjectRef, out io.Writer) error {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	offsets := make(map[int]int, len(tab.order))
	ordered := append([]raw.ObjectRef(nil), tab.order...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Num < ordered[j].Num })
	for _, ref := range ordered {
		offsets[ref.Num] = buf.Len()
		serializeIndirect(&buf, ref, tab.objects[ref])
	}

	maxNum := ordered[len(ordered)-1].Num
	xrefOffset := buf.Len()
	buf.WriteString("xref\n0 " + strconv.Itoa(maxNum+1) + "\n")
	buf.WriteString("0000000000 65535 f \n")
	for num := 1; num <= maxNum; num++ {
		if off, ok := offsets[num]; ok {
			fmt.Fprintf(&buf, "%010d 00000 n \n", off)
		} else {
			buf.WriteString("0000000000 65535 f \n")
		}
	}

	trailer := raw.NewDict()
	trailer.Set("Size", raw.Int(int64(maxNum+1)))
	trailer.Set("Root", raw.Ref(catalogRef.Num, 0))
	if infoRef != nil {
		trailer.Set("Info", raw.Ref(infoRef.Num, 0))
	}
	buf.WriteString("trailer\n")
	serializeDict(&buf, trailer)
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	_, err := out.Write(buf.Bytes())
	return err
}

func infoDict(info *semantic.DocumentInfo) *raw.Dict {
	if info == nil {
		return nil
	}
	d := raw.NewDict()
	set := func(key, val string) {
		if val != "" {
			d.Set(key, raw.String(val))
		}
	}
	set("Title", info.Title)
	set("Author", info.Author)
	set("Subject", info.Subject)
	set("Producer", info.Producer)
	if d.Len() == 0 {
		return nil
	}
	return d
}

// buildParsedPage copies the page subtree out of its source document
// and layers any additions on top: extra resources merged into the
// resource dictionary and addition content appended after the original,
// with the original wrapped in q/Q so its graphics state cannot leak.
func buildParsedPage(tab *objectTable, copiers map[*decoded.Document]*copier, page *semantic.Page, cfg Config) (*raw.Dict, error) {
	if page.Source == nil || page.Source.Raw == nil {
		return nil, errors.New("parsed page has no source document")
	}
	c, ok := copiers[page.Source]
	if !ok {
		c = &copier{
			src:    page.Source.Raw,
			tab:    tab,
			mapped: make(map[raw.ObjectRef]raw.ObjectRef),
		}
		copiers[page.Source] = c
	}
	dict := c.rewriteDict(page.RawDict)

	rename := mergeResources(tab, dict, page.Resources)
	if err := wrapContents(tab, dict, page, rename, cfg); err != nil {
		return nil, err
	}
	return dict, nil
}

func buildNewPage(tab *objectTable, page *semantic.Page, cfg Config) (*raw.Dict, error) {
	box := page.MediaBox
	if box.Width() <= 0 || box.Height() <= 0 {
		box = semantic.LetterBox
	}

	dict := raw.NewDict()
	dict.Set("Type", raw.Name("Page"))
	dict.Set("MediaBox", raw.NewArray(
		raw.Real(box.LLX), raw.Real(box.LLY), raw.Real(box.URX), raw.Real(box.URY),
	))
	if page.Rotate != 0 {
		dict.Set("Rotate", raw.Int(int64(page.Rotate)))
	}

	resDict := raw.NewDict()
	if res := page.Resources; res != nil {
		if len(res.Fonts) > 0 {
			fonts := raw.NewDict()
			for _, name := range sortedFontNames(res.Fonts) {
				ref := tab.alloc()
				tab.add(ref, fontObject(res.Fonts[name]))
				fonts.Set(name, raw.Ref(ref.Num, 0))
			}
			resDict.Set("Font", fonts)
		}
		if len(res.ExtGStates) > 0 {
			states := raw.NewDict()
			for _, name := range sortedStateNames(res.ExtGStates) {
				ref := tab.alloc()
				tab.add(ref, gstateObject(res.ExtGStates[name]))
				states.Set(name, raw.Ref(ref.Num, 0))
			}
			resDict.Set("ExtGState", states)
		}
	}
	dict.Set("Resources", resDict)

	content := serializeContent(page.Contents, nil)
	ref := addContentStream(tab, content, cfg)
	dict.Set("Contents", raw.Ref(ref.Num, 0))
	return dict, nil
}

// mergeResources folds addition resources into the page's resource
// dictionary. Names colliding with existing entries are suffixed, and
// the rename map tells the content serializer to follow suit.
func mergeResources(tab *objectTable, dict *raw.Dict, res *semantic.Resources) map[string]string {
	if res == nil || (len(res.Fonts) == 0 && len(res.ExtGStates) == 0) {
		return nil
	}

	var resDict *raw.Dict
	if obj, ok := dict.Get("Resources"); ok {
		if d, ok := tab.resolve(obj).(*raw.Dict); ok {
			resDict = d.Clone()
		}
	}
	if resDict == nil {
		resDict = raw.NewDict()
	}
	dict.Set("Resources", resDict)

	rename := make(map[string]string)
	if len(res.Fonts) > 0 {
		fonts := ownedSubDict(tab, resDict, "Font")
		for _, name := range sortedFontNames(res.Fonts) {
			ref := tab.alloc()
			tab.add(ref, fontObject(res.Fonts[name]))
			final := uniqueName(fonts, name)
			if final != name {
				rename[name] = final
			}
			fonts.Set(final, raw.Ref(ref.Num, 0))
		}
	}
	if len(res.ExtGStates) > 0 {
		states := ownedSubDict(tab, resDict, "ExtGState")
		for _, name := range sortedStateNames(res.ExtGStates) {
			ref := tab.alloc()
			tab.add(ref, gstateObject(res.ExtGStates[name]))
			final := uniqueName(states, name)
			if final != name {
				rename[name] = final
			}
			states.Set(final, raw.Ref(ref.Num, 0))
		}
	}
	if len(rename) == 0 {
		return nil
	}
	return rename
}

// ownedSubDict returns a mutable copy of resDict[key], replacing any
// shared or indirect original so sibling pages are unaffected.
func ownedSubDict(tab *objectTable, resDict *raw.Dict, key string) *raw.Dict {
	var sub *raw.Dict
	if obj, ok := resDict.Get(key); ok {
		if d, ok := tab.resolve(obj).(*raw.Dict); ok {
			sub = d.Clone()
		}
	}
	if sub == nil {
		sub = raw.NewDict()
	}
	resDict.Set(key, sub)
	return sub
}

func uniqueName(d *raw.Dict, name string) string {
	if _, taken := d.Get(name); !taken {
		return name
	}
	for i := 2; ; i++ {
		candidate := name + strconv.Itoa(i)
		if _, taken := d.Get(candidate); !taken {
			return candidate
		}
	}
}

func wrapContents(tab *objectTable, dict *raw.Dict, page *semantic.Page, rename map[string]string, cfg Config) error {
	if len(page.Contents) == 0 {
		return nil
	}
	overlay := serializeContent(page.Contents, rename)

	var items []raw.Object
	if obj, ok := dict.Get("Contents"); ok {
		switch v := obj.(type) {
		case raw.Reference:
			if arr, ok := tab.resolve(v).(*raw.Array); ok {
				items = append(items, arr.Items...)
			} else {
				items = append(items, v)
			}
		case *raw.Array:
			items = append(items, v.Items...)
		case *raw.Stream:
			// Streams must be indirect; promote a direct one.
			ref := tab.alloc()
			tab.add(ref, v)
			items = append(items, raw.Ref(ref.Num, 0))
		}
	}

	if len(items) == 0 {
		ref := addContentStream(tab, overlay, cfg)
		dict.Set("Contents", raw.Ref(ref.Num, 0))
		return nil
	}

	save := addContentStream(tab, []byte("q\n"), Config{})
	restore := addContentStream(tab, append([]byte("Q\n"), overlay...), cfg)
	wrapped := make([]raw.Object, 0, len(items)+2)
	wrapped = append(wrapped, raw.Ref(save.Num, 0))
	wrapped = append(wrapped, items...)
	wrapped = append(wrapped, raw.Ref(restore.Num, 0))
	dict.Set("Contents", raw.NewArray(wrapped...))
	return nil
}

func addContentStream(tab *objectTable, data []byte, cfg Config) raw.ObjectRef {
	d := raw.NewDict()
	if cfg.Compress {
		data = flateCompress(data)
		d.Set("Filter", raw.Name("FlateDecode"))
	}
	d.Set("Length", raw.Int(int64(len(data))))
	ref := tab.alloc()
	tab.add(ref, raw.NewStream(d, data))
	return ref
}

func flateCompress(data []byte) []byte {
	var b bytes.Buffer
	zw := zlib.NewWriter(&b)
	zw.Write(data)
	zw.Close()
	return b.Bytes()
}

func fontObject(f *semantic.Font) *raw.Dict {
	d := raw.NewDict()
	d.Set("Type", raw.Name("Font"))
	d.Set("Subtype", raw.Name("Type1"))
	d.Set("BaseFont", raw.Name(f.BaseFont))
	if f.Encoding != "" {
		d.Set("Encoding", raw.Name(f.Encoding))
	}
	return d
}

func gstateObject(gs semantic.ExtGState) *raw.Dict {
	d := raw.NewDict()
	d.Set("Type", raw.Name("ExtGState"))
	if gs.FillAlpha != nil {
		d.Set("ca", raw.Real(*gs.FillAlpha))
	}
	if gs.StrokeAlpha != nil {
		d.Set("CA", raw.Real(*gs.StrokeAlpha))
	}
	return d
}

func sortedFontNames(m map[string]*semantic.Font) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func sortedStateNames(m map[string]semantic.ExtGState) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// objectTable assigns dense object numbers and collects finished
// objects for emission.
type objectTable struct {
	objects map[raw.ObjectRef]raw.Object
	order   []raw.ObjectRef
	next    int
}

func newObjectTable() *objectTable {
	return &objectTable{objects: make(map[raw.ObjectRef]raw.Object), next: 1}
}

func (t *objectTable) alloc() raw.ObjectRef {
	ref := raw.ObjectRef{Num: t.next}
	t.next++
	t.order = append(t.order, ref)
	t.objects[ref] = raw.Null{}
	return ref
}

func (t *objectTable) add(ref raw.ObjectRef, obj raw.Object) {
	t.objects[ref] = obj
}

func (t *objectTable) resolve(o raw.Object) raw.Object {
	if ref, ok := o.(raw.Reference); ok {
		if obj, found := t.objects[ref.R]; found {
			return obj
		}
		return raw.Null{}
	}
	return o
}

// copier transplants objects from a source document into the output
// table, renumbering every indirect reference it meets. Mapping a
// source ref before rewriting its object keeps reference cycles (page
// to annotation and back) from recursing forever.
type copier struct {
	src    *raw.Document
	tab    *objectTable
	mapped map[raw.ObjectRef]raw.ObjectRef
}

func (c *copier) copyRef(ref raw.ObjectRef) raw.ObjectRef {
	if dst, ok := c.mapped[ref]; ok {
		return dst
	}
	dst := c.tab.alloc()
	c.mapped[ref] = dst
	obj, ok := c.src.Get(ref)
	if !ok {
		return dst
	}
	c.tab.add(dst, c.rewrite(obj))
	return dst
}

func (c *copier) rewrite(obj raw.Object) raw.Object {
	switch o := obj.(type) {
	case raw.Reference:
		return raw.Reference{R: c.copyRef(o.R)}
	case *raw.Array:
		out := &raw.Array{Items: make([]raw.Object, len(o.Items))}
		for i, it := range o.Items {
			out.Items[i] = c.rewrite(it)
		}
		return out
	case *raw.Dict:
		return c.rewriteDict(o)
	case *raw.Stream:
		d := c.rewriteDict(o.Dict)
		// Data is carried still encoded; pin Length to it in case the
		// source declared it indirectly.
		d.Set("Length", raw.Int(int64(len(o.Data))))
		return raw.NewStream(d, o.Data)
	default:
		return obj
	}
}

func (c *copier) rewriteDict(d *raw.Dict) *raw.Dict {
	out := raw.NewDict()
	for _, k := range d.Keys() {
		out.Set(k, c.rewrite(d.KV[k]))
	}
	return out
}
