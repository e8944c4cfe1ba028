package stamp

import (
	"sort"
	"strconv"

	"github.com/institutovitalis/pdfstamp/ir/semantic"
)

// ApplyOverlay composites the overlay's first page onto the first page
// of original. Overlay content paints on top of the existing content;
// every other page of original is carried through untouched, so the
// output page count always equals the input page count. Extra overlay
// pages, which the builder never produces, are ignored.
//
// Neither input document is mutated: the result shares the unchanged
// pages and carries a copy of page 0 with the overlay recorded as
// additional content and resources.
func ApplyOverlay(original, overlay *semantic.Document) (*semantic.Document, error) {
	if original == nil || len(original.Pages) == 0 {
		return nil, &EmptyDocumentError{Op: "apply overlay"}
	}
	if overlay == nil || len(overlay.Pages) == 0 {
		return nil, &EmptyDocumentError{Op: "apply overlay: overlay"}
	}
	ovPage := overlay.Pages[0]

	first := *original.Pages[0]
	first.Resources = cloneResources(original.Pages[0].Resources)
	first.Contents = append([]semantic.ContentStream(nil), original.Pages[0].Contents...)

	// Merge overlay resources, renaming on collision with additions a
	// previous application already recorded. The writer resolves any
	// remaining collisions against the page's own resource dictionary.
	rename := mergeResources(&first, ovPage.Resources)
	first.Contents = append(first.Contents, renameContent(ovPage.Contents, rename)...)

	out := &semantic.Document{
		Pages: make([]*semantic.Page, len(original.Pages)),
		Info:  original.Info,
	}
	out.Pages[0] = &first
	copy(out.Pages[1:], original.Pages[1:])
	return out, nil
}

// Concat produces a document whose pages are first's pages followed by
// second's. Pages are carried structurally as-is; no page is special.
// An empty input contributes nothing; when both are empty there is no
// representable output and the call fails.
func Concat(first, second *semantic.Document) (*semantic.Document, error) {
	var a, b []*semantic.Page
	if first != nil {
		a = first.Pages
	}
	if second != nil {
		b = second.Pages
	}
	if len(a)+len(b) == 0 {
		return nil, &EmptyDocumentError{Op: "concat"}
	}

	out := &semantic.Document{Pages: make([]*semantic.Page, 0, len(a)+len(b))}
	for _, p := range a {
		out.Pages = append(out.Pages, p)
	}
	for _, p := range b {
		out.Pages = append(out.Pages, p)
	}
	// Renumber on copies so the inputs keep their own indices.
	for i, p := range out.Pages {
		cp := *p
		cp.Index = i
		out.Pages[i] = &cp
	}
	if first != nil && first.Info != nil {
		out.Info = first.Info
	} else if second != nil {
		out.Info = second.Info
	}
	return out, nil
}

func cloneResources(r *semantic.Resources) *semantic.Resources {
	out := &semantic.Resources{
		Fonts:      make(map[string]*semantic.Font),
		ExtGStates: make(map[string]semantic.ExtGState),
	}
	if r == nil {
		return out
	}
	for k, v := range r.Fonts {
		out.Fonts[k] = v
	}
	for k, v := range r.ExtGStates {
		out.ExtGStates[k] = v
	}
	return out
}

func mergeResources(page *semantic.Page, src *semantic.Resources) map[string]string {
	if src == nil {
		return nil
	}
	dst := page.EnsureResources()
	rename := make(map[string]string)
	for _, name := range sortedKeys(src.Fonts) {
		final := freeName(name, func(n string) bool { _, taken := dst.Fonts[n]; return taken })
		if final != name {
			rename[name] = final
		}
		dst.Fonts[final] = src.Fonts[name]
	}
	for _, name := range sortedKeys(src.ExtGStates) {
		final := freeName(name, func(n string) bool { _, taken := dst.ExtGStates[n]; return taken })
		if final != name {
			rename[name] = final
		}
		dst.ExtGStates[final] = src.ExtGStates[name]
	}
	if len(rename) == 0 {
		return nil
	}
	return rename
}

// renameContent rewrites font and graphics-state selections to the
// renamed resource entries. With no renames the streams are shared
// unchanged.
func renameContent(streams []semantic.ContentStream, rename map[string]string) []semantic.ContentStream {
	if len(rename) == 0 {
		return streams
	}
	out := make([]semantic.ContentStream, len(streams))
	for i, cs := range streams {
		ops := make([]semantic.Operation, len(cs.Operations))
		for j, o := range cs.Operations {
			if (o.Operator == "Tf" || o.Operator == "gs") && len(o.Operands) > 0 {
				if n, ok := o.Operands[0].(semantic.NameOperand); ok {
					if mapped, found := rename[n.Value]; found {
						operands := append([]semantic.Operand(nil), o.Operands...)
						operands[0] = semantic.NameOperand{Value: mapped}
						o = semantic.Operation{Operator: o.Operator, Operands: operands}
					}
				}
			}
			ops[j] = o
		}
		out[i] = semantic.ContentStream{Operations: ops}
	}
	return out
}

func freeName(name string, taken func(string) bool) string {
	if !taken(name) {
		return name
	}
	for i := 2; ; i++ {
		candidate := name + strconv.Itoa(i)
		if !taken(candidate) {
			return candidate
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
