// Package raw models PDF objects exactly as they appear in the file:
// names, numbers, strings, arrays, dictionaries, streams and indirect
// references. Stream payloads are kept undecoded; filters are applied by
// the decoded layer.
package raw

import (
	"context"
	"fmt"
	"io"
	"sort"
)

// ObjectRef identifies an indirect object by number and generation.
type ObjectRef struct {
	Num int
	Gen int
}

func (r ObjectRef) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// Object is implemented by every raw PDF value.
type Object interface {
	Type() string
}

// Name is a PDF name object without the leading slash.
type Name string

func (Name) Type() string { return "name" }

// Number is a PDF numeric value, integer or real.
type Number struct {
	I     int64
	F     float64
	IsInt bool
}

func (Number) Type() string { return "number" }

func (n Number) Int() int64 {
	if n.IsInt {
		return n.I
	}
	return int64(n.F)
}

func (n Number) Float() float64 {
	if n.IsInt {
		return float64(n.I)
	}
	return n.F
}

// Bool is a PDF boolean.
type Bool bool

func (Bool) Type() string { return "boolean" }

// Null is the PDF null object.
type Null struct{}

func (Null) Type() string { return "null" }

// String is a PDF string; hex and literal forms collapse to raw bytes.
type String []byte

func (String) Type() string { return "string" }

// Array is a PDF array.
type Array struct {
	Items []Object
}

func (*Array) Type() string { return "array" }

func (a *Array) Len() int { return len(a.Items) }

func (a *Array) Get(i int) (Object, bool) {
	if i < 0 || i >= len(a.Items) {
		return nil, false
	}
	return a.Items[i], true
}

func (a *Array) Append(o Object) { a.Items = append(a.Items, o) }

// Dict is a PDF dictionary.
type Dict struct {
	KV map[string]Object
}

func (*Dict) Type() string { return "dict" }

func NewDict() *Dict { return &Dict{KV: make(map[string]Object)} }

func (d *Dict) Get(key string) (Object, bool) {
	o, ok := d.KV[key]
	return o, ok
}

func (d *Dict) Set(key string, value Object) {
	if d.KV == nil {
		d.KV = make(map[string]Object)
	}
	d.KV[key] = value
}

func (d *Dict) Delete(key string) { delete(d.KV, key) }

func (d *Dict) Len() int { return len(d.KV) }

// Keys returns the dictionary keys in sorted order for deterministic output.
func (d *Dict) Keys() []string {
	keys := make([]string, 0, len(d.KV))
	for k := range d.KV {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NameValue returns the string value of a name entry.
func (d *Dict) NameValue(key string) (string, bool) {
	if o, ok := d.KV[key]; ok {
		if n, ok := o.(Name); ok {
			return string(n), true
		}
	}
	return "", false
}

// IntValue returns the integer value of a direct numeric entry.
func (d *Dict) IntValue(key string) (int64, bool) {
	if o, ok := d.KV[key]; ok {
		if n, ok := o.(Number); ok {
			return n.Int(), true
		}
	}
	return 0, false
}

// Clone makes a shallow copy of the dictionary (values shared).
func (d *Dict) Clone() *Dict {
	out := NewDict()
	for k, v := range d.KV {
		out.KV[k] = v
	}
	return out
}

// Stream is an undecoded PDF stream.
type Stream struct {
	Dict *Dict
	Data []byte
}

func (*Stream) Type() string { return "stream" }

// Reference is an indirect object reference.
type Reference struct {
	R ObjectRef
}

func (Reference) Type() string { return "ref" }

// Helper constructors used heavily by the writer.
func Int(i int64) Number         { return Number{I: i, IsInt: true} }
func Real(f float64) Number      { return Number{F: f} }
func Ref(num, gen int) Reference { return Reference{R: ObjectRef{Num: num, Gen: gen}} }
func NewArray(items ...Object) *Array {
	return &Array{Items: items}
}
func NewStream(dict *Dict, data []byte) *Stream { return &Stream{Dict: dict, Data: data} }

// Document is the flat object table of a parsed file.
type Document struct {
	Objects map[ObjectRef]Object
	Trailer *Dict
	Version string
}

// Get looks up an indirect object.
func (d *Document) Get(ref ObjectRef) (Object, bool) {
	o, ok := d.Objects[ref]
	return o, ok
}

// Resolve follows an indirect reference one level; other objects pass
// through unchanged. Missing targets resolve to Null.
func (d *Document) Resolve(o Object) Object {
	for i := 0; i < 32; i++ { // cap reference chains
		ref, ok := o.(Reference)
		if !ok {
			return o
		}
		target, found := d.Objects[ref.R]
		if !found {
			return Null{}
		}
		o = target
	}
	return Null{}
}

// MaxObjectNumber reports the highest allocated object number.
func (d *Document) MaxObjectNumber() int {
	max := 0
	for ref := range d.Objects {
		if ref.Num > max {
			max = ref.Num
		}
	}
	return max
}

// Parser converts bytes into a raw Document.
type Parser interface {
	Parse(ctx context.Context, r io.ReaderAt) (*Document, error)
}
