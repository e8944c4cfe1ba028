// Package decoded lifts a raw document one level: object streams are
// inflated into the object table and every stream payload has its
// filter chain applied.
package decoded

import (
	"context"

	"github.com/institutovitalis/pdfstamp/ir/raw"
)

// Stream is a raw stream after filter decoding.
type Stream interface {
	Dictionary() *raw.Dict
	Data() []byte
	Filters() []string
}

// Document pairs the raw object table with decoded stream payloads.
type Document struct {
	Raw     *raw.Document
	Streams map[raw.ObjectRef]Stream
}

// Decoder transforms raw IR into decoded IR.
type Decoder interface {
	Decode(ctx context.Context, rawDoc *raw.Document) (*Document, error)
}
