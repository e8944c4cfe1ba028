// Package writer serializes a semantic document back into a PDF file
// with a classic cross-reference table. Parsed pages are emitted by
// transitively copying their raw objects from the source document, so
// untouched pages survive a round trip without re-encoding; additions
// layered onto a page become extra content streams around the original
// ones.
package writer

import (
	"context"
	"io"

	"github.com/institutovitalis/pdfstamp/ir/semantic"
)

// Config controls serialization.
type Config struct {
	// Compress flate-encodes content streams generated by this writer.
	// Streams copied from a source document keep their original
	// encoding either way.
	Compress bool
}

// Writer turns a semantic document into bytes.
type Writer interface {
	Write(ctx context.Context, doc *semantic.Document, out io.Writer, cfg Config) error
}

// New returns the default writer.
func New() Writer { return &writerImpl{} }
