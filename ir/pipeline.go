// Package ir wires the parsing stages together: raw object scan,
// filter decoding, semantic page-tree flattening.
package ir

import (
	"context"
	"fmt"
	"io"

	"github.com/institutovitalis/pdfstamp/filters"
	"github.com/institutovitalis/pdfstamp/ir/decoded"
	"github.com/institutovitalis/pdfstamp/ir/raw"
	"github.com/institutovitalis/pdfstamp/ir/semantic"
	"github.com/institutovitalis/pdfstamp/scanner"
)

// Pipeline orchestrates raw -> decoded -> semantic parsing.
type Pipeline struct {
	rawParser       raw.Parser
	decoder         decoded.Decoder
	semanticBuilder semantic.Builder
}

// NewDefault constructs a pipeline with the standard components.
func NewDefault() *Pipeline {
	return &Pipeline{
		rawParser:       raw.NewParser(raw.ParserConfig{Scanner: scanner.Config{}}),
		decoder:         decoded.NewDecoder(filters.Default()),
		semanticBuilder: semantic.NewBuilder(),
	}
}

// Parse runs the full pipeline over r.
func (p *Pipeline) Parse(ctx context.Context, r io.ReaderAt) (*semantic.Document, error) {
	rawDoc, err := p.rawParser.Parse(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("raw parsing failed: %w", err)
	}

	decodedDoc, err := p.decoder.Decode(ctx, rawDoc)
	if err != nil {
		return nil, fmt.Errorf("decoding failed: %w", err)
	}

	semDoc, err := p.semanticBuilder.Build(ctx, decodedDoc)
	if err != nil {
		return nil, fmt.Errorf("semantic building failed: %w", err)
	}
	return semDoc, nil
}
