package stamp

import (
	"bytes"
	"context"
	"time"

	"github.com/institutovitalis/pdfstamp/ir"
	"github.com/institutovitalis/pdfstamp/ir/semantic"
	"github.com/institutovitalis/pdfstamp/observability"
	"github.com/institutovitalis/pdfstamp/writer"
)

// Clock supplies the current time. Injected so tests control the date
// printed on stamped documents.
type Clock func() time.Time

// Config carries everything the service would otherwise reach for as
// process-wide state.
type Config struct {
	// Clock defaults to time.Now.
	Clock Clock
	// Location is the timezone the stamped date is rendered in.
	// Defaults to DefaultLocation().
	Location *time.Location
	// Opacity is the overlay fill alpha in (0, 1]; zero means opaque
	// and adds no graphics-state entry.
	Opacity float64
	// Compress flate-encodes the content streams this service writes.
	Compress bool
	// Logger defaults to observability.NopLogger.
	Logger observability.Logger
}

// DefaultLocation returns the America/Sao_Paulo zone, or UTC when the
// zone database is unavailable.
func DefaultLocation() *time.Location {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		return time.UTC
	}
	return loc
}

// Service exposes the three bytes-in, bytes-out operations the HTTP
// boundary calls. A Service is stateless and safe for concurrent use;
// every call allocates its own documents.
type Service struct {
	cfg      Config
	pipeline *ir.Pipeline
	writer   writer.Writer
	log      observability.Logger
}

func NewService(cfg Config) *Service {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = DefaultLocation()
	}
	log := cfg.Logger
	if log == nil {
		log = observability.NopLogger{}
	}
	return &Service{
		cfg:      cfg,
		pipeline: ir.NewDefault(),
		writer:   writer.New(),
		log:      log,
	}
}

// StampCover overlays the institutional header onto the first page of
// the uploaded document and returns the whole document with every
// other page unchanged.
func (s *Service) StampCover(ctx context.Context, pdf []byte, name, phone string) ([]byte, error) {
	doc, err := s.parse(ctx, pdf)
	if err != nil {
		return nil, err
	}

	overlay, err := s.buildOverlay(CoverLayout(name, phone, s.currentDate()))
	if err != nil {
		return nil, err
	}

	merged, err := ApplyOverlay(doc, overlay)
	if err != nil {
		return nil, err
	}
	s.log.Debug("cover stamped", observability.Int("pages", merged.PageCount()))
	return s.encode(ctx, merged)
}

// Concatenate appends every page of second after every page of first.
func (s *Service) Concatenate(ctx context.Context, first, second []byte) ([]byte, error) {
	docA, err := s.parse(ctx, first)
	if err != nil {
		return nil, err
	}
	docB, err := s.parse(ctx, second)
	if err != nil {
		return nil, err
	}

	merged, err := Concat(docA, docB)
	if err != nil {
		return nil, err
	}
	s.log.Debug("documents concatenated", observability.Int("pages", merged.PageCount()))
	return s.encode(ctx, merged)
}

// GenerateReport builds the single-page report document directly,
// without any upload to composite onto. An empty date falls back to
// the current date in the configured timezone.
func (s *Service) GenerateReport(ctx context.Context, name, phone, date string) ([]byte, error) {
	if date == "" {
		date = s.currentDate()
	}
	overlay, err := s.buildOverlay(ReportLayout(name, phone, date))
	if err != nil {
		return nil, err
	}
	return s.encode(ctx, overlay)
}

func (s *Service) currentDate() string {
	return s.cfg.Clock().In(s.cfg.Location).Format("02/01/2006")
}

func (s *Service) buildOverlay(instructions []TextInstruction) (*semantic.Document, error) {
	overlay, err := BuildOverlay(instructions, Letter)
	if err != nil {
		return nil, err
	}
	if s.cfg.Opacity > 0 && s.cfg.Opacity < 1 {
		applyOpacity(overlay.Pages[0], s.cfg.Opacity)
	}
	return overlay, nil
}

// applyOpacity prefixes the page content with a graphics-state
// selection so every overlay glyph fills at the given alpha.
func applyOpacity(page *semantic.Page, alpha float64) {
	res := page.EnsureResources()
	a := alpha
	res.ExtGStates["GS1"] = semantic.ExtGState{FillAlpha: &a, StrokeAlpha: &a}
	prefix := []semantic.Operation{op("gs", nameOp("GS1"))}
	if len(page.Contents) == 0 {
		page.Contents = []semantic.ContentStream{{Operations: prefix}}
		return
	}
	page.Contents[0].Operations = append(prefix, page.Contents[0].Operations...)
}

func (s *Service) parse(ctx context.Context, data []byte) (*semantic.Document, error) {
	doc, err := s.pipeline.Parse(ctx, bytes.NewReader(data))
	if err != nil {
		s.log.Warn("input rejected", observability.Error("error", err))
		return nil, &DecodeError{Err: err}
	}
	return doc, nil
}

func (s *Service) encode(ctx context.Context, doc *semantic.Document) ([]byte, error) {
	var buf bytes.Buffer
	cfg := writer.Config{Compress: s.cfg.Compress}
	if err := s.writer.Write(ctx, doc, &buf, cfg); err != nil {
		s.log.Error("serialization failed", observability.Error("error", err))
		return nil, &EncodeError{Err: err}
	}
	return buf.Bytes(), nil
}
