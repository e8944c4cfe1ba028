// Package server is the HTTP boundary: routing, multipart decoding,
// field validation, error-to-status mapping and response headers. All
// document work is delegated to stamp.Service.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/institutovitalis/pdfstamp/observability"
	"github.com/institutovitalis/pdfstamp/stamp"
)

// DefaultMaxUploadBytes bounds each uploaded file.
const DefaultMaxUploadBytes = 32 << 20

// Config carries the boundary's own settings.
type Config struct {
	// MaxUploadBytes limits the size of each uploaded file; zero means
	// DefaultMaxUploadBytes.
	MaxUploadBytes int64
	// Logger defaults to observability.NopLogger.
	Logger observability.Logger
}

// Server routes requests to the stamping service.
type Server struct {
	svc       *stamp.Service
	log       observability.Logger
	maxUpload int64
}

func New(svc *stamp.Service, cfg Config) *Server {
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	log := cfg.Logger
	if log == nil {
		log = observability.NopLogger{}
	}
	return &Server{svc: svc, log: log, maxUpload: maxUpload}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /process-pdf/", s.handleProcessPDF)
	mux.HandleFunc("POST /concat-pdf/", s.handleConcatPDF)
	mux.HandleFunc("POST /generate-report/", s.handleGenerateReport)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

func (s *Server) handleProcessPDF(w http.ResponseWriter, r *http.Request) {
	pdf, filename, ok := s.readUpload(w, r, "pdf_file")
	if !ok {
		return
	}
	nome, ok := s.requireField(w, r, "nome")
	if !ok {
		return
	}
	telefone, ok := s.requireField(w, r, "telefone")
	if !ok {
		return
	}

	out, err := s.svc.StampCover(r.Context(), pdf, nome, telefone)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writePDF(w, out, "modified_"+filename)
}

func (s *Server) handleConcatPDF(w http.ResponseWriter, r *http.Request) {
	first, _, ok := s.readUpload(w, r, "first_file")
	if !ok {
		return
	}
	second, _, ok := s.readUpload(w, r, "second_file")
	if !ok {
		return
	}

	out, err := s.svc.Concatenate(r.Context(), first, second)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writePDF(w, out, "merged.pdf")
}

func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	nome, ok := s.requireField(w, r, "nome")
	if !ok {
		return
	}
	telefone, ok := s.requireField(w, r, "telefone")
	if !ok {
		return
	}
	data := r.FormValue("data")

	out, err := s.svc.GenerateReport(r.Context(), nome, telefone, data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writePDF(w, out, "report.pdf")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"message": "pdfstamp service is running",
	})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if stamp.IsClientError(err) {
		s.log.Info("request rejected",
			observability.String("path", r.URL.Path),
			observability.Error("error", err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// Internal detail is logged but never echoed to the caller.
	s.log.Error("request failed",
		observability.String("path", r.URL.Path),
		observability.Error("error", err))
	http.Error(w, "internal error while processing the document", http.StatusInternalServerError)
}

func (s *Server) writePDF(w http.ResponseWriter, pdf []byte, filename string) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(pdf)))
	w.Write(pdf)
}
