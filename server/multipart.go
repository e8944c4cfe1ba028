package server

import (
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/institutovitalis/pdfstamp/observability"
)

// readUpload pulls one uploaded file out of the multipart form,
// enforcing the size limit. On failure it writes the 400 response
// itself and returns ok=false.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request, field string) (data []byte, filename string, ok bool) {
	// Cap the whole body: two uploads at the limit plus form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, 2*s.maxUpload+1<<20)
	file, header, err := r.FormFile(field)
	if err != nil {
		s.reject(w, r, field+" upload is required")
		return nil, "", false
	}
	defer file.Close()

	data, err = io.ReadAll(io.LimitReader(file, s.maxUpload+1))
	if err != nil {
		s.reject(w, r, "could not read "+field)
		return nil, "", false
	}
	if int64(len(data)) > s.maxUpload {
		s.reject(w, r, field+" exceeds the upload size limit")
		return nil, "", false
	}
	return data, safeFilename(header.Filename), true
}

// requireField fetches a non-empty form value, writing the 400
// response itself when it is missing.
func (s *Server) requireField(w http.ResponseWriter, r *http.Request, field string) (string, bool) {
	value := strings.TrimSpace(r.FormValue(field))
	if value == "" {
		s.reject(w, r, field+" is required")
		return "", false
	}
	return value, true
}

func (s *Server) reject(w http.ResponseWriter, r *http.Request, msg string) {
	s.log.Info("bad request",
		observability.String("path", r.URL.Path),
		observability.String("reason", msg))
	http.Error(w, msg, http.StatusBadRequest)
}

// safeFilename reduces a client-supplied filename to something safe to
// echo inside a content-disposition header.
func safeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '"' || r == '\r' || r == '\n' || r == ';':
			return '_'
		case r < 0x20:
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == "/" {
		return "document.pdf"
	}
	return name
}
