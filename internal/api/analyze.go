package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/docshield/docshield/internal/analysis"
	"github.com/docshield/docshield/internal/core"
)

const (
	uploadField = "file"
	// multipartOverhead leaves room for boundaries and part headers on top
	// of the document cap.
	multipartOverhead = 64 << 10
	multipartMemory   = 8 << 20
)

// handleAnalyze accepts a multipart upload in the "file" field and returns
// the scan report. Spilled multipart parts are removed before returning.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := s.engine.Config().Scan.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", limit))
			return
		}
		writeError(w, http.StatusBadRequest, "expected a multipart/form-data upload: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("missing %q file field", uploadField))
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if _, err := analysis.FormatFromName(name); err != nil {
		writeError(w, http.StatusBadRequest, "only .pdf and .docx files are accepted")
		return
	}
	if header.Size > limit {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", limit))
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading upload: "+err.Error())
		return
	}

	report, err := s.engine.Analyze(r.Context(), core.Upload{Name: name, Data: data})
	if err != nil {
		status := statusForError(err)
		msg := err.Error()
		if status == http.StatusInternalServerError {
			msg = "scan failed"
		}
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// statusForError maps the scan error taxonomy to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, analysis.ErrUnsupportedFormat), errors.Is(err, analysis.ErrEmptyDocument):
		return http.StatusBadRequest
	case errors.Is(err, analysis.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, analysis.ErrMalformedContainer), errors.Is(err, analysis.ErrTextExtractionFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
