package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/icelab/freezetrack/internal/ingest"
	"github.com/icelab/freezetrack/internal/logging"
	"github.com/icelab/freezetrack/internal/workbook"
)

// handleIngest accepts a multipart workbook upload and runs the ingestion
// pipeline synchronously, returning the structured run result.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	experimentID, err := uuid.Parse(chi.URLParam(r, "experimentID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid experiment ID")
		return
	}

	maxSize := s.cfg.Ingest.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	// The instrument's exporter posts the workbook as "file"; older client
	// builds used "excel_file".
	file, header, err := r.FormFile("file")
	if err != nil {
		file, header, err = r.FormFile("excel_file")
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".xlsx", ".xls":
	default:
		writeError(w, http.StatusBadRequest, "file must be an Excel workbook (.xlsx or .xls)")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read file")
		return
	}

	log := logging.FromContext(r.Context())
	log.Info("ingest upload received",
		"experiment_id", experimentID,
		"filename", header.Filename,
		"bytes", len(data),
	)

	ctx := r.Context()
	if s.cfg.Ingest.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Ingest.Timeout)
		defer cancel()
	}

	result, err := s.pipeline.Run(ctx, experimentID, data)
	if err != nil {
		writeJSON(w, ingestErrorStatus(err), result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ingestErrorStatus maps pipeline setup and storage failures to HTTP codes.
func ingestErrorStatus(err error) int {
	switch {
	case errors.Is(err, ingest.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workbook.ErrFormat), errors.Is(err, ingest.ErrStructure):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// handleHealth reports service and database liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  "database unreachable",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
