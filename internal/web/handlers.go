package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/filmlake/ingest/internal/ingest"
	"github.com/filmlake/ingest/internal/logging"
)

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"time_utc": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleUpload accepts one multipart file upload, stores the raw bytes,
// and records the ingestion run.
//
// POST /api/ingestions/{source}
// Optional Idempotency-Key header: a client-generated run id (UUID) that
// makes retried uploads record a single run.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")
	logger := logging.FromContext(r.Context())

	// MaxFileSize bounds the payload; a little headroom covers the
	// multipart framing around it.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Ingest.MaxFileSize+(1<<20))
	if err := r.ParseMultipartForm(4 << 20); err != nil {
		if maxErr := (*http.MaxBytesError)(nil); errors.As(err, &maxErr) {
			s.respondError(w, r, &ingest.ErrFileTooLarge{Size: maxErr.Limit + 1, Limit: s.cfg.Ingest.MaxFileSize})
			return
		}
		s.respondError(w, r, badRequest("invalid multipart form", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, badRequest("missing form file \"file\"", err))
		return
	}
	defer file.Close()

	if header.Filename == "" {
		s.respondError(w, r, badRequest("missing filename", nil))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		if maxErr := (*http.MaxBytesError)(nil); errors.As(err, &maxErr) {
			s.respondError(w, r, &ingest.ErrFileTooLarge{Size: maxErr.Limit + 1, Limit: s.cfg.Ingest.MaxFileSize})
			return
		}
		s.respondError(w, r, badRequest("read upload", err))
		return
	}

	receipt, err := s.service.Upload(r.Context(), ingest.UploadRequest{
		RunID:       r.Header.Get("Idempotency-Key"),
		Source:      source,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logger.Info("upload accepted", "run_id", receipt.RunID, "key", receipt.ObjectKey)
	writeJSON(w, http.StatusCreated, receipt)
}

// handleListRuns lists recorded ingestion runs.
//
// GET /api/ingestions?status=uploaded&limit=50
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.respondError(w, r, badRequest("limit must be an integer", err))
			return
		}
		limit = n
	}

	items, err := s.service.ListRuns(r.Context(), status, limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(items),
		"items": items,
	})
}

// loadRequest is the body of POST /api/loads.
type loadRequest struct {
	RunID     string `json:"run_id"`
	ObjectKey string `json:"object_key"`
	Digest    string `json:"sha256"`
}

// handleLoad triggers the bronze load for one stored object.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, badRequest("invalid JSON body", err))
		return
	}
	if req.RunID == "" || req.ObjectKey == "" || req.Digest == "" {
		s.respondError(w, r, badRequest("run_id, object_key and sha256 are required", nil))
		return
	}

	result, err := s.service.Load(r.Context(), req.RunID, req.ObjectKey, req.Digest)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// loadLatestRequest is the body of POST /api/loads/latest.
type loadLatestRequest struct {
	Table string `json:"table"`
}

// handleLoadLatest loads the newest stored export for a bronze table.
func (s *Server) handleLoadLatest(w http.ResponseWriter, r *http.Request) {
	var req loadLatestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, badRequest("invalid JSON body", err))
		return
	}
	if req.Table == "" {
		s.respondError(w, r, badRequest("table is required", nil))
		return
	}

	result, err := s.service.LoadLatest(r.Context(), req.Table)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", "error", err)
	}
}

// badRequest wraps a client error for the error mapper.
func badRequest(msg string, err error) error {
	if err != nil {
		return &clientError{msg: msg, err: err}
	}
	return &clientError{msg: msg}
}

type clientError struct {
	msg string
	err error
}

func (e *clientError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *clientError) Unwrap() error { return e.err }

var _ error = (*clientError)(nil)

// errIsClient reports whether err originates from request shaping.
func errIsClient(err error) bool {
	var ce *clientError
	return errors.As(err, &ce)
}
