package web

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/filmlake/ingest/internal/bronze"
	"github.com/filmlake/ingest/internal/digest"
	"github.com/filmlake/ingest/internal/ingest"
	"github.com/filmlake/ingest/internal/logging"
	"github.com/filmlake/ingest/internal/storage"
)

// ErrorResponse is the JSON body for every non-2xx reply.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Code    string   `json:"code,omitempty"`
	Missing []string `json:"missing_columns,omitempty"`
	Columns []string `json:"observed_columns,omitempty"`
}

// respondError maps a pipeline error to an HTTP status and JSON body.
// Client faults get their message echoed back; everything else is logged
// and reported as an opaque internal error.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.FromContext(r.Context())

	var (
		unsupported *bronze.UnsupportedSourceError
		missing     *bronze.MissingColumnsError
		malformed   *bronze.MalformedInputError
		tooLarge    *ingest.ErrFileTooLarge
		unavailable *storage.UnavailableError
	)

	switch {
	case errors.As(err, &unsupported):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error: err.Error(),
			Code:  "unsupported_source",
		})
	case errors.As(err, &missing):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   err.Error(),
			Code:    "missing_columns",
			Missing: missing.Missing,
			Columns: missing.Observed,
		})
	case errors.As(err, &malformed):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "malformed_input",
		})
	case errors.As(err, &tooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
			Error: err.Error(),
			Code:  "file_too_large",
		})
	case errors.Is(err, digest.ErrInvalid), errors.Is(err, ingest.ErrInvalidRunID), errIsClient(err):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "bad_request",
		})
	case errors.Is(err, ingest.ErrTooManyLoads):
		writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
			Error: err.Error(),
			Code:  "too_many_loads",
		})
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, pgx.ErrNoRows):
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error: "not found",
			Code:  "not_found",
		})
	case errors.As(err, &unavailable):
		logger.Error("storage unavailable", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error: "storage unavailable",
			Code:  "storage_unavailable",
		})
	default:
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "internal error",
			Code:  "internal",
		})
	}
}
