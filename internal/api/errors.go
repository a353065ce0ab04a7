package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/kalambet/docstash/internal/extract"
	"github.com/kalambet/docstash/internal/storage"
	"github.com/kalambet/docstash/internal/upload"
)

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

// writeError maps a pipeline error onto the wire taxonomy. Anything outside
// the taxonomy is logged and reported as a generic api_error so internal
// state never leaks to the client.
func writeError(w http.ResponseWriter, err error) {
	var vErr *upload.ValidationError
	if errors.As(err, &vErr) {
		httpError(w, http.StatusBadRequest, "validation_error", "%s", vErr.Error())
		return
	}

	var pErr *extract.ProcessingError
	if errors.As(err, &pErr) {
		httpError(w, http.StatusUnprocessableEntity, "processing_error", "failed to process PDF: %v", pErr.Unwrap())
		return
	}

	switch {
	case errors.Is(err, storage.ErrTagExists):
		httpError(w, http.StatusConflict, "conflict", "tag already exists")
	case errors.Is(err, storage.ErrNotFound):
		httpError(w, http.StatusNotFound, "not_found", "%s", err.Error())
	case errors.Is(err, upload.ErrPathOutsideRoot):
		// Unreachable by construction; if it fires it is a defect.
		slog.Error("sanitized path escaped upload root", "error", err)
		httpError(w, http.StatusInternalServerError, "integrity_violation", "internal error")
	default:
		slog.Error("internal error", "error", err)
		httpError(w, http.StatusInternalServerError, "api_error", "internal error")
	}
}
