// Package api exposes the REST and MCP surfaces of the document store.
package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/docstash/internal/index"
	"github.com/kalambet/docstash/internal/ingest"
	"github.com/kalambet/docstash/internal/storage"
	"github.com/kalambet/docstash/internal/upload"
)

const (
	defaultPageSize  = 20
	maxPageSize      = 100
	maxSearchResults = 100

	// Slack on top of the configured ceiling for multipart framing.
	multipartOverhead = 1 << 20
)

// Deps holds the dependencies shared by all handlers.
type Deps struct {
	Store    *storage.Store
	Files    *upload.FileStore
	Ingestor *ingest.Ingestor
	Analyzer *index.Analyzer
	MaxBytes int64
}

// NewHandler builds the REST router.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Post("/documents", handleUploadDocument(deps))
	r.Get("/documents", handleListDocuments(deps))
	r.Get("/documents/{id}", handleGetDocument(deps))
	r.Delete("/documents/{id}", handleDeleteDocument(deps))
	r.Get("/documents/{id}/tags", handleListDocumentTags(deps))
	r.Post("/documents/{id}/tags/{tagID}", handleAttachTag(deps))
	r.Delete("/documents/{id}/tags/{tagID}", handleDetachTag(deps))

	r.Get("/search", handleSearch(deps))

	r.Get("/tags", handleListTags(deps))
	r.Post("/tags", handleCreateTag(deps))
	r.Get("/tags/{id}", handleGetTag(deps))
	r.Delete("/tags/{id}", handleDeleteTag(deps))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func parseIntParam(r *http.Request, key string, defaultVal, minVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < minVal {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func parseIDParam(r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	return id, err == nil && id > 0
}
