package api

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"
)

type documentSummaryResponse struct {
	ID        int64  `json:"id"`
	Filename  string `json:"filename"`
	FileSize  int64  `json:"file_size"`
	PageCount int    `json:"page_count"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

type documentListResponse struct {
	Items      []documentSummaryResponse `json:"items"`
	Total      int                       `json:"total"`
	Page       int                       `json:"page"`
	PageSize   int                       `json:"page_size"`
	TotalPages int                       `json:"total_pages"`
}

type documentDetailResponse struct {
	ID        int64         `json:"id"`
	Filename  string        `json:"filename"`
	Content   string        `json:"content"`
	FileSize  int64         `json:"file_size"`
	PageCount int           `json:"page_count"`
	Status    string        `json:"status"`
	CreatedAt string        `json:"created_at"`
	Tags      []tagResponse `json:"tags"`
}

func handleUploadDocument(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, deps.MaxBytes+multipartOverhead)
		defer r.Body.Close()

		file, header, err := r.FormFile("file")
		if err != nil {
			httpError(w, http.StatusBadRequest, "validation_error", "multipart field 'file' is required: %v", err)
			return
		}
		defer file.Close()

		summary, err := deps.Ingestor.Ingest(r.Context(), file, header.Filename, header.Header.Get("Content-Type"))
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(documentSummaryResponse{
			ID:        summary.ID,
			Filename:  summary.Filename,
			FileSize:  summary.FileSize,
			PageCount: summary.PageCount,
			Status:    summary.Status,
			CreatedAt: summary.CreatedAt.Format(time.RFC3339),
		})
	}
}

func handleListDocuments(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := parseIntParam(r, "page", 1, 1, 0)
		pageSize := parseIntParam(r, "page_size", defaultPageSize, 1, maxPageSize)

		var tagID int64
		if s := r.URL.Query().Get("tag_id"); s != "" {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil || v < 1 {
				httpError(w, http.StatusBadRequest, "validation_error", "invalid tag_id %q", s)
				return
			}
			tagID = v
		}

		docs, total, err := deps.Store.ListDocuments(page, pageSize, tagID)
		if err != nil {
			writeError(w, err)
			return
		}

		totalPages := 1
		if total > 0 {
			totalPages = int(math.Ceil(float64(total) / float64(pageSize)))
		}

		items := make([]documentSummaryResponse, len(docs))
		for i, d := range docs {
			items[i] = documentSummaryResponse{
				ID:        d.ID,
				Filename:  d.Filename,
				FileSize:  d.FileSize,
				PageCount: d.PageCount,
				Status:    d.Status,
				CreatedAt: d.CreatedAt.Format(time.RFC3339),
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(documentListResponse{
			Items:      items,
			Total:      total,
			Page:       page,
			PageSize:   pageSize,
			TotalPages: totalPages,
		})
	}
}

func handleGetDocument(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(r, "id")
		if !ok {
			httpError(w, http.StatusBadRequest, "validation_error", "invalid document id")
			return
		}

		doc, err := deps.Store.GetDocument(id)
		if err != nil {
			writeError(w, err)
			return
		}

		status, err := deps.Store.GetDocumentStatus(id)
		if err != nil {
			writeError(w, err)
			return
		}

		tags, err := deps.Store.ListDocumentTags(id)
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(documentDetailResponse{
			ID:        doc.ID,
			Filename:  doc.Filename,
			Content:   doc.Content,
			FileSize:  doc.FileSize,
			PageCount: doc.PageCount,
			Status:    status,
			CreatedAt: doc.CreatedAt.Format(time.RFC3339),
			Tags:      toTagResponses(tags),
		})
	}
}

func handleDeleteDocument(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(r, "id")
		if !ok {
			httpError(w, http.StatusBadRequest, "validation_error", "invalid document id")
			return
		}

		filePath, err := deps.Store.DeleteDocument(id)
		if err != nil {
			writeError(w, err)
			return
		}

		// The row is gone; removing the file is best-effort. An orphan left
		// by a failure here is reclaimed by the startup sweep.
		deps.Files.Discard(filePath)
		slog.Info("document deleted", "id", id)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "document deleted"})
	}
}
