package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/kalambet/docstash/internal/storage"
)

const maxTagNameLength = 100

type tagResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type tagListResponse struct {
	Items []tagResponse `json:"items"`
	Total int           `json:"total"`
}

func toTagResponses(tags []storage.Tag) []tagResponse {
	out := make([]tagResponse, len(tags))
	for i, t := range tags {
		out[i] = tagResponse{ID: t.ID, Name: t.Name}
	}
	return out
}

func handleListTags(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tags, err := deps.Store.ListTags()
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(tagListResponse{Items: toTagResponses(tags), Total: len(tags)})
	}
}

func handleCreateTag(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "validation_error", "invalid request body: %v", err)
			return
		}

		name := strings.TrimSpace(req.Name)
		if name == "" {
			httpError(w, http.StatusBadRequest, "validation_error", "tag name cannot be empty")
			return
		}
		if len(name) > maxTagNameLength {
			httpError(w, http.StatusBadRequest, "validation_error", "tag name exceeds %d characters", maxTagNameLength)
			return
		}

		tag, err := deps.Store.CreateTag(name)
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(tagResponse{ID: tag.ID, Name: tag.Name})
	}
}

func handleGetTag(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(r, "id")
		if !ok {
			httpError(w, http.StatusBadRequest, "validation_error", "invalid tag id")
			return
		}

		tag, err := deps.Store.GetTag(id)
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(tagResponse{ID: tag.ID, Name: tag.Name})
	}
}

func handleDeleteTag(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(r, "id")
		if !ok {
			httpError(w, http.StatusBadRequest, "validation_error", "invalid tag id")
			return
		}

		if err := deps.Store.DeleteTag(id); err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "tag deleted"})
	}
}

func handleListDocumentTags(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(r, "id")
		if !ok {
			httpError(w, http.StatusBadRequest, "validation_error", "invalid document id")
			return
		}

		tags, err := deps.Store.ListDocumentTags(id)
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(tagListResponse{Items: toTagResponses(tags), Total: len(tags)})
	}
}

func handleAttachTag(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docID, ok := parseIDParam(r, "id")
		if !ok {
			httpError(w, http.StatusBadRequest, "validation_error", "invalid document id")
			return
		}
		tagID, ok := parseIDParam(r, "tagID")
		if !ok {
			httpError(w, http.StatusBadRequest, "validation_error", "invalid tag id")
			return
		}

		if err := deps.Store.AttachTag(docID, tagID); err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "tag attached"})
	}
}

func handleDetachTag(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docID, ok := parseIDParam(r, "id")
		if !ok {
			httpError(w, http.StatusBadRequest, "validation_error", "invalid document id")
			return
		}
		tagID, ok := parseIDParam(r, "tagID")
		if !ok {
			httpError(w, http.StatusBadRequest, "validation_error", "invalid tag id")
			return
		}

		if err := deps.Store.DetachTag(docID, tagID); err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "tag detached"})
	}
}
