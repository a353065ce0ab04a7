package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

type searchResultResponse struct {
	ID       int64   `json:"id"`
	Filename string  `json:"filename"`
	Snippet  string  `json:"snippet"`
	Rank     float64 `json:"rank"`
}

func handleSearch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		q := strings.TrimSpace(r.URL.Query().Get("q"))
		if q == "" {
			json.NewEncoder(w).Encode([]searchResultResponse{})
			return
		}

		terms := deps.Analyzer.Tokens(q)
		if len(terms) == 0 {
			json.NewEncoder(w).Encode([]searchResultResponse{})
			return
		}

		hits, err := deps.Store.SearchByTerms(terms, maxSearchResults)
		if err != nil {
			writeError(w, err)
			return
		}

		results := make([]searchResultResponse, len(hits))
		for i, h := range hits {
			results[i] = searchResultResponse{
				ID:       h.ID,
				Filename: h.Filename,
				Snippet:  deps.Analyzer.Snippet(h.Content, terms),
				Rank:     h.Rank,
			}
		}
		json.NewEncoder(w).Encode(results)
	}
}
