package api_test

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/kalambet/docstash/internal/pdftest"
)

func createTag(t *testing.T, env *testEnv, name string) int64 {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/tags", strings.NewReader(fmt.Sprintf(`{"name":%q}`, name)), "application/json")
	if rec.Code != http.StatusCreated {
		t.Fatalf("creating tag %q returned %d: %s", name, rec.Code, rec.Body)
	}
	var resp struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, rec, &resp)
	return resp.ID
}

func TestCreateAndListTags(t *testing.T) {
	env := newTestEnv(t)

	createTag(t, env, "finance")
	createTag(t, env, "archive")

	rec := env.do(t, http.MethodGet, "/tags", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Items []struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"items"`
		Total int `json:"total"`
	}
	decodeBody(t, rec, &resp)
	if resp.Total != 2 || len(resp.Items) != 2 {
		t.Fatalf("tags = %+v", resp)
	}
	// Sorted by name.
	if resp.Items[0].Name != "archive" || resp.Items[1].Name != "finance" {
		t.Errorf("tag order = %v", resp.Items)
	}
}

func TestCreateTagConflict(t *testing.T) {
	env := newTestEnv(t)
	createTag(t, env, "reports")

	for _, name := range []string{"reports", "Reports", "REPORTS"} {
		rec := env.do(t, http.MethodPost, "/tags", strings.NewReader(fmt.Sprintf(`{"name":%q}`, name)), "application/json")
		if rec.Code != http.StatusConflict {
			t.Errorf("duplicate %q returned %d, want 409", name, rec.Code)
			continue
		}
		if typ := errorType(t, rec); typ != "conflict" {
			t.Errorf("error type = %q", typ)
		}
	}
}

func TestCreateTagValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty name", `{"name":""}`},
		{"whitespace name", `{"name":"   "}`},
		{"overlong name", fmt.Sprintf(`{"name":%q}`, strings.Repeat("x", 101))},
		{"malformed json", `{"name":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/tags", strings.NewReader(tt.body), "application/json")
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestCreateTagTrimsName(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/tags", strings.NewReader(`{"name":"  spaced  "}`), "application/json")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Name string `json:"name"`
	}
	decodeBody(t, rec, &resp)
	if resp.Name != "spaced" {
		t.Errorf("name = %q, want trimmed", resp.Name)
	}
}

func TestGetAndDeleteTag(t *testing.T) {
	env := newTestEnv(t)
	id := createTag(t, env, "transient")

	rec := env.do(t, http.MethodGet, fmt.Sprintf("/tags/%d", id), nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/tags/%d", id), nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/tags/%d", id), nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("tag still retrievable after delete: %d", rec.Code)
	}
	// Deleting an already-gone tag succeeds.
	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/tags/%d", id), nil, "")
	if rec.Code != http.StatusOK {
		t.Errorf("second delete returned %d, want 200", rec.Code)
	}
}

func TestDeleteTagAbsentID(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodDelete, "/tags/4242", nil, "")
	if rec.Code != http.StatusOK {
		t.Errorf("delete of unknown tag returned %d, want 200", rec.Code)
	}
}

func TestAttachAndDetachTag(t *testing.T) {
	env := newTestEnv(t)
	docID := env.uploadPDF(t, "tagged.pdf", pdftest.MinimalPDF(1, "content"))
	tagID := createTag(t, env, "label")

	attach := fmt.Sprintf("/documents/%d/tags/%d", docID, tagID)
	if rec := env.do(t, http.MethodPost, attach, nil, ""); rec.Code != http.StatusOK {
		t.Fatalf("attach status = %d: %s", rec.Code, rec.Body)
	}
	// Idempotent.
	if rec := env.do(t, http.MethodPost, attach, nil, ""); rec.Code != http.StatusOK {
		t.Errorf("repeat attach status = %d", rec.Code)
	}

	rec := env.do(t, http.MethodGet, fmt.Sprintf("/documents/%d/tags", docID), nil, "")
	var resp struct {
		Items []struct {
			Name string `json:"name"`
		} `json:"items"`
		Total int `json:"total"`
	}
	decodeBody(t, rec, &resp)
	if resp.Total != 1 || resp.Items[0].Name != "label" {
		t.Errorf("document tags = %+v", resp)
	}

	if rec := env.do(t, http.MethodDelete, attach, nil, ""); rec.Code != http.StatusOK {
		t.Fatalf("detach status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, attach, nil, ""); rec.Code != http.StatusOK {
		t.Errorf("repeat detach status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/documents/%d/tags", docID), nil, "")
	decodeBody(t, rec, &resp)
	if resp.Total != 0 {
		t.Errorf("tags remain after detach: %+v", resp)
	}
}

func TestAttachTagMissingEntities(t *testing.T) {
	env := newTestEnv(t)
	docID := env.uploadPDF(t, "doc.pdf", pdftest.MinimalPDF(1, "content"))
	tagID := createTag(t, env, "real")

	if rec := env.do(t, http.MethodPost, fmt.Sprintf("/documents/%d/tags/999", docID), nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("attach to missing tag = %d, want 404", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, fmt.Sprintf("/documents/999/tags/%d", tagID), nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("attach to missing document = %d, want 404", rec.Code)
	}
}

func TestFilterDocumentsByTag(t *testing.T) {
	env := newTestEnv(t)
	tagged := env.uploadPDF(t, "tagged.pdf", pdftest.MinimalPDF(1, "a"))
	env.uploadPDF(t, "untagged.pdf", pdftest.MinimalPDF(1, "b"))
	tagID := createTag(t, env, "filter")

	if rec := env.do(t, http.MethodPost, fmt.Sprintf("/documents/%d/tags/%d", tagged, tagID), nil, ""); rec.Code != http.StatusOK {
		t.Fatal("attach failed")
	}

	rec := env.do(t, http.MethodGet, fmt.Sprintf("/documents?tag_id=%d", tagID), nil, "")
	var resp struct {
		Items []struct {
			ID int64 `json:"id"`
		} `json:"items"`
		Total int `json:"total"`
	}
	decodeBody(t, rec, &resp)
	if resp.Total != 1 || len(resp.Items) != 1 || resp.Items[0].ID != tagged {
		t.Errorf("filtered list = %+v", resp)
	}
}
