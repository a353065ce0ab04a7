package storage

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestDocument(t *testing.T, s *Store, filename string, terms []TermWeight) int64 {
	t.Helper()
	id, err := s.CreateDocument(Document{
		Filename:  filename,
		FilePath:  "/uploads/" + filename,
		FileSize:  1024,
		PageCount: 3,
		Content:   "content of " + filename,
	}, terms)
	if err != nil {
		t.Fatalf("CreateDocument(%q) failed: %v", filename, err)
	}
	return id
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestForeignKeysEnabled(t *testing.T) {
	for _, dataDir := range []string{":memory:", t.TempDir()} {
		s, err := Open(dataDir)
		if err != nil {
			t.Fatalf("Open(%q) failed: %v", dataDir, err)
		}
		var on int
		if err := s.db.QueryRow("PRAGMA foreign_keys").Scan(&on); err != nil {
			t.Fatal(err)
		}
		s.Close()
		if on != 1 {
			t.Errorf("foreign_keys pragma off for %q", dataDir)
		}
	}
}

func TestCreateAndGetDocument(t *testing.T) {
	s := openTestStore(t)

	id := createTestDocument(t, s, "report.pdf", []TermWeight{{Term: "report", Weight: 0.8}})

	doc, err := s.GetDocument(id)
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if doc.Filename != "report.pdf" {
		t.Errorf("Filename = %q", doc.Filename)
	}
	if doc.PageCount != 3 {
		t.Errorf("PageCount = %d, want 3", doc.PageCount)
	}
	if doc.Content != "content of report.pdf" {
		t.Errorf("Content = %q", doc.Content)
	}
	if doc.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero")
	}

	status, err := s.GetDocumentStatus(id)
	if err != nil {
		t.Fatalf("GetDocumentStatus failed: %v", err)
	}
	if status != StatusCompleted {
		t.Errorf("status = %q, want %q", status, StatusCompleted)
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetDocument(9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDocument = %v, want ErrNotFound", err)
	}
}

func TestDeleteDocumentCascades(t *testing.T) {
	s := openTestStore(t)

	id := createTestDocument(t, s, "doomed.pdf", []TermWeight{
		{Term: "doom", Weight: 1.0},
		{Term: "pdf", Weight: 0.5},
	})

	tagA, err := s.CreateTag("contracts")
	if err != nil {
		t.Fatal(err)
	}
	tagB, err := s.CreateTag("archive")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.AttachTag(id, tagA.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.AttachTag(id, tagB.ID); err != nil {
		t.Fatal(err)
	}

	path, err := s.DeleteDocument(id)
	if err != nil {
		t.Fatalf("DeleteDocument failed: %v", err)
	}
	if path != "/uploads/doomed.pdf" {
		t.Errorf("returned path = %q", path)
	}

	if _, err := s.GetDocument(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("document still present after delete: %v", err)
	}

	// Status row must be gone with the document.
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM processing_statuses WHERE document_id = ?`, id).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("%d processing status rows survive the delete", count)
	}

	// Associations gone; the tags themselves survive.
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM document_tags WHERE document_id = ?`, id).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("%d document_tags rows survive the delete", count)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM search_terms WHERE document_id = ?`, id).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("%d search_terms rows survive the delete", count)
	}

	tags, err := s.ListTags()
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 2 {
		t.Errorf("tags were deleted along with the document: %v", tags)
	}
}

func TestDeleteDocumentNotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.DeleteDocument(42); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteDocument = %v, want ErrNotFound", err)
	}
}

func TestListDocumentsPagination(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 25; i++ {
		_, err := s.CreateDocument(Document{
			Filename:  fmt.Sprintf("doc-%02d.pdf", i),
			FilePath:  fmt.Sprintf("/uploads/doc-%02d.pdf", i),
			FileSize:  10,
			PageCount: 1,
			CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute),
		}, nil)
		if err != nil {
			t.Fatal(err)
		}
	}

	docs, total, err := s.ListDocuments(1, 10, 0)
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if total != 25 {
		t.Errorf("total = %d, want 25", total)
	}
	if len(docs) != 10 {
		t.Fatalf("page 1 has %d items, want 10", len(docs))
	}
	// Newest first.
	if docs[0].Filename != "doc-24.pdf" {
		t.Errorf("first item = %q, want doc-24.pdf", docs[0].Filename)
	}

	docs, _, err = s.ListDocuments(3, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 5 {
		t.Errorf("last page has %d items, want 5", len(docs))
	}

	docs, total, err = s.ListDocuments(9, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 0 || total != 25 {
		t.Errorf("page beyond range: %d items, total %d", len(docs), total)
	}
}

func TestListDocumentsStatus(t *testing.T) {
	s := openTestStore(t)
	createTestDocument(t, s, "a.pdf", nil)

	docs, _, err := s.ListDocuments(1, 20, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].Status != StatusCompleted {
		t.Errorf("docs = %+v, want one completed document", docs)
	}
}

func TestListDocumentsTagFilter(t *testing.T) {
	s := openTestStore(t)

	tagged := createTestDocument(t, s, "tagged.pdf", nil)
	createTestDocument(t, s, "untagged.pdf", nil)

	tag, err := s.CreateTag("finance")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.AttachTag(tagged, tag.ID); err != nil {
		t.Fatal(err)
	}

	docs, total, err := s.ListDocuments(1, 20, tag.ID)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(docs) != 1 || docs[0].ID != tagged {
		t.Errorf("tag filter returned %v (total %d)", docs, total)
	}
}

func TestSearchByTermsRanking(t *testing.T) {
	s := openTestStore(t)

	dense := createTestDocument(t, s, "dense.pdf", []TermWeight{{Term: "whale", Weight: 0.9}})
	sparse := createTestDocument(t, s, "sparse.pdf", []TermWeight{{Term: "whale", Weight: 0.2}})
	createTestDocument(t, s, "unrelated.pdf", []TermWeight{{Term: "tax", Weight: 0.9}})

	hits, err := s.SearchByTerms([]string{"whale"}, 100)
	if err != nil {
		t.Fatalf("SearchByTerms failed: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].ID != dense || hits[1].ID != sparse {
		t.Errorf("ranking order = [%d %d], want [%d %d]", hits[0].ID, hits[1].ID, dense, sparse)
	}
	if hits[0].Rank <= hits[1].Rank {
		t.Errorf("ranks not descending: %f <= %f", hits[0].Rank, hits[1].Rank)
	}
}

func TestSearchByTermsMultiTermSum(t *testing.T) {
	s := openTestStore(t)

	both := createTestDocument(t, s, "both.pdf", []TermWeight{
		{Term: "alpha", Weight: 0.4},
		{Term: "beta", Weight: 0.4},
	})
	one := createTestDocument(t, s, "one.pdf", []TermWeight{{Term: "alpha", Weight: 0.5}})

	hits, err := s.SearchByTerms([]string{"alpha", "beta"}, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 || hits[0].ID != both || hits[1].ID != one {
		t.Errorf("hits = %+v, want both-term document first", hits)
	}
}

func TestSearchByTermsEmpty(t *testing.T) {
	s := openTestStore(t)
	hits, err := s.SearchByTerms(nil, 100)
	if err != nil || hits != nil {
		t.Errorf("SearchByTerms(nil) = %v, %v", hits, err)
	}
}

func TestSearchByTermsLimit(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 5; i++ {
		createTestDocument(t, s, fmt.Sprintf("d%d.pdf", i), []TermWeight{{Term: "common", Weight: 0.5}})
	}
	hits, err := s.SearchByTerms([]string{"common"}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 3 {
		t.Errorf("got %d hits, want limit 3", len(hits))
	}
}

func TestCreateTagDuplicate(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.CreateTag("contracts"); err != nil {
		t.Fatalf("first CreateTag failed: %v", err)
	}
	if _, err := s.CreateTag("contracts"); !errors.Is(err, ErrTagExists) {
		t.Errorf("duplicate CreateTag = %v, want ErrTagExists", err)
	}
	// Uniqueness is case-insensitive.
	if _, err := s.CreateTag("CONTRACTS"); !errors.Is(err, ErrTagExists) {
		t.Errorf("case-variant CreateTag = %v, want ErrTagExists", err)
	}

	tags, err := s.ListTags()
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 1 {
		t.Errorf("%d tag rows exist, want exactly 1", len(tags))
	}
}

func TestCreateTagConcurrentDuplicate(t *testing.T) {
	s := openTestStore(t)

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := s.CreateTag("racing")
			results <- err
		}()
	}

	var created, exists int
	for i := 0; i < 2; i++ {
		switch err := <-results; {
		case err == nil:
			created++
		case errors.Is(err, ErrTagExists):
			exists++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if created != 1 || exists != 1 {
		t.Errorf("got %d successes and %d ErrTagExists, want exactly one of each", created, exists)
	}

	tags, err := s.ListTags()
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 1 {
		t.Errorf("%d tag rows exist after racing creates, want exactly 1", len(tags))
	}
}

func TestDeleteTagCascades(t *testing.T) {
	s := openTestStore(t)

	id := createTestDocument(t, s, "kept.pdf", nil)
	tag, err := s.CreateTag("temp")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.AttachTag(id, tag.ID); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteTag(tag.ID); err != nil {
		t.Fatalf("DeleteTag failed: %v", err)
	}

	tags, err := s.ListDocumentTags(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 0 {
		t.Errorf("document still carries tags %v after tag delete", tags)
	}

	// The document itself is untouched.
	if _, err := s.GetDocument(id); err != nil {
		t.Errorf("document gone after tag delete: %v", err)
	}

	// Already-gone tags delete cleanly.
	if err := s.DeleteTag(tag.ID); err != nil {
		t.Errorf("second DeleteTag = %v, want nil", err)
	}
	if err := s.DeleteTag(9999); err != nil {
		t.Errorf("DeleteTag of unknown id = %v, want nil", err)
	}
}

func TestAttachDetachIdempotent(t *testing.T) {
	s := openTestStore(t)

	id := createTestDocument(t, s, "a.pdf", nil)
	tag, err := s.CreateTag("x")
	if err != nil {
		t.Fatal(err)
	}

	if err := s.AttachTag(id, tag.ID); err != nil {
		t.Fatalf("AttachTag failed: %v", err)
	}
	if err := s.AttachTag(id, tag.ID); err != nil {
		t.Errorf("second AttachTag failed: %v", err)
	}

	tags, err := s.ListDocumentTags(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 1 {
		t.Errorf("%d associations exist, want 1", len(tags))
	}

	if err := s.DetachTag(id, tag.ID); err != nil {
		t.Fatalf("DetachTag failed: %v", err)
	}
	if err := s.DetachTag(id, tag.ID); err != nil {
		t.Errorf("second DetachTag failed: %v", err)
	}
}

func TestAttachTagNotFound(t *testing.T) {
	s := openTestStore(t)
	id := createTestDocument(t, s, "a.pdf", nil)

	if err := s.AttachTag(id, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("AttachTag with unknown tag = %v, want ErrNotFound", err)
	}
	if err := s.AttachTag(999, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("AttachTag with unknown document = %v, want ErrNotFound", err)
	}
}

func TestListFilePaths(t *testing.T) {
	s := openTestStore(t)

	createTestDocument(t, s, "one.pdf", nil)
	createTestDocument(t, s, "two.pdf", nil)

	paths, err := s.ListFilePaths()
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 {
		t.Errorf("ListFilePaths returned %d paths, want 2", len(paths))
	}
}
