// Package ingest coordinates the upload pipeline: validation, file storage,
// text extraction, indexing, and the atomic database commit.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/kalambet/docstash/internal/extract"
	"github.com/kalambet/docstash/internal/index"
	"github.com/kalambet/docstash/internal/storage"
	"github.com/kalambet/docstash/internal/upload"
)

// DocumentCreator abstracts the transactional document insert.
type DocumentCreator interface {
	CreateDocument(doc storage.Document, terms []storage.TermWeight) (int64, error)
}

// Ingestor runs the write path for one upload at a time; concurrent uploads
// get independent Ingest calls and share no mutable state.
type Ingestor struct {
	files    *upload.FileStore
	store    DocumentCreator
	analyzer *index.Analyzer
	maxBytes int64
	logger   *slog.Logger
}

// New creates an Ingestor. maxBytes is the upload size ceiling.
func New(files *upload.FileStore, store DocumentCreator, analyzer *index.Analyzer, maxBytes int64) *Ingestor {
	return &Ingestor{
		files:    files,
		store:    store,
		analyzer: analyzer,
		maxBytes: maxBytes,
		logger:   slog.Default(),
	}
}

// Ingest validates the upload, persists it to disk, extracts its text,
// derives the index entry, and commits everything in one transaction. Any
// failure after the file hits disk discards it before the error surfaces, so
// a failed ingest leaves neither a file nor a row behind.
func (in *Ingestor) Ingest(ctx context.Context, r io.Reader, filename, contentType string) (storage.DocumentSummary, error) {
	data, err := upload.Validate(r, filename, contentType, in.maxBytes)
	if err != nil {
		return storage.DocumentSummary{}, err
	}

	path, err := in.files.Save(filename, data)
	if err != nil {
		return storage.DocumentSummary{}, err
	}

	// The client may have gone away while the payload was being written.
	if err := ctx.Err(); err != nil {
		in.files.Discard(path)
		return storage.DocumentSummary{}, err
	}

	result, err := extract.PDFText(path)
	if err != nil {
		in.files.Discard(path)
		return storage.DocumentSummary{}, err
	}

	doc := storage.Document{
		Filename:  filename,
		FilePath:  path,
		FileSize:  int64(len(data)),
		PageCount: result.PageCount,
		Content:   result.Text,
		CreatedAt: time.Now().UTC(),
	}

	terms := toTermWeights(in.analyzer.Entry(result.Text))
	id, err := in.store.CreateDocument(doc, terms)
	if err != nil {
		in.files.Discard(path)
		return storage.DocumentSummary{}, fmt.Errorf("committing document: %w", err)
	}

	in.logger.Info("document ingested",
		"id", id, "filename", filename, "pages", result.PageCount, "bytes", len(data))

	return storage.DocumentSummary{
		ID:        id,
		Filename:  filename,
		FileSize:  doc.FileSize,
		PageCount: result.PageCount,
		Status:    storage.StatusCompleted,
		CreatedAt: doc.CreatedAt,
	}, nil
}

func toTermWeights(postings []index.Posting) []storage.TermWeight {
	terms := make([]storage.TermWeight, len(postings))
	for i, p := range postings {
		terms[i] = storage.TermWeight{Term: p.Term, Weight: p.Weight}
	}
	return terms
}
