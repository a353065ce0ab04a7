package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrTagExists is returned when a tag create collides with an existing name.
var ErrTagExists = errors.New("tag already exists")

// Processing status values.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusUnknown   = "unknown"
)

// Document is a stored PDF with its extracted text.
type Document struct {
	ID        int64
	Filename  string // original client filename
	FilePath  string // sanitized on-disk path
	FileSize  int64
	PageCount int
	Content   string
	CreatedAt time.Time
}

// DocumentSummary is the listing projection of a Document: no content, plus
// its processing status.
type DocumentSummary struct {
	ID        int64
	Filename  string
	FileSize  int64
	PageCount int
	Status    string
	CreatedAt time.Time
}

// ProcessingStatus records the ingestion outcome for a document.
type ProcessingStatus struct {
	ID           int64
	DocumentID   int64
	Status       string
	ErrorMessage string
	ProcessedAt  time.Time
}

// Tag is a user-defined label.
type Tag struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// TermWeight is one posting of a document's search index entry.
type TermWeight struct {
	Term   string
	Weight float64
}

// SearchHit is one ranked search result. Content is carried so the caller
// can build a snippet without a second query.
type SearchHit struct {
	ID        int64
	Filename  string
	Content   string
	Rank      float64
	CreatedAt time.Time
}
