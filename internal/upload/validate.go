package upload

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

var pdfSignature = []byte("%PDF")

// Validation rule identifiers reported inside a ValidationError.
const (
	RuleFilename    = "filename"
	RuleExtension   = "extension"
	RuleContentType = "content_type"
	RuleSize        = "size"
	RuleEmpty       = "empty"
	RuleSignature   = "signature"
)

// ValidationError is a user-correctable upload rejection. Rule names the
// first check that failed.
type ValidationError struct {
	Rule   string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("upload validation failed (%s): %s", e.Rule, e.Detail)
}

// Validate checks an upload against every acceptance rule in order,
// short-circuiting on the first failure, and returns the full payload.
// maxBytes is the size ceiling in bytes.
func Validate(r io.Reader, filename, contentType string, maxBytes int64) ([]byte, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, &ValidationError{Rule: RuleFilename, Detail: "filename is required"}
	}

	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return nil, &ValidationError{Rule: RuleExtension, Detail: "only .pdf files are accepted"}
	}

	// Declared content type may carry parameters (e.g. "; charset=...").
	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if mediaType != "application/pdf" {
		return nil, &ValidationError{Rule: RuleContentType, Detail: fmt.Sprintf("content type must be application/pdf, got %q", contentType)}
	}

	// Read one byte past the ceiling so an oversized payload is detectable
	// without buffering the entire stream.
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, &ValidationError{Rule: RuleSize, Detail: fmt.Sprintf("file exceeds maximum size of %d bytes", maxBytes)}
	}
	if len(data) == 0 {
		return nil, &ValidationError{Rule: RuleEmpty, Detail: "file is empty"}
	}
	if !bytes.HasPrefix(data, pdfSignature) {
		return nil, &ValidationError{Rule: RuleSignature, Detail: "file does not start with the %PDF signature"}
	}

	return data, nil
}
