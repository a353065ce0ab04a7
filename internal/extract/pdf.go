// Package extract pulls plain text out of stored PDF files.
package extract

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ProcessingError wraps any failure while extracting text from an
// otherwise-accepted upload. The caller owns cleanup of the stored file.
type ProcessingError struct {
	Path string
	Err  error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("extracting text from %s: %v", e.Path, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// Result holds the extracted text and page count of a PDF.
type Result struct {
	Text      string
	PageCount int
}

// PDFText opens the PDF at path and returns the concatenated per-page text
// and the page count. The file handle is released on every exit path. A PDF
// with no extractable text yields an empty string, which is valid output;
// pages that fail to decode individually are skipped.
func PDFText(path string) (Result, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return Result{}, &ProcessingError{Path: path, Err: err}
	}
	defer f.Close()

	pageCount := r.NumPage()

	var b strings.Builder
	for i := 1; i <= pageCount; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Image-only or partially corrupt page; the rest of the
			// document may still carry text.
			continue
		}
		b.WriteString(text)
	}

	return Result{Text: b.String(), PageCount: pageCount}, nil
}
