// Package pdftest builds tiny but structurally valid PDF files for tests.
package pdftest

import (
	"fmt"
	"strings"
)

// MinimalPDF returns the bytes of a valid single-font PDF with the given
// number of pages, each carrying the same line of text. Offsets in the xref
// table are computed from the actual object positions, so standard parsers
// accept the output.
func MinimalPDF(pages int, text string) []byte {
	if pages < 1 {
		pages = 1
	}

	var b strings.Builder
	offsets := []int{0} // object 0 is the free head

	writeObj := func(body string) {
		offsets = append(offsets, b.Len())
		b.WriteString(body)
	}

	b.WriteString("%PDF-1.4\n")

	// Object layout: 1 catalog, 2 pages root, 3..2+n page objects,
	// 3+n..2+2n content streams, 3+2n font.
	fontNum := 3 + 2*pages

	kids := make([]string, pages)
	for i := 0; i < pages; i++ {
		kids[i] = fmt.Sprintf("%d 0 R", 3+i)
	}

	writeObj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	writeObj(fmt.Sprintf("2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n",
		strings.Join(kids, " "), pages))

	for i := 0; i < pages; i++ {
		writeObj(fmt.Sprintf(
			"%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R /Resources << /Font << /F1 %d 0 R >> >> >>\nendobj\n",
			3+i, 3+pages+i, fontNum))
	}

	escaped := strings.NewReplacer("\\", "\\\\", "(", "\\(", ")", "\\)").Replace(text)
	stream := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", escaped)
	for i := 0; i < pages; i++ {
		writeObj(fmt.Sprintf("%d 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n",
			3+pages+i, len(stream), stream))
	}

	writeObj(fmt.Sprintf("%d 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>\nendobj\n", fontNum))

	xrefStart := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", len(offsets))
	b.WriteString("0000000000 65535 f \n")
	for _, off := range offsets[1:] {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets), xrefStart)

	return []byte(b.String())
}

// CorruptPDF returns bytes that carry the %PDF signature but are not a
// parseable document, for exercising extraction failure paths.
func CorruptPDF() []byte {
	return []byte("%PDF-1.4\nthis is not a real pdf body and has no xref table\n")
}
