package services

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ciangeneway-dot/Khumalo/internal/clients/gcp"
	"github.com/ciangeneway-dot/Khumalo/internal/types"
)

type fakeVision struct {
	result *gcp.OCRResult
	err    error
	calls  int
}

func (f *fakeVision) OCRImageBytes(ctx context.Context, img []byte, mimeType, languageHint string) (*gcp.OCRResult, error) {
	f.calls++
	return f.result, f.err
}

func (f *fakeVision) Close() error { return nil }

func TestExtractPlainTextVerbatim(t *testing.T) {
	ce := NewContentExtractor(testUploadConfig(), nil, newTestLogger(t))

	// Odd spacing and blank lines must survive untouched.
	raw := "Line one.\n\n  indented line\t\twith tabs  \nlast line\n"
	got, err := ce.Extract(context.Background(), types.IncomingFile{
		Name:     "notes.txt",
		MimeType: "text/plain",
		Data:     []byte(raw),
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.Text != raw {
		t.Fatalf("plain text must round-trip verbatim:\nwant %q\ngot  %q", raw, got.Text)
	}
	if got.WordCount != 8 {
		t.Fatalf("word count = %d, want 8", got.WordCount)
	}
	if got.OCRConfidence != 1.0 {
		t.Fatalf("confidence = %v, want 1.0", got.OCRConfidence)
	}
}

func TestExtractUnknownType(t *testing.T) {
	ce := NewContentExtractor(testUploadConfig(), nil, newTestLogger(t))
	_, err := ce.Extract(context.Background(), types.IncomingFile{
		Name:     "data.json",
		MimeType: "application/json",
		Data:     []byte("{}"),
	})
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("want ErrUnsupportedType, got %v", err)
	}
}

func TestExtractEmptyFile(t *testing.T) {
	ce := NewContentExtractor(testUploadConfig(), nil, newTestLogger(t))
	if _, err := ce.Extract(context.Background(), types.IncomingFile{Name: "e.txt", MimeType: "text/plain"}); err == nil {
		t.Fatal("want error for empty file")
	}
}

func TestExtractImageOCRDisabled(t *testing.T) {
	cfg := testUploadConfig()
	cfg.OCREnabled = false
	ce := NewContentExtractor(cfg, &fakeVision{}, newTestLogger(t))
	_, err := ce.Extract(context.Background(), types.IncomingFile{
		Name:     "scan.png",
		MimeType: "image/png",
		Data:     []byte{0x89, 0x50, 0x4E, 0x47},
	})
	if !errors.Is(err, ErrOCRDisabled) {
		t.Fatalf("want ErrOCRDisabled, got %v", err)
	}
}

func TestExtractImageOCR(t *testing.T) {
	cfg := testUploadConfig()
	cfg.OCREnabled = true
	fv := &fakeVision{result: &gcp.OCRResult{
		Text:       "Patient presents with elevated blood pressure.",
		Confidence: 0.93,
		Language:   "en",
		Pages:      1,
	}}
	ce := NewContentExtractor(cfg, fv, newTestLogger(t))

	got, err := ce.Extract(context.Background(), types.IncomingFile{
		Name:     "scan.png",
		MimeType: "image/png",
		Data:     []byte{0x89, 0x50, 0x4E, 0x47},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if fv.calls != 1 {
		t.Fatalf("vision calls = %d, want 1", fv.calls)
	}
	if got.OCRConfidence != 0.93 || got.PageCount != 1 {
		t.Fatalf("unexpected metadata: %+v", got)
	}
	if got.WordCount != 6 {
		t.Fatalf("word count = %d, want 6", got.WordCount)
	}
}

func TestExtractDocx(t *testing.T) {
	docXML := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Patient diagnosis:</w:t></w:r><w:r><w:t>stable</w:t></w:r></w:p>
    <w:p><w:r><w:t>Continue current medication.</w:t></w:r></w:p>
  </w:body>
</w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("zip create: %v", err)
	}
	if _, err := w.Write([]byte(docXML)); err != nil {
		t.Fatalf("zip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}

	ce := NewContentExtractor(testUploadConfig(), nil, newTestLogger(t))
	got, err := ce.Extract(context.Background(), types.IncomingFile{
		Name:     "visit.docx",
		MimeType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		Data:     buf.Bytes(),
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := "Patient diagnosis: stable Continue current medication."
	if got.Text != want {
		t.Fatalf("docx text = %q, want %q", got.Text, want)
	}
}

// minimalPDF assembles a complete one-page document with the given text
// drawn in Helvetica, computing xref offsets from the buffer as it grows.
func minimalPDF(t *testing.T, text string) []byte {
	t.Helper()
	content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n",
		"2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n",
		"3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>\nendobj\n",
		fmt.Sprintf("4 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(content), content),
		"5 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		buf.WriteString(obj)
	}
	xrefStart := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, xrefStart)
	return buf.Bytes()
}

func TestExtractPDF(t *testing.T) {
	ce := NewContentExtractor(testUploadConfig(), nil, newTestLogger(t))
	got, err := ce.Extract(context.Background(), types.IncomingFile{
		Name:     "report.pdf",
		MimeType: "application/pdf",
		Data:     minimalPDF(t, "CBC results within normal range"),
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(got.Text, "CBC results within normal range") {
		t.Fatalf("pdf text = %q", got.Text)
	}
	if got.PageCount != 1 {
		t.Fatalf("page count = %d, want 1", got.PageCount)
	}
	if got.OCRConfidence != 1.0 {
		t.Fatalf("confidence = %v, want 1.0", got.OCRConfidence)
	}
	if got.WordCount != 5 {
		t.Fatalf("word count = %d, want 5", got.WordCount)
	}
}

func TestExtractPDFGarbage(t *testing.T) {
	ce := NewContentExtractor(testUploadConfig(), nil, newTestLogger(t))
	_, err := ce.Extract(context.Background(), types.IncomingFile{
		Name:     "broken.pdf",
		MimeType: "application/pdf",
		Data:     []byte("not a pdf at all"),
	})
	if err == nil {
		t.Fatal("want error for malformed pdf")
	}
}
