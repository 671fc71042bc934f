package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/ciangeneway-dot/Khumalo/internal/clients/gcp"
	"github.com/ciangeneway-dot/Khumalo/internal/logger"
	"github.com/ciangeneway-dot/Khumalo/internal/types"
)

// ContentExtractor turns a validated file into extracted text. One failed
// extraction never aborts a batch; the caller records it and moves on.
type ContentExtractor interface {
	Extract(ctx context.Context, f types.IncomingFile) (*types.ProcessedDocument, error)
}

type contentExtractor struct {
	log    *logger.Logger
	cfg    UploadConfig
	vision gcp.Vision
}

func NewContentExtractor(cfg UploadConfig, vision gcp.Vision, baseLog *logger.Logger) ContentExtractor {
	return &contentExtractor{
		log:    baseLog.With("service", "ContentExtractor"),
		cfg:    cfg,
		vision: vision,
	}
}

func (ce *contentExtractor) Extract(ctx context.Context, f types.IncomingFile) (*types.ProcessedDocument, error) {
	if len(f.Data) == 0 {
		return nil, fmt.Errorf("empty file: name=%s mime=%s", f.Name, f.MimeType)
	}

	switch format := FormatFromMime(f.MimeType); format {
	case FormatPDF:
		return extractPDF(f.Data)
	case FormatWord:
		return extractWord(f.Data, f.Name)
	case FormatText:
		// Verbatim: bytes decoded as text, no normalization.
		text := string(f.Data)
		return &types.ProcessedDocument{
			Text:          text,
			WordCount:     len(strings.Fields(text)),
			OCRConfidence: 1.0,
		}, nil
	case FormatImage:
		return ce.extractImage(ctx, f)
	case FormatUnknown:
		// Unreachable when the Validator ran first.
		return nil, fmt.Errorf("%w: %s declares %q", ErrUnsupportedType, f.Name, f.MimeType)
	default:
		return nil, fmt.Errorf("unhandled document format %v", format)
	}
}

func (ce *contentExtractor) extractImage(ctx context.Context, f types.IncomingFile) (*types.ProcessedDocument, error) {
	if !ce.cfg.OCREnabled {
		return nil, fmt.Errorf("%w: %s", ErrOCRDisabled, f.Name)
	}
	if ce.vision == nil {
		return nil, fmt.Errorf("OCR engine not configured")
	}

	res, err := ce.vision.OCRImageBytes(ctx, f.Data, f.MimeType, ce.cfg.OCRLanguage)
	if err != nil {
		return nil, fmt.Errorf("ocr failed for %s: %w", f.Name, err)
	}

	language := res.Language
	if language == "" {
		language = ce.cfg.OCRLanguage
	}
	return &types.ProcessedDocument{
		Text:          res.Text,
		WordCount:     len(strings.Fields(res.Text)),
		PageCount:     res.Pages,
		OCRConfidence: res.Confidence,
		Language:      language,
	}, nil
}

func extractPDF(data []byte) (*types.ProcessedDocument, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("pdf reader: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return nil, fmt.Errorf("pdf read: %w", err)
	}
	text := collapseWhitespace(string(b))
	if text == "" {
		return nil, fmt.Errorf("no text extracted from pdf")
	}
	return &types.ProcessedDocument{
		Text:          text,
		WordCount:     len(strings.Fields(text)),
		PageCount:     r.NumPage(),
		OCRConfidence: 1.0,
	}, nil
}

func extractWord(data []byte, name string) (*types.ProcessedDocument, error) {
	var text string
	if isZip(data) {
		// DOCX: word/document.xml, gather <w:t>.
		extracted, err := extractOpenXMLText(data, "word/document.xml")
		if err != nil {
			return nil, fmt.Errorf("docx extract failed for %s: %w", name, err)
		}
		text = extracted
	} else {
		// Legacy .doc has no cheap structured parse; scan for printable runs.
		text = printableRuns(data)
		if text == "" {
			return nil, fmt.Errorf("no text recovered from %s", name)
		}
	}
	return &types.ProcessedDocument{
		Text:          text,
		WordCount:     len(strings.Fields(text)),
		OCRConfidence: 1.0,
	}, nil
}

func isZip(b []byte) bool {
	// ZIP local file header: PK\x03\x04
	return len(b) >= 4 && b[0] == 'P' && b[1] == 'K' && b[2] == 3 && b[3] == 4
}

func extractOpenXMLText(zipBytes []byte, target string) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return "", err
	}
	var f *zip.File
	for _, candidate := range zr.File {
		if candidate.Name == target {
			f = candidate
			break
		}
	}
	if f == nil {
		return "", fmt.Errorf("zip missing %s", target)
	}
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	b, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return "", err
	}
	s := collapseWhitespace(xmlTextContent(b, "t"))
	if s == "" {
		return "", fmt.Errorf("no text extracted from %s", target)
	}
	return s, nil
}

// xmlTextContent gathers the character data of every element whose local
// name matches tag.
func xmlTextContent(xmlBytes []byte, tag string) string {
	dec := xml.NewDecoder(bytes.NewReader(xmlBytes))
	var out strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != tag {
			continue
		}
		var v string
		_ = dec.DecodeElement(&v, &se)
		if v != "" {
			out.WriteString(v)
			out.WriteString(" ")
		}
	}
	return out.String()
}

// printableRuns keeps runs of at least four printable bytes, which is good
// enough to surface the prose inside an OLE-container .doc.
func printableRuns(b []byte) string {
	var out strings.Builder
	var run []byte
	flush := func() {
		if len(run) >= 4 {
			out.Write(run)
			out.WriteByte(' ')
		}
		run = run[:0]
	}
	for _, c := range b {
		if c == '\n' || c == '\r' || c == '\t' || (c >= 0x20 && c <= 0x7E) {
			run = append(run, c)
			continue
		}
		flush()
	}
	flush()
	return collapseWhitespace(out.String())
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "\u00a0", " ")), " ")
}
