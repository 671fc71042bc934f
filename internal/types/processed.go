package types

// ProcessedDocument is the transient result of text extraction. It lives only
// for the duration of the upload pipeline; the first ~1000 characters of Text
// may be persisted onto Document.TextExcerpt.
type ProcessedDocument struct {
	Text          string
	WordCount     int
	PageCount     int     // 0 when the format has no page structure
	OCRConfidence float64 // engine confidence in [0,1]; 1.0 for deterministic extraction
	Language      string  // detected or configured language, when known
}
