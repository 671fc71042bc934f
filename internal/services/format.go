package services

import "strings"

// DocumentFormat is the closed set of formats the pipeline understands.
// Dispatch over it must be exhaustive so a new format is a visible change
// everywhere it matters, not a silently missed branch.
type DocumentFormat int

const (
	FormatUnknown DocumentFormat = iota
	FormatPDF
	FormatWord
	FormatText
	FormatImage
)

func (f DocumentFormat) String() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatWord:
		return "word"
	case FormatText:
		return "text"
	case FormatImage:
		return "image"
	default:
		return "unknown"
	}
}

// FormatFromMime maps a declared MIME type onto the closed format set.
// First match wins; anything unlisted is FormatUnknown.
func FormatFromMime(mimeType string) DocumentFormat {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "application/pdf":
		return FormatPDF
	case "application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return FormatWord
	case "text/plain":
		return FormatText
	case "image/jpeg", "image/png", "image/tiff", "image/bmp":
		return FormatImage
	default:
		return FormatUnknown
	}
}
