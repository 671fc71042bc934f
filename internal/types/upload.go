package types

import "github.com/google/uuid"

// IncomingFile is one member of an upload batch, read fully into memory
// before the concurrent phase starts.
type IncomingFile struct {
	Name        string
	MimeType    string
	SizeBytes   int64
	Description string
	Data        []byte
}

// UploadResult reports the outcome for a single file. Index refers back to
// the file's position in the input batch; it is assigned before the
// concurrent phase so association never depends on completion order.
type UploadResult struct {
	Index      int       `json:"index"`
	FileName   string    `json:"file_name"`
	Success    bool      `json:"success"`
	StorageKey string    `json:"storage_key,omitempty"`
	DocumentID uuid.UUID `json:"document_id,omitempty"`
	Warnings   []string  `json:"warnings,omitempty"`
	Error      string    `json:"error,omitempty"`
}

type BatchUploadResult struct {
	Successful []UploadResult `json:"successful"`
	Failed     []UploadResult `json:"failed"`
}

// RelevanceReport is advisory only; IsValid never blocks an upload.
type RelevanceReport struct {
	IsValid     bool     `json:"is_valid"`
	Warnings    []string `json:"warnings"`
	Suggestions []string `json:"suggestions"`
}
