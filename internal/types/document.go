package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Document is immutable after creation. TextExcerpt holds at most the first
// ~1000 characters of extracted text so listings can show a preview without
// re-reading the blob.
type Document struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	PatientID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"patient_id"`
	Patient        *Patient       `gorm:"constraint:OnDelete:CASCADE;foreignKey:PatientID;references:ID" json:"patient,omitempty"`
	OriginalName   string         `gorm:"column:original_name;not null" json:"original_name"`
	StorageKey     string         `gorm:"column:storage_key;not null" json:"storage_key"`
	MimeType       string         `gorm:"column:mime_type" json:"mime_type"`
	SizeBytes      int64          `gorm:"column:size_bytes" json:"size_bytes"`
	Description    string         `gorm:"column:description" json:"description,omitempty"`
	UploadedBy     uuid.UUID      `gorm:"type:uuid;column:uploaded_by" json:"uploaded_by"`
	TextExcerpt    string         `gorm:"column:text_excerpt;type:text" json:"text_excerpt,omitempty"`
	ExtractionMeta datatypes.JSON `gorm:"column:extraction_meta;type:jsonb" json:"extraction_meta,omitempty"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
}

func (Document) TableName() string { return "document" }

// ExtractionMetadata is what Document.ExtractionMeta decodes into.
type ExtractionMetadata struct {
	WordCount     int     `json:"word_count"`
	PageCount     int     `json:"page_count,omitempty"`
	OCRConfidence float64 `json:"ocr_confidence,omitempty"`
	Language      string  `json:"language,omitempty"`
}
