package types

import (
	"time"

	"github.com/google/uuid"
)

// AISummary rows are append-only: regeneration always creates a new row.
// SourceDocumentIDs is a comma-joined list of document ids the summary was
// built from. ContentHash keys the optional read-through lookup so an
// identical patient+document state can reuse a prior remote completion.
type AISummary struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PatientID         uuid.UUID `gorm:"type:uuid;not null;index" json:"patient_id"`
	Body              string    `gorm:"column:body;type:text;not null" json:"body"`
	GeneratedBy       uuid.UUID `gorm:"type:uuid;column:generated_by" json:"generated_by"`
	SourceDocumentIDs string    `gorm:"column:source_document_ids" json:"source_document_ids,omitempty"`
	ContentHash       string    `gorm:"column:content_hash;index" json:"content_hash,omitempty"`
	CreatedAt         time.Time `gorm:"not null" json:"created_at"`
}

func (AISummary) TableName() string { return "ai_summary" }
