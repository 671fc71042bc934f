package types

import (
	"time"

	"github.com/google/uuid"
)

type Patient struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName           string    `gorm:"not null;column:first_name" json:"first_name"`
	LastName            string    `gorm:"not null;column:last_name" json:"last_name"`
	DateOfBirth         time.Time `gorm:"column:date_of_birth" json:"date_of_birth"`
	Email               string    `gorm:"column:email" json:"email,omitempty"`
	Phone               string    `gorm:"column:phone" json:"phone,omitempty"`
	Address             string    `gorm:"column:address" json:"address,omitempty"`
	MedicalRecordNumber string    `gorm:"uniqueIndex;not null;column:medical_record_number" json:"medical_record_number"`
	CreatedBy           uuid.UUID `gorm:"type:uuid;column:created_by" json:"created_by"`
	CreatedAt           time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time `gorm:"not null" json:"updated_at"`
}

func (Patient) TableName() string { return "patient" }

func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}
