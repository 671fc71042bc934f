package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ciangeneway-dot/Khumalo/internal/logger"
	"github.com/ciangeneway-dot/Khumalo/internal/types"
)

// gormStore is the relational variant (Postgres in production, sqlite for
// local development). Row-level authorization for patient deletion is
// enforced here rather than in DB policies so the sqlite path behaves the
// same way.
type gormStore struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGormStore(db *gorm.DB, baseLog *logger.Logger) Store {
	return &gormStore{db: db, log: baseLog.With("store", "GormStore")}
}

func (s *gormStore) CreatePatient(ctx context.Context, p *types.Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&types.Patient{}).
		Where("medical_record_number = ?", p.MedicalRecordNumber).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrMRNConflict
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrMRNConflict
		}
		return err
	}
	return nil
}

func (s *gormStore) GetPatient(ctx context.Context, id uuid.UUID) (*types.Patient, error) {
	var p types.Patient
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *gormStore) GetPatientByMRN(ctx context.Context, mrn string) (*types.Patient, error) {
	var p types.Patient
	if err := s.db.WithContext(ctx).First(&p, "medical_record_number = ?", mrn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *gormStore) ListPatients(ctx context.Context) ([]*types.Patient, error) {
	var results []*types.Patient
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *gormStore) UpdatePatient(ctx context.Context, p *types.Patient) error {
	existing, err := s.GetPatient(ctx, p.ID)
	if err != nil {
		return err
	}
	if existing.MedicalRecordNumber != p.MedicalRecordNumber {
		if _, err := s.GetPatientByMRN(ctx, p.MedicalRecordNumber); err == nil {
			return ErrMRNConflict
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return s.db.WithContext(ctx).Save(p).Error
}

func (s *gormStore) DeletePatient(ctx context.Context, id, requestedBy uuid.UUID) error {
	p, err := s.GetPatient(ctx, id)
	if err != nil {
		return err
	}
	if p.CreatedBy != requestedBy {
		return ErrForbidden
	}
	// Documents cascade via fk_document_patient_id on Postgres; delete them
	// explicitly as well so sqlite keeps the same semantics.
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("patient_id = ?", id).Delete(&types.Document{}).Error; err != nil {
			return fmt.Errorf("failed to delete patient documents: %w", err)
		}
		if err := tx.Delete(&types.Patient{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete patient: %w", err)
		}
		return nil
	})
}

func (s *gormStore) CreateDocument(ctx context.Context, d *types.Document) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return s.db.WithContext(ctx).Create(d).Error
}

func (s *gormStore) GetDocument(ctx context.Context, id uuid.UUID) (*types.Document, error) {
	var d types.Document
	if err := s.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (s *gormStore) ListDocumentsByPatient(ctx context.Context, patientID uuid.UUID) ([]*types.Document, error) {
	var results []*types.Document
	if err := s.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *gormStore) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&types.Document{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) CreateSummary(ctx context.Context, sum *types.AISummary) error {
	if sum.ID == uuid.Nil {
		sum.ID = uuid.New()
	}
	return s.db.WithContext(ctx).Create(sum).Error
}

func (s *gormStore) GetSummary(ctx context.Context, id uuid.UUID) (*types.AISummary, error) {
	var sum types.AISummary
	if err := s.db.WithContext(ctx).First(&sum, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sum, nil
}

func (s *gormStore) ListSummariesByPatient(ctx context.Context, patientID uuid.UUID) ([]*types.AISummary, error) {
	var results []*types.AISummary
	if err := s.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *gormStore) FindSummaryByContentHash(ctx context.Context, patientID uuid.UUID, hash string) (*types.AISummary, error) {
	var sum types.AISummary
	if err := s.db.WithContext(ctx).
		Where("patient_id = ? AND content_hash = ?", patientID, hash).
		Order("created_at DESC").
		First(&sum).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sum, nil
}
