package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ciangeneway-dot/Khumalo/internal/logger"
	"github.com/ciangeneway-dot/Khumalo/internal/store"
	"github.com/ciangeneway-dot/Khumalo/internal/types"
)

// PatientInput carries the writable patient fields. DateOfBirth is
// "2006-01-02"; empty means unknown.
type PatientInput struct {
	FirstName           string `json:"first_name"`
	LastName            string `json:"last_name"`
	DateOfBirth         string `json:"date_of_birth"`
	Email               string `json:"email"`
	Phone               string `json:"phone"`
	Address             string `json:"address"`
	MedicalRecordNumber string `json:"medical_record_number"`
}

type PatientService interface {
	Create(ctx context.Context, in PatientInput, createdBy uuid.UUID) (*types.Patient, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Patient, error)
	GetByMRN(ctx context.Context, mrn string) (*types.Patient, error)
	List(ctx context.Context) ([]*types.Patient, error)
	Update(ctx context.Context, id uuid.UUID, in PatientInput) (*types.Patient, error)
	Delete(ctx context.Context, id, requestedBy uuid.UUID) error
}

type patientService struct {
	log   *logger.Logger
	store store.Store
}

func NewPatientService(st store.Store, baseLog *logger.Logger) PatientService {
	return &patientService{
		log:   baseLog.With("service", "PatientService"),
		store: st,
	}
}

func (ps *patientService) Create(ctx context.Context, in PatientInput, createdBy uuid.UUID) (*types.Patient, error) {
	p := &types.Patient{CreatedBy: createdBy}
	if err := applyPatientInput(p, in); err != nil {
		return nil, err
	}
	if err := ps.store.CreatePatient(ctx, p); err != nil {
		return nil, err
	}
	ps.log.Info("patient created", "patient_id", p.ID.String(), "mrn", p.MedicalRecordNumber)
	return p, nil
}

func (ps *patientService) Get(ctx context.Context, id uuid.UUID) (*types.Patient, error) {
	return ps.store.GetPatient(ctx, id)
}

func (ps *patientService) GetByMRN(ctx context.Context, mrn string) (*types.Patient, error) {
	return ps.store.GetPatientByMRN(ctx, strings.TrimSpace(mrn))
}

func (ps *patientService) List(ctx context.Context) ([]*types.Patient, error) {
	return ps.store.ListPatients(ctx)
}

func (ps *patientService) Update(ctx context.Context, id uuid.UUID, in PatientInput) (*types.Patient, error) {
	p, err := ps.store.GetPatient(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyPatientInput(p, in); err != nil {
		return nil, err
	}
	if err := ps.store.UpdatePatient(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (ps *patientService) Delete(ctx context.Context, id, requestedBy uuid.UUID) error {
	if err := ps.store.DeletePatient(ctx, id, requestedBy); err != nil {
		return err
	}
	ps.log.Info("patient deleted", "patient_id", id.String())
	return nil
}

func applyPatientInput(p *types.Patient, in PatientInput) error {
	first := strings.TrimSpace(in.FirstName)
	last := strings.TrimSpace(in.LastName)
	mrn := strings.TrimSpace(in.MedicalRecordNumber)
	if first == "" || last == "" {
		return fmt.Errorf("first and last name are required")
	}
	if mrn == "" {
		return fmt.Errorf("medical record number is required")
	}
	if in.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", in.DateOfBirth)
		if err != nil {
			return fmt.Errorf("invalid date_of_birth %q: want YYYY-MM-DD", in.DateOfBirth)
		}
		p.DateOfBirth = dob
	}
	p.FirstName = first
	p.LastName = last
	p.Email = strings.TrimSpace(in.Email)
	p.Phone = strings.TrimSpace(in.Phone)
	p.Address = strings.TrimSpace(in.Address)
	p.MedicalRecordNumber = mrn
	return nil
}
