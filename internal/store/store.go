package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ciangeneway-dot/Khumalo/internal/types"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrMRNConflict is returned when a patient's medical record number is
	// already taken by another patient.
	ErrMRNConflict = errors.New("medical record number already exists")
	// ErrForbidden is returned when the caller is not allowed to perform the
	// operation (e.g. deleting a patient they did not create).
	ErrForbidden = errors.New("forbidden")
	// ErrUnsupported is returned by backends that do not implement an
	// operation (the table-storage variant never hard-deletes patients).
	ErrUnsupported = errors.New("operation not supported by this storage backend")
)

// Store is the persistence boundary for patients, documents and summaries.
// It is constructed once at process start and injected into services; no
// package-level state. Documents are immutable after Create, summaries are
// append-only.
type Store interface {
	CreatePatient(ctx context.Context, p *types.Patient) error
	GetPatient(ctx context.Context, id uuid.UUID) (*types.Patient, error)
	GetPatientByMRN(ctx context.Context, mrn string) (*types.Patient, error)
	ListPatients(ctx context.Context) ([]*types.Patient, error)
	UpdatePatient(ctx context.Context, p *types.Patient) error
	// DeletePatient hard-deletes a patient and cascades to its documents.
	// Only the creator may delete; only the relational backend supports it.
	DeletePatient(ctx context.Context, id, requestedBy uuid.UUID) error

	CreateDocument(ctx context.Context, d *types.Document) error
	GetDocument(ctx context.Context, id uuid.UUID) (*types.Document, error)
	// ListDocumentsByPatient returns documents newest first.
	ListDocumentsByPatient(ctx context.Context, patientID uuid.UUID) ([]*types.Document, error)
	DeleteDocument(ctx context.Context, id uuid.UUID) error

	CreateSummary(ctx context.Context, s *types.AISummary) error
	GetSummary(ctx context.Context, id uuid.UUID) (*types.AISummary, error)
	// ListSummariesByPatient returns summaries newest first.
	ListSummariesByPatient(ctx context.Context, patientID uuid.UUID) ([]*types.AISummary, error)
	// FindSummaryByContentHash returns the most recent summary for the
	// patient with the given content hash, or ErrNotFound.
	FindSummaryByContentHash(ctx context.Context, patientID uuid.UUID, hash string) (*types.AISummary, error)
}
