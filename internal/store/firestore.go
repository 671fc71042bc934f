package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/datatypes"

	"github.com/ciangeneway-dot/Khumalo/internal/logger"
	"github.com/ciangeneway-dot/Khumalo/internal/types"
)

const (
	patientsCollection = "patients"
	recordsCollection  = "records"

	recordKindDocument = "document"
	recordKindSummary  = "summary"

	documentKeyPrefix = "doc#"
	summaryKeyPrefix  = "sum#"
)

// firestoreStore is the table-storage variant. Patients live under a fixed
// collection; documents and summaries share a per-patient partition
// (patients/{id}/records) with a type-prefixed row key (doc#..., sum#...)
// distinguishing the sub-entities. Patients are never hard-deleted here.
type firestoreStore struct {
	client *firestore.Client
	log    *logger.Logger
}

func NewFirestoreStore(client *firestore.Client, baseLog *logger.Logger) Store {
	return &firestoreStore{client: client, log: baseLog.With("store", "FirestoreStore")}
}

type patientRow struct {
	ID                  string    `firestore:"id"`
	FirstName           string    `firestore:"first_name"`
	LastName            string    `firestore:"last_name"`
	DateOfBirth         time.Time `firestore:"date_of_birth"`
	Email               string    `firestore:"email,omitempty"`
	Phone               string    `firestore:"phone,omitempty"`
	Address             string    `firestore:"address,omitempty"`
	MedicalRecordNumber string    `firestore:"medical_record_number"`
	CreatedBy           string    `firestore:"created_by"`
	CreatedAt           time.Time `firestore:"created_at"`
	UpdatedAt           time.Time `firestore:"updated_at"`
}

// recordRow is the shared row shape of the per-patient partition. Kind
// discriminates documents from summaries; unused fields stay zero.
type recordRow struct {
	Kind      string    `firestore:"kind"`
	ID        string    `firestore:"id"`
	PatientID string    `firestore:"patient_id"`
	CreatedAt time.Time `firestore:"created_at"`

	OriginalName   string `firestore:"original_name,omitempty"`
	StorageKey     string `firestore:"storage_key,omitempty"`
	MimeType       string `firestore:"mime_type,omitempty"`
	SizeBytes      int64  `firestore:"size_bytes,omitempty"`
	Description    string `firestore:"description,omitempty"`
	UploadedBy     string `firestore:"uploaded_by,omitempty"`
	TextExcerpt    string `firestore:"text_excerpt,omitempty"`
	ExtractionMeta string `firestore:"extraction_meta,omitempty"`

	Body              string `firestore:"body,omitempty"`
	GeneratedBy       string `firestore:"generated_by,omitempty"`
	SourceDocumentIDs string `firestore:"source_document_ids,omitempty"`
	ContentHash       string `firestore:"content_hash,omitempty"`
}

func (s *firestoreStore) patients() *firestore.CollectionRef {
	return s.client.Collection(patientsCollection)
}

func (s *firestoreStore) records(patientID string) *firestore.CollectionRef {
	return s.patients().Doc(patientID).Collection(recordsCollection)
}

func toPatientRow(p *types.Patient) patientRow {
	return patientRow{
		ID:                  p.ID.String(),
		FirstName:           p.FirstName,
		LastName:            p.LastName,
		DateOfBirth:         p.DateOfBirth,
		Email:               p.Email,
		Phone:               p.Phone,
		Address:             p.Address,
		MedicalRecordNumber: p.MedicalRecordNumber,
		CreatedBy:           p.CreatedBy.String(),
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

func fromPatientRow(row patientRow) (*types.Patient, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, fmt.Errorf("bad patient id %q: %w", row.ID, err)
	}
	createdBy, _ := uuid.Parse(row.CreatedBy)
	return &types.Patient{
		ID:                  id,
		FirstName:           row.FirstName,
		LastName:            row.LastName,
		DateOfBirth:         row.DateOfBirth,
		Email:               row.Email,
		Phone:               row.Phone,
		Address:             row.Address,
		MedicalRecordNumber: row.MedicalRecordNumber,
		CreatedBy:           createdBy,
		CreatedAt:           row.CreatedAt,
		UpdatedAt:           row.UpdatedAt,
	}, nil
}

func (s *firestoreStore) CreatePatient(ctx context.Context, p *types.Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	p.UpdatedAt = p.CreatedAt

	if _, err := s.GetPatientByMRN(ctx, p.MedicalRecordNumber); err == nil {
		return ErrMRNConflict
	} else if err != ErrNotFound {
		return err
	}

	_, err := s.patients().Doc(p.ID.String()).Create(ctx, toPatientRow(p))
	if err != nil {
		return fmt.Errorf("failed to create patient row: %w", err)
	}
	return nil
}

func (s *firestoreStore) GetPatient(ctx context.Context, id uuid.UUID) (*types.Patient, error) {
	snap, err := s.patients().Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var row patientRow
	if err := snap.DataTo(&row); err != nil {
		return nil, err
	}
	return fromPatientRow(row)
}

func (s *firestoreStore) GetPatientByMRN(ctx context.Context, mrn string) (*types.Patient, error) {
	iter := s.patients().Where("medical_record_number", "==", mrn).Limit(1).Documents(ctx)
	defer iter.Stop()
	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var row patientRow
	if err := snap.DataTo(&row); err != nil {
		return nil, err
	}
	return fromPatientRow(row)
}

func (s *firestoreStore) ListPatients(ctx context.Context) ([]*types.Patient, error) {
	iter := s.patients().OrderBy("created_at", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var results []*types.Patient
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var row patientRow
		if err := snap.DataTo(&row); err != nil {
			return nil, err
		}
		p, err := fromPatientRow(row)
		if err != nil {
			s.log.Warn("Skipping malformed patient row", "error", err)
			continue
		}
		results = append(results, p)
	}
	return results, nil
}

func (s *firestoreStore) UpdatePatient(ctx context.Context, p *types.Patient) error {
	existing, err := s.GetPatient(ctx, p.ID)
	if err != nil {
		return err
	}
	if existing.MedicalRecordNumber != p.MedicalRecordNumber {
		if _, err := s.GetPatientByMRN(ctx, p.MedicalRecordNumber); err == nil {
			return ErrMRNConflict
		} else if err != ErrNotFound {
			return err
		}
	}
	p.UpdatedAt = time.Now()
	_, err = s.patients().Doc(p.ID.String()).Set(ctx, toPatientRow(p))
	return err
}

// DeletePatient: the table-storage variant never hard-deletes patients.
func (s *firestoreStore) DeletePatient(ctx context.Context, id, requestedBy uuid.UUID) error {
	return ErrUnsupported
}

func (s *firestoreStore) CreateDocument(ctx context.Context, d *types.Document) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	row := recordRow{
		Kind:           recordKindDocument,
		ID:             d.ID.String(),
		PatientID:      d.PatientID.String(),
		CreatedAt:      d.CreatedAt,
		OriginalName:   d.OriginalName,
		StorageKey:     d.StorageKey,
		MimeType:       d.MimeType,
		SizeBytes:      d.SizeBytes,
		Description:    d.Description,
		UploadedBy:     d.UploadedBy.String(),
		TextExcerpt:    d.TextExcerpt,
		ExtractionMeta: string(d.ExtractionMeta),
	}
	_, err := s.records(d.PatientID.String()).Doc(documentKeyPrefix + d.ID.String()).Create(ctx, row)
	if err != nil {
		return fmt.Errorf("failed to create document row: %w", err)
	}
	return nil
}

func (s *firestoreStore) findRecord(ctx context.Context, kind string, id uuid.UUID) (*firestore.DocumentSnapshot, error) {
	iter := s.client.CollectionGroup(recordsCollection).
		Where("kind", "==", kind).
		Where("id", "==", id.String()).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()
	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func documentFromRow(row recordRow) *types.Document {
	id, _ := uuid.Parse(row.ID)
	patientID, _ := uuid.Parse(row.PatientID)
	uploadedBy, _ := uuid.Parse(row.UploadedBy)
	var meta datatypes.JSON
	if row.ExtractionMeta != "" {
		meta = datatypes.JSON(row.ExtractionMeta)
	}
	return &types.Document{
		ID:             id,
		PatientID:      patientID,
		OriginalName:   row.OriginalName,
		StorageKey:     row.StorageKey,
		MimeType:       row.MimeType,
		SizeBytes:      row.SizeBytes,
		Description:    row.Description,
		UploadedBy:     uploadedBy,
		TextExcerpt:    row.TextExcerpt,
		ExtractionMeta: meta,
		CreatedAt:      row.CreatedAt,
	}
}

func summaryFromRow(row recordRow) *types.AISummary {
	id, _ := uuid.Parse(row.ID)
	patientID, _ := uuid.Parse(row.PatientID)
	generatedBy, _ := uuid.Parse(row.GeneratedBy)
	return &types.AISummary{
		ID:                id,
		PatientID:         patientID,
		Body:              row.Body,
		GeneratedBy:       generatedBy,
		SourceDocumentIDs: row.SourceDocumentIDs,
		ContentHash:       row.ContentHash,
		CreatedAt:         row.CreatedAt,
	}
}

func (s *firestoreStore) GetDocument(ctx context.Context, id uuid.UUID) (*types.Document, error) {
	snap, err := s.findRecord(ctx, recordKindDocument, id)
	if err != nil {
		return nil, err
	}
	var row recordRow
	if err := snap.DataTo(&row); err != nil {
		return nil, err
	}
	return documentFromRow(row), nil
}

func (s *firestoreStore) ListDocumentsByPatient(ctx context.Context, patientID uuid.UUID) ([]*types.Document, error) {
	iter := s.records(patientID.String()).
		Where("kind", "==", recordKindDocument).
		OrderBy("created_at", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var results []*types.Document
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var row recordRow
		if err := snap.DataTo(&row); err != nil {
			return nil, err
		}
		results = append(results, documentFromRow(row))
	}
	return results, nil
}

func (s *firestoreStore) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	snap, err := s.findRecord(ctx, recordKindDocument, id)
	if err != nil {
		return err
	}
	_, err = snap.Ref.Delete(ctx)
	return err
}

func (s *firestoreStore) CreateSummary(ctx context.Context, sum *types.AISummary) error {
	if sum.ID == uuid.Nil {
		sum.ID = uuid.New()
	}
	if sum.CreatedAt.IsZero() {
		sum.CreatedAt = time.Now()
	}
	row := recordRow{
		Kind:              recordKindSummary,
		ID:                sum.ID.String(),
		PatientID:         sum.PatientID.String(),
		CreatedAt:         sum.CreatedAt,
		Body:              sum.Body,
		GeneratedBy:       sum.GeneratedBy.String(),
		SourceDocumentIDs: sum.SourceDocumentIDs,
		ContentHash:       sum.ContentHash,
	}
	_, err := s.records(sum.PatientID.String()).Doc(summaryKeyPrefix + sum.ID.String()).Create(ctx, row)
	if err != nil {
		return fmt.Errorf("failed to create summary row: %w", err)
	}
	return nil
}

func (s *firestoreStore) GetSummary(ctx context.Context, id uuid.UUID) (*types.AISummary, error) {
	snap, err := s.findRecord(ctx, recordKindSummary, id)
	if err != nil {
		return nil, err
	}
	var row recordRow
	if err := snap.DataTo(&row); err != nil {
		return nil, err
	}
	return summaryFromRow(row), nil
}

func (s *firestoreStore) ListSummariesByPatient(ctx context.Context, patientID uuid.UUID) ([]*types.AISummary, error) {
	iter := s.records(patientID.String()).
		Where("kind", "==", recordKindSummary).
		OrderBy("created_at", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var results []*types.AISummary
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var row recordRow
		if err := snap.DataTo(&row); err != nil {
			return nil, err
		}
		results = append(results, summaryFromRow(row))
	}
	return results, nil
}

func (s *firestoreStore) FindSummaryByContentHash(ctx context.Context, patientID uuid.UUID, hash string) (*types.AISummary, error) {
	iter := s.records(patientID.String()).
		Where("kind", "==", recordKindSummary).
		Where("content_hash", "==", hash).
		OrderBy("created_at", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()
	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var row recordRow
	if err := snap.DataTo(&row); err != nil {
		return nil, err
	}
	return summaryFromRow(row), nil
}
