package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ciangeneway-dot/Khumalo/internal/types"
)

func newPatient(mrn string, createdBy uuid.UUID) *types.Patient {
	return &types.Patient{
		FirstName:           "Jane",
		LastName:            "Doe",
		MedicalRecordNumber: mrn,
		CreatedBy:           createdBy,
	}
}

func TestMemoryPatientCRUD(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	creator := uuid.New()

	p := newPatient("MRN-1", creator)
	if err := st.CreatePatient(ctx, p); err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Fatal("CreatePatient must assign an id")
	}

	got, err := st.GetPatient(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPatient: %v", err)
	}
	if got.MedicalRecordNumber != "MRN-1" {
		t.Fatalf("unexpected patient: %+v", got)
	}

	byMRN, err := st.GetPatientByMRN(ctx, "MRN-1")
	if err != nil || byMRN.ID != p.ID {
		t.Fatalf("GetPatientByMRN: %v, %+v", err, byMRN)
	}

	got.FirstName = "Janet"
	if err := st.UpdatePatient(ctx, got); err != nil {
		t.Fatalf("UpdatePatient: %v", err)
	}
	updated, _ := st.GetPatient(ctx, p.ID)
	if updated.FirstName != "Janet" {
		t.Fatalf("update not applied: %+v", updated)
	}

	if _, err := st.GetPatient(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestMemoryMRNConflict(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	creator := uuid.New()

	if err := st.CreatePatient(ctx, newPatient("MRN-1", creator)); err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}
	err := st.CreatePatient(ctx, newPatient("MRN-1", creator))
	if !errors.Is(err, ErrMRNConflict) {
		t.Fatalf("duplicate create: want ErrMRNConflict, got %v", err)
	}

	other := newPatient("MRN-2", creator)
	if err := st.CreatePatient(ctx, other); err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}
	other.MedicalRecordNumber = "MRN-1"
	if err := st.UpdatePatient(ctx, other); !errors.Is(err, ErrMRNConflict) {
		t.Fatalf("conflicting update: want ErrMRNConflict, got %v", err)
	}
}

func TestMemoryDeletePatientCreatorOnly(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	creator := uuid.New()

	p := newPatient("MRN-1", creator)
	if err := st.CreatePatient(ctx, p); err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}
	doc := &types.Document{PatientID: p.ID, OriginalName: "a.txt", StorageKey: "k"}
	if err := st.CreateDocument(ctx, doc); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	if err := st.DeletePatient(ctx, p.ID, uuid.New()); !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-creator delete: want ErrForbidden, got %v", err)
	}
	if err := st.DeletePatient(ctx, p.ID, creator); err != nil {
		t.Fatalf("creator delete: %v", err)
	}
	if _, err := st.GetPatient(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("patient should be gone, got %v", err)
	}
	if _, err := st.GetDocument(ctx, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("documents should cascade, got %v", err)
	}
}

func TestMemoryDocumentsNewestFirst(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	p := newPatient("MRN-1", uuid.New())
	if err := st.CreatePatient(ctx, p); err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}

	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	names := []string{"oldest.txt", "middle.txt", "newest.txt"}
	for i, name := range names {
		d := &types.Document{
			PatientID:    p.ID,
			OriginalName: name,
			StorageKey:   name,
			CreatedAt:    base.Add(time.Duration(i) * time.Hour),
		}
		if err := st.CreateDocument(ctx, d); err != nil {
			t.Fatalf("CreateDocument: %v", err)
		}
	}

	docs, err := st.ListDocumentsByPatient(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListDocumentsByPatient: %v", err)
	}
	wantOrder := []string{"newest.txt", "middle.txt", "oldest.txt"}
	for i, want := range wantOrder {
		if docs[i].OriginalName != want {
			t.Fatalf("position %d = %s, want %s", i, docs[i].OriginalName, want)
		}
	}
}

func TestMemoryFindSummaryByContentHash(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	p := newPatient("MRN-1", uuid.New())
	if err := st.CreatePatient(ctx, p); err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}

	old := &types.AISummary{PatientID: p.ID, Body: "v1", ContentHash: "h1",
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	newer := &types.AISummary{PatientID: p.ID, Body: "v2", ContentHash: "h1",
		CreatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)}
	for _, s := range []*types.AISummary{old, newer} {
		if err := st.CreateSummary(ctx, s); err != nil {
			t.Fatalf("CreateSummary: %v", err)
		}
	}

	got, err := st.FindSummaryByContentHash(ctx, p.ID, "h1")
	if err != nil {
		t.Fatalf("FindSummaryByContentHash: %v", err)
	}
	if got.Body != "v2" {
		t.Fatalf("want most recent match, got %q", got.Body)
	}

	if _, err := st.FindSummaryByContentHash(ctx, p.ID, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if _, err := st.FindSummaryByContentHash(ctx, uuid.New(), "h1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("hash lookup must be scoped to the patient, got %v", err)
	}
}
