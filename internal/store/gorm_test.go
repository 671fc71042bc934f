package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ciangeneway-dot/Khumalo/internal/db"
	"github.com/ciangeneway-dot/Khumalo/internal/logger"
	"github.com/ciangeneway-dot/Khumalo/internal/types"
)

func newSqliteStore(t *testing.T) (Store, *gorm.DB) {
	t.Helper()
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "store_test.db"))

	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	svc, err := db.NewPostgresService(log)
	if err != nil {
		t.Fatalf("NewPostgresService: %v", err)
	}
	if err := svc.AutoMigrateAll(); err != nil {
		t.Fatalf("AutoMigrateAll: %v", err)
	}
	return NewGormStore(svc.DB(), log), svc.DB()
}

func TestGormPatientCRUD(t *testing.T) {
	st, _ := newSqliteStore(t)
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

func TestGormMRNConflict(t *testing.T) {
	st, _ := newSqliteStore(t)
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

// A concurrent create can slip past the MRN existence check; the unique
// index then has to surface as ErrMRNConflict, which requires the dialect
// error to translate into gorm.ErrDuplicatedKey.
func TestGormDuplicateKeyTranslated(t *testing.T) {
	st, gdb := newSqliteStore(t)
	ctx := context.Background()
	creator := uuid.New()

	if err := st.CreatePatient(ctx, newPatient("MRN-1", creator)); err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}

	raw := newPatient("MRN-1", creator)
	raw.ID = uuid.New()
	err := gdb.Create(raw).Error
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("raw duplicate insert: want gorm.ErrDuplicatedKey, got %v", err)
	}
}

func TestGormDeletePatientCreatorOnly(t *testing.T) {
	st, _ := newSqliteStore(t)
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

func TestGormDeleteDocumentNotFound(t *testing.T) {
	st, _ := newSqliteStore(t)
	if err := st.DeleteDocument(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestGormDocumentsNewestFirst(t *testing.T) {
	st, _ := newSqliteStore(t)
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
