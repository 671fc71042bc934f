package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ciangeneway-dot/Khumalo/internal/types"
)

// memoryStore keeps everything in maps behind a mutex. Used for tests and
// local development (USE_MEMORY_STORE=true); behaves like the relational
// variant, including patient deletion.
type memoryStore struct {
	mu        sync.RWMutex
	patients  map[uuid.UUID]*types.Patient
	documents map[uuid.UUID]*types.Document
	summaries map[uuid.UUID]*types.AISummary
}

func NewMemoryStore() Store {
	return &memoryStore{
		patients:  make(map[uuid.UUID]*types.Patient),
		documents: make(map[uuid.UUID]*types.Document),
		summaries: make(map[uuid.UUID]*types.AISummary),
	}
}

func (s *memoryStore) CreatePatient(ctx context.Context, p *types.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.patients {
		if existing.MedicalRecordNumber == p.MedicalRecordNumber {
			return ErrMRNConflict
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	p.UpdatedAt = p.CreatedAt
	cp := *p
	s.patients[p.ID] = &cp
	return nil
}

func (s *memoryStore) GetPatient(ctx context.Context, id uuid.UUID) (*types.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memoryStore) GetPatientByMRN(ctx context.Context, mrn string) (*types.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.patients {
		if p.MedicalRecordNumber == mrn {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memoryStore) ListPatients(ctx context.Context) ([]*types.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]*types.Patient, 0, len(s.patients))
	for _, p := range s.patients {
		cp := *p
		results = append(results, &cp)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	return results, nil
}

func (s *memoryStore) UpdatePatient(ctx context.Context, p *types.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.patients[p.ID]
	if !ok {
		return ErrNotFound
	}
	for id, other := range s.patients {
		if id != p.ID && other.MedicalRecordNumber == p.MedicalRecordNumber {
			return ErrMRNConflict
		}
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now()
	cp := *p
	s.patients[p.ID] = &cp
	return nil
}

func (s *memoryStore) DeletePatient(ctx context.Context, id, requestedBy uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patients[id]
	if !ok {
		return ErrNotFound
	}
	if p.CreatedBy != requestedBy {
		return ErrForbidden
	}
	delete(s.patients, id)
	for docID, d := range s.documents {
		if d.PatientID == id {
			delete(s.documents, docID)
		}
	}
	return nil
}

func (s *memoryStore) CreateDocument(ctx context.Context, d *types.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	cp := *d
	s.documents[d.ID] = &cp
	return nil
}

func (s *memoryStore) GetDocument(ctx context.Context, id uuid.UUID) (*types.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.documents[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *memoryStore) ListDocumentsByPatient(ctx context.Context, patientID uuid.UUID) ([]*types.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var results []*types.Document
	for _, d := range s.documents {
		if d.PatientID == patientID {
			cp := *d
			results = append(results, &cp)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	return results, nil
}

func (s *memoryStore) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return ErrNotFound
	}
	delete(s.documents, id)
	return nil
}

func (s *memoryStore) CreateSummary(ctx context.Context, sum *types.AISummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sum.ID == uuid.Nil {
		sum.ID = uuid.New()
	}
	if sum.CreatedAt.IsZero() {
		sum.CreatedAt = time.Now()
	}
	cp := *sum
	s.summaries[sum.ID] = &cp
	return nil
}

func (s *memoryStore) GetSummary(ctx context.Context, id uuid.UUID) (*types.AISummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum, ok := s.summaries[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sum
	return &cp, nil
}

func (s *memoryStore) ListSummariesByPatient(ctx context.Context, patientID uuid.UUID) ([]*types.AISummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var results []*types.AISummary
	for _, sum := range s.summaries {
		if sum.PatientID == patientID {
			cp := *sum
			results = append(results, &cp)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	return results, nil
}

func (s *memoryStore) FindSummaryByContentHash(ctx context.Context, patientID uuid.UUID, hash string) (*types.AISummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *types.AISummary
	for _, sum := range s.summaries {
		if sum.PatientID == patientID && sum.ContentHash == hash {
			if best == nil || sum.CreatedAt.After(best.CreatedAt) {
				best = sum
			}
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	cp := *best
	return &cp, nil
}
