package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ciangeneway-dot/Khumalo/internal/clients/gcp"
	"github.com/ciangeneway-dot/Khumalo/internal/logger"
	"github.com/ciangeneway-dot/Khumalo/internal/store"
	"github.com/ciangeneway-dot/Khumalo/internal/types"
)

type DocumentService interface {
	Get(ctx context.Context, id uuid.UUID) (*types.Document, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*types.Document, error)
	// SignedURL returns a time-limited read URL for the document's blob.
	SignedURL(ctx context.Context, id uuid.UUID) (string, error)
	// Delete removes the blob first, then the row. A missing blob is logged
	// and ignored so a half-deleted document can still be cleaned up.
	Delete(ctx context.Context, id uuid.UUID) error
}

type documentService struct {
	log    *logger.Logger
	cfg    UploadConfig
	store  store.Store
	bucket gcp.BucketService
}

func NewDocumentService(cfg UploadConfig, st store.Store, bucket gcp.BucketService, baseLog *logger.Logger) DocumentService {
	return &documentService{
		log:    baseLog.With("service", "DocumentService"),
		cfg:    cfg,
		store:  st,
		bucket: bucket,
	}
}

func (ds *documentService) Get(ctx context.Context, id uuid.UUID) (*types.Document, error) {
	return ds.store.GetDocument(ctx, id)
}

func (ds *documentService) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*types.Document, error) {
	return ds.store.ListDocumentsByPatient(ctx, patientID)
}

func (ds *documentService) SignedURL(ctx context.Context, id uuid.UUID) (string, error) {
	doc, err := ds.store.GetDocument(ctx, id)
	if err != nil {
		return "", err
	}
	if ds.bucket == nil {
		return "", fmt.Errorf("blob storage not configured")
	}
	url, err := ds.bucket.SignedReadURL(doc.StorageKey, ds.cfg.SignedURLExpiry)
	if err != nil {
		return "", fmt.Errorf("signing read URL: %w", err)
	}
	return url, nil
}

func (ds *documentService) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := ds.store.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if ds.bucket != nil {
		if err := ds.bucket.DeleteFile(ctx, doc.StorageKey); err != nil {
			ds.log.Warn("blob delete failed", "key", doc.StorageKey, "error", err)
		}
	}
	if err := ds.store.DeleteDocument(ctx, id); err != nil {
		return err
	}
	ds.log.Info("document deleted", "document_id", id.String(), "key", doc.StorageKey)
	return nil
}
