package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/ciangeneway-dot/Khumalo/internal/clients/gcp"
	"github.com/ciangeneway-dot/Khumalo/internal/logger"
	"github.com/ciangeneway-dot/Khumalo/internal/store"
	"github.com/ciangeneway-dot/Khumalo/internal/types"
)

const excerptRunes = 1000

// ProgressFunc receives the cumulative number of files processed so far and
// the batch total. It is called once per completed group, from the
// coordinating goroutine, so implementations need no locking.
type ProgressFunc func(processed, total int)

// BatchUploadCoordinator uploads a batch of files for one patient. Files are
// processed in fixed-size groups, concurrently within a group, with a short
// pause between groups so the blob store is not hammered. One file failing
// never aborts the batch.
type BatchUploadCoordinator interface {
	UploadBatch(ctx context.Context, patientID, uploadedBy uuid.UUID, files []types.IncomingFile, onProgress ProgressFunc) (*types.BatchUploadResult, error)
}

type batchUploadCoordinator struct {
	log       *logger.Logger
	cfg       UploadConfig
	validator *Validator
	extractor ContentExtractor
	bucket    gcp.BucketService
	store     store.Store
}

func NewBatchUploadCoordinator(cfg UploadConfig, validator *Validator, extractor ContentExtractor, bucket gcp.BucketService, st store.Store, baseLog *logger.Logger) (BatchUploadCoordinator, error) {
	if bucket == nil {
		return nil, fmt.Errorf("batch upload requires a configured bucket service")
	}
	return &batchUploadCoordinator{
		log:       baseLog.With("service", "BatchUploadCoordinator"),
		cfg:       cfg,
		validator: validator,
		extractor: extractor,
		bucket:    bucket,
		store:     st,
	}, nil
}

func (co *batchUploadCoordinator) UploadBatch(ctx context.Context, patientID, uploadedBy uuid.UUID, files []types.IncomingFile, onProgress ProgressFunc) (*types.BatchUploadResult, error) {
	total := len(files)
	if total == 0 {
		return &types.BatchUploadResult{}, nil
	}
	if _, err := co.store.GetPatient(ctx, patientID); err != nil {
		return nil, fmt.Errorf("patient lookup: %w", err)
	}

	groupSize := co.cfg.GroupSize
	if groupSize <= 0 {
		groupSize = 1
	}

	co.log.Info("starting batch upload",
		"patient_id", patientID.String(), "files", total, "group_size", groupSize)

	results := make([]types.UploadResult, total)
	for start := 0; start < total; start += groupSize {
		end := min(start+groupSize, total)

		// Workers always return nil: a file failure is data, not a reason to
		// cancel its siblings.
		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				results[i] = co.processOne(gctx, patientID, uploadedBy, i, files[i])
				return nil
			})
		}
		_ = g.Wait()

		if onProgress != nil {
			onProgress(end, total)
		}

		if end < total && co.cfg.GroupDelay > 0 {
			select {
			case <-ctx.Done():
				for i := end; i < total; i++ {
					results[i] = types.UploadResult{Index: i, FileName: files[i].Name, Error: ctx.Err().Error()}
				}
				return splitResults(results), ctx.Err()
			case <-time.After(co.cfg.GroupDelay):
			}
		}
	}

	batch := splitResults(results)
	co.log.Info("batch upload finished",
		"patient_id", patientID.String(),
		"succeeded", len(batch.Successful), "failed", len(batch.Failed))
	return batch, nil
}

func (co *batchUploadCoordinator) processOne(ctx context.Context, patientID, uploadedBy uuid.UUID, idx int, f types.IncomingFile) types.UploadResult {
	res := types.UploadResult{Index: idx, FileName: f.Name}

	if err := co.validator.Validate(f); err != nil {
		res.Error = err.Error()
		return res
	}

	key := storageKey(patientID, f.Name)
	meta := map[string]string{
		"patient_id":    patientID.String(),
		"original_name": f.Name,
		"uploaded_at":   time.Now().UTC().Format(time.RFC3339),
	}
	if f.Description != "" {
		meta["description"] = f.Description
	}
	if err := co.bucket.UploadFile(ctx, key, bytes.NewReader(f.Data), f.MimeType, meta); err != nil {
		co.log.Warn("blob upload failed", "file", f.Name, "key", key, "error", err)
		res.Error = fmt.Sprintf("upload failed: %v", err)
		return res
	}

	// Extraction is best effort once the blob landed: a document whose text
	// cannot be read is still worth keeping.
	var excerpt string
	var extraction []byte
	if processed, err := co.extractor.Extract(ctx, f); err != nil {
		co.log.Warn("text extraction failed", "file", f.Name, "error", err)
		res.Warnings = append(res.Warnings, fmt.Sprintf("text extraction failed: %v", err))
	} else {
		report := CheckMedicalRelevance(processed.Text)
		res.Warnings = append(res.Warnings, report.Warnings...)
		excerpt = truncateRunes(processed.Text, excerptRunes)
		extraction, _ = json.Marshal(types.ExtractionMetadata{
			WordCount:     processed.WordCount,
			PageCount:     processed.PageCount,
			OCRConfidence: processed.OCRConfidence,
			Language:      processed.Language,
		})
	}

	doc := &types.Document{
		PatientID:      patientID,
		OriginalName:   f.Name,
		StorageKey:     key,
		MimeType:       f.MimeType,
		SizeBytes:      f.SizeBytes,
		Description:    f.Description,
		UploadedBy:     uploadedBy,
		TextExcerpt:    excerpt,
		ExtractionMeta: datatypes.JSON(extraction),
	}
	if err := co.store.CreateDocument(ctx, doc); err != nil {
		co.log.Error("document row write failed", "file", f.Name, "key", key, "error", err)
		if delErr := co.bucket.DeleteFile(ctx, key); delErr != nil {
			co.log.Warn("orphaned blob cleanup failed", "key", key, "error", delErr)
		}
		res.Error = fmt.Sprintf("record write failed: %v", err)
		return res
	}

	res.Success = true
	res.StorageKey = key
	res.DocumentID = doc.ID
	return res
}

func splitResults(results []types.UploadResult) *types.BatchUploadResult {
	out := &types.BatchUploadResult{}
	for _, r := range results {
		if r.Success {
			out.Successful = append(out.Successful, r)
		} else {
			out.Failed = append(out.Failed, r)
		}
	}
	return out
}

// storageKey builds "{patientID}/{unixMillis}-{sanitizedName}". The
// timestamp prefix keeps re-uploads of the same file name from colliding.
func storageKey(patientID uuid.UUID, name string) string {
	return fmt.Sprintf("%s/%d-%s", patientID, time.Now().UnixMilli(), sanitizeFileName(name))
}

func sanitizeFileName(name string) string {
	base := filepath.Base(name)
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
