package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/ciangeneway-dot/Khumalo/internal/clients/gcp"
	"github.com/ciangeneway-dot/Khumalo/internal/clients/openai"
	redisclient "github.com/ciangeneway-dot/Khumalo/internal/clients/redis"
	"github.com/ciangeneway-dot/Khumalo/internal/logger"
	"github.com/ciangeneway-dot/Khumalo/internal/store"
	"github.com/ciangeneway-dot/Khumalo/internal/types"
)

const (
	summaryMaxTokens = 1500

	summarySystemPrompt = "You are a clinical documentation assistant. " +
		"Produce a clinically accurate, bullet-pointed summary of the patient's " +
		"record from the provided documents. Do not invent findings that are " +
		"not present in the text."

	textUnavailable = "(text unavailable)"
)

// SummaryGenerator builds an AI summary over a patient's current document
// set. When the remote endpoint is configured it drives the summary; any
// remote failure degrades silently to a deterministic local rendering, so
// Generate only errors on storage problems. Every call appends a new
// AISummary row.
type SummaryGenerator interface {
	Generate(ctx context.Context, patientID, generatedBy uuid.UUID) (*types.AISummary, error)
}

type summaryGenerator struct {
	log       *logger.Logger
	store     store.Store
	bucket    gcp.BucketService
	extractor ContentExtractor
	remote    openai.SummarizeClient
	cache     redisclient.SummaryCache
}

// NewSummaryGenerator accepts nil for bucket and cache: without a bucket,
// documents with no stored excerpt are summarized as unavailable; without a
// cache, every miss goes to the durable rows and then the remote endpoint.
func NewSummaryGenerator(st store.Store, bucket gcp.BucketService, extractor ContentExtractor, remote openai.SummarizeClient, cache redisclient.SummaryCache, baseLog *logger.Logger) SummaryGenerator {
	return &summaryGenerator{
		log:       baseLog.With("service", "SummaryGenerator"),
		store:     st,
		bucket:    bucket,
		extractor: extractor,
		remote:    remote,
		cache:     cache,
	}
}

func (sg *summaryGenerator) Generate(ctx context.Context, patientID, generatedBy uuid.UUID) (*types.AISummary, error) {
	patient, err := sg.store.GetPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("patient lookup: %w", err)
	}
	docs, err := sg.store.ListDocumentsByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("document listing: %w", err)
	}

	hash := contentHash(patient, docs)

	if body, ok := sg.lookupByHash(ctx, patientID, hash); ok {
		return sg.persist(ctx, patient, docs, generatedBy, hash, body)
	}

	body := ""
	if sg.remote != nil && sg.remote.Configured() {
		prompt := sg.buildPrompt(ctx, patient, docs)
		completed, err := sg.remote.Complete(ctx, summarySystemPrompt, prompt, summaryMaxTokens)
		if err != nil {
			sg.log.Warn("remote summarization failed, using local fallback",
				"patient_id", patientID.String(), "error", err)
		} else {
			body = strings.TrimSpace(completed)
		}
	}
	if body == "" {
		body = renderLocalSummary(patient, docs)
	}

	return sg.persist(ctx, patient, docs, generatedBy, hash, body)
}

// lookupByHash checks the cache first, then the durable rows, for a summary
// of identical patient+document state.
func (sg *summaryGenerator) lookupByHash(ctx context.Context, patientID uuid.UUID, hash string) (string, bool) {
	if sg.cache != nil {
		if body, ok := sg.cache.Get(ctx, hash); ok {
			sg.log.Debug("summary cache hit", "patient_id", patientID.String())
			return body, true
		}
	}
	prior, err := sg.store.FindSummaryByContentHash(ctx, patientID, hash)
	if err == nil {
		return prior.Body, true
	}
	if err != store.ErrNotFound {
		sg.log.Warn("content hash lookup failed", "patient_id", patientID.String(), "error", err)
	}
	return "", false
}

func (sg *summaryGenerator) persist(ctx context.Context, patient *types.Patient, docs []*types.Document, generatedBy uuid.UUID, hash, body string) (*types.AISummary, error) {
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID.String())
	}
	sum := &types.AISummary{
		PatientID:         patient.ID,
		Body:              body,
		GeneratedBy:       generatedBy,
		SourceDocumentIDs: strings.Join(ids, ","),
		ContentHash:       hash,
	}
	if err := sg.store.CreateSummary(ctx, sum); err != nil {
		return nil, fmt.Errorf("summary write: %w", err)
	}
	if sg.cache != nil {
		sg.cache.Set(ctx, hash, body)
	}
	return sum, nil
}

// buildPrompt assembles the remote request body: a patient header followed
// by one section per document, newest first. Document text comes from the
// stored excerpt when present, else from the blob.
func (sg *summaryGenerator) buildPrompt(ctx context.Context, patient *types.Patient, docs []*types.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Patient: %s\n", patient.FullName())
	fmt.Fprintf(&b, "Medical record number: %s\n", patient.MedicalRecordNumber)
	if !patient.DateOfBirth.IsZero() {
		fmt.Fprintf(&b, "Date of birth: %s\n", patient.DateOfBirth.Format("2006-01-02"))
	}
	fmt.Fprintf(&b, "\nDocuments (%d, newest first):\n", len(docs))
	for i, d := range docs {
		fmt.Fprintf(&b, "\n--- Document %d: %s (%s, uploaded %s) ---\n",
			i+1, d.OriginalName, FormatFromMime(d.MimeType), d.CreatedAt.Format("2006-01-02"))
		if d.Description != "" {
			fmt.Fprintf(&b, "Description: %s\n", d.Description)
		}
		b.WriteString(sg.documentText(ctx, d))
		b.WriteString("\n")
	}
	return b.String()
}

func (sg *summaryGenerator) documentText(ctx context.Context, d *types.Document) string {
	if d.TextExcerpt != "" {
		return d.TextExcerpt
	}
	if sg.bucket == nil || sg.extractor == nil {
		return textUnavailable
	}
	rc, err := sg.bucket.DownloadFile(ctx, d.StorageKey)
	if err != nil {
		sg.log.Warn("blob download failed", "key", d.StorageKey, "error", err)
		return textUnavailable
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		sg.log.Warn("blob read failed", "key", d.StorageKey, "error", err)
		return textUnavailable
	}
	processed, err := sg.extractor.Extract(ctx, types.IncomingFile{
		Name:      d.OriginalName,
		MimeType:  d.MimeType,
		SizeBytes: d.SizeBytes,
		Data:      data,
	})
	if err != nil {
		sg.log.Warn("late extraction failed", "key", d.StorageKey, "error", err)
		return textUnavailable
	}
	return truncateRunes(processed.Text, excerptRunes)
}

// renderLocalSummary is the deterministic fallback used whenever the remote
// endpoint is unconfigured or failing. Same patient state, same output.
func renderLocalSummary(patient *types.Patient, docs []*types.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Patient Summary: %s\n", patient.FullName())
	fmt.Fprintf(&b, "Medical Record Number: %s\n", patient.MedicalRecordNumber)
	if !patient.DateOfBirth.IsZero() {
		fmt.Fprintf(&b, "Date of Birth: %s\n", patient.DateOfBirth.Format("2006-01-02"))
	}

	fmt.Fprintf(&b, "\nDocuments Overview\n")
	fmt.Fprintf(&b, "Total documents: %d\n", len(docs))

	byFormat := map[string]int{}
	order := []string{}
	for _, d := range docs {
		label := FormatFromMime(d.MimeType).String()
		if _, seen := byFormat[label]; !seen {
			order = append(order, label)
		}
		byFormat[label]++
	}
	for _, label := range order {
		fmt.Fprintf(&b, "- %s: %d\n", label, byFormat[label])
	}

	if len(docs) > 0 {
		b.WriteString("\n")
	}
	for _, d := range docs {
		fmt.Fprintf(&b, "* %s (%s, %s, uploaded %s)\n",
			d.OriginalName, FormatFromMime(d.MimeType), humanBytes(d.SizeBytes),
			d.CreatedAt.Format("2006-01-02"))
		if d.Description != "" {
			fmt.Fprintf(&b, "  %s\n", d.Description)
		}
	}

	b.WriteString("\nThis overview was generated without AI assistance. ")
	b.WriteString("Review the documents directly for clinical details.\n")
	return b.String()
}

// contentHash fingerprints the patient fields and the identity of every
// current document. Any change to either produces a different hash.
func contentHash(patient *types.Patient, docs []*types.Document) string {
	h := sha256.New()
	fmt.Fprintf(h, "patient|%s|%s|%s|%s\n",
		patient.ID, patient.FullName(), patient.MedicalRecordNumber,
		patient.DateOfBirth.Format("2006-01-02"))
	for _, d := range docs {
		fmt.Fprintf(h, "document|%s|%s|%d\n", d.ID, d.StorageKey, d.SizeBytes)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func humanBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
