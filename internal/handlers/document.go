package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ciangeneway-dot/Khumalo/internal/logger"
	"github.com/ciangeneway-dot/Khumalo/internal/requestdata"
	"github.com/ciangeneway-dot/Khumalo/internal/services"
	"github.com/ciangeneway-dot/Khumalo/internal/types"
)

type DocumentHandler struct {
	log         *logger.Logger
	cfg         services.UploadConfig
	documents   services.DocumentService
	coordinator services.BatchUploadCoordinator
}

func NewDocumentHandler(log *logger.Logger, cfg services.UploadConfig, documents services.DocumentService, coordinator services.BatchUploadCoordinator) *DocumentHandler {
	return &DocumentHandler{
		log:         log.With("Handler", "DocumentHandler"),
		cfg:         cfg,
		documents:   documents,
		coordinator: coordinator,
	}
}

type batchUploadResponse struct {
	Total     int                      `json:"total"`
	Succeeded int                      `json:"succeeded"`
	Failed    int                      `json:"failed"`
	Results   *types.BatchUploadResult `json:"results"`
}

// UploadBatch accepts a multipart form with one or more "files" parts and an
// optional "description" value applied to every file in the batch.
func (dh *DocumentHandler) UploadBatch(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	parts := form.File["files"]
	if len(parts) == 0 {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("no files in request"))
		return
	}
	description := c.PostForm("description")

	files, err := buildIncomingFiles(parts, description, dh.cfg.MaxFileSizeBytes)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	onProgress := func(processed, total int) {
		dh.log.Debug("batch progress", "patient_id", patientID.String(), "processed", processed, "total", total)
	}
	batch, err := dh.coordinator.UploadBatch(c.Request.Context(), patientID, rd.UserID, files, onProgress)
	if err != nil {
		RespondStoreError(c, err)
		return
	}
	RespondOK(c, batchUploadResponse{
		Total:     len(files),
		Succeeded: len(batch.Successful),
		Failed:    len(batch.Failed),
		Results:   batch,
	})
}

func (dh *DocumentHandler) ListByPatient(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	docs, err := dh.documents.ListByPatient(c.Request.Context(), patientID)
	if err != nil {
		RespondStoreError(c, err)
		return
	}
	RespondOK(c, docs)
}

func (dh *DocumentHandler) SignedURL(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	url, err := dh.documents.SignedURL(c.Request.Context(), id)
	if err != nil {
		RespondStoreError(c, err)
		return
	}
	RespondOK(c, gin.H{"url": url})
}

func (dh *DocumentHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := dh.documents.Delete(c.Request.Context(), id); err != nil {
		RespondStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// buildIncomingFiles materializes multipart parts for the coordinator.
// Parts over maxBytes keep their metadata but are never read into memory;
// the validator rejects them per-file from SizeBytes alone.
func buildIncomingFiles(parts []*multipart.FileHeader, description string, maxBytes int64) ([]types.IncomingFile, error) {
	files := make([]types.IncomingFile, 0, len(parts))
	for _, part := range parts {
		f := types.IncomingFile{
			Name:        part.Filename,
			MimeType:    part.Header.Get("Content-Type"),
			SizeBytes:   part.Size,
			Description: description,
		}
		if part.Size <= maxBytes {
			data, err := readPart(part)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", part.Filename, err)
			}
			f.Data = data
		}
		files = append(files, f)
	}
	return files, nil
}

func readPart(part *multipart.FileHeader) ([]byte, error) {
	f, err := part.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
