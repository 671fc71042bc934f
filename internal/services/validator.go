package services

import (
	"errors"
	"fmt"

	"github.com/ciangeneway-dot/Khumalo/internal/logger"
	"github.com/ciangeneway-dot/Khumalo/internal/types"
)

var (
	// ErrFileTooLarge rejects a file before it enters the pipeline.
	ErrFileTooLarge = errors.New("file too large")
	// ErrUnsupportedType rejects a declared MIME type outside the allow-list.
	ErrUnsupportedType = errors.New("unsupported type")
	// ErrOCRDisabled fails image extraction when OCR is switched off.
	ErrOCRDisabled = errors.New("OCR required but disabled")
)

// Validator gates files on size and declared content type. Rejection is
// final for that file and has no effect on its batch siblings.
type Validator struct {
	log *logger.Logger
	cfg UploadConfig
}

func NewValidator(cfg UploadConfig, baseLog *logger.Logger) *Validator {
	return &Validator{
		log: baseLog.With("service", "Validator"),
		cfg: cfg,
	}
}

func (v *Validator) Validate(f types.IncomingFile) error {
	if f.SizeBytes > v.cfg.MaxFileSizeBytes {
		return fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrFileTooLarge, f.Name, f.SizeBytes, v.cfg.MaxFileSizeBytes)
	}
	for _, mt := range v.cfg.AllowedMimeTypes {
		if mt == f.MimeType {
			return nil
		}
	}
	return fmt.Errorf("%w: %s declares %q", ErrUnsupportedType, f.Name, f.MimeType)
}
