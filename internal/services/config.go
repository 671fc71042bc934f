package services

import (
	"strings"
	"time"

	"github.com/ciangeneway-dot/Khumalo/internal/logger"
	"github.com/ciangeneway-dot/Khumalo/internal/utils"
)

const defaultMaxFileSizeBytes = 50 * 1024 * 1024 // 50 MiB

var defaultAllowedMimeTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"text/plain",
	"image/jpeg",
	"image/png",
	"image/tiff",
	"image/bmp",
}

// UploadConfig carries the knobs of the upload pipeline. The inter-group
// delay is the explicit rate-limit control for the storage service; set it
// to zero to disable pacing.
type UploadConfig struct {
	MaxFileSizeBytes int64
	AllowedMimeTypes []string
	OCREnabled       bool
	OCRLanguage      string
	GroupSize        int
	GroupDelay       time.Duration
	SignedURLExpiry  time.Duration
}

func LoadUploadConfig(log *logger.Logger) UploadConfig {
	maxSize := utils.GetEnvAsInt64("UPLOAD_MAX_FILE_SIZE_BYTES", defaultMaxFileSizeBytes, log)

	allowed := defaultAllowedMimeTypes
	if raw := utils.GetEnv("UPLOAD_ALLOWED_MIME_TYPES", "", log); raw != "" {
		allowed = nil
		for _, mt := range strings.Split(raw, ",") {
			if mt = strings.TrimSpace(mt); mt != "" {
				allowed = append(allowed, mt)
			}
		}
	}

	ocrEnabled := utils.GetEnvAsBool("OCR_ENABLED", true, log)
	ocrLanguage := utils.GetEnv("OCR_LANGUAGE", "en", log)

	groupSize := utils.GetEnvAsInt("UPLOAD_GROUP_SIZE", 5, log)
	if groupSize < 1 {
		groupSize = 1
	}
	groupDelayMs := utils.GetEnvAsInt("UPLOAD_GROUP_DELAY_MS", 100, log)

	expiryMin := utils.GetEnvAsInt("SIGNED_URL_EXPIRY_MINUTES", 60, log)

	return UploadConfig{
		MaxFileSizeBytes: maxSize,
		AllowedMimeTypes: allowed,
		OCREnabled:       ocrEnabled,
		OCRLanguage:      ocrLanguage,
		GroupSize:        groupSize,
		GroupDelay:       time.Duration(groupDelayMs) * time.Millisecond,
		SignedURLExpiry:  time.Duration(expiryMin) * time.Minute,
	}
}
