package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/ciangeneway-dot/Khumalo/internal/logger"
	"github.com/ciangeneway-dot/Khumalo/internal/utils"
)

// Vision wraps GCP Vision document text detection for scanned images.
type Vision interface {
	OCRImageBytes(ctx context.Context, img []byte, mimeType string, languageHint string) (*OCRResult, error)
	Close() error
}

type OCRResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"` // normalized to [0,1]
	Language   string  `json:"language,omitempty"`
	Pages      int     `json:"pages"`
}

type visionService struct {
	log          *logger.Logger
	visionClient *vision.ImageAnnotatorClient
	timeout      time.Duration
}

func NewVision(log *logger.Logger) (Vision, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	slog := log.With("service", "gcp.Vision")

	timeoutSec := utils.GetEnvAsInt("OCR_TIMEOUT_SECONDS", 60, log)

	ctx := context.Background()
	opts := ClientOptionsFromEnv()
	vClient, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}

	return &visionService{
		log:          slog,
		visionClient: vClient,
		timeout:      time.Duration(timeoutSec) * time.Second,
	}, nil
}

func (s *visionService) Close() error {
	if s == nil || s.visionClient == nil {
		return nil
	}
	return s.visionClient.Close()
}

func (s *visionService) OCRImageBytes(ctx context.Context, img []byte, mimeType string, languageHint string) (*OCRResult, error) {
	if len(img) == 0 {
		return &OCRResult{}, nil
	}

	// A stuck OCR call must not hang the whole batch.
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := &visionpb.AnnotateImageRequest{
		Image: &visionpb.Image{Content: img},
		Features: []*visionpb.Feature{
			{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
		},
	}
	if languageHint != "" {
		req.ImageContext = &visionpb.ImageContext{LanguageHints: []string{languageHint}}
	}

	br := &visionpb.BatchAnnotateImagesRequest{Requests: []*visionpb.AnnotateImageRequest{req}}
	resp, err := s.visionClient.BatchAnnotateImages(ctx, br)
	if err != nil {
		return nil, fmt.Errorf("vision BatchAnnotateImages: %w", err)
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return &OCRResult{}, nil
	}

	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return nil, fmt.Errorf("vision annotate error: %s", r0.Error.Message)
	}

	fta := r0.FullTextAnnotation
	if fta == nil || strings.TrimSpace(fta.Text) == "" {
		return &OCRResult{}, nil
	}

	out := &OCRResult{
		Text:       collapseWhitespace(fta.Text),
		Confidence: pageConfidence(fta.Pages),
		Language:   detectedLanguage(fta.Pages),
		Pages:      len(fta.Pages),
	}
	if out.Pages == 0 {
		out.Pages = 1
	}
	return out, nil
}

// pageConfidence averages block confidences across all pages and clamps the
// result into [0,1].
func pageConfidence(pages []*visionpb.Page) float64 {
	var sum float64
	var n int
	for _, pg := range pages {
		if pg == nil {
			continue
		}
		for _, b := range pg.Blocks {
			if b == nil {
				continue
			}
			sum += float64(b.Confidence)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	conf := sum / float64(n)
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	return conf
}

func detectedLanguage(pages []*visionpb.Page) string {
	for _, pg := range pages {
		if pg == nil || pg.Property == nil {
			continue
		}
		for _, dl := range pg.Property.DetectedLanguages {
			if dl != nil && dl.LanguageCode != "" {
				return dl.LanguageCode
			}
		}
	}
	return ""
}
