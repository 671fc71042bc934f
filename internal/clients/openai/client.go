package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ciangeneway-dot/Khumalo/internal/logger"
)

// SummarizeClient is the remote summarization endpoint boundary. The service
// is addressed Azure-style: base endpoint + deployment name + api key; all
// three must be present for the client to be configured. Callers treat every
// failure here as soft and fall back to local rendering.
type SummarizeClient interface {
	Configured() bool
	Complete(ctx context.Context, system string, user string, maxTokens int) (string, error)
}

type summarizeClient struct {
	log        *logger.Logger
	endpoint   string
	apiKey     string
	deployment string
	apiVersion string
	httpClient *http.Client

	maxRetries int
}

// New reads configuration from the environment. An incomplete configuration
// is not an error: the client is returned unconfigured and Complete fails
// fast, which callers translate into the local fallback path.
func New(log *logger.Logger) SummarizeClient {
	endpoint := strings.TrimRight(strings.TrimSpace(os.Getenv("SUMMARIZE_ENDPOINT")), "/")
	apiKey := strings.TrimSpace(os.Getenv("SUMMARIZE_API_KEY"))
	deployment := strings.TrimSpace(os.Getenv("SUMMARIZE_DEPLOYMENT"))

	apiVersion := os.Getenv("SUMMARIZE_API_VERSION")
	if apiVersion == "" {
		apiVersion = "2024-02-01"
	}

	timeoutSec := 120
	if v := os.Getenv("SUMMARIZE_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	maxRetries := 2
	if v := os.Getenv("SUMMARIZE_MAX_RETRIES"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
			maxRetries = parsed
		}
	}

	return &summarizeClient{
		log:        log.With("service", "SummarizeClient"),
		endpoint:   endpoint,
		apiKey:     apiKey,
		deployment: deployment,
		apiVersion: apiVersion,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}
}

func (c *summarizeClient) Configured() bool {
	return c.endpoint != "" && c.apiKey != "" && c.deployment != ""
}

type summarizeHTTPError struct {
	StatusCode int
	Body       string
}

func (e *summarizeHTTPError) Error() string {
	return fmt.Sprintf("summarize http %d: %s", e.StatusCode, e.Body)
}

func isRetryableHTTP(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	return code >= 500 && code <= 599
}

func isRetryableErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var httpErr *summarizeHTTPError
	if errors.As(err, &httpErr) {
		return isRetryableHTTP(httpErr.StatusCode)
	}
	return false
}

func jitterSleep(base time.Duration) time.Duration {
	// +/- 20%
	if base <= 0 {
		return 0
	}
	delta := base.Seconds() * 0.2
	low := base.Seconds() - delta
	high := base.Seconds() + delta
	v := low + rand.Float64()*(high-low)
	return time.Duration(v * float64(time.Second))
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *summarizeClient) doOnce(ctx context.Context, body any, out any) (*http.Response, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s", c.endpoint, c.deployment, c.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, &summarizeHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return resp, fmt.Errorf("summarize decode error: %w; raw=%s", err, string(raw))
	}
	return resp, nil
}

func (c *summarizeClient) Complete(ctx context.Context, system string, user string, maxTokens int) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("summarization endpoint not configured")
	}

	req := chatRequest{
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.2,
	}

	backoff := 1 * time.Second
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		var out chatResponse
		resp, err := c.doOnce(ctx, req, &out)
		if err == nil {
			if len(out.Choices) == 0 {
				return "", nil
			}
			return strings.TrimSpace(out.Choices[0].Message.Content), nil
		}
		lastErr = err

		if !isRetryableErr(err) || attempt == c.maxRetries {
			return "", err
		}

		sleepFor := backoff
		if resp != nil {
			if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
				if secs, parseErr := strconv.Atoi(ra); parseErr == nil && secs > 0 {
					sleepFor = time.Duration(secs) * time.Second
				}
			}
		}
		if sleepFor > 10*time.Second {
			sleepFor = 10 * time.Second
		}
		sleepFor = jitterSleep(sleepFor)

		c.log.Warn("Summarize request retrying",
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		time.Sleep(sleepFor)
		backoff *= 2
	}
	return "", lastErr
}
