package assistant

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/udms-pro/udms/internal/shared"
	"github.com/udms-pro/udms/internal/store"
)

// maxResponseSize limits the response body to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024

// RetryConfig holds retry configuration for collaborator requests.
type RetryConfig struct {
	MaxAttempts int
	BackoffBase time.Duration
	MaxBackoff  time.Duration
}

// DefaultRetryConfig retries once after a short pause. The kernel applies its
// own per-call deadline on top.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 2, BackoffBase: 200 * time.Millisecond, MaxBackoff: 2 * time.Second}
}

// HTTPClient calls a JSON gateway in front of the AI models.
type HTTPClient struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	retryConfig RetryConfig
	logger      *slog.Logger
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *HTTPClient) {
		client.httpClient = c
	}
}

// WithAPIKey sets the bearer token sent on every request.
func WithAPIKey(key string) ClientOption {
	return func(client *HTTPClient) {
		client.apiKey = key
	}
}

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(cfg RetryConfig) ClientOption {
	return func(client *HTTPClient) {
		client.retryConfig = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(client *HTTPClient) {
		client.logger = logger
	}
}

// NewHTTPClient creates a client for the gateway at baseURL.
func NewHTTPClient(baseURL string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		retryConfig: DefaultRetryConfig(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type replyRequest struct {
	History []Turn `json:"history"`
}

type replyResponse struct {
	Text string `json:"text"`
}

// Reply implements Collaborator.
func (c *HTTPClient) Reply(ctx context.Context, history []Turn) (string, error) {
	var out replyResponse
	if err := c.post(ctx, "/v1/chat", replyRequest{History: history}, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Text) == "" {
		return "", fmt.Errorf("%w: empty reply", shared.ErrCollaboratorUnavailable)
	}
	return out.Text, nil
}

type analyzeRequest struct {
	Image     string `json:"image"`
	MediaType string `json:"mediaType"`
}

// AnalyzeImage implements Collaborator.
func (c *HTTPClient) AnalyzeImage(ctx context.Context, image []byte, mediaType string) (*Analysis, error) {
	var out Analysis
	req := analyzeRequest{Image: base64.StdEncoding.EncodeToString(image), MediaType: mediaType}
	if err := c.post(ctx, "/v1/analyze", req, &out); err != nil {
		return nil, err
	}
	if out.Problem == "" {
		return nil, fmt.Errorf("%w: analysis missing problem", shared.ErrCollaboratorUnavailable)
	}
	return &out, nil
}

type compatibilityRequest struct {
	ResidentA shared.Preferences `json:"residentA"`
	ResidentB shared.Preferences `json:"residentB"`
}

// Compatibility implements Collaborator.
func (c *HTTPClient) Compatibility(ctx context.Context, a, b shared.Preferences) (Compatibility, error) {
	var out Compatibility
	if err := c.post(ctx, "/v1/compatibility", compatibilityRequest{ResidentA: a, ResidentB: b}, &out); err != nil {
		return Compatibility{}, err
	}
	return out, nil
}

type sentimentRequest struct {
	Text string `json:"text"`
}

type sentimentResponse struct {
	Sentiment string `json:"sentiment"`
}

// Sentiment implements Collaborator.
func (c *HTTPClient) Sentiment(ctx context.Context, text string) (store.Sentiment, error) {
	var out sentimentResponse
	if err := c.post(ctx, "/v1/sentiment", sentimentRequest{Text: text}, &out); err != nil {
		return "", err
	}
	return store.Sentiment(strings.ToUpper(strings.TrimSpace(out.Sentiment))), nil
}

type speakResponse struct {
	Audio string `json:"audio"`
}

// Speak implements Collaborator. The gateway returns base64 PCM audio.
func (c *HTTPClient) Speak(ctx context.Context, text string) ([]byte, error) {
	var out speakResponse
	if err := c.post(ctx, "/v1/speech", sentimentRequest{Text: text}, &out); err != nil {
		return nil, err
	}
	audio, err := base64.StdEncoding.DecodeString(out.Audio)
	if err != nil || len(audio) == 0 {
		return nil, fmt.Errorf("%w: no audio", shared.ErrCollaboratorUnavailable)
	}
	return audio, nil
}

// post sends body and decodes the JSON response into out, retrying transient failures.
func (c *HTTPClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("assistant: encode request: %w", err)
	}
	requestID := uuid.NewString()
	var lastErr error
	for attempt := 1; attempt <= max(c.retryConfig.MaxAttempts, 1); attempt++ {
		retry, err := c.doRequest(ctx, path, requestID, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry || attempt >= c.retryConfig.MaxAttempts {
			break
		}
		backoff := c.calculateBackoff(attempt)
		c.logger.Debug("assistant request failed, retrying",
			slog.String("path", path),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
			slog.Any("error", err))
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", shared.ErrCollaboratorUnavailable, ctx.Err())
		case <-time.After(backoff):
		}
	}
	return lastErr
}

func (c *HTTPClient) doRequest(ctx context.Context, path, requestID string, payload []byte, out any) (retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("%w: create request: %v", shared.ErrCollaboratorUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ctx.Err() == nil, fmt.Errorf("%w: %v", shared.ErrCollaboratorUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return true, fmt.Errorf("%w: read response: %v", shared.ErrCollaboratorUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		transient := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return transient, fmt.Errorf("%w: status %d", shared.ErrCollaboratorUnavailable, resp.StatusCode)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return false, fmt.Errorf("%w: decode response: %v", shared.ErrCollaboratorUnavailable, err)
	}
	return false, nil
}

// calculateBackoff computes exponential backoff with +/-25% jitter.
func (c *HTTPClient) calculateBackoff(attempt int) time.Duration {
	backoff := c.retryConfig.BackoffBase << (attempt - 1)
	if c.retryConfig.MaxBackoff > 0 && backoff > c.retryConfig.MaxBackoff {
		backoff = c.retryConfig.MaxBackoff
	}
	jitter := float64(backoff) * 0.25 * (rand.Float64()*2 - 1)
	return backoff + time.Duration(jitter)
}
