// Package advisor implements the HTTP client for the generative-AI
// proxy. The proxy keeps the AI vendor key server-side; this client
// posts generation requests and decodes candidate text.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/agriconnect/agriclient/internal/domain/session"
)

// Default models, matching the proxy's upstream.
const (
	TextModel  = "gemini-2.5-flash"
	ImageModel = "imagen-4.0-generate-001"
)

// Client posts generation requests to the AI proxy endpoint.
type Client struct {
	endpointURL string
	anonKey     string
	timeout     time.Duration
	httpClient  *http.Client
	logger      *slog.Logger
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the HTTP request timeout. Generation calls are slow;
// defaults to 60 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates an AI proxy client for the given function URL and
// anon API key.
func NewClient(endpointURL, anonKey string, opts ...Option) *Client {
	c := &Client{
		endpointURL: endpointURL,
		anonKey:     anonKey,
		timeout:     60 * time.Second,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c
}

// GenerateContent runs a text/vision generation request against the
// given model and returns the decoded response.
func (c *Client) GenerateContent(ctx context.Context, model string, req *GenerateRequest) (*GenerateResponse, error) {
	body := proxyRequest{
		Endpoint:        "generateContent",
		Model:           model,
		GenerateRequest: req,
	}
	var resp GenerateResponse
	if err := c.post(ctx, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GenerateImage runs an image generation request and returns the
// base64-encoded image bytes of the first generated image.
func (c *Client) GenerateImage(ctx context.Context, model, prompt string) (string, error) {
	body := proxyRequest{
		Endpoint: "generateImages",
		Model:    model,
		Prompt:   prompt,
		Config: map[string]any{
			"numberOfImages": 1,
			"outputMimeType": "image/jpeg",
			"aspectRatio":    "4:3",
		},
	}
	var resp imagesResponse
	if err := c.post(ctx, body, &resp); err != nil {
		return "", err
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image.ImageBytes == "" {
		return "", &session.ServerError{Message: "no image generated"}
	}
	return resp.GeneratedImages[0].Image.ImageBytes, nil
}

func (c *Client) post(ctx context.Context, body any, result any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.anonKey != "" {
		req.Header.Set("apikey", c.anonKey)
		req.Header.Set("Authorization", "Bearer "+c.anonKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &session.NetworkError{Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &session.NetworkError{Cause: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		_ = json.Unmarshal(data, &apiErr)
		return &session.ServerError{Status: resp.StatusCode, Message: apiErr.message()}
	}
	if err := json.Unmarshal(data, result); err != nil {
		return &session.ServerError{Status: resp.StatusCode, Message: "malformed generation response"}
	}
	return nil
}
