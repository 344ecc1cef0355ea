// Package verify implements the Twilio Verify client used for
// email-code two-factor checks.
package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/agriconnect/agriclient/internal/domain/session"
)

// BaseURL is the Twilio Verify v2 API root.
const BaseURL = "https://verify.twilio.com/v2"

// Verification statuses returned by the check endpoint.
const (
	StatusApproved = "approved"
	StatusPending  = "pending"
)

// Client sends and checks email verification codes through a Twilio
// Verify service.
type Client struct {
	baseURL    string
	accountSID string
	authToken  string
	serviceSID string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL overrides the API root. For tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Verify client for the given account credentials
// and Verify service.
func NewClient(accountSID, authToken, serviceSID string, opts ...Option) *Client {
	c := &Client{
		baseURL:    BaseURL,
		accountSID: accountSID,
		authToken:  authToken,
		serviceSID: serviceSID,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return c
}

// SendCode emails a verification code to the address. Returns the
// verification SID.
func (c *Client) SendCode(ctx context.Context, email string) (string, error) {
	form := url.Values{}
	form.Set("To", email)
	form.Set("Channel", "email")

	var resp verificationResponse
	path := fmt.Sprintf("/Services/%s/Verifications", c.serviceSID)
	if err := c.postForm(ctx, path, form, &resp); err != nil {
		return "", err
	}
	return resp.SID, nil
}

// CheckCode verifies a code the user entered. Returns true only when
// Twilio reports the code approved; a wrong code is (false, nil).
func (c *Client) CheckCode(ctx context.Context, email, code string) (bool, error) {
	form := url.Values{}
	form.Set("To", email)
	form.Set("Code", code)

	var resp verificationResponse
	path := fmt.Sprintf("/Services/%s/VerificationCheck", c.serviceSID)
	if err := c.postForm(ctx, path, form, &resp); err != nil {
		return false, err
	}
	return resp.Status == StatusApproved, nil
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

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
		return &session.ServerError{Status: resp.StatusCode, Message: "malformed verify response"}
	}
	return nil
}

type verificationResponse struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

type apiError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (e *apiError) message() string {
	if e.Message != "" {
		return e.Message
	}
	return "verification request failed"
}
