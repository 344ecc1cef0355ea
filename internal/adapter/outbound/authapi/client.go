// Package authapi implements the HTTP client for the authentication
// backend: token exchange, refresh, profile, revoke, the federated
// authorize URL, and the two-factor flag row.
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agriconnect/agriclient/internal/domain/session"
)

// ClientVersion identifies this client build in the X-Client-Info
// header. Overridden at build time via -ldflags.
var ClientVersion = "dev"

// Client talks to the auth backend over HTTP. Transport failures map to
// session.ErrNetworkUnavailable, credential rejections to
// session.ErrInvalidCredentials, and every other definitive backend
// answer (including malformed success bodies) to
// session.ErrServerRejected.
type Client struct {
	baseURL    string
	anonKey    string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	instanceID string
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client. Useful for testing and
// custom transports.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the HTTP request timeout. Defaults to 15 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates an auth backend client for the given base URL and
// anon (publishable) API key.
func NewClient(baseURL, anonKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		timeout:    15 * time.Second,
		logger:     slog.Default(),
		instanceID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c
}

// PasswordGrant exchanges an email/password pair for a token pair.
func (c *Client) PasswordGrant(ctx context.Context, email, password string) (*session.AuthPayload, error) {
	body := map[string]string{"email": email, "password": password}
	resp, status, err := c.doAuth(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", c.anonKey, body)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		if status == http.StatusBadRequest || status == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: %s", session.ErrInvalidCredentials, resp.message())
		}
		return nil, &session.ServerError{Status: status, Message: resp.message()}
	}
	payload := resp.payload()
	if payload == nil {
		return nil, &session.ServerError{Status: status, Message: "no session in token response"}
	}
	return payload, nil
}

// SignUp registers a new account. Metadata becomes the user_metadata of
// the new profile (the original client sends the farmer's country
// here). The payload is nil when the backend requires email
// confirmation before issuing a session.
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*session.AuthPayload, error) {
	body := map[string]any{"email": email, "password": password}
	if len(metadata) > 0 {
		body["data"] = metadata
	}
	resp, status, err := c.doAuth(ctx, http.MethodPost, "/auth/v1/signup", c.anonKey, body)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &session.ServerError{Status: status, Message: resp.message()}
	}
	return resp.payload(), nil
}

// RefreshGrant exchanges a refresh token for a new token pair.
func (c *Client) RefreshGrant(ctx context.Context, refreshToken string) (*session.AuthPayload, error) {
	body := map[string]string{"refresh_token": refreshToken}
	resp, status, err := c.doAuth(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", c.anonKey, body)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &session.ServerError{Status: status, Message: resp.message()}
	}
	payload := resp.payload()
	if payload == nil {
		return nil, &session.ServerError{Status: status, Message: "no session in refresh response"}
	}
	return payload, nil
}

// Profile fetches the full user record for an access token.
func (c *Client) Profile(ctx context.Context, accessToken string) (*session.User, error) {
	data, status, err := c.do(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		var resp authResponse
		_ = json.Unmarshal(data, &resp)
		return nil, &session.ServerError{Status: status, Message: resp.message()}
	}
	var resp profileResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &session.ServerError{Status: status, Message: "malformed profile response"}
	}
	u := resp.user()
	if u == nil {
		return nil, &session.ServerError{Status: status, Message: "profile response without user"}
	}
	return u, nil
}

// Revoke invalidates the access token server-side.
func (c *Client) Revoke(ctx context.Context, accessToken string) error {
	data, status, err := c.do(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		var resp authResponse
		_ = json.Unmarshal(data, &resp)
		return &session.ServerError{Status: status, Message: resp.message()}
	}
	return nil
}

// AuthorizeURL builds the federated sign-in redirect URL for the given
// provider.
func (c *Client) AuthorizeURL(provider, redirectTo string) string {
	v := url.Values{}
	v.Set("provider", provider)
	if redirectTo != "" {
		v.Set("redirect_to", redirectTo)
	}
	return c.baseURL + "/auth/v1/authorize?" + v.Encode()
}

// SetTwoFactorEnabled updates the two_factor_enabled flag on the user's
// row.
func (c *Client) SetTwoFactorEnabled(ctx context.Context, accessToken, userID string, enabled bool) error {
	path := "/rest/v1/users?id=eq." + url.QueryEscape(userID)
	body := map[string]bool{"two_factor_enabled": enabled}
	data, status, err := c.do(ctx, http.MethodPatch, path, accessToken, body)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		var resp authResponse
		_ = json.Unmarshal(data, &resp)
		return &session.ServerError{Status: status, Message: resp.message()}
	}
	return nil
}

// TwoFactorEnabled reads the two_factor_enabled flag from the user's
// row. A missing row reads as false.
func (c *Client) TwoFactorEnabled(ctx context.Context, accessToken, userID string) (bool, error) {
	path := "/rest/v1/users?id=eq." + url.QueryEscape(userID) + "&select=two_factor_enabled"
	data, status, err := c.do(ctx, http.MethodGet, path, accessToken, nil)
	if err != nil {
		return false, err
	}
	if status < 200 || status >= 300 {
		var resp authResponse
		_ = json.Unmarshal(data, &resp)
		return false, &session.ServerError{Status: status, Message: resp.message()}
	}
	var rows []twoFactorRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return false, &session.ServerError{Status: status, Message: "malformed users row response"}
	}
	if len(rows) == 0 {
		return false, nil
	}
	return rows[0].TwoFactorEnabled, nil
}

// doAuth performs a request against an auth endpoint and decodes the
// shared auth response shape.
func (c *Client) doAuth(ctx context.Context, method, path, bearer string, body any) (*authResponse, int, error) {
	data, status, err := c.do(ctx, method, path, bearer, body)
	if err != nil {
		return nil, 0, err
	}
	var resp authResponse
	if len(data) > 0 {
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, status, &session.ServerError{Status: status, Message: "malformed backend response"}
		}
	}
	return &resp, status, nil
}

// do performs an HTTP request with the backend's header contract and
// returns the raw body and status. Transport-level failures come back
// as session.NetworkError.
func (c *Client) do(ctx context.Context, method, path, bearer string, body any) ([]byte, int, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("apikey", c.anonKey)
	if bearer == "" {
		bearer = c.anonKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("X-Client-Info", "agriclient/"+ClientVersion+" ("+c.instanceID+")")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &session.NetworkError{Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, &session.NetworkError{Cause: err}
	}
	return data, resp.StatusCode, nil
}

// Compile-time interface verification.
var _ session.AuthAPI = (*Client)(nil)
