package authapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/agriconnect/agriclient/internal/domain/session"
)

func TestPasswordGrant(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/token" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("grant_type"); got != "password" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.Header.Get("apikey"); got != "anon-key" {
			t.Errorf("apikey header = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer anon-key" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("X-Client-Info"); !strings.HasPrefix(got, "agriclient/") {
			t.Errorf("X-Client-Info = %q", got)
		}

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["email"] != "ama@example.test" || body["password"] != "hunter2" {
			t.Errorf("body = %v", body)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "tok-1",
			"refresh_token": "ref-1",
			"token_type":    "bearer",
			"expires_in":    3600,
			"user":          map[string]any{"id": "user-1", "email": "ama@example.test"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	payload, err := c.PasswordGrant(context.Background(), "ama@example.test", "hunter2")
	if err != nil {
		t.Fatalf("PasswordGrant: %v", err)
	}
	if payload.AccessToken != "tok-1" || payload.RefreshToken != "ref-1" {
		t.Errorf("payload = %+v", payload)
	}
	if payload.User == nil || payload.User.ID != "user-1" {
		t.Errorf("user = %+v", payload.User)
	}
}

func TestPasswordGrantBadCredentials(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error_description": "Invalid login credentials",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	_, err := c.PasswordGrant(context.Background(), "ama@example.test", "wrong")
	if !errors.Is(err, session.ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	if !strings.Contains(err.Error(), "Invalid login credentials") {
		t.Errorf("err should carry the backend message, got %q", err)
	}
}

func TestPasswordGrantServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"msg": "database down"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	_, err := c.PasswordGrant(context.Background(), "a", "b")
	var serverErr *session.ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("err = %v, want ServerError", err)
	}
	if serverErr.Status != 500 || serverErr.Message != "database down" {
		t.Errorf("ServerError = %+v", serverErr)
	}
}

func TestPasswordGrantNetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // refuse connections

	c := NewClient(srv.URL, "anon-key")
	_, err := c.PasswordGrant(context.Background(), "a", "b")
	if !errors.Is(err, session.ErrNetworkUnavailable) {
		t.Fatalf("err = %v, want ErrNetworkUnavailable", err)
	}
}

func TestSignUpNestedSession(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/signup" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		data, _ := body["data"].(map[string]any)
		if data["country"] != "Ghana" {
			t.Errorf("metadata = %v", data)
		}

		// Some deployments nest the token fields under "session".
		_ = json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]any{"id": "user-2"},
			"session": map[string]any{
				"access_token":  "tok-2",
				"refresh_token": "ref-2",
				"expires_in":    3600,
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	payload, err := c.SignUp(context.Background(), "kofi@example.test", "pw", map[string]any{"country": "Ghana"})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if payload.AccessToken != "tok-2" {
		t.Errorf("access token = %q, want the nested tok-2", payload.AccessToken)
	}
	if payload.User == nil || payload.User.ID != "user-2" {
		t.Errorf("user = %+v, want the outer user-2", payload.User)
	}
}

func TestSignUpEmailConfirmationPending(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]any{"id": "user-3"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	payload, err := c.SignUp(context.Background(), "a", "b", nil)
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if payload != nil {
		t.Errorf("payload = %+v, want nil pending confirmation", payload)
	}
}

func TestRefreshGrant(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %q", got)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["refresh_token"] != "ref-old" {
			t.Errorf("refresh_token = %q", body["refresh_token"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "tok-new",
			"refresh_token": "ref-new",
			"expires_in":    3600,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	payload, err := c.RefreshGrant(context.Background(), "ref-old")
	if err != nil {
		t.Fatalf("RefreshGrant: %v", err)
	}
	if payload.AccessToken != "tok-new" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestProfileShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body any
	}{
		{
			name: "top-level user",
			body: map[string]any{"id": "user-9", "email": "p@example.test"},
		},
		{
			name: "wrapped user",
			body: map[string]any{"user": map[string]any{"id": "user-9", "email": "p@example.test"}},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/auth/v1/user" {
					t.Errorf("path = %q", r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer access-tok" {
					t.Errorf("Authorization = %q", got)
				}
				_ = json.NewEncoder(w).Encode(tt.body)
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "anon-key")
			u, err := c.Profile(context.Background(), "access-tok")
			if err != nil {
				t.Fatalf("Profile: %v", err)
			}
			if u.ID != "user-9" || u.Email != "p@example.test" {
				t.Errorf("user = %+v", u)
			}
		})
	}
}

func TestProfileGone(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"msg": "user not found"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	_, err := c.Profile(context.Background(), "stale-tok")
	var serverErr *session.ServerError
	if !errors.As(err, &serverErr) || serverErr.Status != 401 {
		t.Fatalf("err = %v, want 401 ServerError", err)
	}
}

func TestRevoke(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/logout" || r.Method != http.MethodPost {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	if err := c.Revoke(context.Background(), "tok"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
}

func TestAuthorizeURL(t *testing.T) {
	t.Parallel()

	c := NewClient("https://proj.example.test/", "anon-key")
	got := c.AuthorizeURL("google", "http://localhost")
	want := "https://proj.example.test/auth/v1/authorize?provider=google&redirect_to=http%3A%2F%2Flocalhost"
	if got != want {
		t.Errorf("AuthorizeURL = %q, want %q", got, want)
	}
}

func TestTwoFactorFlag(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/users" {
			t.Errorf("path = %q", r.URL.Path)
		}
		switch r.Method {
		case http.MethodPatch:
			var body map[string]bool
			_ = json.NewDecoder(r.Body).Decode(&body)
			if !body["two_factor_enabled"] {
				t.Errorf("body = %v", body)
			}
			w.WriteHeader(http.StatusNoContent)
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode([]map[string]bool{{"two_factor_enabled": true}})
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	if err := c.SetTwoFactorEnabled(context.Background(), "tok", "user-1", true); err != nil {
		t.Fatalf("SetTwoFactorEnabled: %v", err)
	}
	enabled, err := c.TwoFactorEnabled(context.Background(), "tok", "user-1")
	if err != nil {
		t.Fatalf("TwoFactorEnabled: %v", err)
	}
	if !enabled {
		t.Error("enabled = false, want true")
	}
}

func TestTwoFactorFlagMissingRow(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]bool{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	enabled, err := c.TwoFactorEnabled(context.Background(), "tok", "user-1")
	if err != nil {
		t.Fatalf("TwoFactorEnabled: %v", err)
	}
	if enabled {
		t.Error("a missing row must read as disabled")
	}
}
