// Package session owns the authenticated session lifecycle for the
// AgriConnect client: persistence, expiry, silent refresh, OAuth
// redirect capture, and subscriber notification.
package session

import (
	"time"
)

// DefaultExpirySeconds is assumed when the backend omits expires_in.
const DefaultExpirySeconds = 3600

// User is the profile attached to a session.
type User struct {
	// ID is the backend user identifier. An empty ID marks the session
	// as unhydrated: the token is usable but the profile has not been
	// fetched yet.
	ID string `json:"id"`
	// Email is the sign-in address, when known.
	Email string `json:"email,omitempty"`
	// Metadata carries free-form profile attributes (country, name, ...).
	Metadata map[string]any `json:"user_metadata,omitempty"`
}

// Session is the bearer-token session held by the client. It is a value
// object: the store replaces the whole session on every transition and
// never mutates one in place. Subscribers receive snapshots.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	// ExpiresIn is the token lifetime in seconds as reported by the backend.
	ExpiresIn int64 `json:"expires_in"`
	// ExpiresAt is the absolute expiry in epoch seconds. Derived as
	// now+ExpiresIn at construction unless the source supplies it.
	ExpiresAt int64 `json:"expires_at"`
	User      User  `json:"user"`
}

// AuthPayload is the wire shape shared by the token, signup, and
// refresh endpoints. Absent fields are zero values and are resolved by
// ParseSession.
type AuthPayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         *User  `json:"user"`
}

// ParseSession constructs a Session from an endpoint payload against
// the wall clock. Returns nil if the payload carries no access token.
func ParseSession(p *AuthPayload) *Session {
	return parseSessionAt(p, time.Now())
}

// parseSessionAt is ParseSession against an explicit instant, for
// callers that inject their own clock.
func parseSessionAt(p *AuthPayload, now time.Time) *Session {
	if p == nil || p.AccessToken == "" {
		return nil
	}
	expiresIn := p.ExpiresIn
	if expiresIn == 0 {
		expiresIn = DefaultExpirySeconds
	}
	expiresAt := p.ExpiresAt
	if expiresAt == 0 {
		expiresAt = now.Unix() + expiresIn
	}
	tokenType := p.TokenType
	if tokenType == "" {
		tokenType = "bearer"
	}
	s := &Session{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    tokenType,
		ExpiresIn:    expiresIn,
		ExpiresAt:    expiresAt,
	}
	if p.User != nil {
		s.User = *p.User
	}
	return s
}

// Hydrated reports whether the session carries a full user profile.
func (s *Session) Hydrated() bool {
	return s != nil && s.User.ID != ""
}

// ValidAt reports whether the session is still usable at instant now,
// keeping at least buffer of remaining lifetime to avoid races at the
// expiry boundary.
func (s *Session) ValidAt(now time.Time, buffer time.Duration) bool {
	if s == nil || s.AccessToken == "" {
		return false
	}
	if buffer < time.Second {
		buffer = time.Second
	}
	return time.Unix(s.ExpiresAt, 0).After(now.Add(buffer))
}

// WithUser returns a copy of the session carrying the given profile.
func (s *Session) WithUser(u User) *Session {
	c := *s
	c.User = u
	return &c
}
