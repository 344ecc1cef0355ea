package authapi

import (
	"github.com/agriconnect/agriclient/internal/domain/session"
)

// authResponse is the wire shape of the token, signup, and refresh
// endpoints. Sign-up responses may nest the token fields under
// "session"; error responses reuse the same shape with one of the error
// fields set.
type authResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int64         `json:"expires_in"`
	ExpiresAt    int64         `json:"expires_at"`
	User         *session.User `json:"user"`
	Session      *authResponse `json:"session"`

	ErrorCode        string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
}

// payload flattens the response into the domain's AuthPayload,
// preferring the nested session object when present.
func (r *authResponse) payload() *session.AuthPayload {
	src := r
	if r.AccessToken == "" && r.Session != nil {
		src = r.Session
	}
	if src.AccessToken == "" {
		return nil
	}
	return &session.AuthPayload{
		AccessToken:  src.AccessToken,
		RefreshToken: src.RefreshToken,
		TokenType:    src.TokenType,
		ExpiresIn:    src.ExpiresIn,
		ExpiresAt:    src.ExpiresAt,
		User:         pickUser(src, r),
	}
}

func pickUser(src, outer *authResponse) *session.User {
	if src.User != nil {
		return src.User
	}
	return outer.User
}

// message returns the backend's error description, whichever field it
// arrived in.
func (r *authResponse) message() string {
	switch {
	case r.ErrorDescription != "":
		return r.ErrorDescription
	case r.ErrorCode != "":
		return r.ErrorCode
	case r.Msg != "":
		return r.Msg
	}
	return "request failed"
}

// profileResponse tolerates both profile endpoint shapes: the user
// object at the top level, or wrapped under "user".
type profileResponse struct {
	session.User
	Wrapped *session.User `json:"user"`
}

func (r *profileResponse) user() *session.User {
	if r.Wrapped != nil {
		return r.Wrapped
	}
	if r.ID != "" {
		u := r.User
		return &u
	}
	return nil
}

// twoFactorRow is one row of the users table projected to the 2FA flag.
type twoFactorRow struct {
	TwoFactorEnabled bool `json:"two_factor_enabled"`
}
