package session

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the subset of access-token claims the client uses as a
// fallback identity source for sessions captured from a redirect
// fragment, before the profile endpoint has been consulted.
type TokenClaims struct {
	// Subject is the user id ("sub").
	Subject string
	// Email is the sign-in address, when the token carries one.
	Email string
	// ExpiresAt is the token expiry in epoch seconds ("exp").
	ExpiresAt int64
}

// ParseTokenClaims decodes the claims of a bearer access token without
// verifying its signature. The client has no signing key; verification
// is the backend's job. Returns nil when the token is not a JWT.
func ParseTokenClaims(tokenString string) *TokenClaims {
	token, _, err := new(jwt.Parser).ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return nil
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}

	out := &TokenClaims{
		Subject: stringClaim(claims, "sub"),
		Email:   stringClaim(claims, "email"),
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Unix()
	}
	return out
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
