package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestParseTokenClaims(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(time.Hour).Unix()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "user-42",
		"email": "akosua@example.test",
		"exp":   exp,
	})
	signed, err := token.SignedString([]byte("irrelevant"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	claims := ParseTokenClaims(signed)
	if claims == nil {
		t.Fatal("claims = nil, want parsed claims")
	}
	if claims.Subject != "user-42" {
		t.Errorf("Subject = %q, want user-42", claims.Subject)
	}
	if claims.Email != "akosua@example.test" {
		t.Errorf("Email = %q", claims.Email)
	}
	if claims.ExpiresAt != exp {
		t.Errorf("ExpiresAt = %d, want %d", claims.ExpiresAt, exp)
	}
}

func TestParseTokenClaimsNotAJWT(t *testing.T) {
	t.Parallel()

	if got := ParseTokenClaims("opaque-token"); got != nil {
		t.Errorf("got %+v, want nil for a non-JWT token", got)
	}
}
