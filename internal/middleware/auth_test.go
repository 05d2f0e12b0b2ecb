package middleware

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateTokenRoundTrip(t *testing.T) {
	m := NewAuthMiddleware("test-secret", 24)

	token, err := m.GenerateToken("user-1", "agent@example.com", "admin")
	if err != nil {
		t.Fatal(err)
	}

	claims, err := m.validateToken(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != "user-1" || claims.Email != "agent@example.com" || claims.Role != "admin" {
		t.Errorf("claims = %+v", claims)
	}

	if claims.ExpiresAt == nil {
		t.Fatal("token must carry an expiry")
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl < 23*time.Hour || ttl > 25*time.Hour {
		t.Errorf("expiry %s from now, want ~24h", ttl)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	m := NewAuthMiddleware("test-secret", 0)

	// Zero expiration hours issues an already-expired token.
	token, err := m.GenerateToken("user-1", "agent@example.com", "")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.validateToken(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	issuer := NewAuthMiddleware("secret-a", 24)
	verifier := NewAuthMiddleware("secret-b", 24)

	token, err := issuer.GenerateToken("user-1", "agent@example.com", "")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := verifier.validateToken(token); err == nil {
		t.Fatal("expected signature mismatch to be rejected")
	}
}

func TestValidateTokenRejectsUnsignedAlg(t *testing.T) {
	m := NewAuthMiddleware("test-secret", 24)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, UserClaims{UserID: "user-1"})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.validateToken(token); err == nil {
		t.Fatal("expected none-alg token to be rejected")
	}
}
