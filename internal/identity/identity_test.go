package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestVerifyResolvesActor(t *testing.T) {
	p := NewJWTProvider(testSecret, nil)
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":   "u1",
		"email": "Worker@Example.com",
	})

	actor, err := p.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if actor.ID != "u1" {
		t.Errorf("ID = %q", actor.ID)
	}
	if actor.Email != "worker@example.com" {
		t.Errorf("Email = %q, want lower-cased", actor.Email)
	}
	if actor.IsAdmin() {
		t.Error("actor without role claim or allowlist entry is admin")
	}
}

func TestVerifyRoleClaimWins(t *testing.T) {
	p := NewJWTProvider(testSecret, nil)
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":   "u2",
		"email": "boss@example.com",
		"role":  "Admin",
	})

	actor, err := p.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !actor.IsAdmin() {
		t.Error("role claim did not grant admin")
	}
}

func TestVerifyAllowlistFallback(t *testing.T) {
	p := NewJWTProvider(testSecret, []string{" Boss@Example.com "})
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":   "u2",
		"email": "boss@example.com",
	})

	actor, err := p.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !actor.IsAdmin() {
		t.Error("allowlisted email without role claim should be admin")
	}
}

func TestVerifyClaimOverridesAllowlist(t *testing.T) {
	// The allowlist says admin, the token says otherwise: the claim wins.
	p := NewJWTProvider(testSecret, []string{"boss@example.com"})
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":   "u2",
		"email": "boss@example.com",
		"role":  "member",
	})

	actor, err := p.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if actor.IsAdmin() {
		t.Error("explicit non-admin role claim was overridden by the allowlist")
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	p := NewJWTProvider(testSecret, nil)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "wrong secret", token: signToken(t, "other-secret", jwt.MapClaims{"email": "a@b.c"})},
		{
			name: "expired",
			token: signToken(t, testSecret, jwt.MapClaims{
				"email": "a@b.c",
				"exp":   time.Now().Add(-time.Hour).Unix(),
			}),
		},
		{name: "missing email", token: signToken(t, testSecret, jwt.MapClaims{"sub": "u1"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.Verify(context.Background(), tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}
