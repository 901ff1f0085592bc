// Package identity resolves authenticated principals for the job card
// service. It is the single source of truth for the admin decision: the
// lifecycle controller consumes only the Role carried on an Actor.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fieldops/jobcard/internal/logger"
)

// Role is the capability level of a principal.
type Role string

const (
	RoleNone  Role = ""
	RoleAdmin Role = "admin"
)

// Actor is an authenticated principal acting on a job.
type Actor struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role,omitempty"`
}

// IsAdmin reports whether the actor carries the admin capability.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// ErrInvalidToken is returned when a credential cannot be verified.
var ErrInvalidToken = errors.New("invalid or expired token")

// Provider verifies a raw credential and yields the acting principal.
type Provider interface {
	Verify(ctx context.Context, token string) (Actor, error)
}

// JWTProvider verifies HMAC-signed bearer tokens. Admin detection is
// reconciled into one path: the role claim wins when present, and the
// configured admin-email allowlist is consulted only when the token carries
// no role claim. A disagreement between the two sources is logged so the
// skew is visible rather than silently resolved.
type JWTProvider struct {
	secret      []byte
	adminEmails map[string]struct{}
}

// NewJWTProvider creates a provider using the given HMAC secret and the
// fallback admin-email allowlist.
func NewJWTProvider(secret string, adminEmails []string) *JWTProvider {
	allow := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			allow[e] = struct{}{}
		}
	}
	return &JWTProvider{secret: []byte(secret), adminEmails: allow}
}

// Verify parses and validates the token and resolves the actor's role.
func (p *JWTProvider) Verify(_ context.Context, tokenString string) (Actor, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return p.secret, nil
	})
	if err != nil || !token.Valid {
		return Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Actor{}, fmt.Errorf("%w: unexpected claims type", ErrInvalidToken)
	}

	actor := Actor{
		ID:    claimString(claims, "sub"),
		Email: strings.ToLower(claimString(claims, "email")),
	}
	if actor.Email == "" {
		return Actor{}, fmt.Errorf("%w: missing email claim", ErrInvalidToken)
	}

	actor.Role = p.resolveRole(claims, actor.Email)
	return actor, nil
}

func (p *JWTProvider) resolveRole(claims jwt.MapClaims, email string) Role {
	_, allowlisted := p.adminEmails[email]

	roleClaim, hasClaim := claims["role"]
	if hasClaim {
		claimed, _ := roleClaim.(string)
		role := RoleNone
		if strings.EqualFold(claimed, string(RoleAdmin)) {
			role = RoleAdmin
		}
		if allowlisted != (role == RoleAdmin) {
			logger.Logger.Warn().
				Str("email", email).
				Str("role_claim", claimed).
				Bool("allowlisted", allowlisted).
				Msg("Admin role claim disagrees with allowlist, claim wins")
		}
		return role
	}

	if allowlisted {
		return RoleAdmin
	}
	return RoleNone
}

func claimString(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
