package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles carried in the bearer token.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
	RoleOwner  = "owner"
)

type contextKey string

const principalContextKey contextKey = "principal"

// Principal is the verified caller of a request.
type Principal struct {
	UserID   string
	TenantID string
	Role     string
}

// IsAdmin reports whether the principal may act on other members' behalf.
// Owners are admins of their own tenant.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin || p.Role == RoleOwner
}

// Claims is the JWT payload: sub, tenant_id and role.
type Claims struct {
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for p. Used by studioctl and tests; the server only verifies.
// PRE: secret is non-empty; p has UserID, TenantID and a known Role
// POST: Returns a compact JWS that ParseToken accepts until ttl elapses
func IssueToken(secret []byte, p Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		TenantID: p.TenantID,
		Role:     p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken verifies raw and extracts the principal.
// PRE: secret is the signing key
// POST: Returns an error for bad signatures, expired tokens, other algorithms or missing claims
func ParseToken(secret []byte, raw string) (Principal, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Principal{}, fmt.Errorf("parse token: %w", err)
	}
	p := Principal{UserID: claims.Subject, TenantID: claims.TenantID, Role: claims.Role}
	if p.UserID == "" || p.TenantID == "" {
		return Principal{}, errors.New("token lacks sub or tenant_id")
	}
	if !slices.Contains([]string{RoleMember, RoleAdmin, RoleOwner}, p.Role) {
		return Principal{}, fmt.Errorf("unknown role %q", p.Role)
	}
	return p, nil
}

// Authenticate verifies the bearer token when one is sent and stores the principal in
// the request context. Requests without Authorization pass through anonymously; use
// RequireRole (or PrincipalFromContext in the handler) to demand one.
func Authenticate(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				http.Error(w, "unsupported authorization scheme", http.StatusUnauthorized)
				return
			}
			p, err := ParseToken(secret, raw)
			if err != nil {
				slog.Warn("auth_denied", "path", r.URL.Path, "reason", err.Error())
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
		})
	}
}

// RequireRole blocks requests whose principal is missing or holds none of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				http.Error(w, "not authenticated", http.StatusUnauthorized)
				return
			}
			if !slices.Contains(roles, p.Role) {
				slog.Warn("auth_denied", "path", r.URL.Path, "user_id", p.UserID, "role", p.Role, "required", roles)
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PrincipalFromContext extracts the principal from the request context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(Principal)
	return p, ok
}

// ContextWithPrincipal returns a context carrying p.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}
