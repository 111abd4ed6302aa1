// Package middleware provides HTTP middleware for the gateway.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/chatbees/chatbees-go/pkg/logger"
)

type principalKey struct{}

// Principal is the authenticated caller of a request.
type Principal struct {
	TenantID string
	UserID   string
}

// Claims represents JWT claims.
type Claims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tenant_id"`
}

// ErrMissingTenant is returned for tokens without a tenant claim.
var ErrMissingTenant = errors.New("token has no tenant")

// Auth creates JWT authentication middleware. Tokens must be HMAC signed
// with secret and carry a tenant_id claim.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
				writeError(w, http.StatusUnauthorized, "missing or malformed bearer token")
				return
			}

			p, err := ParseToken(secret, token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := WithPrincipal(r.Context(), p)
			if log, ok := logger.FromContext(ctx); ok {
				ctx = logger.IntoContext(ctx, log.With(
					zap.String("tenant_id", p.TenantID),
					zap.String("user_id", p.UserID),
				))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ParseToken validates a signed token and returns its principal.
func ParseToken(secret, token string) (Principal, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return Principal{}, err
	}
	if claims.TenantID == "" {
		return Principal{}, ErrMissingTenant
	}
	return Principal{TenantID: claims.TenantID, UserID: claims.Subject}, nil
}

// IssueToken signs a token for tenantID and userID valid for ttl.
func IssueToken(secret, tenantID, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TenantID: tenantID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// WithPrincipal attaches p to ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the caller attached to ctx.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// GetTenantID gets tenant ID from context.
func GetTenantID(ctx context.Context) string {
	p, _ := PrincipalFrom(ctx)
	return p.TenantID
}

// GetUserID gets user ID from context.
func GetUserID(ctx context.Context) string {
	p, _ := PrincipalFrom(ctx)
	return p.UserID
}
