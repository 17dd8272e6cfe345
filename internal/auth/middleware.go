package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/redmonkez12/go-auth-api/internal/httputil"
	"github.com/redmonkez12/go-auth-api/internal/logging"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	principalContextKey    contextKey = "principal"
	refreshTokenContextKey contextKey = "refresh_token"
)

// Principal is the identity carried by a verified bearer token.
type Principal struct {
	UserID uuid.UUID
	Email  string
}

// Middleware is the bearer gate for protected routes.
type Middleware struct {
	issuer TokenIssuer
}

func NewMiddleware(issuer TokenIssuer) *Middleware {
	return &Middleware{issuer: issuer}
}

// RequireAccess admits requests carrying a valid access token.
func (m *Middleware) RequireAccess(next http.Handler) http.Handler {
	return m.require(RoleAccess, next)
}

// RequireRefresh admits requests carrying a valid refresh token and keeps the
// raw token in the context for comparison against the stored hash.
func (m *Middleware) RequireRefresh(next http.Handler) http.Handler {
	return m.require(RoleRefresh, next)
}

func (m *Middleware) require(role TokenRole, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := logging.GetLoggerFromContext(r.Context())

		token, ok := bearerToken(r)
		if !ok {
			logger.Debug("missing or malformed bearer token", "role", role)
			respondUnauthorized(w)
			return
		}

		claims, err := m.issuer.Verify(token, role)
		if err != nil {
			// expired and invalid are reported the same way
			logger.Debug("bearer token rejected", "role", role, "reason", err.Error())
			respondUnauthorized(w)
			return
		}

		ctx := context.WithValue(r.Context(), principalContextKey, Principal{
			UserID: claims.UserID,
			Email:  claims.Email,
		})
		if role == RoleRefresh {
			ctx = context.WithValue(ctx, refreshTokenContextKey, token)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}

	return token, true
}

func respondUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer`)
	httputil.RespondErrorWithCode(w, "unauthorized", httputil.CodeUnauthorized, http.StatusUnauthorized)
}

// PrincipalFromContext returns the identity set by RequireAccess or RequireRefresh.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(Principal)
	return p, ok
}

// RefreshTokenFromContext returns the raw token admitted by RequireRefresh.
func RefreshTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(refreshTokenContextKey).(string)
	return token, ok
}
