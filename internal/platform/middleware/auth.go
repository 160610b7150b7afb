package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// HRTokenValidator validates the JWT carried by HR back-office requests.
type HRTokenValidator interface {
	ValidateToken(tokenString string) (*HRClaims, error)
}

// HRClaims represents the claims we expect from the HR token validator.
type HRClaims struct {
	UserID string
	Name   string
	Email  string
}

// SessionResolver resolves an opaque candidate session token. Implemented by
// the document session store.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (int64, error)
}

type contextKeyHRUserID struct{}
type contextKeyHRName struct{}
type contextKeyCandidateID struct{}

// GetHRUserID retrieves the authenticated HR user ID from the context.
func GetHRUserID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyHRUserID{}).(string); ok {
		return id
	}
	return ""
}

// GetHRName retrieves the authenticated HR user name from the context.
func GetHRName(ctx context.Context) string {
	if name, ok := ctx.Value(contextKeyHRName{}).(string); ok {
		return name
	}
	return ""
}

// GetCandidateID retrieves the authenticated candidate ID from the context.
// Zero means no candidate session.
func GetCandidateID(ctx context.Context) int64 {
	if id, ok := ctx.Value(contextKeyCandidateID{}).(int64); ok {
		return id
	}
	return 0
}

// WithCandidateID injects a candidate ID into a context. Useful for service
// unit tests that don't run the full HTTP middleware chain.
func WithCandidateID(ctx context.Context, candidateID int64) context.Context {
	return context.WithValue(ctx, contextKeyCandidateID{}, candidateID)
}

const bearerPrefix = "Bearer "

// BearerToken extracts the bearer token from the Authorization header, or ""
// when absent.
func BearerToken(r *http.Request) string {
	token, _ := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
	return token
}

// RequireHR guards back-office routes with the HR JWT.
func RequireHR(validator HRTokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok || token == "" {
				unauthorized(w, r, logger, "missing token")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				unauthorized(w, r, logger, "invalid token")
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, contextKeyHRUserID{}, claims.UserID)
			ctx = context.WithValue(ctx, contextKeyHRName{}, claims.Name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCandidate guards candidate-facing document routes with the opaque
// session token minted at /documents/login.
func RequireCandidate(sessions SessionResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok || token == "" {
				unauthorized(w, r, logger, "missing session token")
				return
			}

			candidateID, err := sessions.Resolve(r.Context(), token)
			if err != nil {
				unauthorized(w, r, logger, "invalid or expired session")
				return
			}

			ctx := context.WithValue(r.Context(), contextKeyCandidateID{}, candidateID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, logger *slog.Logger, reason string) {
	ctx := r.Context()
	logger.WarnContext(ctx, "unauthorized access",
		"reason", reason,
		"path", r.URL.Path,
		"request_id", GetRequestID(ctx),
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"Invalid or expired token"}`))
}
