// Package middleware provides HTTP middleware for the GiveWidget API.
package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	apierrors "github.com/givewidget/givewidget/internal/pkg/errors"
	"github.com/givewidget/givewidget/internal/pkg/response"
)

type contextKey string

// PrivilegedKey marks a request authenticated with the admin API key.
const PrivilegedKey contextKey = "privileged"

// extractKey pulls the shared-secret credential from either accepted header.
func extractKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func keyMatches(provided, configured string) bool {
	if configured == "" || provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(configured)) == 1
}

// RequireAdmin rejects requests that do not carry the configured admin key.
func RequireAdmin(adminKey string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !keyMatches(extractKey(r), adminKey) {
				response.Error(w, apierrors.ErrUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), PrivilegedKey, true)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DetectAdmin marks the request as privileged when the admin key is present,
// but lets unauthenticated requests through. Read endpoints use this: the
// same listing serves both the public widget and the dashboard, with
// archived rows visible only to the latter.
func DetectAdmin(adminKey string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if keyMatches(extractKey(r), adminKey) {
				ctx := context.WithValue(r.Context(), PrivilegedKey, true)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireCronSecret gates cron endpoints behind an optional bearer secret.
// An empty configured secret disables the check (local development).
func RequireCronSecret(secret string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret != "" {
				auth := r.Header.Get("Authorization")
				provided := strings.TrimPrefix(auth, "Bearer ")
				if !keyMatches(provided, secret) {
					response.Error(w, apierrors.ErrUnauthorized)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IsPrivileged reports whether the request authenticated with the admin key.
func IsPrivileged(ctx context.Context) bool {
	v, _ := ctx.Value(PrivilegedKey).(bool)
	return v
}
