package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"

	"github.com/Tamilarasan-gessdemn/green-backend/internal/auth"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/observability"
)

type identityContextKey struct{}

func withIdentity(ctx context.Context, identity *auth.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

func identityFromContext(ctx context.Context) *auth.Identity {
	if identity, ok := ctx.Value(identityContextKey{}).(*auth.Identity); ok {
		return identity
	}
	return nil
}

// RequireAuth validates the bearer token and stores the caller's identity on
// the request context.
func (h *Handlers) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meter := observability.MeterFromContext(r.Context())

		token := bearerToken(r)
		if token == "" {
			meter.Count("auth.rejected", 1, sentry.WithAttributes(
				attribute.String("reason", "missing_token"),
			))
			h.respondJSON(w, r, http.StatusUnauthorized, "authentication required", nil)
			return
		}

		identity, err := h.tokenManager.Verify(token)
		if err != nil {
			meter.Count("auth.rejected", 1, sentry.WithAttributes(
				attribute.String("reason", "invalid_token"),
			))
			h.loggerFromContext(r.Context()).Warn("rejected invalid bearer token", "error", err)
			h.respondJSON(w, r, http.StatusUnauthorized, "invalid or expired token", nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
	})
}

// RequireAdmin allows only tokens carrying the admin claim. Must run after
// RequireAuth.
func (h *Handlers) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := identityFromContext(r.Context())
		if identity == nil {
			h.respondJSON(w, r, http.StatusUnauthorized, "authentication required", nil)
			return
		}
		if !identity.Admin {
			observability.MeterFromContext(r.Context()).Count("auth.rejected", 1, sentry.WithAttributes(
				attribute.String("reason", "not_admin"),
			))
			h.respondJSON(w, r, http.StatusForbidden, "admin access required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
