package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/Tamilarasan-gessdemn/green-backend/internal/auth"
)

func TestBearerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "no header", header: "", want: ""},
		{name: "bearer token", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "case insensitive scheme", header: "bearer abc", want: "abc"},
		{name: "wrong scheme", header: "Token abc", want: ""},
		{name: "scheme only", header: "Bearer", want: ""},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			if got := bearerToken(r); got != tc.want {
				t.Fatalf("bearerToken() = %q, want %q", got, tc.want)
			}
		})
	}
}

func newAuthTestHandlers(t *testing.T) (*Handlers, *auth.TokenManager) {
	t.Helper()
	manager := auth.NewTokenManager(strings.Repeat("s", 32))
	return &Handlers{tokenManager: manager}, manager
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	h, manager := newAuthTestHandlers(t)
	userID := uuid.New()

	var seen *auth.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = identityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	t.Run("valid token passes identity through", func(t *testing.T) {
		token, err := manager.Issue(auth.Identity{UserID: userID, Email: "asha@example.com"})
		if err != nil {
			t.Fatal(err)
		}

		r := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		h.RequireAuth(next).ServeHTTP(w, r)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if seen == nil || seen.UserID != userID {
			t.Fatalf("identity = %+v, want user %s", seen, userID)
		}
	})

	t.Run("missing token is rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
		w := httptest.NewRecorder()

		h.RequireAuth(next).ServeHTTP(w, r)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
		var body envelope
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if body.Success {
			t.Error("success should be false")
		}
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
		r.Header.Set("Authorization", "Bearer not-a-jwt")
		w := httptest.NewRecorder()

		h.RequireAuth(next).ServeHTTP(w, r)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
	})
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	h, _ := newAuthTestHandlers(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("admin identity passes", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
		r = r.WithContext(withIdentity(r.Context(), &auth.Identity{UserID: uuid.New(), Admin: true}))
		w := httptest.NewRecorder()

		h.RequireAdmin(next).ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
		r = r.WithContext(withIdentity(r.Context(), &auth.Identity{UserID: uuid.New()}))
		w := httptest.NewRecorder()

		h.RequireAdmin(next).ServeHTTP(w, r)
		if w.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", w.Code)
		}
	})

	t.Run("no identity is unauthorized", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
		w := httptest.NewRecorder()

		h.RequireAdmin(next).ServeHTTP(w, r)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
	})
}
