// ABOUTME: Tests for the Bearer token HTTP middleware
// ABOUTME: Verifies 401 responses, failure logging and Identity propagation

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type httpTestLogHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *httpTestLogHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *httpTestLogHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}

func (h *httpTestLogHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *httpTestLogHandler) WithGroup(string) slog.Handler      { return h }

func (h *httpTestLogHandler) hasRecordWithReason(reason string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.records {
		var found string
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == "reason" {
				found = a.Value.String()
				return false
			}
			return true
		})
		if found == reason {
			return true
		}
	}
	return false
}

type stubIdentifier func(ctx context.Context, token string) (Identity, error)

func (f stubIdentifier) Identify(ctx context.Context, token string) (Identity, error) {
	return f(ctx, token)
}

func serve(t *testing.T, mw func(http.Handler) http.Handler, authz string) (*httptest.ResponseRecorder, *Identity) {
	t.Helper()
	var seen *Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := MustFromContext(r.Context())
		seen = &id
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)
	return rec, seen
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestMiddleware_ValidToken(t *testing.T) {
	f := newProviderFixture(t)
	sess, err := f.p.SignUp(t.Context(), "Ada", "ada@example.com", "secret1")
	require.NoError(t, err)

	rec, seen := serve(t, Middleware(f.p, nil), "Bearer "+sess.Token)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, sess.Identity, *seen)
}

func TestMiddleware_Rejections(t *testing.T) {
	f := newProviderFixture(t)

	tests := []struct {
		name   string
		authz  string
		reason string
	}{
		{"missing header", "", "token_extraction_failed"},
		{"wrong scheme", "Basic abc", "token_extraction_failed"},
		{"empty bearer", "Bearer ", "token_extraction_failed"},
		{"invalid token", "Bearer not-a-token", CodeInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := &httpTestLogHandler{}
			rec, seen := serve(t, Middleware(f.p, slog.New(logs)), tt.authz)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Nil(t, seen)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.NotEmpty(t, errorBody(t, rec))
			assert.True(t, logs.hasRecordWithReason(tt.reason), "expected log reason %q", tt.reason)
		})
	}
}

func TestMiddleware_RevokedSession(t *testing.T) {
	f := newProviderFixture(t)
	sess, err := f.p.SignUp(t.Context(), "Ada", "ada@example.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, f.p.SignOut(t.Context(), sess.Token))

	rec, _ := serve(t, Middleware(f.p, nil), "Bearer "+sess.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "session has ended", errorBody(t, rec))
}

func TestMiddleware_StoreFailure(t *testing.T) {
	ids := stubIdentifier(func(context.Context, string) (Identity, error) {
		return Anonymous, errors.New("database is locked")
	})

	rec, seen := serve(t, Middleware(ids, nil), "Bearer tok")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Nil(t, seen)
	assert.Equal(t, "internal error", errorBody(t, rec))
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, BearerToken(req))

	req.Header.Set("Authorization", "Bearer abc")
	assert.Equal(t, "abc", BearerToken(req))
}
