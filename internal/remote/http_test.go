// ABOUTME: Tests for HTTPClient status mapping and request shape
// ABOUTME: Full round trips against the real server live in the server package

package remote

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPClient_RejectsBadScheme(t *testing.T) {
	_, err := NewHTTPClient("ftp://example.com", "tok")
	assert.Error(t, err)
}

func TestHTTPClient_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusUnauthorized, ErrPermissionDenied},
		{http.StatusForbidden, ErrPermissionDenied},
		{http.StatusServiceUnavailable, ErrTransientIO},
		{http.StatusTooManyRequests, ErrTransientIO},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "nope"})
			}))
			defer srv.Close()

			c, err := NewHTTPClient(srv.URL, "tok")
			require.NoError(t, err)

			_, err = c.FetchOnce(t.Context(), NewHandle("notes", "u1"))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestHTTPClient_SendsBearerAndBody(t *testing.T) {
	var gotAuth, gotMethod, gotPath string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotMethod = r.Method
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(Snapshot{Path: "users/u1/tasks/data", Exists: true, Version: 2, Data: json.RawMessage(`{"tasks":[]}`)})
	}))
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL+"/", "tok-123")
	require.NoError(t, err)

	err = c.Merge(t.Context(), NewHandle("users", "u1", "tasks", "data"), Document{"tasks": []any{}})
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Equal(t, "/api/docs/users/u1/tasks/data", gotPath)
	assert.Contains(t, gotBody, "tasks")
}
