// ABOUTME: HTTP middleware authenticating Bearer session tokens
// ABOUTME: Resolves the token to an Identity and stores it in the request context

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// Identifier resolves session tokens. Provider implements it.
type Identifier interface {
	Identify(ctx context.Context, token string) (Identity, error)
}

var _ Identifier = (*Provider)(nil)

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// BearerToken returns the request's bearer token, or "".
func BearerToken(r *http.Request) string {
	token, _ := extractBearerToken(r.Header.Get("Authorization"))
	return token
}

// Middleware rejects requests without a valid session token with 401 and
// otherwise stores the caller's Identity in the request context.
func Middleware(ids Identifier, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "http-auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
			if errMsg != "" {
				logger.Debug("http auth failure", "reason", "token_extraction_failed", "path", r.URL.Path)
				writeAuthError(w, http.StatusUnauthorized, errMsg)
				return
			}

			id, err := ids.Identify(r.Context(), token)
			if err != nil {
				var ae *AuthError
				if !errors.As(err, &ae) {
					logger.Error("identify failed", "error", err, "path", r.URL.Path)
					writeAuthError(w, http.StatusInternalServerError, "internal error")
					return
				}
				logger.Debug("http auth failure", "reason", ae.Code, "path", r.URL.Path)
				writeAuthError(w, http.StatusUnauthorized, ae.Message)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
