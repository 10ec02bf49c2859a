// ABOUTME: AuthError reports a rejected credential operation with a stable code
// ABOUTME: Messages are user-facing; codes are for programmatic handling

package auth

import (
	"errors"
	"fmt"
)

// Error codes carried by AuthError.
const (
	CodeInvalidCredentials = "invalid_credentials"
	CodeUnknownAccount     = "unknown_account"
	CodeWeakPassword       = "weak_password"
	CodeEmailInUse         = "email_in_use"
	CodeInvalidEmail       = "invalid_email"
	CodeInvalidToken       = "invalid_token"
	CodeInvalidName        = "invalid_name"
)

// AuthError is returned when the provider rejects a credential operation.
// It is never retried automatically.
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth: %s", e.Message)
}

// Is matches another AuthError with the same code.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Code == e.Code
}

func authErr(code, format string, args ...any) *AuthError {
	return &AuthError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Sentinels for errors.Is comparisons by code.
var (
	ErrInvalidCredentials = &AuthError{Code: CodeInvalidCredentials}
	ErrUnknownAccount     = &AuthError{Code: CodeUnknownAccount}
	ErrWeakPassword       = &AuthError{Code: CodeWeakPassword}
	ErrEmailInUse         = &AuthError{Code: CodeEmailInUse}
	ErrInvalidEmail       = &AuthError{Code: CodeInvalidEmail}
	ErrInvalidSession     = &AuthError{Code: CodeInvalidToken}
)

// CodeOf returns the AuthError code in err's chain, or "".
func CodeOf(err error) string {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
