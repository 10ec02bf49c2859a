// ABOUTME: Identity is the authenticated principal feature data belongs to
// ABOUTME: Carries the user id plus an authentication status

package auth

// Status is the authentication state of an Identity.
type Status string

const (
	StatusUnauthenticated Status = "unauthenticated"
	StatusAuthenticating  Status = "authenticating"
	StatusAuthenticated   Status = "authenticated"
)

// Identity describes the current principal.
type Identity struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Status Status `json:"status"`
}

// Authenticated reports whether feature data may be bound to this identity.
func (i Identity) Authenticated() bool {
	return i.Status == StatusAuthenticated && i.UserID != ""
}

// Anonymous is the identity of a caller with no valid session.
var Anonymous = Identity{Status: StatusUnauthenticated}
