// ABOUTME: Tests for the identity provider against the in-memory store
// ABOUTME: Covers sign-up, sign-in, sign-out, password reset and identity events

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/issambenlahbib/levelupmy-life/internal/remote"
	"github.com/issambenlahbib/levelupmy-life/internal/store"
	"github.com/issambenlahbib/levelupmy-life/internal/testutil"
)

type resetOutbox struct {
	mu     sync.Mutex
	tokens map[string]string // email -> latest token
	sent   int
}

func (o *resetOutbox) NotifyPasswordReset(_ context.Context, user *store.User, token string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.tokens == nil {
		o.tokens = make(map[string]string)
	}
	o.tokens[user.Email] = token
	o.sent++
	return nil
}

func (o *resetOutbox) token(email string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.tokens[email]
}

func (o *resetOutbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sent
}

type providerFixture struct {
	p      *Provider
	users  *store.MockStore
	clock  *testutil.FakeClock
	outbox *resetOutbox
}

// The mock store expires sessions against wall time, so the fake clock
// starts at the real current time.
func newProviderFixture(t *testing.T) *providerFixture {
	t.Helper()
	users := store.NewMockStore()
	clk := testutil.NewFakeClock(time.Now())
	issuer, err := NewJWTIssuer(testSecret, clk)
	require.NoError(t, err)
	outbox := &resetOutbox{}

	p, err := NewProvider(Config{
		Users:      users,
		Tokens:     issuer,
		Profiles:   remote.NewLocal(users),
		Audit:      users,
		Notifier:   outbox,
		BcryptCost: bcrypt.MinCost,
		Clock:      clk,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	return &providerFixture{p: p, users: users, clock: clk, outbox: outbox}
}

func TestNewProvider_RequiresCollaborators(t *testing.T) {
	_, err := NewProvider(Config{})
	require.Error(t, err)

	_, err = NewProvider(Config{Users: store.NewMockStore()})
	require.Error(t, err)
}

func TestSignUp_CreatesAccountAndSession(t *testing.T) {
	f := newProviderFixture(t)
	ctx := t.Context()

	sess, err := f.p.SignUp(ctx, "  Ada  ", "Ada@Example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "Ada", sess.Identity.Name)
	assert.Equal(t, "ada@example.com", sess.Identity.Email)
	assert.Equal(t, StatusAuthenticated, sess.Identity.Status)
	assert.True(t, sess.ExpiresAt.After(f.clock.Now()))

	id, err := f.p.Identify(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.Identity, id)
}

func TestSignUp_WritesProfileDocument(t *testing.T) {
	f := newProviderFixture(t)

	sess, err := f.p.SignUp(t.Context(), "Ada", "ada@example.com", "secret1")
	require.NoError(t, err)

	doc, err := f.users.GetDocument(t.Context(), "users/"+sess.Identity.UserID)
	require.NoError(t, err)
	var profile map[string]any
	require.NoError(t, json.Unmarshal(doc.Data, &profile))
	assert.Equal(t, "ada@example.com", profile["email"])
	assert.Equal(t, "Ada", profile["name"])
	assert.NotEmpty(t, profile["createdAt"])
}

func TestSignUp_Validation(t *testing.T) {
	f := newProviderFixture(t)

	tests := []struct {
		name     string
		user     string
		email    string
		password string
		code     string
	}{
		{"blank name", "   ", "a@example.com", "secret1", CodeInvalidName},
		{"bad email", "Ada", "not-an-email", "secret1", CodeInvalidEmail},
		{"display name email", "Ada", "Ada <a@example.com>", "secret1", CodeInvalidEmail},
		{"short password", "Ada", "a@example.com", "12345", CodeWeakPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.p.SignUp(t.Context(), tt.user, tt.email, tt.password)
			require.Error(t, err)
			assert.Equal(t, tt.code, CodeOf(err))
		})
	}
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	f := newProviderFixture(t)

	_, err := f.p.SignUp(t.Context(), "Ada", "ada@example.com", "secret1")
	require.NoError(t, err)

	_, err = f.p.SignUp(t.Context(), "Other", "ADA@example.com", "secret2")
	assert.ErrorIs(t, err, ErrEmailInUse)
}

func TestSignIn(t *testing.T) {
	f := newProviderFixture(t)
	_, err := f.p.SignUp(t.Context(), "Ada", "ada@example.com", "secret1")
	require.NoError(t, err)

	t.Run("correct password", func(t *testing.T) {
		sess, err := f.p.SignIn(t.Context(), "ada@example.com", "secret1")
		require.NoError(t, err)
		assert.Equal(t, "Ada", sess.Identity.Name)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.p.SignIn(t.Context(), "ada@example.com", "wrong-pass")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := f.p.SignIn(t.Context(), "nobody@example.com", "secret1")
		assert.ErrorIs(t, err, ErrUnknownAccount)
	})
}

func TestSignOut_RevokesSession(t *testing.T) {
	f := newProviderFixture(t)
	ctx := t.Context()

	first, err := f.p.SignUp(ctx, "Ada", "ada@example.com", "secret1")
	require.NoError(t, err)
	second, err := f.p.SignIn(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, f.p.SignOut(ctx, first.Token))

	_, err = f.p.Identify(ctx, first.Token)
	assert.ErrorIs(t, err, ErrInvalidSession)

	_, err = f.p.Identify(ctx, second.Token)
	assert.NoError(t, err, "other sessions stay valid")

	assert.ErrorIs(t, f.p.SignOut(ctx, first.Token), ErrInvalidSession)
}

func TestIdentify_ExpiredToken(t *testing.T) {
	f := newProviderFixture(t)

	sess, err := f.p.SignUp(t.Context(), "Ada", "ada@example.com", "secret1")
	require.NoError(t, err)

	f.clock.Advance(DefaultSessionTTL + time.Minute)
	id, err := f.p.Identify(t.Context(), sess.Token)
	assert.ErrorIs(t, err, ErrInvalidSession)
	assert.Equal(t, Anonymous, id)
}

func TestPasswordReset_Flow(t *testing.T) {
	f := newProviderFixture(t)
	ctx := t.Context()

	sess, err := f.p.SignUp(ctx, "Ada", "ada@example.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, f.p.RequestPasswordReset(ctx, "ada@example.com"))
	token := f.outbox.token("ada@example.com")
	require.NotEmpty(t, token)

	require.NoError(t, f.p.ResetPassword(ctx, token, "newsecret"))

	_, err = f.p.SignIn(ctx, "ada@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.p.SignIn(ctx, "ada@example.com", "newsecret")
	assert.NoError(t, err)

	_, err = f.p.Identify(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrInvalidSession, "reset revokes existing sessions")

	err = f.p.ResetPassword(ctx, token, "another1")
	assert.Equal(t, CodeInvalidToken, CodeOf(err), "tokens are single use")
}

func TestActivity_RecordsAccountEvents(t *testing.T) {
	f := newProviderFixture(t)
	ctx := t.Context()

	sess, err := f.p.SignUp(ctx, "Ada", "ada@example.com", "secret1")
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	require.NoError(t, f.p.SignOut(ctx, sess.Token))
	f.clock.Advance(time.Second)
	_, err = f.p.SignIn(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	require.NoError(t, f.p.RequestPasswordReset(ctx, "ada@example.com"))
	f.clock.Advance(time.Second)
	require.NoError(t, f.p.ResetPassword(ctx, f.outbox.token("ada@example.com"), "newsecret"))

	entries, err := f.p.Activity(ctx, sess.Identity.UserID, 0)
	require.NoError(t, err)
	var actions []store.AuditAction
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []store.AuditAction{
		store.AuditPasswordReset,
		store.AuditResetRequested,
		store.AuditSignIn,
		store.AuditSignOut,
		store.AuditSignUp,
	}, actions)
	assert.NotEmpty(t, entries[4].SessionID)
	assert.Equal(t, entries[4].SessionID, entries[3].SessionID, "sign-out names the session it ended")
	assert.NotEqual(t, entries[4].SessionID, entries[2].SessionID)

	limited, err := f.p.Activity(ctx, sess.Identity.UserID, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestActivity_WithoutAuditStore(t *testing.T) {
	users := store.NewMockStore()
	issuer, err := NewJWTIssuer(testSecret, nil)
	require.NoError(t, err)
	p, err := NewProvider(Config{Users: users, Tokens: issuer, BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	_, err = p.SignUp(t.Context(), "Ada", "ada@example.com", "secret1")
	require.NoError(t, err)
	entries, err := p.Activity(t.Context(), "anyone", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPasswordReset_UnknownEmailDoesNotLeak(t *testing.T) {
	f := newProviderFixture(t)

	require.NoError(t, f.p.RequestPasswordReset(t.Context(), "ghost@example.com"))
	assert.Zero(t, f.outbox.count())
}

func TestPasswordReset_Throttled(t *testing.T) {
	f := newProviderFixture(t)
	ctx := t.Context()
	_, err := f.p.SignUp(ctx, "Ada", "ada@example.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, f.p.RequestPasswordReset(ctx, "ada@example.com"))
	require.NoError(t, f.p.RequestPasswordReset(ctx, "ADA@example.com"))
	assert.Equal(t, 1, f.outbox.count())

	f.clock.Advance(DefaultResetThrottle + time.Second)
	require.NoError(t, f.p.RequestPasswordReset(ctx, "ada@example.com"))
	assert.Equal(t, 2, f.outbox.count())
}

func TestPasswordReset_Expired(t *testing.T) {
	f := newProviderFixture(t)
	ctx := t.Context()
	_, err := f.p.SignUp(ctx, "Ada", "ada@example.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, f.p.RequestPasswordReset(ctx, "ada@example.com"))
	token := f.outbox.token("ada@example.com")

	f.clock.Advance(DefaultResetTokenTTL + time.Minute)
	err = f.p.ResetPassword(ctx, token, "newsecret")
	assert.Equal(t, CodeInvalidToken, CodeOf(err))
}

func TestResetPassword_WeakPassword(t *testing.T) {
	f := newProviderFixture(t)

	err := f.p.ResetPassword(t.Context(), "whatever", "123")
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestSubscribe_IdentityTransitions(t *testing.T) {
	f := newProviderFixture(t)
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	events := f.p.Subscribe(ctx)

	sess, err := f.p.SignUp(ctx, "Ada", "ada@example.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, f.p.SignOut(ctx, sess.Token))

	in := <-events
	assert.Equal(t, EventSignedIn, in.Type)
	assert.Equal(t, sess.Identity.UserID, in.Identity.UserID)
	assert.True(t, in.Identity.Authenticated())

	out := <-events
	assert.Equal(t, EventSignedOut, out.Type)
	assert.Equal(t, sess.Identity.UserID, out.Identity.UserID)
	assert.False(t, out.Identity.Authenticated())
}

func TestSubscribe_ClosedWithProvider(t *testing.T) {
	f := newProviderFixture(t)
	events := f.p.Subscribe(t.Context())

	require.NoError(t, f.p.Close())
	_, ok := <-events
	assert.False(t, ok)
}

func TestAuthError_Is(t *testing.T) {
	err := authErr(CodeWeakPassword, "too short")
	assert.True(t, errors.Is(err, ErrWeakPassword))
	assert.False(t, errors.Is(err, ErrEmailInUse))
	assert.Equal(t, "auth: too short", err.Error())
}
