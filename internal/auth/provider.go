// ABOUTME: Provider implements sign-up, sign-in, password reset and sign-out
// ABOUTME: Sessions are stored rows referenced by JWTs so they can be revoked

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/issambenlahbib/levelupmy-life/internal/clock"
	"github.com/issambenlahbib/levelupmy-life/internal/dedupe"
	"github.com/issambenlahbib/levelupmy-life/internal/remote"
	"github.com/issambenlahbib/levelupmy-life/internal/store"
)

// Defaults applied by NewProvider.
const (
	DefaultSessionTTL        = 30 * 24 * time.Hour
	DefaultResetTokenTTL     = time.Hour
	DefaultMinPasswordLength = 6
	DefaultResetThrottle     = time.Minute

	resetTokenBytes   = 32
	resetThrottleKeys = 10000
)

// ResetNotifier delivers a password reset token to the account holder.
type ResetNotifier interface {
	NotifyPasswordReset(ctx context.Context, user *store.User, token string) error
}

// ResetNotifierFunc adapts a function to ResetNotifier.
type ResetNotifierFunc func(ctx context.Context, user *store.User, token string) error

// NotifyPasswordReset calls f.
func (f ResetNotifierFunc) NotifyPasswordReset(ctx context.Context, user *store.User, token string) error {
	return f(ctx, user, token)
}

// Config configures a Provider. Users and Tokens are required.
type Config struct {
	Users  store.UserStore
	Tokens *JWTIssuer

	// Profiles receives users/{uid} on sign-up when set.
	Profiles remote.Client
	// Audit records account activity when set.
	Audit store.AuditStore
	// Notifier defaults to logging the reset at debug level.
	Notifier ResetNotifier
	// ResetThrottle limits reset requests per email. A cache with
	// DefaultResetThrottle is created when nil.
	ResetThrottle *dedupe.Cache

	BcryptCost        int
	SessionTTL        time.Duration
	ResetTokenTTL     time.Duration
	MinPasswordLength int

	Clock  clock.Clock
	Logger *slog.Logger
}

// Session is the result of a successful sign-in.
type Session struct {
	Token     string    `json:"token"`
	Identity  Identity  `json:"identity"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Provider is the identity provider.
type Provider struct {
	users         store.UserStore
	tokens        *JWTIssuer
	profiles      remote.Client
	audit         store.AuditStore
	notifier      ResetNotifier
	throttle      *dedupe.Cache
	ownsThrottle  bool
	cost          int
	sessionTTL    time.Duration
	resetTTL      time.Duration
	minPassword   int
	clock         clock.Clock
	logger        *slog.Logger
	events        *eventHub
}

// NewProvider creates a Provider, filling unset Config fields with defaults.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.Users == nil {
		return nil, errors.New("auth: user store is required")
	}
	if cfg.Tokens == nil {
		return nil, errors.New("auth: token issuer is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "auth")
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}

	p := &Provider{
		users:       cfg.Users,
		tokens:      cfg.Tokens,
		profiles:    cfg.Profiles,
		audit:       cfg.Audit,
		notifier:    cfg.Notifier,
		throttle:    cfg.ResetThrottle,
		cost:        cfg.BcryptCost,
		sessionTTL:  cfg.SessionTTL,
		resetTTL:    cfg.ResetTokenTTL,
		minPassword: cfg.MinPasswordLength,
		clock:       clk,
		logger:      logger,
		events:      newEventHub(logger),
	}
	if p.cost == 0 {
		p.cost = bcrypt.DefaultCost
	}
	if p.sessionTTL <= 0 {
		p.sessionTTL = DefaultSessionTTL
	}
	if p.resetTTL <= 0 {
		p.resetTTL = DefaultResetTokenTTL
	}
	if p.minPassword <= 0 {
		p.minPassword = DefaultMinPasswordLength
	}
	if p.notifier == nil {
		p.notifier = ResetNotifierFunc(p.logReset)
	}
	if p.throttle == nil {
		p.throttle = dedupe.New(DefaultResetThrottle, resetThrottleKeys, dedupe.WithClock(clk))
		p.ownsThrottle = true
	}
	return p, nil
}

// Close stops background work and closes event subscriptions.
func (p *Provider) Close() error {
	if p.ownsThrottle {
		p.throttle.Close()
	}
	p.events.close()
	return nil
}

// Subscribe returns identity transitions until ctx is done or the provider
// is closed.
func (p *Provider) Subscribe(ctx context.Context) <-chan Event {
	return p.events.subscribe(ctx)
}

// SignUp creates an account and signs it in.
func (p *Provider) SignUp(ctx context.Context, name, email, password string) (*Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, authErr(CodeInvalidName, "name is required")
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := p.checkPassword(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &store.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		CreatedAt:    p.clock.Now().UTC(),
	}
	if err := p.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			return nil, authErr(CodeEmailInUse, "an account with this email already exists")
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}
	p.logger.Info("user signed up", "uid", user.ID)

	p.writeProfile(ctx, user)
	return p.startSession(ctx, user, store.AuditSignUp)
}

// SignIn verifies credentials and starts a session.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	user, err := p.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, authErr(CodeUnknownAccount, "no account found for this email")
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, authErr(CodeInvalidCredentials, "incorrect email or password")
	}
	return p.startSession(ctx, user, store.AuditSignIn)
}

func (p *Provider) startSession(ctx context.Context, user *store.User, action store.AuditAction) (*Session, error) {
	now := p.clock.Now().UTC()
	sess := &store.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(p.sessionTTL),
	}
	if err := p.users.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	token, err := p.tokens.Issue(user.ID, sess.ID, sess.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}

	id := identityOf(user)
	p.events.publish(Event{Type: EventSignedIn, Identity: id, SessionID: sess.ID, At: now})
	p.record(ctx, user.ID, action, sess.ID, nil)
	p.logger.Debug("session started", "uid", user.ID, "sid", sess.ID)
	return &Session{Token: token, Identity: id, ExpiresAt: sess.ExpiresAt}, nil
}

// Identify resolves a bearer token to the signed-in Identity.
func (p *Provider) Identify(ctx context.Context, token string) (Identity, error) {
	id, _, err := p.resolve(ctx, token)
	return id, err
}

func (p *Provider) resolve(ctx context.Context, token string) (Identity, Claims, error) {
	claims, err := p.tokens.Verify(token)
	if err != nil {
		return Anonymous, Claims{}, authErr(CodeInvalidToken, "session is invalid or expired")
	}
	sess, err := p.users.GetSession(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Anonymous, Claims{}, authErr(CodeInvalidToken, "session has ended")
		}
		return Anonymous, Claims{}, fmt.Errorf("looking up session: %w", err)
	}
	if sess.UserID != claims.UserID {
		return Anonymous, Claims{}, authErr(CodeInvalidToken, "session is invalid or expired")
	}
	user, err := p.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Anonymous, Claims{}, authErr(CodeUnknownAccount, "account no longer exists")
		}
		return Anonymous, Claims{}, fmt.Errorf("looking up user: %w", err)
	}
	return identityOf(user), claims, nil
}

// SignOut revokes the session the token refers to.
func (p *Provider) SignOut(ctx context.Context, token string) error {
	id, claims, err := p.resolve(ctx, token)
	if err != nil {
		return err
	}
	if err := p.users.DeleteSession(ctx, claims.SessionID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	id.Status = StatusUnauthenticated
	p.events.publish(Event{Type: EventSignedOut, Identity: id, SessionID: claims.SessionID, At: p.clock.Now().UTC()})
	p.record(ctx, id.UserID, store.AuditSignOut, claims.SessionID, nil)
	p.logger.Debug("session ended", "uid", id.UserID, "sid", claims.SessionID)
	return nil
}

// RequestPasswordReset issues a reset token for the account with email.
// It returns nil for unknown or throttled emails so callers cannot probe
// which accounts exist.
func (p *Provider) RequestPasswordReset(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	if !p.throttle.Allow(email) {
		p.logger.Debug("password reset throttled")
		return nil
	}

	user, err := p.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		p.throttle.Forget(email)
		return fmt.Errorf("looking up user: %w", err)
	}

	token, hash, err := newResetToken()
	if err != nil {
		p.throttle.Forget(email)
		return err
	}
	now := p.clock.Now().UTC()
	reset := &store.PasswordReset{
		TokenHash: hash,
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(p.resetTTL),
	}
	if err := p.users.CreatePasswordReset(ctx, reset); err != nil {
		p.throttle.Forget(email)
		return fmt.Errorf("storing reset: %w", err)
	}
	if err := p.notifier.NotifyPasswordReset(ctx, user, token); err != nil {
		return fmt.Errorf("sending reset: %w", err)
	}
	p.record(ctx, user.ID, store.AuditResetRequested, "", map[string]any{"expiresAt": reset.ExpiresAt.Format(time.RFC3339)})
	p.logger.Info("password reset issued", "uid", user.ID)
	return nil
}

// ResetPassword consumes a reset token, sets the new password and revokes
// every session of the account.
func (p *Provider) ResetPassword(ctx context.Context, token, password string) error {
	if err := p.checkPassword(password); err != nil {
		return err
	}
	reset, err := p.users.ConsumePasswordReset(ctx, hashResetToken(token), p.clock.Now())
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return authErr(CodeInvalidToken, "reset link is invalid")
		case errors.Is(err, store.ErrResetTokenUsed):
			return authErr(CodeInvalidToken, "reset link was already used")
		case errors.Is(err, store.ErrResetTokenExpired):
			return authErr(CodeInvalidToken, "reset link has expired")
		}
		return fmt.Errorf("consuming reset: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := p.users.UpdateUserPassword(ctx, reset.UserID, string(hash)); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	if err := p.users.DeleteUserSessions(ctx, reset.UserID); err != nil {
		return fmt.Errorf("revoking sessions: %w", err)
	}

	id := Identity{UserID: reset.UserID, Status: StatusUnauthenticated}
	if user, err := p.users.GetUser(ctx, reset.UserID); err == nil {
		id = identityOf(user)
		id.Status = StatusUnauthenticated
	}
	p.events.publish(Event{Type: EventSignedOut, Identity: id, At: p.clock.Now().UTC()})
	p.record(ctx, reset.UserID, store.AuditPasswordReset, "", nil)
	p.logger.Info("password reset completed", "uid", reset.UserID)
	return nil
}

// Activity returns the account activity of userID, newest first.
func (p *Provider) Activity(ctx context.Context, userID string, limit int) ([]store.AuditEntry, error) {
	if p.audit == nil {
		return []store.AuditEntry{}, nil
	}
	entries, err := p.audit.ListAuditLog(ctx, store.AuditFilter{UserID: userID, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	return entries, nil
}

// record appends to the activity log. Failures never fail the caller.
func (p *Provider) record(ctx context.Context, userID string, action store.AuditAction, sessionID string, detail map[string]any) {
	if p.audit == nil {
		return
	}
	e := &store.AuditEntry{
		UserID:    userID,
		Action:    action,
		SessionID: sessionID,
		Timestamp: p.clock.Now().UTC(),
		Detail:    detail,
	}
	if err := p.audit.AppendAuditLog(ctx, e); err != nil {
		p.logger.Warn("failed to record activity", "uid", userID, "action", action, "error", err)
	}
}

func (p *Provider) checkPassword(password string) error {
	if len(password) < p.minPassword {
		return authErr(CodeWeakPassword, "password must be at least %d characters", p.minPassword)
	}
	return nil
}

func (p *Provider) writeProfile(ctx context.Context, user *store.User) {
	if p.profiles == nil {
		return
	}
	profile := remote.Document{
		"email":     user.Email,
		"name":      user.Name,
		"createdAt": user.CreatedAt.Format(time.RFC3339),
	}
	if err := p.profiles.Replace(ctx, remote.NewHandle("users", user.ID), profile); err != nil {
		p.logger.Warn("failed to write profile", "uid", user.ID, "error", err)
	}
}

func (p *Provider) logReset(_ context.Context, user *store.User, token string) error {
	p.logger.Debug("password reset token", "uid", user.ID, "email", user.Email, "token", token)
	return nil
}

func identityOf(u *store.User) Identity {
	return Identity{UserID: u.ID, Email: u.Email, Name: u.Name, Status: StatusAuthenticated}
}

func normalizeEmail(email string) (string, error) {
	email = store.NormalizeEmail(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", authErr(CodeInvalidEmail, "email address is not valid")
	}
	return email, nil
}

func newResetToken() (token, hash string, err error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generating reset token: %w", err)
	}
	token = base64.RawURLEncoding.EncodeToString(buf)
	return token, hashResetToken(token), nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
