// ABOUTME: JWT issuing and verification for session tokens
// ABOUTME: Uses HS256 with a configured secret; tokens carry user and session ids

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/issambenlahbib/levelupmy-life/internal/clock"
)

// MinSecretLength is the minimum signing secret size in bytes.
const MinSecretLength = 32

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
	ErrShortSecret  = fmt.Errorf("jwt secret must be at least %d bytes", MinSecretLength)
)

// Claims are the verified contents of a session token.
type Claims struct {
	UserID    string
	SessionID string
	ExpiresAt time.Time
}

// TokenVerifier verifies session tokens.
type TokenVerifier interface {
	Verify(tokenString string) (Claims, error)
}

// JWTIssuer signs and verifies HS256 session tokens.
type JWTIssuer struct {
	secret []byte
	clock  clock.Clock
}

var _ TokenVerifier = (*JWTIssuer)(nil)

// NewJWTIssuer creates an issuer. The secret must be at least
// MinSecretLength bytes.
func NewJWTIssuer(secret []byte, clk clock.Clock) (*JWTIssuer, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrShortSecret
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &JWTIssuer{secret: secret, clock: clk}, nil
}

// Issue creates a token for a session.
func (j *JWTIssuer) Issue(userID, sessionID string, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"sid": sessionID,
		"iat": j.clock.Now().Unix(),
		"exp": expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// Verify validates the token signature and expiry and extracts its claims.
func (j *JWTIssuer) Verify(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	}, jwt.WithTimeFunc(j.clock.Now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpiredToken
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return Claims{}, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	sid, ok := claims["sid"].(string)
	if !ok || sid == "" {
		return Claims{}, fmt.Errorf("%w: sid", ErrMissingClaim)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return Claims{}, fmt.Errorf("%w: exp", ErrMissingClaim)
	}
	return Claims{UserID: sub, SessionID: sid, ExpiresAt: exp.Time}, nil
}
