package sec

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionTTL is the lifetime of an issued session token.
const SessionTTL = 24 * time.Hour

// secretLen is the size of secrets produced by [GenerateSecret].
const secretLen = 32

var (
	errEmptySecret      = errors.New("session signing secret is empty")
	errNotAuthenticated = errors.New("token does not assert authentication")
)

// SessionClaims are the claims carried by a session token.
type SessionClaims struct {
	Authenticated bool `json:"authenticated"`
	jwt.RegisteredClaims
}

// Tokens issues and validates session tokens signed with a process-wide
// secret.
type Tokens struct {
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

// TokenOption customizes [Tokens].
type TokenOption func(*Tokens)

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(t *Tokens) { t.now = now }
}

// NewTokens creates a Tokens keyed by secret, which must not be empty.
func NewTokens(secret []byte, opts ...TokenOption) (*Tokens, error) {
	if len(secret) == 0 {
		return nil, errEmptySecret
	}
	tkns := &Tokens{
		secret: secret,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(tkns)
	}
	tkns.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(func() time.Time { return tkns.now() }),
	)
	return tkns, nil
}

// Issue mints a token asserting authentication, valid for [SessionTTL].
func (t *Tokens) Issue() (string, error) {
	now := t.now()
	claims := SessionClaims{
		Authenticated: true,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature and validity window of token and returns its
// claims. The error describes the failure for logging only; it must never be
// shown to clients.
func (t *Tokens) Parse(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, err := t.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	})
	switch {
	case err != nil:
		return nil, err
	case !parsed.Valid:
		return nil, jwt.ErrTokenUnverifiable
	case claims.IssuedAt == nil:
		return nil, jwt.ErrTokenRequiredClaimMissing
	case !claims.Authenticated:
		return nil, errNotAuthenticated
	}
	return claims, nil
}

// Validate reports whether token is a well-formed, correctly signed, unexpired
// session token.
func (t *Tokens) Validate(token string) bool {
	_, err := t.Parse(token)
	return err == nil
}

// GenerateSecret returns a random signing secret. It is used in dev mode when
// no secret is configured; such a secret lives only as long as the process.
func GenerateSecret() ([]byte, error) {
	secret := make([]byte, secretLen)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate signing secret: %w", err)
	}
	return secret, nil
}
