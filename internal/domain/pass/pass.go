// Package pass issues and validates the signed access pass returned to a
// session after it solves a challenge.
package pass

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer        = "quizgate"
	defaultTTL    = 5 * time.Minute
	generatedSize = 32
)

// Sentinel errors for pass validation.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

// Claims carried by a pass.
type Claims struct {
	Challenge string `json:"chl"`
	jwt.RegisteredClaims
}

// Pass is the decoded form of a valid token.
type Pass struct {
	SessionID string
	Challenge string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithSecret sets the HMAC key. An empty secret keeps the random key.
func WithSecret(secret string) Option {
	return func(i *Issuer) {
		if secret != "" {
			i.secret = []byte(secret)
		}
	}
}

// WithTTL sets the lifetime of issued passes.
func WithTTL(ttl time.Duration) Option {
	return func(i *Issuer) {
		if ttl > 0 {
			i.ttl = ttl
		}
	}
}

// WithClock sets the clock used for issue and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

// Issuer signs HS256 passes.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an Issuer. Without WithSecret a random per-process key
// is used, so passes do not survive a restart.
func NewIssuer(opts ...Option) (*Issuer, error) {
	i := &Issuer{ttl: defaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	if len(i.secret) == 0 {
		key := make([]byte, generatedSize)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate pass secret: %w", err)
		}
		i.secret = key
	}
	return i, nil
}

// TTL returns the lifetime of issued passes.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue signs a pass for sessionID after it solved a challenge of kind.
func (i *Issuer) Issue(sessionID, kind string) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.ttl)
	claims := &Claims{
		Challenge: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign pass: %w", err)
	}
	return token, exp, nil
}

// Validate checks the signature and expiry of token.
func (i *Issuer) Validate(token string) (Pass, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return i.secret, nil
		},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Pass{}, ErrExpiredToken
		}
		return Pass{}, ErrInvalidToken
	}
	if !parsed.Valid || claims.Subject == "" {
		return Pass{}, ErrInvalidToken
	}

	return Pass{
		SessionID: claims.Subject,
		Challenge: claims.Challenge,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
