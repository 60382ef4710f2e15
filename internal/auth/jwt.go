// Package auth holds the credential primitives: bearer tokens, password
// hashing, GitHub sign-in and the HTTP gate that resolves the caller.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/skillshare/internal/clock"
)

const (
	issuer = "skillshare"

	DefaultTokenTTL = 24 * time.Hour
)

var (
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrExpiredToken = errors.New("auth: token expired")
)

// Identity is what a valid token proves: the subject email and when the
// token was minted.
type Identity struct {
	Email    string
	IssuedAt time.Time
}

// TokenService issues and validates HS256 bearer tokens whose subject is the
// user's email.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

// NewTokenService rejects secrets shorter than 16 bytes. A zero ttl falls
// back to DefaultTokenTTL and a nil clock to the wall clock.
func NewTokenService(secret string, ttl time.Duration, clk clock.Clock) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if clk == nil {
		clk = clock.NewReal()
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, clock: clk}, nil
}

type claims struct {
	jwt.RegisteredClaims
}

// Issue signs a token for email valid for the configured TTL.
func (s *TokenService) Issue(email string) (string, error) {
	return s.IssueWithDuration(email, s.ttl)
}

// IssueWithDuration signs a token for email that expires after d. Tests use a
// negative d to produce already-expired tokens.
func (s *TokenService) IssueWithDuration(email string, d time.Duration) (string, error) {
	if email == "" {
		return "", errors.New("auth: token subject is empty")
	}
	now := s.clock.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies signature, issuer and expiry and returns the identity the
// token carries. Failures wrap ErrExpiredToken or ErrInvalidToken.
func (s *TokenService) Validate(tokenStr string) (Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrExpiredToken
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}
	if c.Subject == "" {
		return Identity{}, fmt.Errorf("%w: token has no subject", ErrInvalidToken)
	}

	id := Identity{Email: c.Subject}
	if c.IssuedAt != nil {
		id.IssuedAt = c.IssuedAt.Time
	}
	return id, nil
}
