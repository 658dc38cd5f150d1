package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrUnknownSubject = errors.New("unknown token subject")
)

type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 identity tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (i *Issuer) Issue(userID string, role Role) (string, error) {
	now := i.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// Verify checks signature and expiry. It does not know whether the subject
// still exists; see Authenticator.
func (i *Issuer) Verify(token string) (Claims, error) {
	var c Claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, ErrTokenExpired
	case err != nil:
		return Claims{}, ErrTokenInvalid
	}
	if c.Subject == "" {
		return Claims{}, ErrTokenInvalid
	}
	if _, err := ParseRole(string(c.Role)); err != nil {
		return Claims{}, ErrTokenInvalid
	}
	return c, nil
}

// SubjectLookup returns the current role of a user, or ErrUnknownSubject.
type SubjectLookup interface {
	RoleOf(ctx context.Context, userID string) (Role, error)
}

type Authenticator struct {
	Issuer *Issuer
	Users  SubjectLookup
}

// Authenticate verifies token and resolves the caller variant from the
// stored role. Malformed or expired tokens fail with ErrTokenInvalid or
// ErrTokenExpired; valid tokens for a vanished user fail with
// ErrUnknownSubject.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (Caller, error) {
	c, err := a.Issuer.Verify(token)
	if err != nil {
		return nil, err
	}
	role, err := a.Users.RoleOf(ctx, c.Subject)
	if err != nil {
		return nil, err
	}
	return NewCaller(c.Subject, role)
}
