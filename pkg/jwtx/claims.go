package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTokenTTL keeps access tokens short-lived. They cannot be
// revoked, so their lifetime is the exposure window of a leaked token.
const DefaultAccessTokenTTL = 15 * time.Minute

// Claims are the access token claims: sub carries the user id.
type Claims struct {
	jwt.RegisteredClaims

	Email string `json:"email,omitempty"`
}

// UserID is the authenticated user's id (the "sub" claim).
func (c Claims) UserID() string { return c.Subject }

// NewAccessClaims builds the claims for a token issued at now.
func NewAccessClaims(userID, email, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Email: email,
	}
}

// NewJTI returns a random "jti". Two tokens for the same user minted within
// the same second still differ because of it.
func NewJTI() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateExpiry checks exp and nbf against the current time.
func (c *Claims) ValidateExpiry() error {
	now := time.Now()

	if c.ExpiresAt == nil || !now.Before(c.ExpiresAt.Time) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}
	return nil
}
