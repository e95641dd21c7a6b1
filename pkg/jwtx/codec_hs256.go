package jwtx

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the smallest accepted HS256 key, in bytes (256 bits).
const MinSecretLength = 32

// HS256Codec signs and verifies access tokens with a shared symmetric
// secret. Every service that verifies tokens holds the same secret; no
// storage is consulted.
type HS256Codec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	parser *jwt.Parser
}

// NewHS256Codec fails when the secret is shorter than MinSecretLength so a
// misconfigured deployment refuses to start instead of minting weak tokens.
func NewHS256Codec(secret []byte, issuer string, ttl time.Duration) (*HS256Codec, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: got %d bytes, need %d", ErrWeakSecret, len(secret), MinSecretLength)
	}
	if ttl <= 0 {
		return nil, errors.New("jwtx: access token ttl must be positive")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	key := make([]byte, len(secret))
	copy(key, secret)

	return &HS256Codec{
		secret: key,
		issuer: issuer,
		ttl:    ttl,
		parser: jwt.NewParser(opts...),
	}, nil
}

// TTL is the fixed lifetime of issued tokens.
func (c *HS256Codec) TTL() time.Duration { return c.ttl }

// Issue mints a token for the user valid from now for TTL.
func (c *HS256Codec) Issue(userID, email string) (string, error) {
	return c.IssueAt(userID, email, time.Now())
}

// IssueAt mints a token as if issued at now.
func (c *HS256Codec) IssueAt(userID, email string, now time.Time) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: empty subject", ErrInvalidClaim)
	}

	claims := NewAccessClaims(userID, email, c.issuer, c.ttl, now)
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Verify checks the signature first and the time claims second. Any
// failure maps onto one of the package errors.
func (c *HS256Codec) Verify(token string) (Claims, error) {
	var claims Claims

	_, err := c.parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrAlgMismatch
		}
		return c.secret, nil
	})
	if err != nil {
		return Claims{}, mapParseError(err)
	}

	if claims.Subject == "" {
		return Claims{}, ErrInvalidClaim
	}
	if err := claims.ValidateExpiry(); err != nil {
		return Claims{}, err
	}
	return claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %w", ErrInvalidSig, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrIssuer
	default:
		return fmt.Errorf("%w: %w", ErrInvalidClaim, err)
	}
}

// ParseSecret decodes a configured secret. A "base64:" prefix marks standard
// or URL-safe base64; anything else is used as raw bytes.
func ParseSecret(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	encoded, ok := strings.CutPrefix(s, "base64:")
	if !ok {
		return []byte(s), nil
	}

	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if b, err := enc.DecodeString(encoded); err == nil {
			return b, nil
		}
	}
	return nil, errors.New("jwtx: secret has base64: prefix but is not valid base64")
}
