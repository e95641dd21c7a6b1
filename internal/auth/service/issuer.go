package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/passage/internal/auth/domain"
	"github.com/aussiebroadwan/passage/internal/auth/store"
	"github.com/aussiebroadwan/passage/pkg/cryptox"
	"github.com/aussiebroadwan/passage/pkg/idx"
)

// AccessTokenMinter signs access tokens. *jwtx.HS256Codec implements it.
type AccessTokenMinter interface {
	IssueAt(userID, email string, now time.Time) (string, error)
	TTL() time.Duration
}

// TokenIssuer is the one place credentials are minted. Every successful
// register, login, refresh and code exchange ends here.
type TokenIssuer struct {
	Access     AccessTokenMinter
	RefreshTTL time.Duration
	Now        func() time.Time
}

func (i *TokenIssuer) now() time.Time {
	if i.Now != nil {
		return i.Now()
	}
	return time.Now()
}

// IssueFor mints an access token, generates a refresh token value and
// persists its record through s, in that order. Nothing is returned unless
// the refresh record was written. Pass a Tx as s when the issuance must be
// atomic with other writes, such as consuming the previous refresh token.
func (i *TokenIssuer) IssueFor(ctx context.Context, s store.Store, user domain.User) (domain.TokenPair, error) {
	now := i.now()

	access, err := i.Access.IssueAt(user.ID, user.Email, now)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("generate refresh token: %w", err)
	}

	record := domain.RefreshToken{
		ID:        idx.NewAt(now).String(),
		UserID:    user.ID,
		TokenHash: cryptox.FingerprintToken(refresh),
		ExpiresAt: now.Add(i.RefreshTTL),
		CreatedAt: now,
	}
	if err := s.RefreshTokens().CreateRefreshToken(ctx, record); err != nil {
		return domain.TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    i.Access.TTL(),
	}, nil
}
