package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/passage/internal/auth/domain"
	"github.com/aussiebroadwan/passage/internal/auth/store"
	"github.com/aussiebroadwan/passage/internal/auth/store/drivers/sqlite/gen"
)

type refreshTokensRepo struct {
	q *gen.Queries
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	err := r.q.CreateRefreshToken(ctx, gen.CreateRefreshTokenParams{
		ID:        t.ID,
		UserID:    t.UserID,
		TokenHash: t.TokenHash,
		ExpiresAt: utc(t.ExpiresAt),
		CreatedAt: utc(t.CreatedAt),
	})
	return mapConstraint(err)
}

// ConsumeRefreshToken reads the row, then deletes it by id. Only the caller
// whose delete removes the row wins; a concurrent loser sees zero rows
// affected and gets ErrNotFound.
func (r *refreshTokensRepo) ConsumeRefreshToken(ctx context.Context, hash string) (domain.RefreshToken, error) {
	row, err := r.q.GetRefreshTokenByHash(ctx, hash)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}

	n, err := r.q.DeleteRefreshTokenByID(ctx, row.ID)
	if err != nil {
		return domain.RefreshToken{}, err
	}
	if n == 0 {
		return domain.RefreshToken{}, store.ErrNotFound
	}
	return mapRefreshToken(row), nil
}

func (r *refreshTokensRepo) DeleteRefreshToken(ctx context.Context, hash string) error {
	return r.q.DeleteRefreshTokenByHash(ctx, hash)
}

func (r *refreshTokensRepo) DeleteUserRefreshTokens(ctx context.Context, userID string) (int64, error) {
	return r.q.DeleteRefreshTokensByUserID(ctx, userID)
}

func (r *refreshTokensRepo) CountUserRefreshTokens(ctx context.Context, userID string) (int64, error) {
	return r.q.CountRefreshTokensByUserID(ctx, userID)
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	return r.q.DeleteExpiredRefreshTokens(ctx, utc(now))
}
