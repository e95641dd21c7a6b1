package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/passage/internal/auth/domain"
	"github.com/aussiebroadwan/passage/internal/auth/store"
	"github.com/aussiebroadwan/passage/internal/auth/store/drivers/sqlite/gen"
)

type authorizationCodesRepo struct {
	q *gen.Queries
}

func (r *authorizationCodesRepo) CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error {
	err := r.q.CreateAuthorizationCode(ctx, gen.CreateAuthorizationCodeParams{
		ID:        code.ID,
		UserID:    code.UserID,
		CodeHash:  code.CodeHash,
		ExpiresAt: utc(code.ExpiresAt),
		CreatedAt: utc(code.CreatedAt),
	})
	return mapConstraint(err)
}

func (r *authorizationCodesRepo) ConsumeAuthorizationCode(ctx context.Context, hash string) (domain.AuthorizationCode, error) {
	row, err := r.q.GetAuthorizationCodeByHash(ctx, hash)
	if err != nil {
		return domain.AuthorizationCode{}, mapNotFound(err)
	}

	n, err := r.q.DeleteAuthorizationCodeByID(ctx, row.ID)
	if err != nil {
		return domain.AuthorizationCode{}, err
	}
	if n == 0 {
		return domain.AuthorizationCode{}, store.ErrNotFound
	}
	return mapAuthorizationCode(row), nil
}

func (r *authorizationCodesRepo) DeleteExpiredAuthorizationCodes(ctx context.Context, now time.Time) (int64, error) {
	return r.q.DeleteExpiredAuthorizationCodes(ctx, utc(now))
}
