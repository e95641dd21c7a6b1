package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/passage/internal/auth/domain"
	"github.com/aussiebroadwan/passage/internal/auth/store"
	"github.com/aussiebroadwan/passage/internal/auth/store/drivers/sqlite/gen"
)

type usersRepo struct {
	q *gen.Queries
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row, err := r.q.GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return mapUser(row), nil
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row, err := r.q.GetUserByEmail(ctx, email)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return mapUser(row), nil
}

func (r *usersRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	n, err := r.q.UserExistsByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	return n != 0, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	err := r.q.CreateUser(ctx, gen.CreateUserParams{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: mapStringNull(u.PasswordHash),
		Provider:     u.Provider,
		ProviderID:   mapStringNull(u.ProviderID),
		AvatarUrl:    mapStringNull(u.AvatarURL),
		CreatedAt:    utc(u.CreatedAt),
		UpdatedAt:    utc(u.UpdatedAt),
	})
	return mapConstraint(err)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, hash string, at time.Time) error {
	n, err := r.q.UpdateUserPasswordHash(ctx, gen.UpdateUserPasswordHashParams{
		PasswordHash: mapStringNull(hash),
		UpdatedAt:    utc(at),
		ID:           userID,
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *usersRepo) UpdateFederatedProfile(ctx context.Context, u domain.User) error {
	n, err := r.q.UpdateUserFederatedProfile(ctx, gen.UpdateUserFederatedProfileParams{
		Name:       u.Name,
		AvatarUrl:  mapStringNull(u.AvatarURL),
		ProviderID: mapStringNull(u.ProviderID),
		UpdatedAt:  utc(u.UpdatedAt),
		ID:         u.ID,
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
