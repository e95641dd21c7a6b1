// source: users.sql

package gen

import (
	"context"
	"database/sql"
	"time"
)

const createUser = `-- name: CreateUser :exec
INSERT INTO users (id, email, name, password_hash, provider, provider_id, avatar_url, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateUserParams struct {
	ID           string
	Email        string
	Name         string
	PasswordHash sql.NullString
	Provider     string
	ProviderID   sql.NullString
	AvatarUrl    sql.NullString
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) error {
	_, err := q.db.ExecContext(ctx, createUser,
		arg.ID,
		arg.Email,
		arg.Name,
		arg.PasswordHash,
		arg.Provider,
		arg.ProviderID,
		arg.AvatarUrl,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT id, email, name, password_hash, provider, provider_id, avatar_url, created_at, updated_at
FROM users
WHERE email = ?
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByEmail, email)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.Name,
		&i.PasswordHash,
		&i.Provider,
		&i.ProviderID,
		&i.AvatarUrl,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getUserByID = `-- name: GetUserByID :one
SELECT id, email, name, password_hash, provider, provider_id, avatar_url, created_at, updated_at
FROM users
WHERE id = ?
`

func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByID, id)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.Name,
		&i.PasswordHash,
		&i.Provider,
		&i.ProviderID,
		&i.AvatarUrl,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const updateUserFederatedProfile = `-- name: UpdateUserFederatedProfile :execrows
UPDATE users
SET name = ?, avatar_url = ?, provider_id = ?, updated_at = ?
WHERE id = ?
`

type UpdateUserFederatedProfileParams struct {
	Name       string
	AvatarUrl  sql.NullString
	ProviderID sql.NullString
	UpdatedAt  time.Time
	ID         string
}

func (q *Queries) UpdateUserFederatedProfile(ctx context.Context, arg UpdateUserFederatedProfileParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateUserFederatedProfile,
		arg.Name,
		arg.AvatarUrl,
		arg.ProviderID,
		arg.UpdatedAt,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const updateUserPasswordHash = `-- name: UpdateUserPasswordHash :execrows
UPDATE users
SET password_hash = ?, updated_at = ?
WHERE id = ?
`

type UpdateUserPasswordHashParams struct {
	PasswordHash sql.NullString
	UpdatedAt    time.Time
	ID           string
}

func (q *Queries) UpdateUserPasswordHash(ctx context.Context, arg UpdateUserPasswordHashParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateUserPasswordHash, arg.PasswordHash, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const userExistsByEmail = `-- name: UserExistsByEmail :one
SELECT EXISTS (SELECT 1 FROM users WHERE email = ?)
`

func (q *Queries) UserExistsByEmail(ctx context.Context, email string) (int64, error) {
	row := q.db.QueryRowContext(ctx, userExistsByEmail, email)
	var exists int64
	err := row.Scan(&exists)
	return exists, err
}
