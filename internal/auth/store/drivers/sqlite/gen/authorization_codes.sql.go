// source: authorization_codes.sql

package gen

import (
	"context"
	"time"
)

const createAuthorizationCode = `-- name: CreateAuthorizationCode :exec
INSERT INTO authorization_codes (id, user_id, code_hash, expires_at, created_at)
VALUES (?, ?, ?, ?, ?)
`

type CreateAuthorizationCodeParams struct {
	ID        string
	UserID    string
	CodeHash  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (q *Queries) CreateAuthorizationCode(ctx context.Context, arg CreateAuthorizationCodeParams) error {
	_, err := q.db.ExecContext(ctx, createAuthorizationCode,
		arg.ID,
		arg.UserID,
		arg.CodeHash,
		arg.ExpiresAt,
		arg.CreatedAt,
	)
	return err
}

const deleteAuthorizationCodeByID = `-- name: DeleteAuthorizationCodeByID :execrows
DELETE FROM authorization_codes
WHERE id = ?
`

func (q *Queries) DeleteAuthorizationCodeByID(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteAuthorizationCodeByID, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteExpiredAuthorizationCodes = `-- name: DeleteExpiredAuthorizationCodes :execrows
DELETE FROM authorization_codes
WHERE expires_at <= ?
`

func (q *Queries) DeleteExpiredAuthorizationCodes(ctx context.Context, expiresAt time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpiredAuthorizationCodes, expiresAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getAuthorizationCodeByHash = `-- name: GetAuthorizationCodeByHash :one
SELECT id, user_id, code_hash, expires_at, created_at
FROM authorization_codes
WHERE code_hash = ?
`

func (q *Queries) GetAuthorizationCodeByHash(ctx context.Context, codeHash string) (AuthorizationCode, error) {
	row := q.db.QueryRowContext(ctx, getAuthorizationCodeByHash, codeHash)
	var i AuthorizationCode
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.CodeHash,
		&i.ExpiresAt,
		&i.CreatedAt,
	)
	return i, err
}
