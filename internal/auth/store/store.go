package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/passage/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement it and
// expose one sub-repository per record kind. Sub-repos are only reachable
// through a Store or a Tx, which keeps transactions from nesting.
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens
	AuthorizationCodes() AuthorizationCodes

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Users is the credential store.
type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail expects a normalized email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// CreateUser returns ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash replaces the hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID, hash string, at time.Time) error

	// UpdateFederatedProfile overwrites name, avatar and provider id with the
	// values in u and bumps updated_at.
	UpdateFederatedProfile(ctx context.Context, u domain.User) error
}

// RefreshTokens is the refresh token ledger.
type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// ConsumeRefreshToken deletes the token with the given hash and returns
	// it. Exactly one concurrent caller can consume a token; the others get
	// ErrNotFound. Expired tokens are consumed too, so the caller can reject
	// them after they are gone.
	ConsumeRefreshToken(ctx context.Context, hash string) (domain.RefreshToken, error)

	// DeleteRefreshToken removes a token if it exists.
	DeleteRefreshToken(ctx context.Context, hash string) error

	// DeleteUserRefreshTokens removes every token owned by userID and
	// returns how many were removed.
	DeleteUserRefreshTokens(ctx context.Context, userID string) (int64, error)

	CountUserRefreshTokens(ctx context.Context, userID string) (int64, error)

	// DeleteExpiredRefreshTokens removes tokens that expired at or before now.
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}

// AuthorizationCodes is the authorization code ledger.
type AuthorizationCodes interface {
	CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error

	// ConsumeAuthorizationCode deletes and returns the code with the given
	// hash, with the same single-winner semantics as ConsumeRefreshToken.
	ConsumeAuthorizationCode(ctx context.Context, hash string) (domain.AuthorizationCode, error)

	DeleteExpiredAuthorizationCodes(ctx context.Context, now time.Time) (int64, error)
}
