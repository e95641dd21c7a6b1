package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/passage/internal/auth/domain"
	"github.com/aussiebroadwan/passage/internal/auth/metrics"
	"github.com/aussiebroadwan/passage/internal/auth/store"
	"github.com/aussiebroadwan/passage/pkg/cryptox"
	"github.com/aussiebroadwan/passage/pkg/idx"
	"github.com/aussiebroadwan/passage/pkg/slogx"
)

// PasswordHasher is implemented by *cryptox.PasswordHasher.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
	NeedsRehash(digest string) bool
}

// AuthService implements the four credential flows. Each one ends in
// TokenIssuer.IssueFor.
type AuthService struct {
	Store   store.Store
	Hasher  PasswordHasher
	Issuer  *TokenIssuer
	Metrics metrics.Recorder
	Now     func() time.Time

	dummyOnce   sync.Once
	dummyDigest string
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Register creates a password account and signs it in. The email is checked
// for collisions before the password is hashed.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (pair domain.TokenPair, err error) {
	defer func() { s.observe(metrics.FlowRegister, err) }()

	email = domain.NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" || password == "" || name == "" {
		return domain.TokenPair{}, ErrInvalidInput
	}

	exists, err := s.Store.Users().ExistsByEmail(ctx, email)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return domain.TokenPair{}, ErrAlreadyExists
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := domain.User{
		ID:           idx.NewAt(now).String(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Provider:     domain.OriginPassword,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			// Lost a race with a concurrent registration.
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrAlreadyExists
			}
			return fmt.Errorf("create user: %w", err)
		}

		pair, err = s.Issuer.IssueFor(ctx, tx, user)
		return err
	})
	if err != nil {
		return domain.TokenPair{}, err
	}

	slogx.FromContext(ctx).Info("user registered", "user_id", user.ID)
	return pair, nil
}

// Login verifies an email and password. Unknown emails, federated-only
// accounts and wrong passwords all yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (pair domain.TokenPair, err error) {
	defer func() { s.observe(metrics.FlowLogin, err) }()

	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return domain.TokenPair{}, reject(ctx, metrics.FlowLogin, reasonMissing)
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Spend the same hashing time as a real check.
			s.Hasher.Verify(password, s.dummyHash())
			return domain.TokenPair{}, reject(ctx, metrics.FlowLogin, reasonUnknownEmail)
		}
		return domain.TokenPair{}, fmt.Errorf("get user: %w", err)
	}

	if !user.HasPassword() {
		s.Hasher.Verify(password, s.dummyHash())
		return domain.TokenPair{}, reject(ctx, metrics.FlowLogin, reasonNoPassword, "user_id", user.ID)
	}
	if !s.Hasher.Verify(password, user.PasswordHash) {
		return domain.TokenPair{}, reject(ctx, metrics.FlowLogin, reasonBadPassword, "user_id", user.ID)
	}

	if s.Hasher.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user.ID, password)
	}

	pair, err = s.Issuer.IssueFor(ctx, s.Store, user)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return pair, nil
}

// rehash upgrades a legacy digest. Failure is logged and does not fail the
// login.
func (s *AuthService) rehash(ctx context.Context, userID, password string) {
	log := slogx.FromContext(ctx)

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		log.Error("password rehash failed", "user_id", userID, "err", err)
		return
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, userID, hash, s.now()); err != nil {
		log.Error("password rehash failed", "user_id", userID, "err", err)
		return
	}
	log.Info("password hash upgraded", "user_id", userID)
}

func (s *AuthService) dummyHash() string {
	s.dummyOnce.Do(func() {
		s.dummyDigest, _ = s.Hasher.Hash("not-a-real-password")
	})
	return s.dummyDigest
}

// Refresh rotates a refresh token: the presented token is deleted and a new
// pair is issued in the same transaction. Expired tokens and tokens whose
// user no longer exists are deleted as well before being rejected.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (pair domain.TokenPair, err error) {
	defer func() { s.observe(metrics.FlowRefresh, err) }()

	if refreshToken == "" {
		return domain.TokenPair{}, reject(ctx, metrics.FlowRefresh, reasonMissing)
	}
	hash := cryptox.FingerprintToken(refreshToken)

	var reason, userID string
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		record, err := tx.RefreshTokens().ConsumeRefreshToken(ctx, hash)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				reason = reasonRefreshUnknown
				return nil
			}
			return fmt.Errorf("consume refresh token: %w", err)
		}
		userID = record.UserID

		// Returning nil commits the deletion of the stale record.
		if record.Expired(s.now()) {
			reason = reasonRefreshExpired
			return nil
		}

		user, err := tx.Users().GetUserByID(ctx, record.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				reason = reasonDanglingUser
				return nil
			}
			return fmt.Errorf("get user: %w", err)
		}

		pair, err = s.Issuer.IssueFor(ctx, tx, user)
		return err
	})
	if err != nil {
		return domain.TokenPair{}, err
	}
	if reason != "" {
		return domain.TokenPair{}, reject(ctx, metrics.FlowRefresh, reason, "user_id", userID)
	}
	return pair, nil
}

// ExchangeCode trades a one-time authorization code for tokens. The code is
// deleted on the first attempt whatever the outcome.
func (s *AuthService) ExchangeCode(ctx context.Context, code string) (pair domain.TokenPair, err error) {
	defer func() { s.observe(metrics.FlowExchange, err) }()

	if code == "" {
		return domain.TokenPair{}, reject(ctx, metrics.FlowExchange, reasonMissing)
	}
	hash := cryptox.FingerprintToken(code)

	var reason, userID string
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		record, err := tx.AuthorizationCodes().ConsumeAuthorizationCode(ctx, hash)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				reason = reasonCodeUnknown
				return nil
			}
			return fmt.Errorf("consume authorization code: %w", err)
		}
		userID = record.UserID

		if record.Expired(s.now()) {
			reason = reasonCodeExpired
			return nil
		}

		user, err := tx.Users().GetUserByID(ctx, record.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				reason = reasonDanglingUser
				return nil
			}
			return fmt.Errorf("get user: %w", err)
		}

		pair, err = s.Issuer.IssueFor(ctx, tx, user)
		return err
	})
	if err != nil {
		return domain.TokenPair{}, err
	}
	if reason != "" {
		return domain.TokenPair{}, reject(ctx, metrics.FlowExchange, reason, "user_id", userID)
	}
	return pair, nil
}

// Logout deletes the presented refresh token. Unknown or empty tokens are
// not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.Store.RefreshTokens().DeleteRefreshToken(ctx, cryptox.FingerprintToken(refreshToken)); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

func (s *AuthService) observe(flow string, err error) {
	m := metrics.OrNop(s.Metrics)
	if err == nil {
		m.AuthAttempt(flow, metrics.OutcomeSuccess)
		m.TokensIssued(flow)
		return
	}
	m.AuthAttempt(flow, outcome(err))
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return metrics.OutcomeInvalidCredentials
	case errors.Is(err, ErrAlreadyExists):
		return metrics.OutcomeAlreadyExists
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrMissingEmail), errors.Is(err, ErrUnsupportedProvider):
		return metrics.OutcomeInvalidInput
	default:
		return metrics.OutcomeError
	}
}
