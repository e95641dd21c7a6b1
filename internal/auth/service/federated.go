package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/passage/internal/auth/domain"
	"github.com/aussiebroadwan/passage/internal/auth/metrics"
	"github.com/aussiebroadwan/passage/internal/auth/store"
	"github.com/aussiebroadwan/passage/pkg/cryptox"
	"github.com/aussiebroadwan/passage/pkg/idx"
	"github.com/aussiebroadwan/passage/pkg/slogx"
)

// ProviderGoogle is the only identity provider tag accepted today.
const ProviderGoogle = "google"

var supportedProviders = map[string]bool{
	ProviderGoogle: true,
}

// DefaultCodeTTL is how long an authorization code may sit in a redirect
// before it must be exchanged.
const DefaultCodeTTL = 60 * time.Second

// FederatedService turns a provider-attested profile into a local user and a
// one-time authorization code. It never issues tokens itself.
type FederatedService struct {
	Store   store.Store
	CodeTTL time.Duration
	Metrics metrics.Recorder
	Now     func() time.Time
}

func (s *FederatedService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *FederatedService) codeTTL() time.Duration {
	if s.CodeTTL > 0 {
		return s.CodeTTL
	}
	return DefaultCodeTTL
}

// CompleteLogin resolves the profile to a user and mints a code for it. The
// code is the only thing that may travel back through the browser.
func (s *FederatedService) CompleteLogin(ctx context.Context, p domain.FederatedProfile) (code string, err error) {
	defer func() {
		m := metrics.OrNop(s.Metrics)
		if err != nil {
			m.AuthAttempt(metrics.FlowFederated, outcome(err))
			return
		}
		m.AuthAttempt(metrics.FlowFederated, metrics.OutcomeSuccess)
	}()

	user, err := s.ResolveOrCreateUser(ctx, p)
	if err != nil {
		return "", err
	}
	return s.MintCode(ctx, user.ID)
}

// ResolveOrCreateUser links the profile to the account with the same email,
// creating a federated-only account when none exists. On re-login the
// provider's name, avatar and external id overwrite the stored values.
//
// The first time an existing account is linked to a provider, all of its
// refresh tokens are deleted, so every session opened before the link ends.
func (s *FederatedService) ResolveOrCreateUser(ctx context.Context, p domain.FederatedProfile) (domain.User, error) {
	if !supportedProviders[p.Provider] {
		return domain.User{}, ErrUnsupportedProvider
	}
	email := domain.NormalizeEmail(p.Email)
	if email == "" {
		return domain.User{}, ErrMissingEmail
	}

	log := slogx.FromContext(ctx)
	now := s.now()

	var user domain.User
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		existing, err := tx.Users().GetUserByEmail(ctx, email)
		switch {
		case errors.Is(err, store.ErrNotFound):
			user = domain.User{
				ID:         idx.NewAt(now).String(),
				Email:      email,
				Name:       profileName(p, email),
				Provider:   domain.FederatedOrigin(p.Provider),
				ProviderID: p.ExternalID,
				AvatarURL:  p.AvatarURL,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := tx.Users().CreateUser(ctx, user); err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			log.Info("federated user created", "user_id", user.ID, "provider", p.Provider)
			return nil

		case err != nil:
			return fmt.Errorf("get user: %w", err)
		}

		firstLink := existing.ProviderID == ""

		user = existing
		user.Name = profileName(p, email)
		user.AvatarURL = p.AvatarURL
		user.ProviderID = p.ExternalID
		user.UpdatedAt = now
		if err := tx.Users().UpdateFederatedProfile(ctx, user); err != nil {
			return fmt.Errorf("update federated profile: %w", err)
		}

		if firstLink {
			n, err := tx.RefreshTokens().DeleteUserRefreshTokens(ctx, user.ID)
			if err != nil {
				return fmt.Errorf("drop pre-link sessions: %w", err)
			}
			log.Info("federated provider linked",
				"user_id", user.ID, "provider", p.Provider, "sessions_dropped", n)
		}
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// MintCode stores a fresh authorization code for userID and returns the
// plaintext value. Only its fingerprint is persisted.
func (s *FederatedService) MintCode(ctx context.Context, userID string) (string, error) {
	code, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}

	now := s.now()
	record := domain.AuthorizationCode{
		ID:        idx.NewAt(now).String(),
		UserID:    userID,
		CodeHash:  cryptox.FingerprintToken(code),
		ExpiresAt: now.Add(s.codeTTL()),
		CreatedAt: now,
	}
	if err := s.Store.AuthorizationCodes().CreateAuthorizationCode(ctx, record); err != nil {
		return "", fmt.Errorf("store authorization code: %w", err)
	}
	return code, nil
}

// profileName falls back to the local part of the email when the provider
// sends no display name.
func profileName(p domain.FederatedProfile, email string) string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}
