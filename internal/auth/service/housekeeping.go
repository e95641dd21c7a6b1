package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/passage/internal/auth/store"
)

// HousekeepingService periodically purges expired refresh tokens and
// authorization codes. Flows already delete expired records they touch; this
// catches the ones nobody presents again.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration
	Now      func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    store,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// CleanupResult counts the records removed by one Cleanup pass.
type CleanupResult struct {
	RefreshTokens      int64
	AuthorizationCodes int64
}

// Cleanup deletes every record that expired at or before now. Each ledger is
// purged independently; a failure in one does not stop the other.
func (s *HousekeepingService) Cleanup(ctx context.Context) CleanupResult {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	var res CleanupResult
	var err error

	res.RefreshTokens, err = s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx, now)
	if err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", "error", err)
	}

	res.AuthorizationCodes, err = s.Store.AuthorizationCodes().DeleteExpiredAuthorizationCodes(ctx, now)
	if err != nil {
		s.Logger.Error("failed to delete expired authorization codes", "error", err)
	}

	s.Logger.Info("housekeeping cleanup completed",
		"refresh_tokens", res.RefreshTokens,
		"authorization_codes", res.AuthorizationCodes,
	)
	return res
}
