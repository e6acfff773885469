package service

import (
	"context"
	"errors"
	"sync"

	"squad-tracker/internal/domain"
	"squad-tracker/internal/store"

	"github.com/rs/zerolog"
)

// SettingsService owns the per-account automation toggles. Boost flags live
// under one shared key, auto-like state under a per-account key because the
// liker also keeps its crawl cursors there.
type SettingsService struct {
	store  *store.Store
	logger zerolog.Logger

	mu sync.Mutex
}

func NewSettingsService(st *store.Store, logger zerolog.Logger) *SettingsService {
	return &SettingsService{store: st, logger: logger}
}

func (s *SettingsService) Get(ctx context.Context, accountID string) (domain.AccountSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	boost, err := s.boostFlags(ctx)
	if err != nil {
		return domain.AccountSettings{}, err
	}

	likeState, err := s.autoLikeState(ctx, accountID)
	if err != nil {
		return domain.AccountSettings{}, err
	}

	return domain.AccountSettings{
		AutoBoost: boost[accountID],
		AutoLike:  likeState.Enabled,
	}, nil
}

func (s *SettingsService) Set(ctx context.Context, accountID string, settings domain.AccountSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	boost, err := s.boostFlags(ctx)
	if err != nil {
		return err
	}
	boost[accountID] = settings.AutoBoost
	if err := s.store.Save(ctx, store.KeyBoostPrefs, boost); err != nil {
		return err
	}

	// Toggling auto-like must not reset the crawl cursors.
	likeState, err := s.autoLikeState(ctx, accountID)
	if err != nil {
		return err
	}
	likeState.Enabled = settings.AutoLike
	if err := s.store.Save(ctx, store.KeyAutoLike(accountID), likeState); err != nil {
		return err
	}

	s.logger.Info().
		Str("account_id", accountID).
		Bool("auto_boost", settings.AutoBoost).
		Bool("auto_like", settings.AutoLike).
		Msg("automation settings updated")
	return nil
}

func (s *SettingsService) AutoBoostEnabled(ctx context.Context, accountID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	boost, err := s.boostFlags(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to read boost settings")
		return false
	}
	return boost[accountID]
}

func (s *SettingsService) boostFlags(ctx context.Context) (map[string]bool, error) {
	flags := make(map[string]bool)
	err := s.store.Load(ctx, store.KeyBoostPrefs, &flags)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return flags, nil
}

func (s *SettingsService) autoLikeState(ctx context.Context, accountID string) (domain.AutoLikeState, error) {
	var state domain.AutoLikeState
	err := s.store.Load(ctx, store.KeyAutoLike(accountID), &state)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.AutoLikeState{}, err
	}
	return state, nil
}
