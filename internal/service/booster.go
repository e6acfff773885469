package service

import (
	"context"
	"sort"
	"time"

	"squad-tracker/internal/api"
	"squad-tracker/internal/auth"
	"squad-tracker/internal/constants"
	"squad-tracker/internal/domain"
	"squad-tracker/internal/repository"

	"github.com/rs/zerolog"
)

const boosterRetryDelay = 5 * time.Minute

// BoosterService boosts the highest-scoring boostable teammate of each
// enabled account as soon as the account's boost becomes available.
type BoosterService struct {
	client   *api.Client
	tokens   *auth.TokenBook
	settings *SettingsService
	actions  *repository.ActionLogRepository
	logger   zerolog.Logger
}

func NewBoosterService(client *api.Client, tokens *auth.TokenBook, settings *SettingsService, actions *repository.ActionLogRepository, logger zerolog.Logger) *BoosterService {
	return &BoosterService{
		client:   client,
		tokens:   tokens,
		settings: settings,
		actions:  actions,
		logger:   logger,
	}
}

// Run drives one account until ctx is cancelled. The wait until the next
// boost window uses a timer that is stopped on every exit path.
func (s *BoosterService) Run(ctx context.Context, accountID string) error {
	logger := s.logger.With().Str("account_id", accountID).Logger()

	for {
		wait := boosterRetryDelay
		if s.settings.AutoBoostEnabled(ctx, accountID) {
			var err error
			wait, err = s.boostWhenReady(ctx, accountID, logger)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Warn().Err(err).Msg("boost attempt failed")
				wait = boosterRetryDelay
			}
		}

		if !sleepCtx(ctx, wait) {
			return nil
		}
	}
}

// boostWhenReady returns how long to wait before the next attempt.
func (s *BoosterService) boostWhenReady(ctx context.Context, accountID string, logger zerolog.Logger) (time.Duration, error) {
	token, err := s.tokens.AccessToken(ctx, accountID)
	if err != nil {
		return 0, err
	}

	apiCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	team, err := s.client.GetMyTeam(apiCtx, token)
	cancel()
	if err != nil {
		return 0, err
	}

	if team.BoostAvailableAt != nil {
		if wait := time.Until(*team.BoostAvailableAt); wait > 0 {
			logger.Debug().Time("boost_at", *team.BoostAvailableAt).Msg("boost not available yet")
			return wait, nil
		}
	}

	target, ok := pickBoostTarget(team.Users)
	if !ok {
		logger.Debug().Msg("no boostable teammate")
		return boosterRetryDelay, nil
	}

	apiCtx, cancel = context.WithTimeout(ctx, constants.ExternalAPITimeout)
	err = s.client.BoostUser(apiCtx, token, target.ID)
	cancel()
	if err != nil {
		return 0, err
	}

	if err := s.actions.Insert(ctx, accountID, domain.ActionBoost, target.ID); err != nil {
		logger.Warn().Err(err).Msg("failed to record boost action")
	}
	logger.Info().Str("target_id", target.ID).Int("target_points", target.Points).Msg("teammate boosted")

	// The vendor reports the next window on the following team fetch.
	return boosterRetryDelay, nil
}

// pickBoostTarget prefers the boostable teammate with the most points.
func pickBoostTarget(users []api.TeamUser) (api.TeamUser, bool) {
	sorted := make([]api.TeamUser, len(users))
	copy(sorted, users)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Points > sorted[j].Points })
	for _, user := range sorted {
		if user.IsBoostable {
			return user, true
		}
	}
	return api.TeamUser{}, false
}

// sleepCtx waits for d, reporting false when ctx is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
