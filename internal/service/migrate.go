package service

import (
	"context"
	"fmt"

	"squad-tracker/internal/constants"
	"squad-tracker/internal/domain"
	"squad-tracker/internal/history"
	"squad-tracker/internal/store"
)

// Legacy on-device layouts, from before series were keyed per subject.
type legacyTeamUsersEntry struct {
	Timestamp int64          `json:"timestamp"`
	Users     map[string]int `json:"users"`
}

type legacyUserStatsEntry struct {
	UserID     string                           `json:"userId"`
	Timestamp  int64                            `json:"timestamp"`
	Activities map[string]domain.ActivityMetric `json:"activities"`
}

// MigrateLegacy splits the old consolidated teamUserPoints and userStatistics
// keys into per-subject series. Team-user entries carry no team id, so
// current team membership is fetched to assign each entry to the team one of
// its users belongs to. Runs at most once per key (marker-gated) and is safe
// to re-run after a partial failure.
func (s *TrackerService) MigrateLegacy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	membership, err := s.fetchMembership(ctx)
	if err != nil {
		return err
	}

	err = history.SplitLegacyKey(ctx, s.store, s.logger,
		store.KeyLegacyTeamUserPoints,
		store.KeyTeamUserPoints,
		func(entry legacyTeamUsersEntry) (string, history.Entry[domain.TeamUsersPayload], bool) {
			for userID := range entry.Users {
				if teamID, ok := membership[userID]; ok {
					return teamID, history.Entry[domain.TeamUsersPayload]{
						Timestamp: entry.Timestamp,
						Payload:   entry.Users,
					}, true
				}
			}
			return "", history.Entry[domain.TeamUsersPayload]{}, false
		})
	if err != nil {
		return fmt.Errorf("failed to migrate team user points: %w", err)
	}

	err = history.SplitLegacyKey(ctx, s.store, s.logger,
		store.KeyLegacyUserStatistics,
		store.KeyUserStatistics,
		func(entry legacyUserStatsEntry) (string, history.Entry[domain.UserActivitiesPayload], bool) {
			if entry.UserID == "" {
				return "", history.Entry[domain.UserActivitiesPayload]{}, false
			}
			return entry.UserID, history.Entry[domain.UserActivitiesPayload]{
				Timestamp: entry.Timestamp,
				Payload:   entry.Activities,
			}, true
		})
	if err != nil {
		return fmt.Errorf("failed to migrate user statistics: %w", err)
	}
	return nil
}

func (s *TrackerService) fetchMembership(ctx context.Context) (map[string]string, error) {
	mainID, err := s.tokens.MainAccountID()
	if err != nil {
		return nil, err
	}
	token, err := s.tokens.AccessToken(ctx, mainID)
	if err != nil {
		return nil, err
	}

	ranking, err := s.client.GetSeasonRanking(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch season ranking: %w", err)
	}

	membership := make(map[string]string)
	limit := constants.RankingSize
	if len(ranking.Teams) < limit {
		limit = len(ranking.Teams)
	}
	for _, rankedTeam := range ranking.Teams[:limit] {
		team, err := s.client.GetTeam(ctx, token, rankedTeam.ID)
		if err != nil {
			s.logger.Warn().Err(err).Str("team_id", rankedTeam.ID).Msg("failed to fetch team during migration")
			continue
		}
		for _, user := range team.Users {
			membership[user.ID] = team.ID
		}
	}
	return membership, nil
}
