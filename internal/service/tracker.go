package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"squad-tracker/internal/api"
	"squad-tracker/internal/auth"
	"squad-tracker/internal/config"
	"squad-tracker/internal/constants"
	"squad-tracker/internal/domain"
	"squad-tracker/internal/history"
	"squad-tracker/internal/store"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// TrackerService polls current-state vendor endpoints and accumulates the
// results into history series: one for the season team ranking, one per
// top-ranked team's member points, one per tracked user's activity
// statistics. All trend endpoints read from these series.
type TrackerService struct {
	client *api.Client
	tokens *auth.TokenBook
	store  *store.Store
	cfg    *config.Config
	logger zerolog.Logger

	mu         sync.Mutex
	teams      *history.Accumulator[domain.TeamsPayload]
	teamUsers  map[string]*history.Accumulator[domain.TeamUsersPayload]
	userStats  map[string]*history.Accumulator[domain.UserActivitiesPayload]
	liveTeams  domain.TeamsPayload
	challenge  *domain.ChallengeInfo
	lastPollAt time.Time
}

func NewTrackerService(client *api.Client, tokens *auth.TokenBook, st *store.Store, cfg *config.Config, logger zerolog.Logger) *TrackerService {
	return &TrackerService{
		client:    client,
		tokens:    tokens,
		store:     st,
		cfg:       cfg,
		logger:    logger,
		teams:     history.New[domain.TeamsPayload](st, store.KeyTeams, cfg.DebounceInterval, logger),
		teamUsers: make(map[string]*history.Accumulator[domain.TeamUsersPayload]),
		userStats: make(map[string]*history.Accumulator[domain.UserActivitiesPayload]),
	}
}

// Poll runs one accumulation cycle: season ranking first, then the members of
// the current top teams, then each tracked member's statistics. Accumulators
// for teams that left the top ranking are pruned; their persisted series stay
// on disk and resume if the team climbs back.
func (s *TrackerService) Poll(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	mainID, err := s.tokens.MainAccountID()
	if err != nil {
		return err
	}
	token, err := s.tokens.AccessToken(ctx, mainID)
	if err != nil {
		return err
	}

	ranking, err := s.client.GetSeasonRanking(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to fetch season ranking: %w", err)
	}

	s.refreshChallenge(ctx, token)

	payload := make(domain.TeamsPayload, len(ranking.Teams))
	for _, team := range ranking.Teams {
		payload[team.ID] = team.Points
	}

	if err := s.teams.Load(ctx); err != nil {
		return err
	}
	s.teams.Offer(ctx, payload)

	s.mu.Lock()
	s.liveTeams = payload
	s.lastPollAt = time.Now()
	s.mu.Unlock()

	topIDs := make([]string, 0, constants.RankingSize)
	for _, ranked := range history.TopN(s.teams.Series(), constants.RankingSize) {
		topIDs = append(topIDs, ranked.ID)
	}

	memberIDs, err := s.pollTeams(ctx, token, topIDs)
	if err != nil {
		return err
	}
	if err := s.pollUserStatistics(ctx, token, memberIDs); err != nil {
		return err
	}

	s.prune(topIDs, memberIDs)
	s.logger.Info().
		Int("teams", len(topIDs)).
		Int("users", len(memberIDs)).
		Msg("poll cycle completed")
	return nil
}

func (s *TrackerService) pollTeams(ctx context.Context, token string, teamIDs []string) ([]string, error) {
	var memberMu sync.Mutex
	memberIDs := make([]string, 0, len(teamIDs)*5)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, teamID := range teamIDs {
		g.Go(func() error {
			team, err := s.client.GetTeam(gctx, token, teamID)
			if err != nil {
				// One unreachable team must not lose the rest of the cycle.
				s.logger.Warn().Err(err).Str("team_id", teamID).Msg("failed to fetch team")
				return nil
			}

			payload := make(domain.TeamUsersPayload, len(team.Users))
			for _, user := range team.Users {
				payload[user.ID] = user.Points
			}

			acc := s.teamUsersAccumulator(teamID)
			if err := acc.Load(gctx); err != nil {
				return err
			}
			acc.Offer(gctx, payload)

			memberMu.Lock()
			for _, user := range team.Users {
				memberIDs = append(memberIDs, user.ID)
			}
			memberMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(memberIDs)
	return memberIDs, nil
}

func (s *TrackerService) pollUserStatistics(ctx context.Context, token string, userIDs []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, userID := range userIDs {
		g.Go(func() error {
			stats, err := s.client.GetUserStatistics(gctx, token, userID)
			if err != nil {
				s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to fetch user statistics")
				return nil
			}

			payload := make(domain.UserActivitiesPayload, len(stats.Activities))
			for _, activity := range stats.Activities {
				payload[activity.ActivityID] = domain.ActivityMetric{
					Value:  activity.Value,
					Points: activity.Points,
				}
			}

			acc := s.userStatsAccumulator(userID)
			if err := acc.Load(gctx); err != nil {
				return err
			}
			acc.Offer(gctx, payload)
			return nil
		})
	}
	return g.Wait()
}

func (s *TrackerService) teamUsersAccumulator(teamID string) *history.Accumulator[domain.TeamUsersPayload] {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.teamUsers[teamID]
	if !ok {
		acc = history.New[domain.TeamUsersPayload](s.store, store.KeyTeamUserPoints(teamID), s.cfg.DebounceInterval, s.logger)
		s.teamUsers[teamID] = acc
	}
	return acc
}

func (s *TrackerService) userStatsAccumulator(userID string) *history.Accumulator[domain.UserActivitiesPayload] {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.userStats[userID]
	if !ok {
		acc = history.New[domain.UserActivitiesPayload](s.store, store.KeyUserStatistics(userID), s.cfg.DebounceInterval, s.logger)
		s.userStats[userID] = acc
	}
	return acc
}

// prune drops accumulators for subjects that left the tracked scope. In-flight
// saves complete on their own; store writes are idempotent per key.
func (s *TrackerService) prune(teamIDs, userIDs []string) {
	keepTeams := make(map[string]bool, len(teamIDs))
	for _, id := range teamIDs {
		keepTeams[id] = true
	}
	keepUsers := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		keepUsers[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.teamUsers {
		if !keepTeams[id] {
			delete(s.teamUsers, id)
			s.logger.Debug().Str("team_id", id).Msg("team left top ranking, tracker released")
		}
	}
	for id := range s.userStats {
		if !keepUsers[id] {
			delete(s.userStats, id)
		}
	}
}

// Ranking is the latest recorded top ranking. Empty when no snapshot has been
// recorded yet; the dashboard renders that as an empty table.
func (s *TrackerService) Ranking() []domain.RankedTeam {
	ranked := history.TopN(s.teams.Series(), constants.RankingSize)
	out := make([]domain.RankedTeam, len(ranked))
	for i, r := range ranked {
		out[i] = domain.RankedTeam{TeamID: r.ID, Points: r.Score, Rank: i + 1}
	}
	return out
}

// TeamPoints reconstructs per-team point series over [start, end], with a
// synthetic point carrying the freshest live-polled values.
func (s *TrackerService) TeamPoints(start, end time.Time) []domain.TeamPoint {
	perTeam := history.PerEntity(s.teams.Series())

	s.mu.Lock()
	live := s.liveTeams
	livedAt := s.lastPollAt
	s.mu.Unlock()
	if live != nil {
		perTeam = history.AppendLive(perTeam, live, livedAt)
	}

	var out []domain.TeamPoint
	for teamID, points := range perTeam {
		for _, p := range points {
			if t := p.Time(); !t.Before(start) && !t.After(end) {
				out = append(out, domain.TeamPoint{TeamID: teamID, Time: t, Points: p.Value})
			}
		}
	}
	sortTeamPoints(out)
	return out
}

// UserPoints reconstructs one user's point series from whichever team series
// the user appears in.
func (s *TrackerService) UserPoints(userID string, start, end time.Time) []domain.UserPoint {
	s.mu.Lock()
	accs := make([]*history.Accumulator[domain.TeamUsersPayload], 0, len(s.teamUsers))
	for _, acc := range s.teamUsers {
		accs = append(accs, acc)
	}
	s.mu.Unlock()

	var out []domain.UserPoint
	for _, acc := range accs {
		for _, p := range history.PerEntity(acc.Series())[userID] {
			if t := p.Time(); !t.Before(start) && !t.After(end) {
				out = append(out, domain.UserPoint{UserID: userID, Time: t, Points: p.Value})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

// UserActivityPoints flattens one user's statistics history into per-activity
// points over [start, end].
func (s *TrackerService) UserActivityPoints(userID string, start, end time.Time) []domain.ActivityPoint {
	s.mu.Lock()
	acc, ok := s.userStats[userID]
	s.mu.Unlock()
	if !ok {
		return nil
	}

	var out []domain.ActivityPoint
	for activityID, points := range history.PerEntity(acc.Series()) {
		for _, p := range points {
			if t := p.Time(); !t.Before(start) && !t.After(end) {
				out = append(out, domain.ActivityPoint{
					ActivityID: activityID,
					Time:       t,
					Points:     p.Value.Points,
					Value:      p.Value.Value,
				})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Time.Equal(out[j].Time) {
			return out[i].ActivityID < out[j].ActivityID
		}
		return out[i].Time.Before(out[j].Time)
	})
	return out
}

// refreshChallenge keeps the current challenge metadata for the status
// endpoint. Failures are non-fatal; the last known value is kept.
func (s *TrackerService) refreshChallenge(ctx context.Context, token string) {
	challenge, err := s.client.GetMyChallenge(ctx, token)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to fetch current challenge")
		return
	}

	s.mu.Lock()
	s.challenge = &domain.ChallengeInfo{
		ID:      challenge.ID,
		Name:    challenge.Name,
		StartAt: challenge.StartAt,
		EndAt:   challenge.EndAt,
	}
	s.mu.Unlock()
}

func (s *TrackerService) Status() domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Status{
		Accounts:     s.tokens.Accounts(),
		TrackedTeams: len(s.teamUsers),
		TrackedUsers: len(s.userStats),
		Challenge:    s.challenge,
		LastPollAt:   s.lastPollAt,
	}
}

func sortTeamPoints(points []domain.TeamPoint) {
	sort.Slice(points, func(i, j int) bool {
		if points[i].Time.Equal(points[j].Time) {
			return points[i].TeamID < points[j].TeamID
		}
		return points[i].Time.Before(points[j].Time)
	})
}
