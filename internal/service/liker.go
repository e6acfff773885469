package service

import (
	"context"
	"errors"

	"squad-tracker/internal/api"
	"squad-tracker/internal/auth"
	"squad-tracker/internal/config"
	"squad-tracker/internal/constants"
	"squad-tracker/internal/domain"
	"squad-tracker/internal/repository"
	"squad-tracker/internal/store"

	"github.com/rs/zerolog"
)

// catchUpPageLimit bounds how many feed pages one cycle walks while looking
// for the last post it had seen.
const catchUpPageLimit = 20

// LikerService likes teammates' social posts on behalf of each enabled
// account. It watches the newest feed page for posts since the last one it
// knew about, and separately crawls backwards through the feed history one
// page per cycle until exhausted. Both cursors persist across restarts.
type LikerService struct {
	client  *api.Client
	tokens  *auth.TokenBook
	store   *store.Store
	actions *repository.ActionLogRepository
	cfg     *config.Config
	logger  zerolog.Logger
}

func NewLikerService(client *api.Client, tokens *auth.TokenBook, st *store.Store, actions *repository.ActionLogRepository, cfg *config.Config, logger zerolog.Logger) *LikerService {
	return &LikerService{
		client:  client,
		tokens:  tokens,
		store:   st,
		actions: actions,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run drives one account until ctx is cancelled.
func (s *LikerService) Run(ctx context.Context, accountID string) error {
	logger := s.logger.With().Str("account_id", accountID).Logger()

	for {
		if err := s.cycle(ctx, accountID, logger); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn().Err(err).Msg("auto-like cycle failed")
		}
		if !sleepCtx(ctx, s.cfg.LikeInterval) {
			return nil
		}
	}
}

func (s *LikerService) cycle(ctx context.Context, accountID string, logger zerolog.Logger) error {
	state, err := s.loadState(ctx, accountID)
	if err != nil {
		return err
	}
	if !state.Enabled {
		return nil
	}

	token, err := s.tokens.AccessToken(ctx, accountID)
	if err != nil {
		return err
	}

	teammates, err := s.fetchTeammates(ctx, token)
	if err != nil {
		return err
	}

	if err := s.watchLatest(ctx, accountID, token, teammates, &state, logger); err != nil {
		return err
	}
	if err := s.crawlHistory(ctx, accountID, token, teammates, &state, logger); err != nil {
		return err
	}

	return s.store.Save(ctx, store.KeyAutoLike(accountID), state)
}

func (s *LikerService) fetchTeammates(ctx context.Context, token string) (map[string]bool, error) {
	apiCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	team, err := s.client.GetMyTeam(apiCtx, token)
	if err != nil {
		return nil, err
	}
	teammates := make(map[string]bool, len(team.Users))
	for _, user := range team.Users {
		teammates[user.ID] = true
	}
	return teammates, nil
}

// watchLatest scans the newest feed page and, when the last known post is not
// on it, walks forward page by page until it is found, liking teammate posts
// along the way. The cursor then jumps to the newest post of this cycle.
func (s *LikerService) watchLatest(ctx context.Context, accountID, token string, teammates map[string]bool, state *domain.AutoLikeState, logger zerolog.Logger) error {
	page, err := s.fetchPage(ctx, token, "")
	if err != nil {
		return err
	}
	if len(page) == 0 {
		return nil
	}

	newest := domain.PostCursor{ID: page[0].ID, Timestamp: page[0].CreatedAt.UnixMilli()}
	s.likeTeammatePosts(ctx, accountID, token, teammates, page, logger)

	if state.LatestKnownPost == nil {
		// First run for this account: start watching from the current top.
		state.LatestKnownPost = &newest
		return nil
	}

	known := *state.LatestKnownPost
	for pages := 0; !pageReaches(page, known) && pages < catchUpPageLimit; pages++ {
		sinceID := page[len(page)-1].ID
		page, err = s.fetchPage(ctx, token, sinceID)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			break
		}
		s.likeTeammatePosts(ctx, accountID, token, teammates, page, logger)
	}

	state.LatestKnownPost = &newest
	return nil
}

// pageReaches reports whether the page contains the known post or anything
// older than it, meaning the gap since the last cycle is covered.
func pageReaches(page []api.SocialPost, known domain.PostCursor) bool {
	for _, post := range page {
		if post.ID == known.ID || post.CreatedAt.UnixMilli() < known.Timestamp {
			return true
		}
	}
	return false
}

// crawlHistory advances the backwards crawl by one page. An empty page marks
// the history as exhausted; the crawl never runs again for this account.
func (s *LikerService) crawlHistory(ctx context.Context, accountID, token string, teammates map[string]bool, state *domain.AutoLikeState, logger zerolog.Logger) error {
	if state.LastCrawledPost != nil && state.LastCrawledPost.Ended {
		return nil
	}

	sinceID := ""
	if state.LastCrawledPost != nil {
		sinceID = state.LastCrawledPost.ID
	}

	page, err := s.fetchPage(ctx, token, sinceID)
	if err != nil {
		return err
	}
	if len(page) == 0 {
		if state.LastCrawledPost == nil {
			state.LastCrawledPost = &domain.CrawlCursor{}
		}
		state.LastCrawledPost.Ended = true
		logger.Info().Msg("feed history fully crawled")
		return nil
	}

	s.likeTeammatePosts(ctx, accountID, token, teammates, page, logger)

	last := page[len(page)-1]
	state.LastCrawledPost = &domain.CrawlCursor{
		ID:        last.ID,
		Timestamp: last.CreatedAt.UnixMilli(),
	}
	return nil
}

func (s *LikerService) likeTeammatePosts(ctx context.Context, accountID, token string, teammates map[string]bool, page []api.SocialPost, logger zerolog.Logger) {
	for _, post := range page {
		if post.Likes.IsLikedByUser || !teammates[post.Sender.ID] {
			continue
		}
		if liked, err := s.actions.HasLiked(ctx, accountID, post.ID); err == nil && liked {
			continue
		}

		apiCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
		err := s.client.LikePost(apiCtx, token, post.ID)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Str("post_id", post.ID).Msg("failed to like post")
			continue
		}

		if err := s.actions.Insert(ctx, accountID, domain.ActionLike, post.ID); err != nil {
			logger.Warn().Err(err).Msg("failed to record like action")
		}
		logger.Info().Str("post_id", post.ID).Str("sender_id", post.Sender.ID).Msg("post liked")
	}
}

func (s *LikerService) fetchPage(ctx context.Context, token, sinceID string) ([]api.SocialPost, error) {
	apiCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()
	return s.client.GetSocialPosts(apiCtx, token, sinceID)
}

func (s *LikerService) loadState(ctx context.Context, accountID string) (domain.AutoLikeState, error) {
	var state domain.AutoLikeState
	err := s.store.Load(ctx, store.KeyAutoLike(accountID), &state)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.AutoLikeState{}, err
	}
	return state, nil
}
