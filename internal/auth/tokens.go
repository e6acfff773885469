package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"squad-tracker/internal/api"
	"squad-tracker/internal/config"
	"squad-tracker/internal/constants"
	"squad-tracker/internal/domain"
	"squad-tracker/internal/store"

	"github.com/rs/zerolog"
)

type accountState struct {
	Email  string           `json:"email"`
	ID     string           `json:"id"`
	Tokens domain.TokenPair `json:"tokens"`
}

// TokenBook holds the token pairs of every configured account, persists them
// across restarts and refreshes access tokens before they expire.
type TokenBook struct {
	client *api.Client
	store  *store.Store
	logger zerolog.Logger

	mu       sync.Mutex
	accounts map[string]*accountState // account id -> state
	order    []string                 // account ids in config order
}

func NewTokenBook(client *api.Client, st *store.Store, logger zerolog.Logger) *TokenBook {
	return &TokenBook{
		client:   client,
		store:    st,
		logger:   logger,
		accounts: make(map[string]*accountState),
	}
}

// Bootstrap restores persisted token pairs and logs in any configured account
// without a usable stored pair.
func (b *TokenBook) Bootstrap(ctx context.Context, accounts []config.Account) error {
	stored := make(map[string]accountState) // keyed by email
	if err := b.store.Load(ctx, store.KeyLoginData, &stored); err != nil && !errors.Is(err, store.ErrNotFound) {
		b.logger.Warn().Err(err).Msg("stored login data unreadable, logging in from scratch")
	}

	for _, account := range accounts {
		state, ok := stored[account.Email]
		if ok {
			if _, err := ParseClaims(state.Tokens.AccessToken); err == nil {
				b.add(&state)
				b.logger.Info().Str("email", account.Email).Msg("restored stored session")
				continue
			}
		}

		if err := b.login(ctx, account); err != nil {
			return fmt.Errorf("failed to log in %s: %w", account.Email, err)
		}
	}

	return b.persist(ctx)
}

func (b *TokenBook) login(ctx context.Context, account config.Account) error {
	apiCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	tokens, err := b.client.Login(apiCtx, account.Email, account.Password)
	if err != nil {
		return err
	}
	claims, err := ParseClaims(tokens.AccessToken)
	if err != nil {
		return err
	}

	b.add(&accountState{
		Email: account.Email,
		ID:    claims.ID,
		Tokens: domain.TokenPair{
			AccessToken:  tokens.AccessToken,
			RefreshToken: tokens.RefreshToken,
		},
	})
	b.logger.Info().Str("email", account.Email).Str("account_id", claims.ID).Msg("logged in")
	return nil
}

func (b *TokenBook) add(state *accountState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.accounts[state.ID]; !exists {
		b.order = append(b.order, state.ID)
	}
	b.accounts[state.ID] = state
}

// AccessToken returns a valid access token for the account, refreshing the
// pair first when the current token is within the expiry leeway.
func (b *TokenBook) AccessToken(ctx context.Context, accountID string) (string, error) {
	b.mu.Lock()
	state, ok := b.accounts[accountID]
	if !ok {
		b.mu.Unlock()
		return "", fmt.Errorf("unknown account %s", accountID)
	}
	pair := state.Tokens
	b.mu.Unlock()

	claims, err := ParseClaims(pair.AccessToken)
	if err == nil && time.Until(claims.ExpiresAt()) > constants.TokenRefreshLeeway {
		return pair.AccessToken, nil
	}

	apiCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	refreshed, err := b.client.RefreshToken(apiCtx, pair.AccessToken, pair.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token for %s: %w", accountID, err)
	}

	b.mu.Lock()
	state.Tokens = domain.TokenPair{
		AccessToken:  refreshed.AccessToken,
		RefreshToken: refreshed.RefreshToken,
	}
	b.mu.Unlock()

	b.logger.Debug().Str("account_id", accountID).Msg("token refreshed")
	if err := b.persist(ctx); err != nil {
		b.logger.Warn().Err(err).Msg("failed to persist refreshed tokens")
	}
	return refreshed.AccessToken, nil
}

// AccountIDs lists accounts in configuration order; the first one is the main
// account backing queries not tied to a specific account.
func (b *TokenBook) AccountIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

func (b *TokenBook) MainAccountID() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.order) == 0 {
		return "", errors.New("no accounts bootstrapped")
	}
	return b.order[0], nil
}

func (b *TokenBook) Accounts() []domain.AccountInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.AccountInfo, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, domain.AccountInfo{ID: id, Email: b.accounts[id].Email})
	}
	return out
}

func (b *TokenBook) persist(ctx context.Context) error {
	b.mu.Lock()
	snapshot := make(map[string]accountState, len(b.accounts))
	for _, state := range b.accounts {
		snapshot[state.Email] = *state
	}
	b.mu.Unlock()

	return b.store.Save(ctx, store.KeyLoginData, snapshot)
}
