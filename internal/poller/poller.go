// Package poller owns every background loop: the tracker poll cycle plus one
// booster and one liker loop per account. All loops share one context that is
// cancelled on shutdown, so pending timers are released on every exit path.
package poller

import (
	"context"
	"time"

	"squad-tracker/internal/auth"
	"squad-tracker/internal/config"
	"squad-tracker/internal/service"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type Poller struct {
	tracker *service.TrackerService
	booster *service.BoosterService
	liker   *service.LikerService
	tokens  *auth.TokenBook
	cfg     *config.Config
	logger  zerolog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func New(tracker *service.TrackerService, booster *service.BoosterService, liker *service.LikerService, tokens *auth.TokenBook, cfg *config.Config, logger zerolog.Logger) *Poller {
	return &Poller{
		tracker: tracker,
		booster: booster,
		liker:   liker,
		tokens:  tokens,
		cfg:     cfg,
		logger:  logger,
	}
}

// Start bootstraps account sessions and launches the loops. The legacy-key
// migration runs before the first poll cycle so split series are in place
// before any accumulator loads them.
func (p *Poller) Start(ctx context.Context) error {
	if err := p.tokens.Bootstrap(ctx, p.cfg.Accounts); err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	g, gctx := errgroup.WithContext(loopCtx)

	g.Go(func() error {
		p.runTracker(gctx)
		return nil
	})
	for _, accountID := range p.tokens.AccountIDs() {
		g.Go(func() error {
			return p.booster.Run(gctx, accountID)
		})
		g.Go(func() error {
			return p.liker.Run(gctx, accountID)
		})
	}

	go func() {
		defer close(p.done)
		if err := g.Wait(); err != nil {
			p.logger.Error().Err(err).Msg("background loop failed")
		}
	}()

	p.logger.Info().Int("accounts", len(p.tokens.AccountIDs())).Msg("poller started")
	return nil
}

func (p *Poller) runTracker(ctx context.Context) {
	if err := p.tracker.MigrateLegacy(ctx); err != nil {
		p.logger.Warn().Err(err).Msg("legacy migration failed, continuing without it")
	}

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := p.tracker.Poll(ctx); err != nil && ctx.Err() == nil {
			p.logger.Warn().Err(err).Msg("poll cycle failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()

	select {
	case <-p.done:
		p.logger.Info().Msg("poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
