// Package history turns recurring "current value" vendor polls into
// deduplicated, append-only, timestamped series. The vendor API only exposes
// point-in-time snapshots; every trend view the dashboard renders is
// reconstructed from series accumulated here.
package history

import (
	"context"
	"errors"
	"sync"
	"time"

	"squad-tracker/internal/store"

	"github.com/rs/zerolog"
)

// Entry is one recorded snapshot of a subject. Timestamps are Unix
// milliseconds, the format the dashboard has always persisted.
type Entry[P any] struct {
	Timestamp int64 `json:"timestamp"`
	Payload   P     `json:"payload"`
}

func (e Entry[P]) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Accumulator owns the in-memory series for one subject and is its only
// writer. Poll results offered before the initial load completes are not
// dropped: the latest one is buffered and merged once the load finishes.
type Accumulator[P any] struct {
	store    *store.Store
	key      string
	debounce time.Duration
	logger   zerolog.Logger
	now      func() time.Time

	mu      sync.Mutex
	loaded  bool
	series  []Entry[P]
	pending *P
}

func New[P any](st *store.Store, key string, debounce time.Duration, logger zerolog.Logger) *Accumulator[P] {
	return &Accumulator[P]{
		store:    st,
		key:      key,
		debounce: debounce,
		logger:   logger.With().Str("series", key).Logger(),
		now:      time.Now,
	}
}

// Load reads the persisted series. A missing key means a fresh subject and
// yields an empty series; a corrupted value is treated the same way, with a
// warning, so one bad write can never wedge the subject. Load is idempotent.
func (a *Accumulator[P]) Load(ctx context.Context) error {
	a.mu.Lock()
	if a.loaded {
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	var series []Entry[P]
	err := a.store.Load(ctx, a.key, &series)
	switch {
	case errors.Is(err, store.ErrNotFound):
		series = nil
	case err != nil:
		a.logger.Warn().Err(err).Msg("persisted series unreadable, starting empty")
		series = nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.loaded {
		return nil
	}
	a.series = series
	a.loaded = true
	a.logger.Debug().Int("entries", len(a.series)).Msg("series loaded")

	if a.pending != nil {
		payload := *a.pending
		a.pending = nil
		a.offerLocked(ctx, payload)
	}
	return nil
}

// Offer considers one poll result for recording. Before the load completes it
// only remembers the latest payload. Afterwards the result is appended unless
// the newest recorded entry is younger than the debounce interval; an empty
// series accepts its first entry immediately.
func (a *Accumulator[P]) Offer(ctx context.Context, payload P) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.loaded {
		a.pending = &payload
		return
	}
	a.offerLocked(ctx, payload)
}

func (a *Accumulator[P]) offerLocked(ctx context.Context, payload P) {
	now := a.now()
	if last, ok := lastEntryTime(a.series); ok && now.Sub(last) < a.debounce {
		a.logger.Debug().Time("last_entry", last).Msg("poll result within debounce interval, discarded")
		return
	}

	a.series = append(a.series, Entry[P]{Timestamp: now.UnixMilli(), Payload: payload})
	a.logger.Info().Int("entries", len(a.series)).Msg("snapshot recorded")

	// Whole-series overwrite: a failed write is retried implicitly by the
	// next successful one, so the store converges on the in-memory state.
	if err := a.store.Save(ctx, a.key, a.series); err != nil {
		a.logger.Warn().Err(err).Msg("failed to persist series, will retry on next append")
	}
}

// Series returns a copy of the in-memory series.
func (a *Accumulator[P]) Series() []Entry[P] {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Entry[P], len(a.series))
	copy(out, a.series)
	return out
}

func (a *Accumulator[P]) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.series)
}

// lastEntryTime is the maximum timestamp over all entries. Insertion order is
// not trusted: merged legacy data can interleave out of chronological order.
func lastEntryTime[P any](series []Entry[P]) (time.Time, bool) {
	if len(series) == 0 {
		return time.Time{}, false
	}
	last := series[0].Timestamp
	for _, e := range series[1:] {
		if e.Timestamp > last {
			last = e.Timestamp
		}
	}
	return time.UnixMilli(last), true
}
