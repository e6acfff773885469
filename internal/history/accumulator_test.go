package history

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"squad-tracker/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE series (key TEXT PRIMARY KEY, value TEXT NOT NULL, updated_at TIMESTAMP NOT NULL)`)
	require.NoError(t, err)

	return store.New(db, zerolog.Nop())
}

// fakeClock lets tests step wall-clock time deterministically.
type fakeClock struct {
	at time.Time
}

func (c *fakeClock) now() time.Time { return c.at }

func (c *fakeClock) advance(d time.Duration) { c.at = c.at.Add(d) }

func newTestAccumulator(t *testing.T, st *store.Store, key string, debounce time.Duration) (*Accumulator[map[string]int], *fakeClock) {
	t.Helper()
	clock := &fakeClock{at: time.UnixMilli(0)}
	acc := New[map[string]int](st, key, debounce, zerolog.Nop())
	acc.now = clock.now
	return acc, clock
}

func TestDebounceSpacing(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	acc, clock := newTestAccumulator(t, st, "teamsData", time.Minute)
	require.NoError(t, acc.Load(ctx))

	// Empty series accepts its first entry immediately.
	acc.Offer(ctx, map[string]int{"A": 10})
	require.Equal(t, 1, acc.Len())

	// Too soon since the last recorded entry.
	clock.advance(30 * time.Second)
	acc.Offer(ctx, map[string]int{"A": 20})
	require.Equal(t, 1, acc.Len())

	// Past the debounce interval.
	clock.advance(31 * time.Second)
	acc.Offer(ctx, map[string]int{"A": 30})
	require.Equal(t, 2, acc.Len())

	series := acc.Series()
	assert.Equal(t, int64(0), series[0].Timestamp)
	assert.Equal(t, map[string]int{"A": 10}, series[0].Payload)
	assert.Equal(t, int64(61000), series[1].Timestamp)
	assert.Equal(t, map[string]int{"A": 30}, series[1].Payload)
}

func TestDebounceMeasuresAgainstMaxTimestamp(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	// Persisted entries out of chronological order, as a legacy merge can
	// leave them.
	seed := []Entry[map[string]int]{
		{Timestamp: 5000, Payload: map[string]int{"A": 2}},
		{Timestamp: 1000, Payload: map[string]int{"A": 1}},
	}
	require.NoError(t, st.Save(ctx, "k", seed))

	acc, clock := newTestAccumulator(t, st, "k", time.Minute)
	require.NoError(t, acc.Load(ctx))

	// 40s after the max timestamp (5s), even though the last slice element
	// is older.
	clock.at = time.UnixMilli(45000)
	acc.Offer(ctx, map[string]int{"A": 3})
	assert.Equal(t, 2, acc.Len())

	clock.at = time.UnixMilli(66000)
	acc.Offer(ctx, map[string]int{"A": 3})
	assert.Equal(t, 3, acc.Len())
}

func TestPreLoadPollIsBufferedAndMerged(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	acc, _ := newTestAccumulator(t, st, "k", time.Minute)

	// Polls arriving before the load completes: only the latest survives.
	acc.Offer(ctx, map[string]int{"A": 1})
	acc.Offer(ctx, map[string]int{"A": 2})
	require.Equal(t, 0, acc.Len())

	require.NoError(t, acc.Load(ctx))
	require.Equal(t, 1, acc.Len())
	assert.Equal(t, map[string]int{"A": 2}, acc.Series()[0].Payload)
}

func TestReloadIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	acc, clock := newTestAccumulator(t, st, "k", time.Minute)
	require.NoError(t, acc.Load(ctx))
	acc.Offer(ctx, map[string]int{"A": 1})
	clock.advance(2 * time.Minute)
	acc.Offer(ctx, map[string]int{"A": 2})
	want := acc.Series()

	reloaded, _ := newTestAccumulator(t, st, "k", time.Minute)
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, want, reloaded.Series())

	// Load is idempotent on an already-loaded accumulator.
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, want, reloaded.Series())
}

func TestCorruptPersistedSeriesStartsEmpty(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.Save(ctx, "k", "not a series"))

	acc, _ := newTestAccumulator(t, st, "k", time.Minute)
	require.NoError(t, acc.Load(ctx))
	assert.Equal(t, 0, acc.Len())

	// The subject keeps working after the bad value.
	acc.Offer(ctx, map[string]int{"A": 1})
	assert.Equal(t, 1, acc.Len())
}

func TestOfferPersistsWholeSeries(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	acc, clock := newTestAccumulator(t, st, "k", time.Minute)
	require.NoError(t, acc.Load(ctx))

	acc.Offer(ctx, map[string]int{"A": 1})
	clock.advance(2 * time.Minute)
	acc.Offer(ctx, map[string]int{"A": 2, "B": 7})

	var persisted []Entry[map[string]int]
	require.NoError(t, st.Load(ctx, "k", &persisted))
	assert.Equal(t, acc.Series(), persisted)
}
