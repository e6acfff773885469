package history

import (
	"context"
	"testing"

	"squad-tracker/internal/store"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type legacyItem struct {
	Subject   string         `json:"subject"`
	Timestamp int64          `json:"timestamp"`
	Values    map[string]int `json:"values"`
}

func splitBySubject(item legacyItem) (string, Entry[map[string]int], bool) {
	if item.Subject == "" {
		return "", Entry[map[string]int]{}, false
	}
	return item.Subject, Entry[map[string]int]{Timestamp: item.Timestamp, Payload: item.Values}, true
}

func perSubjectKey(subject string) string { return "series-" + subject }

func TestSplitLegacyKeyGroupsPerSubject(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	legacy := []legacyItem{
		{Subject: "t1", Timestamp: 1000, Values: map[string]int{"u1": 5}},
		{Subject: "t2", Timestamp: 1000, Values: map[string]int{"u9": 3}},
		{Subject: "t1", Timestamp: 2000, Values: map[string]int{"u1": 8}},
	}
	require.NoError(t, st.Save(ctx, "old", legacy))

	err := SplitLegacyKey(ctx, st, zerolog.Nop(), "old", perSubjectKey, splitBySubject)
	require.NoError(t, err)

	var t1 []Entry[map[string]int]
	require.NoError(t, st.Load(ctx, "series-t1", &t1))
	require.Len(t, t1, 2)
	assert.Equal(t, int64(1000), t1[0].Timestamp)
	assert.Equal(t, int64(2000), t1[1].Timestamp)

	var t2 []Entry[map[string]int]
	require.NoError(t, st.Load(ctx, "series-t2", &t2))
	assert.Len(t, t2, 1)

	// The consolidated key is gone and the marker is set.
	var stale []legacyItem
	assert.ErrorIs(t, st.Load(ctx, "old", &stale), store.ErrNotFound)

	var done bool
	require.NoError(t, st.Load(ctx, "old.migrated", &done))
	assert.True(t, done)
}

func TestSplitLegacyKeyAppendsToExistingSeries(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	existing := []Entry[map[string]int]{{Timestamp: 9000, Payload: map[string]int{"u1": 1}}}
	require.NoError(t, st.Save(ctx, "series-t1", existing))
	require.NoError(t, st.Save(ctx, "old", []legacyItem{
		{Subject: "t1", Timestamp: 1000, Values: map[string]int{"u1": 5}},
	}))

	require.NoError(t, SplitLegacyKey(ctx, st, zerolog.Nop(), "old", perSubjectKey, splitBySubject))

	var merged []Entry[map[string]int]
	require.NoError(t, st.Load(ctx, "series-t1", &merged))
	require.Len(t, merged, 2)
	assert.Equal(t, int64(9000), merged[0].Timestamp)
	assert.Equal(t, int64(1000), merged[1].Timestamp)
}

func TestSplitLegacyKeyRunsAtMostOnce(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, "old", []legacyItem{
		{Subject: "t1", Timestamp: 1000, Values: map[string]int{"u1": 5}},
	}))
	require.NoError(t, SplitLegacyKey(ctx, st, zerolog.Nop(), "old", perSubjectKey, splitBySubject))

	// A second consolidated value written after the marker must be ignored.
	require.NoError(t, st.Save(ctx, "old", []legacyItem{
		{Subject: "t1", Timestamp: 2000, Values: map[string]int{"u1": 7}},
	}))
	require.NoError(t, SplitLegacyKey(ctx, st, zerolog.Nop(), "old", perSubjectKey, splitBySubject))

	var series []Entry[map[string]int]
	require.NoError(t, st.Load(ctx, "series-t1", &series))
	assert.Len(t, series, 1)
}

func TestSplitLegacyKeyDropsUnassignableItems(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, "old", []legacyItem{
		{Subject: "", Timestamp: 1000, Values: map[string]int{"u1": 5}},
		{Subject: "t1", Timestamp: 2000, Values: map[string]int{"u1": 7}},
	}))

	require.NoError(t, SplitLegacyKey(ctx, st, zerolog.Nop(), "old", perSubjectKey, splitBySubject))

	var series []Entry[map[string]int]
	require.NoError(t, st.Load(ctx, "series-t1", &series))
	assert.Len(t, series, 1)
}

func TestSplitLegacyKeyMarksWhenNothingToMigrate(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, SplitLegacyKey(ctx, st, zerolog.Nop(), "old", perSubjectKey, splitBySubject))

	var done bool
	require.NoError(t, st.Load(ctx, "old.migrated", &done))
	assert.True(t, done)
}

func TestSplitLegacyKeyDropsUnreadableValue(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, "old", "not a legacy slice"))
	require.NoError(t, SplitLegacyKey(ctx, st, zerolog.Nop(), "old", perSubjectKey, splitBySubject))

	var stale string
	assert.ErrorIs(t, st.Load(ctx, "old", &stale), store.ErrNotFound)

	var done bool
	require.NoError(t, st.Load(ctx, "old.migrated", &done))
	assert.True(t, done)
}
