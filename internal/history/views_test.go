package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestPicksMaxTimestampNotLastElement(t *testing.T) {
	series := []Entry[map[string]int]{
		{Timestamp: 100, Payload: map[string]int{"a": 1}},
		{Timestamp: 300, Payload: map[string]int{"a": 3}},
		{Timestamp: 200, Payload: map[string]int{"a": 2}},
	}

	latest, ok := Latest(series)
	require.True(t, ok)
	assert.Equal(t, int64(300), latest.Timestamp)
}

func TestTopNRanksDescending(t *testing.T) {
	series := []Entry[map[string]int]{
		{Timestamp: 100, Payload: map[string]int{
			"teamA": 500, "teamB": 300, "teamC": 900, "teamD": 100,
		}},
	}

	ranked := TopN(series, 3)
	require.Len(t, ranked, 3)
	assert.Equal(t, Ranked[int]{ID: "teamC", Score: 900}, ranked[0])
	assert.Equal(t, Ranked[int]{ID: "teamA", Score: 500}, ranked[1])
	assert.Equal(t, Ranked[int]{ID: "teamB", Score: 300}, ranked[2])
}

func TestTopNTruncatesToN(t *testing.T) {
	payload := make(map[string]int, 15)
	for i := 0; i < 15; i++ {
		payload[fmt.Sprintf("team%02d", i)] = (i + 1) * 10
	}
	series := []Entry[map[string]int]{{Timestamp: 1, Payload: payload}}

	ranked := TopN(series, 10)
	require.Len(t, ranked, 10)
	for i := 1; i < len(ranked); i++ {
		assert.Greater(t, ranked[i-1].Score, ranked[i].Score)
	}
	assert.Equal(t, 150, ranked[0].Score)
	assert.Equal(t, 60, ranked[9].Score)
}

func TestTopNTieBreaksByID(t *testing.T) {
	series := []Entry[map[string]int]{
		{Timestamp: 1, Payload: map[string]int{"z": 5, "a": 5, "m": 5}},
	}

	ranked := TopN(series, 10)
	require.Len(t, ranked, 3)
	assert.Equal(t, "a", ranked[0].ID)
	assert.Equal(t, "m", ranked[1].ID)
	assert.Equal(t, "z", ranked[2].ID)
}

func TestTopNUsesLatestSnapshotOnly(t *testing.T) {
	series := []Entry[map[string]int]{
		{Timestamp: 200, Payload: map[string]int{"a": 1}},
		{Timestamp: 100, Payload: map[string]int{"b": 99}},
	}

	ranked := TopN(series, 10)
	require.Len(t, ranked, 1)
	assert.Equal(t, "a", ranked[0].ID)
}

func TestPerEntitySortsByTimestamp(t *testing.T) {
	// Out-of-chronological insertion order, as merged legacy data leaves it.
	series := []Entry[map[string]int]{
		{Timestamp: 10, Payload: map[string]int{"u1": 5, "u2": 7}},
		{Timestamp: 5, Payload: map[string]int{"u1": 3}},
	}

	perEntity := PerEntity(series)
	require.Len(t, perEntity, 2)
	assert.Equal(t, []Point[int]{{Timestamp: 5, Value: 3}, {Timestamp: 10, Value: 5}}, perEntity["u1"])
	assert.Equal(t, []Point[int]{{Timestamp: 10, Value: 7}}, perEntity["u2"])
}

func TestPerEntityKeepsEveryObservedEntity(t *testing.T) {
	// Disjoint entity subsets across snapshots must all survive.
	series := []Entry[map[string]int]{
		{Timestamp: 1, Payload: map[string]int{"a": 1}},
		{Timestamp: 2, Payload: map[string]int{"b": 2}},
		{Timestamp: 3, Payload: map[string]int{"c": 3}},
	}

	perEntity := PerEntity(series)
	assert.Len(t, perEntity, 3)
	for _, id := range []string{"a", "b", "c"} {
		assert.NotEmpty(t, perEntity[id])
	}
}

func TestEmptySeriesYieldEmptyViews(t *testing.T) {
	_, ok := Latest[map[string]int](nil)
	assert.False(t, ok)

	assert.Empty(t, TopN[int](nil, 10))
	assert.Empty(t, PerEntity[int](nil))
}

func TestAppendLiveAddsSyntheticPoint(t *testing.T) {
	points := PerEntity([]Entry[map[string]int]{
		{Timestamp: 1000, Payload: map[string]int{"a": 1}},
	})

	at := time.UnixMilli(5000)
	points = AppendLive(points, map[string]int{"a": 9, "b": 4}, at)

	require.Len(t, points["a"], 2)
	assert.Equal(t, Point[int]{Timestamp: 5000, Value: 9}, points["a"][1])
	assert.Equal(t, []Point[int]{{Timestamp: 5000, Value: 4}}, points["b"])
}

func TestAppendLiveOnNilMap(t *testing.T) {
	points := AppendLive[int](nil, map[string]int{"a": 1}, time.UnixMilli(1))
	require.NotNil(t, points)
	assert.Len(t, points["a"], 1)
}
