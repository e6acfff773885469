package history

import (
	"sort"
	"time"
)

type Number interface {
	~int | ~int64 | ~float64
}

type Ranked[V Number] struct {
	ID    string
	Score V
}

type Point[V any] struct {
	Timestamp int64
	Value     V
}

func (p Point[V]) Time() time.Time {
	return time.UnixMilli(p.Timestamp)
}

// Latest picks the entry with the maximum timestamp. An empty series yields
// ok=false, which callers render as "no history yet" rather than an error.
func Latest[P any](series []Entry[P]) (Entry[P], bool) {
	if len(series) == 0 {
		return Entry[P]{}, false
	}
	latest := series[0]
	for _, e := range series[1:] {
		if e.Timestamp > latest.Timestamp {
			latest = e
		}
	}
	return latest, true
}

// TopN ranks the entities of the most recent snapshot by score descending,
// truncated to n. Ties order by entity id: the pre-sort by id plus the stable
// score sort keeps equal-score output deterministic across runs.
func TopN[V Number](series []Entry[map[string]V], n int) []Ranked[V] {
	latest, ok := Latest(series)
	if !ok {
		return nil
	}

	ranked := make([]Ranked[V], 0, len(latest.Payload))
	for id, score := range latest.Payload {
		ranked = append(ranked, Ranked[V]{ID: id, Score: score})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].ID < ranked[j].ID })
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// PerEntity reconstructs one ordered (timestamp, value) sequence per entity
// from a series of mapping snapshots. Points sort by timestamp ascending, not
// insertion order, since migrated and freshly polled entries can interleave.
func PerEntity[V any](series []Entry[map[string]V]) map[string][]Point[V] {
	out := make(map[string][]Point[V])
	for _, entry := range series {
		for id, value := range entry.Payload {
			out[id] = append(out[id], Point[V]{Timestamp: entry.Timestamp, Value: value})
		}
	}
	for id := range out {
		points := out[id]
		sort.Slice(points, func(i, j int) bool { return points[i].Timestamp < points[j].Timestamp })
		out[id] = points
	}
	return out
}

// AppendLive adds a synthetic point with the freshest live-polled values, so
// graphs show current data without waiting for the next debounce-eligible
// entry. The live values are not persisted.
func AppendLive[V any](points map[string][]Point[V], live map[string]V, at time.Time) map[string][]Point[V] {
	if len(live) == 0 {
		return points
	}
	if points == nil {
		points = make(map[string][]Point[V])
	}
	ts := at.UnixMilli()
	for id, value := range live {
		points[id] = append(points[id], Point[V]{Timestamp: ts, Value: value})
	}
	return points
}
