package constants

import "time"

const (
	// DefaultPollInterval matches the dashboard's refetch cadence for
	// current-state vendor queries.
	DefaultPollInterval = 2 * time.Hour

	// DefaultDebounceInterval is the minimum spacing between recorded
	// entries in a history series.
	DefaultDebounceInterval = 1 * time.Hour

	DefaultLikeInterval = 30 * time.Minute

	// TokenRefreshLeeway refreshes an access token this long before its
	// exp claim.
	TokenRefreshLeeway = 5 * time.Minute
)

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	// RankingSize is how many teams from the season ranking get per-team
	// member histories tracked.
	RankingSize = 10
)
