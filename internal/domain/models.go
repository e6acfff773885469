package domain

import (
	"time"
)

// TeamsPayload is one recorded observation of the season ranking:
// team id -> total points.
type TeamsPayload = map[string]int

// TeamUsersPayload is one recorded observation of a single team:
// member user id -> points.
type TeamUsersPayload = map[string]int

// UserActivitiesPayload is one recorded observation of a user's statistics:
// activity id -> metric.
type UserActivitiesPayload = map[string]ActivityMetric

type ActivityMetric struct {
	Value  float64 `json:"value"`
	Points int     `json:"points"`
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type RankedTeam struct {
	TeamID string
	Points int
	Rank   int
}

type TeamPoint struct {
	TeamID string
	Time   time.Time
	Points int
}

type UserPoint struct {
	UserID string
	Time   time.Time
	Points int
}

type ActivityPoint struct {
	ActivityID string
	Time       time.Time
	Points     int
	Value      float64
}

type AccountInfo struct {
	ID    string
	Email string
}

type ChallengeInfo struct {
	ID      string
	Name    string
	StartAt *time.Time
	EndAt   *time.Time
}

type Status struct {
	Accounts     []AccountInfo
	TrackedTeams int
	TrackedUsers int
	Challenge    *ChallengeInfo
	LastPollAt   time.Time
}

type AccountSettings struct {
	AutoBoost bool `json:"autoBoost"`
	AutoLike  bool `json:"autoLike"`
}

// PostCursor marks a position in the social feed.
type PostCursor struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
}

// CrawlCursor tracks the backwards crawl through older feed pages. Ended is
// set once a page comes back empty, which means the history is exhausted.
type CrawlCursor struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Ended     bool   `json:"ended"`
}

// AutoLikeState is the persisted per-account state of the auto-liker. The
// cursors survive restarts so already-crawled history is never re-scanned.
type AutoLikeState struct {
	Enabled         bool         `json:"enabled"`
	LatestKnownPost *PostCursor  `json:"latestKnownPost,omitempty"`
	LastCrawledPost *CrawlCursor `json:"lastCrawledPost,omitempty"`
}

type ActionRecord struct {
	ID        string
	AccountID string
	Action    string
	TargetID  string
	CreatedAt time.Time
}

const (
	ActionBoost = "boost"
	ActionLike  = "like"
)
