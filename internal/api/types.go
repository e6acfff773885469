package api

import "time"

type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	TeamID    string `json:"teamId"`
	Points    int    `json:"points"`
}

type TeamResponse struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Points           int        `json:"points"`
	BoostAvailableAt *time.Time `json:"boostAvailableAt,omitempty"`
	Users            []TeamUser `json:"users"`
}

type TeamUser struct {
	ID          string `json:"id"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Points      int    `json:"points"`
	IsBoostable bool   `json:"isBoostable"`
}

type SeasonRankingResponse struct {
	Teams []RankingTeam `json:"teams"`
}

type RankingTeam struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Points int    `json:"points"`
}

type UserStatisticsResponse struct {
	ID         string         `json:"id"`
	Activities []UserActivity `json:"activities"`
}

type UserActivity struct {
	ActivityID string  `json:"activityId"`
	Value      float64 `json:"value"`
	Points     int     `json:"points"`
}

type ChallengeResponse struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	StartAt *time.Time `json:"startAt,omitempty"`
	EndAt   *time.Time `json:"endAt,omitempty"`
}

type SocialPost struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"createdAt"`
	Message   string     `json:"message"`
	Sender    PostSender `json:"sender"`
	Likes     PostLikes  `json:"likes"`
}

type PostSender struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type PostLikes struct {
	Count         int  `json:"count"`
	IsLikedByUser bool `json:"isLikedByUser"`
}
