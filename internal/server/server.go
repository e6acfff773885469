package server

import (
	"encoding/json"
	"net/http"
	"time"

	"squad-tracker/internal/domain"
	"squad-tracker/internal/repository"
	"squad-tracker/internal/service"

	"github.com/rs/zerolog"
)

// Server exposes the accumulated history and automation controls as the JSON
// API the dashboard frontend consumes.
type Server struct {
	tracker  *service.TrackerService
	settings *service.SettingsService
	actions  *repository.ActionLogRepository
	logger   zerolog.Logger
}

func New(tracker *service.TrackerService, settings *service.SettingsService, actions *repository.ActionLogRepository, logger zerolog.Logger) *Server {
	return &Server{
		tracker:  tracker,
		settings: settings,
		actions:  actions,
		logger:   logger,
	}
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/ranking", s.handleRanking)
	mux.HandleFunc("GET /api/team-points", s.handleTeamPoints)
	mux.HandleFunc("GET /api/user-points/{userId}", s.handleUserPoints)
	mux.HandleFunc("GET /api/user-activity-points/{userId}", s.handleUserActivityPoints)
	mux.HandleFunc("GET /api/settings/{userId}", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings/{userId}", s.handlePutSettings)
	mux.HandleFunc("GET /api/actions", s.handleActions)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	return mux
}

type rankingEntry struct {
	TeamID string `json:"teamId"`
	Points int    `json:"points"`
	Rank   int    `json:"rank"`
}

func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request) {
	ranking := s.tracker.Ranking()
	out := make([]rankingEntry, len(ranking))
	for i, team := range ranking {
		out[i] = rankingEntry{TeamID: team.TeamID, Points: team.Points, Rank: team.Rank}
	}
	writeJSON(w, http.StatusOK, out)
}

type teamPointsEntry struct {
	TeamID string    `json:"teamId"`
	Time   time.Time `json:"time"`
	Points int       `json:"points"`
}

func (s *Server) handleTeamPoints(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	points := s.tracker.TeamPoints(start, end)
	out := make([]teamPointsEntry, len(points))
	for i, p := range points {
		out[i] = teamPointsEntry{TeamID: p.TeamID, Time: p.Time, Points: p.Points}
	}
	writeJSON(w, http.StatusOK, out)
}

type userPointsEntry struct {
	UserID string    `json:"userId"`
	Time   time.Time `json:"time"`
	Points int       `json:"points"`
}

func (s *Server) handleUserPoints(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	points := s.tracker.UserPoints(r.PathValue("userId"), start, end)
	out := make([]userPointsEntry, len(points))
	for i, p := range points {
		out[i] = userPointsEntry{UserID: p.UserID, Time: p.Time, Points: p.Points}
	}
	writeJSON(w, http.StatusOK, out)
}

type activityPointsEntry struct {
	ActivityID string    `json:"activityId"`
	Time       time.Time `json:"time"`
	Points     int       `json:"points"`
	Value      float64   `json:"value"`
}

func (s *Server) handleUserActivityPoints(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	points := s.tracker.UserActivityPoints(r.PathValue("userId"), start, end)
	out := make([]activityPointsEntry, len(points))
	for i, p := range points {
		out[i] = activityPointsEntry{ActivityID: p.ActivityID, Time: p.Time, Points: p.Points, Value: p.Value}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settings.Get(r.Context(), r.PathValue("userId"))
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to read settings")
		writeError(w, http.StatusInternalServerError, "failed to read settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var settings domain.AccountSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid settings body")
		return
	}

	if err := s.settings.Set(r.Context(), r.PathValue("userId"), settings); err != nil {
		s.logger.Error().Err(err).Msg("failed to save settings")
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

type actionEntry struct {
	ID        string    `json:"id"`
	AccountID string    `json:"accountId"`
	Action    string    `json:"action"`
	TargetID  string    `json:"targetId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	records, err := s.actions.Recent(r.Context(), 100)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to read action log")
		writeError(w, http.StatusInternalServerError, "failed to read action log")
		return
	}

	out := make([]actionEntry, len(records))
	for i, record := range records {
		out[i] = actionEntry{
			ID:        record.ID,
			AccountID: record.AccountID,
			Action:    record.Action,
			TargetID:  record.TargetID,
			CreatedAt: record.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type statusResponse struct {
	Accounts     []accountEntry  `json:"accounts"`
	TrackedTeams int             `json:"trackedTeams"`
	TrackedUsers int             `json:"trackedUsers"`
	Challenge    *challengeEntry `json:"challenge,omitempty"`
	LastPollAt   *time.Time      `json:"lastPollAt,omitempty"`
}

type accountEntry struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type challengeEntry struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	StartAt *time.Time `json:"startAt,omitempty"`
	EndAt   *time.Time `json:"endAt,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.tracker.Status()

	out := statusResponse{
		Accounts:     make([]accountEntry, len(status.Accounts)),
		TrackedTeams: status.TrackedTeams,
		TrackedUsers: status.TrackedUsers,
	}
	for i, account := range status.Accounts {
		out.Accounts[i] = accountEntry{ID: account.ID, Email: account.Email}
	}
	if status.Challenge != nil {
		out.Challenge = &challengeEntry{
			ID:      status.Challenge.ID,
			Name:    status.Challenge.Name,
			StartAt: status.Challenge.StartAt,
			EndAt:   status.Challenge.EndAt,
		}
	}
	if !status.LastPollAt.IsZero() {
		out.LastPollAt = &status.LastPollAt
	}
	writeJSON(w, http.StatusOK, out)
}
