package store

// Storage keys. The per-subject keys mirror the layout the dashboard has
// always used on device, so existing data keeps working.
const (
	KeyTeams      = "teamsData"
	KeyLoginData  = "loginData"
	KeyBoostPrefs = "boostSettings"

	// Legacy consolidated keys, split per subject by the one-shot migration.
	KeyLegacyTeamUserPoints = "teamUserPoints"
	KeyLegacyUserStatistics = "userStatistics"
)

func KeyTeamUserPoints(teamID string) string {
	return "teamUserPoints-" + teamID
}

func KeyUserStatistics(userID string) string {
	return "userStatistics-" + userID
}

func KeyAutoLike(accountID string) string {
	return "autoLikeSettings-" + accountID
}
