package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// parseRange reads the optional startDate/endDate query parameters. Absent
// bounds default to the whole history up to now.
func parseRange(r *http.Request) (time.Time, time.Time, error) {
	start := time.Time{}
	end := time.Now()

	if raw := r.URL.Query().Get("startDate"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid startDate %q", raw)
		}
		start = parsed
	}
	if raw := r.URL.Query().Get("endDate"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid endDate %q", raw)
		}
		end = parsed
	}
	return start, end, nil
}
