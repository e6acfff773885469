package server

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRangeDefaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/team-points", nil)

	start, end, err := parseRange(r)
	require.NoError(t, err)
	assert.True(t, start.IsZero())
	assert.WithinDuration(t, time.Now(), end, time.Second)
}

func TestParseRangeExplicitBounds(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/team-points?startDate=2026-08-01T00:00:00Z&endDate=2026-08-15T12:00:00Z", nil)

	start, end, err := parseRange(r)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC), end)
}

func TestParseRangeRejectsBadDates(t *testing.T) {
	for _, target := range []string{
		"/api/team-points?startDate=yesterday",
		"/api/team-points?endDate=2026-08-15",
	} {
		r := httptest.NewRequest("GET", target, nil)
		_, _, err := parseRange(r)
		assert.Error(t, err, target)
	}
}
