package auth

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildToken(t *testing.T, payload string) string {
	t.Helper()
	enc := base64.RawURLEncoding.EncodeToString
	return enc([]byte(`{"alg":"HS256","typ":"JWT"}`)) + "." + enc([]byte(payload)) + ".sig"
}

func TestParseClaims(t *testing.T) {
	token := buildToken(t, `{"id":"acc-123","exp":1756400000}`)

	claims, err := ParseClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "acc-123", claims.ID)
	assert.Equal(t, time.Unix(1756400000, 0), claims.ExpiresAt())
}

func TestParseClaimsRejectsMalformedTokens(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"two segments", "header.payload"},
		{"payload not base64", "a.!!!.c"},
		{"payload not json", buildToken(t, "not json")},
		{"missing id claim", buildToken(t, `{"exp":1756400000}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseClaims(tt.token)
			assert.Error(t, err)
		})
	}
}
