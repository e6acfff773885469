package auth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Claims are the two JWT payload fields this service reads. The token is
// vendor-issued and vendor-verified; only expiry scheduling and the account
// id are needed locally, so the signature is not checked here.
type Claims struct {
	ID  string `json:"id"`
	Exp int64  `json:"exp"`
}

func (c Claims) ExpiresAt() time.Time {
	return time.Unix(c.Exp, 0)
}

func ParseClaims(accessToken string) (Claims, error) {
	parts := strings.Split(accessToken, ".")
	if len(parts) != 3 {
		return Claims{}, fmt.Errorf("malformed token: expected 3 segments, got %d", len(parts))
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Claims{}, fmt.Errorf("failed to decode token payload: %w", err)
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Claims{}, fmt.Errorf("failed to parse token claims: %w", err)
	}
	if claims.ID == "" {
		return Claims{}, fmt.Errorf("token payload has no id claim")
	}
	return claims, nil
}
