package auth

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token payload. The subject id is read from userId, then id
// (the claim name the user service issues), then the registered sub claim.
type Claims struct {
	UserID   any    `json:"userId,omitempty"`
	LegacyID any    `json:"id,omitempty"`
	Email    string `json:"email"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Identity extracts the gateway identity from the claims.
func (c *Claims) Identity() *Identity {
	userID := claimString(c.UserID)
	if userID == "" {
		userID = claimString(c.LegacyID)
	}
	if userID == "" {
		userID = c.Subject
	}
	return &Identity{
		UserID: userID,
		Email:  c.Email,
		Role:   c.Role,
	}
}

// claimString renders string and numeric claim values.
func claimString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

// Issue signs an HS256 token for id that expires after ttl.
func Issue(secret, issuer string, id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: id.UserID,
		Email:  id.Email,
		Role:   id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
