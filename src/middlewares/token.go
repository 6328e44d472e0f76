package middlewares

import (
	"strconv"
	"ticketing/src/types"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// NewToken signs an HS256 access token for the given user.
func NewToken(secret string, userID uint, username string, role types.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &types.Claims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
