package middleware

import (
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/meinhoongagan/tutor-sessions/models"
)

// GenerateToken signs an access token for actor.
func GenerateToken(secret string, actor models.Actor, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"id":   actor.ID,
		"role": string(actor.Role),
		"exp":  time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
