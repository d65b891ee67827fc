package middleware

import (
	"fmt"
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"

	"github.com/meinhoongagan/tutor-sessions/models"
	"github.com/meinhoongagan/tutor-sessions/utils"
)

const actorKey = "actor"

// Protected verifies the bearer token and stores the caller's Actor in
// the request locals.
func Protected(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   []byte(secret),
		ErrorHandler: jwtError,
		SuccessHandler: func(c *fiber.Ctx) error {
			token, ok := c.Locals("user").(*jwt.Token)
			if !ok {
				return unauthorized(c, "Invalid token")
			}
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return unauthorized(c, "Invalid token claims")
			}

			actor, err := ActorFromClaims(claims)
			if err != nil {
				log.Debugf("rejecting token: %v", err)
				return unauthorized(c, "Invalid identity in token")
			}
			c.Locals(actorKey, actor)
			return c.Next()
		},
	})
}

// Actor returns the authenticated caller. It panics if Protected did not
// run first.
func Actor(c *fiber.Ctx) models.Actor {
	return c.Locals(actorKey).(models.Actor)
}

// ActorFromClaims reads the id and role claims.
func ActorFromClaims(claims jwt.MapClaims) (models.Actor, error) {
	id, err := extractUserID(claims)
	if err != nil {
		return models.Actor{}, err
	}
	role, err := extractRole(claims)
	if err != nil {
		return models.Actor{}, err
	}
	actor := models.Actor{ID: id, Role: role}
	return actor, actor.Validate()
}

// extractUserID handles multiple potential formats of user ID in token
func extractUserID(claims jwt.MapClaims) (uint, error) {
	idVal := claims["id"]
	if idVal == nil {
		return 0, fmt.Errorf("no ID found in claims")
	}

	switch v := idVal.(type) {
	case float64:
		if v < 1 || v != math.Trunc(v) || v > math.MaxUint32 {
			return 0, fmt.Errorf("invalid ID %v", v)
		}
		return uint(v), nil
	case string:
		parsed, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("could not parse ID string: %v", err)
		}
		if parsed == 0 {
			return 0, fmt.Errorf("invalid ID %q", v)
		}
		return uint(parsed), nil
	default:
		return 0, fmt.Errorf("unsupported ID type: %T", v)
	}
}

func extractRole(claims jwt.MapClaims) (models.Role, error) {
	roleVal, ok := claims["role"].(string)
	if !ok {
		return "", fmt.Errorf("no role found in claims")
	}
	return models.ParseRole(roleVal)
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(utils.ErrorResponse{
		Message: msg,
		Error:   "Unauthorized",
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	log.Debugf("jwt error: %v", err)
	return unauthorized(c, "Invalid or expired token")
}
