package serverutils

import (
	"strings"

	"premarket-access-be/internal/entity"
	"premarket-access-be/internal/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	localUserId = "user_id"
	localRole   = "role"
)

// JwtMiddleware accepts HS256 tokens carrying user_id and role claims.
// Tokens without a role are treated as agents.
func JwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		authHeader := ctx.Get("Authorization")
		if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
			return apperror.Unauthorized("missing token")
		}
		tokenStr := authHeader[7:]

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			return apperror.Unauthorized("invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return apperror.Unauthorized("invalid claims")
		}

		rawId, _ := claims["user_id"].(string)
		userId, err := uuid.Parse(rawId)
		if err != nil {
			return apperror.Unauthorized("invalid user_id claim")
		}

		role, _ := claims["role"].(string)
		if role == "" {
			role = string(entity.RoleAgent)
		}

		ctx.Locals(localUserId, userId)
		ctx.Locals(localRole, entity.Role(strings.ToLower(role)))
		return ctx.Next()
	}
}

// ActorFrom returns the caller installed by JwtMiddleware.
func ActorFrom(ctx *fiber.Ctx) (entity.Actor, error) {
	userId, ok := ctx.Locals(localUserId).(uuid.UUID)
	if !ok {
		return entity.Actor{}, apperror.Unauthorized("missing authentication")
	}
	role, _ := ctx.Locals(localRole).(entity.Role)
	return entity.Actor{UserId: userId, Role: role}, nil
}
