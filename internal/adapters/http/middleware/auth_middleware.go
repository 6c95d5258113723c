package middleware

import (
	"errors"
	"strings"

	"loanhub/internal/adapters/http/handlers"
	"loanhub/internal/core/domain"
	"loanhub/internal/pkg/jwt"
	"loanhub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// bearerToken reads the access token from the Authorization header
func bearerToken(c *fiber.Ctx) string {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

// actorFromClaims rebuilds the request identity from token claims
func actorFromClaims(claims *jwt.Claims) *domain.Actor {
	affiliation := domain.NoAffiliation()
	switch {
	case claims.BranchID != nil && claims.TeamID != nil:
		affiliation = domain.InTeam(*claims.BranchID, *claims.TeamID)
	case claims.BranchID != nil:
		affiliation = domain.InBranch(*claims.BranchID)
	}
	return &domain.Actor{
		ID:          claims.UserID,
		Username:    claims.Username,
		Role:        domain.Role(claims.Role),
		IsStaff:     claims.IsStaff,
		Affiliation: affiliation,
	}
}

// AuthMiddleware validates the bearer token and stores the actor in c.Locals
func AuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accessToken := bearerToken(c)
		if accessToken == "" {
			return response.Fail(c, fiber.StatusUnauthorized, "unauthorized", "Access token required", nil)
		}

		claims, err := jwt.ValidateAccessToken(accessToken, secret)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return response.Fail(c, fiber.StatusUnauthorized, "unauthorized", "Access token expired", nil)
			}
			return response.Fail(c, fiber.StatusUnauthorized, "unauthorized", "Invalid access token", nil)
		}

		c.Locals(handlers.ActorKey, actorFromClaims(claims))
		return c.Next()
	}
}

// RoleMiddleware creates role-based authorization middleware
func RoleMiddleware(allowedRoles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := c.Locals(handlers.ActorKey).(*domain.Actor)
		if !ok || actor == nil {
			return response.Fail(c, fiber.StatusUnauthorized, "unauthorized", "Unauthorized", nil)
		}

		for _, role := range allowedRoles {
			if actor.Role == role {
				return c.Next()
			}
		}

		return response.Fail(c, fiber.StatusForbidden, "forbidden", "You don't have permission to access this resource", nil)
	}
}

// ManagersOnly allows admins, branch managers and team leaders
func ManagersOnly() fiber.Handler {
	return RoleMiddleware(domain.RoleAdmin, domain.RoleBranchManager, domain.RoleTeamLeader)
}
