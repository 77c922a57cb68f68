package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/cks-portal-api/internal/identity"
	"github.com/noah-isme/cks-portal-api/internal/utils"
)

// Fiber locals populated by JWTProtected.
const (
	LocalUserID   = "user_id"
	LocalUserRole = "user_role"
)

// JWTProtected returns a middleware that validates JWT bearer tokens issued by the identity provider.
// The CKS code is read from "sub" or "cks_code" and the hub role from "role"; when the role claim is
// absent it is inferred from the code prefix.
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get("Authorization")
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "Bearer "
		if !strings.HasPrefix(strings.ToLower(authorization), strings.ToLower(bearer)) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		code := extractCodeFromClaims(claims)
		if code == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "token does not carry a cks code")
		}

		role := extractUserRoleFromClaims(claims)
		if role == "" {
			if inferred, ok := identity.RoleFromID(code); ok {
				role = string(inferred)
			}
		}
		if _, ok := identity.ParseRole(role); !ok {
			return utils.SendError(c, fiber.StatusForbidden, "unknown role")
		}

		c.Locals(LocalUserID, code)
		c.Locals(LocalUserRole, role)

		return c.Next()
	}
}

func extractCodeFromClaims(claims jwt.MapClaims) string {
	keys := []string{"cks_code", "sub", "user_id"}
	for _, key := range keys {
		if value, ok := claims[key].(string); ok {
			if code := identity.Normalize(value); code != "" {
				return code
			}
		}
	}
	return ""
}

func extractUserRoleFromClaims(claims jwt.MapClaims) string {
	candidates := []string{"role", "roles"}
	for _, key := range candidates {
		if value, ok := claims[key]; ok {
			if role := normalizeRole(value); role != "" {
				return role
			}
		}
	}
	return ""
}

func normalizeRole(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case []interface{}:
		for _, item := range v {
			if str, ok := item.(string); ok {
				role := strings.ToLower(strings.TrimSpace(str))
				if role != "" {
					return role
				}
			}
		}
	default:
		return ""
	}
	return ""
}
