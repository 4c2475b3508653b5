package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/hkbharti77/AI-Counsellor/utils/auth"
	"github.com/hkbharti77/AI-Counsellor/utils/response"
)

const (
	studentIDKey = "student_id"
	roleKey      = "user_role"
)

// AuthMiddleware resolves the student behind a bearer token
type AuthMiddleware struct {
	jwtManager *auth.JWTManager
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *auth.JWTManager) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
	}
}

// Required rejects requests without a valid access token and stores the
// student id for the handlers. Every selection call is scoped to it.
func (m *AuthMiddleware) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return response.Unauthorized(c, "Missing authorization token")
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return response.Unauthorized(c, "Invalid authorization format")
		}

		claims, err := m.jwtManager.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				return response.Unauthorized(c, "Token has expired")
			}
			return response.Unauthorized(c, "Invalid token")
		}

		c.Locals(studentIDKey, claims.StudentID)
		c.Locals(roleKey, claims.Role)

		return c.Next()
	}
}

// GetStudentID returns the authenticated student's id
func GetStudentID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(studentIDKey).(uint)
	return id, ok && id != 0
}
