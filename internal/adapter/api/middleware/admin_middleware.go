package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"casalivre/internal/domain/repository"
)

// AdminMiddleware gates moderation endpoints on the user's mirrored role.
// Runs after Authenticate.
type AdminMiddleware struct {
	userRepo repository.UserRepository
}

func NewAdminMiddleware(userRepo repository.UserRepository) *AdminMiddleware {
	return &AdminMiddleware{
		userRepo: userRepo,
	}
}

func (m *AdminMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid, ok := c.Get("uid").(string)
		if !ok || uid == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
		}

		user, err := m.userRepo.GetByID(c.Request().Context(), uid)
		if err != nil || user.Role != "admin" {
			return echo.NewHTTPError(http.StatusForbidden, "Admin access required")
		}

		return next(c)
	}
}
