package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"casalivre/internal/infrastructure/ratelimit"
)

type RateLimitMiddleware struct {
	limiter *ratelimit.RateLimiter
}

func NewRateLimitMiddleware(limiter *ratelimit.RateLimiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
	}
}

// Limit throttles the named action per authenticated user. Runs after
// Authenticate.
func (m *RateLimitMiddleware) Limit(action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid, ok := c.Get("uid").(string)
			if !ok || uid == "" {
				return next(c)
			}

			allowed, wait := m.limiter.Allow(uid, action)
			if !allowed {
				c.Response().Header().Set("Retry-After", fmt.Sprintf("%.0f", wait.Seconds()))
				return echo.NewHTTPError(http.StatusTooManyRequests, "Rate limit exceeded")
			}

			return next(c)
		}
	}
}
