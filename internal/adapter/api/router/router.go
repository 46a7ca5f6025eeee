package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"casalivre/internal/adapter/api/middleware"
)

func Setup(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, adminMiddleware *middleware.AdminMiddleware, rateLimitMiddleware *middleware.RateLimitMiddleware) {
	SetupChatRouter(e, authMiddleware, rateLimitMiddleware)
	SetupNotificationRouter(e, authMiddleware)
	SetupReportRouter(e, authMiddleware, adminMiddleware, rateLimitMiddleware)
	SetupFileRouter(e, authMiddleware, rateLimitMiddleware)
	SetupWebSocketRouter(e)
	SetupHealthRouter(e)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
