package router

import (
	"github.com/labstack/echo/v4"

	"casalivre/internal/adapter/api/handler"
	"casalivre/internal/adapter/api/middleware"
)

func SetupNotificationRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	notificationHandler := handler.GetNotificationHandler()

	notifications := e.Group("/v1/notifications", authMiddleware.Authenticate)
	notifications.GET("", notificationHandler.ListUnread)
	notifications.GET("/count", notificationHandler.UnreadCount)
	notifications.POST("/read", notificationHandler.MarkRead)
}
