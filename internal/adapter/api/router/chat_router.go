package router

import (
	"github.com/labstack/echo/v4"

	"casalivre/internal/adapter/api/handler"
	"casalivre/internal/adapter/api/middleware"
)

func SetupChatRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimitMiddleware *middleware.RateLimitMiddleware) {
	chatHandler := handler.GetChatHandler()
	conversationHandler := handler.GetConversationHandler()

	chat := e.Group("/v1", authMiddleware.Authenticate)
	chat.GET("/conversations", conversationHandler.ListConversations)
	chat.GET("/conversations/:listingId/:peerId/messages", chatHandler.ListMessages)
	chat.POST("/messages", chatHandler.SendMessage, rateLimitMiddleware.Limit("send_message"))
}
