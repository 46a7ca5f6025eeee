package router

import (
	"github.com/labstack/echo/v4"

	"casalivre/internal/adapter/api/handler"
	"casalivre/internal/adapter/api/middleware"
)

func SetupFileRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimitMiddleware *middleware.RateLimitMiddleware) {
	attachmentHandler := handler.GetAttachmentHandler()

	e.POST("/v1/attachments", attachmentHandler.Upload, authMiddleware.Authenticate, rateLimitMiddleware.Limit("upload_attachment"))
}
