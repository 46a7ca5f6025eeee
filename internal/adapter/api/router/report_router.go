package router

import (
	"github.com/labstack/echo/v4"

	"casalivre/internal/adapter/api/handler"
	"casalivre/internal/adapter/api/middleware"
)

func SetupReportRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, adminMiddleware *middleware.AdminMiddleware, rateLimitMiddleware *middleware.RateLimitMiddleware) {
	reportHandler := handler.GetReportHandler()

	e.POST("/v1/reports", reportHandler.FileReport, authMiddleware.Authenticate, rateLimitMiddleware.Limit("file_report"))

	admin := e.Group("/v1/admin/reports", authMiddleware.Authenticate, adminMiddleware.RequireAdmin)
	admin.GET("", reportHandler.ListPending)
	admin.POST("/:id/resolve", reportHandler.ResolveReport)
}
