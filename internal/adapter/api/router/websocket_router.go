package router

import (
	"github.com/labstack/echo/v4"

	"casalivre/internal/adapter/api/handler"
)

// The websocket endpoint authenticates via the token query parameter, not
// the auth middleware, because browsers cannot set headers on websocket
// upgrades.
func SetupWebSocketRouter(e *echo.Echo) {
	websocketHandler := handler.GetWebSocketHandler()

	e.GET("/ws", websocketHandler.HandleWebSocket)
}
