package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"casalivre/internal/infrastructure/realtime"
)

type HealthHandler struct {
	subs *realtime.Manager
}

var healthHandler *HealthHandler

func NewHealthHandler(subs *realtime.Manager) *HealthHandler {
	return &HealthHandler{
		subs: subs,
	}
}

func SetupHealthHandler(subs *realtime.Manager) {
	healthHandler = NewHealthHandler(subs)
}

func GetHealthHandler() *HealthHandler {
	return healthHandler
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	state := "live"
	if h.subs != nil && h.subs.State() == realtime.StateDegraded {
		state = "degraded"
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":   "Server is running",
		"realtime": state,
		"time":     time.Now().Format(time.RFC3339),
	})
}
