package handler

import (
	"github.com/labstack/echo/v4"

	"casalivre/internal/usecase"
	"casalivre/pkg/response"
)

type NotificationHandler struct {
	notificationUseCase *usecase.NotificationUseCase
}

func NewNotificationHandler(notificationUseCase *usecase.NotificationUseCase) *NotificationHandler {
	return &NotificationHandler{
		notificationUseCase: notificationUseCase,
	}
}

type markReadRequest struct {
	// PeerID limits the read transition to message notifications from one
	// counterparty. Empty clears everything.
	PeerID string `json:"peer_id"`
}

// ListUnread returns the user's unread notifications.
func (h *NotificationHandler) ListUnread(c echo.Context) error {
	userID := c.Get("uid").(string)

	notifications, err := h.notificationUseCase.ListUnread(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, notifications)
}

// UnreadCount returns the badge state for the signed-in user.
func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	userID := c.Get("uid").(string)

	if counter := h.notificationUseCase.Counter(userID); counter != nil {
		return response.Success(c, map[string]interface{}{
			"count": counter.Count(),
			"badge": counter.Badge(),
		})
	}

	notifications, err := h.notificationUseCase.ListUnread(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}
	count := len(notifications)
	return response.Success(c, map[string]interface{}{
		"count": count,
		"badge": usecase.FormatBadge(count),
	})
}

// MarkRead flips unread notifications to read.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	var req markReadRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	affected, err := h.notificationUseCase.MarkRead(c.Request().Context(), userID, req.PeerID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"marked_read": affected,
	})
}
