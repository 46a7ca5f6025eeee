package handler

import (
	"github.com/labstack/echo/v4"

	"casalivre/internal/usecase"
	"casalivre/pkg/response"
)

type ChatHandler struct {
	chatUseCase         *usecase.ChatUseCase
	notificationUseCase *usecase.NotificationUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase, notificationUseCase *usecase.NotificationUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase:         chatUseCase,
		notificationUseCase: notificationUseCase,
	}
}

type sendMessageRequest struct {
	ListingID     string `json:"listing_id" validate:"required"`
	ReceiverID    string `json:"receiver_id" validate:"required"`
	Content       string `json:"content"`
	AttachmentURL string `json:"attachment_url,omitempty" validate:"omitempty,url"`
}

// SendMessage persists one message without a live session.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	message, err := h.chatUseCase.Send(c.Request().Context(), userID, usecase.SendInput{
		ListingID:     req.ListingID,
		ReceiverID:    req.ReceiverID,
		Content:       req.Content,
		AttachmentURL: req.AttachmentURL,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

// ListMessages returns the conversation log with one counterparty on one
// listing. Selecting the conversation marks its notifications read.
func (h *ChatHandler) ListMessages(c echo.Context) error {
	userID := c.Get("uid").(string)
	listingID := c.Param("listingId")
	peerID := c.Param("peerId")

	messages, err := h.chatUseCase.History(c.Request().Context(), userID, listingID, peerID)
	if err != nil {
		return response.Error(c, err)
	}

	if _, err := h.notificationUseCase.MarkRead(c.Request().Context(), userID, peerID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, messages)
}
