package handler

import (
	"github.com/labstack/echo/v4"

	"casalivre/internal/usecase"
	"casalivre/pkg/response"
)

type ConversationHandler struct {
	conversationUseCase *usecase.ConversationUseCase
}

func NewConversationHandler(conversationUseCase *usecase.ConversationUseCase) *ConversationHandler {
	return &ConversationHandler{
		conversationUseCase: conversationUseCase,
	}
}

// ListConversations returns the user's conversations grouped by listing,
// freshest listing first.
func (h *ConversationHandler) ListConversations(c echo.Context) error {
	userID := c.Get("uid").(string)

	threads, err := h.conversationUseCase.ListGrouped(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, threads)
}
