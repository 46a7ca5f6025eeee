package handler

import (
	"casalivre/internal/domain/service"
	"casalivre/internal/infrastructure/realtime"
	"casalivre/internal/infrastructure/websocket"
	"casalivre/internal/usecase"
	"casalivre/pkg/logger"
)

var (
	chatHandler         *ChatHandler
	conversationHandler *ConversationHandler
	notificationHandler *NotificationHandler
	reportHandler       *ReportHandler
	attachmentHandler   *AttachmentHandler
	websocketHandler    *WebSocketHandler
)

func Setup(
	chatUseCase *usecase.ChatUseCase,
	conversationUseCase *usecase.ConversationUseCase,
	notificationUseCase *usecase.NotificationUseCase,
	reportUseCase *usecase.ReportUseCase,
	sessionUseCase *usecase.SessionUseCase,
	attachments service.AttachmentService,
	subs *realtime.Manager,
	wsManager *websocket.Manager,
	log *logger.Logger,
) {
	chatHandler = NewChatHandler(chatUseCase, notificationUseCase)
	conversationHandler = NewConversationHandler(conversationUseCase)
	notificationHandler = NewNotificationHandler(notificationUseCase)
	reportHandler = NewReportHandler(reportUseCase)
	attachmentHandler = NewAttachmentHandler(attachments)
	websocketHandler = NewWebSocketHandler(sessionUseCase, chatUseCase, notificationUseCase, subs, wsManager, log)
}

func GetChatHandler() *ChatHandler {
	return chatHandler
}

func GetConversationHandler() *ConversationHandler {
	return conversationHandler
}

func GetNotificationHandler() *NotificationHandler {
	return notificationHandler
}

func GetReportHandler() *ReportHandler {
	return reportHandler
}

func GetAttachmentHandler() *AttachmentHandler {
	return attachmentHandler
}

func GetWebSocketHandler() *WebSocketHandler {
	return websocketHandler
}
