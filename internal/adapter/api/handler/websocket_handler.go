package handler

import (
	"context"
	"encoding/json"
	"net/http"

	gorilla "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"casalivre/internal/domain/entity"
	"casalivre/internal/infrastructure/realtime"
	"casalivre/internal/infrastructure/websocket"
	"casalivre/internal/usecase"
	"casalivre/pkg/errors"
	"casalivre/pkg/logger"
)

// Inbound frame types.
const (
	frameOpenConversation  = "open_conversation"
	frameSend              = "send"
	frameCloseConversation = "close_conversation"
	frameMarkRead          = "mark_read"
)

// Outbound frame types.
const (
	frameLog          = "log"
	frameNotification = "notification"
	frameUnreadCount  = "unread_count"
	frameConnState    = "conn_state"
	frameError        = "error"
)

type inboundFrame struct {
	Type          string `json:"type"`
	ListingID     string `json:"listing_id,omitempty"`
	PeerID        string `json:"peer_id,omitempty"`
	Content       string `json:"content,omitempty"`
	AttachmentURL string `json:"attachment_url,omitempty"`
}

type outboundFrame struct {
	Type          string               `json:"type"`
	Log           []*entity.Message    `json:"log,omitempty"`
	ScrolledToEnd bool                 `json:"scrolled_to_end,omitempty"`
	Notification  *entity.Notification `json:"notification,omitempty"`
	Count         *int                 `json:"count,omitempty"`
	Badge         string               `json:"badge,omitempty"`
	State         string               `json:"state,omitempty"`
	Code          string               `json:"code,omitempty"`
	Message       string               `json:"message,omitempty"`
}

// WebSocketHandler drives the live chat protocol over one connection per
// user: session lifecycle, conversation frames, and push of notifications
// and unread counts.
type WebSocketHandler struct {
	sessionUseCase      *usecase.SessionUseCase
	chatUseCase         *usecase.ChatUseCase
	notificationUseCase *usecase.NotificationUseCase
	subs                *realtime.Manager
	wsManager           *websocket.Manager
	upgrader            gorilla.Upgrader
	log                 *logger.Logger
}

func NewWebSocketHandler(
	sessionUseCase *usecase.SessionUseCase,
	chatUseCase *usecase.ChatUseCase,
	notificationUseCase *usecase.NotificationUseCase,
	subs *realtime.Manager,
	wsManager *websocket.Manager,
	log *logger.Logger,
) *WebSocketHandler {
	return &WebSocketHandler{
		sessionUseCase:      sessionUseCase,
		chatUseCase:         chatUseCase,
		notificationUseCase: notificationUseCase,
		subs:                subs,
		wsManager:           wsManager,
		upgrader: gorilla.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log.WithComponent("websocket_handler"),
	}
}

// HandleWebSocket authenticates the token query parameter, upgrades the
// connection, and pumps frames until the client goes away.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "token query parameter is required")
	}

	ctx, cancel := context.WithCancel(c.Request().Context())

	session, err := h.sessionUseCase.Init(ctx, token)
	if err != nil {
		cancel()
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
	}
	userID := session.User.ID

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.sessionUseCase.Teardown(session)
		cancel()
		return err
	}

	client := websocket.NewClient(userID, conn)
	client.OnFrame = func(_ *websocket.Client, frame []byte) {
		h.handleFrame(ctx, userID, frame)
	}
	client.OnClose = func(*websocket.Client) {
		h.sessionUseCase.Teardown(session)
		cancel()
	}

	h.wsManager.Register <- client
	go h.pumpUnreadCount(ctx, userID, session.Counter)

	h.sendFrame(userID, connStateFrame(h.subs.State()))

	go client.WritePump(h.wsManager)
	client.ReadPump(h.wsManager)
	return nil
}

func (h *WebSocketHandler) handleFrame(ctx context.Context, userID string, raw []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		h.sendError(userID, errors.BadRequest("malformed frame", err))
		return
	}

	switch frame.Type {
	case frameOpenConversation:
		h.openConversation(ctx, userID, frame)

	case frameSend:
		h.send(ctx, userID, frame)

	case frameCloseConversation:
		h.chatUseCase.CloseSession(userID)

	case frameMarkRead:
		if _, err := h.notificationUseCase.MarkRead(ctx, userID, frame.PeerID); err != nil {
			h.sendError(userID, err)
		}

	default:
		h.sendError(userID, errors.BadRequest("unknown frame type", nil))
	}
}

func (h *WebSocketHandler) openConversation(ctx context.Context, userID string, frame inboundFrame) {
	session, err := h.chatUseCase.OpenSession(ctx, userID, frame.ListingID, frame.PeerID)
	if err != nil {
		h.sendError(userID, err)
		return
	}

	// Selecting the conversation clears its unread notifications.
	if _, err := h.notificationUseCase.MarkRead(ctx, userID, frame.PeerID); err != nil {
		h.log.Warn("mark read on open failed", zap.String("user_id", userID), zap.Error(err))
	}

	go h.pumpSession(userID, session)

	h.sendFrame(userID, outboundFrame{
		Type:          frameLog,
		Log:           session.Log(),
		ScrolledToEnd: true,
	})
	h.sendFrame(userID, connStateFrame(session.ConnState()))
}

func (h *WebSocketHandler) send(ctx context.Context, userID string, frame inboundFrame) {
	session := h.chatUseCase.Session(userID)
	if session == nil {
		h.sendError(userID, errors.BadRequest("no open conversation", nil))
		return
	}

	content := frame.Content
	if frame.AttachmentURL != "" {
		if _, err := h.chatUseCase.Send(ctx, userID, usecase.SendInput{
			ListingID:     session.Key().ListingID,
			ReceiverID:    session.Key().Counterparty(userID),
			Content:       content,
			AttachmentURL: frame.AttachmentURL,
		}); err != nil {
			h.sendError(userID, err)
		}
		return
	}

	if _, err := session.Send(ctx, content, nil); err != nil {
		h.sendError(userID, err)
	}
}

// pumpSession forwards session snapshots to the client until the session
// closes.
func (h *WebSocketHandler) pumpSession(userID string, session *usecase.ChatSession) {
	for ev := range session.Events() {
		h.sendFrame(userID, outboundFrame{
			Type:          frameLog,
			Log:           ev.Log,
			ScrolledToEnd: ev.ScrolledToEnd,
		})
	}
}

// pumpUnreadCount forwards badge updates to the client.
func (h *WebSocketHandler) pumpUnreadCount(ctx context.Context, userID string, counter *usecase.UnreadCounter) {
	if counter == nil {
		return
	}
	for {
		select {
		case count, ok := <-counter.Updates():
			if !ok {
				return
			}
			h.sendFrame(userID, outboundFrame{
				Type:  frameUnreadCount,
				Count: &count,
				Badge: usecase.FormatBadge(count),
			})
		case <-ctx.Done():
			return
		}
	}
}

func (h *WebSocketHandler) sendFrame(userID string, frame outboundFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.log.Error("frame marshal failed", zap.Error(err))
		return
	}
	h.wsManager.SendToUser(userID, data)
}

func (h *WebSocketHandler) sendError(userID string, err error) {
	frame := outboundFrame{Type: frameError, Code: "INTERNAL_ERROR", Message: "something went wrong"}
	if appErr, ok := err.(*errors.AppError); ok {
		frame.Code = appErr.Code
		frame.Message = appErr.Message
	}
	h.sendFrame(userID, frame)
}

func connStateFrame(state realtime.ConnState) outboundFrame {
	s := "live"
	if state == realtime.StateDegraded {
		s = "degraded"
	}
	return outboundFrame{Type: frameConnState, State: s}
}

// WSAlerter pushes notification cues over the user's websocket connection.
// Best effort: no connection, no cue.
type WSAlerter struct {
	wsManager *websocket.Manager
}

func NewWSAlerter(wsManager *websocket.Manager) *WSAlerter {
	return &WSAlerter{wsManager: wsManager}
}

func (a *WSAlerter) Alert(n *entity.Notification) {
	data, err := json.Marshal(outboundFrame{Type: frameNotification, Notification: n})
	if err != nil {
		return
	}
	a.wsManager.SendToUser(n.UserID, data)
}
