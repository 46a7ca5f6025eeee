package usecase

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"casalivre/internal/domain/entity"
	"casalivre/internal/domain/repository"
	"casalivre/internal/domain/service"
	"casalivre/internal/infrastructure/realtime"
	"casalivre/pkg/errors"
	"casalivre/pkg/logger"
	"casalivre/pkg/metrics"
)

// reconcileWindow bounds how far apart an optimistic entry and its server
// echo may be and still be considered the same message.
const reconcileWindow = 10 * time.Second

// sessionEventBuffer sizes the per-session event channel. Emission never
// blocks; when a consumer lags, the oldest snapshot is dropped in favor of
// the newest.
const sessionEventBuffer = 16

// SessionState is the lifecycle phase of a chat session.
type SessionState int32

const (
	StateIdle SessionState = iota
	StateLoading
	StateReady
	StateClosing
)

// SessionEvent is one observable snapshot of a session's message log.
type SessionEvent struct {
	Log []*entity.Message
	// ScrolledToEnd is set when the log grew, signaling the view to jump to
	// the newest message.
	ScrolledToEnd bool
	ConnState     realtime.ConnState
}

// SendInput carries one outgoing message. Content may be empty when an
// attachment is present, and vice versa. AttachmentURL references an already
// uploaded file; Attachment uploads inline.
type SendInput struct {
	ListingID     string
	ReceiverID    string
	Content       string
	AttachmentURL string
	Attachment    *Attachment
}

// Attachment is a file accompanying a message. Body is consumed on send.
type Attachment struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// ChatUseCase coordinates conversations: it owns at most one open session per
// user, persists outgoing messages, and fans the receiving side's
// notification out unless that user already has the conversation open.
type ChatUseCase struct {
	messageRepo      repository.MessageRepository
	notificationRepo repository.NotificationRepository
	userRepo         repository.UserRepository
	subs             *realtime.Manager
	attachments      service.AttachmentService
	log              *logger.Logger

	mu       sync.Mutex
	sessions map[string]*ChatSession
}

func NewChatUseCase(
	messageRepo repository.MessageRepository,
	notificationRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	subs *realtime.Manager,
	attachments service.AttachmentService,
	log *logger.Logger,
) *ChatUseCase {
	return &ChatUseCase{
		messageRepo:      messageRepo,
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		subs:             subs,
		attachments:      attachments,
		log:              log.WithComponent("chat_usecase"),
		sessions:         make(map[string]*ChatSession),
	}
}

// OpenSession opens the conversation (listingID, userID, counterpartyID) for
// userID. The subscription is established before history is fetched so no
// insert lands in the gap between the two. A user holds at most one open
// session; the previous one, if any, is closed only after the new one is
// live.
func (uc *ChatUseCase) OpenSession(ctx context.Context, userID, listingID, counterpartyID string) (*ChatSession, error) {
	if counterpartyID == "" || counterpartyID == userID {
		return nil, errors.BadRequest("invalid conversation counterparty", nil)
	}
	if listingID == "" {
		return nil, errors.BadRequest("listing id is required", nil)
	}

	key := entity.NewConversationKey(listingID, userID, counterpartyID)
	s := &ChatSession{
		uc:     uc,
		userID: userID,
		key:    key,
		state:  StateLoading,
		events: make(chan SessionEvent, sessionEventBuffer),
		log:    uc.log.WithConversation(key.ListingID, key.UserA, key.UserB),
	}

	// Subscribe first. A failed subscription degrades the session to
	// fetch-on-mount data instead of failing the open.
	handle, err := uc.subs.Open(realtime.ConversationScope(key), s.onInsert)
	if err != nil {
		s.connState = realtime.StateDegraded
		s.log.Warn("opening session without live feed", zap.Error(err))
	} else {
		s.handle = handle
	}

	history, err := uc.messageRepo.ListConversation(ctx, userID, key)
	if err != nil {
		if s.handle != nil {
			s.handle.Close()
		}
		return nil, err
	}

	s.mu.Lock()
	s.absorb(history)
	s.state = StateReady
	s.mu.Unlock()

	uc.mu.Lock()
	prev := uc.sessions[userID]
	uc.sessions[userID] = s
	uc.mu.Unlock()
	if prev != nil {
		prev.Close()
	}

	s.log.Info("chat session opened", zap.Int("history", len(history)))
	return s, nil
}

// CloseSession closes the user's open session, if any.
func (uc *ChatUseCase) CloseSession(userID string) {
	uc.mu.Lock()
	s := uc.sessions[userID]
	uc.mu.Unlock()
	if s != nil {
		s.Close()
	}
}

// Session returns the user's open session, or nil.
func (uc *ChatUseCase) Session(userID string) *ChatSession {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.sessions[userID]
}

// History returns the full conversation log for userID without opening a
// session. Used by the REST surface.
func (uc *ChatUseCase) History(ctx context.Context, userID, listingID, counterpartyID string) ([]*entity.Message, error) {
	key := entity.NewConversationKey(listingID, userID, counterpartyID)
	return uc.messageRepo.ListConversation(ctx, userID, key)
}

// Send persists one message from senderID without requiring an open session.
// Used by the REST surface; session sends go through ChatSession.Send.
func (uc *ChatUseCase) Send(ctx context.Context, senderID string, input SendInput) (*entity.Message, error) {
	msg, err := uc.prepare(ctx, senderID, input)
	if err != nil {
		return nil, err
	}

	inserted, err := uc.messageRepo.Insert(ctx, msg)
	if err != nil {
		metrics.MessagesSent.WithLabelValues("failed").Inc()
		return nil, err
	}
	metrics.MessagesSent.WithLabelValues("ok").Inc()

	uc.notifyReceiver(ctx, inserted)
	return inserted, nil
}

// prepare validates the input and uploads the attachment. The resulting
// message is ready for insert; it carries no id or timestamp yet.
func (uc *ChatUseCase) prepare(ctx context.Context, senderID string, input SendInput) (*entity.Message, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" && input.Attachment == nil && input.AttachmentURL == "" {
		return nil, errors.EmptyMessage()
	}

	attachmentURL := input.AttachmentURL
	if input.Attachment != nil {
		url, err := uc.attachments.Upload(ctx, senderID,
			input.Attachment.Filename, input.Attachment.ContentType, input.Attachment.Body)
		if err != nil {
			metrics.MessagesSent.WithLabelValues("upload_failed").Inc()
			return nil, errors.UploadFailed(err)
		}
		attachmentURL = url
	}

	return &entity.Message{
		ListingID:     input.ListingID,
		SenderID:      senderID,
		ReceiverID:    input.ReceiverID,
		Content:       content,
		AttachmentURL: attachmentURL,
	}, nil
}

// notifyReceiver records an unread notification for the message receiver.
// Skipped when the receiver already has this exact conversation open: the
// message reaches them through the session feed and needs no badge.
func (uc *ChatUseCase) notifyReceiver(ctx context.Context, msg *entity.Message) {
	if s := uc.Session(msg.ReceiverID); s != nil && s.Key() == msg.Key() {
		return
	}

	senderName := msg.SenderID
	if sender, err := uc.userRepo.GetByID(ctx, msg.SenderID); err == nil {
		senderName = sender.Username
	}

	n := &entity.Notification{
		UserID:  msg.ReceiverID,
		Content: "New message from " + senderName,
		Link:    NotificationLink(msg.ListingID, msg.SenderID),
	}
	if err := uc.notificationRepo.Create(ctx, n); err != nil {
		// The message itself is already durable; a lost notification is a
		// missed badge, not lost data.
		uc.log.Warn("notification create failed",
			zap.String("receiver_id", msg.ReceiverID), zap.Error(err))
	}
}

// NotificationLink is the navigation target stored on message notifications.
// MarkRead filters on the peer fragment to clear one counterparty at a time.
func NotificationLink(listingID, senderID string) string {
	return "/messages?listing=" + listingID + "&peer=" + senderID
}

// ChatSession is one open conversation. All log mutations are serialized
// through its mutex; observers consume immutable snapshots from Events.
type ChatSession struct {
	uc     *ChatUseCase
	userID string
	key    entity.ConversationKey
	handle *realtime.Handle
	log    *logger.Logger

	mu        sync.Mutex
	state     SessionState
	messages  []*entity.Message
	connState realtime.ConnState
	events    chan SessionEvent
	closed    bool
}

func (s *ChatSession) Key() entity.ConversationKey { return s.key }

func (s *ChatSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *ChatSession) ConnState() realtime.ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connState
}

// Events delivers log snapshots as the session changes. The channel is closed
// when the session closes.
func (s *ChatSession) Events() <-chan SessionEvent {
	return s.events
}

// Log returns a copy of the current message log, ascending by time.
func (s *ChatSession) Log() []*entity.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*entity.Message(nil), s.messages...)
}

// Send validates, uploads any attachment, appends an optimistic local echo,
// then persists. On insert failure the optimistic entry stays in the log and
// the error is returned for the caller to retry; the echo reconciles against
// the server row if a retry eventually lands.
func (s *ChatSession) Send(ctx context.Context, content string, attachment *Attachment) (*entity.Message, error) {
	msg, err := s.uc.prepare(ctx, s.userID, SendInput{
		ListingID:  s.key.ListingID,
		ReceiverID: s.key.Counterparty(s.userID),
		Content:    content,
		Attachment: attachment,
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errors.BadRequest("session is closed", nil)
	}
	s.appendOptimisticLocked(msg)
	s.emitLocked(true)
	s.mu.Unlock()

	inserted, err := s.uc.messageRepo.Insert(ctx, msg)
	if err != nil {
		metrics.MessagesSent.WithLabelValues("failed").Inc()
		return nil, err
	}
	metrics.MessagesSent.WithLabelValues("ok").Inc()

	s.uc.notifyReceiver(ctx, inserted)

	// The subscription echo normally reconciles the optimistic entry. Doing
	// it here as well covers degraded sessions with no live feed.
	s.mu.Lock()
	if !s.closed {
		s.absorb([]*entity.Message{inserted})
		s.emitLocked(false)
	}
	s.mu.Unlock()

	return inserted, nil
}

// Close tears the session down: feed first, then state. Idempotent.
func (s *ChatSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosing
	s.mu.Unlock()

	if s.handle != nil {
		s.handle.Close()
	}

	s.mu.Lock()
	s.closed = true
	s.state = StateIdle
	s.messages = nil
	close(s.events)
	s.mu.Unlock()

	s.uc.mu.Lock()
	if s.uc.sessions[s.userID] == s {
		delete(s.uc.sessions, s.userID)
	}
	s.uc.mu.Unlock()

	s.log.Info("chat session closed")
}

// onInsert receives one subscription event for this conversation.
func (s *ChatSession) onInsert(ev realtime.Event) {
	if ev.Message == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	before := len(s.messages)
	s.absorb([]*entity.Message{ev.Message})
	s.emitLocked(len(s.messages) > before)
}

// absorb merges rows into the log: a row replaces the optimistic entry it
// confirms, is dropped when its id is already present, and is appended
// otherwise. The log is re-sorted ascending, equal timestamps keeping their
// existing order. Callers hold s.mu.
func (s *ChatSession) absorb(rows []*entity.Message) {
	for _, row := range rows {
		if s.reconcileLocked(row) {
			continue
		}
		if s.containsLocked(row.ID) {
			continue
		}
		s.messages = append(s.messages, row)
	}

	// Insertion sort is stable and the log is already nearly ordered.
	for i := 1; i < len(s.messages); i++ {
		for j := i; j > 0 && s.messages[j].CreatedAt.Before(s.messages[j-1].CreatedAt); j-- {
			s.messages[j], s.messages[j-1] = s.messages[j-1], s.messages[j]
		}
	}
}

// appendOptimisticLocked adds the local echo for an outgoing message. A
// retry of a recently failed send reuses the retained echo instead of
// stacking a second one. Callers hold s.mu.
func (s *ChatSession) appendOptimisticLocked(msg *entity.Message) {
	now := time.Now()
	for i := len(s.messages) - 1; i >= 0; i-- {
		m := s.messages[i]
		if m.Local && m.SenderID == msg.SenderID && m.Content == msg.Content &&
			now.Sub(m.CreatedAt) <= reconcileWindow {
			return
		}
	}

	optimistic := *msg
	optimistic.ID = "local-" + uuid.New().String()
	optimistic.CreatedAt = now
	optimistic.Local = true
	s.messages = append(s.messages, &optimistic)
}

// reconcileLocked replaces the newest optimistic entry matching the server
// row: same sender, same content, timestamps within the reconcile window.
func (s *ChatSession) reconcileLocked(row *entity.Message) bool {
	for i := len(s.messages) - 1; i >= 0; i-- {
		m := s.messages[i]
		if !m.Local {
			continue
		}
		if m.SenderID != row.SenderID || m.Content != row.Content {
			continue
		}
		delta := row.CreatedAt.Sub(m.CreatedAt)
		if delta < 0 {
			delta = -delta
		}
		if delta > reconcileWindow {
			continue
		}
		s.messages[i] = row
		return true
	}
	return false
}

func (s *ChatSession) containsLocked(id string) bool {
	for _, m := range s.messages {
		if m.ID == id {
			return true
		}
	}
	return false
}

// emitLocked publishes a snapshot without blocking: when the consumer lags,
// the oldest pending snapshot is dropped so the newest always gets through.
// Callers hold s.mu.
func (s *ChatSession) emitLocked(grew bool) {
	ev := SessionEvent{
		Log:           append([]*entity.Message(nil), s.messages...),
		ScrolledToEnd: grew,
		ConnState:     s.connState,
	}
	for {
		select {
		case s.events <- ev:
			return
		default:
			select {
			case <-s.events:
				metrics.EventsDropped.WithLabelValues("session_backlog").Inc()
			default:
			}
		}
	}
}
