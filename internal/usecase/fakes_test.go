package usecase

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"casalivre/internal/domain/entity"
	"casalivre/internal/infrastructure/realtime"
	"casalivre/pkg/errors"
	"casalivre/pkg/logger"
)

// testEnv wires the usecases over in-memory fakes and a synchronous bus.
type testEnv struct {
	bus      *realtime.MemoryBus
	feed     *realtime.Feed
	subs     *realtime.Manager
	messages *fakeMessageRepo
	notifs   *fakeNotificationRepo
	listings *fakeListingRepo
	users    *fakeUserRepo
	uploads  *fakeAttachmentService
	alerter  *recordingAlerter

	chat          *ChatUseCase
	notifications *NotificationUseCase
	conversations *ConversationUseCase
}

func newTestEnv() *testEnv {
	log := logger.NewNop()
	bus := realtime.NewMemoryBus()
	feed := realtime.NewFeed(bus, log)
	subs := realtime.NewManager(bus, log)

	env := &testEnv{
		bus:      bus,
		feed:     feed,
		subs:     subs,
		messages: &fakeMessageRepo{feed: feed},
		notifs:   &fakeNotificationRepo{feed: feed},
		listings: &fakeListingRepo{byID: map[string]*entity.Listing{}},
		users:    &fakeUserRepo{byID: map[string]*entity.User{}},
		uploads:  &fakeAttachmentService{},
		alerter:  &recordingAlerter{},
	}
	env.chat = NewChatUseCase(env.messages, env.notifs, env.users, subs, env.uploads, log)
	env.notifications = NewNotificationUseCase(env.notifs, subs, env.alerter, log)
	env.conversations = NewConversationUseCase(env.messages, env.listings, env.users, log)
	return env
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	rows     []*entity.Message
	nextID   int
	failNext bool
	feed     *realtime.Feed
}

func (r *fakeMessageRepo) Insert(_ context.Context, message *entity.Message) (*entity.Message, error) {
	r.mu.Lock()
	if r.failNext {
		r.failNext = false
		r.mu.Unlock()
		return nil, errors.TransientFetch("message insert failed", nil)
	}
	r.nextID++
	row := *message
	row.ID = fmt.Sprintf("m%d", r.nextID)
	row.PairKey = row.Key().PairKey()
	row.CreatedAt = time.Now()
	row.Local = false
	r.rows = append(r.rows, &row)
	r.mu.Unlock()

	_ = r.feed.PublishMessage(&row)
	return &row, nil
}

func (r *fakeMessageRepo) ListConversation(_ context.Context, userID string, key entity.ConversationKey) ([]*entity.Message, error) {
	if !key.Has(userID) {
		return nil, errors.NotAuthorized("not a participant", nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Message
	for _, m := range r.rows {
		if m.Key() == key {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) ListForUser(_ context.Context, userID string) ([]*entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Message
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].SenderID == userID || r.rows[i].ReceiverID == userID {
			out = append(out, r.rows[i])
		}
	}
	return out, nil
}

type fakeNotificationRepo struct {
	mu     sync.Mutex
	rows   []*entity.Notification
	nextID int
	feed   *realtime.Feed
}

func (r *fakeNotificationRepo) Create(_ context.Context, notification *entity.Notification) error {
	r.mu.Lock()
	r.nextID++
	row := *notification
	row.ID = fmt.Sprintf("n%d", r.nextID)
	row.CreatedAt = time.Now()
	r.rows = append(r.rows, &row)
	r.mu.Unlock()

	_ = r.feed.PublishNotification(&row)
	return nil
}

func (r *fakeNotificationRepo) CountUnread(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, n := range r.rows {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) ListUnread(_ context.Context, userID string) ([]*entity.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Notification
	for _, n := range r.rows {
		if n.UserID == userID && !n.IsRead {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, userID, linkSubstr string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	affected := 0
	for _, n := range r.rows {
		if n.UserID != userID || n.IsRead {
			continue
		}
		if linkSubstr != "" && !strings.Contains(n.Link, linkSubstr) {
			continue
		}
		n.IsRead = true
		affected++
	}
	return affected, nil
}

func (r *fakeNotificationRepo) seed(userID, link string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.rows = append(r.rows, &entity.Notification{
		ID:        fmt.Sprintf("n%d", r.nextID),
		UserID:    userID,
		Link:      link,
		CreatedAt: time.Now(),
	})
}

type fakeListingRepo struct {
	mu   sync.Mutex
	byID map[string]*entity.Listing
}

func (r *fakeListingRepo) GetByID(_ context.Context, id string) (*entity.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	listing, ok := r.byID[id]
	if !ok {
		return nil, errors.NotFound("listing", nil)
	}
	return listing, nil
}

func (r *fakeListingRepo) add(id, title string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[id] = &entity.Listing{ID: id, Title: title, Status: "active"}
}

type fakeUserRepo struct {
	mu   sync.Mutex
	byID map[string]*entity.User
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[id]
	if !ok {
		return nil, errors.NotFound("user", nil)
	}
	return user, nil
}

func (r *fakeUserRepo) Upsert(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[user.ID] = user
	return nil
}

func (r *fakeUserRepo) add(id, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[id] = &entity.User{ID: id, Username: username}
}

type fakeAttachmentService struct {
	mu       sync.Mutex
	failNext bool
	uploaded []string
}

func (s *fakeAttachmentService) Upload(_ context.Context, userID, filename, _ string, body io.Reader) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return "", fmt.Errorf("bucket unavailable")
	}
	if body != nil {
		_, _ = io.Copy(io.Discard, body)
	}
	url := "https://storage.example.com/chat/" + userID + "/" + filename
	s.uploaded = append(s.uploaded, url)
	return url, nil
}

func (s *fakeAttachmentService) Close() error { return nil }

type recordingAlerter struct {
	mu   sync.Mutex
	seen []*entity.Notification
}

func (a *recordingAlerter) Alert(n *entity.Notification) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seen = append(a.seen, n)
}

func (a *recordingAlerter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.seen)
}
