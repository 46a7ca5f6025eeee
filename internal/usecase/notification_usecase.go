package usecase

import (
	"context"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"casalivre/internal/domain/entity"
	"casalivre/internal/domain/repository"
	"casalivre/internal/infrastructure/realtime"
	"casalivre/pkg/logger"
)

// badgeCap is the highest count rendered literally; anything above shows as
// "9+".
const badgeCap = 9

// Alerter surfaces a transient cue for a freshly arrived notification, such
// as a toast or sound. Fire-and-forget: failures never affect the counter.
type Alerter interface {
	Alert(notification *entity.Notification)
}

// NopAlerter discards alerts. Used when no push surface is connected.
type NopAlerter struct{}

func (NopAlerter) Alert(*entity.Notification) {}

// NotificationUseCase maintains one live unread counter per signed-in user
// and applies read transitions.
type NotificationUseCase struct {
	repo    repository.NotificationRepository
	subs    *realtime.Manager
	alerter Alerter
	log     *logger.Logger

	mu       sync.Mutex
	counters map[string]*UnreadCounter
}

func NewNotificationUseCase(
	repo repository.NotificationRepository,
	subs *realtime.Manager,
	alerter Alerter,
	log *logger.Logger,
) *NotificationUseCase {
	if alerter == nil {
		alerter = NopAlerter{}
	}
	return &NotificationUseCase{
		repo:     repo,
		subs:     subs,
		alerter:  alerter,
		log:      log.WithComponent("notification_usecase"),
		counters: make(map[string]*UnreadCounter),
	}
}

// StartCounter seeds the user's unread count from the store and attaches the
// live feed. A second start for the same user replaces the first. When the
// feed cannot be established the counter still works on the seeded value.
func (uc *NotificationUseCase) StartCounter(ctx context.Context, userID string) (*UnreadCounter, error) {
	count, err := uc.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}

	c := &UnreadCounter{
		userID:  userID,
		count:   count,
		alerter: uc.alerter,
		log:     uc.log.With(zap.String("user_id", userID)),
		updates: make(chan int, 8),
	}

	handle, err := uc.subs.Open(realtime.UserScope(userID), c.onInsert)
	if err != nil {
		c.log.Warn("unread counter running without live feed", zap.Error(err))
	} else {
		c.handle = handle
	}

	uc.mu.Lock()
	prev := uc.counters[userID]
	uc.counters[userID] = c
	uc.mu.Unlock()
	if prev != nil {
		prev.Close()
	}

	return c, nil
}

// Counter returns the user's live counter, or nil when none is running.
func (uc *NotificationUseCase) Counter(userID string) *UnreadCounter {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.counters[userID]
}

// StopCounter detaches and discards the user's counter. Called on sign-out.
func (uc *NotificationUseCase) StopCounter(userID string) {
	uc.mu.Lock()
	c := uc.counters[userID]
	delete(uc.counters, userID)
	uc.mu.Unlock()
	if c != nil {
		c.Close()
	}
}

// ListUnread returns the user's unread notifications.
func (uc *NotificationUseCase) ListUnread(ctx context.Context, userID string) ([]*entity.Notification, error) {
	return uc.repo.ListUnread(ctx, userID)
}

// MarkRead flips the user's unread message notifications from counterpartyID
// to read and decrements the live counter by the number of rows affected.
// An empty counterpartyID clears everything.
func (uc *NotificationUseCase) MarkRead(ctx context.Context, userID, counterpartyID string) (int, error) {
	linkSubstr := ""
	if counterpartyID != "" {
		linkSubstr = "peer=" + counterpartyID
	}

	affected, err := uc.repo.MarkRead(ctx, userID, linkSubstr)
	if err != nil {
		return 0, err
	}

	if c := uc.Counter(userID); c != nil && affected > 0 {
		c.decrement(affected)
	}
	return affected, nil
}

// UnreadCounter tracks one user's unread notification count: seeded once,
// incremented on each live insert, decremented by read transitions. The
// count never goes below zero.
type UnreadCounter struct {
	userID  string
	handle  *realtime.Handle
	alerter Alerter
	log     *logger.Logger

	mu      sync.Mutex
	count   int
	closed  bool
	updates chan int
}

// Count returns the current unread count.
func (c *UnreadCounter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Badge renders the count for display.
func (c *UnreadCounter) Badge() string {
	return FormatBadge(c.Count())
}

// FormatBadge renders an unread count: empty at zero, the number up to nine,
// "9+" beyond.
func FormatBadge(n int) string {
	switch {
	case n <= 0:
		return ""
	case n > badgeCap:
		return "9+"
	default:
		return strconv.Itoa(n)
	}
}

// Updates delivers the count after each change. Non-blocking on the emitting
// side; a lagging consumer sees the latest value, not every intermediate one.
func (c *UnreadCounter) Updates() <-chan int {
	return c.updates
}

// Close detaches the live feed. Idempotent.
func (c *UnreadCounter) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.updates)
	c.mu.Unlock()

	if c.handle != nil {
		c.handle.Close()
	}
}

func (c *UnreadCounter) onInsert(ev realtime.Event) {
	if ev.Notification == nil {
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.count++
	c.emitLocked()
	c.mu.Unlock()

	go c.alerter.Alert(ev.Notification)
}

func (c *UnreadCounter) decrement(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.count -= n
	if c.count < 0 {
		c.count = 0
	}
	c.emitLocked()
}

// emitLocked pushes the current count, dropping the stalest pending value
// when the channel is full. Callers hold c.mu.
func (c *UnreadCounter) emitLocked() {
	for {
		select {
		case c.updates <- c.count:
			return
		default:
			select {
			case <-c.updates:
			default:
			}
		}
	}
}
