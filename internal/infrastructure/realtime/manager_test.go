package realtime

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casalivre/internal/domain/entity"
	"casalivre/pkg/errors"
	"casalivre/pkg/logger"
)

type failingBus struct{}

func (failingBus) Publish(string, []byte) error { return fmt.Errorf("transport down") }
func (failingBus) Subscribe(string, func([]byte)) (Subscription, error) {
	return nil, fmt.Errorf("transport down")
}

type eventSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *eventSink) onInsert(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *eventSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func testMessage(id string) *entity.Message {
	m := &entity.Message{ID: id, ListingID: "l1", SenderID: "u1", ReceiverID: "u2", Content: "hi"}
	m.PairKey = m.Key().PairKey()
	return m
}

func TestManagerDeliversConversationEvents(t *testing.T) {
	bus := NewMemoryBus()
	feed := NewFeed(bus, logger.NewNop())
	mgr := NewManager(bus, logger.NewNop())

	sink := &eventSink{}
	key := entity.NewConversationKey("l1", "u1", "u2")
	h, err := mgr.Open(ConversationScope(key), sink.onInsert)
	require.NoError(t, err)
	defer h.Close()

	require.NoError(t, feed.PublishMessage(testMessage("m1")))
	require.Equal(t, 1, sink.len())
	assert.Equal(t, "m1", sink.events[0].Message.ID)
}

func TestManagerDedupesByRowID(t *testing.T) {
	bus := NewMemoryBus()
	feed := NewFeed(bus, logger.NewNop())
	mgr := NewManager(bus, logger.NewNop())

	sink := &eventSink{}
	key := entity.NewConversationKey("l1", "u1", "u2")
	h, err := mgr.Open(ConversationScope(key), sink.onInsert)
	require.NoError(t, err)
	defer h.Close()

	msg := testMessage("m1")
	require.NoError(t, feed.PublishMessage(msg))
	require.NoError(t, feed.PublishMessage(msg))

	assert.Equal(t, 1, sink.len())
}

func TestManagerRefiltersByPair(t *testing.T) {
	bus := NewMemoryBus()
	feed := NewFeed(bus, logger.NewNop())
	mgr := NewManager(bus, logger.NewNop())

	sink := &eventSink{}
	key := entity.NewConversationKey("l1", "u1", "u2")
	h, err := mgr.Open(ConversationScope(key), sink.onInsert)
	require.NoError(t, err)
	defer h.Close()

	// Same listing subject, different pair.
	other := &entity.Message{ID: "m2", ListingID: "l1", SenderID: "u3", ReceiverID: "u4", Content: "x"}
	other.PairKey = other.Key().PairKey()
	require.NoError(t, feed.PublishMessage(other))

	assert.Zero(t, sink.len())
}

func TestManagerReplacesSameScope(t *testing.T) {
	bus := NewMemoryBus()
	feed := NewFeed(bus, logger.NewNop())
	mgr := NewManager(bus, logger.NewNop())

	old := &eventSink{}
	key := entity.NewConversationKey("l1", "u1", "u2")
	_, err := mgr.Open(ConversationScope(key), old.onInsert)
	require.NoError(t, err)

	current := &eventSink{}
	h, err := mgr.Open(ConversationScope(key), current.onInsert)
	require.NoError(t, err)
	defer h.Close()

	require.NoError(t, feed.PublishMessage(testMessage("m1")))

	assert.Zero(t, old.len(), "replaced handle must be inert")
	assert.Equal(t, 1, current.len())
}

func TestHandleCloseIsIdempotent(t *testing.T) {
	bus := NewMemoryBus()
	feed := NewFeed(bus, logger.NewNop())
	mgr := NewManager(bus, logger.NewNop())

	sink := &eventSink{}
	key := entity.NewConversationKey("l1", "u1", "u2")
	h, err := mgr.Open(ConversationScope(key), sink.onInsert)
	require.NoError(t, err)

	h.Close()
	h.Close()

	require.NoError(t, feed.PublishMessage(testMessage("m1")))
	assert.Zero(t, sink.len())
}

func TestClosingOneScopeLeavesOthersLive(t *testing.T) {
	bus := NewMemoryBus()
	feed := NewFeed(bus, logger.NewNop())
	mgr := NewManager(bus, logger.NewNop())

	convSink := &eventSink{}
	key := entity.NewConversationKey("l1", "u1", "u2")
	convHandle, err := mgr.Open(ConversationScope(key), convSink.onInsert)
	require.NoError(t, err)

	userSink := &eventSink{}
	userHandle, err := mgr.Open(UserScope("u2"), userSink.onInsert)
	require.NoError(t, err)
	defer userHandle.Close()

	convHandle.Close()

	require.NoError(t, feed.PublishNotification(&entity.Notification{ID: "n1", UserID: "u2"}))
	assert.Equal(t, 1, userSink.len())
	assert.Equal(t, "n1", userSink.events[0].Notification.ID)
}

func TestNotificationScopeFiltersByUser(t *testing.T) {
	bus := NewMemoryBus()
	mgr := NewManager(bus, logger.NewNop())

	sink := &eventSink{}
	h, err := mgr.Open(UserScope("u1"), sink.onInsert)
	require.NoError(t, err)
	defer h.Close()

	// Wrong payload on the right subject still gets refiltered.
	require.NoError(t, bus.Publish(NotificationSubject("u1"), []byte(`{"id":"n1","user_id":"u9"}`)))
	assert.Zero(t, sink.len())

	require.NoError(t, bus.Publish(NotificationSubject("u1"), []byte(`{"id":"n2","user_id":"u1"}`)))
	assert.Equal(t, 1, sink.len())
}

func TestManagerDegradesWhenTransportFails(t *testing.T) {
	mgr := NewManager(failingBus{}, logger.NewNop())

	_, err := mgr.Open(UserScope("u1"), func(Event) {})
	require.Error(t, err)
	assert.True(t, errors.Is(err, "SUBSCRIPTION_LOST"))
	assert.Equal(t, StateDegraded, mgr.State())
}

func TestManagerDropsUndecodableEvents(t *testing.T) {
	bus := NewMemoryBus()
	mgr := NewManager(bus, logger.NewNop())

	sink := &eventSink{}
	key := entity.NewConversationKey("l1", "u1", "u2")
	h, err := mgr.Open(ConversationScope(key), sink.onInsert)
	require.NoError(t, err)
	defer h.Close()

	require.NoError(t, bus.Publish(MessageSubject("l1"), []byte("not json")))
	assert.Zero(t, sink.len())
}

func TestCloseAll(t *testing.T) {
	bus := NewMemoryBus()
	feed := NewFeed(bus, logger.NewNop())
	mgr := NewManager(bus, logger.NewNop())

	sink := &eventSink{}
	key := entity.NewConversationKey("l1", "u1", "u2")
	_, err := mgr.Open(ConversationScope(key), sink.onInsert)
	require.NoError(t, err)
	_, err = mgr.Open(UserScope("u1"), sink.onInsert)
	require.NoError(t, err)

	mgr.CloseAll()

	require.NoError(t, feed.PublishMessage(testMessage("m1")))
	require.NoError(t, feed.PublishNotification(&entity.Notification{ID: "n1", UserID: "u1"}))
	assert.Zero(t, sink.len())
}
