package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"casalivre/internal/domain/entity"
	"casalivre/pkg/errors"
	"casalivre/pkg/logger"
	"casalivre/pkg/metrics"
)

// ScopeKind selects what a subscription delivers.
type ScopeKind int

const (
	// ScopeConversation delivers message inserts for one listing, refiltered
	// to one exact participant pair.
	ScopeConversation ScopeKind = iota
	// ScopeUser delivers notification inserts for one user.
	ScopeUser
)

// Scope is the filter criteria defining what a subscription delivers.
type Scope struct {
	kind      ScopeKind
	listingID string
	pairKey   string
	userID    string
}

func ConversationScope(key entity.ConversationKey) Scope {
	return Scope{kind: ScopeConversation, listingID: key.ListingID, pairKey: key.PairKey()}
}

func UserScope(userID string) Scope {
	return Scope{kind: ScopeUser, userID: userID}
}

func (s Scope) Kind() ScopeKind { return s.kind }

// Key identifies the scope for the at-most-one-subscription rule.
func (s Scope) Key() string {
	if s.kind == ScopeUser {
		return "user:" + s.userID
	}
	return "conv:" + s.listingID + ":" + s.pairKey
}

func (s Scope) subject() string {
	if s.kind == ScopeUser {
		return NotificationSubject(s.userID)
	}
	return MessageSubject(s.listingID)
}

func (s Scope) label() string {
	if s.kind == ScopeUser {
		return "user"
	}
	return "conversation"
}

// Event is one qualifying insert delivered to a subscription callback.
// Exactly one of the two fields is set, matching the scope kind.
type Event struct {
	Message      *entity.Message
	Notification *entity.Notification
}

// ID returns the inserted row's id, used for per-handle deduplication.
func (e Event) ID() string {
	if e.Message != nil {
		return e.Message.ID
	}
	if e.Notification != nil {
		return e.Notification.ID
	}
	return ""
}

// ConnState reports whether the realtime transport is usable.
type ConnState int

const (
	StateLive ConnState = iota
	// StateDegraded means the transport failed to establish; the system runs
	// on fetch-on-mount data until a subscription succeeds again.
	StateDegraded
)

// Manager maintains at most one live change-feed subscription per scope and
// delivers each qualifying insert to its callback exactly once per handle.
type Manager struct {
	bus Bus
	log *logger.Logger

	mu       sync.Mutex
	active   map[string]*Handle
	degraded bool
}

func NewManager(bus Bus, log *logger.Logger) *Manager {
	return &Manager{
		bus:    bus,
		log:    log.WithComponent("realtime.manager"),
		active: make(map[string]*Handle),
	}
}

// Open begins the feed for the scope. If a subscription already exists for
// the same scope it is replaced: the old handle goes inert before the new one
// is registered, so one scope never has two live callbacks. Deliveries are
// invoked synchronously in the order the transport hands events over.
func (m *Manager) Open(scope Scope, onInsert func(Event)) (*Handle, error) {
	m.mu.Lock()
	if prev, ok := m.active[scope.Key()]; ok {
		prev.markClosed()
		delete(m.active, scope.Key())
	}
	m.mu.Unlock()

	h := &Handle{
		scope:    scope,
		manager:  m,
		onInsert: onInsert,
		seen:     make(map[string]struct{}),
	}

	sub, err := m.bus.Subscribe(scope.subject(), h.deliver)
	if err != nil {
		m.mu.Lock()
		m.degraded = true
		m.mu.Unlock()
		m.log.Error("subscription failed, degrading to fetch-on-mount",
			zap.String("scope", scope.Key()), zap.Error(err))
		return nil, errors.SubscriptionLost(err)
	}

	m.mu.Lock()
	h.sub = sub
	m.active[scope.Key()] = h
	m.degraded = false
	m.mu.Unlock()

	metrics.SubscriptionsActive.WithLabelValues(scope.label()).Inc()
	m.log.Debug("subscription opened", zap.String("scope", scope.Key()))
	return h, nil
}

// State exposes the transport condition so callers can surface degraded mode
// instead of silently swallowing it.
func (m *Manager) State() ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.degraded {
		return StateDegraded
	}
	return StateLive
}

// CloseAll tears down every live subscription. Used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	handles := make([]*Handle, 0, len(m.active))
	for _, h := range m.active {
		handles = append(handles, h)
	}
	m.mu.Unlock()

	for _, h := range handles {
		h.Close()
	}
}

// Handle is one live subscription. Close is idempotent.
type Handle struct {
	scope    Scope
	manager  *Manager
	onInsert func(Event)

	mu     sync.Mutex
	sub    Subscription
	closed bool
	seen   map[string]struct{}
}

func (h *Handle) Scope() Scope { return h.scope }

// Close releases the feed. Closing twice, or closing an already replaced
// handle, has no effect.
func (h *Handle) Close() {
	if !h.markClosed() {
		return
	}

	h.manager.mu.Lock()
	if h.manager.active[h.scope.Key()] == h {
		delete(h.manager.active, h.scope.Key())
	}
	h.manager.mu.Unlock()

	metrics.SubscriptionsActive.WithLabelValues(h.scope.label()).Dec()
	h.manager.log.Debug("subscription closed", zap.String("scope", h.scope.Key()))
}

// markClosed flips the handle inert and detaches the bus subscription.
// Returns false when the handle was already closed.
func (h *Handle) markClosed() bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.closed = true
	sub := h.sub
	h.sub = nil
	h.mu.Unlock()

	if sub != nil {
		if err := sub.Unsubscribe(); err != nil {
			h.manager.log.Warn("unsubscribe failed",
				zap.String("scope", h.scope.Key()), zap.Error(err))
		}
	}
	return true
}

func (h *Handle) deliver(data []byte) {
	ev, ok := h.decode(data)
	if !ok {
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		metrics.EventsDropped.WithLabelValues("closed").Inc()
		return
	}
	if id := ev.ID(); id != "" {
		if _, dup := h.seen[id]; dup {
			h.mu.Unlock()
			metrics.EventsDropped.WithLabelValues("duplicate").Inc()
			return
		}
		h.seen[id] = struct{}{}
	}
	h.mu.Unlock()

	metrics.EventsDelivered.WithLabelValues(h.scope.label()).Inc()
	h.onInsert(ev)
}

// decode unmarshals the event and applies the client-side refilter: the
// subject only narrows by listing, the exact participant pair is checked here.
func (h *Handle) decode(data []byte) (Event, bool) {
	switch h.scope.kind {
	case ScopeUser:
		var n entity.Notification
		if err := json.Unmarshal(data, &n); err != nil {
			h.manager.log.Warn("dropping undecodable notification event", zap.Error(err))
			metrics.EventsDropped.WithLabelValues("decode").Inc()
			return Event{}, false
		}
		if n.UserID != h.scope.userID {
			metrics.EventsDropped.WithLabelValues("filtered").Inc()
			return Event{}, false
		}
		return Event{Notification: &n}, true

	default:
		var m entity.Message
		if err := json.Unmarshal(data, &m); err != nil {
			h.manager.log.Warn("dropping undecodable message event", zap.Error(err))
			metrics.EventsDropped.WithLabelValues("decode").Inc()
			return Event{}, false
		}
		if m.Key().PairKey() != h.scope.pairKey || m.ListingID != h.scope.listingID {
			metrics.EventsDropped.WithLabelValues("filtered").Inc()
			return Event{}, false
		}
		return Event{Message: &m}, true
	}
}
