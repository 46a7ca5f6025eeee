package websocket

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"casalivre/pkg/logger"
	"casalivre/pkg/metrics"
)

// Manager tracks all connected websocket clients, one per user.
type Manager struct {
	clients    map[string]*Client
	Register   chan *Client
	Unregister chan *Client
	mutex      sync.RWMutex
	log        *logger.Logger
}

func NewManager(log *logger.Logger) *Manager {
	return &Manager{
		clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		log:        log.WithComponent("websocket"),
	}
}

// Start runs the manager's main loop in a goroutine.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				// A reconnect replaces the previous connection for the user.
				if prev, ok := m.clients[client.UserID]; ok {
					close(prev.Send)
				}
				m.clients[client.UserID] = client
				m.mutex.Unlock()
				metrics.WSConnectionsActive.Inc()
				m.log.Debug("client registered", zap.String("user_id", client.UserID))

			case client := <-m.Unregister:
				m.mutex.Lock()
				if current, ok := m.clients[client.UserID]; ok && current == client {
					delete(m.clients, client.UserID)
					close(client.Send)
				}
				m.mutex.Unlock()
				metrics.WSConnectionsActive.Dec()
				m.log.Debug("client unregistered", zap.String("user_id", client.UserID))

			case <-ctx.Done():
				return
			}
		}
	}()
}

// SendToUser delivers a frame to the user's connection if one is open.
// Best effort: a slow or absent client drops the frame.
func (m *Manager) SendToUser(userID string, message []byte) {
	m.mutex.RLock()
	client, ok := m.clients[userID]
	m.mutex.RUnlock()

	if !ok {
		return
	}

	select {
	case client.Send <- message:
	default:
		m.log.Warn("dropping frame for slow client", zap.String("user_id", userID))
	}
}

// IsConnected reports whether the user currently has a live connection.
func (m *Manager) IsConnected(userID string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	_, ok := m.clients[userID]
	return ok
}
