// Package realtime implements the insert change feed: a publish/subscribe
// bus plus the scoped subscription manager the messaging core consumes.
package realtime

import "sync"

// Bus is the transport primitive under the subscription manager. The bus does
// not guarantee global ordering across network partitions; subscribers get
// events in the order the transport hands them over.
type Bus interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, fn func(data []byte)) (Subscription, error)
}

// Subscription releases one bus subscription.
type Subscription interface {
	Unsubscribe() error
}

// MemoryBus is an in-process Bus with synchronous delivery. It backs tests
// and single-process deployments that run without a NATS server.
type MemoryBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]func(data []byte)
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string]map[int]func(data []byte))}
}

func (b *MemoryBus) Publish(subject string, data []byte) error {
	b.mu.RLock()
	handlers := make([]func([]byte), 0, len(b.subs[subject]))
	for _, fn := range b.subs[subject] {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(data)
	}
	return nil
}

func (b *MemoryBus) Subscribe(subject string, fn func(data []byte)) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[subject] == nil {
		b.subs[subject] = make(map[int]func(data []byte))
	}
	id := b.nextID
	b.nextID++
	b.subs[subject][id] = fn

	return &memorySubscription{bus: b, subject: subject, id: id}, nil
}

type memorySubscription struct {
	bus     *MemoryBus
	subject string
	id      int
}

func (s *memorySubscription) Unsubscribe() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	delete(s.bus.subs[s.subject], s.id)
	return nil
}
