package realtime

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"casalivre/pkg/logger"
)

// NatsBus backs the change feed with a NATS server so multiple API instances
// see each other's inserts. Plain core pub/sub: delivery is best effort,
// matching the feed contract.
type NatsBus struct {
	conn *nats.Conn
	log  *logger.Logger
}

func ConnectNats(url string, log *logger.Logger) (*NatsBus, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected")
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	return &NatsBus{conn: conn, log: log}, nil
}

func (b *NatsBus) Publish(subject string, data []byte) error {
	return b.conn.Publish(subject, data)
}

func (b *NatsBus) Subscribe(subject string, fn func(data []byte)) (Subscription, error) {
	sub, err := b.conn.Subscribe(subject, func(msg *nats.Msg) {
		fn(msg.Data)
	})
	if err != nil {
		return nil, err
	}
	return &natsSubscription{sub: sub}, nil
}

func (b *NatsBus) Close() {
	if b.conn != nil {
		b.conn.Close()
	}
}

type natsSubscription struct {
	sub *nats.Subscription
}

func (s *natsSubscription) Unsubscribe() error {
	return s.sub.Unsubscribe()
}
