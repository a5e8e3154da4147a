package natsadapter

import (
	"sync"

	"github.com/nats-io/nats.go"
)

// Subscriber fans session events out to local listeners such as WebSocket
// connections. It uses core NATS subscriptions, so listeners only see events
// published while they are connected.
type Subscriber struct {
	conn *nats.Conn

	mu   sync.Mutex
	subs map[*nats.Subscription]struct{}
}

// NewSubscriber wraps an existing connection.
func NewSubscriber(conn *nats.Conn) *Subscriber {
	return &Subscriber{conn: conn, subs: make(map[*nats.Subscription]struct{})}
}

// SubscribeSession calls handler with the raw JSON Event of every message
// published for sessionID. The returned func unsubscribes.
func (s *Subscriber) SubscribeSession(sessionID string, handler func(subject string, data []byte)) (func(), error) {
	sub, err := s.conn.Subscribe(SessionSubjects(sessionID), func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, sub)
		s.mu.Unlock()
		_ = sub.Unsubscribe()
	}, nil
}

// Close removes every subscription still open.
func (s *Subscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	s.subs = make(map[*nats.Subscription]struct{})
}
