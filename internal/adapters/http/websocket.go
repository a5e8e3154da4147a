package http

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	natsadapter "github.com/samirrijal/nearme/internal/adapters/nats"
	"github.com/samirrijal/nearme/internal/core/domain"
	"github.com/samirrijal/nearme/internal/core/usecases"
	"github.com/samirrijal/nearme/internal/pkg/metrics"
)

const (
	wsPingInterval = 30 * time.Second
	wsSendBuffer   = 64
)

// wsMessage is sent by the client.
type wsMessage struct {
	Action string `json:"action"` // "select" | "clear" | "snapshot"
	ID     string `json:"id,omitempty"`
}

// wsSnapshot is sent on connect and on request.
type wsSnapshot struct {
	Type    string             `json:"type"`
	Session domain.SessionView `json:"session"`
}

type wsError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// WebSocketUpgrade rejects non-upgrade requests and unknown sessions before
// the connection is upgraded.
func WebSocketUpgrade(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		id := c.Query("session")
		if id == "" {
			return errBadRequest(c, "session query parameter is required")
		}
		if _, err := deps.Sessions.Get(id); err != nil {
			return errDomain(c, err)
		}
		return c.Next()
	}
}

// localRelay is a projection that turns session callbacks into the same
// JSON events the NATS publisher emits. It never blocks the session.
type localRelay struct {
	sessionID string
	out       chan<- []byte
	log       *slog.Logger
}

func (r *localRelay) OnCatalogReplaced(records []domain.PlaceRecord) {
	r.send(natsadapter.Event{
		Type:      natsadapter.EventCatalogReplaced,
		SessionID: r.sessionID,
		Places:    records,
		At:        time.Now().UTC(),
	})
}

func (r *localRelay) OnSelectionChanged(id string, selected bool) {
	r.send(natsadapter.Event{
		Type:      natsadapter.EventSelectionChanged,
		SessionID: r.sessionID,
		PlaceID:   id,
		Selected:  selected,
		At:        time.Now().UTC(),
	})
}

func (r *localRelay) send(ev natsadapter.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	select {
	case r.out <- data:
	default:
		r.log.Warn("ws send buffer full, event dropped", "type", ev.Type)
	}
}

// WebSocketHandler relays the events of one session to a client and lets
// the client change the selection. Connect with /ws?session=<id>.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		sessionID := c.Query("session")
		log := slog.Default().With("session_id", sessionID, "remote", c.RemoteAddr().String())

		s, err := deps.Sessions.Get(sessionID)
		if err != nil {
			_ = c.WriteJSON(wsError{Type: "error", Message: err.Error()})
			return
		}

		detach := s.Attach()
		defer detach()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()
		log.Info("ws client connected")

		out := make(chan []byte, wsSendBuffer)
		enqueue := func(v any) {
			data, err := json.Marshal(v)
			if err != nil {
				return
			}
			select {
			case out <- data:
			default:
				log.Warn("ws send buffer full, message dropped")
			}
		}

		// Event source: NATS when configured, else the session itself.
		if deps.Events != nil {
			unsubscribe, err := deps.Events.SubscribeSession(sessionID, func(_ string, data []byte) {
				select {
				case out <- data:
				default:
					log.Warn("ws send buffer full, event dropped")
				}
			})
			if err != nil {
				_ = c.WriteJSON(wsError{Type: "error", Message: "subscribe failed"})
				log.Error("ws subscribe", "error", err)
				return
			}
			defer unsubscribe()
		} else {
			relay := &localRelay{sessionID: sessionID, out: out, log: log}
			if err := s.Register(relay); err != nil {
				return
			}
			defer func() { _ = s.Unregister(relay) }()
		}

		if view, err := s.Snapshot(); err == nil {
			enqueue(wsSnapshot{Type: "snapshot", Session: view})
		}

		// Single writer: events, replies and keep-alive pings.
		done := make(chan struct{})
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			ticker := time.NewTicker(wsPingInterval)
			defer ticker.Stop()
			for {
				select {
				case data := <-out:
					if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
						return
					}
				case <-ticker.C:
					if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}
			handleWSMessage(s, msg, enqueue)
		}

		close(done)
		<-writerDone
		log.Info("ws client disconnected")
	}
}

func handleWSMessage(s *usecases.DiscoverySession, msg []byte, reply func(any)) {
	var m wsMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		reply(wsError{Type: "error", Message: "invalid JSON"})
		return
	}

	var err error
	switch m.Action {
	case "select":
		if m.ID == "" {
			reply(wsError{Type: "error", Message: "id is required"})
			return
		}
		err = s.Select(m.ID)
	case "clear":
		err = s.ClearSelection()
	case "snapshot":
		var view domain.SessionView
		if view, err = s.Snapshot(); err == nil {
			reply(wsSnapshot{Type: "snapshot", Session: view})
		}
	default:
		reply(wsError{Type: "error", Message: "unknown action: " + m.Action})
		return
	}
	if err != nil {
		reply(wsError{Type: "error", Message: err.Error()})
	}
}
