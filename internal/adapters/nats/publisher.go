package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/nearme/internal/core/domain"
)

// Subjects carrying session projection events.
const (
	subjectRoot      = "nearme.session"
	catalogSuffix    = "catalog"
	selectionSuffix  = "selection"
	sessionsStream   = "NEARME_SESSIONS"
	sessionStreamAge = time.Hour
)

// CatalogSubject is the subject catalog replacements of a session go to.
func CatalogSubject(sessionID string) string {
	return subjectRoot + "." + sessionID + "." + catalogSuffix
}

// SelectionSubject is the subject selection changes of a session go to.
func SelectionSubject(sessionID string) string {
	return subjectRoot + "." + sessionID + "." + selectionSuffix
}

// SessionSubjects matches every event of one session.
func SessionSubjects(sessionID string) string {
	return subjectRoot + "." + sessionID + ".>"
}

// Event is the JSON envelope of every published message.
type Event struct {
	Type      string               `json:"type"`
	SessionID string               `json:"session_id"`
	Places    []domain.PlaceRecord `json:"places,omitempty"`
	PlaceID   string               `json:"place_id,omitempty"`
	Selected  bool                 `json:"selected,omitempty"`
	At        time.Time            `json:"at"`
}

// Event types.
const (
	EventCatalogReplaced  = "catalog.replaced"
	EventSelectionChanged = "selection.changed"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and makes sure the session stream exists.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      sessionsStream,
		Subjects:  []string{subjectRoot + ".>"},
		Retention: nats.LimitsPolicy,
		MaxAge:    sessionStreamAge,
		Storage:   nats.MemoryStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		if _, err := js.UpdateStream(&cfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishCatalogReplaced implements ports.EventPublisher.
func (p *Publisher) PublishCatalogReplaced(ctx context.Context, sessionID string, records []domain.PlaceRecord) error {
	return p.publish(ctx, CatalogSubject(sessionID), Event{
		Type:      EventCatalogReplaced,
		SessionID: sessionID,
		Places:    records,
		At:        time.Now().UTC(),
	})
}

// PublishSelectionChanged implements ports.EventPublisher.
func (p *Publisher) PublishSelectionChanged(ctx context.Context, sessionID, placeID string, selected bool) error {
	return p.publish(ctx, SelectionSubject(sessionID), Event{
		Type:      EventSelectionChanged,
		SessionID: sessionID,
		PlaceID:   placeID,
		Selected:  selected,
		At:        time.Now().UTC(),
	})
}

func (p *Publisher) publish(ctx context.Context, subject string, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := p.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Conn exposes the underlying connection so subscribers can share it.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection.
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("nearme"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
