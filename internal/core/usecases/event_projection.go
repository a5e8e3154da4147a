package usecases

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samirrijal/nearme/internal/core/domain"
	"github.com/samirrijal/nearme/internal/core/ports"
)

const (
	publishTimeout     = 2 * time.Second
	eventQueueCapacity = 64
)

// EventProjection forwards catalog and selection changes of one session to
// an EventPublisher, so remote map and list views can follow along.
//
// Callbacks only enqueue; a forwarder goroutine publishes in order. When the
// queue is full the event is dropped and logged, so a slow broker never
// stalls the session.
type EventProjection struct {
	sessionID string
	publisher ports.EventPublisher
	log       *slog.Logger

	queue     chan func(ctx context.Context) error
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewEventProjection creates a projection publishing for sessionID and
// starts its forwarder. Call Close to stop it.
func NewEventProjection(sessionID string, publisher ports.EventPublisher, log *slog.Logger) *EventProjection {
	if log == nil {
		log = slog.Default()
	}
	p := &EventProjection{
		sessionID: sessionID,
		publisher: publisher,
		log:       log,
		queue:     make(chan func(ctx context.Context) error, eventQueueCapacity),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go p.forward()
	return p
}

func (p *EventProjection) OnCatalogReplaced(records []domain.PlaceRecord) {
	p.enqueue("catalog", func(ctx context.Context) error {
		return p.publisher.PublishCatalogReplaced(ctx, p.sessionID, records)
	})
}

func (p *EventProjection) OnSelectionChanged(id string, selected bool) {
	p.enqueue("selection", func(ctx context.Context) error {
		return p.publisher.PublishSelectionChanged(ctx, p.sessionID, id, selected)
	})
}

func (p *EventProjection) enqueue(kind string, publish func(ctx context.Context) error) {
	select {
	case <-p.quit:
		return
	default:
	}
	select {
	case p.queue <- publish:
	default:
		p.log.Warn("event queue full, event dropped", "session_id", p.sessionID, "kind", kind)
	}
}

func (p *EventProjection) forward() {
	defer close(p.done)
	for {
		select {
		case publish := <-p.queue:
			p.publish(context.Background(), publish)
		case <-p.quit:
			// Flush what was queued before Close, within one publish timeout.
			flushCtx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			defer cancel()
			for {
				select {
				case publish := <-p.queue:
					p.publish(flushCtx, publish)
				default:
					return
				}
			}
		}
	}
}

func (p *EventProjection) publish(parent context.Context, publish func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(parent, publishTimeout)
	defer cancel()
	if err := publish(ctx); err != nil {
		p.log.Warn("publish session event", "session_id", p.sessionID, "error", err)
	}
}

// Close stops accepting events, publishes those already queued and waits for
// the forwarder to exit. The flush is bounded by one publish timeout. It is
// idempotent.
func (p *EventProjection) Close() {
	p.closeOnce.Do(func() { close(p.quit) })
	<-p.done
}
