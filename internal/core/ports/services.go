package ports

import (
	"context"

	"github.com/samirrijal/nearme/internal/core/domain"
)

// Projection renders catalog and selection state. Projections are told about
// changes synchronously and never mutate the catalog themselves.
type Projection interface {
	OnCatalogReplaced(records []domain.PlaceRecord)
	OnSelectionChanged(id string, selected bool)
}

// EventPublisher publishes session events to a message broker.
type EventPublisher interface {
	PublishCatalogReplaced(ctx context.Context, sessionID string, records []domain.PlaceRecord) error
	PublishSelectionChanged(ctx context.Context, sessionID, placeID string, selected bool) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
