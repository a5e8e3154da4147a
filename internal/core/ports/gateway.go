package ports

import (
	"context"

	"github.com/samirrijal/nearme/internal/core/domain"
)

// SearchGateway finds place candidates for a free-text query inside a region.
// Implementations must return promptly once ctx is done.
type SearchGateway interface {
	Search(ctx context.Context, query string, region domain.Region) ([]domain.RawPlace, error)
}

// PlaceRepository persists places for the database-backed gateway.
type PlaceRepository interface {
	SearchGateway
	UpsertBatch(ctx context.Context, places []domain.RawPlace, source string) error
}
