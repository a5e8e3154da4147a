package usecases_test

import (
	"context"
	"errors"
	"sync"

	"github.com/samirrijal/nearme/internal/core/domain"
)

// --- Mock SearchGateway ---

type mockGateway struct {
	searchFn func(ctx context.Context, query string, region domain.Region) ([]domain.RawPlace, error)

	mu    sync.Mutex
	calls int
}

func (m *mockGateway) Search(ctx context.Context, query string, region domain.Region) ([]domain.RawPlace, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.searchFn != nil {
		return m.searchFn(ctx, query, region)
	}
	return nil, nil
}

func (m *mockGateway) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// --- Mock CacheService ---

var errCacheMiss = errors.New("cache miss")

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errCacheMiss
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.sets++
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Mock EventPublisher ---

type publishedSelection struct {
	sessionID, placeID string
	selected           bool
}

type mockPublisher struct {
	mu         sync.Mutex
	catalogs   map[string]int
	selections []publishedSelection
	err        error
	// block, when set, stalls every publish until it is closed or ctx ends.
	block chan struct{}
}

func (m *mockPublisher) wait(ctx context.Context) error {
	if m.block == nil {
		return nil
	}
	select {
	case <-m.block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newMockPublisher() *mockPublisher {
	return &mockPublisher{catalogs: make(map[string]int)}
}

func (m *mockPublisher) PublishCatalogReplaced(ctx context.Context, sessionID string, records []domain.PlaceRecord) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalogs[sessionID]++
	return m.err
}

func (m *mockPublisher) PublishSelectionChanged(ctx context.Context, sessionID, placeID string, selected bool) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selections = append(m.selections, publishedSelection{sessionID, placeID, selected})
	return m.err
}

func (m *mockPublisher) catalogCount(sessionID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.catalogs[sessionID]
}

func (m *mockPublisher) selectionEvents() []publishedSelection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]publishedSelection(nil), m.selections...)
}

func rawPlaces(names ...string) []domain.RawPlace {
	out := make([]domain.RawPlace, len(names))
	for i, n := range names {
		out[i] = domain.RawPlace{
			Name:         n,
			CategoryCode: "cafe",
			Location:     &domain.GeoPoint{Lat: 43.2630 + float64(i)*0.001, Lon: -2.9350},
		}
	}
	return out
}

var bilbao = domain.NewRegion(domain.GeoPoint{Lat: 43.2630, Lon: -2.9350}, 0)
