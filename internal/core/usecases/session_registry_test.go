package usecases_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/nearme/internal/core/domain"
	"github.com/samirrijal/nearme/internal/core/usecases"
)

func TestSessionRegistry_CreateGetDelete(t *testing.T) {
	r := usecases.NewSessionRegistry(&mockGateway{}, nil, usecases.RegistryConfig{})
	defer r.CloseAll()

	s, err := r.Create(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())

	got, err := r.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, r.Delete(s.ID()))
	_, err = r.Get(s.ID())
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, r.Delete(s.ID()), domain.ErrSessionNotFound)

	_, err = s.Snapshot()
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
}

func TestSessionRegistry_CreateWithOrigin(t *testing.T) {
	r := usecases.NewSessionRegistry(&mockGateway{}, nil, usecases.RegistryConfig{})
	defer r.CloseAll()

	origin := domain.GeoPoint{Lat: 43.26, Lon: -2.93}
	s, err := r.Create(&origin)
	require.NoError(t, err)

	view, err := s.Snapshot()
	require.NoError(t, err)
	require.NotNil(t, view.Origin)
	assert.Equal(t, origin, *view.Origin)
}

func TestSessionRegistry_MaxSessions(t *testing.T) {
	r := usecases.NewSessionRegistry(&mockGateway{}, nil, usecases.RegistryConfig{MaxSessions: 2})
	defer r.CloseAll()

	_, err := r.Create(nil)
	require.NoError(t, err)
	_, err = r.Create(nil)
	require.NoError(t, err)
	_, err = r.Create(nil)
	assert.ErrorIs(t, err, domain.ErrTooManySessions)
}

func TestSessionRegistry_Sweep(t *testing.T) {
	r := usecases.NewSessionRegistry(&mockGateway{}, nil, usecases.RegistryConfig{IdleTTL: time.Minute})
	defer r.CloseAll()

	_, err := r.Create(nil)
	require.NoError(t, err)

	assert.Zero(t, r.Sweep(time.Now()))
	assert.Equal(t, 1, r.Sweep(time.Now().Add(2*time.Minute)))
	assert.Zero(t, r.Len())
}

func TestSessionRegistry_SweepKeepsAttachedSessions(t *testing.T) {
	r := usecases.NewSessionRegistry(&mockGateway{}, nil, usecases.RegistryConfig{IdleTTL: time.Minute})
	defer r.CloseAll()

	s, err := r.Create(nil)
	require.NoError(t, err)
	detach := s.Attach()

	assert.Zero(t, r.Sweep(time.Now().Add(2*time.Minute)))
	assert.Equal(t, 1, r.Len())

	detach()
	detach()
	assert.Zero(t, r.Sweep(time.Now()), "detach restarts the idle clock")
	assert.Equal(t, 1, r.Sweep(time.Now().Add(2*time.Minute)))
}

func TestSessionRegistry_PublishesEvents(t *testing.T) {
	pub := newMockPublisher()
	gw := &mockGateway{
		searchFn: func(ctx context.Context, query string, region domain.Region) ([]domain.RawPlace, error) {
			return rawPlaces("A", "B"), nil
		},
	}
	r := usecases.NewSessionRegistry(gw, pub, usecases.RegistryConfig{})
	defer r.CloseAll()

	s, err := r.Create(nil)
	require.NoError(t, err)
	_, err = s.Search(context.Background(), "coffee", bilbao)
	require.NoError(t, err)

	view, _ := s.Snapshot()
	require.NoError(t, s.Select(view.Places[1].ID))

	// Closing the session flushes its queued events.
	require.NoError(t, r.Delete(s.ID()))
	assert.Equal(t, 1, pub.catalogCount(s.ID()))
	events := pub.selectionEvents()
	require.Len(t, events, 1)
	assert.Equal(t, publishedSelection{s.ID(), view.Places[1].ID, true}, events[0])
}
