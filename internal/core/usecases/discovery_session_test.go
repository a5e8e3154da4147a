package usecases_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/nearme/internal/core/domain"
	"github.com/samirrijal/nearme/internal/core/usecases"
)

func newSession(t *testing.T, gw *mockGateway, timeout time.Duration) *usecases.DiscoverySession {
	t.Helper()
	s := usecases.NewDiscoverySession(gw, usecases.SessionOptions{Timeout: timeout})
	t.Cleanup(s.Close)
	return s
}

func TestDiscoverySession_SearchResults(t *testing.T) {
	gw := &mockGateway{
		searchFn: func(ctx context.Context, query string, region domain.Region) ([]domain.RawPlace, error) {
			assert.Equal(t, "coffee", query)
			assert.Equal(t, domain.DefaultSpanMeters, region.SpanMeters)
			return rawPlaces("A", "B", "C"), nil
		},
	}
	s := newSession(t, gw, time.Second)

	out, err := s.Search(context.Background(), "  coffee ", bilbao)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResults, out.Status)
	assert.Equal(t, 3, out.Count)
	assert.Equal(t, uint64(1), out.Generation)

	view, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, domain.StateResults, view.State)
	assert.Equal(t, "coffee", view.Query)
	require.Len(t, view.Places, 3)
	assert.Equal(t, "A", view.Places[0].Name)
	assert.Nil(t, view.Places[0].Distance)
}

func TestDiscoverySession_EmptyQuery(t *testing.T) {
	gw := &mockGateway{}
	s := newSession(t, gw, time.Second)

	_, err := s.Search(context.Background(), "   ", bilbao)
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
	assert.Zero(t, gw.Calls())
}

func TestDiscoverySession_EmptyResultIsNotFailure(t *testing.T) {
	s := newSession(t, &mockGateway{}, time.Second)

	out, err := s.Search(context.Background(), "zzzz", bilbao)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEmpty, out.Status)
	assert.Empty(t, out.Error)

	view, _ := s.Snapshot()
	assert.Equal(t, domain.StateEmpty, view.State)
	assert.Empty(t, view.Places)
}

func TestDiscoverySession_GatewayFailureClearsCatalog(t *testing.T) {
	fail := false
	gw := &mockGateway{
		searchFn: func(ctx context.Context, query string, region domain.Region) ([]domain.RawPlace, error) {
			if fail {
				return nil, errors.New("upstream 503")
			}
			return rawPlaces("A"), nil
		},
	}
	s := newSession(t, gw, time.Second)

	_, err := s.Search(context.Background(), "coffee", bilbao)
	require.NoError(t, err)

	fail = true
	out, err := s.Search(context.Background(), "coffee", bilbao)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, out.Status)
	assert.Contains(t, out.Error, domain.ErrGatewayFailure.Error())
	assert.Contains(t, out.Error, "upstream 503")

	view, _ := s.Snapshot()
	assert.Equal(t, domain.StateFailed, view.State)
	assert.Empty(t, view.Places)
	assert.NotEmpty(t, view.LastError)
}

func TestDiscoverySession_MalformedEntriesDropped(t *testing.T) {
	gw := &mockGateway{
		searchFn: func(ctx context.Context, query string, region domain.Region) ([]domain.RawPlace, error) {
			raw := rawPlaces("A", "B")
			raw = append(raw, domain.RawPlace{Name: "no location"})
			return raw, nil
		},
	}
	s := newSession(t, gw, time.Second)

	out, err := s.Search(context.Background(), "coffee", bilbao)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, 1, out.Dropped)
}

func TestDiscoverySession_Timeout(t *testing.T) {
	gw := &mockGateway{
		searchFn: func(ctx context.Context, query string, region domain.Region) ([]domain.RawPlace, error) {
			// Ignores ctx on purpose.
			time.Sleep(500 * time.Millisecond)
			return rawPlaces("late"), nil
		},
	}
	s := newSession(t, gw, 50*time.Millisecond)

	start := time.Now()
	out, err := s.Search(context.Background(), "coffee", bilbao)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
	assert.Equal(t, domain.StatusFailed, out.Status)
	assert.Contains(t, out.Error, "timed out")
}

func TestDiscoverySession_StaleResponseDiscarded(t *testing.T) {
	releaseA := make(chan struct{})
	startedA := make(chan struct{})
	gw := &mockGateway{
		searchFn: func(ctx context.Context, query string, region domain.Region) ([]domain.RawPlace, error) {
			if query == "A" {
				close(startedA)
				<-releaseA
				return rawPlaces("from A 1", "from A 2"), nil
			}
			return rawPlaces("from B"), nil
		},
	}
	s := newSession(t, gw, 5*time.Second)

	var wg sync.WaitGroup
	var outA domain.SearchOutcome
	wg.Add(1)
	go func() {
		defer wg.Done()
		outA, _ = s.Search(context.Background(), "A", bilbao)
	}()
	<-startedA

	outB, err := s.Search(context.Background(), "B", bilbao)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResults, outB.Status)

	close(releaseA)
	wg.Wait()
	assert.Equal(t, domain.StatusSuperseded, outA.Status)

	// Give a late completion of A a chance to arrive before checking.
	time.Sleep(20 * time.Millisecond)
	view, err := s.Snapshot()
	require.NoError(t, err)
	require.Len(t, view.Places, 1)
	assert.Equal(t, "from B", view.Places[0].Name)
	assert.Equal(t, outB.Generation, view.Generation)
	assert.Greater(t, outB.Generation, outA.Generation)
}

func TestDiscoverySession_SelectionThroughSession(t *testing.T) {
	gw := &mockGateway{
		searchFn: func(ctx context.Context, query string, region domain.Region) ([]domain.RawPlace, error) {
			return rawPlaces("A", "B", "C"), nil
		},
	}
	s := newSession(t, gw, time.Second)
	_, err := s.Search(context.Background(), "coffee", bilbao)
	require.NoError(t, err)

	view, _ := s.Snapshot()
	third := view.Places[2].ID

	require.NoError(t, s.Select(third))
	id, ok, err := s.CurrentSelectionID()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, third, id)

	view, _ = s.Snapshot()
	assert.Equal(t, third, view.SelectedID)
	assert.Equal(t, third, view.Places[0].ID)
	assert.True(t, view.Places[0].Selected)

	require.NoError(t, s.Select("unknown"))
	_, ok, _ = s.CurrentSelectionID()
	assert.False(t, ok)

	require.NoError(t, s.Select(third))
	require.NoError(t, s.ClearSelection())
	_, ok, _ = s.CurrentSelectionID()
	assert.False(t, ok)
}

func TestDiscoverySession_ConcurrentSelectKeepsSingleSelection(t *testing.T) {
	gw := &mockGateway{
		searchFn: func(ctx context.Context, query string, region domain.Region) ([]domain.RawPlace, error) {
			return rawPlaces("A", "B", "C", "D", "E"), nil
		},
	}
	s := newSession(t, gw, time.Second)
	_, err := s.Search(context.Background(), "coffee", bilbao)
	require.NoError(t, err)
	view, _ := s.Snapshot()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Select(view.Places[i%len(view.Places)].ID)
		}(i)
	}
	wg.Wait()

	view, _ = s.Snapshot()
	selected := 0
	for _, p := range view.Places {
		if p.Selected {
			selected++
		}
	}
	assert.Equal(t, 1, selected)
}

func TestDiscoverySession_SelectAndSnapshotIsAtomic(t *testing.T) {
	gw := &mockGateway{
		searchFn: func(ctx context.Context, query string, region domain.Region) ([]domain.RawPlace, error) {
			return rawPlaces("A", "B", "C", "D", "E"), nil
		},
	}
	s := newSession(t, gw, time.Second)
	_, err := s.Search(context.Background(), "coffee", bilbao)
	require.NoError(t, err)
	view, _ := s.Snapshot()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(want string) {
			defer wg.Done()
			got, err := s.SelectAndSnapshot(want)
			if !assert.NoError(t, err) {
				return
			}
			assert.Equal(t, want, got.SelectedID)
			assert.Equal(t, want, got.Places[0].ID)
		}(view.Places[i%len(view.Places)].ID)
	}
	wg.Wait()
}

func TestDiscoverySession_DistancesFromOrigin(t *testing.T) {
	gw := &mockGateway{
		searchFn: func(ctx context.Context, query string, region domain.Region) ([]domain.RawPlace, error) {
			return rawPlaces("A", "B"), nil
		},
	}
	s := newSession(t, gw, time.Second)
	require.NoError(t, s.SetOrigin(domain.GeoPoint{Lat: 43.2630, Lon: -2.9350}))
	_, err := s.Search(context.Background(), "coffee", bilbao)
	require.NoError(t, err)

	view, err := s.Snapshot()
	require.NoError(t, err)
	require.NotNil(t, view.Origin)
	require.NotNil(t, view.Places[0].Distance)
	assert.InDelta(t, 0, *view.Places[0].Distance, 0.5)
	assert.Equal(t, "0 m", view.Places[0].DistanceText)
	assert.InDelta(t, 111, *view.Places[1].Distance, 2)
}

func TestDiscoverySession_CallerContextCancelled(t *testing.T) {
	release := make(chan struct{})
	gw := &mockGateway{
		searchFn: func(ctx context.Context, query string, region domain.Region) ([]domain.RawPlace, error) {
			<-release
			return rawPlaces("A"), nil
		},
	}
	s := newSession(t, gw, 5*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Search(ctx, "coffee", bilbao)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	assert.Eventually(t, func() bool {
		view, _ := s.Snapshot()
		return view.State == domain.StateResults
	}, time.Second, 10*time.Millisecond)
}

func TestDiscoverySession_Close(t *testing.T) {
	s := usecases.NewDiscoverySession(&mockGateway{}, usecases.SessionOptions{})
	s.Close()
	s.Close()

	_, err := s.Search(context.Background(), "coffee", bilbao)
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
	assert.ErrorIs(t, s.Select("x"), domain.ErrSessionClosed)
	_, err = s.Snapshot()
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
}
