package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/nearme/internal/core/catalog"
	"github.com/samirrijal/nearme/internal/core/domain"
	"github.com/samirrijal/nearme/internal/core/ports"
	"github.com/samirrijal/nearme/internal/pkg/geospatial"
	"github.com/samirrijal/nearme/internal/pkg/metrics"
	"github.com/samirrijal/nearme/internal/pkg/telemetry"
)

// DefaultSearchTimeout bounds a gateway call when no timeout is configured.
const DefaultSearchTimeout = 10 * time.Second

// SessionOptions configures a DiscoverySession.
type SessionOptions struct {
	Timeout time.Duration
	Logger  *slog.Logger
	// OnClose runs once after the loop has stopped.
	OnClose func()
}

// DiscoverySession hosts one place catalog and its selection coordinator.
// All catalog and selection state is owned by a single loop goroutine; the
// exported methods hand work to that loop and are safe to call concurrently.
type DiscoverySession struct {
	id      string
	gateway ports.SearchGateway
	timeout time.Duration
	log     *slog.Logger
	onClose func()

	ops       chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	lastUsed  atomic.Int64
	attached  atomic.Int32

	// Owned by the loop.
	coord      *catalog.Coordinator
	generation uint64
	cancel     context.CancelFunc
	waiters    map[uint64]chan domain.SearchOutcome
	state      domain.SearchState
	query      string
	lastErr    string
	origin     *domain.GeoPoint
}

// NewDiscoverySession starts a session with a fresh id.
func NewDiscoverySession(gateway ports.SearchGateway, opts SessionOptions, projections ...ports.Projection) *DiscoverySession {
	return newDiscoverySession(uuid.NewString(), gateway, opts, projections...)
}

func newDiscoverySession(id string, gateway ports.SearchGateway, opts SessionOptions, projections ...ports.Projection) *DiscoverySession {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultSearchTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &DiscoverySession{
		id:      id,
		gateway: gateway,
		timeout: opts.Timeout,
		log:     opts.Logger.With("session_id", id),
		onClose: opts.OnClose,
		ops:     make(chan func()),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		coord:   catalog.NewCoordinator(catalog.New(), projections...),
		waiters: make(map[uint64]chan domain.SearchOutcome),
		state:   domain.StateIdle,
	}
	s.touch()
	go s.run()
	return s
}

// ID returns the session id.
func (s *DiscoverySession) ID() string {
	return s.id
}

// LastUsed returns when the session was last called.
func (s *DiscoverySession) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

func (s *DiscoverySession) touch() {
	s.lastUsed.Store(time.Now().UnixNano())
}

// Attach marks a live listener, such as a WebSocket, on the session. An
// attached session is never idle. The returned detach func restarts the idle
// clock and may be called more than once.
func (s *DiscoverySession) Attach() (detach func()) {
	s.attached.Add(1)
	s.touch()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.attached.Add(-1)
			s.touch()
		})
	}
}

// IdleSince reports whether nobody is attached and the session has not been
// used since cutoff.
func (s *DiscoverySession) IdleSince(cutoff time.Time) bool {
	return s.attached.Load() == 0 && s.LastUsed().Before(cutoff)
}

func (s *DiscoverySession) run() {
	defer close(s.done)
	for {
		select {
		case op := <-s.ops:
			op()
		case <-s.quit:
			if s.cancel != nil {
				s.cancel()
			}
			return
		}
	}
}

// post queues fn on the loop without waiting for it to run.
func (s *DiscoverySession) post(fn func()) bool {
	select {
	case s.ops <- fn:
		return true
	case <-s.quit:
		return false
	}
}

// do runs fn on the loop and waits for it.
func (s *DiscoverySession) do(fn func()) error {
	s.touch()
	ran := make(chan struct{})
	if !s.post(func() { fn(); close(ran) }) {
		return domain.ErrSessionClosed
	}
	select {
	case <-ran:
		return nil
	case <-s.done:
		return domain.ErrSessionClosed
	}
}

// Search runs query against the gateway and installs the result as a new
// catalog generation. Starting a search cancels the one in flight; a
// completion that arrives after a newer search has started is discarded.
//
// Gateway failures are reported in the outcome, not as an error. The error
// is only set for an empty query, a closed session, or ctx ending while the
// caller waits (the search itself keeps running in that case).
func (s *DiscoverySession) Search(ctx context.Context, query string, region domain.Region) (domain.SearchOutcome, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.SearchOutcome{}, domain.ErrEmptyQuery
	}

	var result <-chan domain.SearchOutcome
	if err := s.do(func() { result = s.startSearch(query, region) }); err != nil {
		return domain.SearchOutcome{}, err
	}

	select {
	case out := <-result:
		return out, nil
	case <-ctx.Done():
		return domain.SearchOutcome{}, ctx.Err()
	case <-s.done:
		return domain.SearchOutcome{}, domain.ErrSessionClosed
	}
}

func (s *DiscoverySession) startSearch(query string, region domain.Region) <-chan domain.SearchOutcome {
	if s.cancel != nil {
		s.cancel()
	}
	for gen, w := range s.waiters {
		w <- domain.SearchOutcome{Generation: gen, Status: domain.StatusSuperseded}
		delete(s.waiters, gen)
		metrics.Searches.WithLabelValues(string(domain.StatusSuperseded)).Inc()
	}

	s.generation++
	gen := s.generation
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	s.cancel = cancel
	s.state = domain.StateSearching
	s.query = query
	s.lastErr = ""

	out := make(chan domain.SearchOutcome, 1)
	s.waiters[gen] = out

	s.log.Debug("search started", "generation", gen, "query", query, "span_meters", region.SpanMeters)

	go func() {
		ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanSessionSearch, trace.WithAttributes(
			attribute.String(telemetry.AttrQuery, query),
			attribute.Int64(telemetry.AttrGeneration, int64(gen)),
		))
		raw, err := s.callGateway(ctx, query, region)
		span.End()
		s.post(func() { s.completeSearch(gen, raw, err) })
	}()
	return out
}

// callGateway enforces ctx even against a gateway that ignores it.
func (s *DiscoverySession) callGateway(ctx context.Context, query string, region domain.Region) ([]domain.RawPlace, error) {
	type result struct {
		raw []domain.RawPlace
		err error
	}
	ch := make(chan result, 1)
	go func() {
		raw, err := s.gateway.Search(ctx, query, region)
		ch <- result{raw, err}
	}()

	select {
	case r := <-ch:
		return r.raw, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *DiscoverySession) completeSearch(gen uint64, raw []domain.RawPlace, err error) {
	if gen != s.generation {
		metrics.StaleCompletions.Inc()
		s.log.Debug("stale search completion dropped", "generation", gen, "current", s.generation)
		return
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	out := domain.SearchOutcome{Generation: gen}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("search timed out after %s: %w", s.timeout, err)
		}
		err = fmt.Errorf("%w: %w", domain.ErrGatewayFailure, err)

		s.coord.ReplaceCatalogAt(gen, nil)
		s.state = domain.StateFailed
		s.lastErr = err.Error()
		out.Status = domain.StatusFailed
		out.Error = s.lastErr
		s.log.Warn("search failed", "generation", gen, "query", s.query, "error", err)
	} else {
		out.Dropped = s.coord.ReplaceCatalogAt(gen, raw)
		out.Count = s.coord.Catalog().Len()
		if out.Dropped > 0 {
			metrics.MalformedPayloads.Add(float64(out.Dropped))
		}
		if out.Count == 0 {
			s.state = domain.StateEmpty
			out.Status = domain.StatusEmpty
		} else {
			s.state = domain.StateResults
			out.Status = domain.StatusResults
		}
		s.log.Info("search finished", "generation", gen, "query", s.query,
			"results", out.Count, "dropped", out.Dropped)
	}
	metrics.Searches.WithLabelValues(string(out.Status)).Inc()

	if w, ok := s.waiters[gen]; ok {
		w <- out
		delete(s.waiters, gen)
	}
}

// Select marks id as the selected place. Unknown ids leave nothing selected.
func (s *DiscoverySession) Select(id string) error {
	return s.do(func() {
		s.coord.Select(id)
		metrics.SelectionChanges.Inc()
	})
}

// SelectAndSnapshot selects id and returns the resulting view in the same
// loop turn, so no other operation can land in between.
func (s *DiscoverySession) SelectAndSnapshot(id string) (domain.SessionView, error) {
	var view domain.SessionView
	err := s.do(func() {
		s.coord.Select(id)
		metrics.SelectionChanges.Inc()
		view = s.view()
	})
	return view, err
}

// ClearSelection unselects the current place.
func (s *DiscoverySession) ClearSelection() error {
	return s.do(func() {
		s.coord.ClearSelection()
		metrics.SelectionChanges.Inc()
	})
}

// CurrentSelectionID returns the selected place id, if any.
func (s *DiscoverySession) CurrentSelectionID() (id string, ok bool, err error) {
	err = s.do(func() { id, ok = s.coord.CurrentSelectionID() })
	return id, ok, err
}

// SetOrigin sets the user location distances are measured from.
func (s *DiscoverySession) SetOrigin(p domain.GeoPoint) error {
	return s.do(func() { s.origin = &p })
}

// Register adds a projection. It is not told about the current state.
func (s *DiscoverySession) Register(p ports.Projection) error {
	return s.do(func() { s.coord.Register(p) })
}

// Unregister removes a projection added with Register.
func (s *DiscoverySession) Unregister(p ports.Projection) error {
	return s.do(func() { s.coord.Unregister(p) })
}

// Snapshot returns a read-only view of the session.
func (s *DiscoverySession) Snapshot() (domain.SessionView, error) {
	var view domain.SessionView
	err := s.do(func() { view = s.view() })
	return view, err
}

func (s *DiscoverySession) view() domain.SessionView {
	cat := s.coord.Catalog()
	records := cat.RecordsOrderedWithSelectionFirst()

	view := domain.SessionView{
		SessionID:  s.id,
		Generation: cat.Generation(),
		State:      s.state,
		Query:      s.query,
		LastError:  s.lastErr,
		Places:     make([]domain.PlaceView, len(records)),
	}
	if id, ok := s.coord.CurrentSelectionID(); ok {
		view.SelectedID = id
	}
	if s.origin != nil {
		origin := *s.origin
		view.Origin = &origin
	}

	for i, rec := range records {
		pv := domain.PlaceView{PlaceRecord: rec}
		if s.origin != nil {
			d := cat.DistanceFrom(*s.origin, rec)
			pv.Distance = &d
			pv.DistanceText = geospatial.FormatDistance(d)
		}
		view.Places[i] = pv
	}
	return view
}

// Close stops the loop and cancels any search in flight. It is idempotent.
func (s *DiscoverySession) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
		<-s.done
		if s.onClose != nil {
			s.onClose()
		}
		s.log.Debug("session closed")
	})
}
