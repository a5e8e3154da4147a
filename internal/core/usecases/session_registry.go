package usecases

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/nearme/internal/core/domain"
	"github.com/samirrijal/nearme/internal/core/ports"
	"github.com/samirrijal/nearme/internal/pkg/metrics"
)

// RegistryConfig bounds the number and lifetime of sessions.
type RegistryConfig struct {
	MaxSessions   int
	IdleTTL       time.Duration
	SearchTimeout time.Duration
	Logger        *slog.Logger
}

// SessionRegistry tracks the discovery sessions of all connected clients.
type SessionRegistry struct {
	gateway   ports.SearchGateway
	publisher ports.EventPublisher
	cfg       RegistryConfig

	mu       sync.Mutex
	sessions map[string]*DiscoverySession
}

// NewSessionRegistry creates a registry. publisher may be nil, in which case
// sessions have no event projection.
func NewSessionRegistry(gateway ports.SearchGateway, publisher ports.EventPublisher, cfg RegistryConfig) *SessionRegistry {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &SessionRegistry{
		gateway:   gateway,
		publisher: publisher,
		cfg:       cfg,
		sessions:  make(map[string]*DiscoverySession),
	}
}

// Create opens a new session, optionally with a known user location.
func (r *SessionRegistry) Create(origin *domain.GeoPoint) (*DiscoverySession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cfg.MaxSessions > 0 && len(r.sessions) >= r.cfg.MaxSessions {
		return nil, domain.ErrTooManySessions
	}

	id := uuid.NewString()
	opts := SessionOptions{
		Timeout: r.cfg.SearchTimeout,
		Logger:  r.cfg.Logger,
	}
	var projections []ports.Projection
	if r.publisher != nil {
		events := NewEventProjection(id, r.publisher, r.cfg.Logger)
		projections = append(projections, events)
		opts.OnClose = events.Close
	}

	s := newDiscoverySession(id, r.gateway, opts, projections...)
	if origin != nil {
		if err := s.SetOrigin(*origin); err != nil {
			s.Close()
			return nil, err
		}
	}

	r.sessions[id] = s
	metrics.ActiveSessions.Inc()
	return s, nil
}

// Get returns an open session.
func (r *SessionRegistry) Get(id string) (*DiscoverySession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

// Delete closes and forgets a session.
func (r *SessionRegistry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if !ok {
		return domain.ErrSessionNotFound
	}
	s.Close()
	metrics.ActiveSessions.Dec()
	return nil
}

// Len returns the number of open sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes sessions idle since before now-IdleTTL and returns how many.
// Sessions with an attached listener are kept.
func (r *SessionRegistry) Sweep(now time.Time) int {
	if r.cfg.IdleTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-r.cfg.IdleTTL)

	r.mu.Lock()
	var idle []*DiscoverySession
	for id, s := range r.sessions {
		if s.IdleSince(cutoff) {
			idle = append(idle, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		s.Close()
		metrics.ActiveSessions.Dec()
	}
	if len(idle) > 0 {
		r.cfg.Logger.Info("idle sessions closed", "count", len(idle))
	}
	return len(idle)
}

// RunJanitor sweeps idle sessions every interval until ctx is done.
func (r *SessionRegistry) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.Sweep(time.Now())
		case <-ctx.Done():
			return
		}
	}
}

// CloseAll closes every session.
func (r *SessionRegistry) CloseAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*DiscoverySession)
	r.mu.Unlock()

	for _, s := range all {
		s.Close()
		metrics.ActiveSessions.Dec()
	}
}
