package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/samirrijal/nearme/internal/core/domain"
	"github.com/samirrijal/nearme/internal/core/ports"
	"github.com/samirrijal/nearme/internal/pkg/metrics"
)

// CachedGateway adds read-through caching to a SearchGateway and shares one
// upstream call between identical concurrent searches.
type CachedGateway struct {
	next        ports.SearchGateway
	cache       ports.CacheService
	ttl         time.Duration
	callTimeout time.Duration
	group       singleflight.Group
}

// NewCachedGateway wraps next. A nil cache or non-positive ttl disables
// caching but keeps in-flight sharing.
func NewCachedGateway(next ports.SearchGateway, cache ports.CacheService, ttl, callTimeout time.Duration) *CachedGateway {
	if callTimeout <= 0 {
		callTimeout = DefaultSearchTimeout
	}
	return &CachedGateway{next: next, cache: cache, ttl: ttl, callTimeout: callTimeout}
}

// Search implements ports.SearchGateway.
func (g *CachedGateway) Search(ctx context.Context, query string, region domain.Region) ([]domain.RawPlace, error) {
	key := searchCacheKey(query, region)

	if g.caching() {
		if data, err := g.cache.Get(ctx, key); err == nil {
			var raw []domain.RawPlace
			if err := json.Unmarshal(data, &raw); err == nil {
				metrics.CacheHits.WithLabelValues("search").Inc()
				return raw, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("search").Inc()
	}

	// The shared call must outlive any single caller, so it gets its own
	// deadline instead of the first caller's cancellation.
	ch := g.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.callTimeout)
		defer cancel()

		raw, err := g.next.Search(callCtx, query, region)
		if err != nil {
			return nil, err
		}
		if g.caching() {
			if data, err := json.Marshal(raw); err == nil {
				_ = g.cache.Set(callCtx, key, data, int(g.ttl.Seconds()))
			}
		}
		return raw, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		raw, _ := res.Val.([]domain.RawPlace)
		return raw, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *CachedGateway) caching() bool {
	return g.cache != nil && g.ttl >= time.Second
}

func searchCacheKey(query string, region domain.Region) string {
	q := strings.ToLower(strings.Join(strings.Fields(query), " "))
	return fmt.Sprintf("places:search:%s:%.4f:%.4f:%.0f",
		q, region.Center.Lat, region.Center.Lon, region.SpanMeters)
}
