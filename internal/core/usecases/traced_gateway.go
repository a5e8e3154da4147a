package usecases

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/nearme/internal/core/domain"
	"github.com/samirrijal/nearme/internal/core/ports"
	"github.com/samirrijal/nearme/internal/pkg/metrics"
	"github.com/samirrijal/nearme/internal/pkg/telemetry"
)

// TracedGateway records a span and provider metrics around every search.
type TracedGateway struct {
	next     ports.SearchGateway
	provider string
	tracer   trace.Tracer
}

// NewTracedGateway wraps next, labelling telemetry with provider.
func NewTracedGateway(next ports.SearchGateway, provider string) *TracedGateway {
	return &TracedGateway{next: next, provider: provider, tracer: telemetry.Tracer()}
}

// Search implements ports.SearchGateway.
func (g *TracedGateway) Search(ctx context.Context, query string, region domain.Region) ([]domain.RawPlace, error) {
	ctx, span := g.tracer.Start(ctx, telemetry.SpanGatewaySearch, trace.WithAttributes(
		attribute.String(telemetry.AttrProvider, g.provider),
		attribute.String(telemetry.AttrQuery, query),
		attribute.Float64(telemetry.AttrSpan, region.SpanMeters),
	))
	defer span.End()

	start := time.Now()
	raw, err := g.next.Search(ctx, query, region)
	metrics.GatewayDuration.WithLabelValues(g.provider).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.GatewayErrors.WithLabelValues(g.provider).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int(telemetry.AttrResults, len(raw)))
	return raw, nil
}
