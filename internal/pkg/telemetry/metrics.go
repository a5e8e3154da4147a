package telemetry

// Span and attribute names used for tracing.
const (
	TracerName = "github.com/samirrijal/nearme"

	SpanGatewaySearch = "gateway.search"
	SpanSessionSearch = "session.search"

	AttrProvider   = "nearme.provider"
	AttrQuery      = "nearme.query"
	AttrGeneration = "nearme.generation"
	AttrResults    = "nearme.results"
	AttrSpan       = "nearme.region.span_meters"
)
